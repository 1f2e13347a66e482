// Package domain contains core types for the pipeline service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Pipeline is an ordered funnel of stages owned by a single user.
type Pipeline struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID `gorm:"column:user_id;not null;index" json:"user_id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	IsDefault bool         `gorm:"column:is_default;not null;default:false" json:"is_default"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Stages []Stage `gorm:"-" json:"stages,omitempty"`
}

// TableName sets the database table name.
func (Pipeline) TableName() string { return "pipelines" }

// Stage is a step inside one pipeline. Position is the sort key and is only
// guaranteed dense right after a reorder.
type Stage struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	PipelineID snowflake.ID `gorm:"column:pipeline_id;not null;index" json:"pipeline_id"`
	Name       string       `gorm:"type:text;not null" json:"name"`
	Color      string       `gorm:"type:text;not null" json:"color"`
	Position   int          `gorm:"not null" json:"position"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Stage) TableName() string { return "stages" }
