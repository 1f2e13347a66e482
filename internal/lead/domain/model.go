// Package domain contains core types for the lead service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Lead priorities.
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
	PriorityHot    = "HOT"
)

// ValidPriority reports whether p is one of the known priorities.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityHot:
		return true
	}
	return false
}

// Lead is a deal tracked through a pipeline. StageID is nullable: deleting a
// stage detaches its leads instead of deleting them.
type Lead struct {
	ID           snowflake.ID   `gorm:"primaryKey" json:"id"`
	UserID       snowflake.ID   `gorm:"column:user_id;not null;index" json:"user_id"`
	PipelineID   snowflake.ID   `gorm:"column:pipeline_id;not null;index" json:"pipeline_id"`
	StageID      *snowflake.ID  `gorm:"column:stage_id;index" json:"stage_id"`
	Title        string         `gorm:"type:text;not null" json:"title"`
	Company      *string        `gorm:"type:text" json:"company"`
	Value        *float64       `gorm:"type:numeric" json:"value"`
	Status       string         `gorm:"type:text;not null;default:open" json:"status"`
	Priority     string         `gorm:"type:text;not null;default:MEDIUM" json:"priority"`
	Tags         datatypes.JSON `gorm:"not null;default:'[]'" json:"tags"`
	ContactEmail *string        `gorm:"column:contact_email;type:text" json:"contact_email"`
	ContactPhone *string        `gorm:"column:contact_phone;type:text" json:"contact_phone"`
	Notes        *string        `gorm:"type:text" json:"notes"`
	NextActionAt *time.Time     `gorm:"column:next_action_at" json:"next_action_at"`
	ArchivedAt   *time.Time     `gorm:"column:archived_at" json:"archived_at"`
	CreatedAt    time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Lead) TableName() string { return "leads" }
