// Package domain contains core types for the lead activity log.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Activity types. The payload shape is fixed per type.
const (
	TypeCreate = "CREATE"
	TypeUpdate = "UPDATE"
	TypeMove   = "MOVE"
	TypeDelete = "DELETE"
)

// LeadActivity is one append-only audit row. It deliberately carries no
// foreign key to leads so the trail survives lead deletion.
type LeadActivity struct {
	ID          snowflake.ID   `gorm:"primaryKey" json:"id"`
	LeadID      snowflake.ID   `gorm:"column:lead_id;not null;index" json:"lead_id"`
	ActorUserID snowflake.ID   `gorm:"column:actor_user_id;not null" json:"actor_user_id"`
	Type        string         `gorm:"type:text;not null" json:"type"`
	Payload     datatypes.JSON `gorm:"not null" json:"payload"`
	CreatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (LeadActivity) TableName() string { return "lead_activities" }

// Entry is an activity row joined with its actor for listing.
type Entry struct {
	ID         snowflake.ID   `json:"id"`
	LeadID     snowflake.ID   `json:"lead_id"`
	Type       string         `json:"type"`
	Payload    datatypes.JSON `json:"payload"`
	CreatedAt  time.Time      `json:"created_at"`
	ActorID    snowflake.ID   `gorm:"column:actor_user_id" json:"actor_id"`
	ActorName  string         `gorm:"column:actor_name" json:"actor_name"`
	ActorEmail string         `gorm:"column:actor_email" json:"actor_email"`
}

// Snapshot captures the audited fields of a lead at one point in time.
type Snapshot struct {
	Title      string        `json:"title"`
	PipelineID snowflake.ID  `json:"pipeline_id"`
	StageID    *snowflake.ID `json:"stage_id"`
}

// Ref names a position in the pipeline hierarchy.
type Ref struct {
	PipelineID snowflake.ID  `json:"pipeline_id"`
	StageID    *snowflake.ID `json:"stage_id"`
}

type CreatePayload struct {
	Title      string        `json:"title"`
	PipelineID snowflake.ID  `json:"pipeline_id"`
	StageID    *snowflake.ID `json:"stage_id"`
}

type UpdatePayload struct {
	Before Snapshot `json:"before"`
	After  Snapshot `json:"after"`
}

type MovePayload struct {
	From Ref `json:"from"`
	To   Ref `json:"to"`
}

type DeletePayload struct {
	Title string `json:"title"`
}
