package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

type CreateRequest struct {
	Title        string        `json:"title" binding:"required,min=1,max=200"`
	PipelineID   snowflake.ID  `json:"pipeline_id" binding:"required"`
	StageID      *snowflake.ID `json:"stage_id"`
	Company      *string       `json:"company" binding:"omitempty,max=200"`
	Value        *float64      `json:"value"`
	Status       *string       `json:"status" binding:"omitempty,max=64"`
	Priority     *string       `json:"priority"`
	Tags         []string      `json:"tags"`
	ContactEmail *string       `json:"contact_email" binding:"omitempty,email"`
	ContactPhone *string       `json:"contact_phone" binding:"omitempty,max=32"`
	Notes        *string       `json:"notes"`
	NextActionAt *time.Time    `json:"next_action_at"`
}

type UpdateRequest struct {
	Title        *string       `json:"title" binding:"omitempty,min=1,max=200"`
	PipelineID   *snowflake.ID `json:"pipeline_id"`
	StageID      *snowflake.ID `json:"stage_id"`
	Company      *string       `json:"company" binding:"omitempty,max=200"`
	Value        *float64      `json:"value"`
	Status       *string       `json:"status" binding:"omitempty,max=64"`
	Priority     *string       `json:"priority"`
	Tags         []string      `json:"tags"`
	ContactEmail *string       `json:"contact_email" binding:"omitempty,email"`
	ContactPhone *string       `json:"contact_phone" binding:"omitempty,max=32"`
	Notes        *string       `json:"notes"`
	NextActionAt *time.Time    `json:"next_action_at"`
	Archived     *bool         `json:"archived"`
}

// MoveRequest relocates a lead. A null stage parks the lead in the target
// pipeline without a stage.
type MoveRequest struct {
	PipelineID snowflake.ID  `json:"pipeline_id" binding:"required"`
	StageID    *snowflake.ID `json:"stage_id"`
}

type Service interface {
	List(ctx context.Context, userID snowflake.ID, filter ListFilter) ([]Lead, error)
	Get(ctx context.Context, userID, leadID snowflake.ID) (*Lead, error)
	Create(ctx context.Context, userID snowflake.ID, req CreateRequest) (*Lead, error)
	Update(ctx context.Context, userID, leadID snowflake.ID, req UpdateRequest) (*Lead, error)
	Move(ctx context.Context, userID, leadID snowflake.ID, req MoveRequest) (*Lead, error)
	Delete(ctx context.Context, userID, leadID snowflake.ID) error
	AssertLeadOwned(ctx context.Context, userID, leadID snowflake.ID) (*Lead, error)
}
