package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type CreateRequest struct {
	Name      string `json:"name" binding:"required,min=1,max=120"`
	IsDefault bool   `json:"is_default"`
}

type UpdateRequest struct {
	Name      *string `json:"name" binding:"omitempty,min=1,max=120"`
	IsDefault *bool   `json:"is_default"`
}

type StageCreateRequest struct {
	Name  string `json:"name" binding:"required,min=1,max=120"`
	Color string `json:"color" binding:"omitempty,max=32"`
}

type StageUpdateRequest struct {
	Name  *string `json:"name" binding:"omitempty,min=1,max=120"`
	Color *string `json:"color" binding:"omitempty,max=32"`
}

type ReorderRequest struct {
	StageIDs []snowflake.ID `json:"stage_ids" binding:"required,min=1"`
}

type Service interface {
	List(ctx context.Context, userID snowflake.ID) ([]Pipeline, error)
	Get(ctx context.Context, userID, pipelineID snowflake.ID) (*Pipeline, error)
	Create(ctx context.Context, userID snowflake.ID, req CreateRequest) (*Pipeline, error)
	Update(ctx context.Context, userID, pipelineID snowflake.ID, req UpdateRequest) (*Pipeline, error)
	Delete(ctx context.Context, userID, pipelineID snowflake.ID) error

	CreateStage(ctx context.Context, userID, pipelineID snowflake.ID, req StageCreateRequest) (*Stage, error)
	UpdateStage(ctx context.Context, userID, stageID snowflake.ID, req StageUpdateRequest) (*Stage, error)
	DeleteStage(ctx context.Context, userID, stageID snowflake.ID) error
	ReorderStages(ctx context.Context, userID, pipelineID snowflake.ID, stageIDs []snowflake.ID) ([]Stage, error)

	// Ownership checks used by the lead service before touching rows that
	// reference a pipeline or stage.
	AssertPipelineOwned(ctx context.Context, db *gorm.DB, userID, pipelineID snowflake.ID) (*Pipeline, error)
	AssertStageOwned(ctx context.Context, db *gorm.DB, userID, stageID snowflake.ID) (*Stage, error)

	// SeedDefault creates the default pipeline with its seed stages for a new
	// account inside the registration transaction.
	SeedDefault(ctx context.Context, tx *gorm.DB, userID snowflake.ID) error
}
