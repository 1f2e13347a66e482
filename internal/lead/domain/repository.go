package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ListFilter narrows a lead listing. Zero values mean "no filter".
type ListFilter struct {
	PipelineID *snowflake.ID
	Status     string
	Priority   string
	Search     string
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, lead *Lead) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Lead, error)
	List(ctx context.Context, db *gorm.DB, userID snowflake.ID, filter ListFilter) ([]Lead, error)
	UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	// DetachStage and DeleteByPipeline back the pipeline service's stage and
	// pipeline deletion transactions.
	DetachStage(ctx context.Context, db *gorm.DB, stageID snowflake.ID) error
	DeleteByPipeline(ctx context.Context, db *gorm.DB, pipelineID snowflake.ID) error
}
