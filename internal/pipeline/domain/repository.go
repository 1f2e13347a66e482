package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository persists pipelines and stages. Methods take the database handle
// explicitly so services can run them inside an enclosing transaction.
type Repository interface {
	CreatePipeline(ctx context.Context, db *gorm.DB, pipeline *Pipeline) error
	FindPipelineByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Pipeline, error)
	ListPipelines(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]Pipeline, error)
	CountPipelines(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error)
	UpdatePipelineFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	ClearDefault(ctx context.Context, db *gorm.DB, userID snowflake.ID) error
	DeletePipeline(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	CreateStage(ctx context.Context, db *gorm.DB, stage *Stage) error
	FindStageByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Stage, error)
	ListStages(ctx context.Context, db *gorm.DB, pipelineID snowflake.ID) ([]Stage, error)
	CountStages(ctx context.Context, db *gorm.DB, pipelineID snowflake.ID) (int64, error)
	MaxStagePosition(ctx context.Context, db *gorm.DB, pipelineID snowflake.ID) (int, bool, error)
	UpdateStageFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	DeleteStage(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	DeleteStagesByPipeline(ctx context.Context, db *gorm.DB, pipelineID snowflake.ID) error
}

// LeadStore is the slice of the lead repository the pipeline service needs
// when deleting stages and pipelines.
type LeadStore interface {
	DetachStage(ctx context.Context, db *gorm.DB, stageID snowflake.ID) error
	DeleteByPipeline(ctx context.Context, db *gorm.DB, pipelineID snowflake.ID) error
}
