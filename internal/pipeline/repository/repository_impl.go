package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/smallbiznis/salespipe/internal/pipeline/domain"
)

type repository struct{}

func NewRepository() domain.Repository {
	return &repository{}
}

func (r *repository) CreatePipeline(ctx context.Context, db *gorm.DB, pipeline *domain.Pipeline) error {
	return db.WithContext(ctx).Create(pipeline).Error
}

func (r *repository) FindPipelineByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Pipeline, error) {
	var pipeline domain.Pipeline
	err := db.WithContext(ctx).Where("id = ?", id).First(&pipeline).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPipelineNotFound
		}
		return nil, err
	}
	return &pipeline, nil
}

func (r *repository) ListPipelines(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]domain.Pipeline, error) {
	var pipelines []domain.Pipeline
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC, created_at ASC").
		Find(&pipelines).Error
	return pipelines, err
}

func (r *repository) CountPipelines(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Pipeline{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *repository) UpdatePipelineFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	return db.WithContext(ctx).
		Model(&domain.Pipeline{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repository) ClearDefault(ctx context.Context, db *gorm.DB, userID snowflake.ID) error {
	return db.WithContext(ctx).
		Model(&domain.Pipeline{}).
		Where("user_id = ? AND is_default = ?", userID, true).
		Update("is_default", false).Error
}

func (r *repository) DeletePipeline(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.Pipeline{}).Error
}

func (r *repository) CreateStage(ctx context.Context, db *gorm.DB, stage *domain.Stage) error {
	return db.WithContext(ctx).Create(stage).Error
}

func (r *repository) FindStageByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Stage, error) {
	var stage domain.Stage
	err := db.WithContext(ctx).Where("id = ?", id).First(&stage).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrStageNotFound
		}
		return nil, err
	}
	return &stage, nil
}

func (r *repository) ListStages(ctx context.Context, db *gorm.DB, pipelineID snowflake.ID) ([]domain.Stage, error) {
	var stages []domain.Stage
	err := db.WithContext(ctx).
		Where("pipeline_id = ?", pipelineID).
		Order("position ASC, id ASC").
		Find(&stages).Error
	return stages, err
}

func (r *repository) CountStages(ctx context.Context, db *gorm.DB, pipelineID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Stage{}).
		Where("pipeline_id = ?", pipelineID).
		Count(&count).Error
	return count, err
}

func (r *repository) MaxStagePosition(ctx context.Context, db *gorm.DB, pipelineID snowflake.ID) (int, bool, error) {
	var max *int
	err := db.WithContext(ctx).
		Model(&domain.Stage{}).
		Where("pipeline_id = ?", pipelineID).
		Select("MAX(position)").
		Scan(&max).Error
	if err != nil {
		return 0, false, err
	}
	if max == nil {
		return 0, false, nil
	}
	return *max, true, nil
}

func (r *repository) UpdateStageFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	return db.WithContext(ctx).
		Model(&domain.Stage{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repository) DeleteStage(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.Stage{}).Error
}

func (r *repository) DeleteStagesByPipeline(ctx context.Context, db *gorm.DB, pipelineID snowflake.ID) error {
	return db.WithContext(ctx).
		Where("pipeline_id = ?", pipelineID).
		Delete(&domain.Stage{}).Error
}
