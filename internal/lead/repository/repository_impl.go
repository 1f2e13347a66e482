package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/smallbiznis/salespipe/internal/lead/domain"
	pipelinedomain "github.com/smallbiznis/salespipe/internal/pipeline/domain"
)

type repository struct{}

func NewRepository() domain.Repository {
	return &repository{}
}

// NewLeadStore exposes the repository to the pipeline service, which detaches
// and deletes leads inside its own transactions.
func NewLeadStore() pipelinedomain.LeadStore {
	return &repository{}
}

func (r *repository) Create(ctx context.Context, db *gorm.DB, lead *domain.Lead) error {
	return db.WithContext(ctx).Create(lead).Error
}

func (r *repository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Lead, error) {
	var lead domain.Lead
	err := db.WithContext(ctx).Where("id = ?", id).First(&lead).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLeadNotFound
		}
		return nil, err
	}
	return &lead, nil
}

// List returns unarchived leads for one user, board-ordered: stage position
// ascending with detached leads last, then most recently updated first.
func (r *repository) List(ctx context.Context, db *gorm.DB, userID snowflake.ID, filter domain.ListFilter) ([]domain.Lead, error) {
	q := db.WithContext(ctx).
		Model(&domain.Lead{}).
		Select("leads.*").
		Joins("LEFT JOIN stages ON stages.id = leads.stage_id").
		Where("leads.user_id = ? AND leads.archived_at IS NULL", userID)

	if filter.PipelineID != nil {
		q = q.Where("leads.pipeline_id = ?", *filter.PipelineID)
	}
	if filter.Status != "" {
		q = q.Where("leads.status = ?", filter.Status)
	}
	if filter.Priority != "" {
		q = q.Where("leads.priority = ?", filter.Priority)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		q = q.Where(
			"LOWER(leads.title) LIKE ? OR LOWER(COALESCE(leads.company, '')) LIKE ? OR LOWER(COALESCE(leads.contact_email, '')) LIKE ?",
			pattern, pattern, pattern,
		)
	}

	var leads []domain.Lead
	err := q.
		Order("CASE WHEN stages.position IS NULL THEN 1 ELSE 0 END, stages.position ASC, leads.updated_at DESC").
		Find(&leads).Error
	return leads, err
}

func (r *repository) UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	return db.WithContext(ctx).
		Model(&domain.Lead{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *repository) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&domain.Lead{}).Error
}

func (r *repository) DetachStage(ctx context.Context, db *gorm.DB, stageID snowflake.ID) error {
	return db.WithContext(ctx).
		Model(&domain.Lead{}).
		Where("stage_id = ?", stageID).
		Update("stage_id", nil).Error
}

func (r *repository) DeleteByPipeline(ctx context.Context, db *gorm.DB, pipelineID snowflake.ID) error {
	return db.WithContext(ctx).
		Where("pipeline_id = ?", pipelineID).
		Delete(&domain.Lead{}).Error
}
