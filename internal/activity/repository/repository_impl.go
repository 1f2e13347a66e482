package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/smallbiznis/salespipe/internal/activity/domain"
)

type repository struct{}

func NewRepository() domain.Repository {
	return &repository{}
}

func (r *repository) Create(ctx context.Context, db *gorm.DB, activity *domain.LeadActivity) error {
	return db.WithContext(ctx).Create(activity).Error
}

func (r *repository) ListByLead(ctx context.Context, db *gorm.DB, leadID snowflake.ID) ([]domain.Entry, error) {
	var entries []domain.Entry
	err := db.WithContext(ctx).
		Table("lead_activities").
		Select("lead_activities.id, lead_activities.lead_id, lead_activities.type, lead_activities.payload, lead_activities.created_at, lead_activities.actor_user_id, users.name AS actor_name, users.email AS actor_email").
		Joins("JOIN users ON users.id = lead_activities.actor_user_id").
		Where("lead_activities.lead_id = ?", leadID).
		Order("lead_activities.created_at DESC, lead_activities.id DESC").
		Scan(&entries).Error
	return entries, err
}
