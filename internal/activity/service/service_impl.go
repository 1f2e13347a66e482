package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/smallbiznis/salespipe/internal/activity/domain"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("activity.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) RecordCreate(ctx context.Context, db *gorm.DB, actorID, leadID snowflake.ID, payload domain.CreatePayload) error {
	return s.record(ctx, db, actorID, leadID, domain.TypeCreate, payload)
}

func (s *Service) RecordUpdate(ctx context.Context, db *gorm.DB, actorID, leadID snowflake.ID, payload domain.UpdatePayload) error {
	return s.record(ctx, db, actorID, leadID, domain.TypeUpdate, payload)
}

func (s *Service) RecordMove(ctx context.Context, db *gorm.DB, actorID, leadID snowflake.ID, payload domain.MovePayload) error {
	return s.record(ctx, db, actorID, leadID, domain.TypeMove, payload)
}

func (s *Service) RecordDelete(ctx context.Context, db *gorm.DB, actorID, leadID snowflake.ID, payload domain.DeletePayload) error {
	return s.record(ctx, db, actorID, leadID, domain.TypeDelete, payload)
}

func (s *Service) ListByLead(ctx context.Context, leadID snowflake.ID) ([]domain.Entry, error) {
	return s.repo.ListByLead(ctx, s.db, leadID)
}

func (s *Service) record(ctx context.Context, db *gorm.DB, actorID, leadID snowflake.ID, activityType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return s.repo.Create(ctx, db, &domain.LeadActivity{
		ID:          s.genID.Generate(),
		LeadID:      leadID,
		ActorUserID: actorID,
		Type:        activityType,
		Payload:     datatypes.JSON(raw),
		CreatedAt:   time.Now().UTC(),
	})
}
