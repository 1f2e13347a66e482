package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, activity *LeadActivity) error
	ListByLead(ctx context.Context, db *gorm.DB, leadID snowflake.ID) ([]Entry, error)
}

// Service appends audit rows. Record methods take the database handle so the
// write can join the caller's transaction.
type Service interface {
	RecordCreate(ctx context.Context, db *gorm.DB, actorID, leadID snowflake.ID, payload CreatePayload) error
	RecordUpdate(ctx context.Context, db *gorm.DB, actorID, leadID snowflake.ID, payload UpdatePayload) error
	RecordMove(ctx context.Context, db *gorm.DB, actorID, leadID snowflake.ID, payload MovePayload) error
	RecordDelete(ctx context.Context, db *gorm.DB, actorID, leadID snowflake.ID, payload DeletePayload) error
	ListByLead(ctx context.Context, leadID snowflake.ID) ([]Entry, error)
}
