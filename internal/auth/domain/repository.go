package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository persists users. Methods take the database handle explicitly so
// callers can run them inside an enclosing transaction.
type Repository interface {
	CreateUser(ctx context.Context, db *gorm.DB, user *User) error
	FindUserByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error)
	FindUserByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	UpdateUserFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
}

type SessionRepository interface {
	CreateSession(ctx context.Context, db *gorm.DB, session *Session) error
	GetSessionByTokenHash(ctx context.Context, db *gorm.DB, tokenHash string) (*Session, error)
	DeleteSession(ctx context.Context, db *gorm.DB, sessionID snowflake.ID) error
	DeleteSessionByTokenHash(ctx context.Context, db *gorm.DB, tokenHash string) error
	RevokeAllSessions(ctx context.Context, db *gorm.DB, userID snowflake.ID, revokedAt time.Time) error
	UpdateLastSeen(ctx context.Context, db *gorm.DB, sessionID snowflake.ID, lastSeen time.Time) error
}

type ResetTokenRepository interface {
	CreateToken(ctx context.Context, db *gorm.DB, token *PasswordResetToken) error
	GetTokenByHash(ctx context.Context, db *gorm.DB, tokenHash string) (*PasswordResetToken, error)
	DeleteUnusedTokens(ctx context.Context, db *gorm.DB, userID snowflake.ID) error
	MarkTokenUsed(ctx context.Context, db *gorm.DB, tokenID snowflake.ID, usedAt time.Time) error
}
