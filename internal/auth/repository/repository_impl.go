package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/smallbiznis/salespipe/internal/auth/domain"
)

type repository struct{}

func NewRepository() domain.Repository {
	return &repository{}
}

func (r *repository) CreateUser(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Create(user).Error
}

func (r *repository) FindUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindUserByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) UpdateUserFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	return db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Updates(fields).Error
}

type sessionRepository struct{}

func NewSessionRepository() domain.SessionRepository {
	return &sessionRepository{}
}

func (r *sessionRepository) CreateSession(ctx context.Context, db *gorm.DB, session *domain.Session) error {
	return db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepository) GetSessionByTokenHash(ctx context.Context, db *gorm.DB, tokenHash string) (*domain.Session, error) {
	var session domain.Session
	err := db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) DeleteSession(ctx context.Context, db *gorm.DB, sessionID snowflake.ID) error {
	return db.WithContext(ctx).
		Where("id = ?", sessionID).
		Delete(&domain.Session{}).Error
}

func (r *sessionRepository) DeleteSessionByTokenHash(ctx context.Context, db *gorm.DB, tokenHash string) error {
	return db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		Delete(&domain.Session{}).Error
}

func (r *sessionRepository) RevokeAllSessions(ctx context.Context, db *gorm.DB, userID snowflake.ID, revokedAt time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", revokedAt).Error
}

func (r *sessionRepository) UpdateLastSeen(ctx context.Context, db *gorm.DB, sessionID snowflake.ID, lastSeen time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("id = ?", sessionID).
		Update("last_seen_at", lastSeen).Error
}

type resetTokenRepository struct{}

func NewResetTokenRepository() domain.ResetTokenRepository {
	return &resetTokenRepository{}
}

func (r *resetTokenRepository) CreateToken(ctx context.Context, db *gorm.DB, token *domain.PasswordResetToken) error {
	return db.WithContext(ctx).Create(token).Error
}

func (r *resetTokenRepository) GetTokenByHash(ctx context.Context, db *gorm.DB, tokenHash string) (*domain.PasswordResetToken, error) {
	var token domain.PasswordResetToken
	err := db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrResetTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

func (r *resetTokenRepository) DeleteUnusedTokens(ctx context.Context, db *gorm.DB, userID snowflake.ID) error {
	return db.WithContext(ctx).
		Where("user_id = ? AND used_at IS NULL", userID).
		Delete(&domain.PasswordResetToken{}).Error
}

func (r *resetTokenRepository) MarkTokenUsed(ctx context.Context, db *gorm.DB, tokenID snowflake.ID, usedAt time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.PasswordResetToken{}).
		Where("id = ?", tokenID).
		Update("used_at", usedAt).Error
}
