package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/salespipe/internal/auth/domain"
	"github.com/smallbiznis/salespipe/internal/auth/password"
)

const (
	sessionTokenBytes = 32
	resetTokenBytes   = 24

	sessionTTL  = 7 * 24 * time.Hour
	rememberTTL = 30 * 24 * time.Hour
	resetTTL    = 60 * time.Minute
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Sessions  domain.SessionRepository
	ResetRepo domain.ResetTokenRepository
	Pipelines domain.PipelineSeeder
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	sessions  domain.SessionRepository
	resetRepo domain.ResetTokenRepository
	pipelines domain.PipelineSeeder
}

func NewService(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("auth.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		sessions:  p.Sessions,
		resetRepo: p.ResetRepo,
		pipelines: p.Pipelines,
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest, meta domain.SessionMeta) (*domain.AuthResult, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	if _, err := s.repo.FindUserByEmail(ctx, s.db, email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           s.genID.Generate(),
		ExternalID:   uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.CreateUser(ctx, tx, user); err != nil {
			return err
		}
		return s.pipelines.SeedDefault(ctx, tx, user.ID)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("user registered", zap.String("user_id", user.ID.String()))

	return s.issueSession(ctx, s.db, user, meta)
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest, meta domain.SessionMeta) (*domain.AuthResult, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindUserByEmail(ctx, s.db, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !password.Verify(req.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateUserFields(ctx, s.db, user.ID, map[string]any{
		"last_login_at": &now,
		"updated_at":    now,
	}); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now

	return s.issueSession(ctx, s.db, user, meta)
}

func (s *Service) Logout(ctx context.Context, rawToken string) error {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return nil
	}
	return s.sessions.DeleteSessionByTokenHash(ctx, s.db, hashToken(token))
}

// Authenticate resolves a raw session token to its user. Expired and revoked
// rows are deleted on sight so the table does not accumulate dead sessions.
func (s *Service) Authenticate(ctx context.Context, rawToken string) (*domain.User, *domain.Session, error) {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return nil, nil, domain.ErrInvalidSession
	}

	session, err := s.sessions.GetSessionByTokenHash(ctx, s.db, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, nil, domain.ErrInvalidSession
		}
		return nil, nil, err
	}

	now := time.Now().UTC()
	if session.RevokedAt != nil {
		if err := s.sessions.DeleteSession(ctx, s.db, session.ID); err != nil {
			return nil, nil, err
		}
		return nil, nil, domain.ErrSessionRevoked
	}
	if now.After(session.ExpiresAt) {
		if err := s.sessions.DeleteSession(ctx, s.db, session.ID); err != nil {
			return nil, nil, err
		}
		return nil, nil, domain.ErrSessionExpired
	}

	user, err := s.repo.FindUserByID(ctx, s.db, session.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil, domain.ErrInvalidSession
		}
		return nil, nil, err
	}

	if err := s.sessions.UpdateLastSeen(ctx, s.db, session.ID, now); err != nil {
		return nil, nil, err
	}

	return user, session, nil
}

func (s *Service) GetUser(ctx context.Context, userID snowflake.ID) (*domain.User, error) {
	return s.repo.FindUserByID(ctx, s.db, userID)
}

func (s *Service) UpdateProfile(ctx context.Context, userID snowflake.ID, req domain.UpdateProfileRequest) (*domain.User, error) {
	fields := map[string]any{}
	if req.Name != nil {
		fields["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		fields["phone"] = req.Phone
	}
	if req.AvatarURL != nil {
		fields["avatar_url"] = req.AvatarURL
	}
	if req.Timezone != nil {
		fields["timezone"] = req.Timezone
	}

	if len(fields) > 0 {
		fields["updated_at"] = time.Now().UTC()
		if err := s.repo.UpdateUserFields(ctx, s.db, userID, fields); err != nil {
			return nil, err
		}
	}

	return s.repo.FindUserByID(ctx, s.db, userID)
}

// ChangePassword verifies the current password, rotates the hash, revokes
// every open session and hands back a fresh one so the caller stays signed in.
func (s *Service) ChangePassword(ctx context.Context, userID snowflake.ID, req domain.ChangePasswordRequest, meta domain.SessionMeta) (*domain.AuthResult, error) {
	user, err := s.repo.FindUserByID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	if !password.Verify(req.CurrentPassword, user.PasswordHash) {
		return nil, domain.ErrPasswordMismatch
	}

	hashed, err := password.Hash(req.NewPassword)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UpdateUserFields(ctx, tx, userID, map[string]any{
			"password_hash": hashed,
			"updated_at":    now,
		}); err != nil {
			return err
		}
		return s.sessions.RevokeAllSessions(ctx, tx, userID, now)
	})
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hashed

	return s.issueSession(ctx, s.db, user, meta)
}

// RequestPasswordReset issues a single-use token for a known email. Unknown
// emails return a nil issue and no error so handlers cannot leak whether an
// account exists.
func (s *Service) RequestPasswordReset(ctx context.Context, req domain.ResetRequest) (*domain.ResetIssue, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, nil
	}

	user, err := s.repo.FindUserByEmail(ctx, s.db, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}

	rawToken, err := newToken(resetTokenBytes)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	token := &domain.PasswordResetToken{
		ID:        s.genID.Generate(),
		UserID:    user.ID,
		TokenHash: hashToken(rawToken),
		ExpiresAt: now.Add(resetTTL),
		CreatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.resetRepo.DeleteUnusedTokens(ctx, tx, user.ID); err != nil {
			return err
		}
		return s.resetRepo.CreateToken(ctx, tx, token)
	})
	if err != nil {
		return nil, err
	}

	return &domain.ResetIssue{
		UserID:    user.ID,
		RawToken:  rawToken,
		ExpiresAt: token.ExpiresAt,
	}, nil
}

// ResetPassword consumes a reset token. The hash rotation, token burn and
// session revocation commit together; only then is a fresh session issued.
func (s *Service) ResetPassword(ctx context.Context, req domain.ResetConsumeRequest, meta domain.SessionMeta) (*domain.AuthResult, error) {
	raw := strings.TrimSpace(req.Token)
	if raw == "" {
		return nil, domain.ErrResetTokenNotFound
	}

	token, err := s.resetRepo.GetTokenByHash(ctx, s.db, hashToken(raw))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if token.UsedAt != nil {
		return nil, domain.ErrResetTokenUsed
	}
	if now.After(token.ExpiresAt) {
		return nil, domain.ErrResetTokenExpired
	}

	user, err := s.repo.FindUserByID(ctx, s.db, token.UserID)
	if err != nil {
		return nil, err
	}

	hashed, err := password.Hash(req.NewPassword)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UpdateUserFields(ctx, tx, user.ID, map[string]any{
			"password_hash": hashed,
			"updated_at":    now,
		}); err != nil {
			return err
		}
		if err := s.resetRepo.MarkTokenUsed(ctx, tx, token.ID, now); err != nil {
			return err
		}
		return s.sessions.RevokeAllSessions(ctx, tx, user.ID, now)
	})
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hashed

	return s.issueSession(ctx, s.db, user, meta)
}

func (s *Service) issueSession(ctx context.Context, db *gorm.DB, user *domain.User, meta domain.SessionMeta) (*domain.AuthResult, error) {
	rawToken, err := newToken(sessionTokenBytes)
	if err != nil {
		return nil, err
	}

	ttl := sessionTTL
	if meta.Remember {
		ttl = rememberTTL
	}

	now := time.Now().UTC()
	session := &domain.Session{
		ID:         s.genID.Generate(),
		UserID:     user.ID,
		TokenHash:  hashToken(rawToken),
		UserAgent:  strings.TrimSpace(meta.UserAgent),
		IPAddress:  strings.TrimSpace(meta.IPAddress),
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
		LastSeenAt: now,
	}
	if err := s.sessions.CreateSession(ctx, db, session); err != nil {
		return nil, err
	}

	return &domain.AuthResult{
		User:      user,
		RawToken:  rawToken,
		ExpiresAt: session.ExpiresAt,
		SessionID: session.ID,
	}, nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}

func newToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
