package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// PipelineSeeder provisions the default pipeline for a freshly registered
// account. It runs inside the registration transaction.
type PipelineSeeder interface {
	SeedDefault(ctx context.Context, tx *gorm.DB, userID snowflake.ID) error
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=120"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Remember bool   `json:"remember"`
}

type UpdateProfileRequest struct {
	Name      *string `json:"name" binding:"omitempty,min=1,max=120"`
	Phone     *string `json:"phone" binding:"omitempty,max=32"`
	AvatarURL *string `json:"avatar_url" binding:"omitempty,url"`
	Timezone  *string `json:"timezone" binding:"omitempty,max=64"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=128"`
}

type ResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetConsumeRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=128"`
}

// AuthResult carries the freshly issued session alongside the user. RawToken
// is only ever returned here; the database stores its hash.
type AuthResult struct {
	User      *User
	RawToken  string
	ExpiresAt time.Time
	SessionID snowflake.ID
}

// ResetIssue is returned when a password reset is requested for a known
// account. Callers receive a nil issue for unknown emails and must respond
// identically in both cases.
type ResetIssue struct {
	UserID    snowflake.ID
	RawToken  string
	ExpiresAt time.Time
}

// SessionMeta is the client fingerprint recorded on each session.
type SessionMeta struct {
	UserAgent string
	IPAddress string
	Remember  bool
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest, meta SessionMeta) (*AuthResult, error)
	Login(ctx context.Context, req LoginRequest, meta SessionMeta) (*AuthResult, error)
	Logout(ctx context.Context, rawToken string) error
	Authenticate(ctx context.Context, rawToken string) (*User, *Session, error)
	GetUser(ctx context.Context, userID snowflake.ID) (*User, error)
	UpdateProfile(ctx context.Context, userID snowflake.ID, req UpdateProfileRequest) (*User, error)
	ChangePassword(ctx context.Context, userID snowflake.ID, req ChangePasswordRequest, meta SessionMeta) (*AuthResult, error)
	RequestPasswordReset(ctx context.Context, req ResetRequest) (*ResetIssue, error)
	ResetPassword(ctx context.Context, req ResetConsumeRequest, meta SessionMeta) (*AuthResult, error)
}
