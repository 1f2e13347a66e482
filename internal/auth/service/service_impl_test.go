package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"

	activitydomain "github.com/smallbiznis/salespipe/internal/activity/domain"
	authdomain "github.com/smallbiznis/salespipe/internal/auth/domain"
	authrepository "github.com/smallbiznis/salespipe/internal/auth/repository"
	leaddomain "github.com/smallbiznis/salespipe/internal/lead/domain"
	leadrepository "github.com/smallbiznis/salespipe/internal/lead/repository"
	pipelinedomain "github.com/smallbiznis/salespipe/internal/pipeline/domain"
	pipelinerepository "github.com/smallbiznis/salespipe/internal/pipeline/repository"
	pipelineservice "github.com/smallbiznis/salespipe/internal/pipeline/service"
	"github.com/smallbiznis/salespipe/pkg/db"
)

func newTestService(t *testing.T) (authdomain.Service, *gorm.DB) {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(
		&authdomain.User{}, &authdomain.Session{}, &authdomain.PasswordResetToken{},
		&pipelinedomain.Pipeline{}, &pipelinedomain.Stage{},
		&leaddomain.Lead{}, &activitydomain.LeadActivity{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	pipelineSvc := pipelineservice.NewService(pipelineservice.Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  pipelinerepository.NewRepository(),
		Leads: leadrepository.NewLeadStore(),
	})

	svc := NewService(Params{
		DB:        dbConn,
		Log:       zap.NewNop(),
		GenID:     node,
		Repo:      authrepository.NewRepository(),
		Sessions:  authrepository.NewSessionRepository(),
		ResetRepo: authrepository.NewResetTokenRepository(),
		Pipelines: pipelineSvc,
	})
	return svc, dbConn
}

func register(t *testing.T, svc authdomain.Service, email string) *authdomain.AuthResult {
	t.Helper()
	result, err := svc.Register(context.Background(), authdomain.RegisterRequest{
		Name:     "Alice",
		Email:    email,
		Password: "Str0ngPass",
	}, authdomain.SessionMeta{})
	if err != nil {
		t.Fatalf("failed to register: %v", err)
	}
	return result
}

func TestRegisterSeedsDefaultPipeline(t *testing.T) {
	svc, dbConn := newTestService(t)

	result := register(t, svc, "alice@example.com")
	if result.RawToken == "" {
		t.Fatal("expected a session token")
	}

	var pipelines []pipelinedomain.Pipeline
	if err := dbConn.Where("user_id = ?", result.User.ID).Find(&pipelines).Error; err != nil {
		t.Fatalf("failed to load pipelines: %v", err)
	}
	if len(pipelines) != 1 {
		t.Fatalf("expected 1 pipeline, got %d", len(pipelines))
	}
	if !pipelines[0].IsDefault {
		t.Fatal("expected the seeded pipeline to be default")
	}

	var stages []pipelinedomain.Stage
	if err := dbConn.Where("pipeline_id = ?", pipelines[0].ID).Order("position ASC").Find(&stages).Error; err != nil {
		t.Fatalf("failed to load stages: %v", err)
	}
	if len(stages) != 4 {
		t.Fatalf("expected 4 seed stages, got %d", len(stages))
	}
	wantNames := []string{"New", "Contacted", "Qualified", "Closed"}
	for i, stage := range stages {
		if stage.Name != wantNames[i] {
			t.Fatalf("stage %d: expected %q, got %q", i, wantNames[i], stage.Name)
		}
		if stage.Position != i {
			t.Fatalf("stage %q: expected position %d, got %d", stage.Name, i, stage.Position)
		}
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)

	register(t, svc, "alice@example.com")
	_, err := svc.Register(context.Background(), authdomain.RegisterRequest{
		Name:     "Mallory",
		Email:    "alice@example.com",
		Password: "Str0ngPass",
	}, authdomain.SessionMeta{})
	if !errors.Is(err, authdomain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc, "alice@example.com")

	_, err := svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong-password",
	}, authdomain.SessionMeta{})
	if !errors.Is(err, authdomain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginRememberExtendsSession(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc, "alice@example.com")

	short, err := svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "alice@example.com",
		Password: "Str0ngPass",
	}, authdomain.SessionMeta{})
	if err != nil {
		t.Fatalf("failed to login: %v", err)
	}
	long, err := svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "alice@example.com",
		Password: "Str0ngPass",
		Remember: true,
	}, authdomain.SessionMeta{Remember: true})
	if err != nil {
		t.Fatalf("failed to login with remember: %v", err)
	}

	if !long.ExpiresAt.After(short.ExpiresAt.Add(20 * 24 * time.Hour)) {
		t.Fatalf("expected remember session to outlive the short one by weeks, short=%v long=%v", short.ExpiresAt, long.ExpiresAt)
	}
}

func TestLoginRecordsLastLogin(t *testing.T) {
	svc, _ := newTestService(t)
	result := register(t, svc, "alice@example.com")
	if result.User.LastLoginAt != nil {
		t.Fatal("expected no last login right after registration")
	}

	logged, err := svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "alice@example.com",
		Password: "Str0ngPass",
	}, authdomain.SessionMeta{})
	if err != nil {
		t.Fatalf("failed to login: %v", err)
	}
	if logged.User.LastLoginAt == nil {
		t.Fatal("expected last login to be set")
	}
}

func TestAuthenticateDeletesExpiredSession(t *testing.T) {
	svc, dbConn := newTestService(t)
	result := register(t, svc, "alice@example.com")

	past := time.Now().UTC().Add(-time.Hour)
	if err := dbConn.Model(&authdomain.Session{}).
		Where("id = ?", result.SessionID).
		Update("expires_at", past).Error; err != nil {
		t.Fatalf("failed to backdate session: %v", err)
	}

	_, _, err := svc.Authenticate(context.Background(), result.RawToken)
	if !errors.Is(err, authdomain.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}

	var count int64
	dbConn.Model(&authdomain.Session{}).Where("id = ?", result.SessionID).Count(&count)
	if count != 0 {
		t.Fatal("expected the expired session row to be deleted")
	}

	// The stale token now resolves as unknown, not expired.
	_, _, err = svc.Authenticate(context.Background(), result.RawToken)
	if !errors.Is(err, authdomain.ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession on second resolve, got %v", err)
	}
}

func TestAuthenticateDeletesRevokedSession(t *testing.T) {
	svc, dbConn := newTestService(t)
	result := register(t, svc, "alice@example.com")

	now := time.Now().UTC()
	if err := dbConn.Model(&authdomain.Session{}).
		Where("id = ?", result.SessionID).
		Update("revoked_at", now).Error; err != nil {
		t.Fatalf("failed to revoke session: %v", err)
	}

	_, _, err := svc.Authenticate(context.Background(), result.RawToken)
	if !errors.Is(err, authdomain.ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}

	var count int64
	dbConn.Model(&authdomain.Session{}).Where("id = ?", result.SessionID).Count(&count)
	if count != 0 {
		t.Fatal("expected the revoked session row to be deleted")
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	result := register(t, svc, "alice@example.com")

	if err := svc.Logout(context.Background(), result.RawToken); err != nil {
		t.Fatalf("failed to logout: %v", err)
	}
	if err := svc.Logout(context.Background(), result.RawToken); err != nil {
		t.Fatalf("expected second logout to succeed, got %v", err)
	}

	_, _, err := svc.Authenticate(context.Background(), result.RawToken)
	if !errors.Is(err, authdomain.ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession after logout, got %v", err)
	}
}

func TestRequestPasswordResetUnknownEmail(t *testing.T) {
	svc, _ := newTestService(t)

	issue, err := svc.RequestPasswordReset(context.Background(), authdomain.ResetRequest{
		Email: "nobody@example.com",
	})
	if err != nil {
		t.Fatalf("expected no error for unknown email, got %v", err)
	}
	if issue != nil {
		t.Fatal("expected no issue for unknown email")
	}
}

func TestPasswordResetFlow(t *testing.T) {
	svc, _ := newTestService(t)
	session := register(t, svc, "alice@example.com")

	first, err := svc.RequestPasswordReset(context.Background(), authdomain.ResetRequest{Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("failed to request reset: %v", err)
	}
	second, err := svc.RequestPasswordReset(context.Background(), authdomain.ResetRequest{Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("failed to request second reset: %v", err)
	}

	// A new request invalidates the previous token.
	_, err = svc.ResetPassword(context.Background(), authdomain.ResetConsumeRequest{
		Token:       first.RawToken,
		NewPassword: "N3wPassword",
	}, authdomain.SessionMeta{})
	if !errors.Is(err, authdomain.ErrResetTokenNotFound) {
		t.Fatalf("expected ErrResetTokenNotFound for the replaced token, got %v", err)
	}

	fresh, err := svc.ResetPassword(context.Background(), authdomain.ResetConsumeRequest{
		Token:       second.RawToken,
		NewPassword: "N3wPassword",
	}, authdomain.SessionMeta{})
	if err != nil {
		t.Fatalf("failed to reset password: %v", err)
	}
	if fresh.RawToken == "" {
		t.Fatal("expected a fresh session after reset")
	}

	// Pre-reset sessions are revoked and swept on next use.
	_, _, err = svc.Authenticate(context.Background(), session.RawToken)
	if !errors.Is(err, authdomain.ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked for the old session, got %v", err)
	}

	// The token is single use.
	_, err = svc.ResetPassword(context.Background(), authdomain.ResetConsumeRequest{
		Token:       second.RawToken,
		NewPassword: "An0therPass",
	}, authdomain.SessionMeta{})
	if !errors.Is(err, authdomain.ErrResetTokenUsed) {
		t.Fatalf("expected ErrResetTokenUsed, got %v", err)
	}

	if _, err := svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "alice@example.com",
		Password: "N3wPassword",
	}, authdomain.SessionMeta{}); err != nil {
		t.Fatalf("expected login with the new password to work, got %v", err)
	}
	_, err = svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "alice@example.com",
		Password: "Str0ngPass",
	}, authdomain.SessionMeta{})
	if !errors.Is(err, authdomain.ErrInvalidCredentials) {
		t.Fatalf("expected the old password to be rejected, got %v", err)
	}
}

func TestPasswordResetExpiredToken(t *testing.T) {
	svc, dbConn := newTestService(t)
	register(t, svc, "alice@example.com")

	issue, err := svc.RequestPasswordReset(context.Background(), authdomain.ResetRequest{Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("failed to request reset: %v", err)
	}

	past := time.Now().UTC().Add(-time.Minute)
	if err := dbConn.Model(&authdomain.PasswordResetToken{}).
		Where("user_id = ?", issue.UserID).
		Update("expires_at", past).Error; err != nil {
		t.Fatalf("failed to backdate token: %v", err)
	}

	_, err = svc.ResetPassword(context.Background(), authdomain.ResetConsumeRequest{
		Token:       issue.RawToken,
		NewPassword: "N3wPassword",
	}, authdomain.SessionMeta{})
	if !errors.Is(err, authdomain.ErrResetTokenExpired) {
		t.Fatalf("expected ErrResetTokenExpired, got %v", err)
	}
}

func TestChangePasswordRevokesOtherSessions(t *testing.T) {
	svc, _ := newTestService(t)
	register(t, svc, "alice@example.com")

	other, err := svc.Login(context.Background(), authdomain.LoginRequest{
		Email:    "alice@example.com",
		Password: "Str0ngPass",
	}, authdomain.SessionMeta{})
	if err != nil {
		t.Fatalf("failed to login: %v", err)
	}

	fresh, err := svc.ChangePassword(context.Background(), other.User.ID, authdomain.ChangePasswordRequest{
		CurrentPassword: "Str0ngPass",
		NewPassword:     "N3wPassword",
	}, authdomain.SessionMeta{})
	if err != nil {
		t.Fatalf("failed to change password: %v", err)
	}

	_, _, err = svc.Authenticate(context.Background(), other.RawToken)
	if !errors.Is(err, authdomain.ErrSessionRevoked) {
		t.Fatalf("expected the old session to be revoked, got %v", err)
	}
	if _, _, err := svc.Authenticate(context.Background(), fresh.RawToken); err != nil {
		t.Fatalf("expected the fresh session to resolve, got %v", err)
	}
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	svc, _ := newTestService(t)
	result := register(t, svc, "alice@example.com")

	_, err := svc.ChangePassword(context.Background(), result.User.ID, authdomain.ChangePasswordRequest{
		CurrentPassword: "wrong-password",
		NewPassword:     "N3wPassword",
	}, authdomain.SessionMeta{})
	if !errors.Is(err, authdomain.ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
}
