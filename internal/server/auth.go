package server

import (
	"net/http"
	"net/url"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"

	authdomain "github.com/smallbiznis/salespipe/internal/auth/domain"
)

func (s *Server) sessionMeta(c *gin.Context, remember bool) authdomain.SessionMeta {
	return authdomain.SessionMeta{
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
		Remember:  remember,
	}
}

func (s *Server) Register(c *gin.Context) {
	var req authdomain.RegisterRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}
	if err := passwordPolicyError("password", req.Password); err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.authsvc.Register(c.Request.Context(), req, s.sessionMeta(c, false))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, result.RawToken, result.ExpiresAt)
	c.JSON(http.StatusCreated, gin.H{"user": result.User})
}

func (s *Server) Login(c *gin.Context) {
	var req authdomain.LoginRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.authsvc.Login(c.Request.Context(), req, s.sessionMeta(c, req.Remember))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, result.RawToken, result.ExpiresAt)
	c.JSON(http.StatusOK, gin.H{"user": result.User})
}

func (s *Server) Logout(c *gin.Context) {
	if token, ok := s.sessions.ReadToken(c); ok {
		if err := s.authsvc.Logout(c.Request.Context(), token); err != nil {
			AbortWithError(c, err)
			return
		}
	}

	s.sessions.Clear(c)
	c.Status(http.StatusNoContent)
}

// Me reports the current user, or a null user when no valid session exists.
// An invalid cookie is cleared rather than rejected.
func (s *Server) Me(c *gin.Context) {
	token, ok := s.sessions.ReadToken(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}

	user, _, err := s.authsvc.Authenticate(c.Request.Context(), token)
	if err != nil {
		s.sessions.Clear(c)
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (s *Server) UpdateProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req authdomain.UpdateProfileRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	user, err := s.authsvc.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (s *Server) ChangePassword(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req authdomain.ChangePasswordRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}
	if req.CurrentPassword == req.NewPassword {
		AbortWithError(c, newValidationError("new_password", "must_differ", "new password must be different"))
		return
	}
	if err := passwordPolicyError("new_password", req.NewPassword); err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.authsvc.ChangePassword(c.Request.Context(), userID, req, s.sessionMeta(c, false))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, result.RawToken, result.ExpiresAt)
	c.JSON(http.StatusOK, gin.H{"user": result.User})
}

// ForgotPassword always answers ok so the response does not reveal whether
// the account exists. With no mailer wired, non-production environments echo
// the raw token back for a known account; production answers identically
// either way.
func (s *Server) ForgotPassword(c *gin.Context) {
	if !s.forgotLimiter.Allow(c.ClientIP()) {
		AbortWithError(c, ErrTooManyRequests)
		return
	}

	var req authdomain.ResetRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	issue, err := s.authsvc.RequestPasswordReset(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if issue == nil || s.cfg.IsProduction() {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"token":     issue.RawToken,
		"reset_url": s.cfg.AppURL + "/reset-password?token=" + url.QueryEscape(issue.RawToken),
	})
}

func (s *Server) ResetPassword(c *gin.Context) {
	var req authdomain.ResetConsumeRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}
	if err := passwordPolicyError("new_password", req.NewPassword); err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.authsvc.ResetPassword(c.Request.Context(), req, s.sessionMeta(c, false))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, result.RawToken, result.ExpiresAt)
	c.JSON(http.StatusOK, gin.H{"user": result.User})
}

// passwordPolicyError enforces min length 8 with at least one upper, one
// lower and one digit.
func passwordPolicyError(field, pw string) error {
	pw = strings.TrimSpace(pw)
	if len(pw) < 8 {
		return newValidationError(field, "weak_password", "password must be at least 8 characters")
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper || !hasLower || !hasDigit {
		return newValidationError(field, "weak_password", "password must contain upper and lower case letters and a digit")
	}
	return nil
}
