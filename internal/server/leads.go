package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	leaddomain "github.com/smallbiznis/salespipe/internal/lead/domain"
)

// moneyValue accepts a JSON number or a string, with "12,5" style decimal
// commas normalized to dots.
type moneyValue float64

func (m *moneyValue) UnmarshalJSON(data []byte) error {
	if str := strings.TrimSpace(string(data)); len(str) > 0 && str[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return errors.New("invalid monetary value")
		}
		*m = moneyValue(f)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*m = moneyValue(f)
	return nil
}

func (m *moneyValue) toFloat() *float64 {
	if m == nil {
		return nil
	}
	f := float64(*m)
	return &f
}

type CreateLeadRequest struct {
	Title        string        `json:"title" binding:"required,min=1,max=200"`
	PipelineID   snowflake.ID  `json:"pipeline_id" binding:"required"`
	StageID      *snowflake.ID `json:"stage_id"`
	Company      *string       `json:"company" binding:"omitempty,max=200"`
	Value        *moneyValue   `json:"value"`
	Status       *string       `json:"status" binding:"omitempty,max=64"`
	Priority     *string       `json:"priority"`
	Tags         []string      `json:"tags"`
	ContactEmail *string       `json:"contact_email" binding:"omitempty,email"`
	ContactPhone *string       `json:"contact_phone" binding:"omitempty,max=32"`
	Notes        *string       `json:"notes"`
	NextActionAt *time.Time    `json:"next_action_at"`
}

type UpdateLeadRequest struct {
	Title        *string       `json:"title" binding:"omitempty,min=1,max=200"`
	PipelineID   *snowflake.ID `json:"pipeline_id"`
	StageID      *snowflake.ID `json:"stage_id"`
	Company      *string       `json:"company" binding:"omitempty,max=200"`
	Value        *moneyValue   `json:"value"`
	Status       *string       `json:"status" binding:"omitempty,max=64"`
	Priority     *string       `json:"priority"`
	Tags         []string      `json:"tags"`
	ContactEmail *string       `json:"contact_email" binding:"omitempty,email"`
	ContactPhone *string       `json:"contact_phone" binding:"omitempty,max=32"`
	Notes        *string       `json:"notes"`
	NextActionAt *time.Time    `json:"next_action_at"`
	Archived     *bool         `json:"archived"`
}

func (s *Server) ListLeads(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	filter := leaddomain.ListFilter{
		Status:   strings.TrimSpace(c.Query("status")),
		Priority: strings.TrimSpace(c.Query("priority")),
		Search:   c.Query("q"),
	}
	if raw := strings.TrimSpace(c.Query("pipeline_id")); raw != "" {
		pipelineID, err := parseID(raw)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		filter.PipelineID = &pipelineID
	}

	leads, err := s.leadSvc.List(c.Request.Context(), userID, filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"leads": leads})
}

func (s *Server) CreateLead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req CreateLeadRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	lead, err := s.leadSvc.Create(c.Request.Context(), userID, leaddomain.CreateRequest{
		Title:        req.Title,
		PipelineID:   req.PipelineID,
		StageID:      req.StageID,
		Company:      req.Company,
		Value:        req.Value.toFloat(),
		Status:       req.Status,
		Priority:     req.Priority,
		Tags:         req.Tags,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Notes:        req.Notes,
		NextActionAt: req.NextActionAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"lead": lead})
}

func (s *Server) GetLead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	leadID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	lead, err := s.leadSvc.Get(c.Request.Context(), userID, leadID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"lead": lead})
}

func (s *Server) UpdateLead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	leadID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req UpdateLeadRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	lead, err := s.leadSvc.Update(c.Request.Context(), userID, leadID, leaddomain.UpdateRequest{
		Title:        req.Title,
		PipelineID:   req.PipelineID,
		StageID:      req.StageID,
		Company:      req.Company,
		Value:        req.Value.toFloat(),
		Status:       req.Status,
		Priority:     req.Priority,
		Tags:         req.Tags,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Notes:        req.Notes,
		NextActionAt: req.NextActionAt,
		Archived:     req.Archived,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"lead": lead})
}

func (s *Server) MoveLead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	leadID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req leaddomain.MoveRequest
	if err := bindJSON(c, &req); err != nil {
		AbortWithError(c, err)
		return
	}

	lead, err := s.leadSvc.Move(c.Request.Context(), userID, leadID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"lead": lead})
}

func (s *Server) DeleteLead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	leadID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.leadSvc.Delete(c.Request.Context(), userID, leadID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ListLeadActivity(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	leadID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if _, err := s.leadSvc.AssertLeadOwned(c.Request.Context(), userID, leadID); err != nil {
		AbortWithError(c, err)
		return
	}

	entries, err := s.activitySvc.ListByLead(c.Request.Context(), leadID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"activity": entries})
}
