package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	activitydomain "github.com/smallbiznis/salespipe/internal/activity/domain"
	"github.com/smallbiznis/salespipe/internal/lead/domain"
	pipelinedomain "github.com/smallbiznis/salespipe/internal/pipeline/domain"
)

const defaultStatus = "open"

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Pipelines pipelinedomain.Service
	Activity  activitydomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	pipelines pipelinedomain.Service
	activity  activitydomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("lead.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		pipelines: p.Pipelines,
		activity:  p.Activity,
	}
}

func (s *Service) List(ctx context.Context, userID snowflake.ID, filter domain.ListFilter) ([]domain.Lead, error) {
	return s.repo.List(ctx, s.db, userID, filter)
}

func (s *Service) Get(ctx context.Context, userID, leadID snowflake.ID) (*domain.Lead, error) {
	return s.AssertLeadOwned(ctx, userID, leadID)
}

func (s *Service) Create(ctx context.Context, userID snowflake.ID, req domain.CreateRequest) (*domain.Lead, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}

	if _, err := s.pipelines.AssertPipelineOwned(ctx, s.db, userID, req.PipelineID); err != nil {
		return nil, err
	}
	if req.StageID != nil {
		if err := s.assertStageInPipeline(ctx, userID, *req.StageID, req.PipelineID); err != nil {
			return nil, err
		}
	}

	priority := domain.PriorityMedium
	if req.Priority != nil {
		priority = strings.ToUpper(strings.TrimSpace(*req.Priority))
		if !domain.ValidPriority(priority) {
			return nil, domain.ErrInvalidPriority
		}
	}
	status := defaultStatus
	if req.Status != nil && strings.TrimSpace(*req.Status) != "" {
		status = strings.TrimSpace(*req.Status)
	}

	tags, err := marshalTags(req.Tags)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	lead := &domain.Lead{
		ID:           s.genID.Generate(),
		UserID:       userID,
		PipelineID:   req.PipelineID,
		StageID:      req.StageID,
		Title:        title,
		Company:      req.Company,
		Value:        req.Value,
		Status:       status,
		Priority:     priority,
		Tags:         tags,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Notes:        req.Notes,
		NextActionAt: req.NextActionAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Create(ctx, tx, lead); err != nil {
			return err
		}
		return s.activity.RecordCreate(ctx, tx, userID, lead.ID, activitydomain.CreatePayload{
			Title:      lead.Title,
			PipelineID: lead.PipelineID,
			StageID:    lead.StageID,
		})
	})
	if err != nil {
		return nil, err
	}

	return lead, nil
}

// Update patches a lead. A pipeline change without an explicit stage detaches
// the lead, since its old stage cannot belong to the new pipeline.
func (s *Service) Update(ctx context.Context, userID, leadID snowflake.ID, req domain.UpdateRequest) (*domain.Lead, error) {
	lead, err := s.AssertLeadOwned(ctx, userID, leadID)
	if err != nil {
		return nil, err
	}
	before := snapshot(lead)

	targetPipeline := lead.PipelineID
	if req.PipelineID != nil {
		targetPipeline = *req.PipelineID
		if _, err := s.pipelines.AssertPipelineOwned(ctx, s.db, userID, targetPipeline); err != nil {
			return nil, err
		}
	}

	fields := map[string]any{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, domain.ErrInvalidTitle
		}
		fields["title"] = title
	}
	if req.PipelineID != nil && *req.PipelineID != lead.PipelineID {
		fields["pipeline_id"] = *req.PipelineID
		if req.StageID == nil {
			fields["stage_id"] = nil
		}
	}
	if req.StageID != nil {
		if err := s.assertStageInPipeline(ctx, userID, *req.StageID, targetPipeline); err != nil {
			return nil, err
		}
		fields["stage_id"] = *req.StageID
	}
	if req.Company != nil {
		fields["company"] = req.Company
	}
	if req.Value != nil {
		fields["value"] = req.Value
	}
	if req.Status != nil && strings.TrimSpace(*req.Status) != "" {
		fields["status"] = strings.TrimSpace(*req.Status)
	}
	if req.Priority != nil {
		priority := strings.ToUpper(strings.TrimSpace(*req.Priority))
		if !domain.ValidPriority(priority) {
			return nil, domain.ErrInvalidPriority
		}
		fields["priority"] = priority
	}
	if req.Tags != nil {
		tags, err := marshalTags(req.Tags)
		if err != nil {
			return nil, err
		}
		fields["tags"] = tags
	}
	if req.ContactEmail != nil {
		fields["contact_email"] = req.ContactEmail
	}
	if req.ContactPhone != nil {
		fields["contact_phone"] = req.ContactPhone
	}
	if req.Notes != nil {
		fields["notes"] = req.Notes
	}
	if req.NextActionAt != nil {
		fields["next_action_at"] = req.NextActionAt
	}
	if req.Archived != nil {
		if *req.Archived {
			now := time.Now().UTC()
			fields["archived_at"] = &now
		} else {
			fields["archived_at"] = nil
		}
	}

	if len(fields) == 0 {
		return lead, nil
	}
	fields["updated_at"] = time.Now().UTC()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UpdateFields(ctx, tx, leadID, fields); err != nil {
			return err
		}
		updated, err := s.repo.FindByID(ctx, tx, leadID)
		if err != nil {
			return err
		}
		lead = updated
		return s.activity.RecordUpdate(ctx, tx, userID, leadID, activitydomain.UpdatePayload{
			Before: before,
			After:  snapshot(updated),
		})
	})
	if err != nil {
		return nil, err
	}

	return lead, nil
}

func (s *Service) Move(ctx context.Context, userID, leadID snowflake.ID, req domain.MoveRequest) (*domain.Lead, error) {
	lead, err := s.AssertLeadOwned(ctx, userID, leadID)
	if err != nil {
		return nil, err
	}

	if _, err := s.pipelines.AssertPipelineOwned(ctx, s.db, userID, req.PipelineID); err != nil {
		return nil, err
	}
	if req.StageID != nil {
		if err := s.assertStageInPipeline(ctx, userID, *req.StageID, req.PipelineID); err != nil {
			return nil, err
		}
	}

	from := activitydomain.Ref{PipelineID: lead.PipelineID, StageID: lead.StageID}
	to := activitydomain.Ref{PipelineID: req.PipelineID, StageID: req.StageID}

	fields := map[string]any{
		"pipeline_id": req.PipelineID,
		"stage_id":    nil,
		"updated_at":  time.Now().UTC(),
	}
	if req.StageID != nil {
		fields["stage_id"] = *req.StageID
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UpdateFields(ctx, tx, leadID, fields); err != nil {
			return err
		}
		updated, err := s.repo.FindByID(ctx, tx, leadID)
		if err != nil {
			return err
		}
		lead = updated
		return s.activity.RecordMove(ctx, tx, userID, leadID, activitydomain.MovePayload{
			From: from,
			To:   to,
		})
	})
	if err != nil {
		return nil, err
	}

	return lead, nil
}

// Delete removes the lead row. The DELETE activity commits in the same
// transaction and, having no foreign key, outlives the lead.
func (s *Service) Delete(ctx context.Context, userID, leadID snowflake.ID) error {
	lead, err := s.AssertLeadOwned(ctx, userID, leadID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.activity.RecordDelete(ctx, tx, userID, leadID, activitydomain.DeletePayload{
			Title: lead.Title,
		}); err != nil {
			return err
		}
		return s.repo.Delete(ctx, tx, leadID)
	})
}

func (s *Service) AssertLeadOwned(ctx context.Context, userID, leadID snowflake.ID) (*domain.Lead, error) {
	lead, err := s.repo.FindByID(ctx, s.db, leadID)
	if err != nil {
		return nil, err
	}
	if lead.UserID != userID {
		return nil, domain.ErrNotLeadOwner
	}
	return lead, nil
}

func (s *Service) assertStageInPipeline(ctx context.Context, userID, stageID, pipelineID snowflake.ID) error {
	stage, err := s.pipelines.AssertStageOwned(ctx, s.db, userID, stageID)
	if err != nil {
		return err
	}
	if stage.PipelineID != pipelineID {
		return pipelinedomain.ErrStageNotInPipeline
	}
	return nil
}

func snapshot(lead *domain.Lead) activitydomain.Snapshot {
	return activitydomain.Snapshot{
		Title:      lead.Title,
		PipelineID: lead.PipelineID,
		StageID:    lead.StageID,
	}
}

func marshalTags(tags []string) (datatypes.JSON, error) {
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
