package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/salespipe/internal/pipeline/domain"
)

const defaultPipelineName = "Sales Pipeline"

const defaultStageColor = "#64748b"

// seedStages is the stage set every new account starts with.
var seedStages = []struct {
	Name  string
	Color string
}{
	{"New", "#2563eb"},
	{"Contacted", "#0ea5e9"},
	{"Qualified", "#22c55e"},
	{"Closed", "#16a34a"},
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Leads domain.LeadStore
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
	leads domain.LeadStore
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("pipeline.service"),
		genID: p.GenID,
		repo:  p.Repo,
		leads: p.Leads,
	}
}

func (s *Service) List(ctx context.Context, userID snowflake.ID) ([]domain.Pipeline, error) {
	pipelines, err := s.repo.ListPipelines(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	for i := range pipelines {
		stages, err := s.repo.ListStages(ctx, s.db, pipelines[i].ID)
		if err != nil {
			return nil, err
		}
		pipelines[i].Stages = stages
	}
	return pipelines, nil
}

func (s *Service) Get(ctx context.Context, userID, pipelineID snowflake.ID) (*domain.Pipeline, error) {
	pipeline, err := s.AssertPipelineOwned(ctx, s.db, userID, pipelineID)
	if err != nil {
		return nil, err
	}
	stages, err := s.repo.ListStages(ctx, s.db, pipeline.ID)
	if err != nil {
		return nil, err
	}
	pipeline.Stages = stages
	return pipeline, nil
}

func (s *Service) Create(ctx context.Context, userID snowflake.ID, req domain.CreateRequest) (*domain.Pipeline, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	count, err := s.repo.CountPipelines(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	// The first pipeline is the default no matter what the caller asked for.
	makeDefault := req.IsDefault || count == 0

	var pipeline *domain.Pipeline
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if makeDefault {
			if err := s.repo.ClearDefault(ctx, tx, userID); err != nil {
				return err
			}
		}
		created, err := s.createWithSeedStages(ctx, tx, userID, name, makeDefault)
		if err != nil {
			return err
		}
		pipeline = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("pipeline created",
		zap.String("pipeline_id", pipeline.ID.String()),
		zap.String("user_id", userID.String()))
	return pipeline, nil
}

// SeedDefault provisions the default pipeline for a freshly registered user.
// It runs inside the registration transaction.
func (s *Service) SeedDefault(ctx context.Context, tx *gorm.DB, userID snowflake.ID) error {
	_, err := s.createWithSeedStages(ctx, tx, userID, defaultPipelineName, true)
	return err
}

func (s *Service) createWithSeedStages(ctx context.Context, tx *gorm.DB, userID snowflake.ID, name string, isDefault bool) (*domain.Pipeline, error) {
	now := time.Now().UTC()
	pipeline := &domain.Pipeline{
		ID:        s.genID.Generate(),
		UserID:    userID,
		Name:      name,
		IsDefault: isDefault,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreatePipeline(ctx, tx, pipeline); err != nil {
		return nil, err
	}

	stages := make([]domain.Stage, 0, len(seedStages))
	for i, seed := range seedStages {
		stage := domain.Stage{
			ID:         s.genID.Generate(),
			PipelineID: pipeline.ID,
			Name:       seed.Name,
			Color:      seed.Color,
			Position:   i,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.repo.CreateStage(ctx, tx, &stage); err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}
	pipeline.Stages = stages
	return pipeline, nil
}

func (s *Service) Update(ctx context.Context, userID, pipelineID snowflake.ID, req domain.UpdateRequest) (*domain.Pipeline, error) {
	pipeline, err := s.AssertPipelineOwned(ctx, s.db, userID, pipelineID)
	if err != nil {
		return nil, err
	}

	if req.IsDefault != nil && !*req.IsDefault && pipeline.IsDefault {
		return nil, domain.ErrUnsetDefault
	}

	fields := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		fields["name"] = name
	}

	makeDefault := req.IsDefault != nil && *req.IsDefault && !pipeline.IsDefault

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if makeDefault {
			if err := s.repo.ClearDefault(ctx, tx, userID); err != nil {
				return err
			}
			fields["is_default"] = true
		}
		if len(fields) == 0 {
			return nil
		}
		fields["updated_at"] = time.Now().UTC()
		return s.repo.UpdatePipelineFields(ctx, tx, pipelineID, fields)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, userID, pipelineID)
}

func (s *Service) Delete(ctx context.Context, userID, pipelineID snowflake.ID) error {
	pipeline, err := s.AssertPipelineOwned(ctx, s.db, userID, pipelineID)
	if err != nil {
		return err
	}

	if pipeline.IsDefault {
		return domain.ErrDeleteDefault
	}
	count, err := s.repo.CountPipelines(ctx, s.db, userID)
	if err != nil {
		return err
	}
	if count <= 1 {
		return domain.ErrDeleteOnly
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.leads.DeleteByPipeline(ctx, tx, pipelineID); err != nil {
			return err
		}
		if err := s.repo.DeleteStagesByPipeline(ctx, tx, pipelineID); err != nil {
			return err
		}
		return s.repo.DeletePipeline(ctx, tx, pipelineID)
	})
}

// CreateStage appends a stage after the current maximum position. Positions
// are not compacted here; gaps left by deletions persist until a reorder.
func (s *Service) CreateStage(ctx context.Context, userID, pipelineID snowflake.ID, req domain.StageCreateRequest) (*domain.Stage, error) {
	if _, err := s.AssertPipelineOwned(ctx, s.db, userID, pipelineID); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	color := strings.TrimSpace(req.Color)
	if color == "" {
		color = defaultStageColor
	}

	max, ok, err := s.repo.MaxStagePosition(ctx, s.db, pipelineID)
	if err != nil {
		return nil, err
	}
	position := 0
	if ok {
		position = max + 1
	}

	now := time.Now().UTC()
	stage := &domain.Stage{
		ID:         s.genID.Generate(),
		PipelineID: pipelineID,
		Name:       name,
		Color:      color,
		Position:   position,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.CreateStage(ctx, s.db, stage); err != nil {
		return nil, err
	}
	return stage, nil
}

func (s *Service) UpdateStage(ctx context.Context, userID, stageID snowflake.ID, req domain.StageUpdateRequest) (*domain.Stage, error) {
	stage, err := s.AssertStageOwned(ctx, s.db, userID, stageID)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		fields["name"] = name
	}
	if req.Color != nil {
		fields["color"] = strings.TrimSpace(*req.Color)
	}

	if len(fields) > 0 {
		fields["updated_at"] = time.Now().UTC()
		if err := s.repo.UpdateStageFields(ctx, s.db, stageID, fields); err != nil {
			return nil, err
		}
	}

	return s.repo.FindStageByID(ctx, s.db, stage.ID)
}

// DeleteStage removes a stage and detaches its leads. Remaining stages keep
// their positions; callers reorder explicitly when they want the gap closed.
func (s *Service) DeleteStage(ctx context.Context, userID, stageID snowflake.ID) error {
	stage, err := s.AssertStageOwned(ctx, s.db, userID, stageID)
	if err != nil {
		return err
	}

	count, err := s.repo.CountStages(ctx, s.db, stage.PipelineID)
	if err != nil {
		return err
	}
	if count <= 1 {
		return domain.ErrDeleteLastStage
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.leads.DetachStage(ctx, tx, stage.ID); err != nil {
			return err
		}
		return s.repo.DeleteStage(ctx, tx, stage.ID)
	})
}

// ReorderStages rewrites every position to the index of its id in the given
// list. The list must cover the pipeline's stages exactly or nothing changes.
func (s *Service) ReorderStages(ctx context.Context, userID, pipelineID snowflake.ID, stageIDs []snowflake.ID) ([]domain.Stage, error) {
	if _, err := s.AssertPipelineOwned(ctx, s.db, userID, pipelineID); err != nil {
		return nil, err
	}

	current, err := s.repo.ListStages(ctx, s.db, pipelineID)
	if err != nil {
		return nil, err
	}
	if len(stageIDs) != len(current) {
		return nil, domain.ErrStageSetMismatch
	}
	existing := make(map[snowflake.ID]struct{}, len(current))
	for _, st := range current {
		existing[st.ID] = struct{}{}
	}
	seen := make(map[snowflake.ID]struct{}, len(stageIDs))
	for _, id := range stageIDs {
		if _, ok := existing[id]; !ok {
			return nil, domain.ErrStageSetMismatch
		}
		if _, dup := seen[id]; dup {
			return nil, domain.ErrStageSetMismatch
		}
		seen[id] = struct{}{}
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, id := range stageIDs {
			if err := s.repo.UpdateStageFields(ctx, tx, id, map[string]any{
				"position":   i,
				"updated_at": now,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.ListStages(ctx, s.db, pipelineID)
}

func (s *Service) AssertPipelineOwned(ctx context.Context, db *gorm.DB, userID, pipelineID snowflake.ID) (*domain.Pipeline, error) {
	pipeline, err := s.repo.FindPipelineByID(ctx, db, pipelineID)
	if err != nil {
		return nil, err
	}
	if pipeline.UserID != userID {
		return nil, domain.ErrNotPipelineOwner
	}
	return pipeline, nil
}

func (s *Service) AssertStageOwned(ctx context.Context, db *gorm.DB, userID, stageID snowflake.ID) (*domain.Stage, error) {
	stage, err := s.repo.FindStageByID(ctx, db, stageID)
	if err != nil {
		return nil, err
	}
	pipeline, err := s.repo.FindPipelineByID(ctx, db, stage.PipelineID)
	if err != nil {
		if errors.Is(err, domain.ErrPipelineNotFound) {
			return nil, domain.ErrStageNotFound
		}
		return nil, err
	}
	if pipeline.UserID != userID {
		return nil, domain.ErrNotStageOwner
	}
	return stage, nil
}
