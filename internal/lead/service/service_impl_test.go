package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"

	activitydomain "github.com/smallbiznis/salespipe/internal/activity/domain"
	activityrepository "github.com/smallbiznis/salespipe/internal/activity/repository"
	activityservice "github.com/smallbiznis/salespipe/internal/activity/service"
	authdomain "github.com/smallbiznis/salespipe/internal/auth/domain"
	"github.com/smallbiznis/salespipe/internal/lead/domain"
	"github.com/smallbiznis/salespipe/internal/lead/repository"
	pipelinedomain "github.com/smallbiznis/salespipe/internal/pipeline/domain"
	pipelinerepository "github.com/smallbiznis/salespipe/internal/pipeline/repository"
	pipelineservice "github.com/smallbiznis/salespipe/internal/pipeline/service"
	"github.com/smallbiznis/salespipe/pkg/db"
)

type testEnv struct {
	svc         domain.Service
	activitySvc activitydomain.Service
	pipelineSvc pipelinedomain.Service
	db          *gorm.DB
	node        *snowflake.Node
	userID      snowflake.ID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(
		&authdomain.User{},
		&pipelinedomain.Pipeline{}, &pipelinedomain.Stage{},
		&domain.Lead{}, &activitydomain.LeadActivity{},
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
		Leads: repository.NewLeadStore(),
	})
	activitySvc := activityservice.NewService(activityservice.Params{
		DB:    dbConn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  activityrepository.NewRepository(),
	})
	svc := NewService(Params{
		DB:        dbConn,
		Log:       zap.NewNop(),
		GenID:     node,
		Repo:      repository.NewRepository(),
		Pipelines: pipelineSvc,
		Activity:  activitySvc,
	})

	userID := node.Generate()
	user := authdomain.User{
		ID:           userID,
		ExternalID:   userID.String(),
		Name:         "Alice",
		Email:        userID.String() + "@example.com",
		PasswordHash: "x",
	}
	if err := dbConn.Create(&user).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return &testEnv{
		svc:         svc,
		activitySvc: activitySvc,
		pipelineSvc: pipelineSvc,
		db:          dbConn,
		node:        node,
		userID:      userID,
	}
}

func (e *testEnv) createPipeline(t *testing.T, name string) *pipelinedomain.Pipeline {
	t.Helper()
	pipeline, err := e.pipelineSvc.Create(context.Background(), e.userID, pipelinedomain.CreateRequest{Name: name})
	if err != nil {
		t.Fatalf("failed to create pipeline: %v", err)
	}
	return pipeline
}

func (e *testEnv) createLead(t *testing.T, pipeline *pipelinedomain.Pipeline, title string, stageID *snowflake.ID) *domain.Lead {
	t.Helper()
	lead, err := e.svc.Create(context.Background(), e.userID, domain.CreateRequest{
		Title:      title,
		PipelineID: pipeline.ID,
		StageID:    stageID,
	})
	if err != nil {
		t.Fatalf("failed to create lead: %v", err)
	}
	return lead
}

func TestCreateRejectsCrossPipelineStage(t *testing.T) {
	env := newTestEnv(t)
	first := env.createPipeline(t, "Outbound")
	second := env.createPipeline(t, "Inbound")

	_, err := env.svc.Create(context.Background(), env.userID, domain.CreateRequest{
		Title:      "Acme deal",
		PipelineID: first.ID,
		StageID:    &second.Stages[0].ID,
	})
	if !errors.Is(err, pipelinedomain.ErrStageNotInPipeline) {
		t.Fatalf("expected ErrStageNotInPipeline, got %v", err)
	}
}

func TestCreateWritesCreateActivity(t *testing.T) {
	env := newTestEnv(t)
	pipeline := env.createPipeline(t, "Outbound")

	lead := env.createLead(t, pipeline, "Acme deal", &pipeline.Stages[0].ID)

	entries, err := env.activitySvc.ListByLead(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("failed to list activity: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 activity entry, got %d", len(entries))
	}
	if entries[0].Type != activitydomain.TypeCreate {
		t.Fatalf("expected CREATE, got %s", entries[0].Type)
	}
	if entries[0].ActorName != "Alice" {
		t.Fatalf("expected actor name Alice, got %q", entries[0].ActorName)
	}

	var payload activitydomain.CreatePayload
	if err := json.Unmarshal(entries[0].Payload, &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if payload.Title != "Acme deal" || payload.PipelineID != pipeline.ID {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestMoveWritesFromAndTo(t *testing.T) {
	env := newTestEnv(t)
	pipeline := env.createPipeline(t, "Outbound")
	from := pipeline.Stages[0]
	to := pipeline.Stages[2]

	lead := env.createLead(t, pipeline, "Acme deal", &from.ID)

	moved, err := env.svc.Move(context.Background(), env.userID, lead.ID, domain.MoveRequest{
		PipelineID: pipeline.ID,
		StageID:    &to.ID,
	})
	if err != nil {
		t.Fatalf("failed to move lead: %v", err)
	}
	if moved.StageID == nil || *moved.StageID != to.ID {
		t.Fatal("expected the lead to land in the target stage")
	}

	entries, err := env.activitySvc.ListByLead(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("failed to list activity: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Type != activitydomain.TypeMove {
		t.Fatalf("expected newest entry to be MOVE, got %s", entries[0].Type)
	}

	var payload activitydomain.MovePayload
	if err := json.Unmarshal(entries[0].Payload, &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if payload.From.StageID == nil || *payload.From.StageID != from.ID {
		t.Fatalf("expected from stage %v, got %+v", from.ID, payload.From)
	}
	if payload.To.StageID == nil || *payload.To.StageID != to.ID {
		t.Fatalf("expected to stage %v, got %+v", to.ID, payload.To)
	}
}

func TestMoveWithoutStageDetaches(t *testing.T) {
	env := newTestEnv(t)
	pipeline := env.createPipeline(t, "Outbound")
	other := env.createPipeline(t, "Inbound")
	lead := env.createLead(t, pipeline, "Acme deal", &pipeline.Stages[0].ID)

	moved, err := env.svc.Move(context.Background(), env.userID, lead.ID, domain.MoveRequest{
		PipelineID: other.ID,
	})
	if err != nil {
		t.Fatalf("failed to move lead: %v", err)
	}
	if moved.PipelineID != other.ID {
		t.Fatalf("expected pipeline %v, got %v", other.ID, moved.PipelineID)
	}
	if moved.StageID != nil {
		t.Fatalf("expected the lead to be unassigned, got stage %v", *moved.StageID)
	}

	entries, err := env.activitySvc.ListByLead(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("failed to list activity: %v", err)
	}
	var payload activitydomain.MovePayload
	if err := json.Unmarshal(entries[0].Payload, &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if payload.To.PipelineID != other.ID || payload.To.StageID != nil {
		t.Fatalf("expected an unassigned target, got %+v", payload.To)
	}
}

func TestMoveRejectsForeignStage(t *testing.T) {
	env := newTestEnv(t)
	pipeline := env.createPipeline(t, "Outbound")
	other := env.createPipeline(t, "Inbound")
	lead := env.createLead(t, pipeline, "Acme deal", &pipeline.Stages[0].ID)

	_, err := env.svc.Move(context.Background(), env.userID, lead.ID, domain.MoveRequest{
		PipelineID: pipeline.ID,
		StageID:    &other.Stages[0].ID,
	})
	if !errors.Is(err, pipelinedomain.ErrStageNotInPipeline) {
		t.Fatalf("expected ErrStageNotInPipeline, got %v", err)
	}
}

func TestUpdateRevalidatesStageAgainstTargetPipeline(t *testing.T) {
	env := newTestEnv(t)
	pipeline := env.createPipeline(t, "Outbound")
	other := env.createPipeline(t, "Inbound")
	lead := env.createLead(t, pipeline, "Acme deal", &pipeline.Stages[0].ID)

	// Old-pipeline stage alongside a new pipeline is rejected.
	_, err := env.svc.Update(context.Background(), env.userID, lead.ID, domain.UpdateRequest{
		PipelineID: &other.ID,
		StageID:    &pipeline.Stages[1].ID,
	})
	if !errors.Is(err, pipelinedomain.ErrStageNotInPipeline) {
		t.Fatalf("expected ErrStageNotInPipeline, got %v", err)
	}

	// A pipeline change without a stage detaches the lead.
	updated, err := env.svc.Update(context.Background(), env.userID, lead.ID, domain.UpdateRequest{
		PipelineID: &other.ID,
	})
	if err != nil {
		t.Fatalf("failed to update: %v", err)
	}
	if updated.PipelineID != other.ID {
		t.Fatal("expected the lead to change pipeline")
	}
	if updated.StageID != nil {
		t.Fatal("expected the lead to be detached from its old stage")
	}
}

func TestUpdateWritesBeforeAfterSnapshots(t *testing.T) {
	env := newTestEnv(t)
	pipeline := env.createPipeline(t, "Outbound")
	lead := env.createLead(t, pipeline, "Acme deal", &pipeline.Stages[0].ID)

	title := "Acme enterprise deal"
	if _, err := env.svc.Update(context.Background(), env.userID, lead.ID, domain.UpdateRequest{Title: &title}); err != nil {
		t.Fatalf("failed to update: %v", err)
	}

	entries, err := env.activitySvc.ListByLead(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("failed to list activity: %v", err)
	}
	if entries[0].Type != activitydomain.TypeUpdate {
		t.Fatalf("expected UPDATE, got %s", entries[0].Type)
	}

	var payload activitydomain.UpdatePayload
	if err := json.Unmarshal(entries[0].Payload, &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if payload.Before.Title != "Acme deal" || payload.After.Title != title {
		t.Fatalf("unexpected snapshots: %+v", payload)
	}
}

func TestDeleteActivitySurvivesLead(t *testing.T) {
	env := newTestEnv(t)
	pipeline := env.createPipeline(t, "Outbound")
	lead := env.createLead(t, pipeline, "Acme deal", nil)

	if err := env.svc.Delete(context.Background(), env.userID, lead.ID); err != nil {
		t.Fatalf("failed to delete lead: %v", err)
	}

	if _, err := env.svc.Get(context.Background(), env.userID, lead.ID); !errors.Is(err, domain.ErrLeadNotFound) {
		t.Fatalf("expected ErrLeadNotFound, got %v", err)
	}

	entries, err := env.activitySvc.ListByLead(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("failed to list activity: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected CREATE and DELETE entries, got %d", len(entries))
	}
	if entries[0].Type != activitydomain.TypeDelete {
		t.Fatalf("expected newest entry to be DELETE, got %s", entries[0].Type)
	}

	var payload activitydomain.DeletePayload
	if err := json.Unmarshal(entries[0].Payload, &payload); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if payload.Title != "Acme deal" {
		t.Fatalf("expected the deleted title in the payload, got %q", payload.Title)
	}
}

func TestOwnershipGuard(t *testing.T) {
	env := newTestEnv(t)
	pipeline := env.createPipeline(t, "Outbound")
	lead := env.createLead(t, pipeline, "Acme deal", nil)

	stranger := env.node.Generate()
	if _, err := env.svc.Get(context.Background(), stranger, lead.ID); !errors.Is(err, domain.ErrNotLeadOwner) {
		t.Fatalf("expected ErrNotLeadOwner, got %v", err)
	}
	if err := env.svc.Delete(context.Background(), stranger, lead.ID); !errors.Is(err, domain.ErrNotLeadOwner) {
		t.Fatalf("expected ErrNotLeadOwner on delete, got %v", err)
	}
}

func TestListOrderingAndFilters(t *testing.T) {
	env := newTestEnv(t)
	pipeline := env.createPipeline(t, "Outbound")

	late := env.createLead(t, pipeline, "Zeta deal", &pipeline.Stages[1].ID)
	early := env.createLead(t, pipeline, "Alpha deal", &pipeline.Stages[0].ID)
	detached := env.createLead(t, pipeline, "Floating deal", nil)

	leads, err := env.svc.List(context.Background(), env.userID, domain.ListFilter{})
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(leads) != 3 {
		t.Fatalf("expected 3 leads, got %d", len(leads))
	}
	if leads[0].ID != early.ID || leads[1].ID != late.ID || leads[2].ID != detached.ID {
		t.Fatalf("unexpected board order: %v %v %v", leads[0].Title, leads[1].Title, leads[2].Title)
	}

	// Within a stage, most recently updated first.
	second := env.createLead(t, pipeline, "Alpha sibling", &pipeline.Stages[0].ID)
	if err := env.db.Model(&domain.Lead{}).Where("id = ?", second.ID).
		Update("updated_at", time.Now().UTC().Add(time.Minute)).Error; err != nil {
		t.Fatalf("failed to bump updated_at: %v", err)
	}
	leads, err = env.svc.List(context.Background(), env.userID, domain.ListFilter{})
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if leads[0].ID != second.ID || leads[1].ID != early.ID {
		t.Fatal("expected the freshly updated lead first within its stage")
	}

	// Case-insensitive search over the title.
	leads, err = env.svc.List(context.Background(), env.userID, domain.ListFilter{Search: "zeta"})
	if err != nil {
		t.Fatalf("failed to search: %v", err)
	}
	if len(leads) != 1 || leads[0].ID != late.ID {
		t.Fatalf("expected only the Zeta deal, got %d leads", len(leads))
	}

	// Archived leads drop out of listings.
	archived := true
	if _, err := env.svc.Update(context.Background(), env.userID, detached.ID, domain.UpdateRequest{Archived: &archived}); err != nil {
		t.Fatalf("failed to archive: %v", err)
	}
	leads, err = env.svc.List(context.Background(), env.userID, domain.ListFilter{})
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	for _, l := range leads {
		if l.ID == detached.ID {
			t.Fatal("expected the archived lead to be excluded")
		}
	}
}

func TestCreateRejectsInvalidPriority(t *testing.T) {
	env := newTestEnv(t)
	pipeline := env.createPipeline(t, "Outbound")

	bad := "URGENT"
	_, err := env.svc.Create(context.Background(), env.userID, domain.CreateRequest{
		Title:      "Acme deal",
		PipelineID: pipeline.ID,
		Priority:   &bad,
	})
	if !errors.Is(err, domain.ErrInvalidPriority) {
		t.Fatalf("expected ErrInvalidPriority, got %v", err)
	}
}
