package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/fleveque/photo-autopilot/internal/model"
)

func setupTestDB(t *testing.T) (EnhancementRepository, ProviderCallRepository) {
	t.Helper()

	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("creating test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewEnhancementRepository(db), NewProviderCallRepository(db)
}

func newTestEnhancement(id string) *model.Enhancement {
	return &model.Enhancement{
		ID:              id,
		Format:          "jpeg",
		ByteSize:        40_000,
		ToneScore:       70,
		DetailScore:     75,
		ResolutionScore: 60,
		OverallScore:    68,
		PlanJSON:        `{"priority":["tone","detail","upscale"]}`,
		Status:          model.StatusRunning,
	}
}

func TestEnhancementRepository_CreateAndGet(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	if err := repo.Create(ctx, newTestEnhancement("enh-1")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "enh-1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	if got.Format != "jpeg" || got.ByteSize != 40_000 {
		t.Errorf("image fields = %s/%d, want jpeg/40000", got.Format, got.ByteSize)
	}
	if got.ToneScore != 70 || got.DetailScore != 75 || got.ResolutionScore != 60 || got.OverallScore != 68 {
		t.Errorf("scores = %d/%d/%d/%d, want 70/75/60/68",
			got.ToneScore, got.DetailScore, got.ResolutionScore, got.OverallScore)
	}
	if got.Status != model.StatusRunning {
		t.Errorf("status = %s, want running", got.Status)
	}
	if got.CreatedAt.IsZero() {
		t.Error("created_at should be set by the database")
	}
}

func TestEnhancementRepository_GetByIDNotFound(t *testing.T) {
	repo, _ := setupTestDB(t)

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestEnhancementRepository_Finish(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	e := newTestEnhancement("enh-2")
	if err := repo.Create(ctx, e); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	e.Status = model.StatusCompleted
	e.StepsJSON = `[{"type":"tone","success":true}]`
	e.FinalPath = "/images/enh-2/final.jpg"
	e.StepsAttempted = 3
	e.StepsSucceeded = 2
	if err := repo.Finish(ctx, e); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "enh-2")
	if err != nil {
		t.Fatalf("GetByID after finish: %v", err)
	}
	if got.Status != model.StatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
	if got.StepsAttempted != 3 || got.StepsSucceeded != 2 {
		t.Errorf("counters = %d/%d, want 3/2", got.StepsAttempted, got.StepsSucceeded)
	}
	if got.FinalPath != "/images/enh-2/final.jpg" {
		t.Errorf("final path = %q", got.FinalPath)
	}
}

func TestEnhancementRepository_FinishMissingRecord(t *testing.T) {
	repo, _ := setupTestDB(t)

	err := repo.Finish(context.Background(), newTestEnhancement("never-created"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestEnhancementRepository_ListAndCount(t *testing.T) {
	repo, _ := setupTestDB(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		e := newTestEnhancement(id)
		if id == "c" {
			e.Status = model.StatusFailed
		}
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create %s failed: %v", id, err)
		}
	}

	list, err := repo.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("list length = %d, want 2 (limit applied)", len(list))
	}

	total, err := repo.Count(ctx)
	if err != nil || total != 3 {
		t.Errorf("Count = %d, %v, want 3", total, err)
	}

	failed, err := repo.CountByStatus(ctx, model.StatusFailed)
	if err != nil || failed != 1 {
		t.Errorf("failed count = %d, %v, want 1", failed, err)
	}
	running, err := repo.CountByStatus(ctx, model.StatusRunning)
	if err != nil || running != 2 {
		t.Errorf("running count = %d, %v, want 2", running, err)
	}
}

func TestProviderCallRepository_CreateAndCount(t *testing.T) {
	_, calls := setupTestDB(t)
	ctx := context.Background()

	kind := "rate_limited"
	ms := int64(120)
	records := []*model.ProviderCall{
		{EnhancementID: "enh-1", Step: "tone", Provider: "transform:tone", Success: true, DurationMs: &ms},
		{EnhancementID: "enh-1", Step: "detail", Provider: "transform:detail", Success: false, ErrorKind: &kind},
		{EnhancementID: "enh-1", Step: "vision", Provider: "anthropic:claude", Success: true},
	}

	for _, rec := range records {
		if err := calls.Create(ctx, rec); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if rec.ID == 0 {
			t.Error("Create should backfill the autoincrement ID")
		}
	}

	succeeded, err := calls.CountBySuccess(ctx, true)
	if err != nil || succeeded != 2 {
		t.Errorf("succeeded = %d, %v, want 2", succeeded, err)
	}
	failed, err := calls.CountBySuccess(ctx, false)
	if err != nil || failed != 1 {
		t.Errorf("failed = %d, %v, want 1", failed, err)
	}
}
