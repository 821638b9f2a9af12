package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/fleveque/photo-autopilot/internal/model"
)

// ErrNotFound is returned when an enhancement record doesn't exist.
// Callers check with errors.Is(err, ErrNotFound).
var ErrNotFound = errors.New("enhancement not found")

// EnhancementRepository defines the interface for enhancement persistence.
// Go interfaces are implicit — exporting the interface and hiding the
// implementation keeps tests free to supply their own fakes.
type EnhancementRepository interface {
	GetByID(ctx context.Context, id string) (*model.Enhancement, error)
	Create(ctx context.Context, e *model.Enhancement) error
	Finish(ctx context.Context, e *model.Enhancement) error
	ListRecent(ctx context.Context, limit int) ([]model.Enhancement, error)
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status model.EnhancementStatus) (int64, error)
}

// ProviderCallRepository logs every external provider call for cost and
// reliability monitoring.
type ProviderCallRepository interface {
	Create(ctx context.Context, call *model.ProviderCall) error
	CountBySuccess(ctx context.Context, success bool) (int64, error)
}

type sqliteEnhancementRepository struct {
	db *sqlx.DB
}

// NewEnhancementRepository creates a SQLite-backed EnhancementRepository.
func NewEnhancementRepository(db *sqlx.DB) EnhancementRepository {
	return &sqliteEnhancementRepository{db: db}
}

func (r *sqliteEnhancementRepository) GetByID(ctx context.Context, id string) (*model.Enhancement, error) {
	var e model.Enhancement
	err := r.db.GetContext(ctx, &e, "SELECT * FROM enhancements WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting enhancement %s: %w", id, err)
	}
	return &e, nil
}

func (r *sqliteEnhancementRepository) Create(ctx context.Context, e *model.Enhancement) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO enhancements (
			id, format, byte_size,
			tone_score, detail_score, resolution_score, overall_score,
			plan_json, status
		) VALUES (
			:id, :format, :byte_size,
			:tone_score, :detail_score, :resolution_score, :overall_score,
			:plan_json, :status
		)
	`, e)
	if err != nil {
		return fmt.Errorf("creating enhancement: %w", err)
	}
	return nil
}

// Finish writes the terminal state of a run: step results, final image
// path, counters and status.
func (r *sqliteEnhancementRepository) Finish(ctx context.Context, e *model.Enhancement) error {
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE enhancements SET
			steps_json = :steps_json,
			final_path = :final_path,
			status = :status,
			steps_attempted = :steps_attempted,
			steps_succeeded = :steps_succeeded,
			error_message = :error_message,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = :id
	`, e)
	if err != nil {
		return fmt.Errorf("finishing enhancement: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sqliteEnhancementRepository) ListRecent(ctx context.Context, limit int) ([]model.Enhancement, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []model.Enhancement
	err := r.db.SelectContext(ctx, &out,
		"SELECT * FROM enhancements ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("listing enhancements: %w", err)
	}
	return out, nil
}

func (r *sqliteEnhancementRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM enhancements"); err != nil {
		return 0, fmt.Errorf("counting enhancements: %w", err)
	}
	return n, nil
}

func (r *sqliteEnhancementRepository) CountByStatus(ctx context.Context, status model.EnhancementStatus) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM enhancements WHERE status = ?", status)
	if err != nil {
		return 0, fmt.Errorf("counting enhancements by status: %w", err)
	}
	return n, nil
}

type sqliteProviderCallRepository struct {
	db *sqlx.DB
}

// NewProviderCallRepository creates a SQLite-backed ProviderCallRepository.
func NewProviderCallRepository(db *sqlx.DB) ProviderCallRepository {
	return &sqliteProviderCallRepository{db: db}
}

func (r *sqliteProviderCallRepository) Create(ctx context.Context, call *model.ProviderCall) error {
	result, err := r.db.NamedExecContext(ctx, `
		INSERT INTO provider_calls (enhancement_id, step, provider, success, error_kind, duration_ms)
		VALUES (:enhancement_id, :step, :provider, :success, :error_kind, :duration_ms)
	`, call)
	if err != nil {
		return fmt.Errorf("creating provider call: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting last insert id: %w", err)
	}
	call.ID = id
	return nil
}

func (r *sqliteProviderCallRepository) CountBySuccess(ctx context.Context, success bool) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM provider_calls WHERE success = ?", success)
	if err != nil {
		return 0, fmt.Errorf("counting provider calls: %w", err)
	}
	return n, nil
}
