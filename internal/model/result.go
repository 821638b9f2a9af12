package model

import "time"

// StepResult records the outcome of executing one plan step. Results are
// appended in execution order and never removed or reordered after append.
type StepResult struct {
	Type       StepType   `json:"type"`
	Params     StepParams `json:"params"`
	Output     ImageRef   `json:"output,omitempty"` // only set on success
	Error      string     `json:"error,omitempty"`  // only set on failure
	DurationMs int64      `json:"duration_ms"`
	Success    bool       `json:"success"`
}

// PipelineResult aggregates one orchestrator run. Final is the most recent
// successful step's output, or the original image when every step failed.
// It is constructed at orchestration start with Final = Original, updated
// after each step, and only exposed once the run completes.
type PipelineResult struct {
	Original       ImageRef     `json:"-"`
	Steps          []StepResult `json:"steps"`
	Final          ImageRef     `json:"final"`
	StepsAttempted int          `json:"steps_attempted"`
	StepsSucceeded int          `json:"steps_succeeded"`
}

// EnhancementStatus tracks the lifecycle of a persisted enhancement run.
type EnhancementStatus string

const (
	StatusRunning   EnhancementStatus = "running"
	StatusCompleted EnhancementStatus = "completed"
	StatusFailed    EnhancementStatus = "failed" // zero steps succeeded
)

// Enhancement is the persisted record of one enhance request. Each field has
// two tags:
//   - `db:"column_name"` — used by sqlx to scan database rows
//   - `json:"field_name"` — used for JSON serialization (admin API)
type Enhancement struct {
	ID              string            `db:"id" json:"id"`
	Format          string            `db:"format" json:"format"`
	ByteSize        int64             `db:"byte_size" json:"byte_size"`
	ToneScore       int               `db:"tone_score" json:"tone_score"`
	DetailScore     int               `db:"detail_score" json:"detail_score"`
	ResolutionScore int               `db:"resolution_score" json:"resolution_score"`
	OverallScore    int               `db:"overall_score" json:"overall_score"`
	PlanJSON        string            `db:"plan_json" json:"plan,omitempty"`
	StepsJSON       string            `db:"steps_json" json:"steps,omitempty"`
	FinalPath       string            `db:"final_path" json:"final_path,omitempty"`
	Status          EnhancementStatus `db:"status" json:"status"`
	StepsAttempted  int               `db:"steps_attempted" json:"steps_attempted"`
	StepsSucceeded  int               `db:"steps_succeeded" json:"steps_succeeded"`
	ErrorMessage    *string           `db:"error_message" json:"error_message,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

// ProviderCall tracks each call to an external provider (transform adapters
// and vision taggers) for cost monitoring.
type ProviderCall struct {
	ID            int64     `db:"id" json:"id"`
	EnhancementID string    `db:"enhancement_id" json:"enhancement_id"`
	Step          string    `db:"step" json:"step"`
	Provider      string    `db:"provider" json:"provider"`
	Success       bool      `db:"success" json:"success"`
	ErrorKind     *string   `db:"error_kind" json:"error_kind,omitempty"`
	DurationMs    *int64    `db:"duration_ms" json:"duration_ms,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
