package model

import (
	"errors"
	"fmt"
)

// ErrInvalidPlan is returned when a caller-supplied plan violates the
// priority/enabled invariant. Go uses sentinel errors (predefined error
// values) instead of exception types — callers check with errors.Is.
var ErrInvalidPlan = errors.New("invalid enhancement plan")

// DimensionScores are the three independent 0–100 quality estimates plus
// their rounded mean. Each dimension is clamped to [0,100] before Overall
// is computed, so all four values always lie in range.
type DimensionScores struct {
	Tone       int `json:"tone"`
	Detail     int `json:"detail"`
	Resolution int `json:"resolution"`
	Overall    int `json:"overall"`
}

// StepType names one family of enhancement work.
type StepType string

const (
	StepTone    StepType = "tone"
	StepDetail  StepType = "detail"
	StepUpscale StepType = "upscale"
)

// ValidStepType checks a string against the known step families.
func ValidStepType(s string) bool {
	switch StepType(s) {
	case StepTone, StepDetail, StepUpscale:
		return true
	}
	return false
}

// ToneSubtype selects the tonal-correction mode.
type ToneSubtype string

const (
	ToneGeneral ToneSubtype = "general"
	ToneNight   ToneSubtype = "night" // severely underexposed images
)

// ToneStep configures the tonal-correction step.
type ToneStep struct {
	Enabled   bool        `json:"enabled"`
	Subtype   ToneSubtype `json:"subtype,omitempty"`
	Intensity float64     `json:"intensity,omitempty"`
}

// DetailStep configures the detail-restoration step.
type DetailStep struct {
	Enabled  bool `json:"enabled"`
	Strength int  `json:"strength,omitempty"`
}

// UpscaleStep configures the super-resolution step.
type UpscaleStep struct {
	Enabled bool   `json:"enabled"`
	Scale   int    `json:"scale,omitempty"`
	ModelID string `json:"model_id,omitempty"`
}

// EnhancementPlan is the planner's output: up to three optional steps plus
// the ordered priority list naming which enabled steps run and in what order.
//
// Invariant: every name in Priority corresponds to an enabled step, and a
// step that is present but disabled never appears in Priority. The planner
// constructs plans that hold this by design; Validate enforces it for plans
// edited by the caller before they reach the orchestrator.
type EnhancementPlan struct {
	Tone     ToneStep    `json:"tone"`
	Detail   DetailStep  `json:"detail"`
	Upscale  UpscaleStep `json:"upscale"`
	Priority []StepType  `json:"priority"`
}

// Enabled reports whether the named step is switched on in this plan.
func (p *EnhancementPlan) Enabled(t StepType) bool {
	switch t {
	case StepTone:
		return p.Tone.Enabled
	case StepDetail:
		return p.Detail.Enabled
	case StepUpscale:
		return p.Upscale.Enabled
	default:
		return false
	}
}

// Validate checks the priority/enabled invariant on a caller-edited plan.
// A violation is an InvalidInput condition — it must be rejected before
// orchestration starts.
func (p *EnhancementPlan) Validate() error {
	seen := make(map[StepType]struct{}, len(p.Priority))
	for _, t := range p.Priority {
		if !ValidStepType(string(t)) {
			return fmt.Errorf("%w: unknown step %q in priority", ErrInvalidPlan, t)
		}
		if _, dup := seen[t]; dup {
			return fmt.Errorf("%w: step %q listed twice in priority", ErrInvalidPlan, t)
		}
		seen[t] = struct{}{}
		if !p.Enabled(t) {
			return fmt.Errorf("%w: step %q is in priority but not enabled", ErrInvalidPlan, t)
		}
	}
	for _, t := range []StepType{StepTone, StepDetail, StepUpscale} {
		if _, ok := seen[t]; p.Enabled(t) && !ok {
			return fmt.Errorf("%w: step %q is enabled but missing from priority", ErrInvalidPlan, t)
		}
	}
	return nil
}

// StepParams is the flattened, typed parameter set handed to a provider
// adapter for one step. Only the fields relevant to Type are populated.
type StepParams struct {
	Type      StepType    `json:"type"`
	Subtype   ToneSubtype `json:"subtype,omitempty"`
	Intensity float64     `json:"intensity,omitempty"`
	Strength  int         `json:"strength,omitempty"`
	Scale     int         `json:"scale,omitempty"`
	ModelID   string      `json:"model_id,omitempty"`
}

// ParamsFor extracts the adapter parameters for one step of the plan.
// The second return value is false when the step is not enabled.
func (p *EnhancementPlan) ParamsFor(t StepType) (StepParams, bool) {
	switch t {
	case StepTone:
		if !p.Tone.Enabled {
			return StepParams{}, false
		}
		return StepParams{Type: StepTone, Subtype: p.Tone.Subtype, Intensity: p.Tone.Intensity}, true
	case StepDetail:
		if !p.Detail.Enabled {
			return StepParams{}, false
		}
		return StepParams{Type: StepDetail, Strength: p.Detail.Strength}, true
	case StepUpscale:
		if !p.Upscale.Enabled {
			return StepParams{}, false
		}
		return StepParams{Type: StepUpscale, Scale: p.Upscale.Scale, ModelID: p.Upscale.ModelID}, true
	default:
		return StepParams{}, false
	}
}
