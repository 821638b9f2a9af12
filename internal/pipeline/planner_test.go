package pipeline

import (
	"reflect"
	"testing"

	"github.com/fleveque/photo-autopilot/internal/model"
)

func TestPlan_ToneThresholds(t *testing.T) {
	tests := []struct {
		name          string
		tone          int
		wantEnabled   bool
		wantSubtype   model.ToneSubtype
		wantIntensity float64
	}{
		{"at threshold stays disabled", 80, false, "", 0},
		{"just under threshold", 79, true, model.ToneGeneral, 1.0},
		{"moderate", 60, true, model.ToneGeneral, 1.0},
		{"stronger correction", 59, true, model.ToneGeneral, 1.5},
		{"night at 49", 49, true, model.ToneNight, 1.5},
		{"night max intensity", 39, true, model.ToneNight, 2.0},
		{"floor", 0, true, model.ToneNight, 2.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Plan(model.DimensionScores{Tone: tt.tone, Detail: 100, Resolution: 100})
			if plan.Tone.Enabled != tt.wantEnabled {
				t.Fatalf("tone enabled = %v, want %v", plan.Tone.Enabled, tt.wantEnabled)
			}
			if !tt.wantEnabled {
				return
			}
			if plan.Tone.Subtype != tt.wantSubtype {
				t.Errorf("subtype = %s, want %s", plan.Tone.Subtype, tt.wantSubtype)
			}
			if plan.Tone.Intensity != tt.wantIntensity {
				t.Errorf("intensity = %v, want %v", plan.Tone.Intensity, tt.wantIntensity)
			}
		})
	}
}

func TestPlan_DetailThresholds(t *testing.T) {
	tests := []struct {
		detail       int
		wantEnabled  bool
		wantStrength int
	}{
		{80, false, 0},
		{79, true, 1},
		{60, true, 1},
		{59, true, 2},
		{40, true, 2},
		{39, true, 3},
		{0, true, 3},
	}

	for _, tt := range tests {
		plan := Plan(model.DimensionScores{Tone: 100, Detail: tt.detail, Resolution: 100})
		if plan.Detail.Enabled != tt.wantEnabled {
			t.Errorf("detail %d: enabled = %v, want %v", tt.detail, plan.Detail.Enabled, tt.wantEnabled)
			continue
		}
		if tt.wantEnabled && plan.Detail.Strength != tt.wantStrength {
			t.Errorf("detail %d: strength = %d, want %d", tt.detail, plan.Detail.Strength, tt.wantStrength)
		}
	}
}

func TestPlan_UpscaleThresholds(t *testing.T) {
	tests := []struct {
		resolution  int
		wantEnabled bool
		wantScale   int
	}{
		{70, false, 0},
		{69, true, 2},
		{40, true, 2},
		{39, true, 4},
		{0, true, 4},
	}

	for _, tt := range tests {
		plan := Plan(model.DimensionScores{Tone: 100, Detail: 100, Resolution: tt.resolution})
		if plan.Upscale.Enabled != tt.wantEnabled {
			t.Errorf("resolution %d: enabled = %v, want %v", tt.resolution, plan.Upscale.Enabled, tt.wantEnabled)
			continue
		}
		if tt.wantEnabled && plan.Upscale.Scale != tt.wantScale {
			t.Errorf("resolution %d: scale = %d, want %d", tt.resolution, plan.Upscale.Scale, tt.wantScale)
		}
	}
}

func TestPlan_ToneIntensityNeverDecreasesAsScoreDrops(t *testing.T) {
	prev := 0.0
	for tone := 79; tone >= 0; tone-- {
		plan := Plan(model.DimensionScores{Tone: tone, Detail: 100, Resolution: 100})
		if plan.Tone.Intensity < prev {
			t.Fatalf("intensity dropped from %v to %v at tone score %d", prev, plan.Tone.Intensity, tone)
		}
		prev = plan.Tone.Intensity
	}
}

func TestPlan_PriorityOrderIsFixed(t *testing.T) {
	tests := []struct {
		name   string
		scores model.DimensionScores
		want   []model.StepType
	}{
		{"all enabled", model.DimensionScores{Tone: 50, Detail: 50, Resolution: 50},
			[]model.StepType{model.StepTone, model.StepDetail, model.StepUpscale}},
		{"tone and upscale", model.DimensionScores{Tone: 50, Detail: 90, Resolution: 50},
			[]model.StepType{model.StepTone, model.StepUpscale}},
		{"detail only", model.DimensionScores{Tone: 90, Detail: 50, Resolution: 90},
			[]model.StepType{model.StepDetail}},
		{"nothing needed", model.DimensionScores{Tone: 90, Detail: 90, Resolution: 90}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Plan(tt.scores)
			if !reflect.DeepEqual(plan.Priority, tt.want) {
				t.Errorf("priority = %v, want %v", plan.Priority, tt.want)
			}
		})
	}
}

func TestPlan_AlwaysValid(t *testing.T) {
	// A handful of score combinations spanning every branch; planner output
	// must always pass the same validation applied to caller-supplied plans.
	for _, tone := range []int{0, 39, 49, 59, 79, 80, 100} {
		for _, detail := range []int{0, 39, 59, 79, 80, 100} {
			for _, resolution := range []int{0, 39, 69, 70, 100} {
				plan := Plan(model.DimensionScores{Tone: tone, Detail: detail, Resolution: resolution})
				if err := plan.Validate(); err != nil {
					t.Fatalf("planner produced invalid plan for scores (%d,%d,%d): %v",
						tone, detail, resolution, err)
				}
			}
		}
	}
}

func TestPlan_EndToEndFromScorer(t *testing.T) {
	// A 40,000-byte jpeg with no issue tags: 600k estimated pixels →
	// scores {tone 70, detail 75, resolution 60} → a three-step plan with
	// the mildest parameters for tone/detail and a 2x upscale.
	analysis := Analyze(model.ValidatedImage{Data: make([]byte, 40_000), Type: model.MediaTypeJPEG})
	scores := Score(analysis)

	want := model.DimensionScores{Tone: 70, Detail: 75, Resolution: 60, Overall: 68}
	if scores != want {
		t.Fatalf("scores = %+v, want %+v", scores, want)
	}

	plan := Plan(scores)
	if !plan.Tone.Enabled || plan.Tone.Intensity != 1.0 || plan.Tone.Subtype != model.ToneGeneral {
		t.Errorf("tone step = %+v, want general intensity 1.0", plan.Tone)
	}
	if !plan.Detail.Enabled || plan.Detail.Strength != 1 {
		t.Errorf("detail step = %+v, want strength 1", plan.Detail)
	}
	if !plan.Upscale.Enabled || plan.Upscale.Scale != 2 {
		t.Errorf("upscale step = %+v, want scale 2", plan.Upscale)
	}

	wantPriority := []model.StepType{model.StepTone, model.StepDetail, model.StepUpscale}
	if !reflect.DeepEqual(plan.Priority, wantPriority) {
		t.Errorf("priority = %v, want %v", plan.Priority, wantPriority)
	}
}
