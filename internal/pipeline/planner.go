package pipeline

import "github.com/fleveque/photo-autopilot/internal/model"

// Plan converts dimension scores into an ordered, parameterized enhancement
// plan. Every threshold check is independent; the returned plan always
// satisfies the priority/enabled invariant by construction.
//
// Execution order is fixed at tone → detail → upscale when multiple steps
// are enabled: tonal correction before detail work before upscaling, since
// upscaling a tonally-broken image wastes the most expensive operation.
func Plan(scores model.DimensionScores) model.EnhancementPlan {
	var plan model.EnhancementPlan

	if scores.Tone < 80 {
		plan.Tone = model.ToneStep{
			Enabled:   true,
			Subtype:   toneSubtype(scores.Tone),
			Intensity: toneIntensity(scores.Tone),
		}
	}

	if scores.Detail < 80 {
		plan.Detail = model.DetailStep{
			Enabled:  true,
			Strength: detailStrength(scores.Detail),
		}
	}

	if scores.Resolution < 70 {
		plan.Upscale = model.UpscaleStep{
			Enabled: true,
			Scale:   upscaleScale(scores.Resolution),
		}
	}

	for _, t := range []model.StepType{model.StepTone, model.StepDetail, model.StepUpscale} {
		if plan.Enabled(t) {
			plan.Priority = append(plan.Priority, t)
		}
	}

	return plan
}

func toneSubtype(score int) model.ToneSubtype {
	if score < 50 {
		return model.ToneNight
	}
	return model.ToneGeneral
}

func toneIntensity(score int) float64 {
	switch {
	case score < 40:
		return 2.0
	case score < 60:
		return 1.5
	default:
		return 1.0
	}
}

func detailStrength(score int) int {
	switch {
	case score < 40:
		return 3
	case score < 60:
		return 2
	default:
		return 1
	}
}

func upscaleScale(score int) int {
	if score < 40 {
		return 4
	}
	return 2
}
