package pipeline

import (
	"math"

	"github.com/fleveque/photo-autopilot/internal/model"
)

// Base scores per dimension. Each dimension starts here and loses points for
// every applicable penalty, then is clamped to [0,100] independently.
const (
	toneBase       = 70
	detailBase     = 75
	resolutionBase = 80
)

// Resolution penalty thresholds, mutually exclusive — only the largest
// applicable penalty is taken.
const (
	resolutionPenaltyTinyPx   = 500_000
	resolutionPenaltySmallPx  = 1_000_000
	resolutionPenaltyMediumPx = 2_000_000
)

// Score maps analyzer signals into the three dimension scores plus the
// aggregate. Tone and detail penalties only fire when the vision tagger
// populated QualityIssueTags; in the pure autopilot flow without tags they
// stay at their base scores and resolution carries the only penalty.
// Deterministic: identical AnalysisResult always yields identical scores.
func Score(a model.AnalysisResult) model.DimensionScores {
	tone := toneBase
	if a.HasIssue(model.IssueUnderexposed) {
		tone -= 20
	}
	if a.HasIssue(model.IssueOverexposed) {
		tone -= 20
	}
	if a.HasIssue(model.IssueLowContrast) {
		tone -= 15
	}
	if a.HasIssue(model.IssueColorCast) {
		tone -= 15
	}

	detail := detailBase
	if a.HasIssue(model.IssueBlurry) {
		detail -= 25
	}
	if a.HasIssue(model.IssueNoisy) {
		detail -= 20
	}
	if a.HasIssue(model.IssueCompressionArtifacts) {
		detail -= 15
	}
	if a.HasIssue(model.IssueSoftDetails) {
		detail -= 10
	}

	resolution := resolutionBase
	switch {
	case a.EstimatedPixelCount < resolutionPenaltyTinyPx:
		resolution -= 30
	case a.EstimatedPixelCount < resolutionPenaltySmallPx:
		resolution -= 20
	case a.EstimatedPixelCount < resolutionPenaltyMediumPx:
		resolution -= 10
	}

	tone = clampScore(tone)
	detail = clampScore(detail)
	resolution = clampScore(resolution)

	return model.DimensionScores{
		Tone:       tone,
		Detail:     detail,
		Resolution: resolution,
		Overall:    int(math.Round(float64(tone+detail+resolution) / 3.0)),
	}
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
