package vision

import (
	"reflect"
	"strings"
	"testing"

	"github.com/fleveque/photo-autopilot/internal/model"
)

func TestFilterKnownTags(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
		want []model.IssueTag
	}{
		{"nil input", nil, nil},
		{"empty input", []string{}, nil},
		{
			"known tags pass through in order",
			[]string{"blurry", "underexposed"},
			[]model.IssueTag{model.IssueBlurry, model.IssueUnderexposed},
		},
		{
			"invented tags are dropped",
			[]string{"blurry", "too_artistic", "bad_vibes"},
			[]model.IssueTag{model.IssueBlurry},
		},
		{
			"duplicates collapse to one",
			[]string{"noisy", "noisy", "noisy"},
			[]model.IssueTag{model.IssueNoisy},
		},
		{
			"close-but-wrong spellings are dropped",
			[]string{"blur", "under-exposed", "compression artifacts"},
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filterKnownTags(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("filterKnownTags(%v) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestBuildPrompt_NamesEveryTag(t *testing.T) {
	prompt := buildPrompt()
	for tag := range map[model.IssueTag]struct{}{
		model.IssueUnderexposed: {}, model.IssueOverexposed: {},
		model.IssueLowContrast: {}, model.IssueColorCast: {},
		model.IssueBlurry: {}, model.IssueNoisy: {},
		model.IssueCompressionArtifacts: {}, model.IssueSoftDetails: {},
	} {
		if !strings.Contains(prompt, string(tag)) {
			t.Errorf("prompt does not mention tag %q", tag)
		}
	}
}
