// Package vision provides a provider-agnostic interface for using vision
// LLMs to tag coarse quality issues on an uploaded image. Tags feed the
// quality scorer in the single-shot analysis flow; when no vision provider
// is configured the pipeline simply scores without them.
package vision

import (
	"context"

	"github.com/fleveque/photo-autopilot/internal/model"
)

// Client is the interface for vision providers that can tag quality issues.
// Both Anthropic (Claude) and OpenAI implement it, allowing the tagger to
// fall back from one to the other.
//
// Go interface design tip: keep interfaces small. One working method is
// ideal — the bigger the interface, the weaker the abstraction.
type Client interface {
	// DetectIssues inspects the image and returns the quality-issue tags it
	// observed, restricted to the enumerated tag set. An empty slice is a
	// valid answer (the image looks fine).
	DetectIssues(ctx context.Context, imageData []byte, mime string) ([]model.IssueTag, error)
	ProviderName() string
	ModelName() string
}

// issueReport is the schema for the custom tool the model calls to return
// results. Defining a tool gives us clean JSON instead of free-form text.
type issueReport struct {
	Issues []string `json:"issues"`
}

// filterKnownTags drops anything outside the enumeration. Vision models
// occasionally invent tags; unknown ones must never reach the scorer.
func filterKnownTags(raw []string) []model.IssueTag {
	var tags []model.IssueTag
	seen := make(map[model.IssueTag]struct{}, len(raw))
	for _, s := range raw {
		if !model.ValidIssueTag(s) {
			continue
		}
		tag := model.IssueTag(s)
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}

// buildPrompt creates the user prompt shared by all vision providers.
func buildPrompt() string {
	return `Inspect the attached photo for coarse quality problems.

Report ONLY issues you can clearly observe, using exactly these tags:
- underexposed: the image is too dark overall
- overexposed: the image is blown out / too bright overall
- low_contrast: flat tonal range, washed-out look
- color_cast: a visible unwanted color tint
- blurry: motion blur or missed focus
- noisy: visible sensor noise or grain
- compression_artifacts: blocking, banding or ringing from compression
- soft_details: fine detail looks smeared or over-smoothed

Call the report_quality_issues tool with the list of applicable tags.
If the photo has none of these problems, call it with an empty list.`
}
