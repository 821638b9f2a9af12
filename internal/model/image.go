// Package model defines the core data types for the photo autopilot pipeline.
// In Go, we use structs instead of classes. Struct tags (the `json:"..."` and
// `db:"..."` annotations) tell serialization libraries how to map fields.
package model

// MediaType is the declared encoding of an image payload.
// Go doesn't have enums — we use typed constants with explicit values.
type MediaType string

const (
	MediaTypeJPEG MediaType = "jpeg"
	MediaTypeJPG  MediaType = "jpg" // alias some clients declare; same codec as jpeg
	MediaTypePNG  MediaType = "png"
	MediaTypeWebP MediaType = "webp"
)

// supportedMediaTypes is the allowlist checked at ingestion.
// map[T]struct{} is Go's set idiom — struct{} takes zero bytes of memory.
var supportedMediaTypes = map[MediaType]struct{}{
	MediaTypeJPEG: {},
	MediaTypeJPG:  {},
	MediaTypePNG:  {},
	MediaTypeWebP: {},
}

// ValidMediaType checks whether a declared type is in the supported set.
func ValidMediaType(s string) bool {
	_, ok := supportedMediaTypes[MediaType(s)]
	return ok
}

// MIME returns the content type for HTTP responses and provider uploads.
func (m MediaType) MIME() string {
	switch m {
	case MediaTypeJPEG, MediaTypeJPG:
		return "image/jpeg"
	case MediaTypePNG:
		return "image/png"
	case MediaTypeWebP:
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// Ext returns the file extension used when persisting images to disk.
func (m MediaType) Ext() string {
	if m == MediaTypeJPG {
		return "jpeg"
	}
	return string(m)
}

// ImagePayload is the raw inbound upload: encoded bytes plus whatever type
// the client declared (empty string when the client declared nothing).
// Created at ingestion, immutable, and scoped to a single request.
type ImagePayload struct {
	Data         []byte
	DeclaredType string
}

// ValidatedImage is an ImagePayload that passed ingestion validation and
// carries a resolved (declared or sniffed) media type.
type ValidatedImage struct {
	Data []byte
	Type MediaType
}

// ImageRef is an image flowing through the enhancement pipeline: either raw
// bytes, a provider-hosted URL, or both. Data marshals as base64 in JSON
// (encoding/json encodes []byte that way automatically).
type ImageRef struct {
	Data      []byte    `json:"data,omitempty"`
	MediaType MediaType `json:"media_type,omitempty"`
	URL       string    `json:"url,omitempty"`
}

// IsZero reports whether the reference points at nothing.
func (r ImageRef) IsZero() bool {
	return len(r.Data) == 0 && r.URL == ""
}

// IssueTag is a coarse quality defect detected by the vision tagger.
// The basic analyzer never produces these — they only appear when a vision
// provider is configured for the single-shot analysis flow.
type IssueTag string

const (
	IssueUnderexposed         IssueTag = "underexposed"
	IssueOverexposed          IssueTag = "overexposed"
	IssueLowContrast          IssueTag = "low_contrast"
	IssueColorCast            IssueTag = "color_cast"
	IssueBlurry               IssueTag = "blurry"
	IssueNoisy                IssueTag = "noisy"
	IssueCompressionArtifacts IssueTag = "compression_artifacts"
	IssueSoftDetails          IssueTag = "soft_details"
)

var knownIssueTags = map[IssueTag]struct{}{
	IssueUnderexposed:         {},
	IssueOverexposed:          {},
	IssueLowContrast:          {},
	IssueColorCast:            {},
	IssueBlurry:               {},
	IssueNoisy:                {},
	IssueCompressionArtifacts: {},
	IssueSoftDetails:          {},
}

// ValidIssueTag checks a string against the known tag set. The vision tagger
// uses this to drop anything the model invents outside the enumeration.
func ValidIssueTag(s string) bool {
	_, ok := knownIssueTags[IssueTag(s)]
	return ok
}

// ResolutionBucket is an informational classification of the pixel estimate.
type ResolutionBucket string

const (
	ResolutionLow    ResolutionBucket = "low"
	ResolutionMedium ResolutionBucket = "medium"
	ResolutionHigh   ResolutionBucket = "high"
)

// FileSizeBucket is an informational classification of the payload size.
type FileSizeBucket string

const (
	FileSizeSmall  FileSizeBucket = "small"
	FileSizeMedium FileSizeBucket = "medium"
	FileSizeLarge  FileSizeBucket = "large"
)

// AnalysisResult holds the coarse, read-only facts the analyzer derives from
// a validated image. Produced once per request and never mutated after.
type AnalysisResult struct {
	Format              MediaType        `json:"format"`
	ByteSize            int              `json:"byte_size"`
	EstimatedPixelCount int              `json:"estimated_pixel_count"`
	Resolution          ResolutionBucket `json:"resolution"`
	FileSize            FileSizeBucket   `json:"file_size"`
	QualityIssueTags    []IssueTag       `json:"quality_issue_tags,omitempty"`
}

// HasIssue reports whether a tag is present. Linear scan — the tag set is
// bounded at eight entries, a map would be overkill.
func (a AnalysisResult) HasIssue(tag IssueTag) bool {
	for _, t := range a.QualityIssueTags {
		if t == tag {
			return true
		}
	}
	return false
}
