package pipeline

import "github.com/fleveque/photo-autopilot/internal/model"

// compressionFactors approximate how many pixels one encoded byte represents
// for each format. The pixel estimate is byteSize × factor — a deliberate
// coarse proxy, not a real decode (the service never measures pixels).
//
// These constants are load-bearing: the resolution score and therefore the
// upscale recommendation depend on them. Do not change them casually.
//
//	jpeg/jpg ×15 — lossy, high compression; a 40 KB jpeg ≈ 600k pixels
//	webp     ×12 — lossy, slightly denser than jpeg at similar quality
//	png      ×3  — lossless, far fewer pixels per byte
var compressionFactors = map[model.MediaType]int{
	model.MediaTypeJPEG: 15,
	model.MediaTypeJPG:  15,
	model.MediaTypeWebP: 12,
	model.MediaTypePNG:  3,
}

// Bucket thresholds. Informational output only — the scorer applies its own
// penalty thresholds and never reads the buckets.
const (
	resolutionMediumPx = 500_000
	resolutionHighPx   = 2_000_000

	fileSizeMediumBytes = 100 << 10 // 100 KiB
	fileSizeLargeBytes  = 1 << 20   // 1 MiB
)

// Analyze derives coarse signals from a validated image without decoding it.
// Pure function: no I/O, no external calls, deterministic per payload.
// QualityIssueTags stays empty here — only the vision tagger populates it.
func Analyze(img model.ValidatedImage) model.AnalysisResult {
	byteSize := len(img.Data)

	factor, ok := compressionFactors[img.Type]
	if !ok {
		factor = compressionFactors[model.MediaTypeJPEG]
	}
	pixels := byteSize * factor

	return model.AnalysisResult{
		Format:              img.Type,
		ByteSize:            byteSize,
		EstimatedPixelCount: pixels,
		Resolution:          resolutionBucket(pixels),
		FileSize:            fileSizeBucket(byteSize),
	}
}

func resolutionBucket(pixels int) model.ResolutionBucket {
	switch {
	case pixels < resolutionMediumPx:
		return model.ResolutionLow
	case pixels < resolutionHighPx:
		return model.ResolutionMedium
	default:
		return model.ResolutionHigh
	}
}

func fileSizeBucket(bytes int) model.FileSizeBucket {
	switch {
	case bytes < fileSizeMediumBytes:
		return model.FileSizeSmall
	case bytes < fileSizeLargeBytes:
		return model.FileSizeMedium
	default:
		return model.FileSizeLarge
	}
}
