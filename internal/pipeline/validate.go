// Package pipeline contains the core autopilot stages: ingestion validation,
// the basic analyzer, the quality scorer, the recommendation planner, and the
// enhancement orchestrator. Everything except the orchestrator is a pure
// function — no I/O, deterministic given the same input.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/h2non/bimg"

	"github.com/fleveque/photo-autopilot/internal/model"
)

// ErrInvalidImage is returned when an inbound payload fails validation.
// Callers check with errors.Is(err, ErrInvalidImage) — this is the whole
// InvalidInput class for image payloads.
var ErrInvalidImage = errors.New("invalid image")

// Validate normalizes an inbound payload and rejects malformed input before
// any downstream computation is attempted. This is the single rejection
// point: the analyzer, scorer and planner all assume a ValidatedImage.
//
// Policy: strict on an explicitly wrong declared type, permissive on a
// missing one. A payload with bytes but no declared type is accepted — we
// sniff the magic bytes via bimg and fall back to jpeg when the sniff is
// inconclusive (jpeg is by far the most common upload).
func Validate(payload model.ImagePayload) (model.ValidatedImage, error) {
	if len(payload.Data) == 0 {
		return model.ValidatedImage{}, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}

	if payload.DeclaredType != "" {
		if !model.ValidMediaType(payload.DeclaredType) {
			return model.ValidatedImage{}, fmt.Errorf(
				"%w: unsupported media type %q (supported: jpeg, jpg, png, webp)",
				ErrInvalidImage, payload.DeclaredType)
		}
		return model.ValidatedImage{Data: payload.Data, Type: model.MediaType(payload.DeclaredType)}, nil
	}

	return model.ValidatedImage{Data: payload.Data, Type: sniffType(payload.Data)}, nil
}

// sniffType inspects magic bytes via bimg (libvips). bimg reads only the
// header — this is type detection, not a decode.
func sniffType(data []byte) model.MediaType {
	switch bimg.DetermineImageTypeName(data) {
	case "jpeg":
		return model.MediaTypeJPEG
	case "png":
		return model.MediaTypePNG
	case "webp":
		return model.MediaTypeWebP
	default:
		return model.MediaTypeJPEG
	}
}
