package vision

import (
	"context"
	"fmt"
	"time"

	"github.com/h2non/bimg"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fleveque/photo-autopilot/internal/model"
	"github.com/fleveque/photo-autopilot/internal/storage"
)

// Tagger runs the configured vision clients in order — first success wins,
// failures fall through to the next provider. Rate limited to keep API
// costs bounded, and every call lands in the provider-call log.
//
// The tagger is optional end to end: the service holds a nil *Tagger when
// no vision key is configured and the scorer falls back to resolution-only
// penalties.
type Tagger struct {
	clients        []Client // ordered: first is primary, rest are fallbacks
	limiter        *rate.Limiter
	callRepo       storage.ProviderCallRepository
	maxUploadBytes int
	logger         *zap.Logger
}

// NewTagger creates a tagger with an ordered list of vision clients.
// The order is configurable via config.yaml: vision.provider_order.
// Swapping provider priority is a config change, not a code change.
func NewTagger(
	clients []Client,
	ratePerMinute int,
	maxUploadBytes int,
	callRepo storage.ProviderCallRepository,
	logger *zap.Logger,
) *Tagger {
	if ratePerMinute <= 0 {
		ratePerMinute = 10
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 2 << 20
	}
	return &Tagger{
		clients:        clients,
		limiter:        rate.NewLimiter(rate.Every(time.Minute/time.Duration(ratePerMinute)), 1),
		callRepo:       callRepo,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// DetectIssues tags quality issues on a validated image. Images above the
// upload limit are downscaled first — coarse defects survive downscaling,
// and vision pricing scales with input size.
func (t *Tagger) DetectIssues(ctx context.Context, img model.ValidatedImage) ([]model.IssueTag, error) {
	if len(t.clients) == 0 {
		return nil, fmt.Errorf("no vision providers configured")
	}

	data, mime := t.shrinkForUpload(img.Data, img.Type)

	var lastErr error
	for i, client := range t.clients {
		// Rate limit — blocks until a token is available or context ends.
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		start := time.Now()
		tags, err := client.DetectIssues(ctx, data, mime)
		t.recordCall(ctx, client, err, time.Since(start).Milliseconds())

		if err == nil {
			t.logger.Info("vision tagging succeeded",
				zap.String("provider", client.ProviderName()),
				zap.Int("tags", len(tags)),
			)
			return tags, nil
		}

		lastErr = err
		if i < len(t.clients)-1 {
			t.logger.Warn("vision provider failed, trying next",
				zap.String("provider", client.ProviderName()),
				zap.Error(err),
			)
		}
	}

	return nil, fmt.Errorf("all vision providers failed: %w", lastErr)
}

// shrinkForUpload downscales oversized payloads to a 1024px-wide jpeg via
// bimg. On any processing error we fall back to the original bytes — a
// failed shrink should degrade to a pricier call, not a failed analysis.
func (t *Tagger) shrinkForUpload(data []byte, mediaType model.MediaType) ([]byte, string) {
	if len(data) <= t.maxUploadBytes {
		return data, mediaType.MIME()
	}

	resized, err := bimg.NewImage(data).Process(bimg.Options{
		Width:   1024,
		Type:    bimg.JPEG,
		Quality: 80,
	})
	if err != nil {
		t.logger.Warn("downscaling for vision upload failed, sending original",
			zap.Int("bytes", len(data)),
			zap.Error(err),
		)
		return data, mediaType.MIME()
	}

	return resized, "image/jpeg"
}

func (t *Tagger) recordCall(ctx context.Context, client Client, callErr error, durationMs int64) {
	if t.callRepo == nil {
		return
	}
	call := &model.ProviderCall{
		Step:     "vision",
		Provider: fmt.Sprintf("%s:%s", client.ProviderName(), client.ModelName()),
		Success:  callErr == nil,
	}
	call.DurationMs = &durationMs
	if callErr != nil {
		msg := callErr.Error()
		call.ErrorKind = &msg
	}

	if err := t.callRepo.Create(ctx, call); err != nil {
		t.logger.Error("recording vision call", zap.Error(err))
	}
}
