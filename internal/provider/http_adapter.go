package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fleveque/photo-autopilot/internal/model"
)

// Config holds the settings shared by all three transform adapters. The
// transform API is one service exposing a route per family:
//
//	POST {base_url}/v1/transform/{tone|detail|upscale}
//
// authenticated with a bearer key. Missing the key is rejected by the
// service layer before any step runs — the adapters assume it is present.
type Config struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration // per-call bound, surfaced as a Timeout error
	RatePerMinute int
	ToneModel     string
	DetailModel   string
	UpscaleModel  string
}

// HasCredentials reports whether the caller supplied an API key. Checked
// once per request (fail fast), not per step.
func (c Config) HasCredentials() bool { return c.APIKey != "" }

// HTTPAdapter is the shared implementation behind the tone, detail and
// upscale adapters. One polymorphic capability, three variants — there is
// no behavioral reason to keep parallel copies per family.
type HTTPAdapter struct {
	family     model.StepType
	modelID    string
	cfg        Config
	limiter    *rate.Limiter
	httpClient *http.Client
	logger     *zap.Logger
}

// NewRegistry wires one adapter per transformation family against the same
// transform API. The registry is what the orchestrator consumes.
func NewRegistry(cfg Config, logger *zap.Logger) Registry {
	// One shared limiter: the transform API meters the account, not the
	// family. rate.Every converts an interval between events to a rate.Limit.
	perMinute := cfg.RatePerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	newAdapter := func(family model.StepType, modelID string) *HTTPAdapter {
		return &HTTPAdapter{
			family:     family,
			modelID:    modelID,
			cfg:        cfg,
			limiter:    limiter,
			httpClient: httpClient,
			logger:     logger,
		}
	}

	return Registry{
		model.StepTone:    newAdapter(model.StepTone, cfg.ToneModel),
		model.StepDetail:  newAdapter(model.StepDetail, cfg.DetailModel),
		model.StepUpscale: newAdapter(model.StepUpscale, cfg.UpscaleModel),
	}
}

func (a *HTTPAdapter) Name() string {
	return fmt.Sprintf("transform:%s", a.family)
}

// transformRequest is the wire format sent to the transform API. Only the
// fields relevant to the family are populated.
type transformRequest struct {
	Model     string  `json:"model"`
	Image     string  `json:"image"` // base64-encoded payload
	MediaType string  `json:"media_type"`
	Subtype   string  `json:"subtype,omitempty"`
	Intensity float64 `json:"intensity,omitempty"`
	Strength  int     `json:"strength,omitempty"`
	Scale     int     `json:"scale,omitempty"`
}

// transformResponse is the wire format returned by the transform API — the
// result image inline as base64, hosted at a URL, or both.
type transformResponse struct {
	Image     string `json:"image,omitempty"`
	MediaType string `json:"media_type,omitempty"`
	URL       string `json:"url,omitempty"`
}

// Transform submits one step to the transform API. No automatic retries —
// at most one provider call per plan step; retry policy, if ever added,
// must not change step ordering.
func (a *HTTPAdapter) Transform(ctx context.Context, image model.ImageRef, params model.StepParams) (model.ImageRef, error) {
	// Rate limit — blocks until a token is available or the context ends.
	if err := a.limiter.Wait(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return model.ImageRef{}, NewError(KindTimeout, a.Name(), "deadline reached waiting for rate limiter", err)
		}
		return model.ImageRef{}, NewError(KindRateLimited, a.Name(), "rate limiter wait", err)
	}

	modelID := params.ModelID
	if modelID == "" {
		modelID = a.modelID
	}

	body, err := json.Marshal(transformRequest{
		Model:     modelID,
		Image:     base64.StdEncoding.EncodeToString(image.Data),
		MediaType: image.MediaType.MIME(),
		Subtype:   string(params.Subtype),
		Intensity: params.Intensity,
		Strength:  params.Strength,
		Scale:     params.Scale,
	})
	if err != nil {
		return model.ImageRef{}, NewError(KindInvalidModelOutput, a.Name(), "encoding request", err)
	}

	url := fmt.Sprintf("%s/v1/transform/%s", a.cfg.BaseURL, a.family)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return model.ImageRef{}, NewError(KindInvalidModelOutput, a.Name(), "creating request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	req.Header.Set("User-Agent", "photo-autopilot/1.0")

	start := time.Now()
	resp, err := a.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			return model.ImageRef{}, NewError(KindTimeout, a.Name(),
				fmt.Sprintf("call exceeded %s", a.httpClient.Timeout), err)
		}
		return model.ImageRef{}, NewError(KindInvalidModelOutput, a.Name(), "transport failure", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.ImageRef{}, a.classifyStatus(resp)
	}

	var tr transformResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<20)).Decode(&tr); err != nil {
		return model.ImageRef{}, NewError(KindInvalidModelOutput, a.Name(), "decoding response body", err)
	}

	out, err := tr.toImageRef(image.MediaType)
	if err != nil {
		return model.ImageRef{}, NewError(KindInvalidModelOutput, a.Name(), "malformed provider output", err)
	}

	a.logger.Debug("transform step succeeded",
		zap.String("family", string(a.family)),
		zap.String("model", modelID),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

// classifyStatus maps a non-200 transform API response onto the error
// taxonomy. The body (truncated) rides along in the message for operators.
func (a *HTTPAdapter) classifyStatus(resp *http.Response) *Error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := fmt.Sprintf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return NewError(KindAuthenticationFailed, a.Name(), msg, nil)
	case http.StatusPaymentRequired:
		return NewError(KindQuotaExceeded, a.Name(), msg, nil)
	case http.StatusTooManyRequests:
		return NewError(KindRateLimited, a.Name(), msg, nil)
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return NewError(KindTimeout, a.Name(), msg, nil)
	default:
		return NewError(KindInvalidModelOutput, a.Name(), msg, nil)
	}
}

func (tr transformResponse) toImageRef(fallbackType model.MediaType) (model.ImageRef, error) {
	ref := model.ImageRef{URL: tr.URL, MediaType: fallbackType}
	switch tr.MediaType {
	case "image/jpeg":
		ref.MediaType = model.MediaTypeJPEG
	case "image/png":
		ref.MediaType = model.MediaTypePNG
	case "image/webp":
		ref.MediaType = model.MediaTypeWebP
	}

	if tr.Image != "" {
		data, err := base64.StdEncoding.DecodeString(tr.Image)
		if err != nil {
			return model.ImageRef{}, fmt.Errorf("decoding base64 image: %w", err)
		}
		ref.Data = data
	}

	if ref.IsZero() {
		return model.ImageRef{}, errors.New("provider returned neither image data nor a URL")
	}
	return ref, nil
}

// isClientTimeout catches net-level timeouts that the http client reports
// without wrapping context.DeadlineExceeded.
func isClientTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
