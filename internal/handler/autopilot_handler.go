package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/photo-autopilot/internal/model"
	"github.com/fleveque/photo-autopilot/internal/pipeline"
	"github.com/fleveque/photo-autopilot/internal/service"
)

// maxUploadBytes caps inbound payloads; anything bigger is rejected before
// the pipeline sees it.
const maxUploadBytes = 32 << 20 // 32 MiB

// AutopilotHandler exposes the two pipeline entry points over HTTP.
type AutopilotHandler struct {
	svc    *service.AutopilotService
	logger *zap.Logger
}

// NewAutopilotHandler creates a new AutopilotHandler.
func NewAutopilotHandler(svc *service.AutopilotService, logger *zap.Logger) *AutopilotHandler {
	return &AutopilotHandler{svc: svc, logger: logger}
}

// Analyze scores an uploaded image and returns the recommended plan.
// Route: POST /api/v1/autopilot/analyze
//
// Accepts multipart form data (file field "image", optional "media_type")
// or a raw body with an image/* Content-Type. A missing media type is
// allowed — ingestion sniffs it.
func (h *AutopilotHandler) Analyze(c *gin.Context) {
	payload, err := readImagePayload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.svc.Analyze(c.Request.Context(), payload)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"analysis":        report.Analysis,
		"scores":          report.Scores,
		"recommendations": report.Recommendations,
	})
}

// Enhance runs the enhancement pipeline against an uploaded image.
// Route: POST /api/v1/autopilot/enhance
//
// The multipart field "plan" optionally carries a JSON EnhancementPlan —
// normally the one Analyze just returned, possibly edited. When omitted,
// the service analyzes the image and applies the recommended plan.
func (h *AutopilotHandler) Enhance(c *gin.Context) {
	payload, err := readImagePayload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var plan *model.EnhancementPlan
	if raw := c.PostForm("plan"); raw != "" {
		plan = &model.EnhancementPlan{}
		if err := json.Unmarshal([]byte(raw), plan); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed plan JSON: " + err.Error()})
			return
		}
	}

	outcome, err := h.svc.Enhance(c.Request.Context(), payload, plan)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":              outcome.ID,
		"steps":           outcome.Result.Steps,
		"final":           outcome.Result.Final,
		"steps_attempted": outcome.Result.StepsAttempted,
		"steps_succeeded": outcome.Result.StepsSucceeded,
	})
}

// writeError maps the error taxonomy onto status codes: InvalidInput → 400,
// missing credentials → 503, everything unexpected → 500.
func (h *AutopilotHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pipeline.ErrInvalidImage), errors.Is(err, model.ErrInvalidPlan):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNoCredentials):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.logger.Error("autopilot request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// readImagePayload extracts the image bytes and declared media type from
// either a multipart form or a raw request body. The declared type is left
// empty when the client declared nothing — validation treats that as an
// implicit supported type.
func readImagePayload(c *gin.Context) (model.ImagePayload, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		fileHeader, err := c.FormFile("image")
		if err != nil {
			return model.ImagePayload{}, errors.New(`multipart form must carry an "image" file field`)
		}

		f, err := fileHeader.Open()
		if err != nil {
			return model.ImagePayload{}, errors.New("opening uploaded file: " + err.Error())
		}
		defer f.Close()

		data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
		if err != nil {
			return model.ImagePayload{}, errors.New("reading uploaded file: " + err.Error())
		}

		declared := c.PostForm("media_type")
		if declared == "" {
			declared = mediaSubtype(fileHeader.Header.Get("Content-Type"))
		}
		return model.ImagePayload{Data: data, DeclaredType: declared}, nil
	}

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUploadBytes))
	if err != nil {
		return model.ImagePayload{}, errors.New("reading request body: " + err.Error())
	}
	return model.ImagePayload{Data: data, DeclaredType: mediaSubtype(c.ContentType())}, nil
}

// mediaSubtype turns "image/jpeg" into "jpeg"; non-image content types
// yield an empty declaration (the ingestion sniff takes over).
func mediaSubtype(contentType string) string {
	if sub, ok := strings.CutPrefix(contentType, "image/"); ok {
		return strings.TrimSpace(strings.Split(sub, ";")[0])
	}
	return ""
}
