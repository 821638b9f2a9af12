package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/photo-autopilot/internal/model"
	"github.com/fleveque/photo-autopilot/internal/storage"
)

// AdminHandler handles administrative endpoints.
type AdminHandler struct {
	enhRepo  storage.EnhancementRepository
	callRepo storage.ProviderCallRepository
	logger   *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(enhRepo storage.EnhancementRepository, callRepo storage.ProviderCallRepository, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{enhRepo: enhRepo, callRepo: callRepo, logger: logger}
}

// Stats returns enhancement counts and provider-call statistics.
// Route: GET /api/v1/admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	total, err := h.enhRepo.Count(ctx)
	if err != nil {
		h.logger.Error("counting enhancements", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	completed, err := h.enhRepo.CountByStatus(ctx, model.StatusCompleted)
	if err != nil {
		h.logger.Error("counting completed enhancements", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	running, err := h.enhRepo.CountByStatus(ctx, model.StatusRunning)
	if err != nil {
		h.logger.Error("counting running enhancements", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	failed, err := h.enhRepo.CountByStatus(ctx, model.StatusFailed)
	if err != nil {
		h.logger.Error("counting failed enhancements", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	callsOK, err := h.callRepo.CountBySuccess(ctx, true)
	if err != nil {
		h.logger.Error("counting successful provider calls", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	callsFailed, err := h.callRepo.CountBySuccess(ctx, false)
	if err != nil {
		h.logger.Error("counting failed provider calls", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":     total,
		"completed": completed,
		"running":   running,
		"failed":    failed,
		"provider_calls": gin.H{
			"succeeded": callsOK,
			"failed":    callsFailed,
		},
	})
}

// Enhancements lists recent enhancement records.
// Route: GET /api/v1/admin/enhancements?limit=20
func (h *AdminHandler) Enhancements(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 200 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer between 1 and 200"})
		return
	}

	records, err := h.enhRepo.ListRecent(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("listing enhancements", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"enhancements": records})
}
