// Package service contains the core business logic for the autopilot
// pipeline. AutopilotService ties the stages together:
//
//	Analyze:  validate → basic analysis → (optional vision tags) → score → plan
//	Enhance:  validate → plan (supplied or computed) → orchestrate providers
//
// Scoring and planning are pure and cannot fail on valid input; provider
// failures are recovered per step by the orchestrator and only surface in
// the aggregate result.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fleveque/photo-autopilot/internal/model"
	"github.com/fleveque/photo-autopilot/internal/pipeline"
	"github.com/fleveque/photo-autopilot/internal/provider"
	"github.com/fleveque/photo-autopilot/internal/storage"
	"github.com/fleveque/photo-autopilot/internal/vision"
)

// ErrNoCredentials is returned when Enhance is called without a transform
// API key configured. Checked once per request, before any adapter call.
var ErrNoCredentials = errors.New("transform provider credentials not configured")

// AnalyzeReport is the output of the analyze flow: the raw signals, the
// dimension scores, and the recommended plan the caller may edit and send
// back to Enhance.
type AnalyzeReport struct {
	Analysis        model.AnalysisResult  `json:"analysis"`
	Scores          model.DimensionScores `json:"scores"`
	Recommendations model.EnhancementPlan `json:"recommendations"`
}

// EnhanceOutcome is the output of the enhance flow.
type EnhanceOutcome struct {
	ID     string `json:"id"`
	Result model.PipelineResult
}

// AutopilotService is the main entry point for both flows. Dependencies are
// wired explicitly in the constructor — no globals, which keeps the pipeline
// testable with mock adapters and in-memory stores.
type AutopilotService struct {
	orchestrator *pipeline.Orchestrator
	providerCfg  provider.Config
	tagger       *vision.Tagger // nil if no vision keys configured
	enhRepo      storage.EnhancementRepository
	callRepo     storage.ProviderCallRepository
	fs           *storage.FileSystem
	logger       *zap.Logger
}

// NewAutopilotService creates a service with all stages wired up.
// tagger can be nil — Analyze gracefully skips vision tagging if unconfigured.
func NewAutopilotService(
	orchestrator *pipeline.Orchestrator,
	providerCfg provider.Config,
	tagger *vision.Tagger,
	enhRepo storage.EnhancementRepository,
	callRepo storage.ProviderCallRepository,
	fs *storage.FileSystem,
	logger *zap.Logger,
) *AutopilotService {
	return &AutopilotService{
		orchestrator: orchestrator,
		providerCfg:  providerCfg,
		tagger:       tagger,
		enhRepo:      enhRepo,
		callRepo:     callRepo,
		fs:           fs,
		logger:       logger,
	}
}

// Analyze runs the single-shot analysis flow: quality scores plus a
// recommended enhancement plan. When a vision tagger is configured it
// contributes issue tags; when it isn't — or when it fails — the scorer
// falls back to resolution/size-only penalties. A tagging failure is never
// fatal to the analysis.
func (s *AutopilotService) Analyze(ctx context.Context, payload model.ImagePayload) (*AnalyzeReport, error) {
	img, err := pipeline.Validate(payload)
	if err != nil {
		return nil, err
	}

	analysis := pipeline.Analyze(img)

	if s.tagger != nil {
		tags, err := s.tagger.DetectIssues(ctx, img)
		if err != nil {
			s.logger.Warn("vision tagging failed, scoring without issue tags", zap.Error(err))
		} else {
			analysis.QualityIssueTags = tags
		}
	}

	scores := pipeline.Score(analysis)
	plan := pipeline.Plan(scores)

	s.logger.Info("image analyzed",
		zap.String("format", string(analysis.Format)),
		zap.Int("estimated_pixels", analysis.EstimatedPixelCount),
		zap.Int("overall", scores.Overall),
		zap.Int("planned_steps", len(plan.Priority)),
	)

	return &AnalyzeReport{Analysis: analysis, Scores: scores, Recommendations: plan}, nil
}

// Enhance runs the enhancement pipeline. plan may be nil, in which case the
// service analyzes the image and uses the recommended plan (the one-call
// flow). A caller-edited plan is validated against the priority/enabled
// invariant before anything runs.
//
// Missing provider credentials fail the whole request up front. Per-step
// provider failures never do: they are recorded on the step and the run
// completes with whatever succeeded. A run where every step failed returns
// normally with Final == original and is persisted with status "failed".
func (s *AutopilotService) Enhance(ctx context.Context, payload model.ImagePayload, plan *model.EnhancementPlan) (*EnhanceOutcome, error) {
	img, err := pipeline.Validate(payload)
	if err != nil {
		return nil, err
	}

	analysis := pipeline.Analyze(img)
	scores := pipeline.Score(analysis)

	if plan == nil {
		p := pipeline.Plan(scores)
		plan = &p
	} else if err := plan.Validate(); err != nil {
		return nil, err
	}

	// Fail fast, not per-step: no adapter is invoked without a credential.
	if !s.providerCfg.HasCredentials() {
		return nil, ErrNoCredentials
	}

	id := uuid.NewString()

	if err := s.createRecord(ctx, id, analysis, scores, plan); err != nil {
		return nil, fmt.Errorf("persisting enhancement record: %w", err)
	}

	if _, err := s.fs.Write(id, storage.ImageOriginal, img.Type, img.Data); err != nil {
		// Losing the archived original is not worth failing the request over.
		s.logger.Warn("storing original image failed", zap.String("id", id), zap.Error(err))
	}

	original := model.ImageRef{Data: img.Data, MediaType: img.Type}
	result := s.orchestrator.Run(ctx, original, *plan)

	s.recordStepCalls(ctx, id, result.Steps)
	s.finishRecord(ctx, id, analysis, scores, plan, result)

	return &EnhanceOutcome{ID: id, Result: result}, nil
}

func (s *AutopilotService) createRecord(ctx context.Context, id string, analysis model.AnalysisResult, scores model.DimensionScores, plan *model.EnhancementPlan) error {
	planJSON, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("encoding plan: %w", err)
	}

	return s.enhRepo.Create(ctx, &model.Enhancement{
		ID:              id,
		Format:          string(analysis.Format),
		ByteSize:        int64(analysis.ByteSize),
		ToneScore:       scores.Tone,
		DetailScore:     scores.Detail,
		ResolutionScore: scores.Resolution,
		OverallScore:    scores.Overall,
		PlanJSON:        string(planJSON),
		Status:          model.StatusRunning,
	})
}

func (s *AutopilotService) finishRecord(ctx context.Context, id string, analysis model.AnalysisResult, scores model.DimensionScores, plan *model.EnhancementPlan, result model.PipelineResult) {
	status := model.StatusCompleted
	var errMsg *string
	if result.StepsAttempted > 0 && result.StepsSucceeded == 0 {
		status = model.StatusFailed
		msg := "every plan step failed"
		errMsg = &msg
	}

	finalPath := ""
	if result.StepsSucceeded > 0 && len(result.Final.Data) > 0 {
		path, err := s.fs.Write(id, storage.ImageFinal, result.Final.MediaType, result.Final.Data)
		if err != nil {
			s.logger.Error("storing final image", zap.String("id", id), zap.Error(err))
		} else {
			finalPath = path
		}
	}

	stepsJSON, err := json.Marshal(result.Steps)
	if err != nil {
		s.logger.Error("encoding step results", zap.String("id", id), zap.Error(err))
		stepsJSON = []byte("[]")
	}

	record := &model.Enhancement{
		ID:              id,
		Format:          string(analysis.Format),
		ByteSize:        int64(analysis.ByteSize),
		ToneScore:       scores.Tone,
		DetailScore:     scores.Detail,
		ResolutionScore: scores.Resolution,
		OverallScore:    scores.Overall,
		StepsJSON:       string(stepsJSON),
		FinalPath:       finalPath,
		Status:          status,
		StepsAttempted:  result.StepsAttempted,
		StepsSucceeded:  result.StepsSucceeded,
		ErrorMessage:    errMsg,
	}
	if err := s.enhRepo.Finish(ctx, record); err != nil {
		s.logger.Error("finishing enhancement record", zap.String("id", id), zap.Error(err))
	}
}

// recordStepCalls logs one provider-call row per executed step for cost and
// reliability monitoring.
func (s *AutopilotService) recordStepCalls(ctx context.Context, id string, steps []model.StepResult) {
	for _, step := range steps {
		call := &model.ProviderCall{
			EnhancementID: id,
			Step:          string(step.Type),
			Provider:      fmt.Sprintf("transform:%s", step.Type),
			Success:       step.Success,
		}
		duration := step.DurationMs
		call.DurationMs = &duration
		if !step.Success {
			kind := string(provider.KindInvalidModelOutput)
			if k, ok := kindFromMessage(step.Error); ok {
				kind = string(k)
			}
			call.ErrorKind = &kind
		}
		if err := s.callRepo.Create(ctx, call); err != nil {
			s.logger.Error("recording provider call", zap.String("id", id), zap.Error(err))
		}
	}
}

// kindFromMessage recovers the error kind from a recorded step error. Step
// results carry strings (they are serialized to JSON), so the structured
// kind has to be fished back out of the message.
func kindFromMessage(msg string) (provider.ErrorKind, bool) {
	for _, kind := range []provider.ErrorKind{
		provider.KindQuotaExceeded,
		provider.KindRateLimited,
		provider.KindAuthenticationFailed,
		provider.KindInvalidModelOutput,
		provider.KindTimeout,
	} {
		if strings.Contains(msg, string(kind)) {
			return kind, true
		}
	}
	return "", false
}
