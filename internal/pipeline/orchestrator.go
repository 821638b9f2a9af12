package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fleveque/photo-autopilot/internal/model"
	"github.com/fleveque/photo-autopilot/internal/provider"
)

// Orchestrator executes an enhancement plan step by step against the
// provider adapters, threading each step's output into the next step's
// input. It is a sequential reducer over the plan's priority list — steps
// are never run in parallel because each step's input is the previous
// step's output (a data dependency, not a convenience).
type Orchestrator struct {
	adapters provider.Registry
	logger   *zap.Logger
}

// NewOrchestrator creates an orchestrator over the given adapter registry.
// Adapters are an explicit dependency, not ambient state — this is what
// makes the pipeline independently testable with mock adapters.
func NewOrchestrator(adapters provider.Registry, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{adapters: adapters, logger: logger}
}

// Run executes the plan against the original image and returns the
// aggregate result. Failure handling:
//
//   - One step failing never aborts the remaining plan. The failure is
//     recorded in that step's StepResult and the next step receives the
//     last successfully-produced image, not the failed step's non-output.
//   - Context cancellation between steps stops launching further steps and
//     returns the result accumulated so far.
//   - An empty priority list returns Final == original with zero steps.
//
// Each step runs at most once; there are no orchestrator-level retries.
func (o *Orchestrator) Run(ctx context.Context, original model.ImageRef, plan model.EnhancementPlan) model.PipelineResult {
	result := model.PipelineResult{
		Original: original,
		Final:    original,
	}
	current := original

	for _, stepType := range plan.Priority {
		if ctx.Err() != nil {
			o.logger.Warn("orchestration cancelled, returning accumulated result",
				zap.String("next_step", string(stepType)),
				zap.Int("steps_attempted", result.StepsAttempted),
			)
			break
		}

		params, ok := plan.ParamsFor(stepType)
		if !ok {
			// Validate() upstream makes this unreachable for caller plans;
			// planner output holds the invariant by construction.
			continue
		}

		result.StepsAttempted++
		stepResult := o.runStep(ctx, current, params)
		result.Steps = append(result.Steps, stepResult)

		if stepResult.Success {
			result.StepsSucceeded++
			current = stepResult.Output
		}
	}

	result.Final = current
	return result
}

// runStep invokes one adapter and converts the outcome into a StepResult.
// Provider errors of every kind are handled identically here — triage by
// kind belongs to the call log and admin stats, not to orchestration.
func (o *Orchestrator) runStep(ctx context.Context, input model.ImageRef, params model.StepParams) model.StepResult {
	stepResult := model.StepResult{
		Type:   params.Type,
		Params: params,
	}

	adapter, ok := o.adapters[params.Type]
	if !ok {
		stepResult.Error = fmt.Sprintf("no adapter registered for step %q", params.Type)
		o.logger.Error("adapter missing from registry", zap.String("step", string(params.Type)))
		return stepResult
	}

	start := time.Now()
	output, err := adapter.Transform(ctx, input, params)
	stepResult.DurationMs = time.Since(start).Milliseconds()

	if err != nil {
		stepResult.Error = err.Error()
		o.logger.Warn("enhancement step failed, continuing with remaining plan",
			zap.String("step", string(params.Type)),
			zap.String("adapter", adapter.Name()),
			zap.Int64("duration_ms", stepResult.DurationMs),
			zap.Error(err),
		)
		return stepResult
	}

	stepResult.Success = true
	stepResult.Output = output
	o.logger.Info("enhancement step succeeded",
		zap.String("step", string(params.Type)),
		zap.Int64("duration_ms", stepResult.DurationMs),
	)
	return stepResult
}
