package pipeline

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/fleveque/photo-autopilot/internal/model"
	"github.com/fleveque/photo-autopilot/internal/provider"
)

// mockAdapter is a scriptable provider.Adapter. It records the input image
// it received so tests can assert what each step was fed.
type mockAdapter struct {
	name     string
	output   model.ImageRef
	err      error
	received []model.ImageRef
}

func (m *mockAdapter) Transform(_ context.Context, image model.ImageRef, _ model.StepParams) (model.ImageRef, error) {
	m.received = append(m.received, image)
	if m.err != nil {
		return model.ImageRef{}, m.err
	}
	return m.output, nil
}

func (m *mockAdapter) Name() string { return m.name }

func ref(data string) model.ImageRef {
	return model.ImageRef{Data: []byte(data), MediaType: model.MediaTypeJPEG}
}

func fullPlan() model.EnhancementPlan {
	return model.EnhancementPlan{
		Tone:     model.ToneStep{Enabled: true, Subtype: model.ToneGeneral, Intensity: 1.0},
		Detail:   model.DetailStep{Enabled: true, Strength: 1},
		Upscale:  model.UpscaleStep{Enabled: true, Scale: 2},
		Priority: []model.StepType{model.StepTone, model.StepDetail, model.StepUpscale},
	}
}

func TestRun_AllStepsSucceed(t *testing.T) {
	tone := &mockAdapter{name: "tone", output: ref("after-tone")}
	detail := &mockAdapter{name: "detail", output: ref("after-detail")}
	upscale := &mockAdapter{name: "upscale", output: ref("after-upscale")}

	o := NewOrchestrator(provider.Registry{
		model.StepTone:    tone,
		model.StepDetail:  detail,
		model.StepUpscale: upscale,
	}, zap.NewNop())

	original := ref("original")
	result := o.Run(context.Background(), original, fullPlan())

	if result.StepsAttempted != 3 || result.StepsSucceeded != 3 {
		t.Fatalf("attempted/succeeded = %d/%d, want 3/3", result.StepsAttempted, result.StepsSucceeded)
	}
	if !bytes.Equal(result.Final.Data, []byte("after-upscale")) {
		t.Errorf("final = %q, want output of last step", result.Final.Data)
	}

	// Each step must receive the previous step's output.
	if !bytes.Equal(tone.received[0].Data, []byte("original")) {
		t.Errorf("tone received %q, want original", tone.received[0].Data)
	}
	if !bytes.Equal(detail.received[0].Data, []byte("after-tone")) {
		t.Errorf("detail received %q, want tone output", detail.received[0].Data)
	}
	if !bytes.Equal(upscale.received[0].Data, []byte("after-detail")) {
		t.Errorf("upscale received %q, want detail output", upscale.received[0].Data)
	}
}

func TestRun_FailedStepIsSkippedInChain(t *testing.T) {
	// Tone fails; detail and upscale succeed. Detail must receive the
	// ORIGINAL image (not the failed step's non-output) and the final image
	// is the upscale output.
	tone := &mockAdapter{name: "tone", err: provider.NewError(provider.KindRateLimited, "tone", "slow down", nil)}
	detail := &mockAdapter{name: "detail", output: ref("after-detail")}
	upscale := &mockAdapter{name: "upscale", output: ref("after-upscale")}

	o := NewOrchestrator(provider.Registry{
		model.StepTone:    tone,
		model.StepDetail:  detail,
		model.StepUpscale: upscale,
	}, zap.NewNop())

	result := o.Run(context.Background(), ref("original"), fullPlan())

	if result.StepsAttempted != 3 {
		t.Errorf("attempted = %d, want 3 (failure must not abort the plan)", result.StepsAttempted)
	}
	if result.StepsSucceeded != 2 {
		t.Errorf("succeeded = %d, want 2", result.StepsSucceeded)
	}
	if result.Steps[0].Success || result.Steps[0].Error == "" {
		t.Errorf("step 0 = %+v, want recorded failure", result.Steps[0])
	}
	if !result.Steps[1].Success || !result.Steps[2].Success {
		t.Errorf("steps 1-2 should succeed: %+v, %+v", result.Steps[1], result.Steps[2])
	}
	if !bytes.Equal(detail.received[0].Data, []byte("original")) {
		t.Errorf("detail received %q, want original after tone failure", detail.received[0].Data)
	}
	if !bytes.Equal(result.Final.Data, []byte("after-upscale")) {
		t.Errorf("final = %q, want upscale output", result.Final.Data)
	}
}

func TestRun_AllStepsFailReturnsOriginal(t *testing.T) {
	failing := func(name string) *mockAdapter {
		return &mockAdapter{name: name, err: errors.New("provider down")}
	}

	o := NewOrchestrator(provider.Registry{
		model.StepTone:    failing("tone"),
		model.StepDetail:  failing("detail"),
		model.StepUpscale: failing("upscale"),
	}, zap.NewNop())

	original := ref("original")
	result := o.Run(context.Background(), original, fullPlan())

	if result.StepsAttempted != 3 || result.StepsSucceeded != 0 {
		t.Errorf("attempted/succeeded = %d/%d, want 3/0", result.StepsAttempted, result.StepsSucceeded)
	}
	if !bytes.Equal(result.Final.Data, original.Data) {
		t.Errorf("final = %q, want the untouched original", result.Final.Data)
	}
}

func TestRun_EmptyPlan(t *testing.T) {
	o := NewOrchestrator(provider.Registry{}, zap.NewNop())

	original := ref("original")
	result := o.Run(context.Background(), original, model.EnhancementPlan{})

	if result.StepsAttempted != 0 || len(result.Steps) != 0 {
		t.Errorf("empty plan ran steps: %+v", result)
	}
	if !bytes.Equal(result.Final.Data, original.Data) {
		t.Errorf("final = %q, want original", result.Final.Data)
	}
}

func TestRun_MissingAdapterRecordsFailure(t *testing.T) {
	// Registry without an upscale adapter: the step fails, the run continues.
	o := NewOrchestrator(provider.Registry{
		model.StepTone:   &mockAdapter{name: "tone", output: ref("after-tone")},
		model.StepDetail: &mockAdapter{name: "detail", output: ref("after-detail")},
	}, zap.NewNop())

	result := o.Run(context.Background(), ref("original"), fullPlan())

	if result.StepsAttempted != 3 || result.StepsSucceeded != 2 {
		t.Fatalf("attempted/succeeded = %d/%d, want 3/2", result.StepsAttempted, result.StepsSucceeded)
	}
	last := result.Steps[2]
	if last.Success || last.Error == "" {
		t.Errorf("missing adapter should record a failed step, got %+v", last)
	}
	if !bytes.Equal(result.Final.Data, []byte("after-detail")) {
		t.Errorf("final = %q, want last successful output", result.Final.Data)
	}
}

func TestRun_CancellationStopsBetweenSteps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	tone := &mockAdapter{name: "tone", output: ref("after-tone")}
	// Cancel as a side effect of the first step completing.
	cancelling := &cancelOnTransform{inner: tone, cancel: cancel}

	detail := &mockAdapter{name: "detail", output: ref("after-detail")}

	o := NewOrchestrator(provider.Registry{
		model.StepTone:   cancelling,
		model.StepDetail: detail,
	}, zap.NewNop())

	plan := model.EnhancementPlan{
		Tone:     model.ToneStep{Enabled: true, Subtype: model.ToneGeneral, Intensity: 1.0},
		Detail:   model.DetailStep{Enabled: true, Strength: 1},
		Priority: []model.StepType{model.StepTone, model.StepDetail},
	}

	result := o.Run(ctx, ref("original"), plan)

	if result.StepsAttempted != 1 {
		t.Errorf("attempted = %d, want 1 (cancelled before second step)", result.StepsAttempted)
	}
	if len(detail.received) != 0 {
		t.Errorf("detail adapter should never run after cancellation")
	}
	if !bytes.Equal(result.Final.Data, []byte("after-tone")) {
		t.Errorf("final = %q, want the completed step's output", result.Final.Data)
	}
}

type cancelOnTransform struct {
	inner  provider.Adapter
	cancel context.CancelFunc
}

func (c *cancelOnTransform) Transform(ctx context.Context, image model.ImageRef, params model.StepParams) (model.ImageRef, error) {
	out, err := c.inner.Transform(ctx, image, params)
	c.cancel()
	return out, err
}

func (c *cancelOnTransform) Name() string { return c.inner.Name() }
