package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/fleveque/photo-autopilot/internal/model"
)

// AnthropicClient implements the Client interface using Claude's native
// vision support: the image goes in as a base64 content block and Claude
// answers through a custom tool so we get structured JSON back.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicClient creates a Claude-powered quality-issue tagger.
func NewAnthropicClient(apiKey string, modelName string) *AnthropicClient {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &AnthropicClient{
		client: &client,
		model:  modelName,
	}
}

func (a *AnthropicClient) ProviderName() string { return "anthropic" }
func (a *AnthropicClient) ModelName() string    { return a.model }

func (a *AnthropicClient) DetectIssues(ctx context.Context, imageData []byte, mime string) ([]model.IssueTag, error) {
	// Define our custom tool for structured output. Claude "submits" its
	// answer by calling the tool, so we never parse free-form prose.
	reportTool := anthropic.ToolParam{
		Name:        "report_quality_issues",
		Description: param.NewOpt("Report the quality issues visible in the photo. Call this exactly once with every applicable tag, or with an empty list if the photo is fine."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: map[string]interface{}{
				"issues": map[string]interface{}{
					"type":        "array",
					"description": "Quality-issue tags observed in the photo.",
					"items": map[string]interface{}{
						"type": "string",
						"enum": []string{
							"underexposed", "overexposed", "low_contrast", "color_cast",
							"blurry", "noisy", "compression_artifacts", "soft_details",
						},
					},
				},
			},
		},
	}

	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(
			anthropic.NewImageBlockBase64(mime, base64.StdEncoding.EncodeToString(imageData)),
			anthropic.NewTextBlock(buildPrompt()),
		),
	}
	tools := []anthropic.ToolUnionParam{
		{OfTool: &reportTool},
	}

	// Short agentic loop: one turn normally suffices, but give Claude a
	// couple of chances in case it narrates before calling the tool.
	for i := 0; i < 3; i++ {
		message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(a.model),
			MaxTokens: 512,
			Messages:  messages,
			Tools:     tools,
		})
		if err != nil {
			return nil, fmt.Errorf("anthropic API call: %w", err)
		}

		for _, block := range message.Content {
			toolUse, ok := block.AsAny().(anthropic.ToolUseBlock)
			if !ok || toolUse.Name != "report_quality_issues" {
				continue
			}

			inputBytes, err := json.Marshal(toolUse.Input)
			if err != nil {
				return nil, fmt.Errorf("marshaling tool input: %w", err)
			}

			var report issueReport
			if err := json.Unmarshal(inputBytes, &report); err != nil {
				return nil, fmt.Errorf("parsing tool input: %w", err)
			}

			return filterKnownTags(report.Issues), nil
		}

		if message.StopReason == "end_turn" {
			return nil, fmt.Errorf("Claude ended without reporting quality issues")
		}

		messages = append(messages, message.ToParam())
	}

	return nil, fmt.Errorf("exceeded max turns without a quality report")
}
