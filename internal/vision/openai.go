package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/fleveque/photo-autopilot/internal/model"
)

// OpenAIClient implements the Client interface using OpenAI's vision chat as
// a fallback. The image is attached as a data URL; function calling returns
// the structured issue list.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates an OpenAI-powered quality-issue tagger.
func NewOpenAIClient(apiKey string, modelName string) *OpenAIClient {
	return &OpenAIClient{
		client: openai.NewClient(apiKey),
		model:  modelName,
	}
}

func (o *OpenAIClient) ProviderName() string { return "openai" }
func (o *OpenAIClient) ModelName() string    { return o.model }

func (o *OpenAIClient) DetectIssues(ctx context.Context, imageData []byte, mime string) ([]model.IssueTag, error) {
	// OpenAI's Parameters field accepts `any` — we pass a raw JSON schema map.
	tools := []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        "report_quality_issues",
				Description: "Report the quality issues visible in the photo. Call exactly once; pass an empty list if the photo is fine.",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"issues": map[string]interface{}{
							"type": "array",
							"items": map[string]interface{}{
								"type": "string",
								"enum": []string{
									"underexposed", "overexposed", "low_contrast", "color_cast",
									"blurry", "noisy", "compression_artifacts", "soft_details",
								},
							},
							"description": "Quality-issue tags observed in the photo.",
						},
					},
					"required": []string{"issues"},
				},
			},
		},
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(imageData))

	messages := []openai.ChatCompletionMessage{
		{
			Role: openai.ChatMessageRoleSystem,
			Content: `You are a photo quality inspector. Examine the attached photo for coarse quality defects
and report them via the report_quality_issues function using only the enumerated tags.`,
		},
		{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: buildPrompt()},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL,
						Detail: openai.ImageURLDetailLow, // coarse defects don't need full-res tiles
					},
				},
			},
		},
	}

	for i := 0; i < 3; i++ {
		resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    o.model,
			Messages: messages,
			Tools:    tools,
		})
		if err != nil {
			return nil, fmt.Errorf("openai API call: %w", err)
		}

		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("openai returned no choices")
		}
		choice := resp.Choices[0]

		if len(choice.Message.ToolCalls) > 0 {
			messages = append(messages, choice.Message)

			for _, toolCall := range choice.Message.ToolCalls {
				if toolCall.Function.Name == "report_quality_issues" {
					var report issueReport
					if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &report); err != nil {
						return nil, fmt.Errorf("parsing tool arguments: %w", err)
					}
					return filterKnownTags(report.Issues), nil
				}

				messages = append(messages, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    "Received. Please call report_quality_issues with the tags.",
					ToolCallID: toolCall.ID,
				})
			}
			continue
		}

		if choice.FinishReason == "stop" {
			return nil, fmt.Errorf("OpenAI ended without reporting quality issues")
		}
	}

	return nil, fmt.Errorf("exceeded max turns without a quality report")
}
