package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const visionMaxOutputTokens = 300

// GeminiVisionProvider sends inline image parts to a Gemini model.
type GeminiVisionProvider struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

func NewGeminiVisionProvider(client *genai.Client, model string, logger *zap.Logger) *GeminiVisionProvider {
	return &GeminiVisionProvider{
		client: client,
		model:  model,
		logger: logger,
	}
}

func (g *GeminiVisionProvider) Name() string {
	return "Gemini"
}

func (g *GeminiVisionProvider) Model() string {
	return g.model
}

func (g *GeminiVisionProvider) DescribeImage(ctx context.Context, prompt string, image []byte, mimeType string) (ProviderResult, error) {
	if g.client == nil {
		return ProviderResult{}, fmt.Errorf("gemini client not initialized")
	}

	temperature := float32(0.4)
	config := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: visionMaxOutputTokens,
	}

	g.logger.Debug("Describing image with Gemini",
		zap.String("model", g.model),
		zap.Int("image_bytes", len(image)),
	)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{
		{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				{Text: prompt},
				{InlineData: &genai.Blob{Data: image, MIMEType: mimeType}},
			},
		},
	}, config)
	if err != nil {
		g.logger.Warn("Gemini vision request failed", zap.Error(err))
		return ProviderResult{}, err
	}

	text := extractTextFromGeminiResponse(resp)
	if text == "" {
		return ProviderResult{}, fmt.Errorf("empty response from Gemini")
	}

	return ProviderResult{Text: text, Model: g.model}, nil
}

// OpenAIVisionProvider sends the image as a data URL content part.
type OpenAIVisionProvider struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewOpenAIVisionProvider builds the provider. Callers decide whether a key is
// configured.
func NewOpenAIVisionProvider(apiKey, model string, logger *zap.Logger) *OpenAIVisionProvider {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIVisionProvider{
		client: &client,
		model:  model,
		logger: logger,
	}
}

func (o *OpenAIVisionProvider) Name() string {
	return "OpenAI"
}

func (o *OpenAIVisionProvider) Model() string {
	return o.model
}

func (o *OpenAIVisionProvider) DescribeImage(ctx context.Context, prompt string, image []byte, mimeType string) (ProviderResult, error) {
	if o.client == nil {
		return ProviderResult{}, fmt.Errorf("OpenAI client not initialized")
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))

	o.logger.Debug("Describing image with OpenAI",
		zap.String("model", o.model),
		zap.Int("image_bytes", len(image)),
	)

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL,
				}),
			}),
		},
		MaxCompletionTokens: openai.Int(visionMaxOutputTokens),
	})
	if err != nil {
		o.logger.Warn("OpenAI vision request failed", zap.Error(err))
		return ProviderResult{}, err
	}

	if len(resp.Choices) == 0 {
		return ProviderResult{}, fmt.Errorf("no choices in OpenAI response")
	}

	o.logger.Debug("OpenAI vision response received",
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
	)

	return ProviderResult{Text: resp.Choices[0].Message.Content, Model: o.model}, nil
}

func extractTextFromGeminiResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return ""
	}

	var texts []string
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
	}

	return strings.Join(texts, "")
}
