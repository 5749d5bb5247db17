package avatar

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/kapu/avatar-meme-bot-go/internal/constants"
	"github.com/kapu/avatar-meme-bot-go/internal/prompt"
	"github.com/kapu/avatar-meme-bot-go/internal/service/ai"
	"github.com/kapu/avatar-meme-bot-go/internal/util"
	"go.uber.org/zap"
)

// FallbackDescription is returned whenever vision analysis cannot be performed.
const FallbackDescription = prompt.AvatarFallbackDescription

// Describer turns image bytes into a short description. It never fails: when the
// image cannot be analyzed it returns FallbackDescription.
type Describer interface {
	Describe(ctx context.Context, image []byte, customPrompt string) string
}

// ModelRegistry exposes configured model sets and builds requests against them.
type ModelRegistry interface {
	ListAvailableModels() map[string]*ai.ModelSet
	NewImageRequest(model *ai.ModelSet, requestType string) ai.ImageRequest
}

type VisionDescriber struct {
	registry      ModelRegistry
	defaultPrompt string
	logger        *zap.Logger
}

// NewVisionDescriber builds a describer. An empty defaultPrompt selects the built-in one.
func NewVisionDescriber(registry ModelRegistry, defaultPrompt string, logger *zap.Logger) *VisionDescriber {
	if defaultPrompt == "" {
		defaultPrompt = prompt.AvatarAnalysis
	}
	return &VisionDescriber{
		registry:      registry,
		defaultPrompt: defaultPrompt,
		logger:        logger,
	}
}

func (d *VisionDescriber) Describe(ctx context.Context, image []byte, customPrompt string) (description string) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Vision describer panicked, using default description", zap.Any("panic", r))
			description = FallbackDescription
		}
	}()

	imageBase64 := base64.StdEncoding.EncodeToString(image)

	promptText := customPrompt
	if promptText == "" {
		promptText = d.defaultPrompt
	}

	var model *ai.ModelSet
	if d.registry != nil {
		model = d.registry.ListAvailableModels()[constants.AvatarConfig.VisionModelName]
	}
	if model == nil {
		d.logger.Warn("Vision model not configured, using default description",
			zap.String("model", constants.AvatarConfig.VisionModelName),
		)
		return FallbackDescription
	}

	request := d.registry.NewImageRequest(model, constants.AvatarConfig.RequestType)
	text, metadata, err := request.GenerateFromImage(ctx, promptText, imageBase64, constants.AvatarConfig.ImageFormat)
	if err != nil {
		d.logger.Warn("Vision model call failed, using default description", zap.Error(err))
		return FallbackDescription
	}

	text = strings.TrimSpace(text)
	if text == "" {
		d.logger.Warn("Vision model returned an empty response, using default description")
		return FallbackDescription
	}

	fields := []zap.Field{zap.String("preview", util.TruncateString(text, constants.AvatarConfig.ReplyPreviewRunes))}
	if metadata != nil {
		fields = append(fields,
			zap.String("provider", metadata.Provider),
			zap.String("model", metadata.Model),
			zap.Bool("used_fallback", metadata.UsedFallback),
		)
	}
	d.logger.Info("Avatar described", fields...)
	return text
}
