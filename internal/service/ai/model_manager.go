package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/kapu/avatar-meme-bot-go/internal/constants"
	"github.com/kapu/avatar-meme-bot-go/internal/util"
	"github.com/kapu/avatar-meme-bot-go/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// VisionGeneral is the logical model set used for avatar analysis.
const VisionGeneral = "vision_general"

// ModelSet is a logical model: an ordered list of providers (primary first) sharing
// one circuit breaker.
type ModelSet struct {
	Name      string
	providers []VisionProvider
	breaker   *util.CircuitBreaker
}

// NewModelSet builds a model set. Nil providers are skipped.
func NewModelSet(name string, breaker *util.CircuitBreaker, providers ...VisionProvider) *ModelSet {
	set := &ModelSet{Name: name, breaker: breaker}
	for _, p := range providers {
		if p != nil {
			set.providers = append(set.providers, p)
		}
	}
	return set
}

// ProviderNames lists provider names in call order.
func (s *ModelSet) ProviderNames() []string {
	names := make([]string, 0, len(s.providers))
	for _, p := range s.providers {
		names = append(names, p.Name())
	}
	return names
}

type ModelManagerConfig struct {
	GeminiAPIKey      string
	OpenAIAPIKey      string
	GeminiVisionModel string
	OpenAIVisionModel string
	EnableFallback    bool
}

// ModelManager is the registry of configured model sets.
type ModelManager struct {
	models map[string]*ModelSet
	logger *zap.Logger
}

func NewModelManager(ctx context.Context, cfg ModelManagerConfig, logger *zap.Logger) (*ModelManager, error) {
	geminiModel := cfg.GeminiVisionModel
	if geminiModel == "" {
		geminiModel = "gemini-2.5-flash"
	}
	openaiModel := cfg.OpenAIVisionModel
	if openaiModel == "" {
		openaiModel = "gpt-4o-mini"
	}

	var providers []VisionProvider

	if cfg.GeminiAPIKey != "" {
		geminiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		providers = append(providers, NewGeminiVisionProvider(geminiClient, geminiModel, logger))
	}

	// OpenAI is primary when Gemini is absent, otherwise only a fallback.
	if cfg.OpenAIAPIKey != "" && (len(providers) == 0 || cfg.EnableFallback) {
		providers = append(providers, NewOpenAIVisionProvider(cfg.OpenAIAPIKey, openaiModel, logger))
	}

	mm := NewModelManagerWithProviders(logger, providers...)
	if _, ok := mm.models[VisionGeneral]; ok {
		logger.Info("Vision model configured",
			zap.Strings("providers", mm.models[VisionGeneral].ProviderNames()),
		)
	} else {
		logger.Warn("No vision model configured, avatar analysis will use the default description")
	}
	return mm, nil
}

// NewModelManagerWithProviders registers vision_general over the given providers.
// Without providers the registry is empty.
func NewModelManagerWithProviders(logger *zap.Logger, providers ...VisionProvider) *ModelManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	mm := &ModelManager{
		models: make(map[string]*ModelSet),
		logger: logger,
	}

	breaker := util.NewCircuitBreaker(
		VisionGeneral,
		constants.CircuitBreakerConfig.FailureThreshold,
		constants.CircuitBreakerConfig.ResetTimeout,
		logger,
	)
	set := NewModelSet(VisionGeneral, breaker, providers...)
	if len(set.providers) > 0 {
		mm.models[VisionGeneral] = set
	}
	return mm
}

// ListAvailableModels returns a copy of the logical name to model set mapping.
func (mm *ModelManager) ListAvailableModels() map[string]*ModelSet {
	out := make(map[string]*ModelSet, len(mm.models))
	for name, set := range mm.models {
		out[name] = set
	}
	return out
}

// NewImageRequest binds a request to a model set.
func (mm *ModelManager) NewImageRequest(model *ModelSet, requestType string) ImageRequest {
	return NewRequest(model, requestType, mm.logger)
}

// Request runs an image prompt against a model set, falling through providers in order.
type Request struct {
	model       *ModelSet
	requestType string
	logger      *zap.Logger
}

func NewRequest(model *ModelSet, requestType string, logger *zap.Logger) *Request {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Request{model: model, requestType: requestType, logger: logger}
}

func (r *Request) GenerateFromImage(ctx context.Context, prompt, imageBase64, imageFormat string) (string, *GenerateMetadata, error) {
	if r.model == nil || len(r.model.providers) == 0 {
		return "", nil, errors.ErrVisionUnavailable
	}

	image, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 image: %w", err)
	}

	if r.model.breaker != nil && !r.model.breaker.CanExecute() {
		status := r.model.breaker.GetStatus()
		fields := []zap.Field{
			zap.String("model", r.model.Name),
			zap.Int("failure_count", status.FailureCount),
		}
		if status.NextRetryTime != nil {
			fields = append(fields, zap.Time("next_retry", *status.NextRetryTime))
		}
		r.logger.Warn("Vision request skipped, circuit open", fields...)
		return "", nil, fmt.Errorf("%s unavailable: circuit open", r.model.Name)
	}

	mimeType := MIMETypeForFormat(imageFormat)
	var errs []string
	for i, provider := range r.model.providers {
		result, callErr := provider.DescribeImage(ctx, prompt, image, mimeType)
		if callErr == nil {
			if r.model.breaker != nil {
				r.model.breaker.RecordSuccess()
			}
			return result.Text, &GenerateMetadata{
				Provider:     provider.Name(),
				Model:        result.Model,
				RequestType:  r.requestType,
				UsedFallback: i > 0,
			}, nil
		}

		r.logger.Warn("Vision provider failed",
			zap.String("provider", provider.Name()),
			zap.String("request_type", r.requestType),
			zap.Error(callErr),
		)
		errs = append(errs, fmt.Sprintf("%s: %v", provider.Name(), callErr))

		if ctx.Err() != nil {
			break
		}
	}

	if r.model.breaker != nil {
		r.model.breaker.RecordFailure()
	}
	return "", nil, fmt.Errorf("all vision providers failed: %s", strings.Join(errs, "; "))
}
