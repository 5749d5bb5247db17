package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	boterrors "github.com/kapu/avatar-meme-bot-go/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProvider struct {
	name     string
	text     string
	err      error
	calls    int
	gotImage []byte
	gotMIME  string
}

func (f *fakeProvider) Name() string  { return f.name }
func (f *fakeProvider) Model() string { return f.name + "-model" }

func (f *fakeProvider) DescribeImage(_ context.Context, _ string, image []byte, mimeType string) (ProviderResult, error) {
	f.calls++
	f.gotImage = image
	f.gotMIME = mimeType
	if f.err != nil {
		return ProviderResult{}, f.err
	}
	return ProviderResult{Text: f.text, Model: f.Model()}, nil
}

func encoded(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func TestModelManagerWithoutProvidersHasNoVisionModel(t *testing.T) {
	mm := NewModelManagerWithProviders(zap.NewNop())
	_, ok := mm.ListAvailableModels()[VisionGeneral]
	assert.False(t, ok)
}

func TestNewModelManagerWithoutKeys(t *testing.T) {
	mm, err := NewModelManager(context.Background(), ModelManagerConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, mm.ListAvailableModels())
}

func TestNewModelManagerWithOnlyOpenAIKey(t *testing.T) {
	mm, err := NewModelManager(context.Background(), ModelManagerConfig{OpenAIAPIKey: "sk-test"}, zap.NewNop())
	require.NoError(t, err)

	set := mm.ListAvailableModels()[VisionGeneral]
	require.NotNil(t, set)
	assert.Equal(t, []string{"OpenAI"}, set.ProviderNames())
}

func TestOpenAIProviderIsNeverNil(t *testing.T) {
	var provider VisionProvider = NewOpenAIVisionProvider("", "gpt-4o-mini", zap.NewNop())
	require.NotNil(t, provider)
	assert.Equal(t, "OpenAI", provider.Name())
	assert.Equal(t, "gpt-4o-mini", provider.Model())
}

func TestRequestUsesPrimaryProvider(t *testing.T) {
	primary := &fakeProvider{name: "Gemini", text: "a cat"}
	fallback := &fakeProvider{name: "OpenAI", text: "unused"}
	mm := NewModelManagerWithProviders(zap.NewNop(), primary, fallback)

	set := mm.ListAvailableModels()[VisionGeneral]
	require.NotNil(t, set)
	assert.Equal(t, []string{"Gemini", "OpenAI"}, set.ProviderNames())

	text, meta, err := mm.NewImageRequest(set, "avatar_analysis").
		GenerateFromImage(context.Background(), "describe", encoded([]byte{1, 2, 3}), "jpeg")
	require.NoError(t, err)
	assert.Equal(t, "a cat", text)
	assert.Equal(t, "Gemini", meta.Provider)
	assert.Equal(t, "avatar_analysis", meta.RequestType)
	assert.False(t, meta.UsedFallback)
	assert.Equal(t, []byte{1, 2, 3}, primary.gotImage)
	assert.Equal(t, "image/jpeg", primary.gotMIME)
	assert.Equal(t, 0, fallback.calls)
}

func TestRequestFallsBackOnPrimaryFailure(t *testing.T) {
	primary := &fakeProvider{name: "Gemini", err: errors.New("503 unavailable")}
	fallback := &fakeProvider{name: "OpenAI", text: "a dog"}
	mm := NewModelManagerWithProviders(zap.NewNop(), primary, fallback)
	set := mm.ListAvailableModels()[VisionGeneral]

	text, meta, err := mm.NewImageRequest(set, "avatar_analysis").
		GenerateFromImage(context.Background(), "describe", encoded([]byte{9}), "png")
	require.NoError(t, err)
	assert.Equal(t, "a dog", text)
	assert.True(t, meta.UsedFallback)
	assert.Equal(t, "image/png", fallback.gotMIME)
}

func TestRequestOpensCircuitAfterRepeatedFailures(t *testing.T) {
	primary := &fakeProvider{name: "Gemini", err: errors.New("boom")}
	mm := NewModelManagerWithProviders(zap.NewNop(), primary)
	set := mm.ListAvailableModels()[VisionGeneral]
	req := mm.NewImageRequest(set, "avatar_analysis")

	for i := 0; i < 3; i++ {
		_, _, err := req.GenerateFromImage(context.Background(), "p", encoded([]byte{1}), "jpeg")
		require.Error(t, err)
	}
	assert.Equal(t, 3, primary.calls)

	_, _, err := req.GenerateFromImage(context.Background(), "p", encoded([]byte{1}), "jpeg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit open")
	assert.Equal(t, 3, primary.calls)
}

func TestRequestRejectsInvalidBase64(t *testing.T) {
	primary := &fakeProvider{name: "Gemini", text: "x"}
	req := NewRequest(NewModelSet(VisionGeneral, nil, primary), "avatar_analysis", nil)

	_, _, err := req.GenerateFromImage(context.Background(), "p", "!!not-base64!!", "jpeg")
	require.Error(t, err)
	assert.Equal(t, 0, primary.calls)
}

func TestRequestWithEmptyModelSet(t *testing.T) {
	req := NewRequest(&ModelSet{Name: VisionGeneral}, "avatar_analysis", nil)
	_, _, err := req.GenerateFromImage(context.Background(), "p", encoded([]byte{1}), "jpeg")
	require.ErrorIs(t, err, boterrors.ErrVisionUnavailable)
}

func TestMIMETypeForFormat(t *testing.T) {
	assert.Equal(t, "image/jpeg", MIMETypeForFormat("jpeg"))
	assert.Equal(t, "image/jpeg", MIMETypeForFormat(""))
	assert.Equal(t, "image/webp", MIMETypeForFormat("webp"))
}
