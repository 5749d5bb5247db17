package avatar

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/kapu/avatar-meme-bot-go/internal/prompt"
	"github.com/kapu/avatar-meme-bot-go/internal/service/ai"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeImageRequest struct {
	text       string
	err        error
	panicWith  any
	calls      int
	gotPrompt  string
	gotImage   string
	gotFormat  string
}

func (f *fakeImageRequest) GenerateFromImage(_ context.Context, prompt, imageBase64, imageFormat string) (string, *ai.GenerateMetadata, error) {
	f.calls++
	f.gotPrompt = prompt
	f.gotImage = imageBase64
	f.gotFormat = imageFormat
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	if f.err != nil {
		return "", nil, f.err
	}
	return f.text, &ai.GenerateMetadata{Provider: "fake", Model: "fake-vision"}, nil
}

type fakeRegistry struct {
	models      map[string]*ai.ModelSet
	request     *fakeImageRequest
	requestType string
}

func (f *fakeRegistry) ListAvailableModels() map[string]*ai.ModelSet {
	return f.models
}

func (f *fakeRegistry) NewImageRequest(_ *ai.ModelSet, requestType string) ai.ImageRequest {
	f.requestType = requestType
	return f.request
}

func registryWith(req *fakeImageRequest) *fakeRegistry {
	return &fakeRegistry{
		models:  map[string]*ai.ModelSet{ai.VisionGeneral: {Name: ai.VisionGeneral}},
		request: req,
	}
}

func TestDescribeWithoutVisionModelReturnsFallback(t *testing.T) {
	req := &fakeImageRequest{text: "never"}
	registry := &fakeRegistry{models: map[string]*ai.ModelSet{}, request: req}

	d := NewVisionDescriber(registry, "", zap.NewNop())
	assert.Equal(t, FallbackDescription, d.Describe(context.Background(), []byte{1}, ""))
	assert.Equal(t, 0, req.calls)
}

func TestDescribeWithNilRegistryReturnsFallback(t *testing.T) {
	d := NewVisionDescriber(nil, "", zap.NewNop())
	assert.Equal(t, FallbackDescription, d.Describe(context.Background(), []byte{1}, ""))
}

func TestDescribeFallbackOnFailures(t *testing.T) {
	cases := map[string]*fakeImageRequest{
		"error": {err: errors.New("timeout")},
		"empty": {text: "   "},
		"panic": {panicWith: "nil map"},
	}

	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			d := NewVisionDescriber(registryWith(req), "", zap.NewNop())
			assert.Equal(t, FallbackDescription, d.Describe(context.Background(), []byte{1}, ""))
			assert.Equal(t, 1, req.calls)
		})
	}
}

func TestDescribeTrimsAndUsesDefaultPrompt(t *testing.T) {
	req := &fakeImageRequest{text: "  a smiling shiba inu \n"}
	registry := registryWith(req)
	d := NewVisionDescriber(registry, "", zap.NewNop())

	got := d.Describe(context.Background(), []byte("img"), "")

	assert.Equal(t, "a smiling shiba inu", got)
	assert.Equal(t, prompt.AvatarAnalysis, req.gotPrompt)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("img")), req.gotImage)
	assert.Equal(t, "jpeg", req.gotFormat)
	assert.Equal(t, "avatar_analysis", registry.requestType)
}

func TestDescribePrefersCustomPrompt(t *testing.T) {
	req := &fakeImageRequest{text: "ok"}
	d := NewVisionDescriber(registryWith(req), "configured prompt", zap.NewNop())

	d.Describe(context.Background(), []byte{1}, "")
	assert.Equal(t, "configured prompt", req.gotPrompt)

	d.Describe(context.Background(), []byte{1}, "custom")
	assert.Equal(t, "custom", req.gotPrompt)
}
