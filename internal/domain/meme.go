package domain

import "context"

// RenderInput carries the inputs for one meme rendering call.
type RenderInput struct {
	Images []RenderImage
	Texts  []string
	Args   map[string]any
}

// RenderImage is a named image passed to a template.
type RenderImage struct {
	Name string
	Data []byte
}

// Renderer produces encoded image bytes for a template.
type Renderer interface {
	Render(ctx context.Context, input RenderInput) ([]byte, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, input RenderInput) ([]byte, error)

func (f RendererFunc) Render(ctx context.Context, input RenderInput) ([]byte, error) {
	return f(ctx, input)
}

// TemplateParams describes how many inputs a template accepts.
type TemplateParams struct {
	MinImages    int      `json:"min_images"`
	MaxImages    int      `json:"max_images"`
	MinTexts     int      `json:"min_texts"`
	MaxTexts     int      `json:"max_texts"`
	DefaultTexts []string `json:"default_texts"`
}

// Template is an immutable meme template with lookup aliases.
type Template struct {
	Key      string
	Keywords []string
	Tags     []string
	Params   TemplateParams
	Renderer Renderer
}

// FirstTag returns the template's first category tag, or fallback when none is set.
func (t *Template) FirstTag(fallback string) string {
	if t == nil || len(t.Tags) == 0 || t.Tags[0] == "" {
		return fallback
	}
	return t.Tags[0]
}
