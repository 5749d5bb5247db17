package ai

import "context"

// GenerateMetadata contains metadata about the generation
type GenerateMetadata struct {
	Provider     string
	Model        string
	RequestType  string
	UsedFallback bool
}

// ProviderResult is the raw output of one provider call.
type ProviderResult struct {
	Text  string
	Model string
}

// VisionProvider answers a prompt about a single image.
type VisionProvider interface {
	Name() string
	Model() string
	DescribeImage(ctx context.Context, prompt string, image []byte, mimeType string) (ProviderResult, error)
}

// ImageRequest is a request bound to a model set and request type.
type ImageRequest interface {
	GenerateFromImage(ctx context.Context, prompt, imageBase64, imageFormat string) (string, *GenerateMetadata, error)
}

// MIMETypeForFormat maps a short image format name to a MIME type.
func MIMETypeForFormat(format string) string {
	switch format {
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
