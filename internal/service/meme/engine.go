package meme

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/kapu/avatar-meme-bot-go/internal/constants"
	"github.com/kapu/avatar-meme-bot-go/internal/domain"
	"github.com/kapu/avatar-meme-bot-go/pkg/errors"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Engine is the external template-generation capability.
type Engine interface {
	Ping(ctx context.Context) error
	LoadTemplates(ctx context.Context, dir string) error
	ListTemplates() []*domain.Template
	Render(ctx context.Context, key string, input domain.RenderInput) ([]byte, error)
	TemplatesDir() string
}

// HTTPEngine talks to a meme-generator server (`meme run`).
type HTTPEngine struct {
	baseURL      string
	templatesDir string
	httpClient   *http.Client
	renderClient *http.Client
	concurrency  int
	logger       *zap.Logger

	mu        sync.RWMutex
	templates []*domain.Template
}

type HTTPEngineConfig struct {
	BaseURL      string
	TemplatesDir string
	Concurrency  int
}

func NewHTTPEngine(cfg HTTPEngineConfig, logger *zap.Logger) *HTTPEngine {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = constants.MemeConfig.InfoFetchConcurrency
	}
	return &HTTPEngine{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		templatesDir: cfg.TemplatesDir,
		httpClient:   &http.Client{Timeout: constants.MemeConfig.EngineRequestTimeout},
		renderClient: &http.Client{Timeout: constants.MemeConfig.EngineRenderTimeout},
		concurrency:  concurrency,
		logger:       logger,
	}
}

type templateInfo struct {
	Key        string               `json:"key"`
	Keywords   []string             `json:"keywords"`
	Tags       []string             `json:"tags"`
	ParamsType domain.TemplateParams `json:"params_type"`
}

func (e *HTTPEngine) TemplatesDir() string {
	return e.templatesDir
}

// Ping checks that the server answers.
func (e *HTTPEngine) Ping(ctx context.Context) error {
	var version string
	return e.getJSON(ctx, "/meme/version", &version)
}

// LoadTemplates reads every template's metadata from the server. The server loads
// its templates from dir (MEME_HOME) at startup.
func (e *HTTPEngine) LoadTemplates(ctx context.Context, dir string) error {
	if dir != "" {
		if _, err := os.Stat(dir); err != nil {
			return fmt.Errorf("meme templates directory %q: %w", dir, err)
		}
	}

	var keys []string
	if err := e.getJSON(ctx, "/memes/keys", &keys); err != nil {
		return err
	}

	infos := make([]*templateInfo, len(keys))
	var failMu sync.Mutex
	var firstErr error

	p := pool.New().WithMaxGoroutines(e.concurrency)
	for idx, key := range keys {
		p.Go(func() {
			var info templateInfo
			if err := e.getJSON(ctx, "/memes/"+url.PathEscape(key)+"/info", &info); err != nil {
				failMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				failMu.Unlock()
				e.logger.Warn("Failed to load meme template info",
					zap.String("key", key),
					zap.Error(err),
				)
				return
			}
			if info.Key == "" {
				info.Key = key
			}
			infos[idx] = &info
		})
	}
	p.Wait()

	templates := make([]*domain.Template, 0, len(infos))
	for _, info := range infos {
		if info == nil {
			continue
		}
		templates = append(templates, e.newTemplate(info))
	}

	if len(keys) > 0 && len(templates) == 0 {
		return fmt.Errorf("no meme template info could be loaded: %w", firstErr)
	}

	e.mu.Lock()
	e.templates = templates
	e.mu.Unlock()

	e.logger.Info("Meme templates loaded",
		zap.Int("templates", len(templates)),
		zap.Int("skipped", len(keys)-len(templates)),
		zap.String("dir", dir),
	)
	return nil
}

// ListTemplates returns templates in server key order.
func (e *HTTPEngine) ListTemplates() []*domain.Template {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*domain.Template, len(e.templates))
	copy(out, e.templates)
	return out
}

func (e *HTTPEngine) newTemplate(info *templateInfo) *domain.Template {
	key := info.Key
	return &domain.Template{
		Key:      key,
		Keywords: info.Keywords,
		Tags:     info.Tags,
		Params:   info.ParamsType,
		Renderer: domain.RendererFunc(func(ctx context.Context, input domain.RenderInput) ([]byte, error) {
			return e.Render(ctx, key, input)
		}),
	}
}

// Render posts images, texts and args as multipart form data and returns the image.
func (e *HTTPEngine) Render(ctx context.Context, key string, input domain.RenderInput) ([]byte, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)

	for i, img := range input.Images {
		name := img.Name
		if name == "" {
			name = fmt.Sprintf("image%d", i)
		}
		part, err := form.CreateFormFile("images", name)
		if err != nil {
			return nil, errors.NewEngineError("failed to build render request", key, 500, err)
		}
		if _, err := part.Write(img.Data); err != nil {
			return nil, errors.NewEngineError("failed to build render request", key, 500, err)
		}
	}
	for _, text := range input.Texts {
		if err := form.WriteField("texts", text); err != nil {
			return nil, errors.NewEngineError("failed to build render request", key, 500, err)
		}
	}

	args := input.Args
	if args == nil {
		args = map[string]any{}
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, errors.NewEngineError("failed to encode render args", key, 400, err)
	}
	if err := form.WriteField("args", string(argsJSON)); err != nil {
		return nil, errors.NewEngineError("failed to build render request", key, 500, err)
	}
	if err := form.Close(); err != nil {
		return nil, errors.NewEngineError("failed to build render request", key, 500, err)
	}

	endpoint := e.baseURL + "/memes/" + url.PathEscape(key) + "/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, errors.NewEngineError("failed to create render request", key, 500, err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := e.renderClient.Do(req)
	if err != nil {
		return nil, errors.NewEngineError("render request failed", key, 503, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewEngineError("failed to read rendered image", key, 500, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewEngineError(
			fmt.Sprintf("meme engine error: %s: %s", resp.Status, strings.TrimSpace(string(data))),
			key, resp.StatusCode, nil,
		)
	}
	if len(data) == 0 {
		return nil, errors.NewEngineError("meme engine returned an empty image", key, 502, nil)
	}
	return data, nil
}

func (e *HTTPEngine) getJSON(ctx context.Context, path string, dest any) error {
	endpoint := e.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.NewAPIError("failed to create request", 500, map[string]any{
			"url": endpoint,
		}).WithCause(err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return errors.NewAPIError("meme engine request failed", 503, map[string]any{
			"url": endpoint,
		}).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return errors.NewAPIError(
			fmt.Sprintf("meme engine error: %s", resp.Status),
			resp.StatusCode,
			map[string]any{
				"url":  endpoint,
				"body": string(bodyBytes),
			},
		)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return errors.NewAPIError("failed to decode response", 500, map[string]any{
			"url": endpoint,
		}).WithCause(err)
	}
	return nil
}
