package meme

import (
	"context"
	"fmt"
	"strings"

	"github.com/kapu/avatar-meme-bot-go/internal/constants"
	"github.com/kapu/avatar-meme-bot-go/internal/domain"
	"github.com/kapu/avatar-meme-bot-go/internal/util"
	"github.com/kapu/avatar-meme-bot-go/pkg/errors"
	"go.uber.org/zap"
)

// Catalogue is what Service needs from a Catalog.
type Catalogue interface {
	EnsureLoaded(ctx context.Context) error
	Find(query string) (*domain.Template, bool)
	Random() (*domain.Template, bool)
	All() []*domain.Template
}

// MenuCategory is one tag group of the menu.
type MenuCategory struct {
	Name  string
	Items []string
}

// Menu is the display listing of the catalog.
type Menu struct {
	Categories []MenuCategory
	Total      int
}

// Service resolves requests to templates and renders them.
type Service struct {
	catalog Catalogue
	logger  *zap.Logger
}

func NewService(catalog Catalogue, logger *zap.Logger) *Service {
	return &Service{catalog: catalog, logger: logger}
}

// Available loads the catalog if needed and reports whether it is usable.
func (s *Service) Available(ctx context.Context) bool {
	return s.catalog.EnsureLoaded(ctx) == nil
}

// Generate renders tpl. Any renderer error or panic is logged and reported as false.
func (s *Service) Generate(ctx context.Context, tpl *domain.Template, images []domain.RenderImage, texts []string, args map[string]any) (data []byte, ok bool) {
	if tpl == nil || tpl.Renderer == nil {
		return nil, false
	}
	if images == nil {
		images = []domain.RenderImage{}
	}
	if texts == nil {
		texts = []string{}
	}
	if args == nil {
		args = map[string]any{}
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Meme renderer panicked",
				zap.String("template", tpl.Key),
				zap.Any("panic", r),
			)
			data, ok = nil, false
		}
	}()

	data, err := tpl.Renderer.Render(ctx, domain.RenderInput{Images: images, Texts: texts, Args: args})
	if err != nil {
		s.logger.Error("Failed to generate meme",
			zap.String("template", tpl.Key),
			zap.Error(err),
		)
		return nil, false
	}
	if len(data) == 0 {
		s.logger.Warn("Meme renderer returned no data", zap.String("template", tpl.Key))
		return nil, false
	}
	return data, true
}

// GenerateByKey renders the template matching key with whitespace-split freeText as texts.
func (s *Service) GenerateByKey(ctx context.Context, key, freeText string) ([]byte, *domain.Template, error) {
	if err := s.catalog.EnsureLoaded(ctx); err != nil {
		return nil, nil, err
	}

	tpl, ok := s.catalog.Find(key)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", errors.ErrTemplateNotFound, key)
	}

	data, ok := s.Generate(ctx, tpl, nil, strings.Fields(freeText), nil)
	if !ok {
		return nil, tpl, errors.ErrGenerationFailed
	}
	return data, tpl, nil
}

// GenerateAuto renders the template matching key, or a random one when key is empty.
func (s *Service) GenerateAuto(ctx context.Context, key string, texts []string) ([]byte, *domain.Template, error) {
	if err := s.catalog.EnsureLoaded(ctx); err != nil {
		return nil, nil, err
	}

	var (
		tpl *domain.Template
		ok  bool
	)
	if strings.TrimSpace(key) != "" {
		tpl, ok = s.catalog.Find(key)
	} else {
		tpl, ok = s.catalog.Random()
	}
	if !ok {
		return nil, nil, errors.ErrTemplateNotFound
	}

	data, ok := s.Generate(ctx, tpl, nil, texts, nil)
	if !ok {
		return nil, tpl, errors.ErrGenerationFailed
	}
	return data, tpl, nil
}

// Menu groups the first templates by their first tag. Truncation is for display only.
func (s *Service) Menu(ctx context.Context) (*Menu, error) {
	if err := s.catalog.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	return BuildMenu(s.catalog.All()), nil
}

// BuildMenu applies the menu display limits to templates.
func BuildMenu(templates []*domain.Template) *Menu {
	cfg := constants.MemeConfig
	menu := &Menu{Total: len(templates)}

	positions := make(map[string]int)
	for i, tpl := range templates {
		if i >= cfg.MenuTemplateLimit {
			break
		}

		tag := tpl.FirstTag(cfg.DefaultCategory)
		pos, ok := positions[tag]
		if !ok {
			pos = len(menu.Categories)
			positions[tag] = pos
			menu.Categories = append(menu.Categories, MenuCategory{Name: tag})
		}

		category := &menu.Categories[pos]
		if len(category.Items) >= cfg.MenuItemsPerCategory {
			continue
		}

		label := tpl.Key
		if len(tpl.Keywords) > 0 {
			label = strings.Join(util.FirstN(tpl.Keywords, cfg.MenuKeywordsPerItem), "/")
		}
		category.Items = append(category.Items, label)
	}
	return menu
}
