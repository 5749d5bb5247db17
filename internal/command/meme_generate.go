package command

import (
	"context"
	"errors"

	"github.com/kapu/avatar-meme-bot-go/internal/domain"
	boterrors "github.com/kapu/avatar-meme-bot-go/pkg/errors"
	"go.uber.org/zap"
)

type MemeGenerateCommand struct {
	deps *Dependencies
}

func NewMemeGenerateCommand(deps *Dependencies) *MemeGenerateCommand {
	return &MemeGenerateCommand{deps: deps}
}

func (c *MemeGenerateCommand) Name() string {
	return string(domain.CommandMemeGenerate)
}

func (c *MemeGenerateCommand) Description() string {
	return "generate a meme by name"
}

func (c *MemeGenerateCommand) Execute(ctx context.Context, cmdCtx *domain.CommandContext, params map[string]any) error {
	key := stringParam(params, "meme_key")
	if key == "" {
		return c.deps.SendMessage(cmdCtx.Room, c.deps.Formatter.FormatMemeNotFound(key))
	}

	image, tpl, err := c.deps.Memes.GenerateByKey(ctx, key, stringParam(params, "text"))
	switch {
	case errors.Is(err, boterrors.ErrCatalogUnavailable):
		return c.deps.SendMessage(cmdCtx.Room, c.deps.Formatter.FormatMemeUnavailable())
	case errors.Is(err, boterrors.ErrTemplateNotFound):
		return c.deps.SendMessage(cmdCtx.Room, c.deps.Formatter.FormatMemeNotFound(key))
	case err != nil:
		return c.deps.SendMessage(cmdCtx.Room, c.deps.Formatter.FormatGenerationFailed())
	}

	c.deps.Logger.Info("Meme generated",
		zap.String("room", cmdCtx.Room),
		zap.String("query", key),
		zap.String("template", tpl.Key),
		zap.Int("bytes", len(image)),
	)
	return c.deps.SendImage(cmdCtx.Room, image)
}
