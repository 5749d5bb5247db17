package command

import (
	"context"
	"fmt"

	"github.com/kapu/avatar-meme-bot-go/internal/domain"
	"go.uber.org/zap"
)

// AutoMemeCommand replies with a meme on its own initiative. Failures are logged
// and never reported to the room.
type AutoMemeCommand struct {
	deps *Dependencies
}

func NewAutoMemeCommand(deps *Dependencies) *AutoMemeCommand {
	return &AutoMemeCommand{deps: deps}
}

func (c *AutoMemeCommand) Name() string {
	return string(domain.CommandAutoMeme)
}

func (c *AutoMemeCommand) Description() string {
	return "send a fitting or random meme"
}

func (c *AutoMemeCommand) Execute(ctx context.Context, cmdCtx *domain.CommandContext, params map[string]any) error {
	key := stringParam(params, "meme_key")
	texts := textsParam(params, "texts")

	image, tpl, err := c.deps.Memes.GenerateAuto(ctx, key, texts)
	if err != nil {
		c.deps.Logger.Debug("Auto meme skipped",
			zap.String("room", cmdCtx.Room),
			zap.String("meme_key", key),
			zap.Error(err),
		)
		return nil
	}

	if err := c.deps.SendImage(cmdCtx.Room, image); err != nil {
		return fmt.Errorf("send auto meme %s: %w", tpl.Key, err)
	}
	c.deps.Logger.Info("Auto meme sent",
		zap.String("room", cmdCtx.Room),
		zap.String("template", tpl.Key),
	)
	return nil
}
