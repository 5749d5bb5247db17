package command

import (
	"context"
	"errors"

	"github.com/kapu/avatar-meme-bot-go/internal/domain"
	boterrors "github.com/kapu/avatar-meme-bot-go/pkg/errors"
	"go.uber.org/zap"
)

type MemeMenuCommand struct {
	deps *Dependencies
}

func NewMemeMenuCommand(deps *Dependencies) *MemeMenuCommand {
	return &MemeMenuCommand{deps: deps}
}

func (c *MemeMenuCommand) Name() string {
	return string(domain.CommandMemeMenu)
}

func (c *MemeMenuCommand) Description() string {
	return "list available memes"
}

func (c *MemeMenuCommand) Execute(ctx context.Context, cmdCtx *domain.CommandContext, params map[string]any) error {
	menu, err := c.deps.Memes.Menu(ctx)
	if err != nil {
		if errors.Is(err, boterrors.ErrCatalogUnavailable) {
			return c.deps.SendMessage(cmdCtx.Room, c.deps.Formatter.FormatMemeUnavailable())
		}
		c.deps.Logger.Error("Failed to build meme menu", zap.Error(err))
		return c.deps.SendError(cmdCtx.Room, "could not load the meme menu")
	}

	return c.deps.SendMessage(cmdCtx.Room, c.deps.Formatter.FormatMemeMenu(menu))
}
