package command

import (
	"context"

	"github.com/kapu/avatar-meme-bot-go/internal/domain"
	"github.com/kapu/avatar-meme-bot-go/internal/service/avatar"
	"go.uber.org/zap"
)

type AnalyzeAvatarCommand struct {
	deps *Dependencies
}

func NewAnalyzeAvatarCommand(deps *Dependencies) *AnalyzeAvatarCommand {
	return &AnalyzeAvatarCommand{deps: deps}
}

func (c *AnalyzeAvatarCommand) Name() string {
	return string(domain.CommandAnalyzeAvatar)
}

func (c *AnalyzeAvatarCommand) Description() string {
	return "analyze a user's avatar and remember the description"
}

func (c *AnalyzeAvatarCommand) Execute(ctx context.Context, cmdCtx *domain.CommandContext, params map[string]any) error {
	userID := stringParam(params, "user_id")
	if userID == "" {
		userID = cmdCtx.UserID
	}
	if userID == "" {
		return c.deps.SendError(cmdCtx.Room, "missing user id")
	}

	ok, result := c.deps.Avatar.AnalyzeAndStore(ctx, userID, cmdCtx.Platform, avatar.AnalyzeOptions{
		ForceUpdate:  boolParam(params, "force_update"),
		CustomPrompt: stringParam(params, "prompt"),
	})
	if !ok {
		c.deps.Logger.Warn("Avatar analysis failed",
			zap.String("user_id", userID),
			zap.String("platform", cmdCtx.Platform),
			zap.String("reason", result),
		)
		return c.deps.SendMessage(cmdCtx.Room, c.deps.Formatter.FormatAvatarFailed(result))
	}

	return c.deps.SendMessage(cmdCtx.Room, c.deps.Formatter.FormatAvatarAnalyzed(result))
}
