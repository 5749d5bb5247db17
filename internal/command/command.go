package command

import (
	"context"

	"github.com/kapu/avatar-meme-bot-go/internal/adapter"
	"github.com/kapu/avatar-meme-bot-go/internal/domain"
	"github.com/kapu/avatar-meme-bot-go/internal/service/avatar"
	"github.com/kapu/avatar-meme-bot-go/internal/service/meme"
	"go.uber.org/zap"
)

type Command interface {
	Name() string
	Description() string
	Execute(ctx context.Context, cmdCtx *domain.CommandContext, params map[string]any) error
}

// MemeGenerator is the meme surface used by commands.
type MemeGenerator interface {
	Available(ctx context.Context) bool
	Menu(ctx context.Context) (*meme.Menu, error)
	GenerateByKey(ctx context.Context, key, freeText string) ([]byte, *domain.Template, error)
	GenerateAuto(ctx context.Context, key string, texts []string) ([]byte, *domain.Template, error)
}

// AvatarAnalyzer is the avatar surface used by commands.
type AvatarAnalyzer interface {
	AnalyzeAndStore(ctx context.Context, userID, platform string, opts avatar.AnalyzeOptions) (bool, string)
}

type Dependencies struct {
	Memes       MemeGenerator
	Avatar      AvatarAnalyzer
	Formatter   *adapter.ResponseFormatter
	Help        adapter.HelpOptions
	SendMessage func(room, message string) error
	SendImage   func(room string, image []byte) error
	SendError   func(room, message string) error
	Logger      *zap.Logger
}
