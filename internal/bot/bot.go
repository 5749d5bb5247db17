package bot

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/kapu/avatar-meme-bot-go/internal/adapter"
	"github.com/kapu/avatar-meme-bot-go/internal/command"
	"github.com/kapu/avatar-meme-bot-go/internal/domain"
	"github.com/kapu/avatar-meme-bot-go/internal/iris"
	"go.uber.org/zap"
)

// MessageSender delivers replies to a chat room.
type MessageSender interface {
	SendMessage(ctx context.Context, room, message string) error
	SendImage(ctx context.Context, room string, image []byte) error
}

// HealthChecker is implemented by senders that can report reachability.
type HealthChecker interface {
	Ping(ctx context.Context) bool
}

// MessageSource produces inbound chat messages.
type MessageSource interface {
	OnMessage(handler iris.MessageHandler)
	Connect(ctx context.Context) error
	Close() error
}

// Warmer prepares a slow dependency before the first message arrives.
type Warmer interface {
	Available(ctx context.Context) bool
}

type Features struct {
	MemeCommands      bool
	AutoMeme          bool
	AvatarAnalysis    bool
	AutoMemeChance    float64
	Platform          string
	ReplyTimeout      time.Duration
	HandlerTimeout    time.Duration
	WarmUpMemeCatalog bool
}

type Dependencies struct {
	Logger         *zap.Logger
	Sender         MessageSender
	Source         MessageSource
	MessageAdapter *adapter.MessageAdapter
	Formatter      *adapter.ResponseFormatter
	Memes          command.MemeGenerator
	Avatar         command.AvatarAnalyzer
	Features       Features
	Closers        []func()
	Rand           func() float64
}

// Bot routes chat messages to commands.
type Bot struct {
	deps       *Dependencies
	logger     *zap.Logger
	registry   *command.Registry
	dispatcher command.Dispatcher
	random     func() float64

	handlers     sync.WaitGroup
	shutdownOnce sync.Once
}

func NewBot(deps *Dependencies) (*Bot, error) {
	if deps == nil {
		return nil, fmt.Errorf("bot dependencies must not be nil")
	}
	if deps.Logger == nil || deps.Sender == nil || deps.Source == nil || deps.MessageAdapter == nil || deps.Formatter == nil {
		return nil, fmt.Errorf("bot dependencies are incomplete")
	}
	if (deps.Features.MemeCommands || deps.Features.AutoMeme) && deps.Memes == nil {
		return nil, fmt.Errorf("meme features enabled without a meme service")
	}
	if deps.Features.AvatarAnalysis && deps.Avatar == nil {
		return nil, fmt.Errorf("avatar analysis enabled without an analyzer")
	}
	if deps.Features.ReplyTimeout <= 0 {
		deps.Features.ReplyTimeout = 15 * time.Second
	}
	if deps.Features.HandlerTimeout <= 0 {
		deps.Features.HandlerTimeout = 2 * time.Minute
	}

	random := deps.Rand
	if random == nil {
		random = rand.Float64
	}

	b := &Bot{
		deps:     deps,
		logger:   deps.Logger,
		registry: command.NewRegistry(),
		random:   random,
	}
	b.registerCommands()
	b.dispatcher = command.NewSequentialDispatcher(b.registry, command.NormalizeByType)
	return b, nil
}

func (b *Bot) registerCommands() {
	f := b.deps.Features
	cmdDeps := &command.Dependencies{
		Memes:     b.deps.Memes,
		Avatar:    b.deps.Avatar,
		Formatter: b.deps.Formatter,
		Help: adapter.HelpOptions{
			MemeCommands:   f.MemeCommands,
			AutoMeme:       f.AutoMeme,
			AvatarAnalysis: f.AvatarAnalysis,
		},
		SendMessage: b.sendMessage,
		SendImage:   b.sendImage,
		SendError:   b.sendError,
		Logger:      b.logger,
	}

	b.registry.Register(command.NewHelpCommand(cmdDeps))
	if f.MemeCommands {
		b.registry.Register(command.NewMemeMenuCommand(cmdDeps))
		b.registry.Register(command.NewMemeGenerateCommand(cmdDeps))
	}
	if f.AutoMeme {
		b.registry.Register(command.NewAutoMemeCommand(cmdDeps))
	}
	if f.AvatarAnalysis {
		b.registry.Register(command.NewAnalyzeAvatarCommand(cmdDeps))
	}

	b.logger.Info("Commands registered", zap.Strings("commands", b.registry.Names()))
}

// Commands lists the registered command names.
func (b *Bot) Commands() []string {
	return b.registry.Names()
}

// Start connects to the message source and returns once listening.
func (b *Bot) Start(ctx context.Context) error {
	if checker, ok := b.deps.Sender.(HealthChecker); ok {
		pingCtx, cancel := context.WithTimeout(ctx, b.deps.Features.ReplyTimeout)
		if !checker.Ping(pingCtx) {
			b.logger.Warn("Iris did not answer, replies may fail until it is reachable")
		}
		cancel()
	}

	if b.deps.Features.WarmUpMemeCatalog && b.deps.Memes != nil {
		go func() {
			if b.deps.Memes.Available(ctx) {
				b.logger.Info("Meme catalog ready")
			}
		}()
	}

	b.deps.Source.OnMessage(func(message *iris.Message) {
		b.handlers.Add(1)
		go func() {
			defer b.handlers.Done()
			b.HandleMessage(ctx, message)
		}()
	})

	if err := b.deps.Source.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect message source: %w", err)
	}
	b.logger.Info("Bot is listening")
	return nil
}

// HandleMessage parses one message and runs the matching command. Panics and
// errors are logged.
func (b *Bot) HandleMessage(ctx context.Context, message *iris.Message) {
	if message == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Message handler panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	parsed := b.deps.MessageAdapter.ParseMessage(message)
	cmdCtx := domain.NewCommandContext(
		message.RoomID(),
		message.Room,
		message.SenderName(),
		message.UserID(),
		b.deps.Features.Platform,
		parsed.RawMessage,
		message.Room != message.SenderName(),
	)

	event := command.CommandEvent{Type: parsed.Type, Params: parsed.Params}
	if parsed.Type == domain.CommandUnknown {
		if !b.shouldAutoMeme(parsed) {
			return
		}
		event = command.CommandEvent{Type: domain.CommandAutoMeme, Params: map[string]any{}}
	}

	handlerCtx, cancel := context.WithTimeout(ctx, b.deps.Features.HandlerTimeout)
	defer cancel()

	if _, err := b.dispatcher.Publish(handlerCtx, cmdCtx, event); err != nil {
		b.logger.Error("Command failed",
			zap.String("command", event.Type.String()),
			zap.String("room", cmdCtx.Room),
			zap.Error(err),
		)
	}
}

func (b *Bot) shouldAutoMeme(parsed *adapter.ParsedCommand) bool {
	if parsed.RawMessage == "" || !b.registry.Has(domain.CommandAutoMeme.String()) {
		return false
	}
	return b.random() < b.deps.Features.AutoMemeChance
}

func (b *Bot) sendMessage(room, message string) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.deps.Features.ReplyTimeout)
	defer cancel()
	return b.deps.Sender.SendMessage(ctx, room, message)
}

func (b *Bot) sendImage(room string, image []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.deps.Features.ReplyTimeout)
	defer cancel()
	return b.deps.Sender.SendImage(ctx, room, image)
}

func (b *Bot) sendError(room, message string) error {
	return b.sendMessage(room, b.deps.Formatter.FormatError(message))
}

// Shutdown closes the message source, waits for in-flight handlers and releases
// resources.
func (b *Bot) Shutdown(ctx context.Context) error {
	var err error
	b.shutdownOnce.Do(func() {
		if closeErr := b.deps.Source.Close(); closeErr != nil {
			b.logger.Warn("Failed to close message source", zap.Error(closeErr))
		}

		done := make(chan struct{})
		go func() {
			b.handlers.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			err = fmt.Errorf("timed out waiting for handlers: %w", ctx.Err())
		}

		for i := len(b.deps.Closers) - 1; i >= 0; i-- {
			b.deps.Closers[i]()
		}
		b.logger.Info("Bot stopped")
	})
	return err
}
