package app

import (
	"context"
	"fmt"

	"github.com/kapu/avatar-meme-bot-go/internal/adapter"
	"github.com/kapu/avatar-meme-bot-go/internal/bot"
	"github.com/kapu/avatar-meme-bot-go/internal/config"
	"github.com/kapu/avatar-meme-bot-go/internal/constants"
	"github.com/kapu/avatar-meme-bot-go/internal/iris"
	"github.com/kapu/avatar-meme-bot-go/internal/service/ai"
	"github.com/kapu/avatar-meme-bot-go/internal/service/avatar"
	"github.com/kapu/avatar-meme-bot-go/internal/service/cache"
	"github.com/kapu/avatar-meme-bot-go/internal/service/database"
	"github.com/kapu/avatar-meme-bot-go/internal/service/meme"
	"go.uber.org/zap"
)

// Container bundles assembled services for constructing runtime components like Bot.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	// Prompts exposes cached avatar impressions to other prompt builders.
	Prompts *avatar.PromptProvider

	botDeps *bot.Dependencies
}

// NewBot instantiates a bot using the pre-built dependency graph.
func (c *Container) NewBot() (*bot.Bot, error) {
	if c == nil || c.botDeps == nil {
		return nil, fmt.Errorf("bot dependencies not initialized")
	}
	return bot.NewBot(c.botDeps)
}

// Build assembles all infrastructure services and returns a container capable of
// creating fully-wired bots. Redis and PostgreSQL are optional: without them the
// avatar store falls back to process memory.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var closers []func()
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	// Messaging primitives
	irisClient := iris.NewClient(cfg.Iris.BaseURL, logger)
	irisWS := iris.NewWebSocket(iris.WebSocketConfig{
		URL:                  cfg.Iris.WSURL,
		MaxReconnectAttempts: constants.WebSocketConfig.MaxReconnectAttempts,
		ReconnectDelay:       constants.WebSocketConfig.ReconnectDelay,
		HandshakeTimeout:     constants.WebSocketConfig.HandshakeTimeout,
	}, logger)
	messageAdapter := adapter.NewMessageAdapter(cfg.Bot.Prefix)
	formatter := adapter.NewResponseFormatter(cfg.Bot.Prefix)

	deps := &bot.Dependencies{
		Logger:         logger,
		Sender:         irisClient,
		Source:         irisWS,
		MessageAdapter: messageAdapter,
		Formatter:      formatter,
		Features: bot.Features{
			MemeCommands:      cfg.Meme.EnableCommandMode,
			AutoMeme:          cfg.Meme.EnableActionMode,
			AvatarAnalysis:    cfg.Avatar.EnableAnalysis,
			AutoMemeChance:    cfg.Meme.ActionProbability,
			Platform:          cfg.Avatar.Platform,
			WarmUpMemeCatalog: true,
		},
	}
	container = &Container{Config: cfg, Logger: logger, botDeps: deps}

	if cfg.Meme.EnableCommandMode || cfg.Meme.EnableActionMode {
		memes, stop := buildMemes(cfg, logger)
		closers = append(closers, stop)
		deps.Memes = memes
	}

	if cfg.Avatar.EnableAnalysis {
		analyzer, prompts, avatarClosers, avatarErr := buildAvatar(ctx, cfg, logger)
		closers = append(closers, avatarClosers...)
		if avatarErr != nil {
			return nil, avatarErr
		}
		deps.Avatar = analyzer
		container.Prompts = prompts
	}

	deps.Closers = closers
	return container, nil
}

func buildMemes(cfg *config.Config, logger *zap.Logger) (*meme.Service, func()) {
	engine := meme.NewHTTPEngine(meme.HTTPEngineConfig{
		BaseURL:      cfg.Meme.EngineURL,
		TemplatesDir: cfg.Meme.TemplatesDir,
	}, logger)
	provisioner := meme.NewEngineProvisioner(engine, meme.ExecRunner{}, meme.ProvisionerConfig{
		AutoInstall:  cfg.Meme.AutoInstall,
		StartServer:  cfg.Meme.StartServer,
		TemplatesDir: cfg.Meme.TemplatesDir,
		PythonBin:    cfg.Meme.PythonBin,
	}, logger)
	catalog := meme.NewCatalog(engine, provisioner, logger)

	stop := func() {
		if err := provisioner.Stop(); err != nil {
			logger.Warn("Failed to stop meme-generator server", zap.Error(err))
		}
	}
	return meme.NewService(catalog, logger), stop
}

func buildAvatar(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*avatar.Analyzer, *avatar.PromptProvider, []func(), error) {
	var closers []func()

	var backend avatar.Store
	if cfg.Postgres.Enabled {
		postgresSvc, err := database.NewPostgresService(database.PostgresConfig{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			Database: cfg.Postgres.Database,
		}, logger)
		if err != nil {
			return nil, nil, closers, fmt.Errorf("failed to create postgres service: %w", err)
		}
		closers = append(closers, func() {
			_ = postgresSvc.Close()
		})

		repo := avatar.NewRepository(postgresSvc, logger)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, nil, closers, fmt.Errorf("failed to prepare avatar schema: %w", err)
		}
		backend = repo
	} else {
		logger.Warn("PostgreSQL disabled, avatar descriptions are kept in memory only")
		backend = avatar.NewMemoryStore()
	}

	var remote avatar.RemoteCache
	if cfg.Redis.Enabled {
		cacheSvc, err := cache.NewCacheService(cache.CacheConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		if err != nil {
			logger.Warn("Redis unavailable, avatar cache stays in-process", zap.Error(err))
		} else {
			closers = append(closers, func() {
				_ = cacheSvc.Close()
			})
			remote = cacheSvc
		}
	}

	store, err := avatar.NewCachedStore(backend, remote, logger, avatar.CachedStoreConfig{TTL: cfg.Avatar.CacheTTL})
	if err != nil {
		return nil, nil, closers, fmt.Errorf("failed to create avatar cache: %w", err)
	}
	closers = append(closers, store.Close)

	modelManager, err := ai.NewModelManager(ctx, ai.ModelManagerConfig{
		GeminiAPIKey:      cfg.Gemini.APIKey,
		OpenAIAPIKey:      cfg.OpenAI.APIKey,
		GeminiVisionModel: cfg.Gemini.VisionModel,
		OpenAIVisionModel: cfg.OpenAI.VisionModel,
		EnableFallback:    cfg.OpenAI.EnableFallback,
	}, logger)
	if err != nil {
		return nil, nil, closers, fmt.Errorf("failed to create model manager: %w", err)
	}

	identity := avatar.HashIdentityResolver{}
	fetcher := avatar.NewHTTPFetcher(avatar.FetcherConfig{Timeout: cfg.Avatar.FetchTimeout}, logger)
	describer := avatar.NewVisionDescriber(modelManager, cfg.Avatar.AnalysisPrompt, logger)
	analyzer := avatar.NewAnalyzer(store, identity, fetcher, describer, logger)

	return analyzer, avatar.NewPromptProvider(store, identity, logger), closers, nil
}
