package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Iris     IrisConfig
	Redis    RedisConfig
	Postgres PostgresConfig
	Gemini   GeminiConfig
	OpenAI   OpenAIConfig
	Meme     MemeConfig
	Avatar   AvatarConfig
	Logging  LoggingConfig
	Bot      BotConfig
}

type IrisConfig struct {
	BaseURL string
	WSURL   string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type PostgresConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type GeminiConfig struct {
	APIKey      string
	VisionModel string
}

type OpenAIConfig struct {
	APIKey         string
	VisionModel    string
	EnableFallback bool
}

type MemeConfig struct {
	EnableCommandMode bool
	EnableActionMode  bool
	ActionProbability float64
	EngineURL         string
	TemplatesDir      string
	AutoInstall       bool
	StartServer       bool
	PythonBin         string
}

type AvatarConfig struct {
	EnableAnalysis bool
	AnalysisPrompt string
	Platform       string
	FetchTimeout   time.Duration
	CacheTTL       time.Duration
}

type LoggingConfig struct {
	Level string
	File  string
}

type BotConfig struct {
	Prefix string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Iris: IrisConfig{
			BaseURL: getEnv("IRIS_BASE_URL", "http://localhost:3000"),
			WSURL:   getEnv("IRIS_WS_URL", "ws://localhost:3000/ws"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Postgres: PostgresConfig{
			Enabled:  getEnvBool("POSTGRES_ENABLED", true),
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "bot"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Database: getEnv("POSTGRES_DB", "avatar_meme_bot"),
		},
		Gemini: GeminiConfig{
			APIKey:      getEnv("GEMINI_API_KEY", ""),
			VisionModel: getEnv("VISION_GEMINI_MODEL", "gemini-2.5-flash"),
		},
		OpenAI: OpenAIConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			VisionModel:    getEnv("VISION_OPENAI_MODEL", "gpt-4o-mini"),
			EnableFallback: getEnvBool("OPENAI_ENABLE_FALLBACK", true),
		},
		Meme: MemeConfig{
			EnableCommandMode: getEnvBool("MEME_ENABLE_COMMAND_MODE", true),
			EnableActionMode:  getEnvBool("MEME_ENABLE_ACTION_MODE", true),
			ActionProbability: getEnvFloat("MEME_ACTION_PROBABILITY", 0.15),
			EngineURL:         getEnv("MEME_ENGINE_URL", "http://127.0.0.1:2233"),
			TemplatesDir:      getEnv("MEME_TEMPLATES_DIR", ""),
			AutoInstall:       getEnvBool("MEME_AUTO_INSTALL", false),
			StartServer:       getEnvBool("MEME_START_SERVER", false),
			PythonBin:         getEnv("MEME_PYTHON_BIN", "python3"),
		},
		Avatar: AvatarConfig{
			EnableAnalysis: getEnvBool("AVATAR_ENABLE_ANALYSIS", true),
			AnalysisPrompt: getEnv("AVATAR_ANALYSIS_PROMPT", ""),
			Platform:       strings.ToLower(getEnv("AVATAR_PLATFORM", "qq")),
			FetchTimeout:   time.Duration(getEnvInt("AVATAR_FETCH_TIMEOUT_SECONDS", 10)) * time.Second,
			CacheTTL:       time.Duration(getEnvInt("AVATAR_CACHE_TTL_MINUTES", 30)) * time.Minute,
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", "logs/bot.log"),
		},
		Bot: BotConfig{
			Prefix: getEnv("BOT_PREFIX", "/"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Iris.BaseURL == "" {
		return fmt.Errorf("IRIS_BASE_URL is required")
	}
	if c.Iris.WSURL == "" {
		return fmt.Errorf("IRIS_WS_URL is required")
	}
	if c.Bot.Prefix == "" {
		return fmt.Errorf("BOT_PREFIX must not be empty")
	}
	if c.Meme.ActionProbability < 0 || c.Meme.ActionProbability > 1 {
		return fmt.Errorf("MEME_ACTION_PROBABILITY must be within [0, 1], got %v", c.Meme.ActionProbability)
	}
	if c.Meme.EngineURL == "" && (c.Meme.EnableCommandMode || c.Meme.EnableActionMode) {
		return fmt.Errorf("MEME_ENGINE_URL is required when meme features are enabled")
	}
	if c.Avatar.FetchTimeout <= 0 {
		return fmt.Errorf("AVATAR_FETCH_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
