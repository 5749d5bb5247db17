package app

import (
	"context"
	"testing"
	"time"

	"github.com/kapu/avatar-meme-bot-go/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func offlineConfig() *config.Config {
	return &config.Config{
		Iris: config.IrisConfig{BaseURL: "http://127.0.0.1:1", WSURL: "ws://127.0.0.1:1/ws"},
		Meme: config.MemeConfig{
			EnableCommandMode: true,
			EnableActionMode:  true,
			ActionProbability: 0.15,
			EngineURL:         "http://127.0.0.1:1",
		},
		Avatar: config.AvatarConfig{
			EnableAnalysis: true,
			Platform:       "qq",
			FetchTimeout:   time.Second,
			CacheTTL:       time.Minute,
		},
		Bot: config.BotConfig{Prefix: "/"},
	}
}

func TestBuildWithoutExternalStores(t *testing.T) {
	container, err := Build(context.Background(), offlineConfig(), zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, container.Prompts)

	b, err := container.NewBot()
	require.NoError(t, err)
	assert.Equal(t, []string{"analyze_avatar", "auto_meme", "help", "meme_generate", "meme_menu"}, b.Commands())
}

func TestBuildHonoursToggles(t *testing.T) {
	cfg := offlineConfig()
	cfg.Meme.EnableCommandMode = false
	cfg.Meme.EnableActionMode = false
	cfg.Avatar.EnableAnalysis = false

	container, err := Build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, container.Prompts)

	b, err := container.NewBot()
	require.NoError(t, err)
	assert.Equal(t, []string{"help"}, b.Commands())
}

func TestBuildRejectsNilInputs(t *testing.T) {
	_, err := Build(context.Background(), nil, zap.NewNop())
	require.Error(t, err)
	_, err = Build(context.Background(), offlineConfig(), nil)
	require.Error(t, err)
}
