package bot

import (
	"context"
	"sync"
	"testing"

	"github.com/kapu/avatar-meme-bot-go/internal/adapter"
	"github.com/kapu/avatar-meme-bot-go/internal/domain"
	"github.com/kapu/avatar-meme-bot-go/internal/iris"
	"github.com/kapu/avatar-meme-bot-go/internal/service/avatar"
	"github.com/kapu/avatar-meme-bot-go/internal/service/meme"
	boterrors "github.com/kapu/avatar-meme-bot-go/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSender struct {
	mu       sync.Mutex
	messages []string
	images   int
}

func (f *fakeSender) SendMessage(_ context.Context, room, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeSender) SendImage(_ context.Context, room string, image []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images++
	return nil
}

type pingingSender struct {
	fakeSender
	reachable bool
	pings     int
}

func (p *pingingSender) Ping(context.Context) bool {
	p.pings++
	return p.reachable
}

type fakeSource struct {
	handler iris.MessageHandler
	closed  bool
}

func (f *fakeSource) OnMessage(handler iris.MessageHandler) { f.handler = handler }
func (f *fakeSource) Connect(context.Context) error         { return nil }
func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

type stubMemes struct {
	autoCalls int
}

func (s *stubMemes) Available(context.Context) bool { return true }

func (s *stubMemes) Menu(context.Context) (*meme.Menu, error) {
	return &meme.Menu{Categories: []meme.MenuCategory{{Name: "animal", Items: []string{"dog"}}}, Total: 1}, nil
}

func (s *stubMemes) GenerateByKey(_ context.Context, key, _ string) ([]byte, *domain.Template, error) {
	if key != "doge" {
		return nil, nil, boterrors.ErrTemplateNotFound
	}
	return []byte("gif"), &domain.Template{Key: "doge"}, nil
}

func (s *stubMemes) GenerateAuto(context.Context, string, []string) ([]byte, *domain.Template, error) {
	s.autoCalls++
	return []byte("png"), &domain.Template{Key: "random"}, nil
}

type stubAnalyzer struct {
	platform string
}

func (s *stubAnalyzer) AnalyzeAndStore(_ context.Context, userID, platform string, _ avatar.AnalyzeOptions) (bool, string) {
	s.platform = platform
	return true, "described " + userID
}

func newTestBot(t *testing.T, features Features, roll float64) (*Bot, *fakeSender, *stubMemes, *fakeSource) {
	t.Helper()
	sender := &fakeSender{}
	source := &fakeSource{}
	memes := &stubMemes{}
	features.Platform = "qq"

	b, err := NewBot(&Dependencies{
		Logger:         zap.NewNop(),
		Sender:         sender,
		Source:         source,
		MessageAdapter: adapter.NewMessageAdapter("/"),
		Formatter:      adapter.NewResponseFormatter("/"),
		Memes:          memes,
		Avatar:         &stubAnalyzer{},
		Features:       features,
		Rand:           func() float64 { return roll },
	})
	require.NoError(t, err)
	return b, sender, memes, source
}

func msg(text, userID string) *iris.Message {
	return &iris.Message{Msg: text, Room: "room", JSON: &iris.MessageJSON{UserID: userID}}
}

func TestFeatureTogglesDecideCommands(t *testing.T) {
	b, _, _, _ := newTestBot(t, Features{MemeCommands: true, AutoMeme: true, AvatarAnalysis: true}, 1)
	assert.Equal(t, []string{"analyze_avatar", "auto_meme", "help", "meme_generate", "meme_menu"}, b.Commands())

	b, _, _, _ = newTestBot(t, Features{AvatarAnalysis: true}, 1)
	assert.Equal(t, []string{"analyze_avatar", "help"}, b.Commands())
}

func TestHandleMessageRunsCommands(t *testing.T) {
	b, sender, _, _ := newTestBot(t, Features{MemeCommands: true, AvatarAnalysis: true}, 1)

	b.HandleMessage(context.Background(), msg("/meme doge wow", "1"))
	b.HandleMessage(context.Background(), msg("/meme nope", "1"))
	b.HandleMessage(context.Background(), msg("/avatar", "42"))

	assert.Equal(t, 1, sender.images)
	require.Len(t, sender.messages, 2)
	assert.Contains(t, sender.messages[0], "Meme not found: nope")
	assert.Equal(t, "avatar analysis done: described 42...", sender.messages[1])
}

func TestDisabledCommandIsIgnored(t *testing.T) {
	b, sender, _, _ := newTestBot(t, Features{AvatarAnalysis: true}, 1)

	b.HandleMessage(context.Background(), msg("/menu", "1"))
	assert.Empty(t, sender.messages)
}

func TestAutoMemeActivation(t *testing.T) {
	b, sender, memes, _ := newTestBot(t, Features{AutoMeme: true, AutoMemeChance: 0.15}, 0.1)
	b.HandleMessage(context.Background(), msg("good morning", "1"))
	assert.Equal(t, 1, memes.autoCalls)
	assert.Equal(t, 1, sender.images)

	b, sender, memes, _ = newTestBot(t, Features{AutoMeme: true, AutoMemeChance: 0.15}, 0.5)
	b.HandleMessage(context.Background(), msg("good morning", "1"))
	assert.Equal(t, 0, memes.autoCalls)
	assert.Equal(t, 0, sender.images)
}

func TestStartAndShutdown(t *testing.T) {
	b, sender, _, source := newTestBot(t, Features{MemeCommands: true}, 1)
	closed := false
	b.deps.Closers = append(b.deps.Closers, func() { closed = true })

	require.NoError(t, b.Start(context.Background()))
	require.NotNil(t, source.handler)
	source.handler(msg("/menu", "1"))

	require.NoError(t, b.Shutdown(context.Background()))
	assert.True(t, source.closed)
	assert.True(t, closed)
	require.Len(t, sender.messages, 1)
	assert.Contains(t, sender.messages[0], "[animal]")
}

func TestNewBotValidatesDependencies(t *testing.T) {
	_, err := NewBot(nil)
	require.Error(t, err)

	_, err = NewBot(&Dependencies{
		Logger:         zap.NewNop(),
		Sender:         &fakeSender{},
		Source:         &fakeSource{},
		MessageAdapter: adapter.NewMessageAdapter("/"),
		Formatter:      adapter.NewResponseFormatter("/"),
		Features:       Features{MemeCommands: true},
	})
	require.Error(t, err)
}

func TestStartPingsSenderWhenSupported(t *testing.T) {
	for _, reachable := range []bool{true, false} {
		sender := &pingingSender{reachable: reachable}
		source := &fakeSource{}
		b, err := NewBot(&Dependencies{
			Logger:         zap.NewNop(),
			Sender:         sender,
			Source:         source,
			MessageAdapter: adapter.NewMessageAdapter("/"),
			Formatter:      adapter.NewResponseFormatter("/"),
		})
		require.NoError(t, err)

		require.NoError(t, b.Start(context.Background()))
		assert.Equal(t, 1, sender.pings)
		assert.NotNil(t, source.handler)
		require.NoError(t, b.Shutdown(context.Background()))
	}
}
