package command

import (
	"context"
	"errors"
	"testing"

	"github.com/kapu/avatar-meme-bot-go/internal/adapter"
	"github.com/kapu/avatar-meme-bot-go/internal/domain"
	"github.com/kapu/avatar-meme-bot-go/internal/service/avatar"
	"github.com/kapu/avatar-meme-bot-go/internal/service/meme"
	boterrors "github.com/kapu/avatar-meme-bot-go/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMemes struct {
	menu     *meme.Menu
	err      error
	image    []byte
	tpl      *domain.Template
	gotKey   string
	gotText  string
	gotTexts []string
}

func (f *fakeMemes) Available(context.Context) bool { return f.err == nil }

func (f *fakeMemes) Menu(context.Context) (*meme.Menu, error) { return f.menu, f.err }

func (f *fakeMemes) GenerateByKey(_ context.Context, key, freeText string) ([]byte, *domain.Template, error) {
	f.gotKey, f.gotText = key, freeText
	return f.image, f.tpl, f.err
}

func (f *fakeMemes) GenerateAuto(_ context.Context, key string, texts []string) ([]byte, *domain.Template, error) {
	f.gotKey, f.gotTexts = key, texts
	return f.image, f.tpl, f.err
}

type fakeAnalyzer struct {
	ok       bool
	result   string
	userID   string
	platform string
	opts     avatar.AnalyzeOptions
	calls    int
}

func (f *fakeAnalyzer) AnalyzeAndStore(_ context.Context, userID, platform string, opts avatar.AnalyzeOptions) (bool, string) {
	f.calls++
	f.userID, f.platform, f.opts = userID, platform, opts
	return f.ok, f.result
}

type outbox struct {
	messages []string
	images   [][]byte
	errors   []string
}

func newDeps(memes MemeGenerator, analyzer AvatarAnalyzer) (*Dependencies, *outbox) {
	out := &outbox{}
	return &Dependencies{
		Memes:     memes,
		Avatar:    analyzer,
		Formatter: adapter.NewResponseFormatter("/"),
		Help:      adapter.HelpOptions{MemeCommands: true, AvatarAnalysis: true},
		SendMessage: func(room, message string) error {
			out.messages = append(out.messages, message)
			return nil
		},
		SendImage: func(room string, image []byte) error {
			out.images = append(out.images, image)
			return nil
		},
		SendError: func(room, message string) error {
			out.errors = append(out.errors, message)
			return nil
		},
		Logger: zap.NewNop(),
	}, out
}

func cmdCtx() *domain.CommandContext {
	return domain.NewCommandContext("room-1", "General", "Alice", "10001", "qq", "", true)
}

func TestMemeMenuCommand(t *testing.T) {
	memes := &fakeMemes{menu: &meme.Menu{Categories: []meme.MenuCategory{{Name: "animal", Items: []string{"dog"}}}, Total: 1}}
	deps, out := newDeps(memes, nil)

	require.NoError(t, NewMemeMenuCommand(deps).Execute(context.Background(), cmdCtx(), nil))
	require.Len(t, out.messages, 1)
	assert.Contains(t, out.messages[0], "[animal]")
	assert.Contains(t, out.messages[0], "1 memes available")
}

func TestMemeMenuCommandUnavailable(t *testing.T) {
	deps, out := newDeps(&fakeMemes{err: boterrors.ErrCatalogUnavailable}, nil)

	require.NoError(t, NewMemeMenuCommand(deps).Execute(context.Background(), cmdCtx(), nil))
	assert.Equal(t, []string{deps.Formatter.FormatMemeUnavailable()}, out.messages)
}

func TestMemeGenerateCommandSendsImage(t *testing.T) {
	memes := &fakeMemes{image: []byte("gif"), tpl: &domain.Template{Key: "doge"}}
	deps, out := newDeps(memes, nil)

	err := NewMemeGenerateCommand(deps).Execute(context.Background(), cmdCtx(), map[string]any{"meme_key": "dog", "text": "such wow"})
	require.NoError(t, err)
	assert.Equal(t, "dog", memes.gotKey)
	assert.Equal(t, "such wow", memes.gotText)
	assert.Equal(t, [][]byte{[]byte("gif")}, out.images)
}

func TestMemeGenerateCommandReplies(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want func(f *adapter.ResponseFormatter) string
	}{
		{"not found", boterrors.ErrTemplateNotFound, func(f *adapter.ResponseFormatter) string { return f.FormatMemeNotFound("xyz") }},
		{"unavailable", boterrors.ErrCatalogUnavailable, func(f *adapter.ResponseFormatter) string { return f.FormatMemeUnavailable() }},
		{"failed", boterrors.ErrGenerationFailed, func(f *adapter.ResponseFormatter) string { return f.FormatGenerationFailed() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, out := newDeps(&fakeMemes{err: tt.err}, nil)
			err := NewMemeGenerateCommand(deps).Execute(context.Background(), cmdCtx(), map[string]any{"meme_key": "xyz"})
			require.NoError(t, err)
			assert.Equal(t, []string{tt.want(deps.Formatter)}, out.messages)
			assert.Empty(t, out.images)
		})
	}
}

func TestAutoMemeCommandCoercesTexts(t *testing.T) {
	memes := &fakeMemes{image: []byte("png"), tpl: &domain.Template{Key: "doge"}}
	deps, out := newDeps(memes, nil)
	cmd := NewAutoMemeCommand(deps)

	require.NoError(t, cmd.Execute(context.Background(), cmdCtx(), map[string]any{"texts": "hello"}))
	assert.Equal(t, []string{"hello"}, memes.gotTexts)
	assert.Equal(t, "", memes.gotKey)

	require.NoError(t, cmd.Execute(context.Background(), cmdCtx(), map[string]any{"meme_key": "cat", "texts": []any{"a", 1}}))
	assert.Equal(t, []string{"a", "1"}, memes.gotTexts)
	assert.Equal(t, "cat", memes.gotKey)

	require.NoError(t, cmd.Execute(context.Background(), cmdCtx(), map[string]any{}))
	assert.Equal(t, []string{}, memes.gotTexts)
	assert.Len(t, out.images, 3)
}

func TestAutoMemeCommandStaysSilentOnFailure(t *testing.T) {
	deps, out := newDeps(&fakeMemes{err: boterrors.ErrTemplateNotFound}, nil)

	require.NoError(t, NewAutoMemeCommand(deps).Execute(context.Background(), cmdCtx(), nil))
	assert.Empty(t, out.messages)
	assert.Empty(t, out.errors)
	assert.Empty(t, out.images)
}

func TestAnalyzeAvatarDefaultsToSender(t *testing.T) {
	analyzer := &fakeAnalyzer{ok: true, result: "a cat avatar"}
	deps, out := newDeps(nil, analyzer)

	require.NoError(t, NewAnalyzeAvatarCommand(deps).Execute(context.Background(), cmdCtx(), map[string]any{"force_update": "true"}))
	assert.Equal(t, "10001", analyzer.userID)
	assert.Equal(t, "qq", analyzer.platform)
	assert.True(t, analyzer.opts.ForceUpdate)
	assert.Equal(t, []string{"avatar analysis done: a cat avatar..."}, out.messages)
}

func TestAnalyzeAvatarExplicitUserAndFailure(t *testing.T) {
	analyzer := &fakeAnalyzer{ok: false, result: avatar.MsgAvatarUnavailable}
	deps, out := newDeps(nil, analyzer)

	require.NoError(t, NewAnalyzeAvatarCommand(deps).Execute(context.Background(), cmdCtx(), map[string]any{"user_id": "20002"}))
	assert.Equal(t, "20002", analyzer.userID)
	assert.False(t, analyzer.opts.ForceUpdate)
	assert.Equal(t, []string{"❌ avatar analysis failed: avatar unavailable"}, out.messages)
}

func TestAnalyzeAvatarWithoutUser(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	deps, out := newDeps(nil, analyzer)
	ctx := domain.NewCommandContext("room-1", "", "", "", "qq", "", false)

	require.NoError(t, NewAnalyzeAvatarCommand(deps).Execute(context.Background(), ctx, nil))
	assert.Equal(t, 0, analyzer.calls)
	assert.Equal(t, []string{"missing user id"}, out.errors)
}

func TestHelpCommand(t *testing.T) {
	deps, out := newDeps(nil, nil)
	require.NoError(t, NewHelpCommand(deps).Execute(context.Background(), cmdCtx(), nil))
	require.Len(t, out.messages, 1)
	assert.Contains(t, out.messages[0], "/avatar")
}

func TestDispatcherSkipsUnknownAndUnregistered(t *testing.T) {
	deps, out := newDeps(&fakeMemes{menu: &meme.Menu{}}, nil)
	registry := NewRegistry()
	registry.Register(NewMemeMenuCommand(deps))
	registry.Register(NewHelpCommand(deps))

	assert.Equal(t, []string{"help", "meme_menu"}, registry.Names())
	assert.True(t, registry.Has("MEME_MENU"))

	dispatcher := NewSequentialDispatcher(registry, nil)
	executed, err := dispatcher.Publish(context.Background(), cmdCtx(),
		CommandEvent{Type: domain.CommandUnknown},
		CommandEvent{Type: domain.CommandAnalyzeAvatar},
		CommandEvent{Type: domain.CommandMemeMenu},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, executed)
	assert.Len(t, out.messages, 1)
}

type failingCommand struct{}

func (failingCommand) Name() string        { return "help" }
func (failingCommand) Description() string { return "" }
func (failingCommand) Execute(context.Context, *domain.CommandContext, map[string]any) error {
	return errors.New("send failed")
}

func TestDispatcherStopsOnError(t *testing.T) {
	registry := NewRegistry()
	registry.Register(failingCommand{})

	executed, err := NewSequentialDispatcher(registry, nil).Publish(context.Background(), cmdCtx(),
		CommandEvent{Type: domain.CommandHelp},
	)
	require.Error(t, err)
	assert.Equal(t, 0, executed)
}

func TestRegistryUnknownCommand(t *testing.T) {
	err := NewRegistry().Execute(context.Background(), cmdCtx(), "nope", nil)
	require.ErrorIs(t, err, ErrUnknownCommand)
}
