package adapter

import (
	"slices"
	"strings"
	"unicode"

	"github.com/kapu/avatar-meme-bot-go/internal/domain"
	"github.com/kapu/avatar-meme-bot-go/internal/iris"
)

// MessageAdapter converts chat messages to bot commands
type MessageAdapter struct {
	prefix string
}

func NewMessageAdapter(prefix string) *MessageAdapter {
	return &MessageAdapter{prefix: prefix}
}

// ParsedCommand represents a parsed command
type ParsedCommand struct {
	Type       domain.CommandType
	Params     map[string]any
	RawMessage string
}

var (
	menuAliases   = []string{"menu", "memes", "메뉴", "짤목록"}
	memeAliases   = []string{"meme", "짤"}
	avatarAliases = []string{"avatar", "프사"}
	helpAliases   = []string{"help", "commands", "도움말", "명령어"}
	forceFlags    = []string{"force", "-f", "--force", "갱신"}
)

// ParseMessage parses a chat message into a command. Messages without the prefix
// come back as CommandUnknown so the caller can treat them as ordinary chat.
func (ma *MessageAdapter) ParseMessage(message *iris.Message) *ParsedCommand {
	if message == nil || message.Msg == "" {
		return ma.createUnknownCommand("")
	}

	text := strings.TrimSpace(message.Msg)
	if !strings.HasPrefix(text, ma.prefix) {
		return ma.createUnknownCommand(text)
	}

	commandText := strings.TrimSpace(text[len(ma.prefix):])
	parts := strings.Fields(commandText)
	if len(parts) == 0 {
		return ma.createUnknownCommand(text)
	}

	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch {
	case slices.Contains(menuAliases, command):
		return &ParsedCommand{
			Type:       domain.CommandMemeMenu,
			Params:     make(map[string]any),
			RawMessage: text,
		}
	case slices.Contains(memeAliases, command):
		return ma.parseMemeCommand(commandText, args, text)
	case slices.Contains(avatarAliases, command):
		return &ParsedCommand{
			Type:       domain.CommandAnalyzeAvatar,
			Params:     ma.parseAvatarArgs(args),
			RawMessage: text,
		}
	case slices.Contains(helpAliases, command):
		return &ParsedCommand{
			Type:       domain.CommandHelp,
			Params:     make(map[string]any),
			RawMessage: text,
		}
	}

	return ma.createUnknownCommand(text)
}

// parseMemeCommand keeps the free text after the key verbatim; the generator
// splits it into texts.
func (ma *MessageAdapter) parseMemeCommand(commandText string, args []string, rawMessage string) *ParsedCommand {
	if len(args) == 0 {
		return &ParsedCommand{
			Type:       domain.CommandMemeMenu,
			Params:     make(map[string]any),
			RawMessage: rawMessage,
		}
	}

	key := args[0]
	rest := dropFirstField(dropFirstField(commandText))

	return &ParsedCommand{
		Type: domain.CommandMemeGenerate,
		Params: map[string]any{
			"meme_key": key,
			"text":     rest,
		},
		RawMessage: rawMessage,
	}
}

func (ma *MessageAdapter) parseAvatarArgs(args []string) map[string]any {
	params := map[string]any{"force_update": false}
	for _, arg := range args {
		if slices.Contains(forceFlags, strings.ToLower(arg)) {
			params["force_update"] = true
			continue
		}
		if userID := strings.TrimPrefix(arg, "@"); userID != "" {
			params["user_id"] = userID
		}
	}
	return params
}

func dropFirstField(s string) string {
	s = strings.TrimSpace(s)
	idx := strings.IndexFunc(s, unicode.IsSpace)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(s[idx:])
}

func (ma *MessageAdapter) createUnknownCommand(text string) *ParsedCommand {
	return &ParsedCommand{
		Type:       domain.CommandUnknown,
		Params:     make(map[string]any),
		RawMessage: text,
	}
}
