package adapter

import (
	"fmt"
	"strings"

	"github.com/kapu/avatar-meme-bot-go/internal/constants"
	"github.com/kapu/avatar-meme-bot-go/internal/service/meme"
	"github.com/kapu/avatar-meme-bot-go/internal/util"
)

// HelpOptions mirrors which features are enabled.
type HelpOptions struct {
	MemeCommands   bool
	AutoMeme       bool
	AvatarAnalysis bool
}

// ResponseFormatter formats bot responses
type ResponseFormatter struct {
	prefix string
}

func NewResponseFormatter(prefix string) *ResponseFormatter {
	if strings.TrimSpace(prefix) == "" {
		prefix = "/"
	}
	return &ResponseFormatter{prefix: prefix}
}

// FormatMemeMenu renders the grouped meme listing.
func (f *ResponseFormatter) FormatMemeMenu(menu *meme.Menu) string {
	if menu == nil || menu.Total == 0 {
		return f.FormatNoMemes()
	}

	out, err := executeFormatterTemplate("menu.tmpl", struct {
		Prefix string
		Menu   *meme.Menu
	}{Prefix: f.prefix, Menu: menu})
	if err != nil {
		return f.fallbackMenu(menu)
	}
	return out
}

func (f *ResponseFormatter) fallbackMenu(menu *meme.Menu) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Meme menu\n\nUsage: %smeme <name> [text]\n", f.prefix))
	for _, category := range menu.Categories {
		sb.WriteString(fmt.Sprintf("\n[%s]\n%s\n", category.Name, strings.Join(category.Items, ", ")))
	}
	sb.WriteString(fmt.Sprintf("\n%d memes available", menu.Total))
	return sb.String()
}

// FormatHelp formats help message
func (f *ResponseFormatter) FormatHelp(opts HelpOptions) string {
	out, err := executeFormatterTemplate("help.tmpl", struct {
		HelpOptions
		Prefix string
	}{HelpOptions: opts, Prefix: f.prefix})
	if err != nil {
		return fmt.Sprintf("%shelp - show commands", f.prefix)
	}
	return out
}

func (f *ResponseFormatter) FormatMemeUnavailable() string {
	return "⚠️ Meme features are disabled: meme-generator is not available (pip install meme-generator)."
}

func (f *ResponseFormatter) FormatNoMemes() string {
	return "No memes are available right now."
}

func (f *ResponseFormatter) FormatMemeNotFound(key string) string {
	return fmt.Sprintf("❌ Meme not found: %s\nUse %smenu to see available memes.", key, f.prefix)
}

func (f *ResponseFormatter) FormatGenerationFailed() string {
	return "❌ Meme generation failed."
}

// FormatAvatarAnalyzed previews a stored avatar description.
func (f *ResponseFormatter) FormatAvatarAnalyzed(description string) string {
	preview := util.FirstN([]rune(description), constants.AvatarConfig.ReplyPreviewRunes)
	return "avatar analysis done: " + string(preview) + "..."
}

func (f *ResponseFormatter) FormatAvatarFailed(reason string) string {
	if reason == "" {
		return "❌ avatar analysis failed"
	}
	return fmt.Sprintf("❌ avatar analysis failed: %s", reason)
}

// FormatError formats error message
func (f *ResponseFormatter) FormatError(message string) string {
	return fmt.Sprintf("❌ %s", message)
}
