package domain

type CommandType string

const (
	CommandMemeMenu      CommandType = "meme_menu"
	CommandMemeGenerate  CommandType = "meme_generate"
	CommandAutoMeme      CommandType = "auto_meme"
	CommandAnalyzeAvatar CommandType = "analyze_avatar"
	CommandHelp          CommandType = "help"
	CommandUnknown       CommandType = "unknown"
)

func (c CommandType) String() string {
	return string(c)
}

func (c CommandType) IsValid() bool {
	switch c {
	case CommandMemeMenu, CommandMemeGenerate, CommandAutoMeme,
		CommandAnalyzeAvatar, CommandHelp, CommandUnknown:
		return true
	default:
		return false
	}
}
