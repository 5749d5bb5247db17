package domain

import "time"

type CommandContext struct {
	Room        string
	RoomName    string
	Sender      string
	UserID      string
	Platform    string
	IsGroupChat bool
	Message     string
	Timestamp   time.Time
}

func NewCommandContext(room, roomName, sender, userID, platform, message string, isGroupChat bool) *CommandContext {
	return &CommandContext{
		Room:        room,
		RoomName:    roomName,
		Sender:      sender,
		UserID:      userID,
		Platform:    platform,
		IsGroupChat: isGroupChat,
		Message:     message,
		Timestamp:   time.Now(),
	}
}
