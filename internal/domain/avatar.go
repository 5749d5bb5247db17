package domain

import "time"

// AvatarDescription is the cached vision-model impression of a person's avatar.
// Exactly one record exists per PersonID.
type AvatarDescription struct {
	PersonID    string     `json:"person_id"`
	Platform    string     `json:"platform"`
	UserID      string     `json:"user_id"`
	Description *string    `json:"description,omitempty"`
	AnalyzedAt  *time.Time `json:"analyzed_at,omitempty"`
	AvatarURL   *string    `json:"avatar_url,omitempty"`
}

// HasDescription reports whether the record carries a non-empty description.
func (a *AvatarDescription) HasDescription() bool {
	return a != nil && a.Description != nil && *a.Description != ""
}

// Text returns the description or an empty string.
func (a *AvatarDescription) Text() string {
	if !a.HasDescription() {
		return ""
	}
	return *a.Description
}

// Platform identifiers understood by the avatar fetcher.
const (
	PlatformQQ      = "qq"
	PlatformDiscord = "discord"
)
