package prompt

import "fmt"

// AvatarAnalysis is the default instruction sent with an avatar image.
const AvatarAnalysis = `This is a user's chat avatar. Look at the image and describe it:
1. If it is a real photo, describe the person's general features and style
2. If it is an anime or cartoon character, describe the character
3. If it is scenery or an object, describe the subject of the picture
Summarize the impression this avatar gives in one concise sentence (under 50 words).`

// AvatarFallbackDescription is stored whenever the image cannot be analyzed.
const AvatarFallbackDescription = "default avatar or an image that could not be analyzed"

// FormatHeadDescriptionForRelation renders a cached avatar impression for inclusion in
// relationship context. Empty descriptions render as an empty string.
func FormatHeadDescriptionForRelation(headDescription string) string {
	if headDescription == "" {
		return ""
	}
	return fmt.Sprintf("their avatar impression: %s", headDescription)
}
