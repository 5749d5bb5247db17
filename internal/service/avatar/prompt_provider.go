package avatar

import (
	"context"

	"github.com/kapu/avatar-meme-bot-go/internal/prompt"
	"go.uber.org/zap"
)

// PromptProvider exposes cached avatar impressions to prompt builders.
type PromptProvider struct {
	store    Store
	identity IdentityResolver
	logger   *zap.Logger
}

func NewPromptProvider(store Store, identity IdentityResolver, logger *zap.Logger) *PromptProvider {
	return &PromptProvider{store: store, identity: identity, logger: logger}
}

// HeadDescriptionForPrompt returns the cached description for a person, if any.
// Store errors are logged and reported as not found.
func (p *PromptProvider) HeadDescriptionForPrompt(ctx context.Context, personID string) (string, bool) {
	description, found, err := p.store.Get(ctx, personID)
	if err != nil {
		p.logger.Error("Failed to read avatar impression", zap.String("person_id", personID), zap.Error(err))
		return "", false
	}
	return description, found && description != ""
}

// RelationContext resolves the platform user and formats their impression line.
func (p *PromptProvider) RelationContext(ctx context.Context, platform, userID string) (string, bool) {
	personID, ok := p.identity.ResolvePersonID(platform, userID)
	if !ok {
		return "", false
	}
	description, ok := p.HeadDescriptionForPrompt(ctx, personID)
	if !ok {
		return "", false
	}
	return prompt.FormatHeadDescriptionForRelation(description), true
}
