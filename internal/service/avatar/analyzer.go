package avatar

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kapu/avatar-meme-bot-go/internal/constants"
	"github.com/kapu/avatar-meme-bot-go/internal/domain"
	"github.com/kapu/avatar-meme-bot-go/internal/util"
	"go.uber.org/zap"
)

// Result messages for failed analyses.
const (
	MsgAvatarUnavailable = "avatar unavailable"
	MsgAnalysisFailed    = "avatar analysis failed"
	MsgStoreFailed       = "store failed"
)

type AnalyzeOptions struct {
	ForceUpdate  bool
	CustomPrompt string
}

// Analyzer fetches, describes and caches avatars.
type Analyzer struct {
	store     Store
	identity  IdentityResolver
	fetcher   Fetcher
	describer Describer
	logger    *zap.Logger
}

func NewAnalyzer(store Store, identity IdentityResolver, fetcher Fetcher, describer Describer, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		store:     store,
		identity:  identity,
		fetcher:   fetcher,
		describer: describer,
		logger:    logger,
	}
}

// AnalyzeAndStore returns the avatar description for a platform user. Unless
// ForceUpdate is set, a cached description is returned without fetching. On failure
// ok is false and result carries a human-readable reason.
func (a *Analyzer) AnalyzeAndStore(ctx context.Context, userID, platform string, opts AnalyzeOptions) (ok bool, result string) {
	logger := a.logger.With(
		zap.String("trace_id", uuid.NewString()),
		zap.String("user_id", userID),
		zap.String("platform", platform),
	)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Avatar analysis panicked", zap.Any("panic", r), zap.Stack("stack"))
			ok = false
			result = fmt.Sprintf("%s: %v", MsgAnalysisFailed, r)
		}
	}()

	var (
		personID string
		resolved bool
	)

	if !opts.ForceUpdate {
		personID, resolved = a.identity.ResolvePersonID(platform, userID)
		if !resolved {
			logger.Warn("No person id for user, skipping cache lookup")
		} else if existing, found := a.existing(ctx, logger, personID); found {
			logger.Info("Avatar description already cached, skipping analysis")
			return true, existing
		}
	}

	image, fetched := a.fetcher.Fetch(ctx, userID, platform)
	if !fetched {
		return false, MsgAvatarUnavailable
	}

	description := a.describer.Describe(ctx, image, opts.CustomPrompt)
	if description == "" {
		return false, MsgAnalysisFailed
	}

	if !resolved {
		personID, resolved = a.identity.ResolvePersonID(platform, userID)
		if !resolved {
			logger.Error("No person id for user, cannot store description")
			return false, MsgStoreFailed
		}
	}

	record := domain.AvatarDescription{
		PersonID:    personID,
		Platform:    platform,
		UserID:      userID,
		Description: &description,
	}
	if resolver, isResolver := a.fetcher.(URLResolver); isResolver {
		if avatarURL, hasURL := resolver.AvatarURL(userID, platform); hasURL {
			record.AvatarURL = &avatarURL
		}
	}

	if err := a.store.Upsert(ctx, record); err != nil {
		logger.Error("Failed to store avatar description", zap.String("person_id", personID), zap.Error(err))
		return false, MsgStoreFailed
	}

	logger.Info("Avatar analysis complete",
		zap.String("person_id", personID),
		zap.String("preview", util.TruncateString(description, constants.AvatarConfig.LogPreviewRunes)),
	)
	return true, description
}

func (a *Analyzer) existing(ctx context.Context, logger *zap.Logger, personID string) (string, bool) {
	description, found, err := a.store.Get(ctx, personID)
	if err != nil {
		logger.Error("Failed to read cached avatar description", zap.String("person_id", personID), zap.Error(err))
		return "", false
	}
	if !found || description == "" {
		return "", false
	}
	return description, true
}
