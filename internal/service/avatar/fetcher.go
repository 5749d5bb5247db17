package avatar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kapu/avatar-meme-bot-go/internal/constants"
	"github.com/kapu/avatar-meme-bot-go/internal/domain"
	"go.uber.org/zap"
)

// maxAvatarBytes is the default size limit of a downloaded avatar.
const maxAvatarBytes = 10 << 20

// Fetcher retrieves raw avatar bytes for a platform user. ok is false whenever no
// image could be obtained; failures are logged, never returned.
type Fetcher interface {
	Fetch(ctx context.Context, userID, platform string) (image []byte, ok bool)
}

// URLResolver is implemented by fetchers that can name the avatar source URL.
type URLResolver interface {
	AvatarURL(userID, platform string) (string, bool)
}

type FetcherConfig struct {
	Timeout     time.Duration
	QQURLFormat string
	MaxBytes    int64
}

// HTTPFetcher downloads avatars from platform avatar endpoints. One attempt per call.
type HTTPFetcher struct {
	httpClient  *http.Client
	qqURLFormat string
	maxBytes    int64
	logger      *zap.Logger
}

func NewHTTPFetcher(cfg FetcherConfig, logger *zap.Logger) *HTTPFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.QQURLFormat == "" {
		cfg.QQURLFormat = constants.AvatarConfig.QQAvatarURLFormat
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = maxAvatarBytes
	}
	return &HTTPFetcher{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		qqURLFormat: cfg.QQURLFormat,
		maxBytes:    cfg.MaxBytes,
		logger:      logger,
	}
}

func (f *HTTPFetcher) AvatarURL(userID, platform string) (string, bool) {
	if userID == "" {
		return "", false
	}
	switch strings.ToLower(platform) {
	case domain.PlatformQQ:
		return fmt.Sprintf(f.qqURLFormat, url.QueryEscape(userID)), true
	default:
		return "", false
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, userID, platform string) ([]byte, bool) {
	switch strings.ToLower(platform) {
	case domain.PlatformDiscord:
		// TODO: fetch through the Discord CDN once bot tokens are wired into config
		f.logger.Debug("Discord avatar fetching is not implemented", zap.String("user_id", userID))
		return nil, false
	case domain.PlatformQQ:
	default:
		f.logger.Warn("Avatar fetching not supported for platform",
			zap.String("platform", platform),
			zap.String("user_id", userID),
		)
		return nil, false
	}

	avatarURL, ok := f.AvatarURL(userID, platform)
	if !ok {
		return nil, false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, avatarURL, nil)
	if err != nil {
		f.logger.Error("Failed to build avatar request", zap.String("user_id", userID), zap.Error(err))
		return nil, false
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.logger.Error("Avatar request failed",
			zap.String("platform", platform),
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.logger.Error("Avatar endpoint returned non-200",
			zap.String("platform", platform),
			zap.String("user_id", userID),
			zap.Int("status", resp.StatusCode),
		)
		return nil, false
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		f.logger.Error("Failed to read avatar body", zap.String("user_id", userID), zap.Error(err))
		return nil, false
	}
	if int64(len(data)) > f.maxBytes {
		f.logger.Warn("Avatar exceeds size limit",
			zap.String("user_id", userID),
			zap.Int64("limit_bytes", f.maxBytes),
		)
		return nil, false
	}
	if len(data) == 0 {
		f.logger.Warn("Avatar endpoint returned an empty body", zap.String("user_id", userID))
		return nil, false
	}

	return data, true
}
