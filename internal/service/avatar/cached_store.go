package avatar

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/kapu/avatar-meme-bot-go/internal/constants"
	"github.com/kapu/avatar-meme-bot-go/internal/domain"
	"go.uber.org/zap"
)

// RemoteCache is the subset of the Redis cache service used here.
type RemoteCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// CachedStore fronts a Store with an in-process cache and an optional shared cache.
// Reads go local -> remote -> backend; writes go to the backend first and then
// refresh both caches.
type CachedStore struct {
	backend Store
	local   *ristretto.Cache
	remote  RemoteCache
	ttl     time.Duration
	logger  *zap.Logger
}

type CachedStoreConfig struct {
	TTL            time.Duration
	LocalMaxCost   int64
	LocalCounters  int64
	LocalBufferLen int64
}

func NewCachedStore(backend Store, remote RemoteCache, logger *zap.Logger, cfg CachedStoreConfig) (*CachedStore, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	if cfg.LocalMaxCost <= 0 {
		cfg.LocalMaxCost = 1 << 22
	}
	if cfg.LocalCounters <= 0 {
		cfg.LocalCounters = 1e5
	}
	if cfg.LocalBufferLen <= 0 {
		cfg.LocalBufferLen = 64
	}

	local, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.LocalCounters,
		MaxCost:     cfg.LocalMaxCost,
		BufferItems: cfg.LocalBufferLen,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create local avatar cache: %w", err)
	}

	return &CachedStore{
		backend: backend,
		local:   local,
		remote:  remote,
		ttl:     cfg.TTL,
		logger:  logger,
	}, nil
}

func cacheKey(personID string) string {
	return constants.CacheKeys.AvatarDescriptionPrefix + personID
}

func (s *CachedStore) Get(ctx context.Context, personID string) (string, bool, error) {
	if val, ok := s.local.Get(personID); ok {
		if description, ok := val.(string); ok {
			return description, true, nil
		}
	}

	if s.remote != nil {
		var description string
		found, err := s.remote.Get(ctx, cacheKey(personID), &description)
		if err != nil {
			s.logger.Warn("Remote avatar cache read failed, using database",
				zap.String("person_id", personID),
				zap.Error(err),
			)
		} else if found && description != "" {
			s.storeLocal(personID, description)
			return description, true, nil
		}
	}

	description, found, err := s.backend.Get(ctx, personID)
	if err != nil || !found {
		return "", false, err
	}

	s.populate(ctx, personID, description)
	return description, true, nil
}

func (s *CachedStore) Upsert(ctx context.Context, record domain.AvatarDescription) error {
	if err := s.backend.Upsert(ctx, record); err != nil {
		return err
	}

	if record.HasDescription() {
		s.populate(ctx, record.PersonID, record.Text())
	} else {
		s.invalidate(ctx, record.PersonID)
	}
	return nil
}

// Close releases the local cache.
func (s *CachedStore) Close() {
	s.local.Close()
}

func (s *CachedStore) populate(ctx context.Context, personID, description string) {
	s.storeLocal(personID, description)

	if s.remote == nil {
		return
	}
	if err := s.remote.Set(ctx, cacheKey(personID), description, s.ttl); err != nil {
		s.logger.Warn("Remote avatar cache write failed",
			zap.String("person_id", personID),
			zap.Error(err),
		)
	}
}

func (s *CachedStore) invalidate(ctx context.Context, personID string) {
	s.local.Del(personID)
	if s.remote == nil {
		return
	}
	if err := s.remote.Del(ctx, cacheKey(personID)); err != nil {
		s.logger.Warn("Remote avatar cache invalidation failed",
			zap.String("person_id", personID),
			zap.Error(err),
		)
	}
}

func (s *CachedStore) storeLocal(personID, description string) {
	s.local.SetWithTTL(personID, description, int64(len(description))+1, s.ttl)
}
