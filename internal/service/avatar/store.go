package avatar

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"sync"
	"time"

	"github.com/kapu/avatar-meme-bot-go/internal/domain"
)

// Store persists avatar descriptions keyed by person identifier.
type Store interface {
	// Get returns the cached description; found is false when no record or no
	// description exists.
	Get(ctx context.Context, personID string) (description string, found bool, err error)
	// Upsert creates or updates the single record for record.PersonID and refreshes
	// its analysis timestamp.
	Upsert(ctx context.Context, record domain.AvatarDescription) error
}

// IdentityResolver maps a platform user to a stable person identifier.
type IdentityResolver interface {
	ResolvePersonID(platform, userID string) (string, bool)
}

// HashIdentityResolver derives the person identifier as md5("<platform>_<user_id>").
type HashIdentityResolver struct{}

func (HashIdentityResolver) ResolvePersonID(platform, userID string) (string, bool) {
	if platform == "" || userID == "" {
		return "", false
	}
	sum := md5.Sum([]byte(platform + "_" + userID))
	return hex.EncodeToString(sum[:]), true
}

// MemoryStore keeps records in process memory. Used when no database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]domain.AvatarDescription
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]domain.AvatarDescription),
		now:     time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, personID string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.records[personID]
	if !ok || !record.HasDescription() {
		return "", false, nil
	}
	return record.Text(), true, nil
}

func (m *MemoryStore) Upsert(_ context.Context, record domain.AvatarDescription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	analyzedAt := m.now()
	existing, ok := m.records[record.PersonID]
	if ok {
		existing.Description = record.Description
		existing.AnalyzedAt = &analyzedAt
		if record.AvatarURL != nil {
			existing.AvatarURL = record.AvatarURL
		}
		m.records[record.PersonID] = existing
		return nil
	}

	record.AnalyzedAt = &analyzedAt
	m.records[record.PersonID] = record
	return nil
}

// Record returns a copy of the stored record.
func (m *MemoryStore) Record(personID string) (domain.AvatarDescription, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.records[personID]
	return record, ok
}

// Len returns the number of stored records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
