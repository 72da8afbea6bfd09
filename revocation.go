package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// fingerprintToken is the deterministic key under which revoked tokens
// are stored. Hashing bounds storage size and keeps bearer material out
// of the database.
func fingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

type memoryRevocation struct {
	kind      TokenKind
	ownerID   string
	reason    string
	expiresAt time.Time
}

// MemoryRevocationStore is an in process RevocationStore for tests and
// single node deployments. Reads run concurrently with writes under the
// RWMutex: an Add committed before IsRevoked begins is always visible.
type MemoryRevocationStore struct {
	mu      sync.RWMutex
	entries map[string]memoryRevocation
	now     func() time.Time
}

var _ RevocationStore = (*MemoryRevocationStore)(nil)

// NewMemoryRevocationStore creates an empty in memory denylist
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		entries: make(map[string]memoryRevocation),
		now:     time.Now,
	}
}

// Add records the token in the denylist
func (s *MemoryRevocationStore) Add(_ context.Context, token string, kind TokenKind, ownerID string, expiresAt time.Time, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[fingerprintToken(token)] = memoryRevocation{
		kind:      kind,
		ownerID:   ownerID,
		reason:    reason,
		expiresAt: expiresAt,
	}
	return nil
}

// IsRevoked reports whether a non expired denylist entry matches the token
func (s *MemoryRevocationStore) IsRevoked(_ context.Context, token string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[fingerprintToken(token)]
	if !ok {
		return false, nil
	}

	return entry.expiresAt.After(s.now()), nil
}

// PurgeExpired drops entries past their expiry. Idempotent and safe to
// run concurrently with normal traffic.
func (s *MemoryRevocationStore) PurgeExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	purged := 0
	for key, entry := range s.entries {
		if !entry.expiresAt.After(now) {
			delete(s.entries, key)
			purged++
		}
	}

	return purged, nil
}
