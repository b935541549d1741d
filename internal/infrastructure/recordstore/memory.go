package recordstore

import (
	"context"
	"sync"

	"wallet_session/internal/app/port"
	"wallet_session/internal/domain/entity"
)

// MemoryStore keeps verification records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records []entity.VerificationRecord
	logger  port.Logger
}

func NewMemoryStore(l port.Logger) *MemoryStore {
	return &MemoryStore{logger: l}
}

// Save implements port.RecordSink.
func (s *MemoryStore) Save(ctx context.Context, rec entity.VerificationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.records = append(s.records, rec)
	n := len(s.records)
	s.mu.Unlock()
	s.logger.Debug("Verification record stored", "userId", rec.UserID, "verified", rec.Verified, "count", n)
	return nil
}

// List returns the stored records, oldest first.
func (s *MemoryStore) List() []entity.VerificationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entity.VerificationRecord(nil), s.records...)
}
