package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/spec-kit/triage-service/internal/domain"
)

const sessionsKey = "triage:sessions"

// SessionStore keeps the rolling session-history list, bounded in length.
type SessionStore struct {
	kv  KV
	max int
}

// NewSessionStore constructs the store. max bounds the list length.
func NewSessionStore(kv KV, max int) *SessionStore {
	if max <= 0 {
		max = 50
	}
	return &SessionStore{kv: kv, max: max}
}

// Append adds a session record, dropping the oldest when the list is full.
func (s *SessionStore) Append(ctx context.Context, record domain.SessionRecord) error {
	records, err := s.List(ctx)
	if err != nil {
		return err
	}
	records = append(records, record)
	if len(records) > s.max {
		records = records[len(records)-s.max:]
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, sessionsKey, raw)
}

// List returns all retained session records, oldest first.
func (s *SessionStore) List(ctx context.Context) ([]domain.SessionRecord, error) {
	raw, err := s.kv.Get(ctx, sessionsKey)
	if errors.Is(err, ErrKeyAbsent) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var records []domain.SessionRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	return records, nil
}
