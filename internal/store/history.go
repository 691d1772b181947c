package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spec-kit/triage-service/internal/domain"
)

const historyKeyPrefix = "triage:history:"

// HistoryStore is the durable map from ticket identity to the last processing
// attempt, used to suppress redundant reprocessing.
type HistoryStore struct {
	kv KV
}

// NewHistoryStore constructs the store over a KV collaborator.
func NewHistoryStore(kv KV) *HistoryStore {
	return &HistoryStore{kv: kv}
}

// Get returns the entry for a ticket, or nil when the ticket has never been
// observed.
func (s *HistoryStore) Get(ctx context.Context, ticketID int64) (*domain.StatusHistoryEntry, error) {
	raw, err := s.kv.Get(ctx, historyKey(ticketID))
	if errors.Is(err, ErrKeyAbsent) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry domain.StatusHistoryEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("decode history entry for ticket %d: %w", ticketID, err)
	}
	return &entry, nil
}

// Record overwrites the entry for a ticket. Called on every processing
// attempt, successful or deliberately skipped.
func (s *HistoryStore) Record(ctx context.Context, entry domain.StatusHistoryEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, historyKey(entry.TicketID), raw)
}

// PruneOlderThan deletes entries whose last processing attempt predates the
// cutoff age. Returns the number of entries removed.
func (s *HistoryStore) PruneOlderThan(ctx context.Context, age time.Duration) (int, error) {
	keys, err := s.kv.Keys(ctx, historyKeyPrefix)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-age)
	pruned := 0
	for _, key := range keys {
		raw, err := s.kv.Get(ctx, key)
		if errors.Is(err, ErrKeyAbsent) {
			continue
		}
		if err != nil {
			return pruned, err
		}
		var entry domain.StatusHistoryEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			// Unreadable records count as expired.
			if err := s.kv.Delete(ctx, key); err != nil {
				return pruned, err
			}
			pruned++
			continue
		}
		if entry.LastProcessedAt.Before(cutoff) {
			if err := s.kv.Delete(ctx, key); err != nil {
				return pruned, err
			}
			pruned++
		}
	}
	return pruned, nil
}

func historyKey(ticketID int64) string {
	return fmt.Sprintf("%s%d", historyKeyPrefix, ticketID)
}
