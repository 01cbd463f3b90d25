package planstore

import (
	"context"
	"errors"
	"fmt"

	"moneyclip/internal/models"
	"moneyclip/internal/services/storage"
)

// SaveSnapshot appends a snapshot to the user's history, replacing an
// earlier one for the same date and mode.
func (s *Store) SaveSnapshot(_ context.Context, snap models.ClipSnapshot) error {
	if !ValidUserID(snap.UserID) {
		return ErrInvalidUser
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.loadHistory(snap.UserID)
	if err != nil {
		return err
	}
	kept := history[:0]
	for _, h := range history {
		if !(h.CalculationDate.Equal(snap.CalculationDate) && h.Mode == snap.Mode) {
			kept = append(kept, h)
		}
	}
	kept = append(kept, snap)
	if len(kept) > historyLimit {
		kept = kept[len(kept)-historyLimit:]
	}

	if err := s.storage.WriteJSON(s.historyPath(snap.UserID), kept); err != nil {
		return fmt.Errorf("save history for %s: %w", snap.UserID, err)
	}
	return nil
}

// Snapshots returns up to limit snapshots, newest first
func (s *Store) Snapshots(_ context.Context, userID string, limit int) ([]models.ClipSnapshot, error) {
	if !ValidUserID(userID) {
		return nil, ErrInvalidUser
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, err := s.loadHistory(userID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = len(history)
	}
	out := make([]models.ClipSnapshot, 0, min(limit, len(history)))
	for i := len(history) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, history[i])
	}
	return out, nil
}

func (s *Store) loadHistory(userID string) ([]models.ClipSnapshot, error) {
	var history []models.ClipSnapshot
	err := s.storage.ReadJSON(s.historyPath(userID), &history)
	if err != nil && !errors.Is(err, storage.ErrNotExist) {
		return nil, fmt.Errorf("load history for %s: %w", userID, err)
	}
	return history, nil
}
