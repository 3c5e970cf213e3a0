package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jo-hoe/monadgram/internal/submission"
)

const (
	PendingKey      = "monadgram_pending"
	ApprovedKey     = "monadgram_approved"
	AdminSessionKey = "monadgram_admin_session"
)

// Store keeps the pending and approved lists as JSON arrays plus the admin
// session marker. Missing or corrupt lists read as empty.
type Store struct {
	kv KeyValue
	mu sync.Mutex
}

func NewStore(kv KeyValue) *Store {
	return &Store{kv: kv}
}

func (s *Store) Pending(ctx context.Context) []submission.Submission {
	return s.readList(ctx, PendingKey)
}

func (s *Store) Approved(ctx context.Context) []submission.Submission {
	return s.readList(ctx, ApprovedKey)
}

func (s *Store) SetPending(ctx context.Context, items []submission.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeList(ctx, PendingKey, items)
}

func (s *Store) SetApproved(ctx context.Context, items []submission.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeList(ctx, ApprovedKey, items)
}

// AddPending appends item to the pending list.
func (s *Store) AddPending(ctx context.Context, item submission.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.readList(ctx, PendingKey)
	if submission.IndexOf(items, item.ID) >= 0 {
		return fmt.Errorf("submission %s already pending", item.ID)
	}
	return s.writeList(ctx, PendingKey, append(items, item))
}

// RemovePending deletes id from the pending list and reports whether it was there.
func (s *Store) RemovePending(ctx context.Context, id string) (bool, error) {
	return s.remove(ctx, PendingKey, id)
}

// RemoveApproved deletes id from the approved list and reports whether it was there.
func (s *Store) RemoveApproved(ctx context.Context, id string) (bool, error) {
	return s.remove(ctx, ApprovedKey, id)
}

// Approve moves id from the pending list to the approved list. Pending is written
// first and restored when the approved write fails, so the item never sits in both.
func (s *Store) Approve(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.readList(ctx, PendingKey)
	idx := submission.IndexOf(pending, id)
	if idx < 0 {
		return false, nil
	}
	item := pending[idx]
	remaining := make([]submission.Submission, 0, len(pending)-1)
	remaining = append(remaining, pending[:idx]...)
	remaining = append(remaining, pending[idx+1:]...)

	approved := s.readList(ctx, ApprovedKey)
	if submission.IndexOf(approved, id) < 0 {
		approved = append(approved, item)
	}
	if err := s.writeList(ctx, PendingKey, remaining); err != nil {
		return false, err
	}
	if err := s.writeList(ctx, ApprovedKey, approved); err != nil {
		if rollbackErr := s.writeList(ctx, PendingKey, pending); rollbackErr != nil {
			slog.Error("failed to restore pending list after approve failure",
				"id", id, "error", rollbackErr)
		}
		return false, err
	}
	return true, nil
}

// Session returns the persisted admin session marker, empty when none is stored.
func (s *Store) Session(ctx context.Context) string {
	value, found, err := s.kv.Get(ctx, AdminSessionKey)
	if err != nil {
		slog.Warn("failed to read admin session", "error", err)
		return ""
	}
	if !found {
		return ""
	}
	return value
}

func (s *Store) SetSession(ctx context.Context, marker string) error {
	return s.kv.Set(ctx, AdminSessionKey, marker)
}

func (s *Store) ClearSession(ctx context.Context) error {
	return s.kv.Delete(ctx, AdminSessionKey)
}

// Clear removes both lists and the session marker.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range []string{PendingKey, ApprovedKey, AdminSessionKey} {
		if err := s.kv.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to clear %s: %w", key, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.kv.Close()
}

func (s *Store) remove(ctx context.Context, key, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.readList(ctx, key)
	idx := submission.IndexOf(items, id)
	if idx < 0 {
		return false, nil
	}
	items = append(items[:idx], items[idx+1:]...)
	if err := s.writeList(ctx, key, items); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) readList(ctx context.Context, key string) []submission.Submission {
	raw, found, err := s.kv.Get(ctx, key)
	if err != nil {
		slog.Warn("failed to read local list, treating as empty", "key", key, "error", err)
		return []submission.Submission{}
	}
	if !found || raw == "" {
		return []submission.Submission{}
	}

	var items []submission.Submission
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		slog.Warn("corrupt local list, treating as empty", "key", key, "error", err)
		return []submission.Submission{}
	}
	if items == nil {
		items = []submission.Submission{}
	}
	return items
}

func (s *Store) writeList(ctx context.Context, key string, items []submission.Submission) error {
	if items == nil {
		items = []submission.Submission{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
