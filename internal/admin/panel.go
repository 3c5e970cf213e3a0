package admin

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jo-hoe/monadgram/internal/remote"
	"github.com/jo-hoe/monadgram/internal/submission"
)

const (
	EmptyPendingMessage  = "No pending submissions."
	EmptyApprovedMessage = "No approved submissions yet."
)

var ErrNotFound = errors.New("submission not found")

// Backend is the moderation surface of the remote backend.
type Backend interface {
	ListPending(ctx context.Context, adminKey string) ([]submission.Submission, error)
	Approve(ctx context.Context, adminKey, id string) error
	Delete(ctx context.Context, adminKey, id string) error
}

// ApprovedLister resolves the approved list through its own fallback chain.
type ApprovedLister interface {
	Approved(ctx context.Context) ([]submission.Submission, string)
}

// Store is the local fallback for lists and the home of the session marker.
type Store interface {
	Pending(ctx context.Context) []submission.Submission
	Approved(ctx context.Context) []submission.Submission
	Approve(ctx context.Context, id string) (bool, error)
	RemovePending(ctx context.Context, id string) (bool, error)
	RemoveApproved(ctx context.Context, id string) (bool, error)
	Session(ctx context.Context) string
	SetSession(ctx context.Context, marker string) error
	ClearSession(ctx context.Context) error
	Clear(ctx context.Context) error
}

// Panel moderates submissions. Remote endpoints are used when configured; otherwise
// the local store is changed directly.
type Panel struct {
	auth     Authenticator
	backend  Backend
	approved ApprovedLister
	store    Store
	adminKey string
}

func NewPanel(auth Authenticator, backend Backend, approved ApprovedLister, store Store, adminKey string) *Panel {
	return &Panel{
		auth:     auth,
		backend:  backend,
		approved: approved,
		store:    store,
		adminKey: adminKey,
	}
}

// Login checks password and persists a new session marker, which is returned.
func (p *Panel) Login(ctx context.Context, password string) (string, error) {
	if err := p.auth.Authenticate(ctx, password); err != nil {
		slog.Warn("admin login rejected")
		return "", err
	}
	marker := uuid.NewString()
	if err := p.store.SetSession(ctx, marker); err != nil {
		return "", fmt.Errorf("failed to persist admin session: %w", err)
	}
	slog.Info("admin logged in")
	return marker, nil
}

func (p *Panel) Logout(ctx context.Context) error {
	return p.store.ClearSession(ctx)
}

// Authorized reports whether marker matches the persisted session.
func (p *Panel) Authorized(ctx context.Context, marker string) bool {
	current := p.store.Session(ctx)
	if marker == "" || current == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(marker), []byte(current)) == 1
}

// ListPending returns pending submissions newest first; backend failures fall back to the local list.
func (p *Panel) ListPending(ctx context.Context) []submission.Submission {
	items, err := p.backend.ListPending(ctx, p.adminKey)
	if err != nil {
		logFallback("list-pending", err)
		items = p.store.Pending(ctx)
	}
	return sorted(items)
}

// ListApproved returns approved submissions newest first.
func (p *Panel) ListApproved(ctx context.Context) []submission.Submission {
	items, source := p.approved.Approved(ctx)
	slog.Debug("admin approved list resolved", "source", source, "count", len(items))
	return sorted(items)
}

// Approve moves a pending submission to approved.
func (p *Panel) Approve(ctx context.Context, id string) error {
	err := p.backend.Approve(ctx, p.adminKey, id)
	if errors.Is(err, remote.ErrNotConfigured) {
		moved, err := p.store.Approve(ctx, id)
		if err != nil {
			return err
		}
		if !moved {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil
	}
	if err != nil {
		slog.Error("failed to approve submission", "id", id, "error", err)
	}
	return err
}

// Delete removes a submission from either list. It is never moved to approved.
func (p *Panel) Delete(ctx context.Context, id string) error {
	err := p.backend.Delete(ctx, p.adminKey, id)
	if errors.Is(err, remote.ErrNotConfigured) {
		removedPending, err := p.store.RemovePending(ctx, id)
		if err != nil {
			return err
		}
		removedApproved, err := p.store.RemoveApproved(ctx, id)
		if err != nil {
			return err
		}
		if !removedPending && !removedApproved {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil
	}
	if err != nil {
		slog.Error("failed to delete submission", "id", id, "error", err)
	}
	return err
}

// BulkApprove approves ids concurrently and reports once all have settled.
func (p *Panel) BulkApprove(ctx context.Context, ids []string) BulkResult {
	result := forEachConcurrently(unique(ids), func(id string) error {
		return p.Approve(ctx, id)
	})
	slog.Info("bulk approve finished", "succeeded", result.Succeeded, "failed", result.Failed)
	return result
}

// BulkDelete deletes ids concurrently and reports once all have settled.
func (p *Panel) BulkDelete(ctx context.Context, ids []string) BulkResult {
	result := forEachConcurrently(unique(ids), func(id string) error {
		return p.Delete(ctx, id)
	})
	slog.Info("bulk delete finished", "succeeded", result.Succeeded, "failed", result.Failed)
	return result
}

// Reset wipes the local lists and the session. Meant for testing deployments.
func (p *Panel) Reset(ctx context.Context) error {
	slog.Warn("clearing local store")
	return p.store.Clear(ctx)
}

func logFallback(operation string, err error) {
	if errors.Is(err, remote.ErrNotConfigured) {
		slog.Debug("endpoint not configured, using local store", "operation", operation)
		return
	}
	slog.Warn("remote call failed, using local store", "operation", operation, "error", err)
}

func sorted(items []submission.Submission) []submission.Submission {
	out := make([]submission.Submission, len(items))
	copy(out, items)
	submission.SortNewestFirst(out)
	return out
}

func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
