package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jo-hoe/monadgram/internal/gallery"
	"github.com/jo-hoe/monadgram/internal/localstore"
	"github.com/jo-hoe/monadgram/internal/remote"
	"github.com/jo-hoe/monadgram/internal/submission"
)

func newTestStore(t *testing.T) *localstore.Store {
	t.Helper()
	kv, err := localstore.NewSQLiteKeyValue(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteKeyValue error: %v", err)
	}
	store := localstore.NewStore(kv)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func item(id string, ms int64) submission.Submission {
	return submission.Submission{
		ID:        id,
		Src:       "data:image/jpeg;base64,AAAA",
		Handle:    "@" + id,
		CreatedAt: submission.At(time.UnixMilli(ms)),
	}
}

// newLocalPanel wires a panel to a backend without any configured endpoint.
func newLocalPanel(t *testing.T, password string) (*Panel, *localstore.Store) {
	t.Helper()
	store := newTestStore(t)
	client := remote.NewClient(remote.Config{}, nil)
	fetcher := gallery.NewDefaultFetcher(client, store)
	return NewPanel(NewStaticPassword(password), client, fetcher, store, "admin-key"), store
}

func ids(items []submission.Submission) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestPanel_LoginLogout(t *testing.T) {
	panel, store := newLocalPanel(t, "s3cret")
	ctx := context.Background()

	if _, err := panel.Login(ctx, "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login with wrong password = %v, want ErrInvalidCredentials", err)
	}
	if store.Session(ctx) != "" {
		t.Fatalf("failed login must not persist a session")
	}

	marker, err := panel.Login(ctx, "s3cret")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if !panel.Authorized(ctx, marker) {
		t.Fatalf("marker should be authorized after login")
	}
	if panel.Authorized(ctx, "forged") || panel.Authorized(ctx, "") {
		t.Fatalf("unknown markers must not be authorized")
	}

	if err := panel.Logout(ctx); err != nil {
		t.Fatalf("Logout error: %v", err)
	}
	if panel.Authorized(ctx, marker) {
		t.Fatalf("marker should be rejected after logout")
	}
}

func TestStaticPassword_EmptyDisablesLogin(t *testing.T) {
	auth := NewStaticPassword("")
	if err := auth.Authenticate(context.Background(), ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("empty configured password must reject login, got %v", err)
	}
}

func TestPanel_LocalApproveAndDelete(t *testing.T) {
	panel, store := newLocalPanel(t, "pw")
	ctx := context.Background()
	if err := store.SetPending(ctx, []submission.Submission{item("a", 1), item("b", 3), item("c", 2)}); err != nil {
		t.Fatalf("SetPending error: %v", err)
	}

	if got := ids(panel.ListPending(ctx)); strings.Join(got, ",") != "b,c,a" {
		t.Fatalf("pending order = %v, want [b c a]", got)
	}

	if err := panel.Approve(ctx, "a"); err != nil {
		t.Fatalf("Approve error: %v", err)
	}
	if err := panel.Delete(ctx, "b"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	if got := ids(panel.ListPending(ctx)); strings.Join(got, ",") != "c" {
		t.Fatalf("pending after moderation = %v, want [c]", got)
	}
	approved := ids(panel.ListApproved(ctx))
	if strings.Join(approved, ",") != "a" {
		t.Fatalf("approved = %v, want [a]; deleted ids must not be approved", approved)
	}

	if err := panel.Approve(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Approve of unknown id = %v, want ErrNotFound", err)
	}
	if err := panel.Delete(ctx, "a"); err != nil {
		t.Fatalf("Delete of approved id error: %v", err)
	}
	if got := panel.ListApproved(ctx); len(got) != 0 {
		t.Fatalf("approved should be empty after delete, got %v", ids(got))
	}
}

func TestPanel_BulkLocal(t *testing.T) {
	panel, store := newLocalPanel(t, "pw")
	ctx := context.Background()
	var pending []submission.Submission
	for i := 0; i < 20; i++ {
		pending = append(pending, item(fmt.Sprintf("p%02d", i), int64(i)))
	}
	if err := store.SetPending(ctx, pending); err != nil {
		t.Fatalf("SetPending error: %v", err)
	}

	result := panel.BulkApprove(ctx, []string{"p00", "p01", "p02", "p01", "nope"})
	if result.Succeeded != 3 || result.Failed != 1 {
		t.Fatalf("BulkApprove = %s, want 3 succeeded, 1 failed", result)
	}
	if result.String() != "3 succeeded, 1 failed" {
		t.Fatalf("unexpected summary %q", result.String())
	}
	if _, ok := result.Errors["nope"]; !ok {
		t.Fatalf("expected an error recorded for the unknown id")
	}
	if got := len(panel.ListApproved(ctx)); got != 3 {
		t.Fatalf("approved count = %d, want 3", got)
	}

	var rest []string
	for i := 3; i < 20; i++ {
		rest = append(rest, fmt.Sprintf("p%02d", i))
	}
	result = panel.BulkDelete(ctx, rest)
	if result.Succeeded != 17 || result.Failed != 0 {
		t.Fatalf("BulkDelete = %s", result)
	}
	if got := panel.ListPending(ctx); len(got) != 0 {
		t.Fatalf("pending should be empty, got %v", ids(got))
	}
}

type remoteFake struct {
	mu       sync.Mutex
	pending  []submission.Submission
	approved []submission.Submission
	keys     []string
	fail     map[string]bool
}

func (f *remoteFake) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/list-pending", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.keys = append(f.keys, r.Header.Get("x-admin-key"))
		fmt.Fprint(w, `{"items":[`)
		for i, it := range f.pending {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"id":%q,"storage_path":"p/%s.jpg","twitter":%q,"created_at":"2024-01-0%dT00:00:00Z"}`, it.ID, it.ID, it.Handle, i+1)
		}
		fmt.Fprint(w, `]}`)
	})
	move := func(w http.ResponseWriter, r *http.Request, approve bool) {
		var body struct {
			ID string `json:"id"`
		}
		if err := decodeJSON(r, &body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.fail[body.ID] {
			http.Error(w, "nope", http.StatusInternalServerError)
			return
		}
		idx := submission.IndexOf(f.pending, body.ID)
		if idx < 0 {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		moved := f.pending[idx]
		f.pending = append(f.pending[:idx], f.pending[idx+1:]...)
		if approve {
			f.approved = append(f.approved, moved)
		}
	}
	mux.HandleFunc("/approve", func(w http.ResponseWriter, r *http.Request) { move(w, r, true) })
	mux.HandleFunc("/delete", func(w http.ResponseWriter, r *http.Request) { move(w, r, false) })
	return mux
}

func TestPanel_RemoteModeration(t *testing.T) {
	fake := &remoteFake{
		pending: []submission.Submission{item("r1", 1), item("r2", 2), item("r3", 3)},
		fail:    map[string]bool{"r3": true},
	}
	server := httptest.NewServer(fake.handler())
	t.Cleanup(server.Close)

	client := remote.NewClient(remote.Config{
		BaseURL: server.URL,
		Endpoints: remote.Endpoints{
			ListPending: server.URL + "/list-pending",
			Approve:     server.URL + "/approve",
			Delete:      server.URL + "/delete",
		},
	}, server.Client())
	store := newTestStore(t)
	panel := NewPanel(NewStaticPassword("pw"), client, gallery.NewDefaultFetcher(client, store), store, "admin-key")
	ctx := context.Background()

	if got := len(panel.ListPending(ctx)); got != 3 {
		t.Fatalf("remote pending count = %d, want 3", got)
	}

	result := panel.BulkApprove(ctx, []string{"r1", "r3"})
	if result.String() != "1 succeeded, 1 failed" {
		t.Fatalf("BulkApprove = %s", result)
	}
	if err := panel.Delete(ctx, "r2"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.approved) != 1 || fake.approved[0].ID != "r1" {
		t.Fatalf("remote approved = %v", ids(fake.approved))
	}
	if len(fake.pending) != 1 || fake.pending[0].ID != "r3" {
		t.Fatalf("remote pending = %v", ids(fake.pending))
	}
	for _, key := range fake.keys {
		if key != "admin-key" {
			t.Fatalf("x-admin-key = %q, want admin-key", key)
		}
	}
	if got := store.Approved(ctx); len(got) != 0 {
		t.Fatalf("remote moderation must not touch the local store, got %v", ids(got))
	}
}

func TestPanel_ListPendingFallsBackOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	client := remote.NewClient(remote.Config{
		BaseURL:   server.URL,
		Endpoints: remote.Endpoints{ListPending: server.URL + "/list-pending"},
	}, server.Client())
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.AddPending(ctx, item("local", 5)); err != nil {
		t.Fatalf("AddPending error: %v", err)
	}
	panel := NewPanel(NewStaticPassword("pw"), client, gallery.NewDefaultFetcher(client, store), store, "k")

	got := panel.ListPending(ctx)
	if len(got) != 1 || got[0].ID != "local" {
		t.Fatalf("fallback pending = %v, want [local]", ids(got))
	}
}

func TestPanel_Reset(t *testing.T) {
	panel, store := newLocalPanel(t, "pw")
	ctx := context.Background()
	if err := store.AddPending(ctx, item("x", 1)); err != nil {
		t.Fatalf("AddPending error: %v", err)
	}
	marker, err := panel.Login(ctx, "pw")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if err := panel.Reset(ctx); err != nil {
		t.Fatalf("Reset error: %v", err)
	}
	if len(store.Pending(ctx)) != 0 || panel.Authorized(ctx, marker) {
		t.Fatalf("reset should clear lists and session")
	}
}
