package gallery

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jo-hoe/monadgram/internal/remote"
	"github.com/jo-hoe/monadgram/internal/submission"
)

// Source yields approved submissions. A failing source hands over to the next one.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]submission.Submission, error)
}

type sourceFunc struct {
	name  string
	fetch func(ctx context.Context) ([]submission.Submission, error)
}

func (s sourceFunc) Name() string {
	return s.name
}

func (s sourceFunc) Fetch(ctx context.Context) ([]submission.Submission, error) {
	return s.fetch(ctx)
}

// NewSource adapts a function to a Source.
func NewSource(name string, fetch func(ctx context.Context) ([]submission.Submission, error)) Source {
	return sourceFunc{name: name, fetch: fetch}
}

// RemoteApproved is the part of the remote client the gallery reads from.
type RemoteApproved interface {
	ListApproved(ctx context.Context) ([]submission.Submission, error)
	QueryApproved(ctx context.Context) ([]submission.Submission, error)
}

// LocalApproved is the local store's approved list.
type LocalApproved interface {
	Approved(ctx context.Context) []submission.Submission
}

// Fetcher resolves approved submissions from its sources in order; the first success wins.
type Fetcher struct {
	sources []Source
}

func NewFetcher(sources ...Source) *Fetcher {
	return &Fetcher{sources: sources}
}

// NewDefaultFetcher chains list-approved, the REST query and the local store.
func NewDefaultFetcher(client RemoteApproved, local LocalApproved) *Fetcher {
	return NewFetcher(
		NewSource("list-approved", client.ListApproved),
		NewSource("rest-query", client.QueryApproved),
		NewSource("local", func(ctx context.Context) ([]submission.Submission, error) {
			return local.Approved(ctx), nil
		}),
	)
}

// Approved returns the approved submissions newest first and the name of the source
// that produced them. When every source fails the result is empty, never an error.
func (f *Fetcher) Approved(ctx context.Context) ([]submission.Submission, string) {
	for _, source := range f.sources {
		items, err := source.Fetch(ctx)
		if err != nil {
			if errors.Is(err, remote.ErrNotConfigured) {
				slog.Debug("gallery source not configured", "source", source.Name())
			} else {
				slog.Warn("gallery source failed, trying next", "source", source.Name(), "error", err)
			}
			continue
		}
		sorted := make([]submission.Submission, len(items))
		copy(sorted, items)
		submission.SortNewestFirst(sorted)
		return sorted, source.Name()
	}
	slog.Error("all gallery sources failed")
	return []submission.Submission{}, ""
}
