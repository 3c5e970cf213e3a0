package upload

import (
	"context"
	"sync"
)

// Service runs one Flow per uploader so that repeated clicks from the same client
// are rejected while different clients upload independently.
type Service struct {
	mu         sync.Mutex
	active     map[string]*Flow
	uploader   Uploader
	store      PendingStore
	compressor Compressor
	options    Options
}

func NewService(uploader Uploader, store PendingStore, compressor Compressor, options Options) *Service {
	return &Service{
		active:     make(map[string]*Flow),
		uploader:   uploader,
		store:      store,
		compressor: compressor,
		options:    options,
	}
}

// Options returns the flow options, e.g. to render the size limit.
func (s *Service) Options() Options {
	return s.options
}

// MaxBytes is the effective upload size limit.
func (s *Service) MaxBytes() int64 {
	return s.options.maxBytes()
}

// Submit runs request for uploaderKey, or returns ErrBusy when that uploader already has one in flight.
func (s *Service) Submit(ctx context.Context, uploaderKey string, request Request) (*Outcome, error) {
	s.mu.Lock()
	if _, busy := s.active[uploaderKey]; busy {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	flow := NewFlow(s.uploader, s.store, s.compressor, s.options)
	s.active[uploaderKey] = flow
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.active, uploaderKey)
		s.mu.Unlock()
	}()
	return flow.Submit(ctx, request)
}

// InFlight reports whether uploaderKey currently has a submission running.
func (s *Service) InFlight(uploaderKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, busy := s.active[uploaderKey]
	return busy
}
