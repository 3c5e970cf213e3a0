package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jo-hoe/monadgram/internal/compress"
	"github.com/jo-hoe/monadgram/internal/remote"
	"github.com/jo-hoe/monadgram/internal/submission"
)

const (
	// MaxBytesCompressed is the upload limit when images are re-encoded before sending.
	MaxBytesCompressed = 10 * 1024 * 1024
	// MaxBytesSimple is the upload limit when images are sent as chosen.
	MaxBytesSimple = 1024 * 1024
)

// Uploader sends a submission to the remote backend.
type Uploader interface {
	Upload(ctx context.Context, request remote.UploadRequest) error
}

// PendingStore receives submissions the backend did not accept.
type PendingStore interface {
	AddPending(ctx context.Context, item submission.Submission) error
}

// Compressor re-encodes the chosen file.
type Compressor interface {
	Compress(ctx context.Context, file compress.File) (*compress.Result, error)
}

// Request is one form submission. A nil File means no file was chosen.
type Request struct {
	File   *compress.File
	Handle string
}

// Outcome describes an accepted submission.
type Outcome struct {
	Submission   submission.Submission
	SavedLocally bool
	Compression  *compress.Result
}

// Message is the confirmation shown to the user.
func (o *Outcome) Message() string {
	if o.SavedLocally {
		return "Thanks for sharing! The backend was unavailable, so your art was saved locally and is pending review."
	}
	return "Thanks for sharing! Your art was submitted and is pending review."
}

// Options tune a Flow.
type Options struct {
	CompressionEnabled bool
	// MaxBytes overrides the size limit; 0 picks the default for the compression mode.
	MaxBytes int64
}

func (o Options) maxBytes() int64 {
	if o.MaxBytes > 0 {
		return o.MaxBytes
	}
	if o.CompressionEnabled {
		return MaxBytesCompressed
	}
	return MaxBytesSimple
}

// Flow runs idle -> validating -> compressing -> submitting -> success|error -> idle.
// While it is not idle, further submits fail with ErrBusy.
type Flow struct {
	mu         sync.Mutex
	state      State
	uploader   Uploader
	store      PendingStore
	compressor Compressor
	options    Options
	now        func() time.Time
	observe    func(State)
}

func NewFlow(uploader Uploader, store PendingStore, compressor Compressor, options Options) *Flow {
	return &Flow{
		state:      StateIdle,
		uploader:   uploader,
		store:      store,
		compressor: compressor,
		options:    options,
		now:        time.Now,
	}
}

// State returns the current step.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Observe registers a callback invoked on every state change.
func (f *Flow) Observe(observe func(State)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observe = observe
}

func (f *Flow) setState(state State) {
	f.mu.Lock()
	f.state = state
	observe := f.observe
	f.mu.Unlock()
	if observe != nil {
		observe(state)
	}
}

// Submit validates, compresses and submits the request. A failing remote upload
// falls back to the local pending list instead of failing the flow.
func (f *Flow) Submit(ctx context.Context, request Request) (*Outcome, error) {
	f.mu.Lock()
	if f.state != StateIdle {
		f.mu.Unlock()
		return nil, ErrBusy
	}
	f.state = StateValidating
	observe := f.observe
	f.mu.Unlock()
	if observe != nil {
		observe(StateValidating)
	}

	outcome, err := f.run(ctx, request)
	if err != nil {
		f.setState(StateError)
	} else {
		f.setState(StateSuccess)
	}
	f.setState(StateIdle)
	return outcome, err
}

func (f *Flow) run(ctx context.Context, request Request) (*Outcome, error) {
	mimeType, err := f.validate(request)
	if err != nil {
		return nil, err
	}
	file := *request.File
	handle := submission.NormalizeHandle(request.Handle)

	f.setState(StateCompressing)
	result, err := f.encode(ctx, file, mimeType)
	if err != nil {
		return nil, err
	}

	f.setState(StateSubmitting)
	uploadRequest := remote.UploadRequest{
		DataURL:  result.DataURL,
		FileName: file.Name,
		Twitter:  handle,
	}
	item := submission.Submission{
		Src:       result.DataURL,
		Handle:    handle,
		CreatedAt: submission.At(f.now()),
		FileType:  mimeType,
		IsGIF:     mimeType == "image/gif",
	}

	if err := f.uploader.Upload(ctx, uploadRequest); err != nil {
		slog.Warn("remote upload failed, saving submission locally",
			"file_name", file.Name, "handle", handle, "error", err)
		item.ID = submission.NewLocalID(f.now())
		if err := f.store.AddPending(ctx, item); err != nil {
			return nil, fmt.Errorf("failed to save submission locally: %w", err)
		}
		return &Outcome{Submission: item, SavedLocally: true, Compression: result}, nil
	}

	slog.Info("submission uploaded", "file_name", file.Name, "handle", handle, "size_bytes", result.Size)
	return &Outcome{Submission: item, SavedLocally: false, Compression: result}, nil
}

// validate checks the request before any compression, network or storage work.
func (f *Flow) validate(request Request) (string, error) {
	if request.File == nil || len(request.File.Data) == 0 {
		return "", &ValidationError{Err: ErrFileRequired}
	}
	if limit := f.options.maxBytes(); request.File.Size() > limit {
		return "", &ValidationError{Err: fmt.Errorf("%w: must be %s or smaller", ErrFileTooLarge, formatMiB(limit))}
	}
	mimeType := compress.DetectType(*request.File)
	if !compress.IsAccepted(mimeType) {
		return "", &ValidationError{Err: ErrUnsupportedType}
	}
	if err := compress.Readable(*request.File); err != nil {
		slog.Debug("upload rejected, image unreadable", "file_name", request.File.Name, "error", err)
		return "", &ValidationError{Err: ErrUnreadableImage}
	}
	if err := submission.ValidateHandle(request.Handle); err != nil {
		return "", &ValidationError{Err: err}
	}
	return mimeType, nil
}

func (f *Flow) encode(ctx context.Context, file compress.File, mimeType string) (*compress.Result, error) {
	if !f.options.CompressionEnabled || f.compressor == nil {
		return &compress.Result{
			DataURL:      compress.DataURL(mimeType, file.Data),
			MIMEType:     mimeType,
			Size:         len(file.Data),
			OriginalSize: file.Size(),
			Quality:      1,
		}, nil
	}
	result, err := f.compressor.Compress(ctx, file)
	if errors.Is(err, compress.ErrGIFTooLarge) {
		return nil, &ValidationError{Err: err}
	}
	if errors.Is(err, compress.ErrDecode) {
		return nil, &ValidationError{Err: fmt.Errorf("%w: %v", ErrUnreadableImage, err)}
	}
	if err != nil {
		return nil, fmt.Errorf("could not prepare image: %w", err)
	}
	slog.Debug("upload compressed",
		"file_name", file.Name,
		"original_size_bytes", file.Size(),
		"size_bytes", result.Size,
		"quality", result.Quality)
	return result, nil
}

func formatMiB(bytes int64) string {
	return fmt.Sprintf("%gMB", float64(bytes)/(1024*1024))
}
