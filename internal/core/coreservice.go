package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jo-hoe/monadgram/internal/admin"
	"github.com/jo-hoe/monadgram/internal/compress"
	"github.com/jo-hoe/monadgram/internal/gallery"
	"github.com/jo-hoe/monadgram/internal/localstore"
	"github.com/jo-hoe/monadgram/internal/remote"
	"github.com/jo-hoe/monadgram/internal/submission"
	"github.com/jo-hoe/monadgram/internal/upload"
)

// CoreService wires the store, the remote client and the gallery, upload and
// admin components together.
type CoreService struct {
	config  *ServiceConfig
	store   *localstore.Store
	client  *remote.Client
	fetcher *gallery.Fetcher
	uploads *upload.Service
	admin   *admin.Panel
}

func NewCoreService(config *ServiceConfig) (*CoreService, error) {
	store, err := getLocalStore(config)
	if err != nil {
		return nil, err
	}

	client := remote.NewClient(config.Remote, nil)
	fetcher := gallery.NewDefaultFetcher(client, store)
	compressor := compress.NewCompressor(compress.WithMaxDimension(config.Upload.MaxDimension))
	uploads := upload.NewService(client, store, compressor, upload.Options{
		CompressionEnabled: config.Upload.CompressionEnabled(),
		MaxBytes:           config.Upload.MaxBytes,
	})
	panel := admin.NewPanel(admin.NewStaticPassword(config.Admin.Password), client, fetcher, store, config.Admin.Key)

	slog.Info("core service initialized",
		"local_store", config.LocalStore.Type,
		"remote_upload", config.Remote.Endpoints.Upload != "",
		"remote_rest", config.Remote.HasREST(),
		"compression", config.Upload.CompressionEnabled())

	return &CoreService{
		config:  config,
		store:   store,
		client:  client,
		fetcher: fetcher,
		uploads: uploads,
		admin:   panel,
	}, nil
}

func (service *CoreService) Config() *ServiceConfig {
	return service.config
}

func (service *CoreService) Uploads() *upload.Service {
	return service.uploads
}

func (service *CoreService) Admin() *admin.Panel {
	return service.admin
}

// Approved returns the approved gallery newest first and the name of the source that served it.
func (service *CoreService) Approved(ctx context.Context) ([]submission.Submission, string) {
	return service.fetcher.Approved(ctx)
}

// ImageURL resolves what a client should load for item.
func (service *CoreService) ImageURL(item submission.Submission) string {
	return gallery.ResolveImage(item, service.client.PublicURL)
}

// FindLocal looks up a locally stored approved submission, and pending ones too when includePending is set.
func (service *CoreService) FindLocal(ctx context.Context, id string, includePending bool) (submission.Submission, bool) {
	lists := [][]submission.Submission{service.store.Approved(ctx)}
	if includePending {
		lists = append(lists, service.store.Pending(ctx))
	}
	for _, items := range lists {
		if idx := submission.IndexOf(items, id); idx >= 0 {
			return items[idx], true
		}
	}
	return submission.Submission{}, false
}

func (service *CoreService) Close() error {
	return service.store.Close()
}

func getLocalStore(config *ServiceConfig) (*localstore.Store, error) {
	kv, err := localstore.NewKeyValue(config.LocalStore.Type, config.LocalStore.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize local store: %w", err)
	}
	return localstore.NewStore(kv), nil
}
