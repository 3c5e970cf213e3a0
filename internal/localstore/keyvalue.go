package localstore

import "context"

// KeyValue is the persistent key-value storage the local store is built on.
// Get reports found=false for keys that were never set.
type KeyValue interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}
