package localstore

import (
	"context"
	"fmt"
	"log/slog"
)

// NewKeyValue opens the key-value backend of the given type ("sqlite" or "redis").
func NewKeyValue(storeType, connectionString string) (kv KeyValue, err error) {
	switch storeType {
	case "", "sqlite":
		kv, err = NewSQLiteKeyValue(connectionString)
	case "redis":
		kv, err = NewRedisKeyValue(connectionString)
	default:
		return nil, fmt.Errorf("unsupported local store type: %s", storeType)
	}
	if err != nil {
		return nil, err
	}

	if err := kv.Ping(context.Background()); err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("local store %s not reachable: %w", storeType, err)
	}
	slog.Info("local store initialized", "type", storeType)
	return kv, nil
}
