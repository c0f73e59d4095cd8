package kv

import (
	"fmt"

	"giftwise/internal/config"
)

// NewBackendFromConfig creates a Backend implementation based on the store config type.
func NewBackendFromConfig(cfg config.StoreConfig, namespace string) (Backend, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryBackend(), nil
	case "filesystem":
		if cfg.Path == "" {
			return nil, fmt.Errorf("filesystem store requires path to be set")
		}
		return NewFileSystemBackend(cfg.Path)
	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite store requires path to be set")
		}
		return NewSQLiteBackend(cfg.Path)
	case "libsql":
		if cfg.URL == "" {
			return nil, fmt.Errorf("libsql store requires url to be set")
		}
		return NewLibSQLBackend(cfg.URL)
	case "postgres":
		if cfg.URL == "" {
			return nil, fmt.Errorf("postgres store requires url to be set")
		}
		return NewPostgresBackend(cfg.URL)
	case "redis":
		if cfg.URL == "" {
			return nil, fmt.Errorf("redis store requires url to be set")
		}
		return NewRedisBackend(cfg.URL, namespace+":kv")
	case "mongo":
		if cfg.URL == "" {
			return nil, fmt.Errorf("mongo store requires url to be set")
		}
		database := cfg.Database
		if database == "" {
			database = namespace
		}
		return NewMongoBackend(cfg.URL, database)
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}

// NewStoreFromConfig creates the backend for cfg and wraps it in a Store
// bound to namespace.
func NewStoreFromConfig(cfg config.StoreConfig, namespace string) (*Store, error) {
	backend, err := NewBackendFromConfig(cfg, namespace)
	if err != nil {
		return nil, err
	}
	return NewStore(backend, namespace, cfg.Quota), nil
}
