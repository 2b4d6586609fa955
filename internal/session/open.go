package session

import (
	"context"
	"fmt"
	"io"

	"socialfeed/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenStore builds the Store selected by cfg.SessionBackend. The returned
// closer releases any connection the backend holds.
func OpenStore(ctx context.Context, cfg *config.Config) (Store, io.Closer, error) {
	switch cfg.SessionBackend {
	case config.SessionBackendFile:
		return NewFileStore(cfg.SessionFile), nopCloser{}, nil
	case config.SessionBackendMemory:
		return NewMemoryStore(), nopCloser{}, nil
	case config.SessionBackendRedis:
		store, err := NewRedisStore(ctx, cfg.RedisURL, cfg.SessionProfile)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case config.SessionBackendSQL:
		store, err := OpenSQLStore(cfg.SessionDSN, cfg.SessionProfile)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
}
