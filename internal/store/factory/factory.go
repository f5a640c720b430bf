// Package factory builds the configured store backend.
package factory

import (
	"fmt"
	"log/slog"

	"goighem/internal/store"
	"goighem/internal/store/memory"
	"goighem/internal/store/rest"
	"goighem/internal/store/sqlite"
)

// BackendType selects which store adapter backs the application.
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
	RemoteBackend BackendType = "rest"
)

func (bt BackendType) String() string { return string(bt) }

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, RemoteBackend:
		return true
	default:
		return false
	}
}

// BackendTypes returns every valid backend type string, for error messages
// and CLI help.
func BackendTypes() []string {
	return []string{MemoryBackend.String(), SQLiteBackend.String(), RemoteBackend.String()}
}

// Config holds what each backend needs to come up.
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Remote row store specific
	RemoteURL    string
	RemoteAPIKey string
	RemoteToken  rest.TokenSource
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type %q (valid: %v)", c.Type, BackendTypes())
	}
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("sqlite database path is required for the sqlite backend")
		}
	case RemoteBackend:
		if c.RemoteURL == "" {
			return fmt.Errorf("remote store URL is required for the rest backend")
		}
		if c.RemoteAPIKey == "" {
			return fmt.Errorf("remote store API key is required for the rest backend")
		}
	case MemoryBackend:
		// Nothing to validate.
	}
	return nil
}

type Factory struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// CreateStore builds the store described by cfg.
func (f *Factory) CreateStore(cfg Config) (store.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case SQLiteBackend:
		s, err := sqlite.New(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite store: %w", err)
		}
		f.logger.Info("initialized sqlite store", "db_path", cfg.SQLiteDBPath)
		return s, nil

	case RemoteBackend:
		token := cfg.RemoteToken
		if token == nil {
			token = func() string { return "" }
		}
		c := rest.New(cfg.RemoteURL, cfg.RemoteAPIKey, token)
		f.logger.Info("initialized remote store", "url", cfg.RemoteURL)
		return c, nil

	case MemoryBackend:
		f.logger.Info("initialized in-memory store")
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}
