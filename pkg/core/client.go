package core

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/oceanbase/agentrecall-go/pkg/intelligence"
	"github.com/oceanbase/agentrecall-go/pkg/storage"
	"github.com/oceanbase/agentrecall-go/pkg/storage/oceanbase"
	"github.com/oceanbase/agentrecall-go/pkg/storage/postgres"
	sqliteStore "github.com/oceanbase/agentrecall-go/pkg/storage/sqlite"
)

// Client wires the Store, Retriever, Ranker and Bridge to one storage
// backend.
//
// Client is safe for concurrent use. All components share the backend, and
// the backend's connection pool is the only shared state.
//
// Example:
//
//	config, _ := core.LoadConfigFromEnv()
//	client, err := core.NewClient(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	result, err := client.Bridge().RecordEvent(ctx, &core.AgentEvent{...})
type Client struct {
	backend   storage.RecordStore
	store     *MemoryStore
	retriever *Retriever
	ranker    *intelligence.Ranker
	bridge    *Bridge
	logger    *log.Logger
}

// NewClient creates a Client from configuration.
//
// The function:
//  1. Validates the configuration
//  2. Opens the configured storage backend and initializes its schema
//  3. Builds the components over it
//
// Options passed here take precedence over the configuration.
func NewClient(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, NewMemoryError("NewClient", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	backend, err := initStorage(cfg.Storage, cfg.TablePrefix)
	if err != nil {
		return nil, err
	}

	opts = append([]Option{WithNodeID(cfg.NodeID)}, opts...)
	o := applyOptions(opts)
	// A caller-supplied logger keeps its own level.
	if cfg.LogLevel != "" && !o.loggerSet {
		level, _ := log.ParseLevel(cfg.LogLevel)
		o.logger.SetLevel(level)
	}
	opts = append(opts, WithLogger(o.logger))

	client, err := NewClientWithBackend(backend, opts...)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	client.logger.Info("client ready", "provider", cfg.Storage.Provider, "prefix", cfg.TablePrefix, "node", cfg.NodeID)

	return client, nil
}

// NewClientWithBackend creates a Client over an already opened backend.
// Close closes the backend.
func NewClientWithBackend(backend storage.RecordStore, opts ...Option) (*Client, error) {
	if backend == nil {
		return nil, NewMemoryError("NewClientWithBackend", fmt.Errorf("%w: backend is required", ErrInvalidConfig))
	}

	o := applyOptions(opts)
	opts = append(opts, WithLogger(o.logger))

	store, err := NewMemoryStore(backend, opts...)
	if err != nil {
		return nil, err
	}
	retriever := NewRetriever(backend, opts...)
	ranker := intelligence.NewRanker(intelligence.WithClock(o.clock))

	return &Client{
		backend:   backend,
		store:     store,
		retriever: retriever,
		ranker:    ranker,
		bridge:    NewBridge(store, retriever, ranker, opts...),
		logger:    o.logger,
	}, nil
}

// Store returns the write-side component.
func (c *Client) Store() *MemoryStore {
	return c.store
}

// Retriever returns the read-side component.
func (c *Client) Retriever() *Retriever {
	return c.retriever
}

// Ranker returns the ranker. Its type weights may be customised before the
// client is shared between goroutines.
func (c *Client) Ranker() *intelligence.Ranker {
	return c.ranker
}

// Bridge returns the agent-facing component.
func (c *Client) Bridge() *Bridge {
	return c.bridge
}

// Close closes the storage backend.
func (c *Client) Close() error {
	return c.backend.Close()
}

// initStorage opens the backend named by cfg.Provider.
func initStorage(cfg StorageConfig, tablePrefix string) (storage.RecordStore, error) {
	var (
		backend storage.RecordStore
		err     error
	)

	switch cfg.Provider {
	case ProviderOceanBase:
		backend, err = oceanbase.NewClient(&oceanbase.Config{
			Host:        configString(cfg.Config, "host", "127.0.0.1"),
			Port:        configInt(cfg.Config, "port", 2881),
			User:        configString(cfg.Config, "user", "root@sys"),
			Password:    configString(cfg.Config, "password", ""),
			DBName:      configString(cfg.Config, "db_name", "agentrecall"),
			TablePrefix: tablePrefix,
		})
	case ProviderSQLite:
		backend, err = sqliteStore.NewClient(&sqliteStore.Config{
			DBPath:      configString(cfg.Config, "db_path", "./agentrecall.db"),
			TablePrefix: tablePrefix,
		})
	case ProviderPostgres:
		backend, err = postgres.NewClient(&postgres.Config{
			Host:        configString(cfg.Config, "host", "localhost"),
			Port:        configInt(cfg.Config, "port", 5432),
			User:        configString(cfg.Config, "user", "postgres"),
			Password:    configString(cfg.Config, "password", ""),
			DBName:      configString(cfg.Config, "db_name", "agentrecall"),
			SSLMode:     configString(cfg.Config, "ssl_mode", "disable"),
			TablePrefix: tablePrefix,
		})
	default:
		return nil, NewMemoryError("initStorage", ErrInvalidConfig)
	}
	if err != nil {
		return nil, NewMemoryError("initStorage", fmt.Errorf("%w: %w", ErrConnectionFailed, err))
	}
	return backend, nil
}
