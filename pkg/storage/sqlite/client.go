// Package sqlite provides the SQLite backend for the record store.
//
// SQLite is a lightweight, file-based database suitable for local development,
// tests and single-process agents. Foreign keys are enforced so links and
// signals cannot point at missing memories.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oceanbase/agentrecall-go/pkg/storage/sqlstore"
)

// Client implements storage.RecordStore using SQLite as the backend.
type Client struct {
	*sqlstore.Store
}

// Config contains configuration for creating a SQLite record store.
type Config struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// TablePrefix is prepended to every table name.
	TablePrefix string
}

// NewClient opens (creating if needed) the database file and initializes the
// schema.
//
// Parameters:
//   - cfg: Configuration containing database path and table prefix
//
// Returns:
//   - *Client: The SQLite client instance
//   - error: Error if database connection or table creation fails
func NewClient(cfg *Config) (*Client, error) {
	// Create parent directory if it doesn't exist
	dbDir := filepath.Dir(cfg.DBPath)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("NewSQLiteClient: failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", buildDSN(cfg.DBPath))
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	client := &Client{Store: sqlstore.New(db, sqlstore.SQLiteDialect, cfg.TablePrefix)}

	if err := client.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewSQLiteClient: %w", err)
	}

	return client, nil
}

// buildDSN enables foreign keys and WAL journaling on the connection.
func buildDSN(path string) string {
	return path + "?_foreign_keys=1&_journal_mode=WAL&_busy_timeout=5000"
}
