// Package postgres provides the PostgreSQL backend for the record store.
//
// Content and metadata are stored as JSONB.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/oceanbase/agentrecall-go/pkg/storage/sqlstore"
)

// Client is a PostgreSQL record store.
type Client struct {
	*sqlstore.Store
}

// Config contains PostgreSQL configuration.
type Config struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	TablePrefix string
}

// NewClient creates a new PostgreSQL client.
func NewClient(cfg *Config) (*Client, error) {
	db, err := sql.Open("postgres", buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	client := &Client{Store: sqlstore.New(db, sqlstore.PostgresDialect, cfg.TablePrefix)}

	if err := client.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewPostgresClient: %w", err)
	}

	return client, nil
}

func buildDSN(cfg *Config) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslMode)
}
