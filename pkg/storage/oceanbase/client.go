// Package oceanbase provides the OceanBase (MySQL mode) backend for the
// record store.
package oceanbase

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/oceanbase/agentrecall-go/pkg/storage/sqlstore"
)

// Client is an OceanBase client.
type Client struct {
	*sqlstore.Store
}

// Config contains OceanBase configuration.
type Config struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	TablePrefix string
}

// NewClient creates a new OceanBase client.
func NewClient(cfg *Config) (*Client, error) {
	db, err := sql.Open("mysql", buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("NewOceanBaseClient: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewOceanBaseClient: %w", err)
	}

	client := &Client{Store: sqlstore.New(db, sqlstore.MySQLDialect, cfg.TablePrefix)}

	if err := client.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewOceanBaseClient: %w", err)
	}

	return client, nil
}

// buildDSN returns a go-sql-driver/mysql DSN. Times are read back as UTC
// time.Time values.
func buildDSN(cfg *Config) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)
}
