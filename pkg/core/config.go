package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Supported storage providers.
const (
	ProviderSQLite    = "sqlite"
	ProviderPostgres  = "postgres"
	ProviderOceanBase = "oceanbase"
)

// Config contains the complete configuration for a Client.
//
// Example:
//
//	config := &core.Config{
//	    Storage: core.StorageConfig{
//	        Provider: "sqlite",
//	        Config: map[string]interface{}{
//	            "db_path": "./agentrecall.db",
//	        },
//	    },
//	}
type Config struct {
	// Storage contains record store configuration.
	Storage StorageConfig `json:"storage"`

	// TablePrefix is prepended to every table name (optional).
	TablePrefix string `json:"table_prefix,omitempty"`

	// NodeID is the Snowflake node used for memory IDs (0-1023). Processes
	// sharing a database should use distinct nodes.
	NodeID int64 `json:"node_id,omitempty"`

	// LogLevel is one of debug, info, warn, error (default info).
	LogLevel string `json:"log_level,omitempty"`
}

// StorageConfig contains configuration for the record store.
//
// Supported providers: sqlite, postgres, oceanbase
type StorageConfig struct {
	// Provider is the storage provider name.
	Provider string `json:"provider"`

	// Config contains provider-specific configuration.
	// For SQLite: db_path
	// For PostgreSQL: host, port, user, password, db_name, ssl_mode
	// For OceanBase: host, port, user, password, db_name
	Config map[string]interface{} `json:"config"`
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for .env or .env.example files (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Parses environment variables into a Config struct
//
// Supported environment variables:
//   - DATABASE_PROVIDER (sqlite, postgres, oceanbase)
//   - SQLITE_PATH
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD, POSTGRES_DATABASE, POSTGRES_SSLMODE
//   - OCEANBASE_HOST, OCEANBASE_PORT, OCEANBASE_USER, OCEANBASE_PASSWORD, OCEANBASE_DATABASE
//   - AGENTRECALL_TABLE_PREFIX, AGENTRECALL_NODE_ID, AGENTRECALL_LOG_LEVEL
//
// Example:
//
//	config, err := core.LoadConfigFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
func LoadConfigFromEnv() (*Config, error) {
	// Use FindEnvFile to locate .env file (supports upward search)
	envPath, found := FindEnvFile()
	if found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	provider := getEnvOrDefault("DATABASE_PROVIDER", ProviderSQLite)

	storageConfig := make(map[string]interface{})

	switch provider {
	case ProviderOceanBase:
		port, err := strconv.Atoi(getEnvOrDefault("OCEANBASE_PORT", "2881"))
		if err != nil {
			return nil, NewMemoryError("LoadConfigFromEnv", fmt.Errorf("%w: OCEANBASE_PORT: %v", ErrInvalidConfig, err))
		}

		storageConfig = map[string]interface{}{
			"host":     getEnvOrDefault("OCEANBASE_HOST", "127.0.0.1"),
			"port":     port,
			"user":     getEnvOrDefault("OCEANBASE_USER", "root@sys"),
			"password": os.Getenv("OCEANBASE_PASSWORD"),
			"db_name":  getEnvOrDefault("OCEANBASE_DATABASE", "agentrecall"),
		}
	case ProviderSQLite:
		storageConfig = map[string]interface{}{
			"db_path": getEnvOrDefault("SQLITE_PATH", "./agentrecall.db"),
		}
	case ProviderPostgres:
		port, err := strconv.Atoi(getEnvOrDefault("POSTGRES_PORT", "5432"))
		if err != nil {
			return nil, NewMemoryError("LoadConfigFromEnv", fmt.Errorf("%w: POSTGRES_PORT: %v", ErrInvalidConfig, err))
		}

		storageConfig = map[string]interface{}{
			"host":     getEnvOrDefault("POSTGRES_HOST", "localhost"),
			"port":     port,
			"user":     getEnvOrDefault("POSTGRES_USER", "postgres"),
			"password": os.Getenv("POSTGRES_PASSWORD"),
			"db_name":  getEnvOrDefault("POSTGRES_DATABASE", "agentrecall"),
			"ssl_mode": getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		}
	}

	nodeID, err := strconv.ParseInt(getEnvOrDefault("AGENTRECALL_NODE_ID", "1"), 10, 64)
	if err != nil {
		return nil, NewMemoryError("LoadConfigFromEnv", fmt.Errorf("%w: AGENTRECALL_NODE_ID: %v", ErrInvalidConfig, err))
	}

	return &Config{
		Storage: StorageConfig{
			Provider: provider,
			Config:   storageConfig,
		},
		TablePrefix: os.Getenv("AGENTRECALL_TABLE_PREFIX"),
		NodeID:      nodeID,
		LogLevel:    getEnvOrDefault("AGENTRECALL_LOG_LEVEL", "info"),
	}, nil
}

// LoadConfigFromEnvFile loads configuration from a specific .env file.
func LoadConfigFromEnvFile(envPath string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return LoadConfigFromEnv()
}

// LoadConfigFromJSON loads configuration from a JSON file.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	return &config, nil
}

// Validate validates the configuration.
//
// Checks that:
//   - the storage provider is one of sqlite, postgres, oceanbase
//   - the Snowflake node id is within 0-1023
//   - the log level, when set, is a known level
func (c *Config) Validate() error {
	switch c.Storage.Provider {
	case ProviderSQLite, ProviderPostgres, ProviderOceanBase:
	default:
		return NewMemoryError("Validate", fmt.Errorf("%w: unknown storage provider %q", ErrInvalidConfig, c.Storage.Provider))
	}
	if c.NodeID < 0 || c.NodeID > 1023 {
		return NewMemoryError("Validate", fmt.Errorf("%w: node id %d out of range", ErrInvalidConfig, c.NodeID))
	}
	if c.LogLevel != "" {
		if _, err := log.ParseLevel(c.LogLevel); err != nil {
			return NewMemoryError("Validate", fmt.Errorf("%w: %v", ErrInvalidConfig, err))
		}
	}
	return nil
}

// configString reads a string entry of a provider config map.
func configString(cfg map[string]interface{}, key, defaultValue string) string {
	if v, ok := cfg[key].(string); ok && v != "" {
		return v
	}
	return defaultValue
}

// configInt reads an integer entry of a provider config map. JSON numbers
// decode as float64 and environment values as int; both are accepted.
func configInt(cfg map[string]interface{}, key string, defaultValue int) int {
	switch v := cfg[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// FindEnvFile searches for .env or .env.example files.
//
// The search:
//  1. Checks the current directory
//  2. Searches up to 5 directory levels up
//  3. Returns the first .env or .env.example file found
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
