package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oceanbase/agentrecall-go/pkg/core"
)

// app holds the state shared by all subcommands of one invocation.
type app struct {
	v      *viper.Viper
	logger *log.Logger
}

// storageKeys maps CLI keys to provider config entries.
var storageKeys = map[string]string{
	"db-path":  "db_path",
	"host":     "host",
	"user":     "user",
	"password": "password",
	"db-name":  "db_name",
	"ssl-mode": "ssl_mode",
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "recallctl",
		Short:         "Store, retrieve and rank agent memories",
		Long:          longRoot,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (yaml, json or toml)")
	flags.String("env-file", "", ".env file to load instead of searching for one")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("provider", "", "storage provider: sqlite, postgres or oceanbase")
	flags.String("db-path", "", "SQLite database path")
	flags.String("host", "", "database host")
	flags.Int("port", 0, "database port")
	flags.String("user", "", "database user")
	flags.String("password", "", "database password")
	flags.String("db-name", "", "database name")
	flags.String("ssl-mode", "", "PostgreSQL SSL mode")
	flags.String("table-prefix", "", "prefix for table names")
	flags.Int64("node-id", 0, "Snowflake node id for new memory ids (0-1023)")

	_ = a.v.BindPFlags(flags)
	a.v.SetEnvPrefix("RECALL")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	rootCmd.AddCommand(
		newStoreCmd(a),
		newGetCmd(a),
		newLinkCmd(a),
		newSignalCmd(a),
		newResolveCmd(a),
		newRedactCmd(a),
		newRetrieveCmd(a),
		newRelatedCmd(a),
		newSignalsCmd(a),
		newRankCmd(a),
		newRecordCmd(a),
		newContextCmd(a),
		newCheckpointCmd(a),
		newMetricsCmd(a),
		newWatchCmd(a),
	)

	return rootCmd
}

// initConfig reads the optional config file and sets up logging.
func (a *app) initConfig(cmd *cobra.Command) error {
	if path := a.v.GetString("config"); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	level, err := log.ParseLevel(a.v.GetString("log-level"))
	if err != nil {
		return err
	}

	a.logger = log.NewWithOptions(cmd.ErrOrStderr(), log.Options{
		Prefix:          "recallctl",
		ReportTimestamp: true,
		Level:           level,
	})

	return nil
}

// loadConfig builds the client configuration: environment (and .env) first,
// then config file, RECALL_* variables and flags on top.
func (a *app) loadConfig() (*core.Config, error) {
	var (
		cfg *core.Config
		err error
	)
	if envFile := a.v.GetString("env-file"); envFile != "" {
		cfg, err = core.LoadConfigFromEnvFile(envFile)
	} else {
		cfg, err = core.LoadConfigFromEnv()
	}
	if err != nil {
		return nil, err
	}

	if a.v.IsSet("provider") {
		if provider := a.v.GetString("provider"); provider != cfg.Storage.Provider {
			cfg.Storage = core.StorageConfig{Provider: provider}
		}
	}
	if cfg.Storage.Config == nil {
		cfg.Storage.Config = make(map[string]interface{})
	}
	for key, entry := range storageKeys {
		if a.v.IsSet(key) {
			cfg.Storage.Config[entry] = a.v.GetString(key)
		}
	}
	if a.v.IsSet("port") {
		cfg.Storage.Config["port"] = a.v.GetInt("port")
	}
	if a.v.IsSet("table-prefix") {
		cfg.TablePrefix = a.v.GetString("table-prefix")
	}
	if a.v.IsSet("node-id") {
		cfg.NodeID = a.v.GetInt64("node-id")
	}
	cfg.LogLevel = a.v.GetString("log-level")

	return cfg, nil
}

// withClient opens a client, runs fn and prints its result.
func (a *app) withClient(cmd *cobra.Command, fn func(ctx context.Context, client *core.Client) (interface{}, error)) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	client, err := core.NewClient(cfg, core.WithLogger(a.logger))
	if err != nil {
		return err
	}
	defer client.Close()

	result, err := fn(cmd.Context(), client)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), result)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseObject decodes an optional JSON object flag.
func parseObject(name, raw string) (map[string]interface{}, error) {
	if raw == "" {
		return nil, nil
	}
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, fmt.Errorf("--%s must be a JSON object: %w", name, err)
	}
	return obj, nil
}

func memoryTypes(values []string) []core.MemoryType {
	if len(values) == 0 {
		return nil
	}
	types := make([]core.MemoryType, len(values))
	for i, v := range values {
		types[i] = core.MemoryType(v)
	}
	return types
}

var longRoot = `
recallctl is the operator CLI for the agentrecall memory engine.

Storage is configured from the environment (DATABASE_PROVIDER, SQLITE_PATH,
POSTGRES_*, OCEANBASE_*), an optional .env file, an optional config file,
RECALL_* variables and flags, later sources taking precedence.

Examples:
  # Record a decision and fetch context for a new one.
  recallctl record --workspace acme --agent planner --type decision \
    --description "moved launch to May" --keywords launch
  recallctl context --workspace acme --query launch --agent orchestrator
`
