// Package sqlstore implements storage.RecordStore on top of database/sql.
//
// The SQL is shared by every backend; a Dialect supplies the differences
// (placeholder syntax and schema DDL). Backend packages open the driver and
// hand the *sql.DB to New.
package sqlstore

import (
	"fmt"
	"strings"
)

// Tables holds the physical table names of the three logical tables.
type Tables struct {
	Memories string
	Links    string
	Signals  string
}

// NewTables returns the table names for the given prefix.
func NewTables(prefix string) Tables {
	return Tables{
		Memories: prefix + "agent_memories",
		Links:    prefix + "memory_links",
		Signals:  prefix + "memory_signals",
	}
}

// Dialect describes what differs between SQL backends.
type Dialect struct {
	// Name is the driver-independent dialect name (sqlite, postgres, mysql).
	Name string

	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string

	// Schema returns the idempotent DDL statements for the given tables.
	Schema func(t Tables) []string
}

// QuestionPlaceholder renders "?" bind parameters (SQLite, MySQL, OceanBase).
func QuestionPlaceholder(int) string { return "?" }

// DollarPlaceholder renders "$n" bind parameters (PostgreSQL).
func DollarPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

// argBuilder accumulates bind arguments and renders their placeholders in
// order, so the same query text works for "?" and "$n" dialects.
type argBuilder struct {
	dialect *Dialect
	args    []interface{}
}

func newArgBuilder(d *Dialect) *argBuilder {
	return &argBuilder{dialect: d}
}

// add appends a value and returns its placeholder.
func (b *argBuilder) add(v interface{}) string {
	b.args = append(b.args, v)
	return b.dialect.Placeholder(len(b.args))
}

// in appends every value and returns a comma separated placeholder list.
func (b *argBuilder) in(values []string) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = b.add(v)
	}
	return strings.Join(parts, ", ")
}

// memoryColumnNames is the canonical column order used by scanMemory.
var memoryColumnNames = []string{
	"id", "workspace_id", "memory_type", "content", "importance", "confidence",
	"recall_priority", "keywords", "source", "agent", "uncertainty_notes",
	"metadata", "is_redacted", "created_at", "updated_at",
}

// memoryColumns renders the memory column list, optionally qualified by a
// table alias.
func memoryColumns(alias string) string {
	if alias == "" {
		return strings.Join(memoryColumnNames, ", ")
	}
	cols := make([]string, len(memoryColumnNames))
	for i, c := range memoryColumnNames {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

// SQLiteDialect is the dialect for github.com/mattn/go-sqlite3.
var SQLiteDialect = &Dialect{
	Name:        "sqlite",
	Placeholder: QuestionPlaceholder,
	Schema: func(t Tables) []string {
		return []string{
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					id TEXT PRIMARY KEY,
					workspace_id TEXT NOT NULL,
					memory_type TEXT NOT NULL,
					content TEXT NOT NULL,
					importance REAL NOT NULL DEFAULT 0,
					confidence REAL NOT NULL DEFAULT 0,
					recall_priority REAL NOT NULL DEFAULT 0,
					keywords TEXT,
					source TEXT,
					agent TEXT NOT NULL,
					uncertainty_notes TEXT,
					metadata TEXT,
					is_redacted BOOLEAN NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL
				)`, t.Memories),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_ws_priority ON %s(workspace_id, recall_priority)`,
				t.Memories, t.Memories),
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					id TEXT PRIMARY KEY,
					memory_id TEXT NOT NULL REFERENCES %s(id),
					linked_memory_id TEXT NOT NULL REFERENCES %s(id),
					relationship TEXT NOT NULL,
					strength REAL NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL
				)`, t.Links, t.Memories, t.Memories),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_memory ON %s(memory_id)`, t.Links, t.Links),
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					id TEXT PRIMARY KEY,
					memory_id TEXT NOT NULL REFERENCES %s(id),
					workspace_id TEXT NOT NULL,
					signal_type TEXT NOT NULL,
					signal_value REAL NOT NULL DEFAULT 0,
					source_agent TEXT,
					is_resolved BOOLEAN NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL
				)`, t.Signals, t.Memories),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_ws_resolved ON %s(workspace_id, is_resolved)`,
				t.Signals, t.Signals),
		}
	},
}

// PostgresDialect is the dialect for github.com/lib/pq.
var PostgresDialect = &Dialect{
	Name:        "postgres",
	Placeholder: DollarPlaceholder,
	Schema: func(t Tables) []string {
		return []string{
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					id TEXT PRIMARY KEY,
					workspace_id TEXT NOT NULL,
					memory_type TEXT NOT NULL,
					content JSONB NOT NULL,
					importance DOUBLE PRECISION NOT NULL DEFAULT 0,
					confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
					recall_priority DOUBLE PRECISION NOT NULL DEFAULT 0,
					keywords TEXT,
					source TEXT,
					agent TEXT NOT NULL,
					uncertainty_notes TEXT,
					metadata JSONB,
					is_redacted BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMPTZ NOT NULL,
					updated_at TIMESTAMPTZ NOT NULL
				)`, t.Memories),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_ws_priority ON %s(workspace_id, recall_priority DESC)`,
				t.Memories, t.Memories),
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					id TEXT PRIMARY KEY,
					memory_id TEXT NOT NULL REFERENCES %s(id),
					linked_memory_id TEXT NOT NULL REFERENCES %s(id),
					relationship TEXT NOT NULL,
					strength DOUBLE PRECISION NOT NULL DEFAULT 0,
					created_at TIMESTAMPTZ NOT NULL
				)`, t.Links, t.Memories, t.Memories),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_memory ON %s(memory_id)`, t.Links, t.Links),
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					id TEXT PRIMARY KEY,
					memory_id TEXT NOT NULL REFERENCES %s(id),
					workspace_id TEXT NOT NULL,
					signal_type TEXT NOT NULL,
					signal_value DOUBLE PRECISION NOT NULL DEFAULT 0,
					source_agent TEXT,
					is_resolved BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMPTZ NOT NULL
				)`, t.Signals, t.Memories),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_ws_resolved ON %s(workspace_id, is_resolved)`,
				t.Signals, t.Signals),
		}
	},
}

// MySQLDialect is the dialect for github.com/go-sql-driver/mysql (OceanBase
// MySQL mode). Indexes are declared inline since MySQL has no
// CREATE INDEX IF NOT EXISTS.
var MySQLDialect = &Dialect{
	Name:        "mysql",
	Placeholder: QuestionPlaceholder,
	Schema: func(t Tables) []string {
		return []string{
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					id VARCHAR(64) PRIMARY KEY,
					workspace_id VARCHAR(128) NOT NULL,
					memory_type VARCHAR(64) NOT NULL,
					content LONGTEXT NOT NULL,
					importance DOUBLE NOT NULL DEFAULT 0,
					confidence DOUBLE NOT NULL DEFAULT 0,
					recall_priority DOUBLE NOT NULL DEFAULT 0,
					keywords TEXT,
					source VARCHAR(255),
					agent VARCHAR(255) NOT NULL,
					uncertainty_notes TEXT,
					metadata LONGTEXT,
					is_redacted BOOLEAN NOT NULL DEFAULT FALSE,
					created_at DATETIME(6) NOT NULL,
					updated_at DATETIME(6) NOT NULL,
					INDEX idx_ws_priority (workspace_id, recall_priority)
				)`, t.Memories),
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					id VARCHAR(64) PRIMARY KEY,
					memory_id VARCHAR(64) NOT NULL,
					linked_memory_id VARCHAR(64) NOT NULL,
					relationship VARCHAR(64) NOT NULL,
					strength DOUBLE NOT NULL DEFAULT 0,
					created_at DATETIME(6) NOT NULL,
					INDEX idx_memory (memory_id),
					FOREIGN KEY (memory_id) REFERENCES %s(id),
					FOREIGN KEY (linked_memory_id) REFERENCES %s(id)
				)`, t.Links, t.Memories, t.Memories),
			fmt.Sprintf(`
				CREATE TABLE IF NOT EXISTS %s (
					id VARCHAR(64) PRIMARY KEY,
					memory_id VARCHAR(64) NOT NULL,
					workspace_id VARCHAR(128) NOT NULL,
					signal_type VARCHAR(64) NOT NULL,
					signal_value DOUBLE NOT NULL DEFAULT 0,
					source_agent VARCHAR(255),
					is_resolved BOOLEAN NOT NULL DEFAULT FALSE,
					created_at DATETIME(6) NOT NULL,
					INDEX idx_ws_resolved (workspace_id, is_resolved),
					FOREIGN KEY (memory_id) REFERENCES %s(id)
				)`, t.Signals, t.Memories),
		}
	},
}
