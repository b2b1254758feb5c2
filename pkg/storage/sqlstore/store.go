package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oceanbase/agentrecall-go/pkg/storage"
)

// Store implements storage.RecordStore over a *sql.DB.
type Store struct {
	// db is the database connection.
	db *sql.DB

	// dialect supplies placeholder syntax and DDL.
	dialect *Dialect

	// tables holds the physical table names.
	tables Tables
}

// New wraps an open database. Call InitSchema before first use.
func New(db *sql.DB, dialect *Dialect, tablePrefix string) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		tables:  NewTables(tablePrefix),
	}
}

// DB returns the underlying connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Tables returns the physical table names.
func (s *Store) Tables() Tables {
	return s.tables
}

// InitSchema creates the tables and indexes if they do not exist.
func (s *Store) InitSchema(ctx context.Context) error {
	for _, stmt := range s.dialect.Schema(s.tables) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("InitSchema: %w", err)
		}
	}
	return nil
}

// InsertMemory inserts a new memory row.
func (s *Store) InsertMemory(ctx context.Context, memory *storage.Memory) error {
	keywords, err := encodeJSON(memory.Keywords)
	if err != nil {
		return fmt.Errorf("InsertMemory: %w", err)
	}
	metadata, err := encodeJSON(memory.Metadata)
	if err != nil {
		return fmt.Errorf("InsertMemory: %w", err)
	}

	b := newArgBuilder(s.dialect)
	values := []string{
		b.add(memory.ID),
		b.add(memory.WorkspaceID),
		b.add(memory.MemoryType),
		b.add(string(memory.Content)),
		b.add(memory.Importance),
		b.add(memory.Confidence),
		b.add(memory.RecallPriority),
		b.add(keywords),
		b.add(memory.Source),
		b.add(memory.Agent),
		b.add(memory.UncertaintyNotes),
		b.add(metadata),
		b.add(memory.IsRedacted),
		b.add(memory.CreatedAt.UTC()),
		b.add(memory.UpdatedAt.UTC()),
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.tables.Memories, memoryColumns(""), strings.Join(values, ", "))

	if _, err := s.db.ExecContext(ctx, query, b.args...); err != nil {
		return fmt.Errorf("InsertMemory: %w", err)
	}
	return nil
}

// GetMemory returns one non-redacted memory of the workspace.
func (s *Store) GetMemory(ctx context.Context, workspaceID, id string) (*storage.Memory, error) {
	b := newArgBuilder(s.dialect)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = %s AND workspace_id = %s AND is_redacted = %s",
		memoryColumns(""), s.tables.Memories, b.add(id), b.add(workspaceID), b.add(false))

	memory, err := scanMemory(s.db.QueryRowContext(ctx, query, b.args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("GetMemory: %w", err)
	}
	return memory, nil
}

// memoryWhere renders the shared filter of QueryMemories and CountMemories.
func (s *Store) memoryWhere(b *argBuilder, q *storage.MemoryQuery) string {
	conditions := []string{
		"workspace_id = " + b.add(q.WorkspaceID),
		"is_redacted = " + b.add(false),
		"importance >= " + b.add(q.MinImportance),
		"confidence >= " + b.add(q.MinConfidence),
	}
	if len(q.MemoryTypes) > 0 {
		conditions = append(conditions, fmt.Sprintf("memory_type IN (%s)", b.in(q.MemoryTypes)))
	}
	return "WHERE " + strings.Join(conditions, " AND ")
}

// QueryMemories returns a page of memories ordered by recall priority.
func (s *Store) QueryMemories(ctx context.Context, q *storage.MemoryQuery) ([]*storage.Memory, error) {
	b := newArgBuilder(s.dialect)
	query := fmt.Sprintf("SELECT %s FROM %s %s ORDER BY recall_priority DESC, created_at DESC",
		memoryColumns(""), s.tables.Memories, s.memoryWhere(b, q))
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %s OFFSET %s", b.add(q.Limit), b.add(q.Offset))
	}

	rows, err := s.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("QueryMemories: %w", err)
	}
	defer rows.Close()

	memories, err := scanMemories(rows)
	if err != nil {
		return nil, fmt.Errorf("QueryMemories: %w", err)
	}
	return memories, nil
}

// CountMemories counts the memories matching the query filter.
func (s *Store) CountMemories(ctx context.Context, q *storage.MemoryQuery) (int, error) {
	b := newArgBuilder(s.dialect)
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s %s", s.tables.Memories, s.memoryWhere(b, q))

	var count int
	if err := s.db.QueryRowContext(ctx, query, b.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("CountMemories: %w", err)
	}
	return count, nil
}

// RedactMemory marks a visible memory as redacted.
func (s *Store) RedactMemory(ctx context.Context, workspaceID, id string, at time.Time) error {
	b := newArgBuilder(s.dialect)
	query := fmt.Sprintf("UPDATE %s SET is_redacted = %s, updated_at = %s WHERE id = %s AND workspace_id = %s AND is_redacted = %s",
		s.tables.Memories, b.add(true), b.add(at.UTC()), b.add(id), b.add(workspaceID), b.add(false))

	result, err := s.db.ExecContext(ctx, query, b.args...)
	if err != nil {
		return fmt.Errorf("RedactMemory: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("RedactMemory: %w", err)
	}
	if rowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ storage.RecordStore = (*Store)(nil)
