package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/oceanbase/agentrecall-go/pkg/storage"
)

// InsertSignal inserts a signal row. The parent memory must exist.
func (s *Store) InsertSignal(ctx context.Context, signal *storage.Signal) error {
	b := newArgBuilder(s.dialect)
	query := fmt.Sprintf(
		"INSERT INTO %s (id, memory_id, workspace_id, signal_type, signal_value, source_agent, is_resolved, created_at) VALUES (%s, %s, %s, %s, %s, %s, %s, %s)",
		s.tables.Signals,
		b.add(signal.ID), b.add(signal.MemoryID), b.add(signal.WorkspaceID), b.add(signal.SignalType),
		b.add(signal.SignalValue), b.add(signal.SourceAgent), b.add(signal.IsResolved), b.add(signal.CreatedAt.UTC()),
	)

	if _, err := s.db.ExecContext(ctx, query, b.args...); err != nil {
		return fmt.Errorf("InsertSignal: %w", err)
	}
	return nil
}

// ResolveSignal marks an unresolved signal as resolved.
func (s *Store) ResolveSignal(ctx context.Context, id string) error {
	b := newArgBuilder(s.dialect)
	query := fmt.Sprintf("UPDATE %s SET is_resolved = %s WHERE id = %s AND is_resolved = %s",
		s.tables.Signals, b.add(true), b.add(id), b.add(false))

	result, err := s.db.ExecContext(ctx, query, b.args...)
	if err != nil {
		return fmt.Errorf("ResolveSignal: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ResolveSignal: %w", err)
	}
	if rowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// QueryUnresolvedSignals returns unresolved signals of the workspace whose
// parent memory is visible and lives in the same workspace, highest value
// first, newest first on ties.
func (s *Store) QueryUnresolvedSignals(ctx context.Context, q *storage.SignalQuery) ([]*storage.SignalWithMemory, error) {
	b := newArgBuilder(s.dialect)
	join := fmt.Sprintf("JOIN %s m ON m.id = sg.memory_id AND m.workspace_id = sg.workspace_id AND m.is_redacted = %s",
		s.tables.Memories, b.add(false))

	conditions := []string{
		"sg.workspace_id = " + b.add(q.WorkspaceID),
		"sg.is_resolved = " + b.add(false),
	}
	if len(q.SignalTypes) > 0 {
		conditions = append(conditions, fmt.Sprintf("sg.signal_type IN (%s)", b.in(q.SignalTypes)))
	}

	query := fmt.Sprintf(
		"SELECT sg.id, sg.memory_id, sg.workspace_id, sg.signal_type, sg.signal_value, sg.source_agent, sg.is_resolved, sg.created_at, %s FROM %s sg %s WHERE %s ORDER BY sg.signal_value DESC, sg.created_at DESC",
		memoryColumns("m"), s.tables.Signals, join, strings.Join(conditions, " AND "),
	)
	if q.Limit > 0 {
		query += " LIMIT " + b.add(q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("QueryUnresolvedSignals: %w", err)
	}
	defer rows.Close()

	var results []*storage.SignalWithMemory
	for rows.Next() {
		var (
			signal      storage.Signal
			sourceAgent sql.NullString
			memory      memoryScan
		)
		dest := append([]interface{}{
			&signal.ID, &signal.MemoryID, &signal.WorkspaceID, &signal.SignalType,
			&signal.SignalValue, &sourceAgent, &signal.IsResolved, &signal.CreatedAt,
		}, memory.dest()...)

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("QueryUnresolvedSignals: %w", err)
		}
		signal.SourceAgent = sourceAgent.String

		parent, err := memory.toMemory()
		if err != nil {
			return nil, fmt.Errorf("QueryUnresolvedSignals: %w", err)
		}
		results = append(results, &storage.SignalWithMemory{Signal: signal, Memory: parent})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("QueryUnresolvedSignals: %w", err)
	}

	return results, nil
}

// Stats aggregates non-redacted memories and unresolved signals by type.
// Signals count only while their parent memory is visible in the workspace.
func (s *Store) Stats(ctx context.Context, workspaceID string) (*storage.WorkspaceStats, error) {
	stats := &storage.WorkspaceStats{
		Memories: make(map[string]storage.TypeStats),
		Signals:  make(map[string]storage.SignalStats),
	}

	b := newArgBuilder(s.dialect)
	query := fmt.Sprintf(
		"SELECT memory_type, COUNT(*), AVG(importance), AVG(confidence), AVG(recall_priority) FROM %s WHERE workspace_id = %s AND is_redacted = %s GROUP BY memory_type",
		s.tables.Memories, b.add(workspaceID), b.add(false),
	)
	rows, err := s.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("Stats: %w", err)
	}
	for rows.Next() {
		var (
			memoryType string
			ts         storage.TypeStats
		)
		if err := rows.Scan(&memoryType, &ts.Count, &ts.AvgImportance, &ts.AvgConfidence, &ts.AvgRecallPriority); err != nil {
			rows.Close()
			return nil, fmt.Errorf("Stats: %w", err)
		}
		stats.Memories[memoryType] = ts
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("Stats: %w", err)
	}
	rows.Close()

	b = newArgBuilder(s.dialect)
	query = fmt.Sprintf(
		"SELECT sg.signal_type, COUNT(*), AVG(sg.signal_value) FROM %s sg JOIN %s m ON m.id = sg.memory_id AND m.workspace_id = sg.workspace_id AND m.is_redacted = %s WHERE sg.workspace_id = %s AND sg.is_resolved = %s GROUP BY sg.signal_type",
		s.tables.Signals, s.tables.Memories, b.add(false), b.add(workspaceID), b.add(false),
	)
	rows, err = s.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("Stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			signalType string
			ss         storage.SignalStats
		)
		if err := rows.Scan(&signalType, &ss.Count, &ss.AvgSignalValue); err != nil {
			return nil, fmt.Errorf("Stats: %w", err)
		}
		stats.Signals[signalType] = ss
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Stats: %w", err)
	}

	return stats, nil
}
