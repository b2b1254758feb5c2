package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/oceanbase/agentrecall-go/pkg/storage"
)

// InsertLink inserts a directed link row. Both endpoints must exist.
func (s *Store) InsertLink(ctx context.Context, link *storage.Link) error {
	b := newArgBuilder(s.dialect)
	query := fmt.Sprintf(
		"INSERT INTO %s (id, memory_id, linked_memory_id, relationship, strength, created_at) VALUES (%s, %s, %s, %s, %s, %s)",
		s.tables.Links,
		b.add(link.ID), b.add(link.MemoryID), b.add(link.LinkedMemoryID),
		b.add(link.Relationship), b.add(link.Strength), b.add(link.CreatedAt.UTC()),
	)

	if _, err := s.db.ExecContext(ctx, query, b.args...); err != nil {
		return fmt.Errorf("InsertLink: %w", err)
	}
	return nil
}

// QueryLinks returns outgoing links of the source memories joined with their
// targets. Targets that are redacted or belong to another workspace come
// back as nil.
func (s *Store) QueryLinks(ctx context.Context, q *storage.LinkQuery) ([]*storage.LinkedMemory, error) {
	if len(q.SourceIDs) == 0 {
		return nil, nil
	}

	b := newArgBuilder(s.dialect)
	// Placeholders are rendered in textual order: join condition first.
	join := fmt.Sprintf("LEFT JOIN %s m ON m.id = l.linked_memory_id AND m.workspace_id = %s AND m.is_redacted = %s",
		s.tables.Memories, b.add(q.WorkspaceID), b.add(false))

	conditions := []string{fmt.Sprintf("l.memory_id IN (%s)", b.in(q.SourceIDs))}
	if len(q.RelationshipTypes) > 0 {
		conditions = append(conditions, fmt.Sprintf("l.relationship IN (%s)", b.in(q.RelationshipTypes)))
	}

	query := fmt.Sprintf(
		"SELECT l.id, l.memory_id, l.linked_memory_id, l.relationship, l.strength, l.created_at, %s FROM %s l %s WHERE %s ORDER BY l.strength DESC, l.created_at ASC",
		memoryColumns("m"), s.tables.Links, join, strings.Join(conditions, " AND "),
	)
	if q.Limit > 0 {
		query += " LIMIT " + b.add(q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("QueryLinks: %w", err)
	}
	defer rows.Close()

	var results []*storage.LinkedMemory
	for rows.Next() {
		var (
			link      storage.Link
			createdAt sql.NullTime
			target    memoryScan
		)
		dest := append([]interface{}{
			&link.ID, &link.MemoryID, &link.LinkedMemoryID, &link.Relationship, &link.Strength, &createdAt,
		}, target.dest()...)

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("QueryLinks: %w", err)
		}
		link.CreatedAt = createdAt.Time

		memory, err := target.toMemory()
		if err != nil {
			return nil, fmt.Errorf("QueryLinks: %w", err)
		}
		results = append(results, &storage.LinkedMemory{Link: link, Target: memory})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("QueryLinks: %w", err)
	}

	return results, nil
}
