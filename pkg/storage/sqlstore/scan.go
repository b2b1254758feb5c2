package sqlstore

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/oceanbase/agentrecall-go/pkg/storage"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// memoryScan holds nullable scan targets for the memory columns. Every column
// is nullable so the same code path serves LEFT JOINed targets.
type memoryScan struct {
	id               sql.NullString
	workspaceID      sql.NullString
	memoryType       sql.NullString
	content          sql.NullString
	importance       sql.NullFloat64
	confidence       sql.NullFloat64
	recallPriority   sql.NullFloat64
	keywords         sql.NullString
	source           sql.NullString
	agent            sql.NullString
	uncertaintyNotes sql.NullString
	metadata         sql.NullString
	isRedacted       sql.NullBool
	createdAt        sql.NullTime
	updatedAt        sql.NullTime
}

// dest returns the scan targets in memoryColumnNames order.
func (m *memoryScan) dest() []interface{} {
	return []interface{}{
		&m.id, &m.workspaceID, &m.memoryType, &m.content, &m.importance,
		&m.confidence, &m.recallPriority, &m.keywords, &m.source, &m.agent,
		&m.uncertaintyNotes, &m.metadata, &m.isRedacted, &m.createdAt, &m.updatedAt,
	}
}

// toMemory converts the scanned row. It returns nil when the id is NULL,
// which happens for unmatched LEFT JOIN targets.
func (m *memoryScan) toMemory() (*storage.Memory, error) {
	if !m.id.Valid {
		return nil, nil
	}

	memory := &storage.Memory{
		ID:               m.id.String,
		WorkspaceID:      m.workspaceID.String,
		MemoryType:       m.memoryType.String,
		Content:          []byte(m.content.String),
		Importance:       m.importance.Float64,
		Confidence:       m.confidence.Float64,
		RecallPriority:   m.recallPriority.Float64,
		Source:           m.source.String,
		Agent:            m.agent.String,
		UncertaintyNotes: m.uncertaintyNotes.String,
		IsRedacted:       m.isRedacted.Bool,
		CreatedAt:        m.createdAt.Time,
		UpdatedAt:        m.updatedAt.Time,
	}

	if m.keywords.Valid && m.keywords.String != "" {
		if err := json.Unmarshal([]byte(m.keywords.String), &memory.Keywords); err != nil {
			return nil, fmt.Errorf("parse keywords: %w", err)
		}
	}

	if m.metadata.Valid && m.metadata.String != "" {
		if err := json.Unmarshal([]byte(m.metadata.String), &memory.Metadata); err != nil {
			return nil, fmt.Errorf("parse metadata: %w", err)
		}
	}

	return memory, nil
}

// scanMemory scans a single memory from a row or rows.
func scanMemory(scanner rowScanner) (*storage.Memory, error) {
	var m memoryScan
	if err := scanner.Scan(m.dest()...); err != nil {
		return nil, err
	}
	return m.toMemory()
}

// scanMemories scans every remaining row.
func scanMemories(rows *sql.Rows) ([]*storage.Memory, error) {
	var memories []*storage.Memory
	for rows.Next() {
		memory, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, memory)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return memories, nil
}

// encodeJSON marshals v for a TEXT/JSON column. Nil maps and slices are stored
// as SQL NULL.
func encodeJSON(v interface{}) (sql.NullString, error) {
	switch t := v.(type) {
	case map[string]interface{}:
		if t == nil {
			return sql.NullString{}, nil
		}
	case []string:
		if t == nil {
			return sql.NullString{}, nil
		}
	}

	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
