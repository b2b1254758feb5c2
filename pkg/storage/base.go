// Package storage provides the row-oriented record store interface used by the
// memory engine.
//
// The engine only ever talks to three logical tables: memories, memory links
// and memory signals. Every backend (SQLite, PostgreSQL, OceanBase) exposes
// them through the RecordStore interface defined here.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by backends when a single-row lookup misses.
var ErrNotFound = errors.New("record not found")

// Memory is a row of the memories table.
//
// This type is defined in the storage package to avoid circular dependencies
// with the core package. It mirrors the core.Memory structure.
type Memory struct {
	// ID is the unique identifier of the memory.
	ID string

	// WorkspaceID is the tenant partition key.
	WorkspaceID string

	// MemoryType is the memory classification (plan, decision, ...).
	MemoryType string

	// Content is the serialized JSON payload.
	Content []byte

	// Importance is the caller-supplied importance (0-100).
	Importance float64

	// Confidence is the caller-supplied confidence (0-100).
	Confidence float64

	// RecallPriority is derived at write time from importance and confidence.
	RecallPriority float64

	// Keywords used for exact and fuzzy matching.
	Keywords []string

	// Source and Agent record provenance.
	Source string
	Agent  string

	// UncertaintyNotes is optional free text.
	UncertaintyNotes string

	// Metadata contains additional structured information.
	Metadata map[string]interface{}

	// IsRedacted hides the memory from every read path.
	IsRedacted bool

	// CreatedAt is when the memory was created.
	CreatedAt time.Time

	// UpdatedAt is when the memory was last updated.
	UpdatedAt time.Time
}

// Link is a row of the memory links table. Links are directed: MemoryID is the
// source and LinkedMemoryID the target.
type Link struct {
	ID             string
	MemoryID       string
	LinkedMemoryID string
	Relationship   string
	Strength       float64
	CreatedAt      time.Time
}

// LinkedMemory is a link joined with its target memory.
//
// Target is nil when the target row is missing, redacted, or lives in another
// workspace.
type LinkedMemory struct {
	Link
	Target *Memory
}

// Signal is a row of the memory signals table.
type Signal struct {
	ID          string
	MemoryID    string
	WorkspaceID string
	SignalType  string
	SignalValue float64
	SourceAgent string
	IsResolved  bool
	CreatedAt   time.Time
}

// SignalWithMemory is an unresolved signal joined with its parent memory.
type SignalWithMemory struct {
	Signal
	Memory *Memory
}

// MemoryQuery selects non-redacted memories of one workspace.
type MemoryQuery struct {
	// WorkspaceID is required.
	WorkspaceID string

	// MemoryTypes restricts results to the given types (empty = all types).
	MemoryTypes []string

	// MinImportance and MinConfidence are inclusive lower bounds.
	MinImportance float64
	MinConfidence float64

	// Limit sets the maximum number of results to return.
	Limit int

	// Offset sets the number of results to skip (for pagination).
	Offset int
}

// LinkQuery selects outgoing links of a set of source memories, strongest first.
type LinkQuery struct {
	// WorkspaceID scopes the joined target memories.
	WorkspaceID string

	// SourceIDs are the memories whose outgoing links are returned.
	SourceIDs []string

	// RelationshipTypes restricts results to the given relationships (empty = all).
	RelationshipTypes []string

	// Limit sets the maximum number of links to return.
	Limit int
}

// SignalQuery selects unresolved signals of one workspace, most severe and
// newest first.
type SignalQuery struct {
	WorkspaceID string
	SignalTypes []string
	Limit       int
}

// TypeStats aggregates the memories of a single type.
type TypeStats struct {
	Count             int
	AvgImportance     float64
	AvgConfidence     float64
	AvgRecallPriority float64
}

// SignalStats aggregates the unresolved signals of a single type.
type SignalStats struct {
	Count          int
	AvgSignalValue float64
}

// WorkspaceStats holds aggregates over non-redacted memories and unresolved
// signals of one workspace.
type WorkspaceStats struct {
	Memories map[string]TypeStats
	Signals  map[string]SignalStats
}

// RecordStore defines the interface for record storage backends.
//
// All storage implementations (SQLite, PostgreSQL, OceanBase) must implement this interface.
// Every read excludes redacted memories.
type RecordStore interface {
	// InsertMemory inserts a new memory row. It never overwrites an existing row.
	InsertMemory(ctx context.Context, memory *Memory) error

	// GetMemory returns one non-redacted memory of the workspace, or ErrNotFound.
	GetMemory(ctx context.Context, workspaceID, id string) (*Memory, error)

	// QueryMemories returns a page of memories ordered by recall priority
	// (highest first), newest first on ties.
	QueryMemories(ctx context.Context, query *MemoryQuery) ([]*Memory, error)

	// CountMemories counts the memories matching the query, ignoring Limit and Offset.
	CountMemories(ctx context.Context, query *MemoryQuery) (int, error)

	// RedactMemory marks a memory as redacted. Returns ErrNotFound if no
	// visible memory matched.
	RedactMemory(ctx context.Context, workspaceID, id string, at time.Time) error

	// InsertLink inserts a directed link row.
	InsertLink(ctx context.Context, link *Link) error

	// QueryLinks returns outgoing links joined with their targets, ordered by
	// strength (strongest first).
	QueryLinks(ctx context.Context, query *LinkQuery) ([]*LinkedMemory, error)

	// InsertSignal inserts a signal row.
	InsertSignal(ctx context.Context, signal *Signal) error

	// ResolveSignal marks a signal as resolved. Returns ErrNotFound if no
	// unresolved signal matched.
	ResolveSignal(ctx context.Context, id string) error

	// QueryUnresolvedSignals returns unresolved signals joined with their
	// parent memories.
	QueryUnresolvedSignals(ctx context.Context, query *SignalQuery) ([]*SignalWithMemory, error)

	// Stats aggregates the workspace's memories and unresolved signals.
	Stats(ctx context.Context, workspaceID string) (*WorkspaceStats, error)

	// Close closes the store and releases resources.
	Close() error
}
