package core

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/oceanbase/agentrecall-go/pkg/storage"
)

// StoreRequest describes a memory to persist.
type StoreRequest struct {
	WorkspaceID      string                 `json:"workspaceId"`
	MemoryType       MemoryType             `json:"memoryType"`
	Content          json.RawMessage        `json:"content"`
	Importance       float64                `json:"importance"`
	Confidence       float64                `json:"confidence"`
	Keywords         []string               `json:"keywords,omitempty"`
	Source           string                 `json:"source,omitempty"`
	Agent            string                 `json:"agent"`
	UncertaintyNotes string                 `json:"uncertaintyNotes,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// StoreResult is returned by MemoryStore.Store.
type StoreResult struct {
	MemoryID       string    `json:"memoryId"`
	RecallPriority float64   `json:"recallPriority"`
	CreatedAt      time.Time `json:"createdAt"`
}

// LinkRequest describes a directed edge from MemoryID to LinkedMemoryID.
type LinkRequest struct {
	MemoryID       string       `json:"memoryId"`
	LinkedMemoryID string       `json:"linkedMemoryId"`
	Relationship   Relationship `json:"relationship"`
	Strength       float64      `json:"strength"`
}

// LinkResult is returned by MemoryStore.Link.
type LinkResult struct {
	LinkID string `json:"linkId"`
}

// SignalRequest describes a signal to attach to a memory.
type SignalRequest struct {
	MemoryID    string  `json:"memoryId"`
	WorkspaceID string  `json:"workspaceId"`
	SignalType  string  `json:"signalType"`
	SignalValue float64 `json:"signalValue"`
	SourceAgent string  `json:"sourceAgent,omitempty"`
}

// MemoryStore is the write side of the engine. It validates requests,
// derives recall priority and assigns identifiers; persistence is delegated
// to a storage.RecordStore. It never retries.
type MemoryStore struct {
	backend storage.RecordStore
	node    *snowflake.Node
	logger  *log.Logger
	clock   func() time.Time
}

// NewMemoryStore creates a MemoryStore over backend.
func NewMemoryStore(backend storage.RecordStore, opts ...Option) (*MemoryStore, error) {
	o := applyOptions(opts)

	node, err := snowflake.NewNode(o.nodeID)
	if err != nil {
		return nil, NewMemoryError("NewMemoryStore", err)
	}

	return &MemoryStore{
		backend: backend,
		node:    node,
		logger:  o.logger,
		clock:   o.clock,
	}, nil
}

// nextID returns a new time-ordered identifier.
func (s *MemoryStore) nextID() string {
	return s.node.Generate().String()
}

// Store validates and inserts a new, non-redacted memory.
func (s *MemoryStore) Store(ctx context.Context, req *StoreRequest) (*StoreResult, error) {
	const op = "Store"

	if req == nil {
		return nil, invalidInput(op, "request is required")
	}
	if strings.TrimSpace(req.WorkspaceID) == "" {
		return nil, invalidInput(op, "workspaceId is required")
	}
	if strings.TrimSpace(req.Agent) == "" {
		return nil, invalidInput(op, "agent is required")
	}
	if strings.TrimSpace(string(req.MemoryType)) == "" {
		return nil, invalidInput(op, "memoryType is required")
	}
	if !inScoreRange(req.Importance) {
		return nil, invalidInput(op, "importance %v out of range [0,100]", req.Importance)
	}
	if !inScoreRange(req.Confidence) {
		return nil, invalidInput(op, "confidence %v out of range [0,100]", req.Confidence)
	}

	content := req.Content
	if len(content) == 0 {
		content = json.RawMessage("{}")
	}
	if !json.Valid(content) {
		return nil, invalidInput(op, "content is not valid JSON")
	}

	now := s.clock().UTC()
	memory := &Memory{
		ID:               s.nextID(),
		WorkspaceID:      req.WorkspaceID,
		MemoryType:       req.MemoryType,
		Content:          content,
		Importance:       req.Importance,
		Confidence:       req.Confidence,
		RecallPriority:   RecallPriority(req.Importance, req.Confidence),
		Keywords:         req.Keywords,
		Source:           req.Source,
		Agent:            req.Agent,
		UncertaintyNotes: req.UncertaintyNotes,
		Metadata:         req.Metadata,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.backend.InsertMemory(ctx, toStorageMemory(memory)); err != nil {
		return nil, storeFailure(op, err)
	}

	s.logger.Debug("memory stored", "workspace", memory.WorkspaceID, "id", memory.ID, "type", memory.MemoryType, "recallPriority", memory.RecallPriority)

	return &StoreResult{
		MemoryID:       memory.ID,
		RecallPriority: memory.RecallPriority,
		CreatedAt:      now,
	}, nil
}

// Link inserts one directed edge. It does not check that both memories
// share a workspace; backend failures (including unknown ids) surface as
// store errors.
func (s *MemoryStore) Link(ctx context.Context, req *LinkRequest) (*LinkResult, error) {
	const op = "Link"

	if req == nil {
		return nil, invalidInput(op, "request is required")
	}
	if strings.TrimSpace(req.MemoryID) == "" || strings.TrimSpace(req.LinkedMemoryID) == "" {
		return nil, invalidInput(op, "memoryId and linkedMemoryId are required")
	}
	if strings.TrimSpace(string(req.Relationship)) == "" {
		return nil, invalidInput(op, "relationship is required")
	}
	if !inScoreRange(req.Strength) {
		return nil, invalidInput(op, "strength %v out of range [0,100]", req.Strength)
	}

	link := &storage.Link{
		ID:             uuid.NewString(),
		MemoryID:       req.MemoryID,
		LinkedMemoryID: req.LinkedMemoryID,
		Relationship:   string(req.Relationship),
		Strength:       req.Strength,
		CreatedAt:      s.clock().UTC(),
	}

	if err := s.backend.InsertLink(ctx, link); err != nil {
		return nil, storeFailure(op, err)
	}

	return &LinkResult{LinkID: link.ID}, nil
}

// AddSignal attaches an unresolved signal to a memory.
func (s *MemoryStore) AddSignal(ctx context.Context, req *SignalRequest) error {
	const op = "AddSignal"

	if req == nil {
		return invalidInput(op, "request is required")
	}
	if strings.TrimSpace(req.MemoryID) == "" || strings.TrimSpace(req.WorkspaceID) == "" {
		return invalidInput(op, "memoryId and workspaceId are required")
	}
	if strings.TrimSpace(req.SignalType) == "" {
		return invalidInput(op, "signalType is required")
	}
	if !inScoreRange(req.SignalValue) {
		return invalidInput(op, "signalValue %v out of range [0,100]", req.SignalValue)
	}

	signal := &storage.Signal{
		ID:          uuid.NewString(),
		MemoryID:    req.MemoryID,
		WorkspaceID: req.WorkspaceID,
		SignalType:  req.SignalType,
		SignalValue: req.SignalValue,
		SourceAgent: req.SourceAgent,
		IsResolved:  false,
		CreatedAt:   s.clock().UTC(),
	}

	return storeFailure(op, s.backend.InsertSignal(ctx, signal))
}

// Get returns a visible memory of the workspace, or nil when it does not
// exist or is redacted.
func (s *MemoryStore) Get(ctx context.Context, workspaceID, memoryID string) (*Memory, error) {
	const op = "Get"

	if workspaceID == "" || memoryID == "" {
		return nil, invalidInput(op, "workspaceId and memoryId are required")
	}

	memory, err := s.backend.GetMemory(ctx, workspaceID, memoryID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeFailure(op, err)
	}
	return fromStorageMemory(memory), nil
}

// Redact hides a memory from every read. Only UpdatedAt changes.
func (s *MemoryStore) Redact(ctx context.Context, workspaceID, memoryID string) error {
	const op = "Redact"

	if workspaceID == "" || memoryID == "" {
		return invalidInput(op, "workspaceId and memoryId are required")
	}

	err := s.backend.RedactMemory(ctx, workspaceID, memoryID, s.clock().UTC())
	if errors.Is(err, storage.ErrNotFound) {
		return NewMemoryError(op, ErrNotFound)
	}
	return storeFailure(op, err)
}

// ResolveSignal marks a signal as resolved.
func (s *MemoryStore) ResolveSignal(ctx context.Context, signalID string) error {
	const op = "ResolveSignal"

	if signalID == "" {
		return invalidInput(op, "signalId is required")
	}

	err := s.backend.ResolveSignal(ctx, signalID)
	if errors.Is(err, storage.ErrNotFound) {
		return NewMemoryError(op, ErrNotFound)
	}
	return storeFailure(op, err)
}

func inScoreRange(v float64) bool {
	return v >= 0 && v <= 100
}
