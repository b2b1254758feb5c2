package core

import (
	"github.com/oceanbase/agentrecall-go/pkg/intelligence"
	"github.com/oceanbase/agentrecall-go/pkg/storage"
)

// toStorageMemory converts a core.Memory to storage.Memory.
//
// This function is used internally to convert between package types
// to avoid circular dependencies.
func toStorageMemory(m *Memory) *storage.Memory {
	return &storage.Memory{
		ID:               m.ID,
		WorkspaceID:      m.WorkspaceID,
		MemoryType:       string(m.MemoryType),
		Content:          m.Content,
		Importance:       m.Importance,
		Confidence:       m.Confidence,
		RecallPriority:   m.RecallPriority,
		Keywords:         m.Keywords,
		Source:           m.Source,
		Agent:            m.Agent,
		UncertaintyNotes: m.UncertaintyNotes,
		Metadata:         m.Metadata,
		IsRedacted:       m.IsRedacted,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// fromStorageMemory converts a storage.Memory to core.Memory.
func fromStorageMemory(m *storage.Memory) *Memory {
	return &Memory{
		ID:               m.ID,
		WorkspaceID:      m.WorkspaceID,
		MemoryType:       MemoryType(m.MemoryType),
		Content:          m.Content,
		Importance:       m.Importance,
		Confidence:       m.Confidence,
		RecallPriority:   m.RecallPriority,
		Keywords:         m.Keywords,
		Source:           m.Source,
		Agent:            m.Agent,
		UncertaintyNotes: m.UncertaintyNotes,
		Metadata:         m.Metadata,
		IsRedacted:       m.IsRedacted,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// fromStorageSignal converts a storage.Signal to core.MemorySignal.
func fromStorageSignal(s *storage.Signal) MemorySignal {
	return MemorySignal{
		ID:          s.ID,
		MemoryID:    s.MemoryID,
		WorkspaceID: s.WorkspaceID,
		SignalType:  s.SignalType,
		SignalValue: s.SignalValue,
		SourceAgent: s.SourceAgent,
		IsResolved:  s.IsResolved,
		CreatedAt:   s.CreatedAt,
	}
}

// toMemorySummary projects a memory onto what the Ranker scores.
func toMemorySummary(m *Memory) intelligence.MemorySummary {
	return intelligence.MemorySummary{
		ID:             m.ID,
		MemoryType:     string(m.MemoryType),
		RecallPriority: m.RecallPriority,
		Importance:     m.Importance,
		Confidence:     m.Confidence,
		CreatedAt:      m.CreatedAt,
	}
}

// memoryTypeStrings converts typed memory types for storage queries.
func memoryTypeStrings(types []MemoryType) []string {
	if len(types) == 0 {
		return nil
	}
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

// relationshipStrings converts typed relationships for storage queries.
func relationshipStrings(rels []Relationship) []string {
	if len(rels) == 0 {
		return nil
	}
	out := make([]string, len(rels))
	for i, r := range rels {
		out[i] = string(r)
	}
	return out
}
