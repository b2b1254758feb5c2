package core

import (
	"encoding/json"
	"time"
)

// MemoryType classifies a memory. Custom values are allowed.
type MemoryType string

const (
	MemoryTypePlan               MemoryType = "plan"
	MemoryTypeStep               MemoryType = "step"
	MemoryTypeReasoningTrace     MemoryType = "reasoning_trace"
	MemoryTypeDecision           MemoryType = "decision"
	MemoryTypeUncertainty        MemoryType = "uncertainty"
	MemoryTypeOutcome            MemoryType = "outcome"
	MemoryTypeLesson             MemoryType = "lesson"
	MemoryTypePattern            MemoryType = "pattern"
	MemoryTypeSignal             MemoryType = "signal"
	MemoryTypeContactInsight     MemoryType = "contact_insight"
	MemoryTypeCampaignResult     MemoryType = "campaign_result"
	MemoryTypeContentPerformance MemoryType = "content_performance"
	MemoryTypeLoyaltyTransaction MemoryType = "loyalty_transaction"
	MemoryTypeMonitoringEvent    MemoryType = "monitoring_event"
	MemoryTypeAuditLog           MemoryType = "audit_log"
)

// Relationship labels a directed link. Custom values are allowed.
type Relationship string

const (
	RelationshipSupports    Relationship = "supports"
	RelationshipCausedBy    Relationship = "caused_by"
	RelationshipLedTo       Relationship = "led_to"
	RelationshipValidates   Relationship = "validates"
	RelationshipInvalidates Relationship = "invalidates"
	RelationshipExtends     Relationship = "extends"
	RelationshipRefines     Relationship = "refines"
	RelationshipSameAs      Relationship = "sameAs"
	RelationshipRelated     Relationship = "related"
)

// Signal types raised by the Bridge.
const (
	SignalTypeAnomaly         = "anomaly"
	SignalTypeUncertaintyHigh = "uncertainty_high"
)

// Memory is a persisted unit of agent-observed intelligence.
type Memory struct {
	// ID is the unique identifier of the memory (a Snowflake ID).
	ID string `json:"id"`

	// WorkspaceID is the tenant partition key.
	WorkspaceID string `json:"workspaceId"`

	// MemoryType is the memory classification.
	MemoryType MemoryType `json:"memoryType"`

	// Content is an opaque JSON payload. It is only ever serialized for
	// keyword matching.
	Content json.RawMessage `json:"content"`

	// Importance and Confidence are caller supplied, 0-100.
	Importance float64 `json:"importance"`
	Confidence float64 `json:"confidence"`

	// RecallPriority is derived at write time, see RecallPriority.
	RecallPriority float64 `json:"recallPriority"`

	// Keywords are used for exact and fuzzy matching.
	Keywords []string `json:"keywords,omitempty"`

	// Source and Agent record provenance.
	Source string `json:"source,omitempty"`
	Agent  string `json:"agent"`

	// UncertaintyNotes is optional free text.
	UncertaintyNotes string `json:"uncertaintyNotes,omitempty"`

	// Metadata contains additional structured information.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// IsRedacted hides the memory from every read.
	IsRedacted bool `json:"isRedacted"`

	// CreatedAt is when the memory was created.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is when the memory was last updated.
	UpdatedAt time.Time `json:"updatedAt"`
}

// MemoryLink is a directed, weighted edge from MemoryID to LinkedMemoryID.
type MemoryLink struct {
	ID             string       `json:"id"`
	MemoryID       string       `json:"memoryId"`
	LinkedMemoryID string       `json:"linkedMemoryId"`
	Relationship   Relationship `json:"relationship"`
	Strength       float64      `json:"strength"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// MemorySignal is an attention flag on a memory.
type MemorySignal struct {
	ID          string    `json:"id"`
	MemoryID    string    `json:"memoryId"`
	WorkspaceID string    `json:"workspaceId"`
	SignalType  string    `json:"signalType"`
	SignalValue float64   `json:"signalValue"`
	SourceAgent string    `json:"sourceAgent,omitempty"`
	IsResolved  bool      `json:"isResolved"`
	CreatedAt   time.Time `json:"createdAt"`
}

// RecallPriority derives the store-level ordering key from importance and
// confidence, both 0-100. The result is 0-100.
func RecallPriority(importance, confidence float64) float64 {
	return importance * confidence / 100
}
