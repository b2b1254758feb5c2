package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/oceanbase/agentrecall-go/pkg/intelligence"
	"github.com/oceanbase/agentrecall-go/pkg/storage"
)

// EventType classifies an agent event.
type EventType string

const (
	EventOutcome     EventType = "outcome"
	EventDecision    EventType = "decision"
	EventUncertainty EventType = "uncertainty"
	EventError       EventType = "error"
	EventLesson      EventType = "lesson"
	EventWarning     EventType = "warning"
)

// Event recording defaults.
const (
	defaultEventImportance  = 50.0
	defaultEventConfidence  = 70.0
	eventLinkStrength       = 70.0
	errorSignalValue        = 85.0
	warningSignalValue      = 60.0
	contextMinImportance    = 40.0
	contextMinConfidence    = 50.0
	noHistoricalContextText = "No relevant historical context found."
)

// AgentEvent is a raw observation reported by an agent.
type AgentEvent struct {
	WorkspaceID string                 `json:"workspaceId"`
	Agent       string                 `json:"agent"`
	EventType   EventType              `json:"eventType"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"`

	// Importance defaults to 50 and Confidence to 70 when zero, so a zero
	// score cannot be recorded through the Bridge. Use MemoryStore.Store for
	// that.
	Importance float64 `json:"importance,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`

	Keywords         []string               `json:"keywords,omitempty"`
	Source           string                 `json:"source,omitempty"`
	UncertaintyNotes string                 `json:"uncertaintyNotes,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`

	// RelatedMemories are linked from the new memory with "supports".
	RelatedMemories []string `json:"relatedMemories,omitempty"`

	// Timestamp defaults to now.
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// eventEnvelope is the content stored for an event.
type eventEnvelope struct {
	EventType   EventType              `json:"eventType"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data"`
	Timestamp   time.Time              `json:"timestamp"`
}

// RecordResult is returned by Bridge.RecordEvent.
type RecordResult struct {
	MemoryID string `json:"memoryId"`

	// LinkedMemories lists only the related memories that were linked.
	LinkedMemories []string  `json:"linkedMemories"`
	Timestamp      time.Time `json:"timestamp"`
}

// LinkEventRequest records an event and links it to an existing memory.
type LinkEventRequest struct {
	Event    *AgentEvent `json:"event"`
	MemoryID string      `json:"memoryId"`

	// Relationship defaults to "related" and Strength to 70.
	Relationship Relationship `json:"relationship,omitempty"`
	Strength     float64      `json:"strength,omitempty"`
}

// LinkEventResult is returned by Bridge.LinkEventToMemory.
type LinkEventResult struct {
	RecordResult

	LinkID string `json:"linkId,omitempty"`
}

// HistoricalContextRequest asks for ranked context at a decision point.
type HistoricalContextRequest struct {
	WorkspaceID string       `json:"workspaceId"`
	Query       string       `json:"query"`
	SourceAgent string       `json:"sourceAgent,omitempty"`
	MemoryTypes []MemoryType `json:"memoryTypes,omitempty"`

	// Limit defaults to 10.
	Limit int `json:"limit,omitempty"`
}

// ContextMemory is a retrieved memory with both its relevance and its
// ranking.
type ContextMemory struct {
	Memory

	RelevanceScore float64                     `json:"relevanceScore"`
	RankingScore   float64                     `json:"rankingScore"`
	Rank           int                         `json:"rank"`
	Percentile     int                         `json:"percentile"`
	Breakdown      intelligence.ScoreBreakdown `json:"breakdown"`
}

// HistoricalContext is returned by Bridge.GetHistoricalContext.
type HistoricalContext struct {
	Memories          []ContextMemory    `json:"memories"`
	RelatedMemories   []RelatedMemory    `json:"relatedMemories"`
	Summary           string             `json:"summary"`
	AverageScore      float64            `json:"averageScore"`
	Stats             intelligence.Stats `json:"stats"`
	RetrievalStrategy string             `json:"retrievalStrategy"`
	RankingStrategy   string             `json:"rankingStrategy"`
}

// TypeMetrics aggregates the memories of one type.
type TypeMetrics struct {
	Count             int     `json:"count"`
	AvgImportance     float64 `json:"avgImportance"`
	AvgConfidence     float64 `json:"avgConfidence"`
	AvgRecallPriority float64 `json:"avgRecallPriority"`
}

// SignalMetrics aggregates the unresolved signals of one type.
type SignalMetrics struct {
	Count          int     `json:"count"`
	AvgSignalValue float64 `json:"avgSignalValue"`
}

// MemoryMetrics is returned by Bridge.GetMemoryMetrics.
type MemoryMetrics struct {
	WorkspaceID       string                   `json:"workspaceId"`
	TotalMemories     int                      `json:"totalMemories"`
	AvgImportance     float64                  `json:"avgImportance"`
	AvgConfidence     float64                  `json:"avgConfidence"`
	AvgRecallPriority float64                  `json:"avgRecallPriority"`
	ByType            map[string]TypeMetrics   `json:"byType"`
	UnresolvedSignals int                      `json:"unresolvedSignals"`
	SignalsByType     map[string]SignalMetrics `json:"signalsByType"`
}

// Bridge turns agent events into memories and memories into decision
// context. It is the only component that uses Store, Retriever and Ranker
// together.
type Bridge struct {
	store     *MemoryStore
	retriever *Retriever
	ranker    *intelligence.Ranker
	backend   storage.RecordStore
	logger    *log.Logger
	clock     func() time.Time
}

// NewBridge creates a Bridge from existing components. All three must share
// the same backend.
func NewBridge(store *MemoryStore, retriever *Retriever, ranker *intelligence.Ranker, opts ...Option) *Bridge {
	o := applyOptions(opts)
	return &Bridge{
		store:     store,
		retriever: retriever,
		ranker:    ranker,
		backend:   store.backend,
		logger:    o.logger,
		clock:     o.clock,
	}
}

// NewBridgeFromBackend builds default components over backend.
func NewBridgeFromBackend(backend storage.RecordStore, opts ...Option) (*Bridge, error) {
	o := applyOptions(opts)
	opts = append(opts, WithLogger(o.logger))

	store, err := NewMemoryStore(backend, opts...)
	if err != nil {
		return nil, err
	}
	ranker := intelligence.NewRanker(intelligence.WithClock(o.clock))
	return NewBridge(store, NewRetriever(backend, opts...), ranker, opts...), nil
}

// eventMemoryType maps an event type to the memory type it is stored as.
// Errors and warnings become signals; everything else maps 1:1.
func eventMemoryType(t EventType) MemoryType {
	switch t {
	case EventError, EventWarning:
		return MemoryTypeSignal
	default:
		return MemoryType(t)
	}
}

// RecordEvent stores an event as a memory, links it to the event's related
// memories and raises a signal for errors and warnings.
//
// Link failures are logged and skipped; the result lists only the links
// that were created. If raising the signal fails, the result is returned
// together with the error since the memory is already persisted.
func (b *Bridge) RecordEvent(ctx context.Context, event *AgentEvent) (*RecordResult, error) {
	const op = "RecordEvent"

	if event == nil {
		return nil, invalidInput(op, "event is required")
	}
	if strings.TrimSpace(event.WorkspaceID) == "" {
		return nil, invalidInput(op, "workspaceId is required")
	}
	if strings.TrimSpace(event.Agent) == "" {
		return nil, invalidInput(op, "agent is required")
	}
	if strings.TrimSpace(string(event.EventType)) == "" {
		return nil, invalidInput(op, "eventType is required")
	}

	timestamp := event.Timestamp
	if timestamp.IsZero() {
		timestamp = b.clock()
	}
	timestamp = timestamp.UTC()

	data := event.Data
	if data == nil {
		data = map[string]interface{}{}
	}
	content, err := json.Marshal(eventEnvelope{
		EventType:   event.EventType,
		Description: event.Description,
		Data:        data,
		Timestamp:   timestamp,
	})
	if err != nil {
		return nil, invalidInput(op, "event data is not serializable: %v", err)
	}

	importance := event.Importance
	if importance == 0 {
		importance = defaultEventImportance
	}
	confidence := event.Confidence
	if confidence == 0 {
		confidence = defaultEventConfidence
	}
	source := event.Source
	if source == "" {
		source = event.Agent
	}

	stored, err := b.store.Store(ctx, &StoreRequest{
		WorkspaceID:      event.WorkspaceID,
		MemoryType:       eventMemoryType(event.EventType),
		Content:          content,
		Importance:       importance,
		Confidence:       confidence,
		Keywords:         event.Keywords,
		Source:           source,
		Agent:            event.Agent,
		UncertaintyNotes: event.UncertaintyNotes,
		Metadata:         event.Metadata,
	})
	if err != nil {
		return nil, err
	}

	result := &RecordResult{
		MemoryID:       stored.MemoryID,
		LinkedMemories: []string{},
		Timestamp:      timestamp,
	}

	for _, relatedID := range event.RelatedMemories {
		_, err := b.store.Link(ctx, &LinkRequest{
			MemoryID:       stored.MemoryID,
			LinkedMemoryID: relatedID,
			Relationship:   RelationshipSupports,
			Strength:       eventLinkStrength,
		})
		if err != nil {
			b.logger.Warn("skipping related memory link", "memory", stored.MemoryID, "related", relatedID, "err", err)
			continue
		}
		result.LinkedMemories = append(result.LinkedMemories, relatedID)
	}

	var signalType string
	var signalValue float64
	switch event.EventType {
	case EventError:
		signalType, signalValue = SignalTypeAnomaly, errorSignalValue
	case EventWarning:
		signalType, signalValue = SignalTypeUncertaintyHigh, warningSignalValue
	}
	if signalType != "" {
		err := b.store.AddSignal(ctx, &SignalRequest{
			MemoryID:    stored.MemoryID,
			WorkspaceID: event.WorkspaceID,
			SignalType:  signalType,
			SignalValue: signalValue,
			SourceAgent: event.Agent,
		})
		if err != nil {
			return result, err
		}
	}

	b.logger.Info("event recorded", "workspace", event.WorkspaceID, "agent", event.Agent, "type", event.EventType, "memory", stored.MemoryID, "linked", len(result.LinkedMemories))

	return result, nil
}

// LinkEventToMemory records the event, then links the new memory to
// MemoryID. A failure of that explicit link is returned together with the
// result, since the event memory is already persisted.
func (b *Bridge) LinkEventToMemory(ctx context.Context, req *LinkEventRequest) (*LinkEventResult, error) {
	const op = "LinkEventToMemory"

	if req == nil || req.Event == nil {
		return nil, invalidInput(op, "event is required")
	}
	if strings.TrimSpace(req.MemoryID) == "" {
		return nil, invalidInput(op, "memoryId is required")
	}

	relationship := req.Relationship
	if relationship == "" {
		relationship = RelationshipRelated
	}
	strength := req.Strength
	if strength == 0 {
		strength = eventLinkStrength
	}
	if !inScoreRange(strength) {
		return nil, invalidInput(op, "strength %v out of range [0,100]", strength)
	}

	recorded, err := b.RecordEvent(ctx, req.Event)
	if recorded == nil {
		return nil, err
	}
	result := &LinkEventResult{RecordResult: *recorded}
	if err != nil {
		return result, err
	}

	link, err := b.store.Link(ctx, &LinkRequest{
		MemoryID:       recorded.MemoryID,
		LinkedMemoryID: req.MemoryID,
		Relationship:   relationship,
		Strength:       strength,
	})
	if err != nil {
		return result, err
	}
	result.LinkID = link.LinkID

	return result, nil
}

// GetHistoricalContext retrieves reasonably important and confident
// memories for the query, ranks them for the requesting agent and explains
// the result in a one-line summary.
func (b *Bridge) GetHistoricalContext(ctx context.Context, req *HistoricalContextRequest) (*HistoricalContext, error) {
	const op = "GetHistoricalContext"

	if req == nil {
		return nil, invalidInput(op, "request is required")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultRetrieveLimit
	}

	retrieved, err := b.retriever.Retrieve(ctx, &RetrieveRequest{
		WorkspaceID:   req.WorkspaceID,
		Query:         req.Query,
		MemoryTypes:   req.MemoryTypes,
		Limit:         limit,
		MinImportance: contextMinImportance,
		MinConfidence: contextMinConfidence,
	})
	if err != nil {
		return nil, err
	}

	byID := make(map[string]ScoredMemory, len(retrieved.Memories))
	summaries := make([]intelligence.MemorySummary, len(retrieved.Memories))
	for i, m := range retrieved.Memories {
		byID[m.ID] = m
		summaries[i] = toMemorySummary(&m.Memory)
	}

	ranked := b.ranker.Rank(&intelligence.RankRequest{
		Memories: summaries,
		Context: intelligence.RankContext{
			Query:       req.Query,
			SourceAgent: req.SourceAgent,
			Now:         b.clock(),
		},
	})

	memories := make([]ContextMemory, 0, len(ranked.Ranked))
	for _, r := range ranked.Ranked {
		original, ok := byID[r.ID]
		if !ok {
			continue
		}
		memories = append(memories, ContextMemory{
			Memory:         original.Memory,
			RelevanceScore: original.RelevanceScore,
			RankingScore:   r.Score,
			Rank:           r.Rank,
			Percentile:     r.Percentile,
			Breakdown:      r.Breakdown,
		})
	}

	stats := intelligence.GetStats(ranked.Ranked)
	summary := noHistoricalContextText
	if len(memories) > 0 {
		summary = fmt.Sprintf("Found %d relevant memories with average relevance %.1f.", len(memories), stats.Mean)
	}

	return &HistoricalContext{
		Memories:          memories,
		RelatedMemories:   retrieved.RelatedMemories,
		Summary:           summary,
		AverageScore:      stats.Mean,
		Stats:             stats,
		RetrievalStrategy: retrieved.RetrievalStrategy,
		RankingStrategy:   ranked.Strategy,
	}, nil
}

// GetMemoryMetrics aggregates the workspace's visible memories and
// unresolved signals.
func (b *Bridge) GetMemoryMetrics(ctx context.Context, workspaceID string) (*MemoryMetrics, error) {
	const op = "GetMemoryMetrics"

	if strings.TrimSpace(workspaceID) == "" {
		return nil, invalidInput(op, "workspaceId is required")
	}

	stats, err := b.backend.Stats(ctx, workspaceID)
	if err != nil {
		return nil, storeFailure(op, err)
	}

	metrics := &MemoryMetrics{
		WorkspaceID:   workspaceID,
		ByType:        make(map[string]TypeMetrics, len(stats.Memories)),
		SignalsByType: make(map[string]SignalMetrics, len(stats.Signals)),
	}

	var sumImportance, sumConfidence, sumPriority float64
	for memoryType, s := range stats.Memories {
		metrics.ByType[memoryType] = TypeMetrics(s)
		metrics.TotalMemories += s.Count
		sumImportance += s.AvgImportance * float64(s.Count)
		sumConfidence += s.AvgConfidence * float64(s.Count)
		sumPriority += s.AvgRecallPriority * float64(s.Count)
	}
	if metrics.TotalMemories > 0 {
		n := float64(metrics.TotalMemories)
		metrics.AvgImportance = sumImportance / n
		metrics.AvgConfidence = sumConfidence / n
		metrics.AvgRecallPriority = sumPriority / n
	}

	for signalType, s := range stats.Signals {
		metrics.SignalsByType[signalType] = SignalMetrics(s)
		metrics.UnresolvedSignals += s.Count
	}

	return metrics, nil
}
