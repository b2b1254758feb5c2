package core

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/oceanbase/agentrecall-go/pkg/intelligence"
	"github.com/oceanbase/agentrecall-go/pkg/storage"
)

// Retrieval defaults.
const (
	DefaultRetrieveLimit = 10
	MaxRetrieveLimit     = 100
	DefaultMaxDepth      = 2
	DefaultLimitPerDepth = 5
	DefaultSignalLimit   = 20

	relatedSourceCount = 3
	relatedLinkLimit   = 10
)

// RetrievalStrategyHybrid is reported by Retrieve.
const RetrievalStrategyHybrid = "hybrid_keyword_temporal_recall"

// RetrieveRequest is the input of Retriever.Retrieve.
type RetrieveRequest struct {
	WorkspaceID string       `json:"workspaceId"`
	Query       string       `json:"query"`
	MemoryTypes []MemoryType `json:"memoryTypes,omitempty"`

	// Limit defaults to 10 and is capped at 100.
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	MinImportance float64 `json:"minImportance,omitempty"`
	MinConfidence float64 `json:"minConfidence,omitempty"`

	// IncludeRelated defaults to true when nil.
	IncludeRelated *bool `json:"includeRelated,omitempty"`
}

// ScoredMemory is a memory annotated with its first-pass relevance.
type ScoredMemory struct {
	Memory

	RelevanceScore    float64 `json:"relevanceScore"`
	KeywordMatchScore float64 `json:"keywordMatchScore"`
	TemporalDecay     float64 `json:"temporalDecay"`
}

// RelatedMemory is a memory reached through a link from a retrieved memory.
type RelatedMemory struct {
	ScoredMemory

	SourceMemoryID       string       `json:"sourceMemoryId"`
	RelationshipType     Relationship `json:"relationshipType"`
	RelationshipStrength float64      `json:"relationshipStrength"`
}

// RetrieveResponse is the output of Retriever.Retrieve.
type RetrieveResponse struct {
	Memories          []ScoredMemory  `json:"memories"`
	RelatedMemories   []RelatedMemory `json:"relatedMemories"`
	TotalCount        int             `json:"totalCount"`
	ExecutionTimeMs   int64           `json:"executionTimeMs"`
	RetrievalStrategy string          `json:"retrievalStrategy"`
}

// FindRelatedRequest is the input of Retriever.FindRelated.
type FindRelatedRequest struct {
	WorkspaceID       string         `json:"workspaceId"`
	MemoryID          string         `json:"memoryId"`
	RelationshipTypes []Relationship `json:"relationshipTypes,omitempty"`

	// MaxDepth defaults to 2, LimitPerDepth to 5.
	MaxDepth      int `json:"maxDepth,omitempty"`
	LimitPerDepth int `json:"limitPerDepth,omitempty"`
}

// GraphNode is a memory discovered by FindRelated.
type GraphNode struct {
	Memory

	Depth                int          `json:"depth"`
	ParentID             string       `json:"parentId"`
	RelationshipType     Relationship `json:"relationshipType"`
	RelationshipStrength float64      `json:"relationshipStrength"`
}

// FindRelatedResponse is the output of Retriever.FindRelated.
type FindRelatedResponse struct {
	RootMemoryID             string              `json:"rootMemoryId"`
	ByDepth                  map[int][]GraphNode `json:"byDepth"`
	TotalRelated             int                 `json:"totalRelated"`
	RelationshipTypesCovered []Relationship      `json:"relationshipTypesCovered"`
}

// SignalSearchRequest is the input of Retriever.FindWithSignals.
type SignalSearchRequest struct {
	WorkspaceID string   `json:"workspaceId"`
	SignalTypes []string `json:"signalTypes,omitempty"`

	// Limit caps the number of signals considered, default 20.
	Limit int `json:"limit,omitempty"`
}

// MemoryWithSignals is a memory with its unresolved signals, most severe
// first.
type MemoryWithSignals struct {
	Memory

	Signals []MemorySignal `json:"signals"`
}

// Retriever is the read side of the engine. It holds no state between calls.
type Retriever struct {
	backend storage.RecordStore
	logger  *log.Logger
	clock   func() time.Time
}

// NewRetriever creates a Retriever over backend.
func NewRetriever(backend storage.RecordStore, opts ...Option) *Retriever {
	o := applyOptions(opts)
	return &Retriever{
		backend: backend,
		logger:  o.logger,
		clock:   o.clock,
	}
}

// Retrieve answers "what is relevant to this query".
//
// Candidates are paged from the store by recall priority, then the page is
// re-sorted by relevance:
//
//	recallPriority*0.5 + RetrieverDecay*0.2 + KeywordMatchScore*0.2 + confidence*0.1
//
// A memory outside the recall-priority page is never considered, however
// relevant it would be.
func (r *Retriever) Retrieve(ctx context.Context, req *RetrieveRequest) (*RetrieveResponse, error) {
	const op = "Retrieve"
	start := time.Now()

	if req == nil {
		return nil, invalidInput(op, "request is required")
	}
	if strings.TrimSpace(req.WorkspaceID) == "" {
		return nil, invalidInput(op, "workspaceId is required")
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, invalidInput(op, "query is required")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultRetrieveLimit
	}
	if limit > MaxRetrieveLimit {
		limit = MaxRetrieveLimit
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}
	includeRelated := req.IncludeRelated == nil || *req.IncludeRelated

	query := &storage.MemoryQuery{
		WorkspaceID:   req.WorkspaceID,
		MemoryTypes:   memoryTypeStrings(req.MemoryTypes),
		MinImportance: req.MinImportance,
		MinConfidence: req.MinConfidence,
		Limit:         limit,
		Offset:        offset,
	}

	rows, err := r.backend.QueryMemories(ctx, query)
	if err != nil {
		return nil, storeFailure(op, err)
	}
	total, err := r.backend.CountMemories(ctx, query)
	if err != nil {
		return nil, storeFailure(op, err)
	}

	now := r.clock()
	memories := make([]ScoredMemory, len(rows))
	for i, row := range rows {
		memories[i] = r.score(fromStorageMemory(row), req.Query, now)
	}
	sort.SliceStable(memories, func(i, j int) bool {
		return memories[i].RelevanceScore > memories[j].RelevanceScore
	})

	related := []RelatedMemory{}
	if includeRelated && len(memories) > 0 {
		related, err = r.relatedTo(ctx, req.WorkspaceID, req.Query, memories, now)
		if err != nil {
			return nil, storeFailure(op, err)
		}
	}

	resp := &RetrieveResponse{
		Memories:          memories,
		RelatedMemories:   related,
		TotalCount:        total,
		ExecutionTimeMs:   time.Since(start).Milliseconds(),
		RetrievalStrategy: RetrievalStrategyHybrid,
	}

	r.logger.Debug("retrieved memories", "workspace", req.WorkspaceID, "candidates", len(memories), "related", len(related), "total", total, "ms", resp.ExecutionTimeMs)

	return resp, nil
}

// score computes the first-pass relevance of a memory.
func (r *Retriever) score(m *Memory, query string, now time.Time) ScoredMemory {
	decay := intelligence.RetrieverDecay(m.CreatedAt, now)
	keyword := intelligence.KeywordMatchScore(query, m.Keywords, m.Content)

	return ScoredMemory{
		Memory:            *m,
		RelevanceScore:    m.RecallPriority*0.5 + decay*0.2 + keyword*0.2 + m.Confidence*0.1,
		KeywordMatchScore: keyword,
		TemporalDecay:     decay,
	}
}

// relatedTo follows the strongest outgoing links of the top ranked
// memories. Missing or hidden targets are skipped and each target is
// reported once, through its strongest link.
func (r *Retriever) relatedTo(ctx context.Context, workspaceID, query string, ranked []ScoredMemory, now time.Time) ([]RelatedMemory, error) {
	top := ranked
	if len(top) > relatedSourceCount {
		top = top[:relatedSourceCount]
	}
	sourceIDs := make([]string, len(top))
	for i, m := range top {
		sourceIDs[i] = m.ID
	}

	links, err := r.backend.QueryLinks(ctx, &storage.LinkQuery{
		WorkspaceID: workspaceID,
		SourceIDs:   sourceIDs,
		Limit:       relatedLinkLimit,
	})
	if err != nil {
		return nil, err
	}

	related := make([]RelatedMemory, 0, len(links))
	seen := make(map[string]bool, len(links))
	for _, link := range links {
		if link.Target == nil || seen[link.LinkedMemoryID] {
			continue
		}
		seen[link.LinkedMemoryID] = true

		related = append(related, RelatedMemory{
			ScoredMemory:         r.score(fromStorageMemory(link.Target), query, now),
			SourceMemoryID:       link.MemoryID,
			RelationshipType:     Relationship(link.Relationship),
			RelationshipStrength: link.Strength,
		})
	}

	return related, nil
}

// queueItem is a pending BFS expansion.
type queueItem struct {
	id    string
	depth int
}

// FindRelated walks outgoing links breadth-first from MemoryID.
//
// A global visited set (seeded with the root) guarantees no memory is
// expanded or reported twice, even on cyclic graphs, and each depth holds at
// most LimitPerDepth memories. The walk stops once MaxDepth depth levels
// have been populated.
func (r *Retriever) FindRelated(ctx context.Context, req *FindRelatedRequest) (*FindRelatedResponse, error) {
	const op = "FindRelated"

	if req == nil {
		return nil, invalidInput(op, "request is required")
	}
	if strings.TrimSpace(req.WorkspaceID) == "" {
		return nil, invalidInput(op, "workspaceId is required")
	}
	if strings.TrimSpace(req.MemoryID) == "" {
		return nil, invalidInput(op, "memoryId is required")
	}

	maxDepth := req.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	limitPerDepth := req.LimitPerDepth
	if limitPerDepth <= 0 {
		limitPerDepth = DefaultLimitPerDepth
	}
	relationships := relationshipStrings(req.RelationshipTypes)

	visited := map[string]bool{req.MemoryID: true}
	queue := []queueItem{{id: req.MemoryID, depth: 0}}
	byDepth := make(map[int][]GraphNode)
	covered := make(map[Relationship]bool)
	total := 0

	for len(queue) > 0 && len(byDepth) < maxDepth {
		current := queue[0]
		queue = queue[1:]

		if current.depth >= maxDepth {
			continue
		}

		links, err := r.backend.QueryLinks(ctx, &storage.LinkQuery{
			WorkspaceID:       req.WorkspaceID,
			SourceIDs:         []string{current.id},
			RelationshipTypes: relationships,
			Limit:             limitPerDepth,
		})
		if err != nil {
			return nil, storeFailure(op, err)
		}

		next := current.depth + 1
		for _, link := range links {
			if link.Target == nil || visited[link.LinkedMemoryID] {
				continue
			}
			if len(byDepth[next]) >= limitPerDepth {
				break
			}

			visited[link.LinkedMemoryID] = true
			relationship := Relationship(link.Relationship)
			byDepth[next] = append(byDepth[next], GraphNode{
				Memory:               *fromStorageMemory(link.Target),
				Depth:                next,
				ParentID:             current.id,
				RelationshipType:     relationship,
				RelationshipStrength: link.Strength,
			})
			covered[relationship] = true
			total++
			queue = append(queue, queueItem{id: link.LinkedMemoryID, depth: next})
		}
	}

	types := make([]Relationship, 0, len(covered))
	for rel := range covered {
		types = append(types, rel)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return &FindRelatedResponse{
		RootMemoryID:             req.MemoryID,
		ByDepth:                  byDepth,
		TotalRelated:             total,
		RelationshipTypesCovered: types,
	}, nil
}

// FindWithSignals returns memories carrying unresolved signals. Signals are
// ordered by value then recency before grouping, so the memory behind the
// most severe signal comes first. Each memory appears once with all of its
// selected signals.
func (r *Retriever) FindWithSignals(ctx context.Context, req *SignalSearchRequest) ([]*MemoryWithSignals, error) {
	const op = "FindWithSignals"

	if req == nil {
		return nil, invalidInput(op, "request is required")
	}
	if strings.TrimSpace(req.WorkspaceID) == "" {
		return nil, invalidInput(op, "workspaceId is required")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultSignalLimit
	}

	rows, err := r.backend.QueryUnresolvedSignals(ctx, &storage.SignalQuery{
		WorkspaceID: req.WorkspaceID,
		SignalTypes: req.SignalTypes,
		Limit:       limit,
	})
	if err != nil {
		return nil, storeFailure(op, err)
	}

	results := []*MemoryWithSignals{}
	byMemory := make(map[string]*MemoryWithSignals)
	for _, row := range rows {
		if row.Memory == nil {
			continue
		}

		entry, ok := byMemory[row.MemoryID]
		if !ok {
			entry = &MemoryWithSignals{Memory: *fromStorageMemory(row.Memory)}
			byMemory[row.MemoryID] = entry
			results = append(results, entry)
		}
		entry.Signals = append(entry.Signals, fromStorageSignal(&row.Signal))
	}

	return results, nil
}
