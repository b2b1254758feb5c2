package core_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agentrecall "github.com/oceanbase/agentrecall-go/pkg/core"
)

func TestRetriever_RetrieveRanksCandidatePage(t *testing.T) {
	client, _, cleanup := setupCoreTest(t)
	defer cleanup()

	ctx := context.Background()
	a := storeMemory(t, client, agentrecall.MemoryTypeDecision, 90, 90, `{"note":"quarterly review"}`)
	b := storeMemory(t, client, agentrecall.MemoryTypeLesson, 80, 80, `{"topic":"pricing"}`, "pricing")

	resp, err := client.Retriever().Retrieve(ctx, &agentrecall.RetrieveRequest{
		WorkspaceID: testWorkspace,
		Query:       "pricing",
	})
	require.NoError(t, err)
	require.Len(t, resp.Memories, 2)
	assert.Equal(t, 2, resp.TotalCount)
	assert.Equal(t, agentrecall.RetrievalStrategyHybrid, resp.RetrievalStrategy)
	assert.GreaterOrEqual(t, resp.ExecutionTimeMs, int64(0))

	// b: 64*0.5 + 100*0.2 + 100*0.2 + 80*0.1
	assert.Equal(t, b, resp.Memories[0].ID)
	assert.InDelta(t, 80.0, resp.Memories[0].RelevanceScore, 1e-9)
	assert.InDelta(t, 100.0, resp.Memories[0].KeywordMatchScore, 1e-9)
	assert.InDelta(t, 100.0, resp.Memories[0].TemporalDecay, 1e-9)

	// a: 81*0.5 + 100*0.2 + 0 + 90*0.1
	assert.Equal(t, a, resp.Memories[1].ID)
	assert.InDelta(t, 69.5, resp.Memories[1].RelevanceScore, 1e-9)
	assert.Zero(t, resp.Memories[1].KeywordMatchScore)
}

func TestRetriever_RetrievePagesByRecallPriorityFirst(t *testing.T) {
	client, _, cleanup := setupCoreTest(t)
	defer cleanup()

	ctx := context.Background()
	a := storeMemory(t, client, agentrecall.MemoryTypeDecision, 90, 90, `{"note":"quarterly review"}`)
	storeMemory(t, client, agentrecall.MemoryTypeLesson, 80, 80, `{"topic":"pricing"}`, "pricing")

	resp, err := client.Retriever().Retrieve(ctx, &agentrecall.RetrieveRequest{
		WorkspaceID: testWorkspace,
		Query:       "pricing",
		Limit:       1,
	})
	require.NoError(t, err)
	require.Len(t, resp.Memories, 1)
	assert.Equal(t, a, resp.Memories[0].ID)
	assert.Equal(t, 2, resp.TotalCount)

	resp, err = client.Retriever().Retrieve(ctx, &agentrecall.RetrieveRequest{
		WorkspaceID: testWorkspace,
		Query:       "pricing",
		Limit:       1,
		Offset:      1,
	})
	require.NoError(t, err)
	require.Len(t, resp.Memories, 1)
	assert.NotEqual(t, a, resp.Memories[0].ID)
}

func TestRetriever_RetrieveFilters(t *testing.T) {
	client, _, cleanup := setupCoreTest(t)
	defer cleanup()

	ctx := context.Background()
	storeMemory(t, client, agentrecall.MemoryTypeDecision, 30, 90, `{}`)
	storeMemory(t, client, agentrecall.MemoryTypeDecision, 90, 40, `{}`)
	keep := storeMemory(t, client, agentrecall.MemoryTypeDecision, 60, 60, `{}`)
	storeMemory(t, client, agentrecall.MemoryTypeLesson, 60, 60, `{}`)

	resp, err := client.Retriever().Retrieve(ctx, &agentrecall.RetrieveRequest{
		WorkspaceID:   testWorkspace,
		Query:         "anything",
		MemoryTypes:   []agentrecall.MemoryType{agentrecall.MemoryTypeDecision},
		MinImportance: 40,
		MinConfidence: 50,
	})
	require.NoError(t, err)
	require.Len(t, resp.Memories, 1)
	assert.Equal(t, keep, resp.Memories[0].ID)
	assert.Equal(t, 1, resp.TotalCount)

	resp, err = client.Retriever().Retrieve(ctx, &agentrecall.RetrieveRequest{
		WorkspaceID: "empty-workspace",
		Query:       "anything",
	})
	require.NoError(t, err)
	assert.NotNil(t, resp.Memories)
	assert.Empty(t, resp.Memories)
	assert.NotNil(t, resp.RelatedMemories)
}

func TestRetriever_RetrieveTemporalDecay(t *testing.T) {
	client, clock, cleanup := setupCoreTest(t)
	defer cleanup()

	ctx := context.Background()
	storeMemory(t, client, agentrecall.MemoryTypeOutcome, 50, 50, `{}`)
	clock.Advance(30 * 24 * time.Hour)

	resp, err := client.Retriever().Retrieve(ctx, &agentrecall.RetrieveRequest{WorkspaceID: testWorkspace, Query: "nothing"})
	require.NoError(t, err)
	require.Len(t, resp.Memories, 1)
	assert.InDelta(t, 50.0, resp.Memories[0].TemporalDecay, 1e-6)
	// 25*0.5 + 50*0.2 + 0 + 50*0.1
	assert.InDelta(t, 27.5, resp.Memories[0].RelevanceScore, 1e-6)

	clock.Advance(365 * 24 * time.Hour)
	resp, err = client.Retriever().Retrieve(ctx, &agentrecall.RetrieveRequest{WorkspaceID: testWorkspace, Query: "nothing"})
	require.NoError(t, err)
	assert.InDelta(t, 10.0, resp.Memories[0].TemporalDecay, 1e-6)
}

func TestRetriever_RetrieveRelated(t *testing.T) {
	client, _, cleanup := setupCoreTest(t)
	defer cleanup()

	ctx := context.Background()
	source := storeMemory(t, client, agentrecall.MemoryTypeDecision, 90, 90, `{"deal":"acme"}`, "acme")
	strong := storeMemory(t, client, agentrecall.MemoryTypeOutcome, 10, 10, `{"result":"won"}`)
	weak := storeMemory(t, client, agentrecall.MemoryTypeLesson, 10, 10, `{"lesson":"call early"}`)
	hidden := storeMemory(t, client, agentrecall.MemoryTypeLesson, 10, 10, `{}`)
	link(t, client, source, weak, agentrecall.RelationshipRelated, 40)
	link(t, client, source, strong, agentrecall.RelationshipLedTo, 90)
	link(t, client, source, hidden, agentrecall.RelationshipSupports, 95)
	require.NoError(t, client.Store().Redact(ctx, testWorkspace, hidden))

	resp, err := client.Retriever().Retrieve(ctx, &agentrecall.RetrieveRequest{
		WorkspaceID:   testWorkspace,
		Query:         "acme",
		MinImportance: 50,
	})
	require.NoError(t, err)
	require.Len(t, resp.Memories, 1)
	require.Len(t, resp.RelatedMemories, 2)

	first := resp.RelatedMemories[0]
	assert.Equal(t, strong, first.ID)
	assert.Equal(t, source, first.SourceMemoryID)
	assert.Equal(t, agentrecall.RelationshipLedTo, first.RelationshipType)
	assert.Equal(t, 90.0, first.RelationshipStrength)
	// 1*0.5 + 100*0.2 + 0 + 10*0.1
	assert.InDelta(t, 21.5, first.RelevanceScore, 1e-9)

	assert.Equal(t, weak, resp.RelatedMemories[1].ID)

	off := false
	resp, err = client.Retriever().Retrieve(ctx, &agentrecall.RetrieveRequest{
		WorkspaceID:    testWorkspace,
		Query:          "acme",
		MinImportance:  50,
		IncludeRelated: &off,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.RelatedMemories)
}

func TestRetriever_RetrieveRelatedReportsTargetOnce(t *testing.T) {
	client, _, cleanup := setupCoreTest(t)
	defer cleanup()

	ctx := context.Background()
	a := storeMemory(t, client, agentrecall.MemoryTypeDecision, 90, 90, `{}`)
	b := storeMemory(t, client, agentrecall.MemoryTypeDecision, 85, 90, `{}`)
	target := storeMemory(t, client, agentrecall.MemoryTypeOutcome, 10, 10, `{}`)
	link(t, client, a, target, agentrecall.RelationshipLedTo, 60)
	link(t, client, b, target, agentrecall.RelationshipSupports, 80)

	resp, err := client.Retriever().Retrieve(ctx, &agentrecall.RetrieveRequest{
		WorkspaceID:   testWorkspace,
		Query:         "x",
		MinImportance: 50,
	})
	require.NoError(t, err)
	require.Len(t, resp.RelatedMemories, 1)
	assert.Equal(t, target, resp.RelatedMemories[0].ID)
	assert.Equal(t, b, resp.RelatedMemories[0].SourceMemoryID)
	assert.Equal(t, 80.0, resp.RelatedMemories[0].RelationshipStrength)
}

func TestRetriever_RetrieveCapsLimit(t *testing.T) {
	backend := &fakeBackend{}
	client := newFakeClient(t, backend)

	resp, err := client.Retriever().Retrieve(context.Background(), &agentrecall.RetrieveRequest{
		WorkspaceID: "ws",
		Query:       "q",
		Limit:       1000,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Memories)
	assert.Equal(t, 2, backend.calls)
	require.NotNil(t, backend.lastQuery)
	assert.Equal(t, agentrecall.MaxRetrieveLimit, backend.lastQuery.Limit)
}

func TestRetriever_ValidationBeforeIO(t *testing.T) {
	backend := &fakeBackend{}
	client := newFakeClient(t, backend)
	ctx := context.Background()

	_, err := client.Retriever().Retrieve(ctx, &agentrecall.RetrieveRequest{Query: "q"})
	assert.True(t, agentrecall.IsValidationError(err))

	_, err = client.Retriever().Retrieve(ctx, &agentrecall.RetrieveRequest{WorkspaceID: "ws", Query: "   "})
	assert.True(t, agentrecall.IsValidationError(err))

	_, err = client.Retriever().Retrieve(ctx, nil)
	assert.True(t, agentrecall.IsValidationError(err))

	_, err = client.Retriever().FindRelated(ctx, &agentrecall.FindRelatedRequest{WorkspaceID: "ws"})
	assert.True(t, agentrecall.IsValidationError(err))

	_, err = client.Retriever().FindRelated(ctx, &agentrecall.FindRelatedRequest{MemoryID: "m"})
	assert.True(t, agentrecall.IsValidationError(err))

	_, err = client.Retriever().FindWithSignals(ctx, &agentrecall.SignalSearchRequest{})
	assert.True(t, agentrecall.IsValidationError(err))

	assert.Zero(t, backend.calls)
}

func TestRetriever_ReadsFailLoud(t *testing.T) {
	cause := errors.New("connection reset")
	backend := &fakeBackend{err: cause}
	client := newFakeClient(t, backend)
	ctx := context.Background()

	_, err := client.Retriever().Retrieve(ctx, &agentrecall.RetrieveRequest{WorkspaceID: "ws", Query: "q"})
	assert.True(t, agentrecall.IsStoreError(err))
	assert.ErrorIs(t, err, cause)

	_, err = client.Retriever().FindRelated(ctx, &agentrecall.FindRelatedRequest{WorkspaceID: "ws", MemoryID: "m"})
	assert.True(t, agentrecall.IsStoreError(err))
	assert.ErrorIs(t, err, cause)

	_, err = client.Retriever().FindWithSignals(ctx, &agentrecall.SignalSearchRequest{WorkspaceID: "ws"})
	assert.True(t, agentrecall.IsStoreError(err))
	assert.ErrorIs(t, err, cause)
}

func TestRetriever_FindRelatedChain(t *testing.T) {
	client, _, cleanup := setupCoreTest(t)
	defer cleanup()

	ctx := context.Background()
	root := storeMemory(t, client, agentrecall.MemoryTypePlan, 50, 50, `{}`)
	a := storeMemory(t, client, agentrecall.MemoryTypeStep, 50, 50, `{}`)
	b := storeMemory(t, client, agentrecall.MemoryTypeStep, 50, 50, `{}`)
	c := storeMemory(t, client, agentrecall.MemoryTypeOutcome, 50, 50, `{}`)
	link(t, client, root, a, agentrecall.RelationshipLedTo, 80)
	link(t, client, a, b, agentrecall.RelationshipLedTo, 80)
	link(t, client, b, c, agentrecall.RelationshipCausedBy, 80)

	resp, err := client.Retriever().FindRelated(ctx, &agentrecall.FindRelatedRequest{
		WorkspaceID: testWorkspace,
		MemoryID:    root,
	})
	require.NoError(t, err)
	assert.Equal(t, root, resp.RootMemoryID)
	assert.Equal(t, 2, resp.TotalRelated)
	require.Len(t, resp.ByDepth[1], 1)
	require.Len(t, resp.ByDepth[2], 1)
	assert.Equal(t, a, resp.ByDepth[1][0].ID)
	assert.Equal(t, root, resp.ByDepth[1][0].ParentID)
	assert.Equal(t, b, resp.ByDepth[2][0].ID)
	assert.Equal(t, a, resp.ByDepth[2][0].ParentID)
	assert.Equal(t, 2, resp.ByDepth[2][0].Depth)
	assert.Empty(t, resp.ByDepth[3])
	assert.Equal(t, []agentrecall.Relationship{agentrecall.RelationshipLedTo}, resp.RelationshipTypesCovered)

	resp, err = client.Retriever().FindRelated(ctx, &agentrecall.FindRelatedRequest{
		WorkspaceID: testWorkspace,
		MemoryID:    root,
		MaxDepth:    3,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.TotalRelated)
	require.Len(t, resp.ByDepth[3], 1)
	assert.Equal(t, c, resp.ByDepth[3][0].ID)
	assert.Equal(t, []agentrecall.Relationship{agentrecall.RelationshipCausedBy, agentrecall.RelationshipLedTo}, resp.RelationshipTypesCovered)
}

func TestRetriever_FindRelatedCycles(t *testing.T) {
	client, _, cleanup := setupCoreTest(t)
	defer cleanup()

	ctx := context.Background()
	root := storeMemory(t, client, agentrecall.MemoryTypePlan, 50, 50, `{}`)
	a := storeMemory(t, client, agentrecall.MemoryTypeStep, 50, 50, `{}`)
	b := storeMemory(t, client, agentrecall.MemoryTypeStep, 50, 50, `{}`)
	link(t, client, root, a, agentrecall.RelationshipRelated, 90)
	link(t, client, a, root, agentrecall.RelationshipRelated, 90)
	link(t, client, a, b, agentrecall.RelationshipRelated, 80)
	link(t, client, b, a, agentrecall.RelationshipRelated, 80)
	link(t, client, b, root, agentrecall.RelationshipRelated, 80)

	resp, err := client.Retriever().FindRelated(ctx, &agentrecall.FindRelatedRequest{
		WorkspaceID: testWorkspace,
		MemoryID:    root,
		MaxDepth:    5,
	})
	require.NoError(t, err)

	seen := map[string]bool{}
	for depth, nodes := range resp.ByDepth {
		for _, node := range nodes {
			assert.Equal(t, depth, node.Depth)
			assert.NotEqual(t, root, node.ID)
			assert.False(t, seen[node.ID], "memory %s reported twice", node.ID)
			seen[node.ID] = true
		}
	}
	assert.Equal(t, 2, resp.TotalRelated)
	assert.True(t, seen[a])
	assert.True(t, seen[b])
}

func TestRetriever_FindRelatedLimitPerDepth(t *testing.T) {
	client, _, cleanup := setupCoreTest(t)
	defer cleanup()

	ctx := context.Background()
	root := storeMemory(t, client, agentrecall.MemoryTypePlan, 50, 50, `{}`)
	var strongest []string
	for i := 0; i < 7; i++ {
		child := storeMemory(t, client, agentrecall.MemoryTypeStep, 50, 50, `{}`)
		link(t, client, root, child, agentrecall.RelationshipSupports, float64(30+i*10))
		strongest = append([]string{child}, strongest...)
	}

	resp, err := client.Retriever().FindRelated(ctx, &agentrecall.FindRelatedRequest{
		WorkspaceID:   testWorkspace,
		MemoryID:      root,
		LimitPerDepth: 3,
	})
	require.NoError(t, err)
	require.Len(t, resp.ByDepth[1], 3)
	for i, node := range resp.ByDepth[1] {
		assert.Equal(t, strongest[i], node.ID)
	}
	assert.Equal(t, 3, resp.TotalRelated)
}

func TestRetriever_FindRelatedRelationshipFilter(t *testing.T) {
	client, _, cleanup := setupCoreTest(t)
	defer cleanup()

	ctx := context.Background()
	root := storeMemory(t, client, agentrecall.MemoryTypeDecision, 50, 50, `{}`)
	valid := storeMemory(t, client, agentrecall.MemoryTypeOutcome, 50, 50, `{}`)
	other := storeMemory(t, client, agentrecall.MemoryTypeOutcome, 50, 50, `{}`)
	link(t, client, root, valid, agentrecall.RelationshipValidates, 60)
	link(t, client, root, other, agentrecall.RelationshipRelated, 90)

	resp, err := client.Retriever().FindRelated(ctx, &agentrecall.FindRelatedRequest{
		WorkspaceID:       testWorkspace,
		MemoryID:          root,
		RelationshipTypes: []agentrecall.Relationship{agentrecall.RelationshipValidates},
	})
	require.NoError(t, err)
	require.Len(t, resp.ByDepth[1], 1)
	assert.Equal(t, valid, resp.ByDepth[1][0].ID)
	assert.Equal(t, agentrecall.RelationshipValidates, resp.ByDepth[1][0].RelationshipType)
	assert.Equal(t, 60.0, resp.ByDepth[1][0].RelationshipStrength)
}

func TestRetriever_FindRelatedStopsWhenDepthsPopulated(t *testing.T) {
	client, _, cleanup := setupCoreTest(t)
	defer cleanup()

	ctx := context.Background()
	root := storeMemory(t, client, agentrecall.MemoryTypePlan, 50, 50, `{}`)
	a := storeMemory(t, client, agentrecall.MemoryTypeStep, 50, 50, `{}`)
	b := storeMemory(t, client, agentrecall.MemoryTypeStep, 50, 50, `{}`)
	c := storeMemory(t, client, agentrecall.MemoryTypeOutcome, 50, 50, `{}`)
	d := storeMemory(t, client, agentrecall.MemoryTypeOutcome, 50, 50, `{}`)
	link(t, client, root, a, agentrecall.RelationshipLedTo, 90)
	link(t, client, root, b, agentrecall.RelationshipLedTo, 80)
	link(t, client, a, c, agentrecall.RelationshipLedTo, 70)
	link(t, client, b, d, agentrecall.RelationshipLedTo, 70)

	resp, err := client.Retriever().FindRelated(ctx, &agentrecall.FindRelatedRequest{
		WorkspaceID: testWorkspace,
		MemoryID:    root,
	})
	require.NoError(t, err)
	require.Len(t, resp.ByDepth[1], 2)
	require.Len(t, resp.ByDepth[2], 1)
	assert.Equal(t, c, resp.ByDepth[2][0].ID)
	assert.Equal(t, 3, resp.TotalRelated)
	for _, node := range resp.ByDepth[2] {
		assert.NotEqual(t, d, node.ID)
	}
}

func TestRetriever_FindRelatedUnknownRoot(t *testing.T) {
	client, _, cleanup := setupCoreTest(t)
	defer cleanup()

	resp, err := client.Retriever().FindRelated(context.Background(), &agentrecall.FindRelatedRequest{
		WorkspaceID: testWorkspace,
		MemoryID:    "missing",
	})
	require.NoError(t, err)
	assert.Empty(t, resp.ByDepth)
	assert.Zero(t, resp.TotalRelated)
	assert.Empty(t, resp.RelationshipTypesCovered)
}

func TestRetriever_FindWithSignals(t *testing.T) {
	client, clock, cleanup := setupCoreTest(t)
	defer cleanup()

	ctx := context.Background()
	m1 := storeMemory(t, client, agentrecall.MemoryTypeMonitoringEvent, 50, 50, `{}`)
	m2 := storeMemory(t, client, agentrecall.MemoryTypeMonitoringEvent, 50, 50, `{}`)

	addSignal := func(memoryID, signalType string, value float64) {
		clock.Advance(time.Second)
		require.NoError(t, client.Store().AddSignal(ctx, &agentrecall.SignalRequest{
			MemoryID:    memoryID,
			WorkspaceID: testWorkspace,
			SignalType:  signalType,
			SignalValue: value,
		}))
	}
	addSignal(m1, agentrecall.SignalTypeUncertaintyHigh, 60)
	addSignal(m2, agentrecall.SignalTypeAnomaly, 80)
	addSignal(m1, agentrecall.SignalTypeAnomaly, 90)

	results, err := client.Retriever().FindWithSignals(ctx, &agentrecall.SignalSearchRequest{WorkspaceID: testWorkspace})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, m1, results[0].ID)
	require.Len(t, results[0].Signals, 2)
	assert.Equal(t, 90.0, results[0].Signals[0].SignalValue)
	assert.Equal(t, 60.0, results[0].Signals[1].SignalValue)
	assert.Equal(t, m2, results[1].ID)
	require.Len(t, results[1].Signals, 1)

	results, err = client.Retriever().FindWithSignals(ctx, &agentrecall.SignalSearchRequest{
		WorkspaceID: testWorkspace,
		SignalTypes: []string{agentrecall.SignalTypeAnomaly},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Len(t, results[0].Signals, 1)

	results, err = client.Retriever().FindWithSignals(ctx, &agentrecall.SignalSearchRequest{
		WorkspaceID: testWorkspace,
		Limit:       2,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Len(t, results[0].Signals, 1)
	assert.Len(t, results[1].Signals, 1)

	results, err = client.Retriever().FindWithSignals(ctx, &agentrecall.SignalSearchRequest{WorkspaceID: "quiet"})
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestRetriever_FindWithSignalsIgnoresOtherWorkspaceMemories(t *testing.T) {
	client, _, cleanup := setupCoreTest(t)
	defer cleanup()

	ctx := context.Background()
	stored, err := client.Store().Store(ctx, &agentrecall.StoreRequest{
		WorkspaceID: "tenant-a",
		MemoryType:  agentrecall.MemoryTypeLesson,
		Content:     json.RawMessage(`{"secret":"a"}`),
		Importance:  50,
		Confidence:  50,
		Agent:       "agent",
	})
	require.NoError(t, err)

	require.NoError(t, client.Store().AddSignal(ctx, &agentrecall.SignalRequest{
		MemoryID:    stored.MemoryID,
		WorkspaceID: "tenant-b",
		SignalType:  agentrecall.SignalTypeAnomaly,
		SignalValue: 90,
	}))

	results, err := client.Retriever().FindWithSignals(ctx, &agentrecall.SignalSearchRequest{WorkspaceID: "tenant-b"})
	require.NoError(t, err)
	assert.Empty(t, results)

	metrics, err := client.Bridge().GetMemoryMetrics(ctx, "tenant-b")
	require.NoError(t, err)
	assert.Zero(t, metrics.UnresolvedSignals)
}
