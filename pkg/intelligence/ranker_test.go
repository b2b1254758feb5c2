package intelligence_test

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanbase/agentrecall-go/pkg/intelligence"
)

var rankNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func summaries(n int) []intelligence.MemorySummary {
	types := []string{"decision", "lesson", "step", "plan", "audit_log", "custom_type"}
	out := make([]intelligence.MemorySummary, n)
	for i := range out {
		out[i] = intelligence.MemorySummary{
			ID:             fmt.Sprintf("m%d", i),
			MemoryType:     types[i%len(types)],
			RecallPriority: float64((i * 37) % 101),
			CreatedAt:      rankNow.AddDate(0, 0, -(i*11)%200),
			AccessCount:    (i * 7) % 40,
		}
	}
	return out
}

func TestRanker_EmptyInput(t *testing.T) {
	ranker := intelligence.NewRanker()

	resp := ranker.Rank(&intelligence.RankRequest{Context: intelligence.RankContext{Now: rankNow}})
	require.NotNil(t, resp)
	assert.Empty(t, resp.Ranked)
	assert.NotNil(t, resp.Ranked)
	assert.Equal(t, intelligence.StrategyEmptyInput, resp.Strategy)
	assert.Zero(t, resp.TotalCount)
}

func TestRanker_RanksAndPercentiles(t *testing.T) {
	ranker := intelligence.NewRanker()

	resp := ranker.Rank(&intelligence.RankRequest{
		Memories: summaries(25),
		Context:  intelligence.RankContext{Now: rankNow},
	})
	require.Len(t, resp.Ranked, 25)
	assert.Equal(t, intelligence.StrategyMultiFactor, resp.Strategy)

	seen := make(map[int]bool)
	for i, m := range resp.Ranked {
		assert.Equal(t, i+1, m.Rank)
		assert.False(t, seen[m.Rank])
		seen[m.Rank] = true

		if i > 0 {
			prev := resp.Ranked[i-1]
			assert.GreaterOrEqual(t, prev.Score, m.Score)
			assert.GreaterOrEqual(t, prev.Percentile, m.Percentile)
		}

		b := m.Breakdown
		assert.InDelta(t, m.Score, b.RecallComponent+b.TemporalComponent+b.AccessComponent+b.TypeComponent, 1e-9)
		assert.GreaterOrEqual(t, m.Score, 0.0)
		assert.LessOrEqual(t, m.Score, 100.0)
	}

	assert.Equal(t, 96, resp.Ranked[0].Percentile)
	assert.Equal(t, 0, resp.Ranked[24].Percentile)
}

func TestRanker_Idempotent(t *testing.T) {
	ranker := intelligence.NewRanker()
	req := &intelligence.RankRequest{
		Memories: summaries(12),
		Context:  intelligence.RankContext{Query: "q", SourceAgent: "orchestrator", Now: rankNow},
	}

	first, err := json.Marshal(ranker.Rank(req))
	require.NoError(t, err)
	second, err := json.Marshal(ranker.Rank(req))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestRanker_ZeroNowUsesClock(t *testing.T) {
	ranker := intelligence.NewRanker(intelligence.WithClock(func() time.Time { return rankNow }))

	resp := ranker.Rank(&intelligence.RankRequest{
		Memories: []intelligence.MemorySummary{{ID: "a", MemoryType: "plan", RecallPriority: 50, CreatedAt: rankNow}},
	})
	assert.Equal(t, rankNow, resp.Context.Now)
	assert.InDelta(t, 100.0, resp.Ranked[0].Breakdown.TemporalDecayScore, 1e-9)
}

// An old memory with maximal recall priority against a fresh one with a
// quarter of it, same type and no accesses.
func TestRanker_OldHighPriorityVersusFreshLowPriority(t *testing.T) {
	ranker := intelligence.NewRanker()

	resp := ranker.Rank(&intelligence.RankRequest{
		Memories: []intelligence.MemorySummary{
			{ID: "B", MemoryType: "decision", RecallPriority: 25, CreatedAt: rankNow},
			{ID: "A", MemoryType: "decision", RecallPriority: 100, CreatedAt: rankNow.AddDate(0, 0, -60)},
		},
		Context: intelligence.RankContext{Now: rankNow},
	})
	require.Len(t, resp.Ranked, 2)

	typeTerm := 80.0 / 100 * 15
	byID := map[string]intelligence.RankedMemory{}
	for _, m := range resp.Ranked {
		byID[m.ID] = m
	}

	a, b := byID["A"], byID["B"]
	assert.InDelta(t, 25.0, a.Breakdown.TemporalDecayScore, 1e-9)
	assert.InDelta(t, 5.0, a.Breakdown.TemporalComponent, 1e-9)
	assert.InDelta(t, 50.0+5.0+typeTerm, a.Score, 1e-9)

	assert.InDelta(t, 100.0, b.Breakdown.TemporalDecayScore, 1e-9)
	assert.InDelta(t, 20.0, b.Breakdown.TemporalComponent, 1e-9)
	assert.InDelta(t, 12.5+20.0+typeTerm, b.Score, 1e-9)

	assert.Equal(t, "A", resp.Ranked[0].ID)
	assert.Equal(t, 50, resp.Ranked[0].Percentile)
}

func TestRanker_SourceAgentPresets(t *testing.T) {
	ranker := intelligence.NewRanker()
	memories := []intelligence.MemorySummary{
		{ID: "plan", MemoryType: "plan", RecallPriority: 50, CreatedAt: rankNow},
		{ID: "lesson", MemoryType: "lesson", RecallPriority: 50, CreatedAt: rankNow},
	}

	defaults := ranker.Rank(&intelligence.RankRequest{Memories: memories, Context: intelligence.RankContext{Now: rankNow}})
	assert.Equal(t, "lesson", defaults.Ranked[0].ID)

	orchestrator := ranker.Rank(&intelligence.RankRequest{
		Memories: memories,
		Context:  intelligence.RankContext{SourceAgent: "orchestrator", Now: rankNow},
	})
	assert.Equal(t, "plan", orchestrator.Ranked[0].ID)
	assert.Equal(t, 95.0, orchestrator.Ranked[0].Breakdown.TypeWeight)
}

func TestTypeWeights(t *testing.T) {
	weights := intelligence.NewTypeWeights()

	assert.Equal(t, intelligence.DefaultTypeWeight, weights.Weight("something_new", ""))
	assert.Equal(t, 95.0, weights.Weight("campaign_result", "email-agent"))
	assert.Equal(t, 60.0, weights.Weight("campaign_result", "unknown-agent"))
	assert.Equal(t, 85.0, weights.Weight("lesson", "email-agent"))
	assert.Equal(t, []string{"content-agent", "email-agent", "orchestrator"}, weights.Presets())

	weights.SetDefault("something_new", 150)
	assert.Equal(t, 100.0, weights.Weight("something_new", ""))

	weights.SetPreset("audit-agent", "audit_log", 90)
	assert.Equal(t, 90.0, weights.Weight("audit_log", "audit-agent"))
}

func TestRanker_AccessCountRaisesScore(t *testing.T) {
	ranker := intelligence.NewRanker()

	resp := ranker.Rank(&intelligence.RankRequest{
		Memories: []intelligence.MemorySummary{
			{ID: "cold", MemoryType: "step", RecallPriority: 40, CreatedAt: rankNow},
			{ID: "hot", MemoryType: "step", RecallPriority: 40, CreatedAt: rankNow, AccessCount: 99},
		},
		Context: intelligence.RankContext{Now: rankNow},
	})

	assert.Equal(t, "hot", resp.Ranked[0].ID)
	assert.InDelta(t, 66.6/100*15, resp.Ranked[0].Breakdown.AccessComponent, 1e-9)
	assert.Zero(t, resp.Ranked[1].Breakdown.AccessComponent)
}

func TestRanker_TiesKeepInputOrder(t *testing.T) {
	ranker := intelligence.NewRanker()
	memories := []intelligence.MemorySummary{
		{ID: "first", MemoryType: "step", RecallPriority: 30, CreatedAt: rankNow},
		{ID: "second", MemoryType: "step", RecallPriority: 30, CreatedAt: rankNow},
	}

	resp := ranker.Rank(&intelligence.RankRequest{Memories: memories, Context: intelligence.RankContext{Now: rankNow}})
	assert.Equal(t, "first", resp.Ranked[0].ID)
	assert.Equal(t, "second", resp.Ranked[1].ID)
}

func TestSortByFactor(t *testing.T) {
	ranker := intelligence.NewRanker()
	resp := ranker.Rank(&intelligence.RankRequest{
		Memories: []intelligence.MemorySummary{
			{ID: "old-strong", MemoryType: "step", RecallPriority: 90, CreatedAt: rankNow.AddDate(0, 0, -90)},
			{ID: "new-weak", MemoryType: "step", RecallPriority: 10, CreatedAt: rankNow},
		},
		Context: intelligence.RankContext{Now: rankNow},
	})
	require.Equal(t, "old-strong", resp.Ranked[0].ID)

	byTemporal := intelligence.SortByFactor(resp.Ranked, intelligence.FactorTemporal)
	assert.Equal(t, "new-weak", byTemporal[0].ID)
	assert.Equal(t, 2, byTemporal[0].Rank, "original rank is kept")

	// The input slice is untouched.
	assert.Equal(t, "old-strong", resp.Ranked[0].ID)

	byUnknown := intelligence.SortByFactor(resp.Ranked, intelligence.Factor("bogus"))
	assert.Equal(t, "old-strong", byUnknown[0].ID)
}

func TestFilterByThreshold(t *testing.T) {
	ranked := []intelligence.RankedMemory{
		{MemorySummary: intelligence.MemorySummary{ID: "a"}, Score: 80},
		{MemorySummary: intelligence.MemorySummary{ID: "b"}, Score: 50},
		{MemorySummary: intelligence.MemorySummary{ID: "c"}, Score: 49.9},
	}

	filtered := intelligence.FilterByThreshold(ranked, 50)
	require.Len(t, filtered, 2)
	assert.Equal(t, "a", filtered[0].ID)
	assert.Equal(t, "b", filtered[1].ID)

	assert.Empty(t, intelligence.FilterByThreshold(ranked, 99))
}

func TestGetStats(t *testing.T) {
	assert.Equal(t, intelligence.Stats{}, intelligence.GetStats(nil))

	ranked := []intelligence.RankedMemory{
		{Score: 95}, {Score: 80}, {Score: 61}, {Score: 20}, {Score: 19.9}, {Score: 100},
	}
	stats := intelligence.GetStats(ranked)

	assert.Equal(t, 6, stats.Count)
	assert.InDelta(t, (95+80+61+20+19.9+100)/6.0, stats.Mean, 1e-9)
	assert.InDelta(t, (61+80)/2.0, stats.Median, 1e-9)
	assert.Equal(t, 19.9, stats.Min)
	assert.Equal(t, 100.0, stats.Max)
	assert.Equal(t, [5]int{1, 1, 0, 1, 3}, stats.Distribution)
}
