package intelligence_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oceanbase/agentrecall-go/pkg/intelligence"
)

func TestKeywordMatchScore(t *testing.T) {
	content := []byte(`{"text":"Email Campaign reached 40% open rate"}`)
	keywords := []string{"Campaign", "email-metrics"}

	testCases := []struct {
		name  string
		query string
		want  float64
	}{
		{"empty query", "   ", 0},
		{"keyword and content", "campaign", 100},
		{"keyword only", "metrics", 200.0 / 3},
		{"content only", "open", 100.0 / 3},
		{"term contains keyword", "campaigns", 200.0 / 3},
		{"no match", "invoice", 0},
		{"mixed terms", "campaign invoice", 50},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := intelligence.KeywordMatchScore(tc.query, keywords, content)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestKeywordMatchScore_IgnoresBlankKeywords(t *testing.T) {
	got := intelligence.KeywordMatchScore("anything", []string{"", "  "}, nil)
	assert.Zero(t, got)
}
