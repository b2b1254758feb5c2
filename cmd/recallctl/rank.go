package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oceanbase/agentrecall-go/pkg/intelligence"
)

// rankResult is printed by the rank command.
type rankResult struct {
	*intelligence.RankResponse

	Stats *intelligence.Stats `json:"stats,omitempty"`
}

func newRankCmd(a *app) *cobra.Command {
	var (
		file        string
		query       string
		sourceAgent string
		sortBy      string
		minScore    float64
		withStats   bool
	)

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank memory summaries read as JSON",
		Long:  longRank,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			var req intelligence.RankRequest
			if err := json.NewDecoder(in).Decode(&req); err != nil {
				return fmt.Errorf("failed to decode rank request: %w", err)
			}
			if query != "" {
				req.Context.Query = query
			}
			if sourceAgent != "" {
				req.Context.SourceAgent = sourceAgent
			}

			resp := intelligence.NewRanker().Rank(&req)
			if cmd.Flags().Changed("min-score") {
				resp.Ranked = intelligence.FilterByThreshold(resp.Ranked, minScore)
			}
			if sortBy != "" {
				resp.Ranked = intelligence.SortByFactor(resp.Ranked, intelligence.Factor(sortBy))
			}

			result := rankResult{RankResponse: resp}
			if withStats {
				stats := intelligence.GetStats(resp.Ranked)
				result.Stats = &stats
			}

			a.logger.Debug("ranked memories", "count", resp.TotalCount, "strategy", resp.Strategy)

			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "rank request JSON file, - for stdin")
	cmd.Flags().StringVar(&query, "query", "", "override the request query")
	cmd.Flags().StringVar(&sourceAgent, "agent", "", "override the requesting agent")
	cmd.Flags().StringVar(&sortBy, "sort-by", "", "re-sort by score, recall, temporal, access or type")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "drop memories scoring below this")
	cmd.Flags().BoolVar(&withStats, "stats", false, "include score statistics")

	return cmd
}

var longRank = `
Rank memory summaries without touching the database.

The input is a JSON object:

  {"memories": [{"id": "1", "memoryType": "lesson", "recallPriority": 72,
    "createdAt": "2026-05-01T00:00:00Z", "accessCount": 3}],
   "context": {"query": "pricing", "sourceAgent": "orchestrator"}}

Examples:
  recallctl rank -f summaries.json --sort-by temporal --stats
`
