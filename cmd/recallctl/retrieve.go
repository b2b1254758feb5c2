package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/oceanbase/agentrecall-go/pkg/core"
)

func newRetrieveCmd(a *app) *cobra.Command {
	var (
		req       core.RetrieveRequest
		types     []string
		noRelated bool
	)

	cmd := &cobra.Command{
		Use:   "retrieve",
		Short: "Retrieve the memories relevant to a query",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.MemoryTypes = memoryTypes(types)
			includeRelated := !noRelated
			req.IncludeRelated = &includeRelated

			return a.withClient(cmd, func(ctx context.Context, client *core.Client) (interface{}, error) {
				return client.Retriever().Retrieve(ctx, &req)
			})
		},
	}

	cmd.Flags().StringVar(&req.WorkspaceID, "workspace", "", "workspace id")
	cmd.Flags().StringVar(&req.Query, "query", "", "free-text query")
	cmd.Flags().StringSliceVar(&types, "types", nil, "restrict to memory types")
	cmd.Flags().IntVar(&req.Limit, "limit", core.DefaultRetrieveLimit, "page size (max 100)")
	cmd.Flags().IntVar(&req.Offset, "offset", 0, "page offset")
	cmd.Flags().Float64Var(&req.MinImportance, "min-importance", 0, "minimum importance")
	cmd.Flags().Float64Var(&req.MinConfidence, "min-confidence", 0, "minimum confidence")
	cmd.Flags().BoolVar(&noRelated, "no-related", false, "skip linked memories")

	return cmd
}

func newRelatedCmd(a *app) *cobra.Command {
	var (
		req           core.FindRelatedRequest
		relationships []string
	)

	cmd := &cobra.Command{
		Use:   "related",
		Short: "Walk the links of a memory breadth-first",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, r := range relationships {
				req.RelationshipTypes = append(req.RelationshipTypes, core.Relationship(r))
			}

			return a.withClient(cmd, func(ctx context.Context, client *core.Client) (interface{}, error) {
				return client.Retriever().FindRelated(ctx, &req)
			})
		},
	}

	cmd.Flags().StringVar(&req.WorkspaceID, "workspace", "", "workspace id")
	cmd.Flags().StringVar(&req.MemoryID, "memory", "", "root memory id")
	cmd.Flags().StringSliceVar(&relationships, "relationships", nil, "follow only these relationships")
	cmd.Flags().IntVar(&req.MaxDepth, "max-depth", core.DefaultMaxDepth, "maximum depth")
	cmd.Flags().IntVar(&req.LimitPerDepth, "limit-per-depth", core.DefaultLimitPerDepth, "maximum memories per depth")

	return cmd
}

func newSignalsCmd(a *app) *cobra.Command {
	var req core.SignalSearchRequest

	cmd := &cobra.Command{
		Use:   "signals",
		Short: "List memories with unresolved signals, most severe first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, func(ctx context.Context, client *core.Client) (interface{}, error) {
				return client.Retriever().FindWithSignals(ctx, &req)
			})
		},
	}

	cmd.Flags().StringVar(&req.WorkspaceID, "workspace", "", "workspace id")
	cmd.Flags().StringSliceVar(&req.SignalTypes, "types", nil, "restrict to signal types")
	cmd.Flags().IntVar(&req.Limit, "limit", core.DefaultSignalLimit, "maximum signals considered")

	return cmd
}
