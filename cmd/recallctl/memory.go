package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/oceanbase/agentrecall-go/pkg/core"
)

func newStoreCmd(a *app) *cobra.Command {
	var (
		req      core.StoreRequest
		kind     string
		content  string
		metadata string
	)

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Store a memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := parseObject("metadata", metadata)
			if err != nil {
				return err
			}
			req.MemoryType = core.MemoryType(kind)
			req.Content = json.RawMessage(content)
			req.Metadata = meta

			return a.withClient(cmd, func(ctx context.Context, client *core.Client) (interface{}, error) {
				return client.Store().Store(ctx, &req)
			})
		},
	}

	cmd.Flags().StringVar(&req.WorkspaceID, "workspace", "", "workspace id")
	cmd.Flags().StringVar(&req.Agent, "agent", "", "agent recording the memory")
	cmd.Flags().StringVar(&kind, "type", "", "memory type")
	cmd.Flags().StringVar(&content, "content", "{}", "JSON content")
	cmd.Flags().Float64Var(&req.Importance, "importance", 50, "importance (0-100)")
	cmd.Flags().Float64Var(&req.Confidence, "confidence", 50, "confidence (0-100)")
	cmd.Flags().StringSliceVar(&req.Keywords, "keywords", nil, "keywords")
	cmd.Flags().StringVar(&req.Source, "source", "", "provenance")
	cmd.Flags().StringVar(&req.UncertaintyNotes, "notes", "", "uncertainty notes")
	cmd.Flags().StringVar(&metadata, "metadata", "", "JSON metadata object")

	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	var workspace, memoryID string

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print one memory, or null when it is missing or redacted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, func(ctx context.Context, client *core.Client) (interface{}, error) {
				return client.Store().Get(ctx, workspace, memoryID)
			})
		},
	}

	cmd.Flags().StringVar(&workspace, "workspace", "", "workspace id")
	cmd.Flags().StringVar(&memoryID, "memory", "", "memory id")

	return cmd
}

func newLinkCmd(a *app) *cobra.Command {
	var (
		req          core.LinkRequest
		relationship string
	)

	cmd := &cobra.Command{
		Use:   "link",
		Short: "Link two memories",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Relationship = core.Relationship(relationship)

			return a.withClient(cmd, func(ctx context.Context, client *core.Client) (interface{}, error) {
				return client.Store().Link(ctx, &req)
			})
		},
	}

	cmd.Flags().StringVar(&req.MemoryID, "from", "", "source memory id")
	cmd.Flags().StringVar(&req.LinkedMemoryID, "to", "", "target memory id")
	cmd.Flags().StringVar(&relationship, "relationship", string(core.RelationshipRelated), "relationship type")
	cmd.Flags().Float64Var(&req.Strength, "strength", 70, "link strength (0-100)")

	return cmd
}

// statusResult is printed by commands that return nothing else.
type statusResult struct {
	Status string `json:"status"`
}

func newSignalCmd(a *app) *cobra.Command {
	var req core.SignalRequest

	cmd := &cobra.Command{
		Use:   "signal",
		Short: "Attach an unresolved signal to a memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, func(ctx context.Context, client *core.Client) (interface{}, error) {
				if err := client.Store().AddSignal(ctx, &req); err != nil {
					return nil, err
				}
				return statusResult{Status: "ok"}, nil
			})
		},
	}

	cmd.Flags().StringVar(&req.WorkspaceID, "workspace", "", "workspace id")
	cmd.Flags().StringVar(&req.MemoryID, "memory", "", "memory id")
	cmd.Flags().StringVar(&req.SignalType, "type", core.SignalTypeAnomaly, "signal type")
	cmd.Flags().Float64Var(&req.SignalValue, "value", 50, "signal value (0-100)")
	cmd.Flags().StringVar(&req.SourceAgent, "source-agent", "", "agent raising the signal")

	return cmd
}

func newResolveCmd(a *app) *cobra.Command {
	var signalID string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a signal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, func(ctx context.Context, client *core.Client) (interface{}, error) {
				if err := client.Store().ResolveSignal(ctx, signalID); err != nil {
					return nil, err
				}
				return statusResult{Status: "resolved"}, nil
			})
		},
	}

	cmd.Flags().StringVar(&signalID, "signal", "", "signal id")

	return cmd
}

func newRedactCmd(a *app) *cobra.Command {
	var workspace, memoryID string

	cmd := &cobra.Command{
		Use:   "redact",
		Short: "Hide a memory from every read",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, func(ctx context.Context, client *core.Client) (interface{}, error) {
				if err := client.Store().Redact(ctx, workspace, memoryID); err != nil {
					return nil, err
				}
				return statusResult{Status: "redacted"}, nil
			})
		},
	}

	cmd.Flags().StringVar(&workspace, "workspace", "", "workspace id")
	cmd.Flags().StringVar(&memoryID, "memory", "", "memory id")

	return cmd
}
