package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oceanbase/agentrecall-go/pkg/core"
)

func newRecordCmd(a *app) *cobra.Command {
	var (
		event        core.AgentEvent
		eventType    string
		data         string
		metadata     string
		linkTo       string
		relationship string
		strength     float64
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record an agent event as a memory",
		Long:  longRecord,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if event.Data, err = parseObject("data", data); err != nil {
				return err
			}
			if event.Metadata, err = parseObject("metadata", metadata); err != nil {
				return err
			}
			event.EventType = core.EventType(eventType)

			return a.withClient(cmd, func(ctx context.Context, client *core.Client) (interface{}, error) {
				if linkTo == "" {
					return client.Bridge().RecordEvent(ctx, &event)
				}

				result, err := client.Bridge().LinkEventToMemory(ctx, &core.LinkEventRequest{
					Event:        &event,
					MemoryID:     linkTo,
					Relationship: core.Relationship(relationship),
					Strength:     strength,
				})
				if err != nil {
					if result != nil {
						a.logger.Warn("event recorded without its link", "memory", result.MemoryID, "target", linkTo)
					}
					return nil, err
				}
				return result, nil
			})
		},
	}

	cmd.Flags().StringVar(&event.WorkspaceID, "workspace", "", "workspace id")
	cmd.Flags().StringVar(&event.Agent, "agent", "", "reporting agent")
	cmd.Flags().StringVar(&eventType, "type", string(core.EventOutcome), "outcome, decision, uncertainty, error, lesson or warning")
	cmd.Flags().StringVar(&event.Description, "description", "", "what happened")
	cmd.Flags().StringVar(&data, "data", "", "JSON event data")
	cmd.Flags().Float64Var(&event.Importance, "importance", 0, "importance (default 50)")
	cmd.Flags().Float64Var(&event.Confidence, "confidence", 0, "confidence (default 70)")
	cmd.Flags().StringSliceVar(&event.Keywords, "keywords", nil, "keywords")
	cmd.Flags().StringVar(&event.Source, "source", "", "provenance (default the agent)")
	cmd.Flags().StringVar(&event.UncertaintyNotes, "notes", "", "uncertainty notes")
	cmd.Flags().StringVar(&metadata, "metadata", "", "JSON metadata object")
	cmd.Flags().StringSliceVar(&event.RelatedMemories, "related", nil, "memories the event supports")
	cmd.Flags().StringVar(&linkTo, "link-to", "", "also link the event to this memory")
	cmd.Flags().StringVar(&relationship, "relationship", string(core.RelationshipRelated), "relationship for --link-to")
	cmd.Flags().Float64Var(&strength, "strength", 70, "strength for --link-to")

	return cmd
}

func newContextCmd(a *app) *cobra.Command {
	var (
		req   core.HistoricalContextRequest
		types []string
	)

	cmd := &cobra.Command{
		Use:   "context",
		Short: "Assemble ranked historical context for a decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.MemoryTypes = memoryTypes(types)

			return a.withClient(cmd, func(ctx context.Context, client *core.Client) (interface{}, error) {
				return client.Bridge().GetHistoricalContext(ctx, &req)
			})
		},
	}

	cmd.Flags().StringVar(&req.WorkspaceID, "workspace", "", "workspace id")
	cmd.Flags().StringVar(&req.Query, "query", "", "what the decision is about")
	cmd.Flags().StringVar(&req.SourceAgent, "agent", "", "requesting agent, selects type weights")
	cmd.Flags().IntVar(&req.Limit, "limit", core.DefaultRetrieveLimit, "maximum memories")
	cmd.Flags().StringSliceVar(&types, "types", nil, "restrict to memory types")

	return cmd
}

func newCheckpointCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Save or resume workflow checkpoints",
	}
	cmd.AddCommand(newCheckpointSaveCmd(a), newCheckpointResumeCmd(a))
	return cmd
}

func newCheckpointSaveCmd(a *app) *cobra.Command {
	var (
		req      core.CheckpointRequest
		state    string
		workflow string
	)

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save a new checkpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if req.State, err = parseObject("state", state); err != nil {
				return err
			}
			if req.Context, err = parseObject("context", workflow); err != nil {
				return err
			}

			return a.withClient(cmd, func(ctx context.Context, client *core.Client) (interface{}, error) {
				return client.Bridge().SaveCheckpoint(ctx, &req)
			})
		},
	}

	cmd.Flags().StringVar(&req.WorkspaceID, "workspace", "", "workspace id")
	cmd.Flags().StringVar(&req.WorkflowID, "workflow", "", "workflow id")
	cmd.Flags().IntVar(&req.CurrentStep, "step", 0, "current step")
	cmd.Flags().IntVar(&req.TotalSteps, "total", 0, "total steps")
	cmd.Flags().StringVar(&state, "state", "", "JSON workflow state")
	cmd.Flags().StringSliceVar(&req.MemoryIDs, "memories", nil, "memories produced so far")
	cmd.Flags().StringVar(&workflow, "context", "", "JSON workflow context")
	cmd.Flags().StringVar(&req.Agent, "agent", "", "agent saving the checkpoint")

	return cmd
}

func newCheckpointResumeCmd(a *app) *cobra.Command {
	var workspace, checkpointID string

	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Print a checkpoint, or null when it cannot be found",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withClient(cmd, func(ctx context.Context, client *core.Client) (interface{}, error) {
				checkpoint, err := client.Bridge().ResumeCheckpoint(ctx, workspace, checkpointID)
				if err != nil {
					return nil, err
				}
				if checkpoint == nil {
					a.logger.Info("checkpoint not found", "checkpoint", checkpointID)
				}
				return checkpoint, nil
			})
		},
	}

	cmd.Flags().StringVar(&workspace, "workspace", "", "workspace id")
	cmd.Flags().StringVar(&checkpointID, "id", "", "checkpoint id")

	return cmd
}

func newMetricsCmd(a *app) *cobra.Command {
	var workspace string

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Summarize a workspace's memories and open signals",
		RunE: func(cmd *cobra.Command, args []string) error {
			if workspace == "" {
				return fmt.Errorf("--workspace is required")
			}
			return a.withClient(cmd, func(ctx context.Context, client *core.Client) (interface{}, error) {
				return client.Bridge().GetMemoryMetrics(ctx, workspace)
			})
		},
	}

	cmd.Flags().StringVar(&workspace, "workspace", "", "workspace id")

	return cmd
}

var longRecord = `
Record an agent event. Errors and warnings are stored as signal memories and
raise an anomaly or uncertainty_high signal.

Examples:
  recallctl record --workspace acme --agent email-agent --type lesson \
    --description "short subjects convert better" --related 1790000000000000000
  recallctl record --workspace acme --agent orchestrator --type outcome \
    --link-to 1790000000000000000 --relationship validates
`
