package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Checkpoint memories are always written with these values.
const (
	checkpointImportance = 95.0
	checkpointConfidence = 100.0
	checkpointSource     = "orchestrator"
)

// CheckpointRequest is the input of Bridge.SaveCheckpoint.
type CheckpointRequest struct {
	WorkspaceID string                 `json:"workspaceId"`
	WorkflowID  string                 `json:"workflowId"`
	CurrentStep int                    `json:"currentStep"`
	TotalSteps  int                    `json:"totalSteps"`
	State       map[string]interface{} `json:"state,omitempty"`
	MemoryIDs   []string               `json:"memoryIds,omitempty"`
	Context     map[string]interface{} `json:"context,omitempty"`

	// Agent defaults to the orchestrator.
	Agent string `json:"agent,omitempty"`
}

// checkpointContent is the content of a checkpoint's plan memory.
type checkpointContent struct {
	CheckpointID string                 `json:"checkpointId"`
	WorkflowID   string                 `json:"workflowId"`
	CurrentStep  int                    `json:"currentStep"`
	TotalSteps   int                    `json:"totalSteps"`
	State        map[string]interface{} `json:"state"`
	MemoryIDs    []string               `json:"memoryIds"`
	Context      map[string]interface{} `json:"context"`
}

// Checkpoint is a workflow's resumable state together with the memory that
// holds it.
type Checkpoint struct {
	checkpointContent

	MemoryID  string    `json:"memoryId"`
	CreatedAt time.Time `json:"createdAt"`
}

// SaveCheckpoint persists a new checkpoint. Checkpoints are never updated
// in place; every call writes a new plan memory.
func (b *Bridge) SaveCheckpoint(ctx context.Context, req *CheckpointRequest) (*Checkpoint, error) {
	const op = "SaveCheckpoint"

	if req == nil {
		return nil, invalidInput(op, "request is required")
	}
	if strings.TrimSpace(req.WorkspaceID) == "" {
		return nil, invalidInput(op, "workspaceId is required")
	}
	if strings.TrimSpace(req.WorkflowID) == "" {
		return nil, invalidInput(op, "workflowId is required")
	}

	data := checkpointContent{
		CheckpointID: fmt.Sprintf("checkpoint_%s_%s", req.WorkflowID, b.store.nextID()),
		WorkflowID:   req.WorkflowID,
		CurrentStep:  req.CurrentStep,
		TotalSteps:   req.TotalSteps,
		State:        req.State,
		MemoryIDs:    req.MemoryIDs,
		Context:      req.Context,
	}
	if data.State == nil {
		data.State = map[string]interface{}{}
	}
	if data.MemoryIDs == nil {
		data.MemoryIDs = []string{}
	}
	if data.Context == nil {
		data.Context = map[string]interface{}{}
	}

	content, err := json.Marshal(data)
	if err != nil {
		return nil, invalidInput(op, "checkpoint state is not serializable: %v", err)
	}

	agent := req.Agent
	if agent == "" {
		agent = checkpointSource
	}

	stored, err := b.store.Store(ctx, &StoreRequest{
		WorkspaceID: req.WorkspaceID,
		MemoryType:  MemoryTypePlan,
		Content:     content,
		Importance:  checkpointImportance,
		Confidence:  checkpointConfidence,
		Keywords:    []string{data.CheckpointID},
		Source:      checkpointSource,
		Agent:       agent,
	})
	if err != nil {
		return nil, err
	}
	checkpoint := &Checkpoint{
		checkpointContent: data,
		MemoryID:          stored.MemoryID,
		CreatedAt:         stored.CreatedAt,
	}

	b.logger.Info("checkpoint saved", "workspace", req.WorkspaceID, "workflow", req.WorkflowID, "checkpoint", checkpoint.CheckpointID, "step", req.CurrentStep)

	return checkpoint, nil
}

// ResumeCheckpoint looks a checkpoint up by retrieving the single best plan
// memory for the checkpoint id used as a query. It returns nil when that
// memory does not match the id at all or does not hold a checkpoint.
//
// The lookup is a ranked retrieval, not a key lookup: only the plan memory
// with the highest recall priority (newest first on ties) is considered.
func (b *Bridge) ResumeCheckpoint(ctx context.Context, workspaceID, checkpointID string) (*Checkpoint, error) {
	const op = "ResumeCheckpoint"

	if strings.TrimSpace(workspaceID) == "" {
		return nil, invalidInput(op, "workspaceId is required")
	}
	if strings.TrimSpace(checkpointID) == "" {
		return nil, invalidInput(op, "checkpointId is required")
	}

	includeRelated := false
	retrieved, err := b.retriever.Retrieve(ctx, &RetrieveRequest{
		WorkspaceID:    workspaceID,
		Query:          checkpointID,
		MemoryTypes:    []MemoryType{MemoryTypePlan},
		Limit:          1,
		IncludeRelated: &includeRelated,
	})
	if err != nil {
		return nil, err
	}
	if len(retrieved.Memories) == 0 || retrieved.Memories[0].KeywordMatchScore == 0 {
		return nil, nil
	}

	memory := retrieved.Memories[0]
	var data checkpointContent
	if err := json.Unmarshal(memory.Content, &data); err != nil || data.CheckpointID == "" {
		b.logger.Warn("plan memory does not hold a checkpoint", "memory", memory.ID, "checkpoint", checkpointID)
		return nil, nil
	}

	return &Checkpoint{
		checkpointContent: data,
		MemoryID:          memory.ID,
		CreatedAt:         memory.CreatedAt,
	}, nil
}
