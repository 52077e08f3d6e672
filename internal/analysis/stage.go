package analysis

import (
	"context"
)

// Stage represents a single step of the analysis
type Stage interface {
	// ID returns the unique identifier for this stage
	ID() string

	// Name returns the human-readable name for this stage
	Name() string

	// Execute runs the stage against the shared run state
	Execute(ctx context.Context, state *State) error
}

// StageStatus represents the outcome of a stage
type StageStatus string

const (
	StageStatusRunning   StageStatus = "running"
	StageStatusCompleted StageStatus = "completed"
	StageStatusFailed    StageStatus = "failed"
)

// Stage IDs in execution order
const (
	StageLoad      = "load"
	StageDescribe  = "describe"
	StageCorrelate = "correlate"
	StagePrep      = "prep"
	StageTidy      = "tidy"
	StageRender    = "render"
	StageExport    = "export"
	StageReport    = "report"
)

// BaseStage provides the identity part of Stage implementations
type BaseStage struct {
	id   string
	name string
}

// NewBaseStage creates a new base stage
func NewBaseStage(id, name string) BaseStage {
	return BaseStage{id: id, name: name}
}

// ID returns the stage ID
func (b BaseStage) ID() string { return b.id }

// Name returns the stage name
func (b BaseStage) Name() string { return b.name }

// stageFunc adapts a function to the Stage interface
type stageFunc struct {
	BaseStage
	fn func(ctx context.Context, state *State) error
}

func (s stageFunc) Execute(ctx context.Context, state *State) error { return s.fn(ctx, state) }

// NewStage creates a stage from a function
func NewStage(id, name string, fn func(ctx context.Context, state *State) error) Stage {
	return stageFunc{BaseStage: NewBaseStage(id, name), fn: fn}
}
