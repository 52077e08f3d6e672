package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"pcareport/internal/infrastructure"
)

// Runner executes stages in order and stops at the first failure.
type Runner struct {
	stages []Stage
}

// NewRunner creates a runner for the given stages.
func NewRunner(stages ...Stage) *Runner {
	return &Runner{stages: stages}
}

// Stages returns the IDs of the runner's stages in order.
func (r *Runner) Stages() []string {
	ids := make([]string, len(r.stages))
	for i, s := range r.stages {
		ids[i] = s.ID()
	}
	return ids
}

// Run executes every stage. Each stage gets its own span and duration
// metric, and its outcome is recorded in the manifest. The manifest is
// finished and saved whether or not the run succeeds.
func (r *Runner) Run(ctx context.Context, state *State) (err error) {
	ctx = infrastructure.WithRunID(ctx, state.RunID)
	tracer := r.tracer(state)
	logger := infrastructure.WithComponent(state.Logger, "analysis")

	ctx, runSpan := tracer.Start(ctx, "analysis.run",
		trace.WithAttributes(attribute.String("run.id", state.RunID)))
	defer func() {
		if err != nil {
			runSpan.RecordError(err)
			runSpan.SetStatus(codes.Error, err.Error())
		}
		runSpan.End()

		state.Manifest.Finish()
		if state.Paths != nil {
			if saveErr := state.Manifest.Save(state.Paths.ManifestFile); saveErr != nil && err == nil {
				err = fmt.Errorf("save manifest: %w", saveErr)
			}
		}
	}()

	for i, stage := range r.stages {
		if err := ctx.Err(); err != nil {
			state.Manifest.RecordStageFailure(stage.ID(), err)
			return err
		}

		logger.InfoContext(ctx, "Stage started",
			slog.String("stage", stage.ID()),
			slog.Int("number", i+1),
			slog.Int("total", len(r.stages)))

		if err := r.runStage(ctx, tracer, state, stage); err != nil {
			logger.ErrorContext(ctx, "Stage failed",
				slog.String("stage", stage.ID()),
				slog.String("error", err.Error()))
			return fmt.Errorf("stage %s: %w", stage.ID(), err)
		}
	}

	logger.InfoContext(ctx, "Analysis completed", slog.Int("stages", len(r.stages)))
	return nil
}

func (r *Runner) runStage(ctx context.Context, tracer trace.Tracer, state *State, stage Stage) error {
	ctx, span := tracer.Start(ctx, stage.ID(),
		trace.WithAttributes(
			attribute.String("stage.id", stage.ID()),
			attribute.String("stage.name", stage.Name()),
		))
	defer span.End()

	state.Manifest.RecordStageStart(stage.ID(), stage.Name())
	start := time.Now()

	err := stage.Execute(ctx, state)

	elapsed := time.Since(start)
	metadata := state.takeMetadata()
	if state.Telemetry != nil {
		state.Telemetry.RecordStage(ctx, stage.ID(), elapsed.Seconds(), err != nil)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		state.Manifest.RecordStageFailure(stage.ID(), err)
		return err
	}

	for k, v := range metadata {
		if n, ok := v.(int); ok {
			span.SetAttributes(attribute.Int(k, n))
		}
	}
	span.SetStatus(codes.Ok, "")
	state.Manifest.RecordStageCompletion(stage.ID(), metadata)
	state.Logger.DebugContext(ctx, "Stage completed",
		slog.String("stage", stage.ID()),
		slog.Duration("duration", elapsed))
	return nil
}

func (r *Runner) tracer(state *State) trace.Tracer {
	if state.Telemetry != nil && state.Telemetry.Tracer != nil {
		return state.Telemetry.Tracer
	}
	return tracenoop.NewTracerProvider().Tracer("pcareport")
}
