package filtering

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spigell/gigboard/internal/marketplace"
	"go.uber.org/zap"
)

const forceFlagSetMsg = "force flag is set"

// AppliedSource lists jobs a worker has already applied to.
type AppliedSource interface {
	AppliedJobIDs(ctx context.Context, workerID string) ([]string, error)
}

type AppliedHistoryConfig struct {
	Ignore bool
}

type AppliedHistoryDeps struct {
	Source   AppliedSource
	WorkerID string
	Logger   *zap.Logger
}

type appliedHistoryFilter struct {
	switchable
	deps   *AppliedHistoryDeps
	ignore bool
}

// NewAppliedHistory creates a filter that removes jobs the worker already applied to.
func NewAppliedHistory(cfg *AppliedHistoryConfig, deps *AppliedHistoryDeps) Filter {
	f := &appliedHistoryFilter{deps: deps}
	if cfg != nil {
		f.ignore = cfg.Ignore
	}
	return f
}

func (f *appliedHistoryFilter) Name() string { return "applied_history" }

func (f *appliedHistoryFilter) Validate() error {
	if f.deps == nil || f.deps.Source == nil {
		return fmt.Errorf("applications source is required")
	}
	if f.deps.WorkerID == "" {
		return fmt.Errorf("worker id is required")
	}
	if f.deps.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	return nil
}

func (f *appliedHistoryFilter) Apply(ctx context.Context, jobs *marketplace.Jobs) (*marketplace.Jobs, Step, error) {
	initial := jobs.Len()
	if f.ignore {
		f.deps.Logger.Info("keeping already applied jobs", zap.String("reason", forceFlagSetMsg))
		return jobs, step(initial, jobs), nil
	}

	applied, err := f.deps.Source.AppliedJobIDs(ctx, f.deps.WorkerID)
	if err != nil {
		return jobs, Step{}, fmt.Errorf("get my applications: %w", err)
	}

	excluded := jobs.Exclude(marketplace.JobIDField, applied)
	if len(excluded) > 0 {
		f.deps.Logger.Info("excluding jobs based on my applications",
			zap.Strings("excluded_jobs", excluded),
			zap.Int("jobs_left", jobs.Len()),
		)
	}

	return jobs, step(initial, jobs), nil
}

func (f *appliedHistoryFilter) Status() Status {
	reason := f.reason
	if f.ignore && reason == "" {
		reason = "skip requested via flag"
	}
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  reason,
		Details: map[string]string{"exclude_applied": strconv.FormatBool(!f.ignore)},
	}
}
