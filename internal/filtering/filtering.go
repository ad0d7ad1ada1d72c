// Package filtering narrows the job list before ranking.
package filtering

import (
	"context"
	"fmt"

	"github.com/spigell/gigboard/internal/marketplace"
	"go.uber.org/zap"
)

// Filter represents a single filtering step applied to jobs.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate() error
	Apply(ctx context.Context, jobs *marketplace.Jobs) (*marketplace.Jobs, Step, error)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

// statusProvider is implemented by filters that can supply detailed status information.
type statusProvider interface {
	Status() Status
}

// switchable carries the enabled flag shared by all filters.
type switchable struct {
	disabled bool
	reason   string
}

func (s *switchable) Disable(reason string) {
	s.disabled = true
	s.reason = reason
}

func (s *switchable) IsEnabled() bool { return !s.disabled }

func step(initial int, jobs *marketplace.Jobs) Step {
	return Step{Initial: initial, Dropped: initial - jobs.Len(), Left: jobs.Len()}
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, s := range steps {
		if s.Name() == name {
			s.Disable(reason)
		}
	}
}

// Run validates every enabled filter, then applies them in order.
func Run(ctx context.Context, logger *zap.Logger, steps []Filter, jobs *marketplace.Jobs) (*marketplace.Jobs, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, s := range steps {
		if !s.IsEnabled() {
			continue
		}
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name(), err)
		}
	}

	for _, s := range steps {
		if !s.IsEnabled() {
			logger.Info("filter disabled", zap.String("name", s.Name()))
			continue
		}

		next, info, err := s.Apply(ctx, jobs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name(), err)
		}

		logger.Info("filter step",
			zap.String("name", s.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		jobs = next
	}

	return jobs, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, s := range steps {
		if reporter, ok := s.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    s.Name(),
			Enabled: s.IsEnabled(),
		})
	}
	return statuses
}
