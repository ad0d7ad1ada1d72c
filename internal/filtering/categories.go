package filtering

import (
	"context"
	"sort"
	"strings"

	"github.com/spigell/gigboard/internal/marketplace"
	"go.uber.org/zap"
)

type categoriesFilter struct {
	switchable
	excluded map[string]struct{}
	logger   *zap.Logger
}

// NewCategories creates a filter that removes jobs in the given service categories.
// Categories are compared case-insensitively.
func NewCategories(categories []string, logger *zap.Logger) Filter {
	excluded := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			excluded[c] = struct{}{}
		}
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &categoriesFilter{excluded: excluded, logger: logger}
}

func (f *categoriesFilter) Name() string { return "categories" }

func (f *categoriesFilter) Validate() error { return nil }

func (f *categoriesFilter) Apply(_ context.Context, jobs *marketplace.Jobs) (*marketplace.Jobs, Step, error) {
	initial := jobs.Len()
	if len(f.excluded) == 0 {
		return jobs, step(initial, jobs), nil
	}

	var ids []string
	for _, job := range jobs.Items {
		if _, ok := f.excluded[strings.ToLower(strings.TrimSpace(job.Category))]; ok {
			ids = append(ids, job.ID)
		}
	}

	removed := jobs.Exclude(marketplace.JobIDField, ids)
	if len(removed) > 0 {
		f.logger.Info("excluding jobs by category",
			zap.Strings("excluded_categories", f.categories()),
			zap.Strings("excluded_jobs", removed),
			zap.Int("jobs_left", jobs.Len()),
		)
	}

	return jobs, step(initial, jobs), nil
}

func (f *categoriesFilter) categories() []string {
	out := make([]string, 0, len(f.excluded))
	for c := range f.excluded {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (f *categoriesFilter) Status() Status {
	details := map[string]string{}
	if len(f.excluded) > 0 {
		details["categories"] = strings.Join(f.categories(), ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
