package filtering

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spigell/gigboard/internal/ai"
	"github.com/spigell/gigboard/internal/logger"
	"github.com/spigell/gigboard/internal/marketplace"
	"go.uber.org/zap"
)

type AIFitConfig struct {
	Enabled         bool
	MinimumFitScore float64
	Gemini          *AIGeminiConfig
}

// AIGeminiConfig stores Gemini provider configuration.
type AIGeminiConfig struct {
	Model        string
	MaxRetries   int
	MaxLogLength int
}

type AIFitDeps struct {
	Logger  *zap.Logger
	Matcher ai.Matcher
	Profile *marketplace.Profile
	// Jobs rejected by the model are appended here when set.
	ExcludeFile string
}

type aiFitFilter struct {
	switchable
	config *AIFitConfig
	deps   *AIFitDeps
}

// NewAIFit creates the AI-based filtering step. It starts disabled unless cfg enables it.
func NewAIFit(cfg *AIFitConfig, deps *AIFitDeps) Filter {
	if cfg == nil {
		cfg = &AIFitConfig{}
	}

	f := &aiFitFilter{config: cfg, deps: deps}
	if !cfg.Enabled {
		f.Disable("disabled in config")
	}
	return f
}

func (f *aiFitFilter) Name() string { return "ai_fit" }

func (f *aiFitFilter) Validate() error {
	if f.deps == nil || f.deps.Matcher == nil {
		return fmt.Errorf("matcher is required when ai filter is enabled")
	}
	if f.deps.Logger == nil {
		return fmt.Errorf("logger is required")
	}
	if f.deps.Profile == nil {
		return fmt.Errorf("profile is required for AI evaluation")
	}
	if f.config.Gemini == nil {
		return fmt.Errorf("gemini configuration is required when ai filter is enabled")
	}
	if strings.TrimSpace(f.config.Gemini.Model) == "" {
		return fmt.Errorf("gemini model is required when ai filter is enabled")
	}
	return nil
}

// Apply asks the matcher about every job. Jobs judged unfit are dropped, jobs that could not be
// evaluated are kept with the error attached.
func (f *aiFitFilter) Apply(ctx context.Context, jobs *marketplace.Jobs) (*marketplace.Jobs, Step, error) {
	initial := jobs.Len()
	approved := make([]*marketplace.Job, 0, initial)
	rejected := &marketplace.ExcludedJobs{}

	for _, job := range jobs.Items {
		if err := ctx.Err(); err != nil {
			return jobs, Step{}, err
		}

		assessment, err := f.deps.Matcher.Evaluate(ctx, f.deps.Profile, job)
		if err != nil {
			f.deps.Logger.Warn("AI evaluation failed", append(logger.JobFields(job), zap.Error(err))...)
			job.AI = &marketplace.AIAssessment{Error: err.Error()}
			approved = append(approved, job)
			continue
		}

		job.AI = assessment.ToJobAssessment()

		if !assessment.Fit {
			f.deps.Logger.Info("job rejected by AI provider", append(logger.JobFields(job),
				zap.Float64("ai_score", assessment.Score),
				zap.String("reason", assessment.Reason),
			)...)
			single := &marketplace.Jobs{Items: []*marketplace.Job{job}}
			rejected.Append(single.ToExcluded(marketplace.ExcludeActorAI, assessment.Reason))
			continue
		}

		f.deps.Logger.Info("job approved by AI", append(logger.JobFields(job), zap.Float64("ai_score", assessment.Score))...)
		approved = append(approved, job)
	}

	jobs.Items = approved

	if err := f.appendToExcludeFile(rejected); err != nil {
		f.deps.Logger.Warn("failed to append rejected jobs to exclude file", zap.Error(err))
	}

	f.deps.Logger.Info("AI filtering completed",
		zap.Int("initial_jobs", initial),
		zap.Int("approved_jobs", len(approved)),
	)

	return jobs, step(initial, jobs), nil
}

func (f *aiFitFilter) appendToExcludeFile(rejected *marketplace.ExcludedJobs) error {
	path := strings.TrimSpace(f.deps.ExcludeFile)
	if path == "" || len(rejected.Items) == 0 {
		return nil
	}

	excluded, err := marketplace.GetExcludedJobsFromFile(path)
	if err != nil {
		return fmt.Errorf("load excluded jobs: %w", err)
	}

	excluded.Append(rejected)

	if err := excluded.ToFile(path); err != nil {
		return fmt.Errorf("write excluded jobs: %w", err)
	}

	f.deps.Logger.Info("rejected jobs appended to exclude file",
		zap.Strings("job_ids", rejected.JobIDs()),
		zap.String("exclude_file", path),
	)

	return nil
}

func (f *aiFitFilter) Status() Status {
	details := map[string]string{
		"minimum_fit_score": fmt.Sprintf("%.2f", f.config.MinimumFitScore),
	}
	if f.config.Gemini != nil {
		details["model"] = f.config.Gemini.Model
		details["max_retries"] = strconv.Itoa(f.config.Gemini.MaxRetries)
		details["max_log_length"] = strconv.Itoa(f.config.Gemini.MaxLogLength)
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
