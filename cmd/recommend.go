package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spigell/gigboard/internal/ai"
	"github.com/spigell/gigboard/internal/ai/gemini"
	"github.com/spigell/gigboard/internal/backend"
	"github.com/spigell/gigboard/internal/filtering"
	"github.com/spigell/gigboard/internal/logger"
	"github.com/spigell/gigboard/internal/marketplace"
	"github.com/spigell/gigboard/internal/recommend"
	"github.com/spigell/gigboard/internal/scheduler"
	"github.com/spigell/gigboard/internal/secrets"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	PromptShow                = "Show recommendations"
	PromptExit                = "Exit"
	PromptBack                = "back"
	PromptReportByCategories  = "Report by categories"
	PromptManualDismiss       = "Dismiss jobs in manual mode"
	PromptAppendToExcludeFile = "Dismiss all jobs (append to exclude file)"
	PromptJobsToFile          = "Dump jobs to file"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptShow, PromptReportByCategories, PromptManualDismiss, PromptAppendToExcludeFile, PromptJobsToFile, PromptExit},
}

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Rank open jobs for a worker profile",
	Run: func(cmd *cobra.Command, _ []string) {
		runRecommend(cmd)
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().BoolP("yes", "y", false, "print recommendations and exit without asking")
	recommendCmd.Flags().BoolP("do-not-exclude-applied", "f", false, "do not exclude jobs if already applied")
	recommendCmd.Flags().IntP("limit", "l", 0, "how many jobs to recommend (default from weights, 5)")
	recommendCmd.Flags().StringP("exclude-file", "e", "", "special file with jobs to exclude. Default is unset.")
	recommendCmd.Flags().StringP("schedule", "s", "", "cron schedule for watch mode, e.g. \"@every 15m\"")

	viper.BindPFlag("recommend.limit", recommendCmd.Flags().Lookup("limit"))
	viper.BindPFlag("recommend.exclude-file", recommendCmd.Flags().Lookup("exclude-file"))
	viper.BindPFlag("recommend.schedule", recommendCmd.Flags().Lookup("schedule"))
}

// recommender holds everything needed to produce one round of recommendations.
type recommender struct {
	config        *RecommendConfig
	api           *backend.Client
	scorer        *recommend.Scorer
	logger        *zap.Logger
	ignoreApplied bool
	matcher       ai.Matcher
	// aiModel is the model the matcher actually talks to, defaults included.
	aiModel string
}

func runRecommend(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the gigboard recommender", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config.Recommend, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	api, err := newBackend(config.Backend, logger)
	if err != nil {
		logger.Fatal("creating a backend client", zap.Error(err))
	}

	rc := config.Recommend
	if rc.UserID != "" {
		if _, err := uuid.Parse(rc.UserID); err != nil {
			logger.Warn("user id does not look like a uuid", zap.String("user_id", rc.UserID), zap.Error(err))
		}
	}

	r := &recommender{
		config:        rc,
		api:           api,
		scorer:        recommend.NewScorer(rc.Weights),
		logger:        logger,
		ignoreApplied: strings.EqualFold(cmd.Flag("do-not-exclude-applied").Value.String(), "true"),
	}

	if rc.AI != nil && rc.AI.Enabled {
		r.matcher, r.aiModel, err = newAIMatcher(ctx, rc.AI, logger)
		if err != nil {
			logger.Warn("skipping AI filter", zap.Error(err))
		}
	}

	if rc.Schedule != "" {
		if err := r.watch(ctx); err != nil {
			logger.Fatal("watch mode", zap.Error(err))
		}
		return
	}

	jobs, err := r.recommend(ctx)
	if err != nil {
		logger.Fatal("building recommendations", zap.Error(err))
	}

	if jobs.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no jobs left to recommend"))
		return
	}

	if cmd.Flag("yes").Value.String() == "true" {
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := r.handleAction(action, jobs); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}

		if jobs.Len() == 0 {
			logger.Info("exiting", zap.String("reason", "all jobs dismissed"))
			return
		}
	}
}

// watch recomputes recommendations on the configured schedule until ctx is cancelled.
func (r *recommender) watch(ctx context.Context) error {
	s, err := scheduler.New(r.config.Schedule, func(ctx context.Context) error {
		_, err := r.recommend(ctx)
		return err
	}, r.logger)
	if err != nil {
		return err
	}

	if err := s.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	r.logger.Info("stopping watch mode", zap.String("reason", context.Cause(ctx).Error()))
	s.Stop()

	return nil
}

// recommend loads jobs and the profile, runs the filters and returns the ranked jobs.
func (r *recommender) recommend(ctx context.Context) (*marketplace.Jobs, error) {
	var (
		jobs    *marketplace.Jobs
		profile *marketplace.Profile
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		jobs, err = r.loadJobs(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		profile, err = r.loadProfile(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.logger.Info("getting open jobs", zap.Int("count", jobs.Len()))

	filtered, err := filtering.Run(ctx, r.logger, r.filters(profile), jobs)
	if err != nil {
		return nil, fmt.Errorf("filtering failed: %w", err)
	}

	ranked := r.scorer.Rank(filtered.Items, profile, r.config.Limit)

	result := &marketplace.Jobs{Items: make([]*marketplace.Job, 0, len(ranked))}
	for i, scored := range ranked {
		r.logger.Info("recommended job", append(logger.JobFields(scored.Job),
			zap.Int("rank", i+1),
			zap.String("title", scored.Job.Title),
			zap.Float64("score", scored.Score),
			zap.Strings("reasons", scored.Reasons),
		)...)
		result.Items = append(result.Items, scored.Job)
	}

	r.logger.Info("recommendations ready", zap.Int("count", result.Len()))

	return result, nil
}

func (r *recommender) loadJobs(ctx context.Context) (*marketplace.Jobs, error) {
	if path := strings.TrimSpace(r.config.JobsFile); path != "" {
		return marketplace.LoadJobsFile(path)
	}
	if r.api == nil {
		return nil, errors.New("either backend.url or recommend.jobs-file is required")
	}

	jobs, err := r.api.Jobs(ctx, marketplace.StatusOpen)
	if err != nil {
		return nil, fmt.Errorf("get open jobs: %w", err)
	}
	return jobs, nil
}

func (r *recommender) loadProfile(ctx context.Context) (*marketplace.Profile, error) {
	if path := strings.TrimSpace(r.config.ProfileFile); path != "" {
		return marketplace.LoadProfileFile(path)
	}
	if r.api == nil {
		return nil, errors.New("either backend.url or recommend.profile-file is required")
	}
	if r.config.UserID == "" {
		return nil, errors.New("recommend.user-id is required (or set GIGBOARD_USER_ID)")
	}

	profile, err := r.api.Profile(ctx, r.config.UserID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return profile, nil
}

func (r *recommender) filters(profile *marketplace.Profile) []filtering.Filter {
	steps := []filtering.Filter{
		r.appliedHistoryFilter(),
		filtering.NewCategories(r.config.ExcludeCategories, r.logger),
		filtering.NewExcludeFile(r.config.ExcludeFile, r.logger),
		r.aiFilter(profile),
	}

	switch {
	case r.api == nil:
		filtering.DisableByName(steps, "applied_history", "no backend configured")
	case r.config.UserID == "":
		filtering.DisableByName(steps, "applied_history", "no user id configured")
	}

	for _, status := range filtering.Describe(steps) {
		r.logger.Debug("filter configured",
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
			zap.String("reason", status.Reason),
			zap.Any("details", status.Details),
		)
	}

	return steps
}

func (r *recommender) appliedHistoryFilter() filtering.Filter {
	deps := &filtering.AppliedHistoryDeps{Logger: r.logger, WorkerID: r.config.UserID}
	if r.api != nil {
		deps.Source = r.api
	}

	return filtering.NewAppliedHistory(&filtering.AppliedHistoryConfig{Ignore: r.ignoreApplied}, deps)
}

func (r *recommender) aiFilter(profile *marketplace.Profile) filtering.Filter {
	cfg := r.config.AI
	if cfg == nil || !cfg.Enabled || r.matcher == nil {
		return filtering.NewAIFit(nil, nil)
	}

	aiConfig := &filtering.AIFitConfig{
		Enabled:         cfg.Enabled,
		MinimumFitScore: cfg.MinimumFitScore,
	}
	geminiCfg := &filtering.AIGeminiConfig{Model: r.aiModel}
	if cfg.Gemini != nil {
		geminiCfg.MaxRetries = cfg.Gemini.MaxRetries
		geminiCfg.MaxLogLength = cfg.Gemini.MaxLogLength
		if geminiCfg.Model == "" {
			geminiCfg.Model = cfg.Gemini.Model
		}
	}
	aiConfig.Gemini = geminiCfg

	return filtering.NewAIFit(aiConfig, &filtering.AIFitDeps{
		Logger:      r.logger,
		Matcher:     r.matcher,
		Profile:     profile,
		ExcludeFile: r.config.ExcludeFile,
	})
}

func (r *recommender) handleAction(action string, jobs *marketplace.Jobs) error {
	switch action {
	case PromptShow:
		for i, job := range jobs.Items {
			fmt.Printf("%d. [%s] %s / %s / %s\n", i+1, job.ID, job.Title, job.Category, job.Location)
		}
		return nil
	case PromptExit:
		r.logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	case PromptManualDismiss:
		return r.manualDismiss(jobs)
	case PromptAppendToExcludeFile:
		return r.dismiss(jobs, jobs)
	case PromptReportByCategories:
		pretty, _ := json.MarshalIndent(jobs.ReportByCategory(), "", "  ")
		r.logger.Info(string(pretty), zap.Int("jobs count", jobs.Len()))
		return nil
	case PromptJobsToFile:
		filename, err := jobs.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		r.logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func (r *recommender) manualDismiss(jobs *marketplace.Jobs) error {
	for jobs.Len() > 0 {
		items := make([]string, 0, jobs.Len()+1)
		for _, job := range jobs.Items {
			items = append(items, fmt.Sprintf("%s %s / %s / %s", job.ID, job.Title, job.Category, job.Location))
		}

		jobPrompt := promptui.Select{
			Label: "Choose a job to dismiss and press ENTER",
			Items: append(items, PromptBack),
		}

		_, selected, err := jobPrompt.Run()
		if err != nil {
			return err
		}

		if selected == PromptBack {
			return nil
		}

		jobID := strings.Split(selected, " ")[0]
		job := jobs.FindByID(jobID)
		if job == nil {
			return fmt.Errorf("there is no such job id %s", jobID)
		}

		if err := r.dismiss(jobs, &marketplace.Jobs{Items: []*marketplace.Job{job}}); err != nil {
			return err
		}
	}

	return nil
}

// dismiss records selected in the exclude file and drops them from jobs.
func (r *recommender) dismiss(jobs, selected *marketplace.Jobs) error {
	excludeFile := strings.TrimSpace(r.config.ExcludeFile)
	if excludeFile == "" {
		return errors.New("recommend.exclude-file (or --exclude-file) is required to dismiss jobs")
	}

	excluded, err := marketplace.GetExcludedJobsFromFile(excludeFile)
	if err != nil {
		return err
	}

	dismissed := selected.ToExcluded(marketplace.ExcludeActorUser, "")
	excluded.Append(dismissed)

	if err := excluded.ToFile(excludeFile); err != nil {
		return err
	}

	r.logger.Info("appended to exclude file",
		zap.String("filename", excludeFile),
		zap.Strings("job_ids", dismissed.JobIDs()),
	)

	jobs.Exclude(marketplace.JobIDField, dismissed.JobIDs())
	return nil
}

// newAIMatcher returns the Gemini matcher and the model it resolved to.
func newAIMatcher(ctx context.Context, cfg *AIConfig, log *zap.Logger) (ai.Matcher, string, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, "", fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
	if cfg.Gemini == nil {
		return nil, "", errors.New("gemini configuration is required when ai filter is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, "", fmt.Errorf("%w (set recommend.ai.gemini.api-key-file or GEMINI_API_KEY)", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries,
		logger.WithFields(log, logger.AIFields("gemini", cfg.Gemini.Model)...))
	if err != nil {
		return nil, "", err
	}

	minScore := cfg.MinimumFitScore
	if minScore < 0 {
		minScore = 0
	}

	matcherLogger := logger.WithFields(log,
		append(logger.AIFields("gemini", generator.Model()), zap.Float64("minimum_fit_score", minScore))...)

	matcher := gemini.NewMatcher(generator, minScore, cfg.Gemini.MaxLogLength, matcherLogger)
	matcher.SetPromptOverrides(gemini.PromptOverrides{
		ExtraCriteria:    cfg.Gemini.ExtraCriteria,
		UserInstructions: cfg.Gemini.UserInstructions,
	})

	return matcher, generator.Model(), nil
}
