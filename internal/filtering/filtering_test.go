package filtering

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spigell/gigboard/internal/ai"
	"github.com/spigell/gigboard/internal/marketplace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func testJobs() *marketplace.Jobs {
	return &marketplace.Jobs{Items: []*marketplace.Job{
		{ID: "j1", Title: "Fix sink", Category: "Plumbing"},
		{ID: "j2", Title: "Move sofa", Category: "moving"},
		{ID: "j3", Title: "Trim hedge", Category: "gardening"},
		{ID: "j4", Title: "Paint room", Category: "painting"},
	}}
}

func ids(jobs *marketplace.Jobs) []string {
	out := make([]string, 0, jobs.Len())
	for _, j := range jobs.Items {
		out = append(out, j.ID)
	}
	return out
}

type fakeApplied struct {
	ids      []string
	err      error
	workerID string
}

func (f *fakeApplied) AppliedJobIDs(_ context.Context, workerID string) ([]string, error) {
	f.workerID = workerID
	return f.ids, f.err
}

type fakeMatcher struct {
	verdicts map[string]*ai.FitAssessment
	errs     map[string]error
}

func (m *fakeMatcher) Evaluate(_ context.Context, _ *marketplace.Profile, job *marketplace.Job) (*ai.FitAssessment, error) {
	if err := m.errs[job.ID]; err != nil {
		return nil, err
	}
	if v, ok := m.verdicts[job.ID]; ok {
		return v, nil
	}
	return &ai.FitAssessment{Fit: true, Score: 1}, nil
}

func TestAppliedHistory(t *testing.T) {
	source := &fakeApplied{ids: []string{"j2", "j9"}}
	f := NewAppliedHistory(nil, &AppliedHistoryDeps{Source: source, WorkerID: "w1", Logger: zap.NewNop()})
	require.NoError(t, f.Validate())

	jobs, info, err := f.Apply(context.Background(), testJobs())
	require.NoError(t, err)

	assert.Equal(t, "w1", source.workerID)
	assert.Equal(t, []string{"j1", "j3", "j4"}, ids(jobs))
	assert.Equal(t, Step{Initial: 4, Dropped: 1, Left: 3}, info)
}

func TestAppliedHistoryIgnoreAndErrors(t *testing.T) {
	source := &fakeApplied{ids: []string{"j1"}}
	f := NewAppliedHistory(&AppliedHistoryConfig{Ignore: true}, &AppliedHistoryDeps{Source: source, WorkerID: "w1", Logger: zap.NewNop()})

	jobs, info, err := f.Apply(context.Background(), testJobs())
	require.NoError(t, err)
	assert.Equal(t, 4, jobs.Len())
	assert.Zero(t, info.Dropped)
	assert.Equal(t, "false", f.(statusProvider).Status().Details["exclude_applied"])

	backendErr := errors.New("backend down")
	f = NewAppliedHistory(nil, &AppliedHistoryDeps{Source: &fakeApplied{err: backendErr}, WorkerID: "w1", Logger: zap.NewNop()})
	_, _, err = f.Apply(context.Background(), testJobs())
	assert.ErrorIs(t, err, backendErr)

	assert.Error(t, NewAppliedHistory(nil, nil).Validate())
	assert.Error(t, NewAppliedHistory(nil, &AppliedHistoryDeps{Source: source, Logger: zap.NewNop()}).Validate())
}

func TestCategories(t *testing.T) {
	f := NewCategories([]string{" MOVING ", "plumbing", ""}, nil)

	jobs, info, err := f.Apply(context.Background(), testJobs())
	require.NoError(t, err)
	assert.Equal(t, []string{"j3", "j4"}, ids(jobs))
	assert.Equal(t, Step{Initial: 4, Dropped: 2, Left: 2}, info)
	assert.Equal(t, "moving,plumbing", f.(statusProvider).Status().Details["categories"])

	jobs, info, err = NewCategories(nil, nil).Apply(context.Background(), testJobs())
	require.NoError(t, err)
	assert.Equal(t, 4, jobs.Len())
	assert.Zero(t, info.Dropped)
}

func TestExcludeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dismissed.json")

	f := NewExcludeFile(path, nil)
	jobs, info, err := f.Apply(context.Background(), testJobs())
	require.NoError(t, err, "missing file means nothing is excluded")
	assert.Equal(t, 4, jobs.Len())
	assert.Zero(t, info.Dropped)

	dismissed := &marketplace.ExcludedJobs{Items: []*marketplace.ExcludedJob{{ID: "j1"}, {ID: "j4"}}}
	require.NoError(t, dismissed.ToFile(path))

	jobs, info, err = f.Apply(context.Background(), testJobs())
	require.NoError(t, err)
	assert.Equal(t, []string{"j2", "j3"}, ids(jobs))
	assert.Equal(t, 2, info.Dropped)
}

func TestAIFit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dismissed.json")
	matcher := &fakeMatcher{
		verdicts: map[string]*ai.FitAssessment{
			"j2": {Fit: false, Score: 0.1, Reason: "needs a van"},
			"j3": {Fit: true, Score: 0.8, Reason: "garden work", Message: "Hi"},
		},
		errs: map[string]error{"j4": errors.New("quota exceeded")},
	}

	f := NewAIFit(
		&AIFitConfig{Enabled: true, MinimumFitScore: 0.5, Gemini: &AIGeminiConfig{Model: "gemini-2.5-pro"}},
		&AIFitDeps{Logger: zap.NewNop(), Matcher: matcher, Profile: &marketplace.Profile{ID: "w1"}, ExcludeFile: path},
	)
	require.True(t, f.IsEnabled())
	require.NoError(t, f.Validate())

	jobs, info, err := f.Apply(context.Background(), testJobs())
	require.NoError(t, err)

	assert.Equal(t, []string{"j1", "j3", "j4"}, ids(jobs))
	assert.Equal(t, Step{Initial: 4, Dropped: 1, Left: 3}, info)
	assert.Equal(t, 0.8, jobs.FindByID("j3").AI.Score)
	assert.Equal(t, "quota exceeded", jobs.FindByID("j4").AI.Error)

	excluded, err := marketplace.GetExcludedJobsFromFile(path)
	require.NoError(t, err)
	require.Len(t, excluded.Items, 1)
	assert.Equal(t, "j2", excluded.Items[0].ID)
	assert.Equal(t, marketplace.ExcludeActorAI, excluded.Items[0].Actor)
	assert.Equal(t, "needs a van", excluded.Items[0].Reason)
}

func TestAIFitValidate(t *testing.T) {
	f := NewAIFit(nil, nil)
	assert.False(t, f.IsEnabled())
	assert.Equal(t, "disabled in config", f.(statusProvider).Status().Reason)

	deps := &AIFitDeps{Logger: zap.NewNop(), Matcher: &fakeMatcher{}, Profile: &marketplace.Profile{}}
	assert.Error(t, NewAIFit(&AIFitConfig{Enabled: true}, deps).Validate())
	assert.Error(t, NewAIFit(&AIFitConfig{Enabled: true, Gemini: &AIGeminiConfig{}}, deps).Validate())
	assert.Error(t, NewAIFit(&AIFitConfig{Enabled: true, Gemini: &AIGeminiConfig{Model: "m"}}, &AIFitDeps{Logger: zap.NewNop()}).Validate())
}

func TestRun(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	steps := []Filter{
		NewCategories([]string{"moving"}, nil),
		NewAIFit(nil, nil),
		NewAppliedHistory(nil, &AppliedHistoryDeps{Source: &fakeApplied{ids: []string{"j1"}}, WorkerID: "w1", Logger: zap.NewNop()}),
	}

	jobs, err := Run(context.Background(), zap.New(core), steps, testJobs())
	require.NoError(t, err)
	assert.Equal(t, []string{"j3", "j4"}, ids(jobs))

	assert.Equal(t, 2, logs.FilterMessage("filter step").Len())
	assert.Equal(t, 1, logs.FilterMessage("filter disabled").Len())

	statuses := Describe(steps)
	require.Len(t, statuses, 3)
	assert.Equal(t, "categories", statuses[0].Name)
	assert.False(t, statuses[1].Enabled)
	assert.True(t, statuses[2].Enabled)
}

func TestRunValidatesBeforeApplying(t *testing.T) {
	source := &fakeApplied{}
	steps := []Filter{
		NewAppliedHistory(nil, &AppliedHistoryDeps{Source: source, WorkerID: "w1", Logger: zap.NewNop()}),
		NewAIFit(&AIFitConfig{Enabled: true}, &AIFitDeps{}),
	}

	_, err := Run(context.Background(), nil, steps, testJobs())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ai_fit")
	assert.Empty(t, source.workerID, "no step runs when validation fails")

	DisableByName(steps, "ai_fit", "no api key")
	jobs, err := Run(context.Background(), nil, steps, testJobs())
	require.NoError(t, err)
	assert.Equal(t, 4, jobs.Len())
	assert.Equal(t, "no api key", Describe(steps)[1].Reason)
}
