// Package recommend ranks open jobs for a worker profile.
//
// A job's score is a weighted sum of three independent sub-scores:
// location (0, 0.5 or 1), skills (0..1) and recency (0, 0.5, 1 or 2).
// Scores are only meaningful relative to other jobs in the same call.
package recommend

import (
	"sort"
	"strings"
	"time"

	"github.com/spigell/gigboard/internal/marketplace"
)

const (
	ReasonLocation = "Location match"
	ReasonSkills   = "Skills match"
	ReasonRecent   = "Recently posted"
)

// JobScore is the ranking result for a single job.
type JobScore struct {
	Job     *marketplace.Job
	Score   float64
	Reasons []string
}

type Scorer struct {
	weights Weights
	now     func() time.Time
}

func NewScorer(weights Weights) *Scorer {
	return &Scorer{
		weights: weights.withDefaults(),
		now:     time.Now,
	}
}

// WithClock returns a copy of the scorer that evaluates recency against now.
func (s *Scorer) WithClock(now func() time.Time) *Scorer {
	cp := *s
	if now != nil {
		cp.now = now
	}
	return &cp
}

func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score is total: nil or malformed inputs only reduce the score.
func (s *Scorer) Score(job *marketplace.Job, profile *marketplace.Profile) JobScore {
	result := JobScore{Job: job, Reasons: []string{}}
	if job == nil {
		return result
	}

	// A reason is only given for a part that actually adds to the score.
	location := s.weights.Location * locationScore(job, profile)
	if location > 0 {
		result.Reasons = append(result.Reasons, ReasonLocation)
	}

	skills, matched := s.skillsScore(job, profile)
	skills *= s.weights.Skills
	if matched > 0 && skills > 0 {
		result.Reasons = append(result.Reasons, ReasonSkills)
	}

	recency := s.recencyScore(job)
	if recency > s.weights.RecentReasonAbove && s.weights.Recency*recency > 0 {
		result.Reasons = append(result.Reasons, ReasonRecent)
	}

	result.Score = location + skills + s.weights.Recency*recency
	return result
}

// Rank scores the open jobs and returns at most limit of them, best first.
// Ties keep input order. A non-positive limit falls back to the default limit.
func (s *Scorer) Rank(jobs []*marketplace.Job, profile *marketplace.Profile, limit int) []JobScore {
	if limit <= 0 {
		limit = s.weights.DefaultLimit
	}

	scored := make([]JobScore, 0, len(jobs))
	for _, job := range jobs {
		if !job.IsOpen() {
			continue
		}
		scored = append(scored, s.Score(job, profile))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}

	return scored
}

func locationScore(job *marketplace.Job, profile *marketplace.Profile) float64 {
	if !profile.HasLocation() {
		return 0
	}

	jobCity, jobRegion := marketplace.ParseLocation(job.Location)
	city := strings.ToLower(strings.TrimSpace(profile.Location.City))
	region := strings.ToLower(strings.TrimSpace(profile.Location.Region))

	switch {
	case city != "" && city == jobCity:
		return 1
	case region != "" && strings.Contains(jobRegion, region):
		return 0.5
	default:
		return 0
	}
}

// skillsScore counts profile skills found anywhere in the job text. Matching is a raw
// substring search, so "art" matches "party".
func (s *Scorer) skillsScore(job *marketplace.Job, profile *marketplace.Profile) (float64, int) {
	if profile == nil || len(profile.Skills) == 0 {
		return 0, 0
	}

	text := strings.ToLower(strings.Join([]string{job.Title, job.Description, job.Category}, " "))

	matched := 0
	for _, skill := range profile.Skills {
		if strings.Contains(text, strings.ToLower(skill)) {
			matched++
		}
	}

	denominator := min(len(profile.Skills), s.weights.SkillSaturation)
	return min(float64(matched)/float64(denominator), 1), matched
}

func (s *Scorer) recencyScore(job *marketplace.Job) float64 {
	if job.CreatedAt.IsZero() {
		return 0
	}

	age := s.now().Sub(job.CreatedAt)
	for _, bucket := range s.weights.RecencyBuckets {
		if age <= bucket.MaxAge {
			return bucket.Points
		}
	}

	return 0
}
