package recommend

import "time"

// Weights holds the tuning constants of the scorer.
// The defaults are product-tuned; change them only with product input.
type Weights struct {
	Location float64 `mapstructure:"location"`
	Skills   float64 `mapstructure:"skills"`
	Recency  float64 `mapstructure:"recency"`

	// SkillSaturation is the number of matched skills that yields the full skills sub-score.
	SkillSaturation int `mapstructure:"skill-saturation"`

	// Recency buckets, checked in order. A job older than the last bucket scores zero.
	RecencyBuckets []RecencyBucket `mapstructure:"recency-buckets"`

	// RecentReasonAbove is the recency sub-score that must be exceeded to add ReasonRecent.
	RecentReasonAbove float64 `mapstructure:"recent-reason-above"`

	DefaultLimit int `mapstructure:"default-limit"`
}

type RecencyBucket struct {
	MaxAge time.Duration `mapstructure:"max-age"`
	Points float64       `mapstructure:"points"`
}

func DefaultWeights() Weights {
	return Weights{
		Location:        3,
		Skills:          4,
		Recency:         1,
		SkillSaturation: 5,
		RecencyBuckets: []RecencyBucket{
			{MaxAge: 24 * time.Hour, Points: 2},
			{MaxAge: 72 * time.Hour, Points: 1},
			{MaxAge: 168 * time.Hour, Points: 0.5},
		},
		RecentReasonAbove: 1,
		DefaultLimit:      5,
	}
}

// withDefaults replaces every zero or negative value with its DefaultWeights counterpart,
// field by field.
func (w Weights) withDefaults() Weights {
	def := DefaultWeights()

	if w.Location <= 0 {
		w.Location = def.Location
	}
	if w.Skills <= 0 {
		w.Skills = def.Skills
	}
	if w.Recency <= 0 {
		w.Recency = def.Recency
	}
	if w.SkillSaturation <= 0 {
		w.SkillSaturation = def.SkillSaturation
	}
	if len(w.RecencyBuckets) == 0 {
		w.RecencyBuckets = def.RecencyBuckets
	}
	if w.RecentReasonAbove <= 0 {
		w.RecentReasonAbove = def.RecentReasonAbove
	}
	if w.DefaultLimit <= 0 {
		w.DefaultLimit = def.DefaultLimit
	}

	return w
}
