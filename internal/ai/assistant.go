// Package ai defines how an external model judges whether a job suits a worker.
package ai

import (
	"context"

	"github.com/spigell/gigboard/internal/marketplace"
)

type FitAssessment struct {
	Fit     bool
	Score   float64
	Reason  string
	Message string
	Raw     string
}

// ToJobAssessment converts the verdict into the form attached to jobs for reports.
func (a *FitAssessment) ToJobAssessment() *marketplace.AIAssessment {
	if a == nil {
		return nil
	}

	return &marketplace.AIAssessment{
		Fit:     a.Fit,
		Score:   a.Score,
		Reason:  a.Reason,
		Message: a.Message,
		Raw:     a.Raw,
	}
}

type Matcher interface {
	Evaluate(ctx context.Context, profile *marketplace.Profile, job *marketplace.Job) (*FitAssessment, error)
}
