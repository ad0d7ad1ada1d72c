package marketplace

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	JobIDField       = "ID"
	JobCategoryField = "Category"
)

// Status is the lifecycle state of a job posting.
type Status string

const (
	StatusOpen       Status = "open"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

type Jobs struct {
	Items []*Job `json:"items"`
}

type Job struct {
	ID          string    `json:"id,omitempty"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Category    string    `json:"category,omitempty"`
	Budget      float64   `json:"budget,omitempty"`
	HirerID     string    `json:"hirer_id,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	Status      Status    `json:"status,omitempty"`

	AI *AIAssessment `json:"ai,omitempty"`
}

// AIAssessment carries the optional AI verdict attached by the ai_fit filter.
type AIAssessment struct {
	Fit     bool    `json:"fit,omitempty"`
	Score   float64 `json:"score,omitempty"`
	Reason  string  `json:"reason,omitempty"`
	Message string  `json:"message,omitempty"`
	Raw     string  `json:"raw,omitempty"`
	Error   string  `json:"error,omitempty"`
}

func (j *Job) IsOpen() bool {
	return j != nil && j.Status == StatusOpen
}

func (j *Job) GetStringField(name string) string {
	switch name {
	case JobIDField:
		return j.ID
	case JobCategoryField:
		return j.Category
	default:
		return ""
	}
}

func (j *Jobs) Len() int {
	if j == nil {
		return 0
	}
	return len(j.Items)
}

func (j *Jobs) FindByID(id string) *Job {
	for _, job := range j.Items {
		if job.ID == id {
			return job
		}
	}
	return nil
}

// Exclude removes every job whose field matches one of targets and returns the removed IDs.
// Order of the remaining jobs is preserved.
func (j *Jobs) Exclude(name string, targets []string) []string {
	if len(targets) == 0 {
		return nil
	}

	drop := make(map[string]struct{}, len(targets))
	for _, target := range targets {
		drop[target] = struct{}{}
	}

	var excluded []string
	kept := j.Items[:0]
	for _, job := range j.Items {
		if _, ok := drop[job.GetStringField(name)]; ok {
			excluded = append(excluded, job.ID)
			continue
		}
		kept = append(kept, job)
	}
	j.Items = kept

	return excluded
}

// ReportByCategory groups jobs by service category for display.
func (j *Jobs) ReportByCategory() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, job := range j.Items {
		key := job.Category
		if key == "" {
			key = "uncategorized"
		}

		entry := map[string]string{
			"id":       job.ID,
			"title":    job.Title,
			"location": job.Location,
			"status":   string(job.Status),
		}
		if job.Budget > 0 {
			entry["budget"] = strconv.FormatFloat(job.Budget, 'f', 2, 64)
		}
		if !job.CreatedAt.IsZero() {
			entry["posted"] = job.CreatedAt.Format(time.RFC3339)
		}

		if job.AI != nil {
			if job.AI.Error != "" {
				entry["ai_error"] = job.AI.Error
			} else {
				entry["ai_fit"] = strconv.FormatBool(job.AI.Fit)
				entry["ai_score"] = fmt.Sprintf("%.2f", job.AI.Score)
				entry["ai_reason"] = job.AI.Reason
				if job.AI.Message != "" {
					entry["ai_message"] = job.AI.Message
				}
			}
		}

		report[key] = append(report[key], entry)
	}
	return report
}

func (j *Jobs) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "jobs_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(j); err != nil {
		return "", err
	}
	return file.Name(), nil
}
