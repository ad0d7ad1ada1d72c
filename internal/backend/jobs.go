package backend

import (
	"context"
	"fmt"
	"net/url"

	"github.com/spigell/gigboard/internal/marketplace"
)

const (
	jobsTable         = "jobs"
	applicationsTable = "applications"
	jobColumns        = "id,title,description,location,category,budget,hirer_id,created_at,status"
)

// Jobs returns jobs with the given status, newest first. An empty status returns every job.
func (c *Client) Jobs(ctx context.Context, status marketplace.Status) (*marketplace.Jobs, error) {
	q := url.Values{}
	q.Set("select", jobColumns)
	q.Set("order", "created_at.desc")
	if status != "" {
		q.Set("status", "eq."+string(status))
	}

	rows, err := c.getRows(ctx, jobsTable, q)
	if err != nil {
		return nil, err
	}

	return marketplace.DecodeJobs(rows)
}

// AppliedJobIDs returns IDs of the jobs the worker has already applied to.
func (c *Client) AppliedJobIDs(ctx context.Context, workerID string) ([]string, error) {
	if workerID == "" {
		return nil, fmt.Errorf("worker id is required")
	}

	q := url.Values{}
	q.Set("select", "job_id")
	q.Set("worker_id", "eq."+workerID)

	rows, err := c.getRows(ctx, applicationsTable, q)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		m, ok := row.(map[string]any)
		if !ok {
			continue
		}
		if id, ok := m["job_id"].(string); ok && id != "" {
			ids = append(ids, id)
		}
	}

	return ids, nil
}
