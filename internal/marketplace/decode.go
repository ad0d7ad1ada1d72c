package marketplace

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// profileRow mirrors the flat profiles table row.
type profileRow struct {
	ID           string   `json:"id"`
	FullName     string   `json:"full_name"`
	Role         string   `json:"role"`
	City         string   `json:"city"`
	Region       string   `json:"region"`
	Skills       []string `json:"skills"`
	Availability []string `json:"availability"`
}

func newDecoder(result any) (*mapstructure.Decoder, error) {
	return mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           result,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
}

// DecodeJobs converts generic rows returned by the backend into jobs.
func DecodeJobs(rows []any) (*Jobs, error) {
	var jobs []*Job

	decoder, err := newDecoder(&jobs)
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(rows); err != nil {
		return nil, fmt.Errorf("decode jobs: %w", err)
	}

	return &Jobs{Items: jobs}, nil
}

// DecodeProfile converts a flat profile row into a Profile.
func DecodeProfile(row map[string]any) (*Profile, error) {
	var r profileRow

	decoder, err := newDecoder(&r)
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(row); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}

	profile := &Profile{
		ID:           r.ID,
		FullName:     r.FullName,
		Role:         r.Role,
		Skills:       compact(r.Skills),
		Availability: compact(r.Availability),
	}

	if city, region := strings.TrimSpace(r.City), strings.TrimSpace(r.Region); city != "" || region != "" {
		profile.Location = &Location{City: city, Region: region}
	}

	return profile, nil
}

func LoadJobsFile(path string) (*Jobs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading jobs file %q: %w", path, err)
	}

	var jobs Jobs
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("parsing jobs file %q: %w", path, err)
	}

	return &jobs, nil
}

func LoadProfileFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile file %q: %w", path, err)
	}

	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parsing profile file %q: %w", path, err)
	}
	profile.Skills = compact(profile.Skills)

	return &profile, nil
}

// compact drops blank entries.
func compact(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
