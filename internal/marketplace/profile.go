package marketplace

import "strings"

const (
	RoleWorker = "worker"
	RoleHirer  = "hirer"
)

type Location struct {
	City   string `json:"city,omitempty"`
	Region string `json:"region,omitempty"`
}

// Profile is the part of a user profile used for job recommendations.
// Location, Skills and Availability are optional.
type Profile struct {
	ID           string    `json:"id"`
	FullName     string    `json:"full_name,omitempty"`
	Role         string    `json:"role,omitempty"`
	Location     *Location `json:"location,omitempty"`
	Skills       []string  `json:"skills,omitempty"`
	Availability []string  `json:"availability,omitempty"`
}

// HasLocation reports whether the profile carries a city or a region.
func (p *Profile) HasLocation() bool {
	if p == nil || p.Location == nil {
		return false
	}
	return strings.TrimSpace(p.Location.City) != "" || strings.TrimSpace(p.Location.Region) != ""
}

// ParseLocation splits a free text location on the first comma.
// "Toronto, Ontario" yields ("toronto", "ontario"); a string without a comma yields an empty region.
func ParseLocation(s string) (city, region string) {
	before, after, found := strings.Cut(s, ",")
	city = normalize(before)
	if found {
		region = normalize(after)
	}
	return city, region
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
