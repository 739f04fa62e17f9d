package record

import (
	"sort"
	"strings"
)

// Filter narrows a list of records. Zero-valued fields match everything.
type Filter struct {
	Search       string
	Status       Status
	ContractType ContractType
	Location     string
	DateFrom     string
	Priority     Priority
	Remote       Remote
	Tags         []string
	Archived     *bool
}

func (f Filter) Active() bool {
	return strings.TrimSpace(f.Search) != "" ||
		f.Status != "" ||
		f.ContractType != "" ||
		strings.TrimSpace(f.Location) != "" ||
		f.DateFrom != "" ||
		f.Priority != "" ||
		f.Remote != "" ||
		len(f.Tags) > 0 ||
		f.Archived != nil
}

func (f Filter) Match(app Application) bool {
	if needle := strings.ToLower(strings.TrimSpace(f.Search)); needle != "" {
		haystack := []string{app.CompanyName, app.JobTitle, app.Location, app.Notes}
		matched := false
		for _, value := range haystack {
			if strings.Contains(strings.ToLower(value), needle) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if f.Status != "" && app.Status != f.Status {
		return false
	}
	if f.ContractType != "" && app.ContractType != f.ContractType {
		return false
	}
	if loc := strings.ToLower(strings.TrimSpace(f.Location)); loc != "" && !strings.Contains(strings.ToLower(app.Location), loc) {
		return false
	}
	// ISO dates compare lexically.
	if f.DateFrom != "" && app.ApplicationDate < f.DateFrom {
		return false
	}
	if f.Priority != "" && app.Priority != f.Priority {
		return false
	}
	if f.Remote != "" && app.Remote != f.Remote {
		return false
	}
	for _, tag := range f.Tags {
		if !containsFold(app.TechStack, tag) {
			return false
		}
	}
	if f.Archived != nil && app.Archived != *f.Archived {
		return false
	}
	return true
}

func (f Filter) Apply(apps []Application) []Application {
	out := make([]Application, 0, len(apps))
	for _, app := range apps {
		if f.Match(app) {
			out = append(out, app)
		}
	}
	return out
}

// SortByApplicationDateDesc orders newest applications first. Ties keep the
// company name order so output is stable.
func SortByApplicationDateDesc(apps []Application) {
	sort.SliceStable(apps, func(i, j int) bool {
		if apps[i].ApplicationDate != apps[j].ApplicationDate {
			return apps[i].ApplicationDate > apps[j].ApplicationDate
		}
		return strings.ToLower(apps[i].CompanyName) < strings.ToLower(apps[j].CompanyName)
	})
}

type Stats struct {
	Total      int            `json:"total"`
	Sent       int            `json:"sent"`
	Interviews int            `json:"interviews"`
	Offers     int            `json:"offers"`
	Archived   int            `json:"archived"`
	ByStatus   map[Status]int `json:"by_status"`
}

func ComputeStats(apps []Application) Stats {
	stats := Stats{Total: len(apps), ByStatus: map[Status]int{}}
	for _, app := range apps {
		stats.ByStatus[app.Status]++
		switch app.Status {
		case StatusSent:
			stats.Sent++
		case StatusInterview:
			stats.Interviews++
		case StatusOfferReceived:
			stats.Offers++
		}
		if app.Archived {
			stats.Archived++
		}
	}
	return stats
}

func containsFold(values []string, want string) bool {
	want = strings.ToLower(strings.TrimSpace(want))
	for _, value := range values {
		if strings.ToLower(strings.TrimSpace(value)) == want {
			return true
		}
	}
	return false
}
