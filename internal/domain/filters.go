package domain

import "strings"

// JobFilters is the documented structured filter set for job search.
// Zero values mean "no constraint". Unknown keys at the transport boundary
// are dropped before reaching this type.
type JobFilters struct {
	Category string   `json:"category,omitempty"`
	Skills   []string `json:"skills,omitempty"`
	Location string   `json:"location,omitempty"`
	Remote   *bool    `json:"remote,omitempty"`
}

// IsEmpty reports whether no constraint is set.
func (f JobFilters) IsEmpty() bool {
	return f.Category == "" && len(f.Skills) == 0 && f.Location == "" && f.Remote == nil
}

// Match applies the filters in-process, used by the database scan fallback.
func (f JobFilters) Match(j Job) bool {
	if f.Category != "" && !strings.EqualFold(j.Category, f.Category) {
		return false
	}
	if f.Location != "" && !strings.EqualFold(j.Location, f.Location) {
		return false
	}
	if f.Remote != nil && j.Remote != *f.Remote {
		return false
	}
	return containsAny(j.Skills, f.Skills)
}

// ProfileFilters is the documented structured filter set for creative search.
type ProfileFilters struct {
	Skills          []string `json:"skills,omitempty"`
	Location        string   `json:"location,omitempty"`
	ExperienceLevel string   `json:"experience_level,omitempty"`
}

// IsEmpty reports whether no constraint is set.
func (f ProfileFilters) IsEmpty() bool {
	return len(f.Skills) == 0 && f.Location == "" && f.ExperienceLevel == ""
}

// Match applies the filters in-process, used by the database scan fallback.
func (f ProfileFilters) Match(p CreativeProfile) bool {
	if f.Location != "" && !strings.EqualFold(p.Location, f.Location) {
		return false
	}
	if f.ExperienceLevel != "" && !strings.EqualFold(p.ExperienceLevel, f.ExperienceLevel) {
		return false
	}
	return containsAny(p.Skills, f.Skills)
}

// containsAny reports whether have includes at least one of want.
// An empty want list matches everything.
func containsAny(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}
