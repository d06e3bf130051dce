// Package domain holds the shared types of the matching engine: searchable
// entities, embedding contracts, and sentinel errors.
package domain

import (
	"strings"
	"time"
)

// Kind identifies a searchable entity type.
type Kind string

const (
	// KindJob is a job posting.
	KindJob Kind = "job"
	// KindProfile is a creative professional profile.
	KindProfile Kind = "profile"
)

// Valid reports whether k is a known entity kind.
func (k Kind) Valid() bool {
	return k == KindJob || k == KindProfile
}

// ParseKind converts a string into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", ErrUnknownKind
	}
	return k, nil
}

// Job status values.
const (
	JobStatusDraft     = "draft"
	JobStatusPublished = "published"
	JobStatusArchived  = "archived"
)

// CorpusSeparator joins the text fields of an entity into one embedding corpus.
const CorpusSeparator = "\n"

// Searchable is implemented by every entity kind the engine can index. The
// sync workflow and the search engine consume it generically; the per-kind
// differences (field names, filter metadata, eligibility) live behind it.
type Searchable interface {
	EntityID() string
	EntityKind() Kind
	// CorpusFields returns the significant text fields in a fixed order.
	// Blank fields are dropped before joining.
	CorpusFields() []string
	// FilterMetadata returns the kind-specific subset of filterable fields
	// stored alongside the vector in the external index.
	FilterMetadata() map[string]any
	// ShouldBeSearchable reports whether the entity may appear in the index.
	ShouldBeSearchable() bool
}

// Job is a job posting supplied by the surrounding marketplace.
type Job struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary,omitempty"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Skills      []string  `json:"skills,omitempty"`
	Location    string    `json:"location,omitempty"`
	Remote      bool      `json:"remote"`
	Status      string    `json:"status"`
	PublishedAt time.Time `json:"published_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// EntityID implements Searchable.
func (j Job) EntityID() string { return j.ID }

// EntityKind implements Searchable.
func (j Job) EntityKind() Kind { return KindJob }

// CorpusFields implements Searchable.
func (j Job) CorpusFields() []string {
	return []string{j.Title, j.Summary, j.Description, j.Category, strings.Join(j.Skills, " "), j.Location}
}

// FilterMetadata implements Searchable.
func (j Job) FilterMetadata() map[string]any {
	return map[string]any{
		"status":   j.Status,
		"category": j.Category,
		"skills":   j.Skills,
		"title":    j.Title,
	}
}

// ShouldBeSearchable implements Searchable: only published jobs are indexed.
func (j Job) ShouldBeSearchable() bool { return j.Status == JobStatusPublished }

// Corpus joins the non-blank corpus fields of any searchable entity.
func Corpus(s Searchable) string {
	fields := s.CorpusFields()
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := strings.TrimSpace(f); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, CorpusSeparator)
}

// CreativeProfile is a creative professional's profile.
type CreativeProfile struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id,omitempty"`
	DisplayName     string    `json:"display_name"`
	Tagline         string    `json:"tagline,omitempty"`
	Bio             string    `json:"bio,omitempty"`
	Skills          []string  `json:"skills,omitempty"`
	Location        string    `json:"location,omitempty"`
	ExperienceLevel string    `json:"experience_level,omitempty"`
	Available       bool      `json:"available"`
	UpdatedAt       time.Time `json:"updated_at,omitempty"`
}

// EntityID implements Searchable.
func (p CreativeProfile) EntityID() string { return p.ID }

// EntityKind implements Searchable.
func (p CreativeProfile) EntityKind() Kind { return KindProfile }

// CorpusFields implements Searchable.
func (p CreativeProfile) CorpusFields() []string {
	return []string{p.DisplayName, p.Tagline, p.Bio, strings.Join(p.Skills, " "), p.Location, p.ExperienceLevel}
}

// FilterMetadata implements Searchable.
func (p CreativeProfile) FilterMetadata() map[string]any {
	return map[string]any{
		"skills":           p.Skills,
		"location":         p.Location,
		"experience_level": p.ExperienceLevel,
		"user_id":          p.UserID,
	}
}

// ShouldBeSearchable implements Searchable: only available profiles are indexed.
func (p CreativeProfile) ShouldBeSearchable() bool { return p.Available }

// Application links an applicant (and optionally their creative profile) to a job.
type Application struct {
	ID          string           `json:"id"`
	JobID       string           `json:"job_id"`
	ApplicantID string           `json:"applicant_id"`
	Profile     *CreativeProfile `json:"profile,omitempty"`
	SubmittedAt time.Time        `json:"submitted_at,omitempty"`
}
