// Package rank scores job applications against their job posting. The
// scorer is pure: it embeds fresh text on the spot and never touches
// storage, so callers can rank ad-hoc payloads.
package rank

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/adhika16/smart-matching-platform-sub000/internal/domain"
	"github.com/adhika16/smart-matching-platform-sub000/internal/domain/vector"
)

// Component weights of the total score.
const (
	profileWeight    = 0.5
	skillsWeight     = 0.3
	experienceWeight = 0.2
)

// experienceScores maps normalized experience levels onto match scores.
// Unknown levels land on the middle-ground default.
var experienceScores = map[string]float64{
	"entry":        0.6,
	"beginner":     0.6,
	"mid":          0.8,
	"intermediate": 0.8,
	"senior":       1.0,
	"expert":       1.0,
	"lead":         1.0,
}

const defaultExperienceScore = 0.5

type vectorizer interface {
	Embed(ctx context.Context, text string, dims ...int) []float32
}

// ApplicationScore is the scored outcome for one application.
type ApplicationScore struct {
	ApplicationID   string  `json:"application_id"`
	ApplicantID     string  `json:"applicant_id"`
	Total           float64 `json:"total"`
	ProfileMatch    float64 `json:"profile_match"`
	SkillsMatch     float64 `json:"skills_match"`
	ExperienceMatch float64 `json:"experience_match"`
}

// Service ranks applications for a job posting.
type Service struct {
	vec    vectorizer
	logger *zap.Logger
}

// New creates the ranking scorer.
func New(v vectorizer, logger *zap.Logger) *Service {
	return &Service{vec: v, logger: logger}
}

// RankApplications scores every application and returns them in descending
// total order. Applications without a profile score zero on every component
// but stay in the output so the caller sees the full slate.
func (s *Service) RankApplications(ctx context.Context, j domain.Job, apps []domain.Application) []ApplicationScore {
	jobText := jobCorpus(j)
	var jobVec []float32
	if jobText != "" {
		jobVec = s.vec.Embed(ctx, jobText)
	}

	out := make([]ApplicationScore, 0, len(apps))
	for _, app := range apps {
		score := ApplicationScore{
			ApplicationID: app.ID,
			ApplicantID:   app.ApplicantID,
		}
		if app.Profile != nil {
			score.ProfileMatch = s.profileMatch(ctx, jobText, jobVec, *app.Profile)
			score.SkillsMatch = skillsMatch(j.Skills, app.Profile.Skills)
			score.ExperienceMatch = experienceMatch(app.Profile.ExperienceLevel)
			score.Total = vector.Round6(profileWeight*score.ProfileMatch +
				skillsWeight*score.SkillsMatch +
				experienceWeight*score.ExperienceMatch)
		}
		out = append(out, score)
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Total > out[b].Total
	})
	return out
}

func (s *Service) profileMatch(ctx context.Context, jobText string, jobVec []float32, p domain.CreativeProfile) float64 {
	profileText := profileCorpus(p)
	if jobText == "" || profileText == "" {
		return 0
	}
	profileVec := s.vec.Embed(ctx, profileText)
	return vector.Round6(vector.Clamp01(vector.Cosine(jobVec, profileVec)))
}

// skillsMatch is the fraction of the job's required skills the applicant
// covers, case-insensitive. A job without skills yields 0.
func skillsMatch(jobSkills, profileSkills []string) float64 {
	if len(jobSkills) == 0 {
		return 0
	}
	have := make(map[string]struct{}, len(profileSkills))
	for _, sk := range profileSkills {
		have[normalizeSkill(sk)] = struct{}{}
	}
	matched := 0
	for _, sk := range jobSkills {
		if _, ok := have[normalizeSkill(sk)]; ok {
			matched++
		}
	}
	return vector.Round6(float64(matched) / float64(len(jobSkills)))
}

func experienceMatch(level string) float64 {
	if score, ok := experienceScores[strings.ToLower(strings.TrimSpace(level))]; ok {
		return score
	}
	return defaultExperienceScore
}

func normalizeSkill(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func jobCorpus(j domain.Job) string {
	return joinNonBlank(j.Title, j.Summary, j.Description, strings.Join(j.Skills, " "))
}

func profileCorpus(p domain.CreativeProfile) string {
	return joinNonBlank(p.Bio, strings.Join(p.Skills, " "))
}

func joinNonBlank(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, domain.CorpusSeparator)
}
