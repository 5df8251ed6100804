package job

import (
	"fmt"
	"strings"
	"time"
)

// descriptionTextLimit caps how much of the free-text description ends up in
// the embedding text. Longer descriptions add noise without improving recall.
const descriptionTextLimit = 800

// Record is a single job posting as delivered by an acquisition source.
// Identity is the ExternalID, unique per source+listing; the numeric ID is
// assigned by the store.
type Record struct {
	ID             int64     `json:"id,omitempty"`
	ExternalID     string    `json:"external_id"`
	Title          string    `json:"title"`
	Company        string    `json:"company"`
	CompanyType    string    `json:"company_type,omitempty"`
	Location       string    `json:"location,omitempty"`
	WorkMode       string    `json:"work_mode,omitempty"`
	SalaryMin      float64   `json:"salary_min,omitempty"`
	SalaryMax      float64   `json:"salary_max,omitempty"`
	ExperienceMin  int       `json:"experience_min,omitempty"`
	ExperienceMax  int       `json:"experience_max,omitempty"`
	Description    string    `json:"description,omitempty"`
	SkillsRequired []string  `json:"skills_required,omitempty"`
	ApplyURL       string    `json:"apply_url,omitempty"`
	Source         string    `json:"source,omitempty"`
	ScrapedAt      time.Time `json:"scraped_at,omitempty"`
	IsActive       bool      `json:"is_active,omitempty"`
}

// Text builds the normalized text representation used for embedding.
// Field order is fixed so that re-embedding an unchanged job yields the same
// input text.
func (r *Record) Text() string {
	parts := []string{
		"Title: " + r.Title,
		"Company: " + r.Company,
		"Location: " + r.Location,
	}

	if len(r.SkillsRequired) > 0 {
		parts = append(parts, "Skills: "+strings.Join(r.SkillsRequired, ", "))
	}

	if r.Description != "" {
		desc := []rune(r.Description)
		if len(desc) > descriptionTextLimit {
			desc = desc[:descriptionTextLimit]
		}
		parts = append(parts, "Description: "+string(desc))
	}

	return strings.Join(parts, "\n")
}

// Summary is a short single-line description used in prompts and logs.
func (r *Record) Summary() string {
	return fmt.Sprintf("%s at %s, %s", r.Title, r.Company, r.Location)
}

// SkillSet returns the required skills folded to lower case, preserving the
// order they occur in the posting.
func (r *Record) SkillSet() []string {
	skills := make([]string, 0, len(r.SkillsRequired))
	seen := make(map[string]struct{}, len(r.SkillsRequired))
	for _, s := range r.SkillsRequired {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		skills = append(skills, s)
	}
	return skills
}
