package job

import (
	"strings"
	"time"
)

// Profile is the structured candidate profile derived from one resume
// version. Profiles are immutable: a new resume produces a new version and
// supersedes the previous one, exactly one profile is active at a time.
type Profile struct {
	ID              int64     `json:"id,omitempty"`
	Version         int       `json:"version,omitempty"`
	Filename        string    `json:"filename,omitempty"`
	RawText         string    `json:"raw_text,omitempty"`
	Skills          []string  `json:"skills"`
	TechStack       []string  `json:"tech_stack,omitempty"`
	ExperienceYears float64   `json:"experience_years,omitempty"`
	Summary         string    `json:"summary,omitempty"`
	TargetRoles     []string  `json:"target_roles,omitempty"`
	Strengths       []string  `json:"strengths,omitempty"`
	CreatedAt       time.Time `json:"created_at,omitempty"`
	IsActive        bool      `json:"is_active,omitempty"`
}

// SkillSet returns the union of skills and tech stack folded to lower case.
func (p *Profile) SkillSet() map[string]struct{} {
	set := make(map[string]struct{}, len(p.Skills)+len(p.TechStack))
	for _, group := range [][]string{p.Skills, p.TechStack} {
		for _, s := range group {
			s = strings.ToLower(strings.TrimSpace(s))
			if s == "" {
				continue
			}
			set[s] = struct{}{}
		}
	}
	return set
}

// Text builds the text representation used for the resume embedding.
func (p *Profile) Text() string {
	parts := make([]string, 0, 4)
	if len(p.TargetRoles) > 0 {
		parts = append(parts, "Target roles: "+strings.Join(p.TargetRoles, ", "))
	}
	if len(p.Skills) > 0 {
		parts = append(parts, "Skills: "+strings.Join(p.Skills, ", "))
	}
	if len(p.TechStack) > 0 {
		parts = append(parts, "Tech stack: "+strings.Join(p.TechStack, ", "))
	}
	if p.Summary != "" {
		parts = append(parts, "Summary: "+p.Summary)
	}
	if p.RawText != "" {
		parts = append(parts, p.RawText)
	}
	return strings.Join(parts, "\n")
}
