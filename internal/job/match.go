package job

import "time"

// Match records the outcome of scoring one job against the active profile.
// There is exactly one live match per job: rescoring replaces the previous
// record instead of adding a second one.
type Match struct {
	ID           int64     `json:"id,omitempty"`
	JobID        int64     `json:"job_id"`
	RunID        string    `json:"run_id,omitempty"`
	EmbedScore   float64   `json:"embed_score"`
	LLMScore     *float64  `json:"llm_score,omitempty"`
	FinalScore   float64   `json:"final_score"`
	Reasons      []string  `json:"reasons,omitempty"`
	SkillOverlap []string  `json:"skill_overlap,omitempty"`
	SkillGaps    []string  `json:"skill_gaps,omitempty"`
	LLMReasoning string    `json:"llm_reasoning,omitempty"`
	MatchedAt    time.Time `json:"matched_at,omitempty"`
	Seen         bool      `json:"seen,omitempty"`
}

// GapEntry is one row of the skill-gap frequency table. Frequency only ever
// grows; there is no decay or time windowing.
type GapEntry struct {
	ID        int64     `json:"id,omitempty"`
	Skill     string    `json:"skill"`
	Frequency int       `json:"frequency"`
	Level     string    `json:"level,omitempty"`
	Category  string    `json:"category,omitempty"`
	LastSeen  time.Time `json:"last_seen,omitempty"`
}
