// Package store is the relational persistence boundary. It owns jobs,
// matches, resume versions, skill-gap counters and preferences in a single
// SQLite database. Set- and list-valued domain fields are stored as JSON
// text columns; the (un)marshalling stays inside this package so the rest of
// the code only ever sees structured values.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/spigell/job-radar/internal/job"
)

const timeLayout = "2006-01-02 15:04:05"

type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (and if needed bootstraps) the database at path.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logger.Debug("store ready", zap.String("path", path))

	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertJob inserts a new job or, when the external id is already known,
// refreshes its activity and scrape timestamp without overwriting content.
// Returns the job id and whether the record was newly created.
func (s *Store) UpsertJob(rec *job.Record) (int64, bool, error) {
	var existing int64
	err := s.db.QueryRow("SELECT id FROM jobs WHERE external_id=?", rec.ExternalID).Scan(&existing)
	switch {
	case err == nil:
		_, err = s.db.Exec(
			"UPDATE jobs SET is_active=1, scraped_at=CURRENT_TIMESTAMP WHERE id=?",
			existing,
		)
		if err != nil {
			return 0, false, fmt.Errorf("refresh job %d: %w", existing, err)
		}
		return existing, false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, false, fmt.Errorf("lookup job by external id: %w", err)
	}

	res, err := s.db.Exec(`
		INSERT INTO jobs (external_id, title, company, company_type, location,
			work_mode, salary_min, salary_max, experience_min, experience_max,
			description, skills_required, apply_url, source)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.ExternalID, rec.Title, rec.Company, defaultStr(rec.CompanyType, "unknown"),
		rec.Location, defaultStr(rec.WorkMode, "onsite"), rec.SalaryMin, rec.SalaryMax,
		rec.ExperienceMin, rec.ExperienceMax, rec.Description,
		marshalStrings(rec.SkillsRequired), rec.ApplyURL, rec.Source,
	)
	if err != nil {
		return 0, false, fmt.Errorf("insert job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// UnmatchedJobs returns active jobs that have no match record yet, newest
// scraped first.
func (s *Store) UnmatchedJobs(limit int) ([]*job.Record, error) {
	rows, err := s.db.Query(`
		SELECT `+jobColumns+` FROM jobs j
		LEFT JOIN job_matches m ON j.id = m.job_id
		WHERE m.id IS NULL AND j.is_active=1
		ORDER BY j.scraped_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query unmatched jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*job.Record
	for rows.Next() {
		rec, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, rec)
	}
	return jobs, rows.Err()
}

// JobByID returns the job with the given id, or nil when it does not exist.
func (s *Store) JobByID(id int64) (*job.Record, error) {
	row := s.db.QueryRow("SELECT "+jobColumns+" FROM jobs j WHERE j.id=?", id)
	rec, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

const jobColumns = `j.id, j.external_id, j.title, j.company, j.company_type,
	j.location, j.work_mode, COALESCE(j.salary_min, 0), COALESCE(j.salary_max, 0),
	j.experience_min, j.experience_max, j.description, j.skills_required,
	j.apply_url, j.source, j.scraped_at, j.is_active`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*job.Record, error) {
	var (
		rec       job.Record
		skills    string
		scrapedAt string
	)
	err := row.Scan(
		&rec.ID, &rec.ExternalID, &rec.Title, &rec.Company, &rec.CompanyType,
		&rec.Location, &rec.WorkMode, &rec.SalaryMin, &rec.SalaryMax,
		&rec.ExperienceMin, &rec.ExperienceMax, &rec.Description, &skills,
		&rec.ApplyURL, &rec.Source, &scrapedAt, &rec.IsActive,
	)
	if err != nil {
		return nil, err
	}
	rec.SkillsRequired = unmarshalStrings(skills)
	rec.ScrapedAt = parseTime(scrapedAt)
	return &rec, nil
}

// SaveMatch persists the match, replacing any previous match for the same
// job. The seen flag of a replaced match is preserved.
func (s *Store) SaveMatch(m *job.Match) error {
	var llmScore any
	if m.LLMScore != nil {
		llmScore = *m.LLMScore
	}

	_, err := s.db.Exec(`
		INSERT INTO job_matches (job_id, run_id, embed_score, llm_score, final_score,
			match_reasons, skill_overlap, skill_gaps, llm_reasoning)
		VALUES (?,?,?,?,?,?,?,?,?)
		ON CONFLICT(job_id) DO UPDATE SET
			run_id=excluded.run_id,
			embed_score=excluded.embed_score,
			llm_score=excluded.llm_score,
			final_score=excluded.final_score,
			match_reasons=excluded.match_reasons,
			skill_overlap=excluded.skill_overlap,
			skill_gaps=excluded.skill_gaps,
			llm_reasoning=excluded.llm_reasoning,
			matched_at=CURRENT_TIMESTAMP`,
		m.JobID, m.RunID, m.EmbedScore, llmScore, m.FinalScore,
		marshalStrings(m.Reasons), marshalStrings(m.SkillOverlap),
		marshalStrings(m.SkillGaps), m.LLMReasoning,
	)
	if err != nil {
		return fmt.Errorf("save match for job %d: %w", m.JobID, err)
	}
	return nil
}

// MatchedJob is a match joined with its job for presentation.
type MatchedJob struct {
	Job   job.Record
	Match job.Match
}

// TopMatches returns unseen-or-seen matches with final_score >= minScore,
// best first. workMode filters jobs when non-empty.
func (s *Store) TopMatches(limit int, minScore float64, workMode string) ([]*MatchedJob, error) {
	query := `
		SELECT ` + jobColumns + `, m.id, m.run_id, m.embed_score, m.llm_score,
			m.final_score, m.match_reasons, m.skill_overlap, m.skill_gaps,
			m.llm_reasoning, m.matched_at, m.seen
		FROM job_matches m JOIN jobs j ON m.job_id = j.id
		WHERE m.final_score >= ? AND j.is_active=1`
	args := []any{minScore}
	if workMode != "" {
		query += " AND j.work_mode=?"
		args = append(args, workMode)
	}
	query += " ORDER BY m.final_score DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query top matches: %w", err)
	}
	defer rows.Close()

	var results []*MatchedJob
	for rows.Next() {
		var (
			mj        MatchedJob
			skills    string
			scrapedAt string
			llmScore  sql.NullFloat64
			reasons   string
			overlap   string
			gaps      string
			matchedAt string
		)
		err := rows.Scan(
			&mj.Job.ID, &mj.Job.ExternalID, &mj.Job.Title, &mj.Job.Company,
			&mj.Job.CompanyType, &mj.Job.Location, &mj.Job.WorkMode,
			&mj.Job.SalaryMin, &mj.Job.SalaryMax, &mj.Job.ExperienceMin,
			&mj.Job.ExperienceMax, &mj.Job.Description, &skills,
			&mj.Job.ApplyURL, &mj.Job.Source, &scrapedAt, &mj.Job.IsActive,
			&mj.Match.ID, &mj.Match.RunID, &mj.Match.EmbedScore, &llmScore,
			&mj.Match.FinalScore, &reasons, &overlap, &gaps,
			&mj.Match.LLMReasoning, &matchedAt, &mj.Match.Seen,
		)
		if err != nil {
			return nil, err
		}
		mj.Job.SkillsRequired = unmarshalStrings(skills)
		mj.Job.ScrapedAt = parseTime(scrapedAt)
		mj.Match.JobID = mj.Job.ID
		if llmScore.Valid {
			v := llmScore.Float64
			mj.Match.LLMScore = &v
		}
		mj.Match.Reasons = unmarshalStrings(reasons)
		mj.Match.SkillOverlap = unmarshalStrings(overlap)
		mj.Match.SkillGaps = unmarshalStrings(gaps)
		mj.Match.MatchedAt = parseTime(matchedAt)
		results = append(results, &mj)
	}
	return results, rows.Err()
}

// MarkSeen flags the match for the given job as reviewed.
func (s *Store) MarkSeen(jobID int64) error {
	_, err := s.db.Exec("UPDATE job_matches SET seen=1 WHERE job_id=?", jobID)
	return err
}

// SaveProfile stores a new resume profile version and makes it the single
// active one. Previous versions are superseded, never mutated.
func (s *Store) SaveProfile(p *job.Profile) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE resume_versions SET is_active=0"); err != nil {
		return 0, fmt.Errorf("deactivate previous profiles: %w", err)
	}

	var maxVersion sql.NullInt64
	if err := tx.QueryRow("SELECT MAX(version) FROM resume_versions").Scan(&maxVersion); err != nil {
		return 0, err
	}

	res, err := tx.Exec(`
		INSERT INTO resume_versions (version, filename, raw_text, skills, tech_stack,
			experience_years, summary, target_roles, strengths)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		maxVersion.Int64+1, p.Filename, p.RawText, marshalStrings(p.Skills),
		marshalStrings(p.TechStack), p.ExperienceYears, p.Summary,
		marshalStrings(p.TargetRoles), marshalStrings(p.Strengths),
	)
	if err != nil {
		return 0, fmt.Errorf("insert profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ActiveProfile returns the currently active resume profile, or nil when no
// resume has been analyzed yet.
func (s *Store) ActiveProfile() (*job.Profile, error) {
	row := s.db.QueryRow(`
		SELECT id, version, filename, raw_text, skills, tech_stack,
			experience_years, summary, target_roles, strengths, created_at
		FROM resume_versions WHERE is_active=1 ORDER BY version DESC LIMIT 1`)

	var (
		p           job.Profile
		skills      string
		stack       string
		targetRoles string
		strengths   string
		createdAt   string
	)
	err := row.Scan(&p.ID, &p.Version, &p.Filename, &p.RawText, &skills, &stack,
		&p.ExperienceYears, &p.Summary, &targetRoles, &strengths, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query active profile: %w", err)
	}

	p.Skills = unmarshalStrings(skills)
	p.TechStack = unmarshalStrings(stack)
	p.TargetRoles = unmarshalStrings(targetRoles)
	p.Strengths = unmarshalStrings(strengths)
	p.CreatedAt = parseTime(createdAt)
	p.IsActive = true
	return &p, nil
}

// BumpSkill increments the frequency counter for a skill gap, inserting the
// skill at frequency 1 when unseen. Counters never decrease.
func (s *Store) BumpSkill(name, level, category string) error {
	res, err := s.db.Exec(
		"UPDATE skill_gaps SET frequency=frequency+1, last_seen=CURRENT_TIMESTAMP WHERE skill_name=?",
		name,
	)
	if err != nil {
		return fmt.Errorf("bump skill %q: %w", name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	_, err = s.db.Exec(
		"INSERT INTO skill_gaps (skill_name, our_level, category) VALUES (?,?,?)",
		name, defaultStr(level, "none"), defaultStr(category, "general"),
	)
	if err != nil {
		return fmt.Errorf("insert skill gap %q: %w", name, err)
	}
	return nil
}

// SkillGaps returns gap entries for skills the candidate lacks, most
// frequent first.
func (s *Store) SkillGaps(limit int) ([]*job.GapEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, skill_name, frequency, our_level, category, last_seen
		FROM skill_gaps WHERE our_level IN ('none','basic')
		ORDER BY frequency DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query skill gaps: %w", err)
	}
	defer rows.Close()

	var entries []*job.GapEntry
	for rows.Next() {
		var (
			e        job.GapEntry
			lastSeen string
		)
		if err := rows.Scan(&e.ID, &e.Skill, &e.Frequency, &e.Level, &e.Category, &lastSeen); err != nil {
			return nil, err
		}
		e.LastSeen = parseTime(lastSeen)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// SetPref stores a JSON-encoded preference value under key.
func (s *Store) SetPref(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode preference %q: %w", key, err)
	}
	_, err = s.db.Exec(
		"INSERT OR REPLACE INTO preferences (key, value, updated_at) VALUES (?,?,CURRENT_TIMESTAMP)",
		key, string(raw),
	)
	return err
}

// GetPref decodes the preference stored under key into out. Returns false
// when the key is not set.
func (s *Store) GetPref(key string, out any) (bool, error) {
	var raw string
	err := s.db.QueryRow("SELECT value FROM preferences WHERE key=?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("decode preference %q: %w", key, err)
	}
	return true, nil
}

// PrefBool is a convenience wrapper for boolean preferences.
func (s *Store) PrefBool(key string, def bool) bool {
	v := def
	if ok, err := s.GetPref(key, &v); err != nil || !ok {
		return def
	}
	return v
}

// Stats summarizes store contents.
type Stats struct {
	ActiveJobs   int
	TotalMatches int
	AvgScore     float64
	TopGaps      []string
}

func (s *Store) Stats() (*Stats, error) {
	st := &Stats{}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM jobs WHERE is_active=1").Scan(&st.ActiveJobs); err != nil {
		return nil, err
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM job_matches").Scan(&st.TotalMatches); err != nil {
		return nil, err
	}
	if err := s.db.QueryRow("SELECT COALESCE(AVG(final_score), 0) FROM job_matches").Scan(&st.AvgScore); err != nil {
		return nil, err
	}

	rows, err := s.db.Query("SELECT skill_name FROM skill_gaps ORDER BY frequency DESC LIMIT 5")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		st.TopGaps = append(st.TopGaps, name)
	}
	return st, rows.Err()
}

// Cleanup soft-deletes jobs not refreshed within maxAge. Matches stay; the
// inactive flag keeps them out of reports and re-matching.
func (s *Store) Cleanup(maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge).Format(timeLayout)
	res, err := s.db.Exec("UPDATE jobs SET is_active=0 WHERE scraped_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup stale jobs: %w", err)
	}
	return res.RowsAffected()
}

func marshalStrings(values []string) string {
	if values == nil {
		values = []string{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

func unmarshalStrings(raw string) []string {
	if raw == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil
	}
	if len(values) == 0 {
		return nil
	}
	return values
}

func parseTime(raw string) time.Time {
	for _, layout := range []string{timeLayout, time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

func defaultStr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
