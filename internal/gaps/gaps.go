// Package gaps keeps the frequency accounting of required-but-missing
// skills across admitted matches.
package gaps

import (
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/job-radar/internal/job"
)

// Store is the persistence slice the tracker needs.
type Store interface {
	BumpSkill(name, level, category string) error
	SkillGaps(limit int) ([]*job.GapEntry, error)
}

// Tracker records skill gaps into the store's monotonic frequency table.
// Frequencies only ever grow: a job matched again on a later run bumps the
// same skills again. That over-weights historically common gaps on purpose.
type Tracker struct {
	store  Store
	logger *zap.Logger
}

func New(store Store, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{store: store, logger: logger}
}

// Record bumps each skill once. Persistence failures are logged, not
// propagated; losing one counter increment never aborts a matching run.
func (t *Tracker) Record(skills []string) {
	for _, skill := range skills {
		skill = strings.ToLower(strings.TrimSpace(skill))
		if skill == "" {
			continue
		}
		if err := t.store.BumpSkill(skill, "none", categorize(skill)); err != nil {
			t.logger.Warn("recording skill gap", zap.String("skill", skill), zap.Error(err))
		}
	}
}

// Report returns the most frequent gaps the candidate has not yet closed.
func (t *Tracker) Report(limit int) ([]*job.GapEntry, error) {
	return t.store.SkillGaps(limit)
}

var categories = map[string][]string{
	"language":  {"python", "java", "go", "golang", "javascript", "typescript", "c++", "c#", "rust", "ruby", "kotlin", "swift", "sql"},
	"framework": {"react", "angular", "vue", "django", "flask", "fastapi", "spring", "express", "rails", "gin", ".net", "node.js", "nodejs"},
	"database":  {"postgresql", "postgres", "mysql", "mongodb", "redis", "sqlite", "elasticsearch", "cassandra", "dynamodb"},
	"cloud":     {"aws", "azure", "gcp", "docker", "kubernetes", "terraform", "lambda", "s3"},
	"data":      {"pandas", "numpy", "spark", "hadoop", "kafka", "airflow", "tensorflow", "pytorch", "machine learning", "deep learning", "nlp"},
}

// categorize does a best-effort bucketing so gap reports can group entries.
// Unknown skills land in "general".
func categorize(skill string) string {
	for category, names := range categories {
		for _, name := range names {
			if skill == name {
				return category
			}
		}
	}
	return "general"
}
