// Package pipeline turns unmatched jobs plus the active candidate profile
// into admitted, persisted matches. It owns no persistent state itself; all
// truth lives in the store and the vector index.
package pipeline

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/job-radar/internal/embedding"
	"github.com/spigell/job-radar/internal/index"
	"github.com/spigell/job-radar/internal/job"
	"github.com/spigell/job-radar/internal/rerank"
)

// PausedPref is the preference key gating pipeline runs.
const PausedPref = "matcher_paused"

const (
	defaultThreshold      = 0.55
	defaultTopK           = 200
	defaultCoarseMargin   = 0.1
	defaultRerankMin      = 0.50
	defaultRerankMax      = 0.65
	defaultRerankWorkers  = 4
	defaultRerankTimeout  = 45 * time.Second
	defaultUnmatchedLimit = 200

	embedWeight = 0.6
	llmWeight   = 0.4

	maxOverlapRecorded = 8
	maxGapsRecorded    = 6
)

// Store is the slice of the job store the pipeline reads and writes.
type Store interface {
	UnmatchedJobs(limit int) ([]*job.Record, error)
	JobByID(id int64) (*job.Record, error)
	ActiveProfile() (*job.Profile, error)
	SaveMatch(m *job.Match) error
	PrefBool(key string, def bool) bool
}

// Index is the vector index surface the pipeline uses.
type Index interface {
	Insert(jobID int64, vec []float32, meta index.Meta) int
	Search(query []float32, k int) []index.Hit
	LoadResumeVector() ([]float32, error)
	Flush() error
}

// GapTracker records required-but-missing skills of admitted matches.
type GapTracker interface {
	Record(skills []string)
}

// Config tunes the scoring pipeline. Zero values fall back to defaults.
type Config struct {
	// Threshold is the admission bar on the final score.
	Threshold float64
	// TopK is the width of the candidate search.
	TopK int
	// CoarseMargin is the slack below Threshold at which candidates are
	// dropped before re-ranking.
	CoarseMargin float64
	// RerankEnabled switches the LLM re-rank step.
	RerankEnabled bool
	// RerankMin/RerankMax bound the raw embedding score band that is sent
	// to the re-ranker.
	RerankMin float64
	RerankMax float64
	// RerankWorkers bounds concurrent re-rank calls.
	RerankWorkers int
	// RerankTimeout applies per re-rank call.
	RerankTimeout time.Duration
	// UnmatchedLimit caps how many new jobs are indexed per run.
	UnmatchedLimit int
}

func (c Config) withDefaults() Config {
	if c.Threshold == 0 {
		c.Threshold = defaultThreshold
	}
	if c.TopK <= 0 {
		c.TopK = defaultTopK
	}
	if c.CoarseMargin == 0 {
		c.CoarseMargin = defaultCoarseMargin
	}
	if c.RerankMin == 0 {
		c.RerankMin = defaultRerankMin
	}
	if c.RerankMax == 0 {
		c.RerankMax = defaultRerankMax
	}
	if c.RerankWorkers <= 0 {
		c.RerankWorkers = defaultRerankWorkers
	}
	if c.RerankTimeout <= 0 {
		c.RerankTimeout = defaultRerankTimeout
	}
	if c.UnmatchedLimit <= 0 {
		c.UnmatchedLimit = defaultUnmatchedLimit
	}
	return c
}

// Summary reports what a run accomplished. Counts reflect partial success;
// per-item failures never abort the batch.
type Summary struct {
	RunID   string
	Indexed int
	Matched int
	// Skipped is set when the run never started (another run in flight, or
	// the matcher is paused).
	Skipped    bool
	SkipReason string
}

// Pipeline orchestrates embedding, vector search, scoring and admission.
// All collaborators are injected; there is no hidden global state.
type Pipeline struct {
	store    Store
	index    Index
	embedder embedding.Provider
	reranker rerank.Reranker
	gaps     GapTracker
	cfg      Config
	logger   *zap.Logger

	running atomic.Bool
}

// New constructs a pipeline. reranker may be nil to disable re-ranking
// regardless of configuration.
func New(store Store, ix Index, embedder embedding.Provider, reranker rerank.Reranker, gaps GapTracker, cfg Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		store:    store,
		index:    ix,
		embedder: embedder,
		reranker: reranker,
		gaps:     gaps,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

// Run executes one full matching pass. It never returns an error: transient
// per-item failures are logged and skipped, and the summary counts reflect
// whatever completed. Only one run may execute at a time; overlapping
// triggers are skipped, not queued.
func (p *Pipeline) Run(ctx context.Context) *Summary {
	summary := &Summary{RunID: uuid.NewString()}
	log := p.logger.With(zap.String("run_id", summary.RunID))

	if !p.running.CompareAndSwap(false, true) {
		summary.Skipped = true
		summary.SkipReason = "another run is in progress"
		log.Warn("skipping pipeline run", zap.String("reason", summary.SkipReason))
		return summary
	}
	defer p.running.Store(false)

	if p.store.PrefBool(PausedPref, false) {
		summary.Skipped = true
		summary.SkipReason = "matcher is paused"
		log.Info("skipping pipeline run", zap.String("reason", summary.SkipReason))
		return summary
	}

	log.Info("starting matching pipeline")

	summary.Indexed = p.refreshIndex(ctx, log)

	resumeVec, err := p.index.LoadResumeVector()
	if err != nil {
		log.Error("loading resume vector", zap.Error(err))
		return summary
	}
	if resumeVec == nil {
		log.Warn("no resume vector persisted, nothing to match against")
		return summary
	}

	// The search always runs across the whole index, not just the vectors
	// added this run: relative ranking shifts as the corpus grows.
	hits := p.index.Search(resumeVec, p.cfg.TopK)
	if len(hits) == 0 {
		log.Info("vector search returned no candidates")
		return summary
	}

	profile, err := p.store.ActiveProfile()
	if err != nil {
		log.Error("loading active profile", zap.Error(err))
		return summary
	}

	candidates := p.collectCandidates(ctx, log, hits, profile)
	p.rerankCandidates(ctx, log, candidates, profile)

	for _, c := range candidates {
		c.match.RunID = summary.RunID
		c.match.FinalScore = fuse(c.match.EmbedScore, c.match.LLMScore) + c.roleModifier

		if c.match.FinalScore < p.cfg.Threshold {
			continue
		}

		if err := p.store.SaveMatch(c.match); err != nil {
			log.Warn("saving match", zap.Int64("job_id", c.match.JobID), zap.Error(err))
			continue
		}

		if p.gaps != nil {
			p.gaps.Record(c.match.SkillGaps)
		}
		summary.Matched++
	}

	log.Info("matching pipeline finished",
		zap.Int("indexed", summary.Indexed),
		zap.Int("matched", summary.Matched),
	)

	return summary
}

// refreshIndex embeds and inserts every unmatched job. Jobs whose embedding
// is unavailable are skipped and stay unmatched for the next run. Insertion
// is strictly sequential; position assignment is not safe for concurrent
// writers.
func (p *Pipeline) refreshIndex(ctx context.Context, log *zap.Logger) int {
	unmatched, err := p.store.UnmatchedJobs(p.cfg.UnmatchedLimit)
	if err != nil {
		log.Error("listing unmatched jobs", zap.Error(err))
		return 0
	}
	if len(unmatched) == 0 {
		log.Info("no new jobs to index")
		return 0
	}

	log.Info("embedding new jobs", zap.Int("count", len(unmatched)))

	texts := make([]string, len(unmatched))
	for i, rec := range unmatched {
		texts[i] = rec.Text()
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		log.Warn("batch embedding failed, falling back to per-job embedding", zap.Error(err))
		vectors = p.embedEach(ctx, log, texts)
	}

	indexed := 0
	for i, rec := range unmatched {
		if ctx.Err() != nil {
			log.Warn("run cancelled during indexing", zap.Int("indexed", indexed))
			break
		}
		if i >= len(vectors) || len(vectors[i]) == 0 {
			log.Debug("no embedding for job, skipping", zap.Int64("job_id", rec.ID))
			continue
		}
		p.index.Insert(rec.ID, vectors[i], index.Meta{Title: rec.Title, Company: rec.Company})
		indexed++
	}

	if err := p.index.Flush(); err != nil {
		log.Warn("flushing index", zap.Error(err))
	}

	log.Info("indexed jobs", zap.Int("count", indexed))
	return indexed
}

func (p *Pipeline) embedEach(ctx context.Context, log *zap.Logger, texts []string) [][]float32 {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if ctx.Err() != nil {
			break
		}
		vec, err := p.embedder.Embed(ctx, text)
		if err != nil {
			log.Debug("embedding failed", zap.Error(err))
			continue
		}
		vectors[i] = vec
	}
	return vectors
}

// candidate pairs a search hit with its job record and in-progress match.
type candidate struct {
	rec          *job.Record
	match        *job.Match
	roleModifier float64
	needsRerank  bool
}

func (p *Pipeline) collectCandidates(ctx context.Context, log *zap.Logger, hits []index.Hit, profile *job.Profile) []*candidate {
	candidates := make([]*candidate, 0, len(hits))

	for _, hit := range hits {
		if ctx.Err() != nil {
			log.Warn("run cancelled during scoring", zap.Int("candidates", len(candidates)))
			break
		}

		// Coarse filter: borderline cases stay in so the re-ranker gets a
		// chance at them instead of being dropped outright.
		if hit.Score < p.cfg.Threshold-p.cfg.CoarseMargin {
			continue
		}

		rec, err := p.store.JobByID(hit.JobID)
		if err != nil {
			log.Warn("loading job", zap.Int64("job_id", hit.JobID), zap.Error(err))
			continue
		}
		if rec == nil {
			// Dead index position from a removed job. Tolerated, not compacted.
			continue
		}

		c := p.buildCandidate(rec, hit.Score, profile)
		c.needsRerank = p.cfg.RerankEnabled && p.reranker != nil &&
			hit.Score >= p.cfg.RerankMin && hit.Score <= p.cfg.RerankMax
		candidates = append(candidates, c)
	}

	return candidates
}

// buildCandidate computes skill overlap, gaps, reasons and the role modifier
// for one job. The raw embedding score stays untouched; the modifier is
// applied only once, after fusion.
func (p *Pipeline) buildCandidate(rec *job.Record, embedScore float64, profile *job.Profile) *candidate {
	var candidateSkills map[string]struct{}
	var targetRoles []string
	if profile != nil {
		candidateSkills = profile.SkillSet()
		targetRoles = profile.TargetRoles
	}

	var overlap, gapSkills []string
	for _, skill := range rec.SkillSet() {
		if _, ok := candidateSkills[skill]; ok {
			if len(overlap) < maxOverlapRecorded {
				overlap = append(overlap, skill)
			}
			continue
		}
		if len(gapSkills) < maxGapsRecorded {
			gapSkills = append(gapSkills, skill)
		}
	}

	var reasons []string
	if len(overlap) > 0 {
		shown := overlap
		if len(shown) > 4 {
			shown = shown[:4]
		}
		reasons = append(reasons, "Skill match: "+joinSkills(shown))
	}
	if embedScore > 0.7 {
		reasons = append(reasons, "Strong semantic alignment with your profile")
	}
	if containsFold(rec.Description, "fresher") {
		reasons = append(reasons, "Open to freshers")
	}

	modifier, roleReason := roleAdjustment(rec.Title, targetRoles)
	if roleReason != "" {
		reasons = append(reasons, roleReason)
	}

	return &candidate{
		rec: rec,
		match: &job.Match{
			JobID:        rec.ID,
			EmbedScore:   embedScore,
			Reasons:      reasons,
			SkillOverlap: overlap,
			SkillGaps:    gapSkills,
		},
		roleModifier: modifier,
	}
}

// rerankCandidates runs the LLM re-rank for candidates inside the score band
// with a bounded worker pool. The band keeps the expensive path limited to
// borderline cases. Failures leave the candidate without an LLM score.
func (p *Pipeline) rerankCandidates(ctx context.Context, log *zap.Logger, candidates []*candidate, profile *job.Profile) {
	var skills []string
	if profile != nil {
		skills = profile.Skills
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.cfg.RerankWorkers)

	for _, c := range candidates {
		if !c.needsRerank {
			continue
		}

		group.Go(func() error {
			callCtx, cancel := context.WithTimeout(groupCtx, p.cfg.RerankTimeout)
			defer cancel()

			result, err := p.reranker.Rerank(callCtx, &rerank.Request{
				JobTitle:        c.rec.Title,
				JobCompany:      c.rec.Company,
				JobLocation:     c.rec.Location,
				JobDescription:  c.rec.Description,
				CandidateSkills: skills,
				EmbedScore:      c.match.EmbedScore,
			})
			if err != nil {
				log.Debug("rerank unavailable",
					zap.Int64("job_id", c.rec.ID),
					zap.Error(err),
				)
				return nil
			}

			score := result.Score
			c.match.LLMScore = &score
			c.match.LLMReasoning = result.Reasoning
			return nil
		})
	}

	// Workers only ever return nil; the group is used for bounding, not for
	// error propagation.
	_ = group.Wait()
}

// fuse blends the embedding score with the LLM score when one exists. The
// result is rounded to four decimals and deliberately not clamped: a role
// penalty added on top may push it negative, which simply fails admission.
func fuse(embedScore float64, llmScore *float64) float64 {
	if llmScore != nil {
		return round4(embedWeight*embedScore + llmWeight*(*llmScore))
	}
	return round4(embedScore)
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
