package store

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    external_id     TEXT UNIQUE,
    title           TEXT NOT NULL,
    company         TEXT NOT NULL,
    company_type    TEXT DEFAULT 'unknown',
    location        TEXT DEFAULT '',
    work_mode       TEXT DEFAULT 'onsite',
    salary_min      REAL,
    salary_max      REAL,
    experience_min  INTEGER DEFAULT 0,
    experience_max  INTEGER DEFAULT 2,
    description     TEXT DEFAULT '',
    skills_required TEXT DEFAULT '[]',
    apply_url       TEXT DEFAULT '',
    source          TEXT DEFAULT '',
    scraped_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    is_active       BOOLEAN DEFAULT 1
);

CREATE TABLE IF NOT EXISTS job_matches (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    job_id          INTEGER UNIQUE REFERENCES jobs(id) ON DELETE CASCADE,
    run_id          TEXT DEFAULT '',
    embed_score     REAL NOT NULL,
    llm_score       REAL,
    final_score     REAL NOT NULL,
    match_reasons   TEXT DEFAULT '[]',
    skill_overlap   TEXT DEFAULT '[]',
    skill_gaps      TEXT DEFAULT '[]',
    llm_reasoning   TEXT DEFAULT '',
    matched_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    seen            BOOLEAN DEFAULT 0
);

CREATE TABLE IF NOT EXISTS resume_versions (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    version         INTEGER NOT NULL,
    filename        TEXT DEFAULT '',
    raw_text        TEXT DEFAULT '',
    skills          TEXT DEFAULT '[]',
    tech_stack      TEXT DEFAULT '[]',
    experience_years REAL DEFAULT 0,
    summary         TEXT DEFAULT '',
    target_roles    TEXT DEFAULT '[]',
    strengths       TEXT DEFAULT '[]',
    created_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    is_active       BOOLEAN DEFAULT 1
);

CREATE TABLE IF NOT EXISTS skill_gaps (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    skill_name      TEXT NOT NULL UNIQUE,
    frequency       INTEGER DEFAULT 1,
    our_level       TEXT DEFAULT 'none',
    category        TEXT DEFAULT 'general',
    last_seen       TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS preferences (
    key             TEXT PRIMARY KEY,
    value           TEXT NOT NULL,
    updated_at      TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_jobs_active   ON jobs(is_active, scraped_at DESC);
CREATE INDEX IF NOT EXISTS idx_jobs_source   ON jobs(source);
CREATE INDEX IF NOT EXISTS idx_matches_score ON job_matches(final_score DESC);
CREATE INDEX IF NOT EXISTS idx_matches_job   ON job_matches(job_id);
CREATE INDEX IF NOT EXISTS idx_gaps_freq     ON skill_gaps(frequency DESC);
`
