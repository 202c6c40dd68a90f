package postgres

// Migrations — схема сервиса. SQL встроен в код для упрощения деплоя,
// порядок версий менять нельзя, только дописывать новые.
var Migrations = []Migration{
	{1, migration001Economy},
	{2, migration002Streaks},
	{3, migration003Content},
	{4, migration004Votes},
	{5, migration005Outbox},
	{6, migration006Leaderboard},
	{7, migration007Admin},
}

var migration001Economy = `
CREATE TABLE IF NOT EXISTS ledger_entries (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    points BIGINT NOT NULL CHECK (points > 0),
    direction VARCHAR(3) NOT NULL CHECK (direction IN ('in', 'out')),
    action VARCHAR(32) NOT NULL,
    related_entity_id VARCHAR(64) NOT NULL,
    related_entity_kind VARCHAR(32) NOT NULL,
    occurred_on DATE NOT NULL,
    idempotency_key VARCHAR(128),
    created_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS uq_ledger_daily_login
    ON ledger_entries(user_id, occurred_on) WHERE action = 'dailyLogin';
CREATE UNIQUE INDEX IF NOT EXISTS uq_ledger_idempotency_key
    ON ledger_entries(idempotency_key) WHERE idempotency_key IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_ledger_user_created ON ledger_entries(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS balances (
    user_id BIGINT PRIMARY KEY,
    balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
    total_earned BIGINT NOT NULL DEFAULT 0,
    total_spent BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ DEFAULT NOW(),
    updated_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_balances_rank ON balances(balance DESC, user_id ASC);
`

var migration002Streaks = `
CREATE TABLE IF NOT EXISTS streaks (
    user_id BIGINT PRIMARY KEY,
    current_streak INTEGER NOT NULL DEFAULT 0 CHECK (current_streak >= 0),
    longest_streak INTEGER NOT NULL DEFAULT 0,
    last_activity_at TIMESTAMPTZ,
    last_streak_update_at TIMESTAMPTZ,
    version BIGINT NOT NULL DEFAULT 1,
    created_at TIMESTAMPTZ DEFAULT NOW(),
    updated_at TIMESTAMPTZ DEFAULT NOW(),
    CHECK (longest_streak >= current_streak)
);
CREATE INDEX IF NOT EXISTS idx_streaks_last_activity ON streaks(last_activity_at) WHERE current_streak > 0;
`

var migration003Content = `
CREATE TABLE IF NOT EXISTS questions (
    id VARCHAR(64) PRIMARY KEY,
    author_id BIGINT NOT NULL,
    title VARCHAR(300) NOT NULL,
    body TEXT NOT NULL,
    answer_count INTEGER NOT NULL DEFAULT 0 CHECK (answer_count >= 0),
    created_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS answers (
    id VARCHAR(64) PRIMARY KEY,
    question_id VARCHAR(64) NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
    author_id BIGINT NOT NULL,
    body TEXT NOT NULL,
    created_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_answers_question ON answers(question_id, created_at);
`

var migration004Votes = `
CREATE TABLE IF NOT EXISTS votes (
    content_id VARCHAR(64) NOT NULL,
    user_id BIGINT NOT NULL,
    created_at TIMESTAMPTZ DEFAULT NOW(),
    PRIMARY KEY (content_id, user_id)
);
CREATE TABLE IF NOT EXISTS vote_tallies (
    content_id VARCHAR(64) PRIMARY KEY,
    vote_count INTEGER NOT NULL DEFAULT 0 CHECK (vote_count >= 0),
    updated_at TIMESTAMPTZ DEFAULT NOW()
);
`

var migration005Outbox = `
CREATE TABLE IF NOT EXISTS point_outbox (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    points BIGINT NOT NULL,
    action VARCHAR(32) NOT NULL,
    related_entity_id VARCHAR(64) NOT NULL,
    related_entity_kind VARCHAR(32) NOT NULL,
    occurred_on DATE NOT NULL,
    idempotency_key VARCHAR(128) NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'pending',
    attempts INTEGER NOT NULL DEFAULT 0,
    next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    locked_until TIMESTAMPTZ,
    last_error TEXT,
    created_at TIMESTAMPTZ DEFAULT NOW(),
    updated_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_outbox_due ON point_outbox(next_attempt_at) WHERE status = 'pending';
CREATE INDEX IF NOT EXISTS idx_outbox_entity ON point_outbox(related_entity_kind, related_entity_id);
`

var migration006Leaderboard = `
CREATE TABLE IF NOT EXISTS leaderboard_snapshots (
    id BIGSERIAL PRIMARY KEY,
    period VARCHAR(16) NOT NULL,
    rank INTEGER NOT NULL,
    user_id BIGINT NOT NULL,
    balance BIGINT NOT NULL,
    taken_at TIMESTAMPTZ NOT NULL,
    UNIQUE (period, user_id)
);
CREATE TABLE IF NOT EXISTS job_runs (
    job VARCHAR(64) NOT NULL,
    period VARCHAR(32) NOT NULL,
    holder VARCHAR(128) NOT NULL,
    started_at TIMESTAMPTZ DEFAULT NOW(),
    PRIMARY KEY (job, period)
);
`

var migration007Admin = `
CREATE TABLE IF NOT EXISTS admin_key_attempts (
    id BIGSERIAL PRIMARY KEY,
    source VARCHAR(64) NOT NULL,
    attempt_time TIMESTAMPTZ DEFAULT NOW(),
    success BOOLEAN NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_admin_attempts_source ON admin_key_attempts(source, attempt_time);
`
