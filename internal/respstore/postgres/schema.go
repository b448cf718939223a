package postgres

// schema creates all tables and indexes if they don't exist. Statements
// are idempotent so every Open can run them unconditionally.
const schema = `
CREATE TABLE IF NOT EXISTS survey_responses (
    id TEXT PRIMARY KEY,
    response_id TEXT NOT NULL,
    session_id TEXT NOT NULL DEFAULT '',
    survey_id TEXT NOT NULL,
    interviewer_id TEXT NOT NULL,
    status TEXT NOT NULL,
    answers JSONB NOT NULL DEFAULT '[]'::jsonb,
    start_time TIMESTAMPTZ,
    end_time TIMESTAMPTZ,
    total_time_spent INTEGER NOT NULL DEFAULT 0,
    audio_recording TEXT,
    assigned_to TEXT,
    lease_expires_at TIMESTAMPTZ,
    reviewed_by TEXT,
    reviewed_at TIMESTAMPTZ,
    review_feedback TEXT,
    interview_mode TEXT NOT NULL DEFAULT '',
    selected_ac TEXT NOT NULL DEFAULT '',
    qc_batch TEXT NOT NULL DEFAULT '',
    is_sample BOOLEAN NOT NULL DEFAULT FALSE,
    last_skipped_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_responses_claim
    ON survey_responses (survey_id, status, created_at);

CREATE INDEX IF NOT EXISTS idx_responses_lease
    ON survey_responses (assigned_to, lease_expires_at);

CREATE INDEX IF NOT EXISTS idx_responses_bucket
    ON survey_responses (survey_id, interviewer_id, status);

CREATE INDEX IF NOT EXISTS idx_responses_session
    ON survey_responses (session_id);
`
