package store

const schema = `
CREATE TABLE IF NOT EXISTS lifecycle (
    pkg TEXT PRIMARY KEY,
    cran_date TEXT,
    first TEXT,
    latest TEXT
);

CREATE TABLE IF NOT EXISTS listings (
    label TEXT PRIMARY KEY,
    listing_date TEXT NOT NULL,
    loaded_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS listing_entries (
    label TEXT NOT NULL,
    position INTEGER NOT NULL,
    package TEXT NOT NULL,
    version TEXT,
    depends TEXT,
    license TEXT,
    PRIMARY KEY (label, position),
    FOREIGN KEY (label) REFERENCES listings(label) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS model_runs (
    id TEXT PRIMARY KEY,
    created_at TEXT NOT NULL,
    model TEXT NOT NULL,
    n INTEGER,
    events INTEGER,
    loglik REAL,
    lr_stat REAL,
    lr_df INTEGER,
    lr_p REAL,
    converged BOOLEAN
);

CREATE TABLE IF NOT EXISTS coefficients (
    run_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    term TEXT NOT NULL,
    estimate REAL,
    std_err REAL,
    z REAL,
    p REAL,
    PRIMARY KEY (run_id, position),
    FOREIGN KEY (run_id) REFERENCES model_runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_entries_package ON listing_entries(package);
CREATE INDEX IF NOT EXISTS idx_runs_created ON model_runs(created_at);
CREATE INDEX IF NOT EXISTS idx_runs_model ON model_runs(model);
`
