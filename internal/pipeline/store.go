package pipeline

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrJobNotFound is returned when a job id does not exist in the store.
var ErrJobNotFound = errors.New("job not found")

// Store persists jobs, their per-stage checkpoints, and the final curriculum.
type Store interface {
	CreateJob(ctx context.Context, job *Job) error
	UpdateJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context) ([]*Job, error)
	SaveCheckpoint(ctx context.Context, jobID string, stage Stage, payload []byte) error
	LoadCheckpoints(ctx context.Context, jobID string) (map[Stage][]byte, error)
	SaveResult(ctx context.Context, jobID string, result []byte) error
	GetResult(ctx context.Context, jobID string) ([]byte, error)
	Close() error
}

// SQLiteStore is the file-backed Store.
type SQLiteStore struct {
	db *sql.DB
}

// OpenStore creates or opens the job database at path.
func OpenStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// OpenMemoryStore creates an in-memory store (useful for testing and for
// running without persistence).
func OpenMemoryStore() (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	// The in-memory database vanishes when its last connection closes.
	db.SetMaxOpenConns(1)
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(schema)
	return err
}

// schema contains the full database schema. New tables are added here.
const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id TEXT PRIMARY KEY,
    status TEXT NOT NULL CHECK(status IN ('queued','running','completed','failed')),
    stage TEXT NOT NULL DEFAULT '',
    progress INTEGER NOT NULL DEFAULT 0,
    input TEXT NOT NULL,
    error TEXT NOT NULL DEFAULT '',
    result TEXT,
    created_at DATETIME NOT NULL DEFAULT (datetime('now')),
    updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_created ON jobs(created_at);

CREATE TABLE IF NOT EXISTS job_checkpoints (
    job_id TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
    stage TEXT NOT NULL,
    payload TEXT NOT NULL,
    committed_at DATETIME NOT NULL DEFAULT (datetime('now')),
    PRIMARY KEY(job_id, stage)
);
`

func (s *SQLiteStore) CreateJob(ctx context.Context, job *Job) error {
	input, err := json.Marshal(job.Input)
	if err != nil {
		return fmt.Errorf("marshaling job input: %w", err)
	}
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, status, stage, progress, input, error, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, string(job.Status), string(job.Stage), job.Progress, string(input), job.Error,
		job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting job: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateJob(ctx context.Context, job *Job) error {
	job.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, stage = ?, progress = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(job.Status), string(job.Stage), job.Progress, job.Error, job.UpdatedAt, job.ID)
	if err != nil {
		return fmt.Errorf("updating job: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, stage, progress, input, error, created_at, updated_at FROM jobs WHERE id = ?`, id)
	return scanJob(row)
}

func (s *SQLiteStore) ListJobs(ctx context.Context) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, stage, progress, input, error, created_at, updated_at FROM jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()
	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var job Job
	var status, stage, input string
	err := row.Scan(&job.ID, &status, &stage, &job.Progress, &input, &job.Error,
		&job.CreatedAt, &job.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning job: %w", err)
	}
	job.Status = Status(status)
	job.Stage = Stage(stage)
	if err := json.Unmarshal([]byte(input), &job.Input); err != nil {
		return nil, fmt.Errorf("unmarshaling job input: %w", err)
	}
	return &job, nil
}

func (s *SQLiteStore) SaveCheckpoint(ctx context.Context, jobID string, stage Stage, payload []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO job_checkpoints (job_id, stage, payload) VALUES (?, ?, ?)
		 ON CONFLICT(job_id, stage) DO UPDATE SET payload = excluded.payload, committed_at = datetime('now')`,
		jobID, string(stage), string(payload))
	if err != nil {
		return fmt.Errorf("saving checkpoint %s: %w", stage, err)
	}
	return nil
}

func (s *SQLiteStore) LoadCheckpoints(ctx context.Context, jobID string) (map[Stage][]byte, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stage, payload FROM job_checkpoints WHERE job_id = ?`, jobID)
	if err != nil {
		return nil, fmt.Errorf("loading checkpoints: %w", err)
	}
	defer rows.Close()
	checkpoints := make(map[Stage][]byte)
	for rows.Next() {
		var stage, payload string
		if err := rows.Scan(&stage, &payload); err != nil {
			return nil, fmt.Errorf("scanning checkpoint: %w", err)
		}
		checkpoints[Stage(stage)] = []byte(payload)
	}
	return checkpoints, rows.Err()
}

func (s *SQLiteStore) SaveResult(ctx context.Context, jobID string, result []byte) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET result = ?, updated_at = ? WHERE id = ?`,
		string(result), time.Now().UTC(), jobID)
	if err != nil {
		return fmt.Errorf("saving result: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (s *SQLiteStore) GetResult(ctx context.Context, jobID string) ([]byte, error) {
	var result sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT result FROM jobs WHERE id = ?`, jobID).Scan(&result)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading result: %w", err)
	}
	if !result.Valid {
		return nil, nil
	}
	return []byte(result.String), nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
