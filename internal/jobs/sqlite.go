package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"slidecast/internal/pkg/errors"
)

// SQLiteRegistry persists jobs in a SQLite database so they survive a
// restart and can be shared between the api and worker binaries on one
// host.
type SQLiteRegistry struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the registry database at path.
func OpenSQLite(path string) (*SQLiteRegistry, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	const schema = `CREATE TABLE IF NOT EXISTS jobs (
        id TEXT PRIMARY KEY,
        request_json TEXT NOT NULL,
        status TEXT NOT NULL,
        progress INTEGER NOT NULL DEFAULT 0,
        output_path TEXT NOT NULL DEFAULT '',
        error_text TEXT NOT NULL DEFAULT '',
        created_at TEXT NOT NULL,
        started_at TEXT,
        finished_at TEXT
    )`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create jobs table: %w", err)
	}

	return &SQLiteRegistry{db: db}, nil
}

func (r *SQLiteRegistry) Create(ctx context.Context, req GenerationRequest) (*Job, error) {
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	job := &Job{
		ID:        uuid.NewString(),
		Request:   req,
		Status:    StatusQueued,
		CreatedAt: time.Now().UTC(),
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO jobs (id, request_json, status, created_at) VALUES (?, ?, ?, ?)`,
		job.ID, string(reqJSON), string(job.Status), job.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return job, nil
}

func (r *SQLiteRegistry) Get(ctx context.Context, id string) (*Job, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, request_json, status, progress, output_path, error_text,
                created_at, started_at, finished_at
         FROM jobs WHERE id = ?`, id)
	return scanJob(row, id)
}

func (r *SQLiteRegistry) Claim(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, started_at = ?
         WHERE id = ? AND status = ?`,
		string(StatusProcessing), time.Now().UTC().Format(time.RFC3339Nano),
		id, string(StatusQueued),
	)
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		return true, nil
	}

	// Lost the claim or the job does not exist; distinguish for the caller.
	if _, err := r.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *SQLiteRegistry) SetProgress(ctx context.Context, id string, progress int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET progress = ? WHERE id = ? AND status NOT IN (?, ?)`,
		clampProgress(progress), id, string(StatusDone), string(StatusFailed),
	)
	if err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}

func (r *SQLiteRegistry) Transition(ctx context.Context, id string, to Status, extra Extra) (*Job, error) {
	from, ok := soleSource(to)
	if !ok {
		current, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, transitionErr(current.Status, to)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	var res sql.Result
	var err error
	switch to {
	case StatusDone:
		res, err = r.db.ExecContext(ctx,
			`UPDATE jobs SET status = ?, output_path = ?, progress = 100, finished_at = ?
             WHERE id = ? AND status = ?`,
			string(to), extra.OutputPath, now, id, string(from),
		)
	case StatusFailed:
		res, err = r.db.ExecContext(ctx,
			`UPDATE jobs SET status = ?, error_text = ?, finished_at = ?
             WHERE id = ? AND status = ?`,
			string(to), extra.ErrorText, now, id, string(from),
		)
	case StatusProcessing:
		res, err = r.db.ExecContext(ctx,
			`UPDATE jobs SET status = ?, started_at = ?
             WHERE id = ? AND status = ?`,
			string(to), now, id, string(from),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("transition job: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		current, getErr := r.Get(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, transitionErr(current.Status, to)
	}

	return r.Get(ctx, id)
}

func (r *SQLiteRegistry) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE id = ? AND status = ?`, id, string(StatusQueued))
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return errors.Conflict("only queued jobs can be deleted")
	}
	return nil
}

func (r *SQLiteRegistry) Close() error {
	return r.db.Close()
}

// soleSource returns the only status a transition target is reachable
// from.
func soleSource(to Status) (Status, bool) {
	switch to {
	case StatusProcessing:
		return StatusQueued, true
	case StatusDone, StatusFailed:
		return StatusProcessing, true
	}
	return "", false
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner, id string) (*Job, error) {
	var (
		job                   Job
		reqJSON, status       string
		createdAt             string
		startedAt, finishedAt sql.NullString
	)

	err := row.Scan(&job.ID, &reqJSON, &status, &job.Progress,
		&job.OutputPath, &job.ErrorText, &createdAt, &startedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("job", id)
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	if err := json.Unmarshal([]byte(reqJSON), &job.Request); err != nil {
		return nil, fmt.Errorf("unmarshal request: %w", err)
	}
	job.Status = Status(status)
	job.CreatedAt = parseTime(createdAt)
	if startedAt.Valid {
		t := parseTime(startedAt.String)
		job.StartedAt = &t
	}
	if finishedAt.Valid {
		t := parseTime(finishedAt.String)
		job.FinishedAt = &t
	}

	return &job, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
