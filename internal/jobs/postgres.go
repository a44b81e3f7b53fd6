package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"slidecast/internal/pkg/errors"
)

// PostgresRegistry persists jobs in PostgreSQL for multi-host
// deployments where api and worker binaries share a database.
type PostgresRegistry struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to the database and ensures the jobs table.
func OpenPostgres(ctx context.Context, databaseURL string) (*PostgresRegistry, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS jobs (
        id TEXT PRIMARY KEY,
        request_json TEXT NOT NULL,
        status TEXT NOT NULL,
        progress INT NOT NULL DEFAULT 0,
        output_path TEXT NOT NULL DEFAULT '',
        error_text TEXT NOT NULL DEFAULT '',
        created_at TIMESTAMPTZ NOT NULL,
        started_at TIMESTAMPTZ,
        finished_at TIMESTAMPTZ
    )`
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create jobs table: %w", err)
	}

	return &PostgresRegistry{pool: pool}, nil
}

func (r *PostgresRegistry) Create(ctx context.Context, req GenerationRequest) (*Job, error) {
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

	_, err = r.pool.Exec(ctx,
		`INSERT INTO jobs (id, request_json, status, created_at) VALUES ($1,$2,$3,$4)`,
		job.ID, string(reqJSON), string(job.Status), job.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return job, nil
}

func (r *PostgresRegistry) Get(ctx context.Context, id string) (*Job, error) {
	var (
		job                   Job
		reqJSON, status       string
		startedAt, finishedAt *time.Time
	)

	err := r.pool.QueryRow(ctx,
		`SELECT id, request_json, status, progress, output_path, error_text,
                created_at, started_at, finished_at
         FROM jobs WHERE id=$1`, id,
	).Scan(&job.ID, &reqJSON, &status, &job.Progress,
		&job.OutputPath, &job.ErrorText, &job.CreatedAt, &startedAt, &finishedAt)
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("job", id)
	}
	if err != nil {
		return nil, fmt.Errorf("query job: %w", err)
	}

	if err := json.Unmarshal([]byte(reqJSON), &job.Request); err != nil {
		return nil, fmt.Errorf("unmarshal request: %w", err)
	}
	job.Status = Status(status)
	job.StartedAt = startedAt
	job.FinishedAt = finishedAt

	return &job, nil
}

func (r *PostgresRegistry) Claim(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE jobs SET status=$1, started_at=NOW()
         WHERE id=$2 AND status=$3`,
		string(StatusProcessing), id, string(StatusQueued),
	)
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	if _, err := r.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (r *PostgresRegistry) SetProgress(ctx context.Context, id string, progress int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE jobs SET progress=$1 WHERE id=$2 AND status NOT IN ($3,$4)`,
		clampProgress(progress), id, string(StatusDone), string(StatusFailed),
	)
	if err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}

func (r *PostgresRegistry) Transition(ctx context.Context, id string, to Status, extra Extra) (*Job, error) {
	from, ok := soleSource(to)
	if !ok {
		current, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, transitionErr(current.Status, to)
	}

	var tag pgconn.CommandTag
	var err error
	switch to {
	case StatusDone:
		tag, err = r.pool.Exec(ctx,
			`UPDATE jobs SET status=$1, output_path=$2, progress=100, finished_at=NOW()
             WHERE id=$3 AND status=$4`,
			string(to), extra.OutputPath, id, string(from),
		)
	case StatusFailed:
		tag, err = r.pool.Exec(ctx,
			`UPDATE jobs SET status=$1, error_text=$2, finished_at=NOW()
             WHERE id=$3 AND status=$4`,
			string(to), extra.ErrorText, id, string(from),
		)
	case StatusProcessing:
		tag, err = r.pool.Exec(ctx,
			`UPDATE jobs SET status=$1, started_at=NOW()
             WHERE id=$2 AND status=$3`,
			string(to), id, string(from),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("transition job: %w", err)
	}

	if tag.RowsAffected() == 0 {
		current, getErr := r.Get(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, transitionErr(current.Status, to)
	}

	return r.Get(ctx, id)
}

func (r *PostgresRegistry) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM jobs WHERE id=$1 AND status=$2`, id, string(StatusQueued))
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return errors.Conflict("only queued jobs can be deleted")
	}
	return nil
}

func (r *PostgresRegistry) Close() error {
	r.pool.Close()
	return nil
}
