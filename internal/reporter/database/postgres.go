package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/logreporter-dev/logreporter/pkg/models"
)

// PostgreSQL is an implementation of Store using PostgreSQL
type PostgreSQL struct {
	pool *pgxpool.Pool
}

// NewPostgreSQL creates a new instance of the PostgreSQL store and applies
// pending migrations.
func NewPostgreSQL(ctx context.Context, connectionURI string) (*PostgreSQL, error) {
	config, err := pgxpool.ParseConfig(connectionURI)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PostgreSQL config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnIdleTime = 30 * time.Minute
	config.MaxConnLifetime = 2 * time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to acquire connection for migrations: %w", err)
	}
	defer conn.Release()

	if err := migrate(ctx, conn.Conn()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	return &PostgreSQL{pool: pool}, nil
}

func (db *PostgreSQL) SaveJob(ctx context.Context, rec *JobRecord) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := validate(rec); err != nil {
		return err
	}

	var result []byte
	if rec.Result != nil {
		var err error
		result, err = json.Marshal(rec.Result)
		if err != nil {
			return fmt.Errorf("failed to marshal job result: %w", err)
		}
	}

	query := `
        INSERT INTO aggregation_jobs (
            id, directory, service_name_filter, status, total_files, parsed_files,
            result, fault, created_at, updated_at, completed_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (id) DO UPDATE SET
            status       = EXCLUDED.status,
            total_files  = EXCLUDED.total_files,
            parsed_files = EXCLUDED.parsed_files,
            result       = EXCLUDED.result,
            fault        = EXCLUDED.fault,
            updated_at   = EXCLUDED.updated_at,
            completed_at = EXCLUDED.completed_at
    `

	_, err := db.pool.Exec(ctx, query,
		rec.ID,
		rec.Directory,
		rec.ServiceNameFilter,
		rec.Status,
		rec.TotalFiles,
		rec.ParsedFiles,
		result,
		rec.Fault,
		rec.CreatedAt,
		rec.UpdatedAt,
		rec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

const selectJobColumns = `
    SELECT id, directory, service_name_filter, status, total_files, parsed_files,
           result, fault, created_at, updated_at, completed_at
    FROM aggregation_jobs
`

func (db *PostgreSQL) GetJob(ctx context.Context, id string) (*JobRecord, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	row := db.pool.QueryRow(ctx, selectJobColumns+" WHERE id = $1", id)
	rec, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return rec, nil
}

func (db *PostgreSQL) ListJobs(ctx context.Context) ([]*JobRecord, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	rows, err := db.pool.Query(ctx, selectJobColumns+" ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var out []*JobRecord
	for rows.Next() {
		rec, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job rows: %w", err)
	}
	return out, nil
}

func (db *PostgreSQL) DeleteJob(ctx context.Context, id string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	tag, err := db.pool.Exec(ctx, "DELETE FROM aggregation_jobs WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database connection
func (db *PostgreSQL) Close() error {
	db.pool.Close()
	return nil
}

func scanJob(row pgx.Row) (*JobRecord, error) {
	var (
		rec    JobRecord
		result []byte
	)
	if err := row.Scan(
		&rec.ID,
		&rec.Directory,
		&rec.ServiceNameFilter,
		&rec.Status,
		&rec.TotalFiles,
		&rec.ParsedFiles,
		&result,
		&rec.Fault,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&rec.CompletedAt,
	); err != nil {
		return nil, err
	}

	if len(result) > 0 {
		var reports []models.ServiceReport
		if err := json.Unmarshal(result, &reports); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job result: %w", err)
		}
		rec.Result = reports
	}

	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	if rec.CompletedAt != nil {
		t := rec.CompletedAt.UTC()
		rec.CompletedAt = &t
	}
	return &rec, nil
}
