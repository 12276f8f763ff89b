package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/catchment/internal/db"
	"github.com/sells-group/catchment/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	facility_count INTEGER NOT NULL,
	place_count    INTEGER NOT NULL,
	failure_count  INTEGER NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_rankings (
	run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	rank       INTEGER NOT NULL,
	facility   TEXT NOT NULL,
	population DOUBLE PRECISION NOT NULL,
	places     INTEGER NOT NULL,
	PRIMARY KEY (run_id, rank)
);

CREATE TABLE IF NOT EXISTS run_assignments (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq         INTEGER NOT NULL,
	facility    TEXT NOT NULL,
	place_id    TEXT NOT NULL,
	place_name  TEXT NOT NULL,
	distance_km DOUBLE PRECISION NOT NULL,
	by_id       BOOLEAN NOT NULL,
	location    BYTEA NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_run_assignments_facility ON run_assignments(run_id, facility);
`

var (
	rankingColumns    = []string{"run_id", "rank", "facility", "population", "places"}
	assignmentColumns = []string{"run_id", "seq", "facility", "place_id", "place_name", "distance_km", "by_id", "location"}
)

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveRun(ctx context.Context, run *model.Run) error {
	prepareRun(run)

	rankRows := make([][]any, len(run.Ranking))
	for i, r := range run.Ranking {
		rankRows[i] = []any{run.ID, i + 1, r.Facility, r.Population, r.Places}
	}
	asgRows := make([][]any, len(run.Assignments))
	for i, a := range run.Assignments {
		loc, err := encodeLocation(a.Lat, a.Lng)
		if err != nil {
			return err
		}
		asgRows[i] = []any{run.ID, i, a.Facility, a.PlaceID, a.PlaceName, a.DistanceKM, a.ByID, loc}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO runs (id, facility_count, place_count, failure_count, created_at) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.FacilityCount, run.PlaceCount, run.FailureCount, run.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", run.ID)
	}

	if _, err := db.CopyFrom(ctx, tx, "run_rankings", rankingColumns, rankRows); err != nil {
		return eris.Wrap(err, "postgres: copy rankings")
	}
	if _, err := db.CopyFrom(ctx, tx, "run_assignments", assignmentColumns, asgRows); err != nil {
		return eris.Wrap(err, "postgres: copy assignments")
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit run")
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, facility_count, place_count, failure_count, created_at FROM runs WHERE id = $1`, id)
	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", id)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT facility, population, places FROM run_rankings WHERE run_id = $1 ORDER BY rank`, id)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query rankings")
	}
	for rows.Next() {
		var r model.Ranked
		if err := rows.Scan(&r.Facility, &r.Population, &r.Places); err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "postgres: scan ranking")
		}
		run.Ranking = append(run.Ranking, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate rankings")
	}

	arows, err := s.pool.Query(ctx,
		`SELECT facility, place_id, place_name, distance_km, by_id, location
		 FROM run_assignments WHERE run_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query assignments")
	}
	defer arows.Close()
	for arows.Next() {
		var a model.Assignment
		var loc []byte
		if err := arows.Scan(&a.Facility, &a.PlaceID, &a.PlaceName, &a.DistanceKM, &a.ByID, &loc); err != nil {
			return nil, eris.Wrap(err, "postgres: scan assignment")
		}
		if a.Lat, a.Lng, err = decodeLocation(loc); err != nil {
			return nil, err
		}
		run.Assignments = append(run.Assignments, a)
	}
	if err := arows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate assignments")
	}

	return run, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, facility_count, place_count, failure_count, created_at
		 FROM runs ORDER BY created_at DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}
