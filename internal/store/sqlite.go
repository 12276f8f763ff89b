package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/catchment/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	facility_count INTEGER NOT NULL,
	place_count    INTEGER NOT NULL,
	failure_count  INTEGER NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_rankings (
	run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	rank       INTEGER NOT NULL,
	facility   TEXT NOT NULL,
	population REAL NOT NULL,
	places     INTEGER NOT NULL,
	PRIMARY KEY (run_id, rank)
);

CREATE TABLE IF NOT EXISTS run_assignments (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq         INTEGER NOT NULL,
	facility    TEXT NOT NULL,
	place_id    TEXT NOT NULL,
	place_name  TEXT NOT NULL,
	distance_km REAL NOT NULL,
	by_id       INTEGER NOT NULL,
	location    BLOB NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_run_assignments_facility ON run_assignments(run_id, facility);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *model.Run) error {
	prepareRun(run)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, facility_count, place_count, failure_count, created_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.FacilityCount, run.PlaceCount, run.FailureCount, run.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
	}

	rankStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_rankings (run_id, rank, facility, population, places) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare ranking insert")
	}
	defer rankStmt.Close() //nolint:errcheck

	for i, r := range run.Ranking {
		if _, err := rankStmt.ExecContext(ctx, run.ID, i+1, r.Facility, r.Population, r.Places); err != nil {
			return eris.Wrapf(err, "sqlite: insert ranking %s", r.Facility)
		}
	}

	asgStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_assignments (run_id, seq, facility, place_id, place_name, distance_km, by_id, location)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare assignment insert")
	}
	defer asgStmt.Close() //nolint:errcheck

	for i, a := range run.Assignments {
		loc, err := encodeLocation(a.Lat, a.Lng)
		if err != nil {
			return err
		}
		if _, err := asgStmt.ExecContext(ctx, run.ID, i, a.Facility, a.PlaceID, a.PlaceName, a.DistanceKM, a.ByID, loc); err != nil {
			return eris.Wrapf(err, "sqlite: insert assignment %s", a.PlaceID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit run")
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, facility_count, place_count, failure_count, created_at FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get run %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT facility, population, places FROM run_rankings WHERE run_id = ? ORDER BY rank`, id)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query rankings")
	}
	defer rows.Close() //nolint:errcheck
	for rows.Next() {
		var r model.Ranked
		if err := rows.Scan(&r.Facility, &r.Population, &r.Places); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan ranking")
		}
		run.Ranking = append(run.Ranking, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate rankings")
	}

	arows, err := s.db.QueryContext(ctx,
		`SELECT facility, place_id, place_name, distance_km, by_id, location
		 FROM run_assignments WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query assignments")
	}
	defer arows.Close() //nolint:errcheck
	for arows.Next() {
		var a model.Assignment
		var loc []byte
		if err := arows.Scan(&a.Facility, &a.PlaceID, &a.PlaceName, &a.DistanceKM, &a.ByID, &loc); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan assignment")
		}
		if a.Lat, a.Lng, err = decodeLocation(loc); err != nil {
			return nil, err
		}
		run.Assignments = append(run.Assignments, a)
	}
	if err := arows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate assignments")
	}

	return run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, facility_count, place_count, failure_count, created_at
		 FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, *run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var run model.Run
	var createdAt time.Time
	if err := row.Scan(&run.ID, &run.FacilityCount, &run.PlaceCount, &run.FailureCount, &createdAt); err != nil {
		return nil, err
	}
	run.CreatedAt = createdAt.UTC()
	return &run, nil
}
