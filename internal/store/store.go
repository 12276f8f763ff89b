// Package store persists ranking runs.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/catchment/internal/config"
	"github.com/sells-group/catchment/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: run not found")

// Store defines the persistence interface for ranking runs.
type Store interface {
	// SaveRun writes run with its ranking and assignments. An empty ID or
	// zero CreatedAt is filled in before writing.
	SaveRun(ctx context.Context, run *model.Run) error
	// GetRun returns a run with its ranking and assignments.
	GetRun(ctx context.Context, id string) (*model.Run, error)
	// ListRuns returns run summaries, newest first, without ranking or assignments.
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// New opens the store selected by cfg.Driver.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns})
	case "none", "":
		return nil, eris.New("store: disabled (set store.driver to sqlite or postgres)")
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

func prepareRun(run *model.Run) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
}

// encodeLocation returns the EWKB encoding of a lat/lng point (SRID 4326).
func encodeLocation(lat, lng float64) ([]byte, error) {
	pt := geom.NewPointFlat(geom.XY, []float64{lng, lat}).SetSRID(4326)
	data, err := ewkb.Marshal(pt, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "store: encode location")
	}
	return data, nil
}

// decodeLocation reverses encodeLocation.
func decodeLocation(data []byte) (lat, lng float64, err error) {
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return 0, 0, eris.Wrap(err, "store: decode location")
	}
	pt, ok := g.(*geom.Point)
	if !ok {
		return 0, 0, eris.Errorf("store: location is %T, want point", g)
	}
	return pt.Y(), pt.X(), nil
}
