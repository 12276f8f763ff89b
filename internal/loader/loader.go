// Package loader reads facility and place records from tabular files.
package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/catchment/internal/fetcher"
	"github.com/sells-group/catchment/internal/model"
)

// Columns names the header of each record field. Population is only used for places.
type Columns struct {
	ID         string
	Name       string
	Lat        string
	Lng        string
	Population string
}

// Options configures how files are read.
type Options struct {
	Source fetcher.SourceOptions
	// SkipInvalid records rows with unparseable coordinates in the batch
	// and keeps going. When false the first such row aborts the load.
	SkipInvalid bool
}

// RowError is a record that could not be loaded.
type RowError struct {
	File string
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Batch summarises a load: how many rows were read and which were rejected.
type Batch struct {
	Loaded int
	Errors []*RowError
}

func (b *Batch) merge(o *Batch) {
	b.Loaded += o.Loaded
	b.Errors = append(b.Errors, o.Errors...)
}

// LoadFacilities reads facilities from path.
func LoadFacilities(ctx context.Context, path string, cols Columns, opts Options) ([]model.Facility, *Batch, error) {
	var out []model.Facility
	batch, err := load(ctx, path, cols, false, opts, func(r record) {
		out = append(out, model.Facility{ID: r.id, Name: r.name, Lat: r.lat, Lng: r.lng})
	})
	if err != nil {
		return nil, nil, err
	}
	zap.L().Info("loaded facilities", zap.String("file", path), zap.Int("facilities", len(out)),
		zap.Int("rejected", len(batch.Errors)))
	return out, batch, nil
}

// LoadPlaces reads places from every path. Files are read concurrently and
// concatenated in the order given.
func LoadPlaces(ctx context.Context, paths []string, cols Columns, opts Options) ([]model.Place, *Batch, error) {
	perFile := make([][]model.Place, len(paths))
	batches := make([]*Batch, len(paths))

	g, gCtx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			b, err := load(gCtx, path, cols, true, opts, func(r record) {
				perFile[i] = append(perFile[i], model.Place{
					ID: r.id, Name: r.name, Lat: r.lat, Lng: r.lng, Population: r.population,
				})
			})
			if err != nil {
				return err
			}
			batches[i] = b
			zap.L().Info("loaded places", zap.String("file", path), zap.Int("places", len(perFile[i])),
				zap.Int("rejected", len(b.Errors)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	total := &Batch{}
	var out []model.Place
	for i := range paths {
		out = append(out, perFile[i]...)
		total.merge(batches[i])
	}
	return out, total, nil
}

type record struct {
	id, name, population string
	lat, lng             float64
}

func load(ctx context.Context, path string, cols Columns, withPopulation bool, opts Options, emit func(record)) (*Batch, error) {
	rowCh, errCh := fetcher.Open(ctx, path, opts.Source)

	batch := &Batch{}
	var idx *columnIndex
	var loadErr error

	for row := range rowCh {
		if loadErr != nil {
			continue // drain
		}
		if idx == nil {
			idx, loadErr = indexHeader(path, row.Fields, cols, withPopulation)
			continue
		}

		rec, err := idx.decode(row.Fields)
		if err != nil {
			rowErr := &RowError{File: path, Line: row.Line, Err: err}
			if !opts.SkipInvalid {
				loadErr = eris.Wrap(rowErr, "loader: invalid row")
				continue
			}
			zap.L().Warn("loader: skipping row", zap.String("file", path), zap.Int("line", row.Line), zap.Error(err))
			batch.Errors = append(batch.Errors, rowErr)
			continue
		}
		batch.Loaded++
		emit(rec)
	}

	for err := range errCh {
		if err != nil && loadErr == nil {
			loadErr = eris.Wrapf(err, "loader: read %s", path)
		}
	}
	if loadErr != nil {
		return nil, loadErr
	}
	if idx == nil {
		return nil, eris.Errorf("loader: %s has no header row", path)
	}
	return batch, nil
}

type columnIndex struct {
	id, name, lat, lng, population int
}

func indexHeader(path string, header []string, cols Columns, withPopulation bool) (*columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := pos[key]; !dup {
			pos[key] = i
		}
	}

	var missing []string
	find := func(name string) int {
		i, ok := pos[strings.ToLower(name)]
		if !ok {
			missing = append(missing, name)
			return -1
		}
		return i
	}

	idx := &columnIndex{
		id:         find(cols.ID),
		name:       find(cols.Name),
		lat:        find(cols.Lat),
		lng:        find(cols.Lng),
		population: -1,
	}
	if withPopulation {
		idx.population = find(cols.Population)
	}
	if len(missing) > 0 {
		return nil, eris.Errorf("loader: %s: missing columns %s", path, strings.Join(missing, ", "))
	}
	return idx, nil
}

func (c *columnIndex) decode(fields []string) (record, error) {
	get := func(i int) string {
		if i < 0 || i >= len(fields) {
			return ""
		}
		return fields[i]
	}

	lat, err := model.ParseCoordinate("lat", get(c.lat), model.MaxLatitude)
	if err != nil {
		return record{}, err
	}
	lng, err := model.ParseCoordinate("lng", get(c.lng), model.MaxLongitude)
	if err != nil {
		return record{}, err
	}
	return record{
		id:         get(c.id),
		name:       get(c.name),
		lat:        lat,
		lng:        lng,
		population: get(c.population),
	}, nil
}
