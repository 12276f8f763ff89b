package fetcher

import (
	"context"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
)

// Column names appended to every shapefile row for the point geometry.
const (
	ShapeLatColumn = "shape_lat"
	ShapeLngColumn = "shape_lng"
)

// StreamShapefile reads a point shapefile and sends its DBF attributes as
// rows. The first row is a header of the DBF field names (lowercased) plus
// ShapeLatColumn and ShapeLngColumn, filled from each point. Records without
// a point geometry are skipped. Both channels are closed when processing completes.
func StreamShapefile(ctx context.Context, path string) (<-chan Row, <-chan error) {
	rowCh := make(chan Row, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader, err := shp.Open(path)
		if err != nil {
			errCh <- eris.Wrapf(err, "shapefile: open %s", path)
			return
		}
		defer func() { _ = reader.Close() }()

		fields := reader.Fields()
		header := make([]string, 0, len(fields)+2)
		for _, f := range fields {
			header = append(header, strings.ToLower(strings.TrimRight(f.String(), "\x00")))
		}
		header = append(header, ShapeLatColumn, ShapeLngColumn)

		send := func(row Row) bool {
			select {
			case rowCh <- row:
				return true
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "shapefile: context cancelled")
				return false
			}
		}
		if !send(Row{Line: 1, Fields: header}) {
			return
		}

		var skipped int
		for reader.Next() {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "shapefile: context cancelled")
				return
			}

			n, shape := reader.Shape()
			pt := toPoint(shape)
			if pt == nil {
				skipped++
				continue
			}

			row := make([]string, 0, len(header))
			for i := range fields {
				val := strings.TrimRight(reader.Attribute(i), "\x00")
				row = append(row, strings.TrimSpace(val))
			}
			row = append(row,
				strconv.FormatFloat(pt.Y(), 'f', -1, 64),
				strconv.FormatFloat(pt.X(), 'f', -1, 64),
			)

			// Record numbers are 0-based; the header occupies line 1.
			if !send(Row{Line: n + 2, Fields: row}) {
				return
			}
		}

		if skipped > 0 {
			zap.L().Debug("shapefile: skipped records without point geometry",
				zap.String("path", path),
				zap.Int("skipped", skipped),
			)
		}
	}()

	return rowCh, errCh
}

func toPoint(shape shp.Shape) *geom.Point {
	switch s := shape.(type) {
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y})
	case *shp.PointZ:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y})
	case *shp.PointM:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y})
	default:
		return nil
	}
}
