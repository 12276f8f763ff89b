package fetcher

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestShapefile(t *testing.T, points [][2]float64, names []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arenas.shp")
	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)

	require.NoError(t, w.SetFields([]shp.Field{
		shp.StringField("NAME", 40),
		shp.StringField("ID", 12),
	}))
	for i, p := range points {
		n := w.Write(&shp.Point{X: p[0], Y: p[1]})
		require.NoError(t, w.WriteAttribute(int(n), 0, names[i]))
		require.NoError(t, w.WriteAttribute(int(n), 1, names[i]+"-id"))
	}
	w.Close()
	return path
}

func TestStreamShapefile_Points(t *testing.T) {
	path := createTestShapefile(t,
		[][2]float64{{-79.3791, 43.6435}, {-73.5693, 45.4961}},
		[]string{"Toronto", "Montreal"},
	)

	rows, err := Collect(StreamShapefile(context.Background(), path))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"name", "id", ShapeLatColumn, ShapeLngColumn}, rows[0].Fields)
	assert.Equal(t, []string{"Toronto", "Toronto-id", "43.6435", "-79.3791"}, rows[1].Fields)
	assert.Equal(t, 2, rows[1].Line)
	assert.Equal(t, "Montreal", rows[2].Fields[0])
	assert.Equal(t, 3, rows[2].Line)
}

func TestStreamShapefile_MissingFile(t *testing.T) {
	_, err := Collect(StreamShapefile(context.Background(), filepath.Join(t.TempDir(), "none.shp")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shapefile: open")
}
