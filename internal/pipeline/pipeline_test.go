package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/catchment/internal/assign"
	"github.com/sells-group/catchment/internal/config"
	"github.com/sells-group/catchment/internal/model"
	"github.com/sells-group/catchment/internal/store"
)

const stadiums = `nhl_team,id,lat,lng
Toronto Maple Leafs,1124279679,43.7417,-79.3733
Montreal Canadiens,1124586170,45.5089,-73.5617
Boston Bruins,1840000455,42.3188,-71.0852
`

const canada = `city_ascii,lat,lng,population,id
Toronto,43.7417,-79.3733,5429524,1124279679
Montreal,45.5089,-73.5617,3519595,1124586170
Hamilton,43.2567,-79.8692,693645,1124567288
Sherbrooke,45.4000,-71.9000,212105,1124559506
`

const us = `city_ascii,lat,lng,population,id
Boston,42.3188,-71.0852,4688346,1840000455
Worcester,42.2705,-71.8079,624800,1840000434
Buffalo,42.9017,-78.8487,893418,1840000386
`

func testConfig(t *testing.T, files map[string]string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return &config.Config{
		Input: config.InputConfig{
			Facilities:      filepath.Join(dir, "nhl-stadiums.csv"),
			Places:          []string{filepath.Join(dir, "canadacities.csv"), filepath.Join(dir, "uscities.csv")},
			SkipInvalidRows: true,
			FacilityColumns: config.ColumnsConfig{ID: "id", Name: "nhl_team", Lat: "lat", Lng: "lng"},
			PlaceColumns:    config.ColumnsConfig{ID: "id", Name: "city_ascii", Lat: "lat", Lng: "lng", Population: "population"},
		},
	}
}

func TestRun_RanksFacilities(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"nhl-stadiums.csv": stadiums,
		"canadacities.csv": canada,
		"uscities.csv":     us,
	})

	res, err := New(cfg, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []model.Ranked{
		{Facility: "Toronto Maple Leafs", Population: 5429524 + 693645 + 893418, Places: 3},
		{Facility: "Boston Bruins", Population: 4688346 + 624800, Places: 2},
		{Facility: "Montreal Canadiens", Population: 3519595 + 212105, Places: 2},
	}, res.Ranking)
	assert.Len(t, res.Places, 7)
	assert.Zero(t, res.Problems.Count())
	assert.Empty(t, res.RunID)
}

func TestRun_ReportsProblems(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"nhl-stadiums.csv": stadiums,
		"canadacities.csv": canada + "Nowhere,abc,1,5,x\n",
		"uscities.csv":     us,
	})

	res, err := New(cfg, nil).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Problems.Load, 1)
	assert.Equal(t, 6, res.Problems.Load[0].Line)
	assert.Zero(t, res.Run().FailureCount, "skipped rows are not assignment failures")
}

func TestRun_BadPopulationFailsUnlessTolerated(t *testing.T) {
	files := map[string]string{
		"nhl-stadiums.csv": stadiums,
		"canadacities.csv": canada + "Laval,45.6,-73.75,unknown,1124922301\n",
		"uscities.csv":     us,
	}

	_, err := New(testConfig(t, files), nil).Run(context.Background())
	require.Error(t, err)
	var pe *model.ParseError
	assert.True(t, errors.As(err, &pe))

	cfg := testConfig(t, files)
	cfg.Aggregate.TolerateBadPopulation = true
	res, err := New(cfg, nil).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Problems.Population, 1)
	assert.Equal(t, "Montreal Canadiens", res.Problems.Population[0].Facility)
	assert.Zero(t, res.Run().FailureCount)
}

func TestRun_NoFacilities(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"nhl-stadiums.csv": "nhl_team,id,lat,lng\n",
		"canadacities.csv": canada,
		"uscities.csv":     us,
	})

	res, err := New(cfg, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, res.Ranking)
	require.Len(t, res.Problems.Unassigned, 7)
	assert.ErrorIs(t, res.Problems.Unassigned[0].Err, assign.ErrNoFacilities)
	assert.Equal(t, 7, res.Run().FailureCount)
}

func TestRun_MissingPlacesFile(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"nhl-stadiums.csv": stadiums,
		"canadacities.csv": canada,
	})

	_, err := New(cfg, nil).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline: load places")
}

func TestRun_SavesToStore(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"nhl-stadiums.csv": stadiums,
		"canadacities.csv": canada,
		"uscities.csv":     us,
	})
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	res, err := New(cfg, st).Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)

	run, err := st.GetRun(context.Background(), res.RunID)
	require.NoError(t, err)
	assert.Equal(t, res.Ranking, run.Ranking)
	assert.Equal(t, 3, run.FacilityCount)
	assert.Equal(t, 7, run.PlaceCount)
	require.Len(t, run.Assignments, 7)

	byID := 0
	for _, a := range run.Assignments {
		if a.ByID {
			byID++
		}
	}
	assert.Equal(t, 3, byID)
}
