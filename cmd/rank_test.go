package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/catchment/internal/config"
	"github.com/sells-group/catchment/internal/model"
)

const (
	testStadiums = "nhl_team,id,lat,lng\n" +
		"Toronto Maple Leafs,1124279679,43.7417,-79.3733\n" +
		"Boston Bruins,1840000455,42.3188,-71.0852\n"
	testCities = "city_ascii,lat,lng,population,id\n" +
		"Toronto,43.7417,-79.3733,5429524,1124279679\n" +
		"Boston,42.3188,-71.0852,4688346,1840000455\n" +
		"Buffalo,42.9017,-78.8487,893418,1840000386\n" +
		"Worcester,42.2705,-71.8079,624800,1840000434\n"
)

func rankConfig(t *testing.T, cities string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	facilities := filepath.Join(dir, "nhl-stadiums.csv")
	places := filepath.Join(dir, "cities.csv")
	require.NoError(t, os.WriteFile(facilities, []byte(testStadiums), 0o644))
	require.NoError(t, os.WriteFile(places, []byte(cities), 0o644))

	return &config.Config{
		Input: config.InputConfig{
			Facilities:      facilities,
			Places:          []string{places},
			SkipInvalidRows: true,
			FacilityColumns: config.ColumnsConfig{ID: "id", Name: "nhl_team", Lat: "lat", Lng: "lng"},
			PlaceColumns:    config.ColumnsConfig{ID: "id", Name: "city_ascii", Lat: "lat", Lng: "lng", Population: "population"},
		},
		Output: config.OutputConfig{Format: "text"},
		Store:  config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(dir, "runs.db")},
	}
}

func TestRunRank_Text(t *testing.T) {
	c := rankConfig(t, testCities)
	var out, errOut bytes.Buffer

	require.NoError(t, runRank(context.Background(), c, false, &out, &errOut))

	assert.Equal(t, "Toronto Maple Leafs: 6322942\nBoston Bruins: 5313146\n", out.String())
	assert.Empty(t, errOut.String())
}

func TestRunRank_ShowFailures(t *testing.T) {
	c := rankConfig(t, testCities+"Nowhere,north,5,100,x\n")
	c.Output.ShowFailures = true
	var out, errOut bytes.Buffer

	require.NoError(t, runRank(context.Background(), c, false, &out, &errOut))

	assert.Contains(t, errOut.String(), "skipped row")
	assert.Contains(t, out.String(), "Toronto Maple Leafs: 6322942")
}

func TestRunRank_ProblemHint(t *testing.T) {
	c := rankConfig(t, testCities+"Nowhere,north,5,100,x\n")
	var out, errOut bytes.Buffer

	require.NoError(t, runRank(context.Background(), c, false, &out, &errOut))

	assert.Contains(t, errOut.String(), "--show-failures")
}

func TestRunRank_BadPopulationFails(t *testing.T) {
	c := rankConfig(t, testCities+"Providence,41.8230,-71.4187,lots,1840003289\n")
	var out bytes.Buffer

	err := runRank(context.Background(), c, false, &out, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "population")
	assert.Empty(t, out.String())
}

func TestRunRank_SaveThenList(t *testing.T) {
	c := rankConfig(t, testCities)
	var out, errOut bytes.Buffer

	require.NoError(t, runRank(context.Background(), c, true, &out, &errOut))
	assert.Contains(t, errOut.String(), "saved run ")

	st, err := initStore(context.Background(), c)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	runs, err := st.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].FacilityCount)
	assert.Equal(t, 4, runs[0].PlaceCount)

	run, err := st.GetRun(context.Background(), runs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Toronto Maple Leafs", run.Ranking[0].Facility)
	assert.Len(t, run.Assignments, 4)
}

func TestRunRank_SaveRequiresStore(t *testing.T) {
	c := rankConfig(t, testCities)
	c.Store.Driver = "none"

	err := runRank(context.Background(), c, true, &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver")
}

func TestApplyRankFlags(t *testing.T) {
	c := rankConfig(t, testCities)
	require.NoError(t, rankCmd.Flags().Parse([]string{
		"--places", "a.csv", "--places", "b.csv",
		"--format", "csv",
		"--tolerate-bad-population",
	}))

	require.NoError(t, applyRankFlags(rankCmd, c))
	assert.Equal(t, []string{"a.csv", "b.csv"}, c.Input.Places)
	assert.Equal(t, "csv", c.Output.Format)
	assert.True(t, c.Aggregate.TolerateBadPopulation)
	assert.Contains(t, c.Input.Facilities, "nhl-stadiums.csv")
}

func TestFormatRunsList(t *testing.T) {
	var buf bytes.Buffer
	formatRunsList(&buf, []model.Run{{
		ID:            "0f8fad5b-d9cb-469f-a165-70867728950e",
		CreatedAt:     time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
		FacilityCount: 32,
		PlaceCount:    1200,
		FailureCount:  3,
	}})

	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "0f8fad5b")
	assert.NotContains(t, out, "d9cb")
	assert.Contains(t, out, "2026-03-01 12:30")
	assert.Contains(t, out, "1200")
	assert.Contains(t, out, "UNASSIGNED")
}

func TestFormatAssignments(t *testing.T) {
	var buf bytes.Buffer
	formatAssignments(&buf, []model.Assignment{
		{Facility: "Boston Bruins", PlaceName: "Boston", PlaceID: "1840000455", ByID: true},
		{Facility: "Boston Bruins", PlaceName: "Worcester", PlaceID: "1840000434", DistanceKM: 59.64},
	})

	out := buf.String()
	assert.Contains(t, out, "id")
	assert.Contains(t, out, "nearest")
	assert.Contains(t, out, "59.6")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc", truncateID("abc"))
	assert.Equal(t, "12345678", truncateID("1234567890"))
}
