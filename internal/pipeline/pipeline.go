// Package pipeline runs a full ranking: load, assign, aggregate, persist.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/catchment/internal/aggregate"
	"github.com/sells-group/catchment/internal/assign"
	"github.com/sells-group/catchment/internal/config"
	"github.com/sells-group/catchment/internal/fetcher"
	"github.com/sells-group/catchment/internal/loader"
	"github.com/sells-group/catchment/internal/model"
	"github.com/sells-group/catchment/internal/report"
	"github.com/sells-group/catchment/internal/store"
)

// Result is everything a ranking run produced.
type Result struct {
	Facilities []model.Facility
	Places     []model.Place
	Assignment *assign.Report
	Ranking    []model.Ranked
	Problems   report.Problems
	RunID      string
	Elapsed    time.Duration
}

// Pipeline ties the loaders, the assignment engine and the aggregator together.
type Pipeline struct {
	cfg   *config.Config
	store store.Store
}

// New creates a Pipeline. st may be nil, in which case runs are not persisted.
func New(cfg *config.Config, st store.Store) *Pipeline {
	return &Pipeline{cfg: cfg, store: st}
}

// Run loads the configured inputs, assigns every place, ranks facilities
// and, when a store is configured, saves the run.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	in := p.cfg.Input
	opts := loader.Options{
		Source: fetcher.SourceOptions{
			Encoding:  in.Encoding,
			SheetName: in.SheetName,
			Fetcher: fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
				UserAgent:     in.HTTP.UserAgent,
				Timeout:       in.HTTP.Timeout,
				MaxRetries:    in.HTTP.MaxRetries,
				RatePerSecond: in.HTTP.RatePerSecond,
			}),
		},
		SkipInvalid: in.SkipInvalidRows,
	}

	facilities, fBatch, err := loader.LoadFacilities(ctx, in.Facilities, columns(in.FacilityColumns), opts)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load facilities")
	}
	if len(facilities) == 0 {
		zap.L().Warn("pipeline: no facilities loaded; every place will be unassigned",
			zap.String("file", in.Facilities))
	}

	places, pBatch, err := loader.LoadPlaces(ctx, in.Places, columns(in.PlaceColumns), opts)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load places")
	}

	asg := assign.NewEngine(facilities).Assign(places)

	ranked, err := aggregate.Rank(asg.Map, aggregate.Options{
		TolerateBadPopulation: p.cfg.Aggregate.TolerateBadPopulation,
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: aggregate")
	}

	res := &Result{
		Facilities: facilities,
		Places:     places,
		Assignment: asg,
		Ranking:    ranked.Ranking,
		Problems: report.Problems{
			Load:       append(append([]*loader.RowError{}, fBatch.Errors...), pBatch.Errors...),
			Unassigned: asg.Failures(),
			Population: ranked.Issues,
		},
	}

	if p.store != nil {
		run := res.Run()
		if err := p.store.SaveRun(ctx, run); err != nil {
			return nil, eris.Wrap(err, "pipeline: save run")
		}
		res.RunID = run.ID
		zap.L().Info("pipeline: run saved", zap.String("run_id", run.ID))
	}

	res.Elapsed = time.Since(start)
	zap.L().Info("pipeline: ranking complete",
		zap.Int("facilities", len(facilities)),
		zap.Int("places", len(places)),
		zap.Int("problems", res.Problems.Count()),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

// Run converts the result to its persisted form.
func (r *Result) Run() *model.Run {
	return &model.Run{
		FacilityCount: len(r.Facilities),
		PlaceCount:    len(r.Places),
		FailureCount:  len(r.Problems.Unassigned),
		Ranking:       r.Ranking,
		Assignments:   r.Assignment.Assignments(),
	}
}

func columns(c config.ColumnsConfig) loader.Columns {
	return loader.Columns{
		ID:         c.ID,
		Name:       c.Name,
		Lat:        c.Lat,
		Lng:        c.Lng,
		Population: c.Population,
	}
}
