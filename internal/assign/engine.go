// Package assign matches places to their nearest facility.
package assign

import (
	"math"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/catchment/internal/distance"
	"github.com/sells-group/catchment/internal/model"
)

// Outcome is the result of assigning a single place. Err is set when the
// place could not be matched, in which case Facility is empty.
type Outcome struct {
	Place      model.Place
	Facility   string
	DistanceKM float64
	ByID       bool
	Err        error
}

// OK reports whether the place was assigned.
func (o Outcome) OK() bool { return o.Err == nil }

// Report is the result of an assignment pass over a list of places.
type Report struct {
	Map      *Map
	Outcomes []Outcome
}

// Failures returns the outcomes of places that could not be assigned.
func (r *Report) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// Assignments converts successful outcomes to persisted assignment records.
func (r *Report) Assignments() []model.Assignment {
	out := make([]model.Assignment, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if !o.OK() {
			continue
		}
		out = append(out, model.Assignment{
			Facility:   o.Facility,
			PlaceID:    o.Place.ID,
			PlaceName:  o.Place.Name,
			Lat:        o.Place.Lat,
			Lng:        o.Place.Lng,
			DistanceKM: o.DistanceKM,
			ByID:       o.ByID,
		})
	}
	return out
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger used for per-place diagnostics. Defaults to zap.L().
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		e.log = l
	}
}

// Engine assigns places to the nearest of a fixed set of facilities.
type Engine struct {
	facilities []model.Facility
	points     []*geom.Point
	log        *zap.Logger
}

// NewEngine creates an Engine over facilities. The slice is copied.
func NewEngine(facilities []model.Facility, opts ...EngineOption) *Engine {
	e := &Engine{
		facilities: make([]model.Facility, len(facilities)),
		points:     make([]*geom.Point, len(facilities)),
	}
	copy(e.facilities, facilities)
	for i, f := range e.facilities {
		e.points[i] = f.Point()
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = zap.L()
	}
	e.log = e.log.With(zap.String("component", "assign"))
	return e
}

// Facilities returns a copy of the engine's facility list.
func (e *Engine) Facilities() []model.Facility {
	out := make([]model.Facility, len(e.facilities))
	copy(out, e.facilities)
	return out
}

// Assign builds a fresh Map with every facility registered, then assigns
// each place in order. Places that cannot be matched are reported in the
// outcomes and do not stop the pass.
func (e *Engine) Assign(places []model.Place) *Report {
	m := NewMap()
	e.register(m)

	r := &Report{Map: m, Outcomes: make([]Outcome, 0, len(places))}
	for _, p := range places {
		r.Outcomes = append(r.Outcomes, e.AssignPlace(m, p))
	}

	e.log.Info("assignment complete",
		zap.Int("facilities", m.Len()),
		zap.Int("places", len(places)),
		zap.Int("assigned", m.Assigned()),
		zap.Int("failed", len(r.Failures())),
	)
	return r
}

// AssignPlace finds the facility for place and appends place to it in m.
//
// A facility whose ID equals the place ID wins outright. Otherwise the
// facility with the smallest great-circle distance wins; on equal distances
// the earliest facility is kept. Facilities whose distance is NaN are never
// chosen. With no usable facility the outcome carries an *AssignmentError
// and m is left unchanged.
func (e *Engine) AssignPlace(m *Map, place model.Place) Outcome {
	e.register(m)
	e.log.Debug("evaluating place", zap.String("place", place.Name), zap.String("id", place.ID))

	pt := place.Point()
	best := -1
	var bestKM float64

	for i, f := range e.facilities {
		if place.ID != "" && place.ID == f.ID {
			m.Append(f.Name, place)
			e.log.Debug("assigned place by id", zap.String("place", place.Name), zap.String("facility", f.Name))
			return Outcome{Place: place, Facility: f.Name, ByID: true}
		}

		km := distance.Between(pt, e.points[i])
		if math.IsNaN(km) {
			e.log.Warn("skipping facility with unmeasurable distance",
				zap.String("place", place.Name),
				zap.String("facility", f.Name),
			)
			continue
		}
		if best < 0 || km < bestKM {
			best = i
			bestKM = km
		}
	}

	if best < 0 {
		reason := ErrNoFacilities
		if len(e.facilities) > 0 {
			reason = ErrNoMeasurableFacility
		}
		err := &AssignmentError{PlaceID: place.ID, PlaceName: place.Name, Err: reason}
		e.log.Error("no facility found for place",
			zap.String("place", place.Name),
			zap.String("id", place.ID),
			zap.Error(err),
		)
		return Outcome{Place: place, Err: err}
	}

	f := e.facilities[best]
	m.Append(f.Name, place)
	e.log.Debug("assigned place",
		zap.String("place", place.Name),
		zap.String("facility", f.Name),
		zap.Float64("distance_km", bestKM),
	)
	return Outcome{Place: place, Facility: f.Name, DistanceKM: bestKM}
}

func (e *Engine) register(m *Map) {
	for _, f := range e.facilities {
		m.Register(f.Name)
	}
}
