// Package aggregate totals assigned populations per facility and ranks them.
package aggregate

import (
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/catchment/internal/assign"
	"github.com/sells-group/catchment/internal/model"
)

// Options controls how population text is interpreted.
type Options struct {
	// TolerateBadPopulation counts unparseable populations as zero and
	// reports them as issues instead of failing the ranking.
	TolerateBadPopulation bool
}

// Issue records a place whose population could not be used.
type Issue struct {
	Facility string
	Place    model.Place
	Err      error
}

// Result is a ranking plus any tolerated population problems.
type Result struct {
	Ranking []model.Ranked
	Issues  []Issue
}

// Rank sums the population of every place assigned to each facility in m
// and orders facilities by total population, largest first. Facilities
// with equal totals keep their registration order. Blank population text
// counts as zero. m is not modified.
func Rank(m *assign.Map, opts Options) (*Result, error) {
	res := &Result{Ranking: make([]model.Ranked, 0, m.Len())}

	for _, facility := range m.Facilities() {
		places := m.Places(facility)
		total := 0.0
		for _, p := range places {
			n, err := Population(p.Population)
			if err != nil {
				if !opts.TolerateBadPopulation {
					return nil, eris.Wrapf(err, "aggregate: facility %q place %q", facility, p.ID)
				}
				zap.L().Warn("aggregate: counting unparseable population as zero",
					zap.String("facility", facility),
					zap.String("place", p.Name),
					zap.String("population", p.Population),
				)
				res.Issues = append(res.Issues, Issue{Facility: facility, Place: p, Err: err})
				continue
			}
			total += n
		}
		res.Ranking = append(res.Ranking, model.Ranked{
			Facility:   facility,
			Population: total,
			Places:     len(places),
		})
		zap.L().Debug("aggregate: facility total",
			zap.String("facility", facility),
			zap.Float64("total_population", total),
			zap.Int("places", len(places)),
		)
	}

	sort.SliceStable(res.Ranking, func(i, j int) bool {
		return res.Ranking[i].Population > res.Ranking[j].Population
	})
	return res, nil
}

// Population parses population text. Blank text is zero; text that is not
// a finite non-negative number is a *model.ParseError.
func Population(text string) (float64, error) {
	if strings.TrimSpace(text) == "" {
		return 0, nil
	}
	n, err := model.ParseFloat("population", text)
	if err != nil {
		return 0, err
	}
	if n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, &model.ParseError{
			Field: "population",
			Value: text,
			Err:   eris.New("population must be a finite non-negative number"),
		}
	}
	return n, nil
}
