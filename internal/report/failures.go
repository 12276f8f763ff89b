package report

import (
	"fmt"
	"io"

	"github.com/sells-group/catchment/internal/aggregate"
	"github.com/sells-group/catchment/internal/assign"
	"github.com/sells-group/catchment/internal/loader"
)

// Problems collects everything that kept a record out of the ranking or
// changed how it counted.
type Problems struct {
	Load       []*loader.RowError
	Unassigned []assign.Outcome
	Population []aggregate.Issue
}

// Count returns the total number of problems.
func (p Problems) Count() int {
	return len(p.Load) + len(p.Unassigned) + len(p.Population)
}

// WriteProblems prints one line per problem, grouped by kind.
func WriteProblems(w io.Writer, p Problems) error {
	for _, e := range p.Load {
		if _, err := fmt.Fprintf(w, "skipped row %s\n", e.Error()); err != nil {
			return err
		}
	}
	for _, o := range p.Unassigned {
		if _, err := fmt.Fprintf(w, "unassigned %s (%s): %v\n", o.Place.Name, o.Place.ID, o.Err); err != nil {
			return err
		}
	}
	for _, i := range p.Population {
		if _, err := fmt.Fprintf(w, "population counted as 0 for %s (%s) under %s: %v\n",
			i.Place.Name, i.Place.ID, i.Facility, i.Err); err != nil {
			return err
		}
	}
	return nil
}
