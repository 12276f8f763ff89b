package assign

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// ErrNoFacilities is the reason a place cannot be matched when the facility set is empty.
var ErrNoFacilities = eris.New("assign: no facilities to match against")

// ErrNoMeasurableFacility is the reason a place cannot be matched when no
// facility yields a comparable distance to it.
var ErrNoMeasurableFacility = eris.New("assign: no facility at a measurable distance")

// AssignmentError reports a place that could not be matched to any facility.
type AssignmentError struct {
	PlaceID   string
	PlaceName string
	Err       error
}

func (e *AssignmentError) Error() string {
	return fmt.Sprintf("assign: place %q (%s) not matched: %v", e.PlaceName, e.PlaceID, e.Err)
}

func (e *AssignmentError) Unwrap() error { return e.Err }
