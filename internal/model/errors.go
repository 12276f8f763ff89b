package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Coordinate bounds in degrees.
const (
	MaxLatitude  = 90.0
	MaxLongitude = 180.0
)

// ParseError reports a coordinate or population field whose text is not a
// usable number.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: invalid number %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ParseFloat parses text as a float64, trimming surrounding whitespace.
// Failures are returned as *ParseError naming the field.
func ParseFloat(field, text string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, &ParseError{Field: field, Value: text, Err: err}
	}
	return v, nil
}

// ParseCoordinate parses text as a coordinate in degrees. NaN, infinities
// and values outside [-limit, limit] are returned as *ParseError.
func ParseCoordinate(field, text string, limit float64) (float64, error) {
	v, err := ParseFloat(field, text)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ParseError{Field: field, Value: text, Err: eris.New("coordinate must be finite")}
	}
	if v < -limit || v > limit {
		return 0, &ParseError{Field: field, Value: text, Err: eris.Errorf("coordinate must be within ±%g", limit)}
	}
	return v, nil
}
