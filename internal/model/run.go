package model

import "time"

// Run is a persisted ranking run. FailureCount is the number of places
// that could not be assigned to any facility.
type Run struct {
	ID            string       `json:"id"`
	CreatedAt     time.Time    `json:"created_at"`
	FacilityCount int          `json:"facility_count"`
	PlaceCount    int          `json:"place_count"`
	FailureCount  int          `json:"failure_count"`
	Ranking       []Ranked     `json:"ranking"`
	Assignments   []Assignment `json:"assignments,omitempty"`
}

// Assignment records which facility a place was assigned to and why.
type Assignment struct {
	Facility   string  `json:"facility"`
	PlaceID    string  `json:"place_id"`
	PlaceName  string  `json:"place_name"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	DistanceKM float64 `json:"distance_km"`
	ByID       bool    `json:"by_id"`
}
