package model

import (
	"github.com/twpayne/go-geom"
)

// Facility is a fixed location that places are assigned to, such as an arena.
type Facility struct {
	ID   string  `json:"id" yaml:"id"`
	Name string  `json:"name" yaml:"name"`
	Lat  float64 `json:"lat" yaml:"lat"`
	Lng  float64 `json:"lng" yaml:"lng"`
}

// Point returns the facility location as an XY point (X = longitude, Y = latitude).
func (f Facility) Point() *geom.Point {
	return newPoint(f.Lat, f.Lng)
}

// Place is a populated location. Population is kept as the raw text from the
// source record; it is parsed when populations are aggregated.
type Place struct {
	ID         string  `json:"id" yaml:"id"`
	Name       string  `json:"name" yaml:"name"`
	Lat        float64 `json:"lat" yaml:"lat"`
	Lng        float64 `json:"lng" yaml:"lng"`
	Population string  `json:"population" yaml:"population"`
}

// Point returns the place location as an XY point (X = longitude, Y = latitude).
func (p Place) Point() *geom.Point {
	return newPoint(p.Lat, p.Lng)
}

func newPoint(lat, lng float64) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{lng, lat}).SetSRID(4326)
}

// Ranked is one line of the ranked result: a facility and the total
// population of the places assigned to it.
type Ranked struct {
	Facility   string  `json:"facility" yaml:"facility"`
	Population float64 `json:"population" yaml:"population"`
	Places     int     `json:"places" yaml:"places"`
}
