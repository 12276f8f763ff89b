// Package distance computes great-circle distances on a spherical earth.
package distance

import (
	"math"

	"github.com/twpayne/go-geom"

	"github.com/sells-group/catchment/internal/model"
)

// EarthRadiusKM is the mean earth radius used for every distance.
const EarthRadiusKM = 6371.0

// Haversine returns the great-circle distance in kilometers between two
// points given in decimal degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := radians(lat1)
	phi2 := radians(lat2)
	dPhi := radians(lat2 - lat1)
	dLambda := radians(lon2 - lon1)

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda

	// Rounding can push a a hair above 1 for antipodal points.
	if a > 1 {
		a = 1
	}
	return 2 * EarthRadiusKM * math.Asin(math.Sqrt(a))
}

// Between returns the great-circle distance in kilometers between two XY
// points where X is longitude and Y is latitude.
func Between(a, b *geom.Point) float64 {
	return Haversine(a.Y(), a.X(), b.Y(), b.X())
}

// FromText parses the four coordinates and returns the distance between
// them. A coordinate that is not a finite number in range yields a
// *model.ParseError.
func FromText(lat1, lon1, lat2, lon2 string) (float64, error) {
	fields := [4]struct {
		name, text string
		limit      float64
	}{
		{"lat1", lat1, model.MaxLatitude}, {"lon1", lon1, model.MaxLongitude},
		{"lat2", lat2, model.MaxLatitude}, {"lon2", lon2, model.MaxLongitude},
	}
	var v [4]float64
	for i, f := range fields {
		n, err := model.ParseCoordinate(f.name, f.text, f.limit)
		if err != nil {
			return 0, err
		}
		v[i] = n
	}
	return Haversine(v[0], v[1], v[2], v[3]), nil
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
