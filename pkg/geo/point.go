package geo

import "math"

// Point is a weighted geographic location.
type Point struct {
	Lat    float64 `json:"lat" yaml:"lat"`
	Lon    float64 `json:"lon" yaml:"lon"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// Valid reports whether p has finite coordinates inside the lat/lon domain
// and a finite, non-negative weight.
func (p Point) Valid() bool {
	return finite(p.Lat) && finite(p.Lon) && finite(p.Weight) &&
		math.Abs(p.Lat) <= 90 && math.Abs(p.Lon) <= 180 && p.Weight >= 0
}
