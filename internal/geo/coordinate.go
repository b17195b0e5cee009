// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geo

import (
	"math"
)

const (
	// EarthRadius is the mean radius of the Earth in meters.
	EarthRadius = 6371000.0

	// DefaultThresholdMeters is the default minimum movement between two
	// coordinates before a new sample is considered worth transmitting.
	DefaultThresholdMeters = 10.0

	// TruncPrecision is the number of decimal places coordinates are truncated to.
	TruncPrecision = 6
)

// Coordinate represents a geographic coordinate.
type Coordinate struct {
	Lat float64
	Lon float64
	Acc float64
}

// Valid checks if the coordinate is valid according to the EPSG logic
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// DistanceMeters returns the great-circle distance between two coordinates in
// meters. We are using the Haversine formula to calculate the distance between
// two points on a sphere (in our case: Earth).
func DistanceMeters(a, b Coordinate) float64 {
	dLat := (a.Lat - b.Lat) * math.Pi / 180
	dLon := (a.Lon - b.Lon) * math.Pi / 180
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadius * math.Asin(math.Sqrt(h))
}

// Truncate cuts off the given float after precision decimal places without rounding.
func Truncate(x float64, precision int) float64 {
	p := math.Pow(10, float64(precision))
	return math.Trunc(x*p) / p
}
