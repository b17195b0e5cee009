// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geo

import (
	"time"
)

// Sample is the payload of a single location transmission. It is produced fresh
// for every send and never mutated afterwards.
type Sample struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp string  `json:"timestamp"`
}

// NewSample creates a Sample from the given coordinate with a freshly generated
// RFC 3339 timestamp in UTC.
func NewSample(c Coordinate, at time.Time) Sample {
	return Sample{
		Latitude:  c.Lat,
		Longitude: c.Lon,
		Timestamp: at.UTC().Format(time.RFC3339),
	}
}

// Coordinate returns the coordinate the sample was taken at.
func (s Sample) Coordinate() Coordinate {
	return Coordinate{Lat: s.Latitude, Lon: s.Longitude}
}
