// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package locfile

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/wneessen/locpush/internal/geo"
	"github.com/wneessen/locpush/internal/location"
)

const name = "locfile"

var ErrNoCoordinates = fmt.Errorf("no valid coordinates found in geolocation file")

// Source reads the current position from a plain text file. Each non-comment
// line holds a "lat, lon" pair, optionally followed by an accuracy in meters.
// The first parseable line wins. Mostly useful for development and testing.
type Source struct {
	path string
}

// New initializes a file-backed Source for the given path.
func New(path string) *Source {
	return &Source{path: path}
}

// Name returns the name of the source.
func (s *Source) Name() string {
	return name
}

// CurrentPosition reads and parses the configured file.
func (s *Source) CurrentPosition(_ context.Context, acc location.Accuracy) (geo.Coordinate, error) {
	coord, err := s.readFile()
	if err != nil {
		return geo.Coordinate{}, err
	}
	if coord.Acc > float64(acc) {
		return geo.Coordinate{}, location.ErrNotAccurate
	}
	if !coord.Valid() {
		return geo.Coordinate{}, fmt.Errorf("geolocation file contains an invalid coordinate: %f/%f",
			coord.Lat, coord.Lon)
	}
	return coord, nil
}

// readFile reads geolocation data from the file at the configured path.
func (s *Source) readFile() (geo.Coordinate, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("failed to read geolocation file %q: %w", s.path, err)
	}
	lines := strings.Split(string(data), "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 2 && len(fields) != 3 {
			continue
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
		if err != nil {
			continue
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil {
			continue
		}
		// Without an explicit accuracy column we assume a good fix.
		acc := 10.0
		if len(fields) == 3 {
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64); err == nil {
				acc = parsed
			}
		}
		return geo.Coordinate{Lat: lat, Lon: lon, Acc: acc}, nil
	}
	return geo.Coordinate{}, ErrNoCoordinates
}
