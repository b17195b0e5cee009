// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package gpsd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net"
	"time"

	"github.com/wneessen/locpush/internal/geo"
	"github.com/wneessen/locpush/internal/location"
)

const (
	fallbackAccuracy3DFix = 10  // ~10 m typical consumer GPS in open sky
	fallbackAccuracy2DFix = 25  // worse than 3D, but still accurate enough
	fallbackAccuracyNoFix = 1e6 // effectively unusable
	watchTimeout          = time.Second * 2
	name                  = "gpsd"
)

// Source reads single position fixes from a gpsd instance over TCP.
type Source struct {
	Addr string
}

// fix represents a single GPS fix from gpsd.
type fix struct {
	Lat  float64
	Lon  float64
	Acc  float64
	Mode int
}

// tpvResponse matches the subset of gpsd's TPV report we care about.
type tpvResponse struct {
	Class string  `json:"class"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Mode  int     `json:"mode"`
	Epx   float64 `json:"epx"`
	Epy   float64 `json:"epy"`
	Eph   float64 `json:"eph"`
}

// New constructs a new gpsd Source for the given host and port.
func New(host, port string) *Source {
	return &Source{
		Addr: net.JoinHostPort(host, port),
	}
}

// Name returns the name of the source.
func (s *Source) Name() string {
	return name
}

// CurrentPosition connects to gpsd, requests a WATCH and returns the first TPV
// report as a coordinate. Fixes below 2D mode or worse than the requested
// accuracy tier are rejected. The connection is closed before returning.
func (s *Source) CurrentPosition(ctx context.Context, acc location.Accuracy) (geo.Coordinate, error) {
	f, err := s.poll(ctx)
	if err != nil {
		return geo.Coordinate{}, err
	}
	if f.Mode < 2 {
		return geo.Coordinate{}, location.ErrNoFix
	}
	if f.Acc > float64(acc) {
		return geo.Coordinate{}, location.ErrNotAccurate
	}

	coord := geo.Coordinate{
		Lat: geo.Truncate(f.Lat, geo.TruncPrecision),
		Lon: geo.Truncate(f.Lon, geo.TruncPrecision),
		Acc: f.Acc,
	}
	if !coord.Valid() {
		return geo.Coordinate{}, fmt.Errorf("gpsd returned an invalid coordinate: %f/%f", f.Lat, f.Lon)
	}
	return coord, nil
}

// poll dials gpsd, enables the watch stream and waits for the first TPV entry.
func (s *Source) poll(ctx context.Context) (fix, error) {
	var zero fix

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", s.Addr)
	if err != nil {
		return zero, fmt.Errorf("gpsd: dial: %w", err)
	}
	defer func() {
		_ = conn.Close()
	}()

	// Respect context deadline if present, otherwise we add a safety net so we don't hang
	// forever if ctx has no deadline.
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(watchTimeout))
	}

	if _, err = fmt.Fprint(conn, `?WATCH={"enable":true,"json":true}`+"\n"); err != nil {
		return zero, fmt.Errorf("gpsd: write WATCH: %w", err)
	}

	// Wait for a TPV response or timeout.
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		var resp tpvResponse

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if err = json.Unmarshal(line, &resp); err != nil {
			continue
		}
		if resp.Class != "TPV" {
			continue
		}

		return fix{
			Lat:  resp.Lat,
			Lon:  resp.Lon,
			Acc:  horizontalAccuracyMeters(resp),
			Mode: resp.Mode,
		}, nil
	}

	if err = scanner.Err(); err != nil {
		return zero, fmt.Errorf("failed to scan gpsd response: %w", err)
	}

	return zero, fmt.Errorf("no TPV response received from gpsd")
}

func horizontalAccuracyMeters(tpv tpvResponse) float64 {
	switch {
	case tpv.Eph > 0:
		return tpv.Eph
	case tpv.Epx > 0 && tpv.Epy > 0:
		// sqrt(epx² + epy²)
		return math.Hypot(tpv.Epx, tpv.Epy)
	default:
		return horizontalAccuracyFallback(tpv)
	}
}

func horizontalAccuracyFallback(tpv tpvResponse) float64 {
	switch tpv.Mode {
	case 3:
		return fallbackAccuracy3DFix
	case 2:
		return fallbackAccuracy2DFix
	default:
		return fallbackAccuracyNoFix
	}
}
