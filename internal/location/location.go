// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package location defines the sampler abstraction over platform position sources.
package location

import (
	"context"
	"errors"

	"github.com/wneessen/locpush/internal/geo"
)

// Accuracy is the requested accuracy tier of a position read, expressed as the
// maximum acceptable horizontal error in meters.
type Accuracy float64

const (
	AccuracyCountry Accuracy = 300000
	AccuracyRegion  Accuracy = 100000
	AccuracyCity    Accuracy = 15000
	AccuracyZip     Accuracy = 3000
	AccuracyStreet  Accuracy = 500
	AccuracyExact   Accuracy = 50
)

var (
	// ErrNotAccurate indicates the source produced a position worse than the
	// requested accuracy tier.
	ErrNotAccurate = errors.New("location source is not accurate enough")
	// ErrNoFix indicates the source has no usable position at all.
	ErrNoFix = errors.New("location source has no position fix")
)

// Source wraps a platform-provided "read current position" primitive.
type Source interface {
	Name() string
	CurrentPosition(ctx context.Context, acc Accuracy) (geo.Coordinate, error)
}
