// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package geo

// Gate decides whether a freshly sampled coordinate has moved far enough from the
// last transmitted one to be worth sending again.
type Gate struct {
	ThresholdMeters float64
}

// NewGate returns a Gate with the given distance threshold. A zero or negative
// threshold falls back to DefaultThresholdMeters.
func NewGate(threshold float64) Gate {
	if threshold <= 0 {
		threshold = DefaultThresholdMeters
	}
	return Gate{ThresholdMeters: threshold}
}

// ShouldSend reports whether next should be transmitted given the previously
// transmitted coordinate. A nil prev means no sample has been sent yet, which
// always results in a send. Otherwise the great-circle distance between prev
// and next must exceed the threshold.
func (g Gate) ShouldSend(prev *Coordinate, next Coordinate) bool {
	if prev == nil {
		return true
	}
	return DistanceMeters(*prev, next) > g.ThresholdMeters
}
