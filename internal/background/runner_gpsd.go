// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package background

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/stratoberry/go-gpsd"

	"github.com/wneessen/locpush/internal/geo"
	"github.com/wneessen/locpush/internal/logger"
)

const reconnectDelay = time.Second * 30

// ErrAlreadyActive is returned when Start is called on a running runner.
var ErrAlreadyActive = errors.New("background updates are already active")

// GPSDRunner streams continuous position updates from gpsd and delivers them
// to the registered callback, throttled by the configured time and distance
// intervals.
type GPSDRunner struct {
	logger *logger.Logger
	addr   string

	mu     sync.Mutex
	active bool
	cancel context.CancelFunc
}

// NewGPSDRunner returns a runner streaming from the given gpsd host and port.
func NewGPSDRunner(host, port string, log *logger.Logger) *GPSDRunner {
	return &GPSDRunner{
		logger: log,
		addr:   net.JoinHostPort(host, port),
	}
}

// Active reports whether the runner is currently streaming updates.
func (r *GPSDRunner) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Start begins streaming updates to fn. Starting an active runner is an error,
// callers are expected to check Active first.
func (r *GPSDRunner) Start(cfg UpdateConfig, fn func(batch []Position)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return ErrAlreadyActive
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.active = true
	go r.watch(ctx, cfg, fn)
	return nil
}

// Stop ends the update stream. In-flight callbacks are not interrupted.
func (r *GPSDRunner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return nil
	}
	r.cancel()
	r.cancel = nil
	r.active = false
	return nil
}

// watch maintains the gpsd session, reconnecting with a delay when the
// connection ends.
func (r *GPSDRunner) watch(ctx context.Context, cfg UpdateConfig, fn func(batch []Position)) {
	var lastEmit time.Time
	var lastPos *geo.Coordinate

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		session, err := gpsd.Dial(r.addr)
		if err != nil {
			r.logger.Error("failed to connect to gpsd", logger.Err(err), slog.String("addr", r.addr))
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
				continue
			}
		}

		// This gets called for every TPV report on the stream.
		session.AddFilter("TPV", func(report interface{}) {
			tpv, ok := report.(*gpsd.TPVReport)
			if !ok {
				return
			}

			// Need at least 2D fix
			if tpv.Mode < gpsd.Mode2D {
				return
			}

			pos := Position{
				Coordinate: geo.Coordinate{
					Lat: geo.Truncate(tpv.Lat, geo.TruncPrecision),
					Lon: geo.Truncate(tpv.Lon, geo.TruncPrecision),
					Acc: tpv.Eph,
				},
				At: time.Now(),
			}
			if cfg.Accuracy > 0 && pos.Coordinate.Acc > float64(cfg.Accuracy) {
				return
			}
			if cfg.TimeInterval > 0 && time.Since(lastEmit) < cfg.TimeInterval {
				return
			}
			if cfg.DistanceInterval > 0 && lastPos != nil &&
				geo.DistanceMeters(*lastPos, pos.Coordinate) < cfg.DistanceInterval {
				return
			}
			lastEmit = time.Now()
			lastPos = &pos.Coordinate

			select {
			case <-ctx.Done():
			default:
				fn([]Position{pos})
			}
		})

		// Watch() returns a channel that closes when the watch ends
		// (e.g. connection lost).
		done := session.Watch()

		select {
		case <-ctx.Done():
			// Context canceled; just return. The process exiting will tear
			// down the gpsd connection; go-gpsd itself has no Close().
			return
		case <-done:
			// gpsd connection ended; reconnect after a short delay
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}
