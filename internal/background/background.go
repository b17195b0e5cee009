// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package background keeps forwarding location samples while the foreground
// controller is suspended, by registering a callback with a platform-managed
// update runner. The runner owns retry and wake-up policy, this package does
// not.
package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/wneessen/locpush/internal/geo"
	"github.com/wneessen/locpush/internal/location"
	"github.com/wneessen/locpush/internal/logger"
	"github.com/wneessen/locpush/internal/settings"
	"github.com/wneessen/locpush/internal/transmit"
)

// TaskID is the fixed identifier the background hook registers under.
const TaskID = "background-location-task"

// handleTimeout bounds the work done per background wake.
const handleTimeout = time.Second * 30

// Position is a single location update delivered by a Runner.
type Position struct {
	Coordinate geo.Coordinate
	At         time.Time
}

// UpdateConfig parameterizes continuous background updates.
type UpdateConfig struct {
	Accuracy         location.Accuracy
	TimeInterval     time.Duration
	DistanceInterval float64
}

// Runner abstracts the platform's background update scheduler. Implementations
// deliver batches of new positions to the registered callback and decide their
// own wake-up and retry policy.
type Runner interface {
	Active() bool
	Start(cfg UpdateConfig, fn func(batch []Position)) error
	Stop() error
}

// Hook wires a Runner to the transmitter. The endpoint is read from the
// persisted settings store on every wake, independently of the foreground
// controller's in-memory copy.
type Hook struct {
	logger      *logger.Logger
	runner      Runner
	settings    *settings.Store
	transmitter *transmit.Transmitter
	cfg         UpdateConfig
}

// NewHook registers the background task explicitly. Nothing happens at package
// load time, the hook only becomes live once Start is called.
func NewHook(runner Runner, store *settings.Store, tm *transmit.Transmitter,
	log *logger.Logger, cfg UpdateConfig,
) *Hook {
	return &Hook{
		logger:      log,
		runner:      runner,
		settings:    store,
		transmitter: tm,
		cfg:         cfg,
	}
}

// Start begins background updates. Starting an already active hook is a no-op.
func (h *Hook) Start() error {
	if h.runner.Active() {
		h.logger.Debug("background updates already active", slog.String("task", TaskID))
		return nil
	}
	h.logger.Debug("starting background updates", slog.String("task", TaskID))
	return h.runner.Start(h.cfg, h.handleWake)
}

// Stop ends background updates. Stopping an inactive hook is a no-op.
func (h *Hook) Stop() error {
	if !h.runner.Active() {
		return nil
	}
	h.logger.Debug("stopping background updates", slog.String("task", TaskID))
	return h.runner.Stop()
}

// handleWake processes one background wake. Only the first reported position is
// transmitted. All failures are logged, the runner decides whether to retry.
func (h *Hook) handleWake(batch []Position) {
	if len(batch) == 0 {
		return
	}
	pos := batch[0]

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	endpoint, err := h.settings.APIURL(ctx)
	if err != nil {
		h.logger.Error("failed to read endpoint for background sample", logger.Err(err))
		return
	}
	if endpoint == "" {
		h.logger.Debug("no endpoint configured, skipping background sample")
		return
	}

	if _, err = h.transmitter.Send(ctx, endpoint, pos.Coordinate); err != nil {
		h.logger.Error("failed to transmit background sample", logger.Err(err),
			slog.Float64("lat", pos.Coordinate.Lat), slog.Float64("lon", pos.Coordinate.Lon))
		return
	}
	h.logger.Debug("background sample transmitted",
		slog.Float64("lat", pos.Coordinate.Lat), slog.Float64("lon", pos.Coordinate.Lon))
}
