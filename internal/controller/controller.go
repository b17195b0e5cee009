// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package controller drives the periodic location push lifecycle. A Controller
// owns a per-session scheduler that samples the configured location source and
// forwards significant position changes to the configured endpoint.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/wneessen/locpush/internal/background"
	"github.com/wneessen/locpush/internal/geo"
	"github.com/wneessen/locpush/internal/location"
	"github.com/wneessen/locpush/internal/logger"
	"github.com/wneessen/locpush/internal/permission"
	"github.com/wneessen/locpush/internal/settings"
	"github.com/wneessen/locpush/internal/transmit"
)

// DefaultPushInterval is the delay between location samples when no interval
// has been configured.
const DefaultPushInterval = time.Second * 60

var (
	// ErrForegroundDenied indicates the location permission is not granted.
	ErrForegroundDenied = errors.New("foreground location permission denied")

	// ErrBackgroundDenied indicates background location updates are not
	// permitted.
	ErrBackgroundDenied = errors.New("background location permission denied")
)

// State describes the lifecycle phase of a Controller.
type State int

const (
	// StateIdle means no tracking session is active.
	StateIdle State = iota

	// StateStarting means a session is being established.
	StateStarting

	// StateSending means a session is active and samples are being pushed.
	StateSending
)

// String satisfies the fmt.Stringer interface for State.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateSending:
		return "sending"
	default:
		return "unknown"
	}
}

// Status is a point-in-time snapshot of a Controller.
type Status struct {
	State     State
	Endpoint  string
	LastKnown *geo.Sample
	LastError string
}

// Options collects the collaborators a Controller needs.
type Options struct {
	Logger      *logger.Logger
	Source      location.Source
	Accuracy    location.Accuracy
	Gate        geo.Gate
	Transmitter *transmit.Transmitter
	Settings    *settings.Store
	Permissions permission.Checker
	Hook        *background.Hook
	Interval    time.Duration
}

// Controller manages a single tracking session at a time. Calling Start on a
// running Controller tears down the previous session before establishing the
// new one, so at most one scheduler is ever armed.
type Controller struct {
	logger      *logger.Logger
	source      location.Source
	accuracy    location.Accuracy
	gate        geo.Gate
	transmitter *transmit.Transmitter
	settings    *settings.Store
	permissions permission.Checker
	hook        *background.Hook
	interval    time.Duration

	mu        sync.Mutex
	state     State
	scheduler gocron.Scheduler
	endpoint  string
	lastSent  *geo.Coordinate
	lastKnown *geo.Sample
	lastErr   string
}

// New creates a Controller from the given Options. Logger, Source,
// Transmitter, Settings and Permissions are required.
func New(opts Options) (*Controller, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Source == nil {
		return nil, errors.New("location source is required")
	}
	if opts.Transmitter == nil {
		return nil, errors.New("transmitter is required")
	}
	if opts.Settings == nil {
		return nil, errors.New("settings store is required")
	}
	if opts.Permissions == nil {
		return nil, errors.New("permission checker is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultPushInterval
	}
	return &Controller{
		logger:      opts.Logger,
		source:      opts.Source,
		accuracy:    opts.Accuracy,
		gate:        opts.Gate,
		transmitter: opts.Transmitter,
		settings:    opts.Settings,
		permissions: opts.Permissions,
		hook:        opts.Hook,
		interval:    opts.Interval,
	}, nil
}

// Start establishes a tracking session: it validates the configured endpoint
// and permissions, pushes an immediate first sample and arms the periodic
// scheduler. Any previously running session is stopped first.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.disarmLocked()
	c.state = StateStarting

	endpoint, err := c.settings.APIURL(ctx)
	if err != nil {
		c.state = StateIdle
		return fmt.Errorf("failed to read endpoint URL: %w", err)
	}
	if endpoint == "" {
		c.state = StateIdle
		c.lastErr = transmit.ErrNoEndpoint.Error()
		return transmit.ErrNoEndpoint
	}

	if err = c.checkPermissions(ctx); err != nil {
		c.state = StateIdle
		c.lastErr = err.Error()
		return err
	}
	c.endpoint = endpoint

	// The first sample is pushed synchronously. A session that cannot
	// deliver its initial position does not get armed.
	pos, err := c.sample(ctx)
	if err != nil {
		c.state = StateIdle
		c.lastErr = err.Error()
		return fmt.Errorf("failed to push initial location: %w", err)
	}
	if err = c.push(ctx, pos); err != nil {
		c.state = StateIdle
		c.lastErr = err.Error()
		return fmt.Errorf("failed to push initial location: %w", err)
	}

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		c.state = StateIdle
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	_, err = scheduler.NewJob(
		gocron.DurationJob(c.interval),
		gocron.NewTask(c.tick),
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("location_push_job"),
	)
	if err != nil {
		c.state = StateIdle
		return fmt.Errorf("failed to create location push job: %w", err)
	}
	scheduler.Start()
	c.scheduler = scheduler
	c.state = StateSending
	c.lastErr = ""

	if c.hook != nil {
		if err = c.hook.Start(); err != nil {
			c.logger.Error("failed to start background updates", logger.Err(err))
		}
	}

	c.logger.Info("tracking session started", slog.String("endpoint", endpoint),
		slog.Duration("interval", c.interval), slog.String("source", c.source.Name()))
	return nil
}

// Stop tears down the current session. Stopping an idle Controller is a no-op.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateIdle {
		return nil
	}
	c.disarmLocked()
	c.logger.Info("tracking session stopped")

	if c.hook != nil {
		if err := c.hook.Stop(); err != nil {
			return fmt.Errorf("failed to stop background updates: %w", err)
		}
	}
	return nil
}

// Status returns a snapshot of the Controller state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := Status{
		State:     c.state,
		Endpoint:  c.endpoint,
		LastError: c.lastErr,
	}
	if c.lastKnown != nil {
		known := *c.lastKnown
		status.LastKnown = &known
	}
	return status
}

// disarmLocked shuts down the active scheduler and resets all session state.
// The caller must hold c.mu.
func (c *Controller) disarmLocked() {
	if c.scheduler != nil {
		if err := c.scheduler.Shutdown(); err != nil {
			c.logger.Error("failed to shut down scheduler", logger.Err(err))
		}
		c.scheduler = nil
	}
	c.state = StateIdle
	c.endpoint = ""
	c.lastSent = nil
	c.lastKnown = nil
	c.lastErr = ""
}

// checkPermissions verifies foreground and background location access. The
// caller must hold c.mu.
func (c *Controller) checkPermissions(ctx context.Context) error {
	granted, err := c.permissions.Foreground(ctx)
	if err != nil {
		return fmt.Errorf("failed to check foreground permission: %w", err)
	}
	if !granted {
		return ErrForegroundDenied
	}
	granted, err = c.permissions.Background(ctx)
	if err != nil {
		return fmt.Errorf("failed to check background permission: %w", err)
	}
	if !granted {
		return ErrBackgroundDenied
	}
	return nil
}

// tick runs once per interval. A failed sample or push is recorded and
// retried on the next tick, it never ends the session.
func (c *Controller) tick(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateSending {
		return
	}

	pos, err := c.sample(ctx)
	if err != nil {
		c.lastErr = err.Error()
		c.logger.Error("failed to sample current location", logger.Err(err))
		return
	}
	if !c.gate.ShouldSend(c.lastSent, pos) {
		c.logger.Debug("position has not changed significantly, skipping push",
			slog.Float64("latitude", pos.Lat), slog.Float64("longitude", pos.Lon))
		return
	}
	if err = c.push(ctx, pos); err != nil {
		c.lastErr = err.Error()
		c.logger.Error("failed to push location sample", logger.Err(err))
	}
}

// sample fetches the current position from the location source. The caller
// must hold c.mu.
func (c *Controller) sample(ctx context.Context) (geo.Coordinate, error) {
	pos, err := c.source.CurrentPosition(ctx, c.accuracy)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("failed to get position from %s: %w", c.source.Name(), err)
	}
	return pos, nil
}

// push transmits a position to the configured endpoint and updates the
// session bookkeeping. The caller must hold c.mu.
func (c *Controller) push(ctx context.Context, pos geo.Coordinate) error {
	sample, err := c.transmitter.Send(ctx, c.endpoint, pos)
	if err != nil {
		return err
	}
	sent := pos
	c.lastSent = &sent
	c.lastKnown = &sample
	c.lastErr = ""
	return nil
}
