// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package service assembles the location push daemon: it wires the configured
// location source, the persisted settings store, the transmitter and the
// lifecycle controller, and keeps them running until the context ends.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vorlif/spreak"

	"github.com/wneessen/locpush/internal/background"
	"github.com/wneessen/locpush/internal/config"
	"github.com/wneessen/locpush/internal/controller"
	"github.com/wneessen/locpush/internal/geo"
	"github.com/wneessen/locpush/internal/http"
	"github.com/wneessen/locpush/internal/job"
	"github.com/wneessen/locpush/internal/logger"
	"github.com/wneessen/locpush/internal/permission"
	"github.com/wneessen/locpush/internal/settings"
	"github.com/wneessen/locpush/internal/transmit"
)

type Service struct {
	config     *config.Config
	controller *controller.Controller
	localizer  *spreak.Localizer
	logger     *logger.Logger
	settings   *settings.Store
}

// New wires up a Service from the given configuration. The settings store is
// opened and, if no endpoint has been persisted yet, seeded from the
// configuration file.
func New(ctx context.Context, conf *config.Config, log *logger.Logger, t *spreak.Localizer) (*Service, error) {
	store, err := settings.Open(conf.Settings.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings store: %w", err)
	}
	if err = store.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize settings store: %w", err)
	}
	if err = seedEndpoint(ctx, store, conf.API.URL); err != nil {
		return nil, err
	}

	source, accuracy, err := selectSource(conf, log)
	if err != nil {
		return nil, err
	}

	httpClient := http.New(log)
	transmitter := transmit.New(httpClient, log)

	var hook *background.Hook
	if !conf.Background.Disable {
		runner := background.NewGPSDRunner(conf.Location.GPSDHost, conf.Location.GPSDPort, log)
		hook = background.NewHook(runner, store, transmitter, log, background.UpdateConfig{
			Accuracy:         accuracy,
			TimeInterval:     conf.Background.TimeInterval,
			DistanceInterval: conf.Background.DistanceInterval,
		})
	}

	ctrl, err := controller.New(controller.Options{
		Logger:      log,
		Source:      source,
		Accuracy:    accuracy,
		Gate:        geo.NewGate(conf.Gate.ThresholdMeters),
		Transmitter: transmitter,
		Settings:    store,
		Permissions: permission.NewDBus(),
		Hook:        hook,
		Interval:    conf.Intervals.Push,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create controller: %w", err)
	}

	return &Service{
		config:     conf,
		controller: ctrl,
		localizer:  t,
		logger:     log,
		settings:   store,
	}, nil
}

// Run starts the tracking session and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.controller.Start(ctx); err != nil {
		return fmt.Errorf("failed to start tracking session: %w", err)
	}

	statusJob := job.New(s.config.Intervals.Status, s.logStatus)
	go statusJob.Start(ctx)
	go s.monitorSleepResume(ctx)

	<-ctx.Done()

	if err := s.controller.Stop(); err != nil {
		s.logger.Error("failed to stop tracking session", logger.Err(err))
	}
	return s.settings.Close()
}

// logStatus emits a periodic status line with the current session state.
func (s *Service) logStatus(context.Context) {
	status := s.controller.Status()
	attrs := []any{
		slog.String("state", status.State.String()),
		slog.String("endpoint", status.Endpoint),
	}
	if status.LastKnown != nil {
		attrs = append(attrs, slog.Float64("latitude", status.LastKnown.Latitude),
			slog.Float64("longitude", status.LastKnown.Longitude),
			slog.String("timestamp", status.LastKnown.Timestamp))
	}
	if status.LastError != "" {
		attrs = append(attrs, slog.String("last_error", status.LastError))
	}
	s.logger.Info(s.stateMessage(status.State), attrs...)
}

// stateMessage maps a controller state to a localized status message.
func (s *Service) stateMessage(state controller.State) string {
	switch state {
	case controller.StateStarting:
		return s.localizer.Get("tracking session is starting")
	case controller.StateSending:
		return s.localizer.Get("pushing location updates")
	default:
		return s.localizer.Get("tracking is idle")
	}
}

// seedEndpoint persists the configured endpoint URL on first start. A
// persisted endpoint always wins over the configuration file.
func seedEndpoint(ctx context.Context, store *settings.Store, confURL string) error {
	stored, err := store.APIURL(ctx)
	if err != nil {
		return fmt.Errorf("failed to read persisted endpoint: %w", err)
	}
	if stored != "" || confURL == "" {
		return nil
	}
	if err = store.SetAPIURL(ctx, confURL); err != nil {
		return fmt.Errorf("failed to seed endpoint from configuration: %w", err)
	}
	return nil
}

// restartSession re-establishes the tracking session, typically after a
// system resume. Start failures are logged and retried on the next resume.
func (s *Service) restartSession(ctx context.Context) {
	if err := s.controller.Start(ctx); err != nil {
		s.logger.Error("failed to restart tracking session", logger.Err(err))
	}
}
