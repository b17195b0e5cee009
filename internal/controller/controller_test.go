// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package controller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	stdhttp "net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wneessen/locpush/internal/geo"
	"github.com/wneessen/locpush/internal/http"
	"github.com/wneessen/locpush/internal/location"
	"github.com/wneessen/locpush/internal/logger"
	"github.com/wneessen/locpush/internal/permission"
	"github.com/wneessen/locpush/internal/settings"
	"github.com/wneessen/locpush/internal/testhelper"
	"github.com/wneessen/locpush/internal/transmit"
)

type fakeSource struct {
	mu  sync.Mutex
	pos geo.Coordinate
	err error
}

func (s *fakeSource) Name() string {
	return "fake"
}

func (s *fakeSource) CurrentPosition(context.Context, location.Accuracy) (geo.Coordinate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos, s.err
}

func (s *fakeSource) moveTo(pos geo.Coordinate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos = pos
}

type testFixture struct {
	controller *Controller
	source     *fakeSource
	store      *settings.Store

	mu    sync.Mutex
	posts int
	fail  bool
}

func (f *testFixture) roundTrip(*stdhttp.Request) (*stdhttp.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("connection refused")
	}
	f.posts++
	return &stdhttp.Response{
		StatusCode: 200,
		Body:       io.NopCloser(strings.NewReader(`{"ok": true}`)),
		Header:     make(stdhttp.Header),
	}, nil
}

func (f *testFixture) postCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posts
}

func newTestFixture(t *testing.T, perms permission.Checker) *testFixture {
	t.Helper()
	store, err := settings.Open(filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatalf("failed to open settings store: %s", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err = store.InitSchema(t.Context()); err != nil {
		t.Fatalf("failed to init settings schema: %s", err)
	}

	fixture := &testFixture{
		source: &fakeSource{pos: geo.Coordinate{Lat: 48.137154, Lon: 11.576124, Acc: 10}},
		store:  store,
	}

	log := logger.NewLogger(slog.LevelError, io.Discard)
	client := http.New(log)
	client.Transport = testhelper.MockRoundTripper{Fn: fixture.roundTrip}

	ctrl, err := New(Options{
		Logger:      log,
		Source:      fixture.source,
		Accuracy:    location.AccuracyExact,
		Gate:        geo.NewGate(geo.DefaultThresholdMeters),
		Transmitter: transmit.New(client, log),
		Settings:    store,
		Permissions: perms,
		Interval:    time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to create controller: %s", err)
	}
	fixture.controller = ctrl
	t.Cleanup(func() { _ = ctrl.Stop() })
	return fixture
}

func (f *testFixture) setEndpoint(t *testing.T, url string) {
	t.Helper()
	if err := f.store.SetAPIURL(t.Context(), url); err != nil {
		t.Fatalf("failed to set api url: %s", err)
	}
}

func TestNew(t *testing.T) {
	log := logger.NewLogger(slog.LevelError, io.Discard)
	t.Run("missing source fails", func(t *testing.T) {
		_, err := New(Options{Logger: log})
		if err == nil {
			t.Error("expected controller creation to fail without a source")
		}
	})
	t.Run("missing logger fails", func(t *testing.T) {
		_, err := New(Options{Source: &fakeSource{}})
		if err == nil {
			t.Error("expected controller creation to fail without a logger")
		}
	})
}

func TestController_Start(t *testing.T) {
	t.Run("missing endpoint leaves the controller idle", func(t *testing.T) {
		fixture := newTestFixture(t, &permission.Static{})
		err := fixture.controller.Start(t.Context())
		if !errors.Is(err, transmit.ErrNoEndpoint) {
			t.Errorf("expected %s, got %s", transmit.ErrNoEndpoint, err)
		}
		if fixture.postCount() != 0 {
			t.Errorf("expected no POST, got %d", fixture.postCount())
		}
		if state := fixture.controller.Status().State; state != StateIdle {
			t.Errorf("expected controller to be idle, got %s", state)
		}
	})
	t.Run("denied foreground permission aborts the session", func(t *testing.T) {
		fixture := newTestFixture(t, &permission.Static{DenyForeground: true})
		fixture.setEndpoint(t, "https://track.example.com/loc")
		err := fixture.controller.Start(t.Context())
		if !errors.Is(err, ErrForegroundDenied) {
			t.Errorf("expected %s, got %s", ErrForegroundDenied, err)
		}
		if fixture.postCount() != 0 {
			t.Errorf("expected no POST, got %d", fixture.postCount())
		}
	})
	t.Run("denied background permission aborts the session", func(t *testing.T) {
		fixture := newTestFixture(t, &permission.Static{DenyBackground: true})
		fixture.setEndpoint(t, "https://track.example.com/loc")
		err := fixture.controller.Start(t.Context())
		if !errors.Is(err, ErrBackgroundDenied) {
			t.Errorf("expected %s, got %s", ErrBackgroundDenied, err)
		}
	})
	t.Run("successful start pushes an immediate sample", func(t *testing.T) {
		fixture := newTestFixture(t, &permission.Static{})
		fixture.setEndpoint(t, "https://track.example.com/loc")
		if err := fixture.controller.Start(t.Context()); err != nil {
			t.Fatalf("failed to start controller: %s", err)
		}
		if fixture.postCount() != 1 {
			t.Errorf("expected exactly one POST, got %d", fixture.postCount())
		}
		status := fixture.controller.Status()
		if status.State != StateSending {
			t.Errorf("expected controller to be sending, got %s", status.State)
		}
		if status.LastKnown == nil {
			t.Error("expected a last known sample after start")
		}
	})
	t.Run("failed initial push leaves the controller idle", func(t *testing.T) {
		fixture := newTestFixture(t, &permission.Static{})
		fixture.setEndpoint(t, "https://track.example.com/loc")
		fixture.fail = true
		if err := fixture.controller.Start(t.Context()); err == nil {
			t.Error("expected start to fail when the initial push fails")
		}
		if state := fixture.controller.Status().State; state != StateIdle {
			t.Errorf("expected controller to be idle, got %s", state)
		}
	})
}

func TestController_tick(t *testing.T) {
	t.Run("unchanged position is not pushed again", func(t *testing.T) {
		fixture := newTestFixture(t, &permission.Static{})
		fixture.setEndpoint(t, "https://track.example.com/loc")
		if err := fixture.controller.Start(t.Context()); err != nil {
			t.Fatalf("failed to start controller: %s", err)
		}

		fixture.controller.tick(t.Context())
		if fixture.postCount() != 1 {
			t.Errorf("expected exactly one POST, got %d", fixture.postCount())
		}
	})
	t.Run("significant movement is pushed", func(t *testing.T) {
		fixture := newTestFixture(t, &permission.Static{})
		fixture.setEndpoint(t, "https://track.example.com/loc")
		if err := fixture.controller.Start(t.Context()); err != nil {
			t.Fatalf("failed to start controller: %s", err)
		}

		// Roughly 50 meters north of the starting position.
		fixture.source.moveTo(geo.Coordinate{Lat: 48.137154 + 0.00045, Lon: 11.576124, Acc: 10})
		fixture.controller.tick(t.Context())
		if fixture.postCount() != 2 {
			t.Errorf("expected two POSTs, got %d", fixture.postCount())
		}
	})
	t.Run("sample errors keep the session alive", func(t *testing.T) {
		fixture := newTestFixture(t, &permission.Static{})
		fixture.setEndpoint(t, "https://track.example.com/loc")
		if err := fixture.controller.Start(t.Context()); err != nil {
			t.Fatalf("failed to start controller: %s", err)
		}

		fixture.source.mu.Lock()
		fixture.source.err = location.ErrNoFix
		fixture.source.mu.Unlock()
		fixture.controller.tick(t.Context())

		status := fixture.controller.Status()
		if status.State != StateSending {
			t.Errorf("expected controller to stay in sending state, got %s", status.State)
		}
		if status.LastError == "" {
			t.Error("expected the sample error to be recorded")
		}
	})
}

func TestController_Stop(t *testing.T) {
	t.Run("stop ends the session and discards state", func(t *testing.T) {
		fixture := newTestFixture(t, &permission.Static{})
		fixture.setEndpoint(t, "https://track.example.com/loc")
		if err := fixture.controller.Start(t.Context()); err != nil {
			t.Fatalf("failed to start controller: %s", err)
		}
		if err := fixture.controller.Stop(); err != nil {
			t.Fatalf("failed to stop controller: %s", err)
		}

		status := fixture.controller.Status()
		if status.State != StateIdle {
			t.Errorf("expected controller to be idle, got %s", status.State)
		}
		if status.LastKnown != nil {
			t.Error("expected last known sample to be discarded")
		}

		fixture.controller.tick(t.Context())
		if fixture.postCount() != 1 {
			t.Errorf("expected no further POSTs after stop, got %d", fixture.postCount())
		}
	})
	t.Run("stopping an idle controller is a no-op", func(t *testing.T) {
		fixture := newTestFixture(t, &permission.Static{})
		if err := fixture.controller.Stop(); err != nil {
			t.Errorf("expected stop on idle controller to succeed, got %s", err)
		}
	})
	t.Run("restart replaces the previous session", func(t *testing.T) {
		fixture := newTestFixture(t, &permission.Static{})
		fixture.setEndpoint(t, "https://track.example.com/loc")
		if err := fixture.controller.Start(t.Context()); err != nil {
			t.Fatalf("failed to start controller: %s", err)
		}
		if err := fixture.controller.Start(t.Context()); err != nil {
			t.Fatalf("failed to restart controller: %s", err)
		}
		if fixture.postCount() != 2 {
			t.Errorf("expected one POST per start, got %d", fixture.postCount())
		}
		if state := fixture.controller.Status().State; state != StateSending {
			t.Errorf("expected controller to be sending, got %s", state)
		}
	})
}
