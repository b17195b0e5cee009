// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vorlif/spreak"

	"github.com/wneessen/locpush/internal/config"
	"github.com/wneessen/locpush/internal/i18n"
	"github.com/wneessen/locpush/internal/location"
	"github.com/wneessen/locpush/internal/logger"
	"github.com/wneessen/locpush/internal/settings"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	conf := &config.Config{}
	conf.Locale = "en"
	conf.Intervals.Push = time.Minute
	conf.Intervals.Status = time.Second * 30
	conf.Location.Source = config.SourceFile
	conf.Location.File = filepath.Join(dir, "geolocation")
	conf.Settings.Path = filepath.Join(dir, "settings.db")
	conf.Background.Disable = true
	if err := conf.Validate(); err != nil {
		t.Fatalf("failed to validate test config: %s", err)
	}
	return conf
}

func testLocalizer(t *testing.T) *spreak.Localizer {
	t.Helper()
	localizer, err := i18n.New("en")
	if err != nil {
		t.Fatalf("failed to create localizer: %s", err)
	}
	return localizer
}

func TestNew(t *testing.T) {
	log := logger.NewLogger(slog.LevelError, io.Discard)
	t.Run("new service with file source succeeds", func(t *testing.T) {
		svc, err := New(t.Context(), testConfig(t), log, testLocalizer(t))
		if err != nil {
			t.Fatalf("failed to create service: %s", err)
		}
		if svc == nil {
			t.Fatal("expected service to be non-nil")
		}
		t.Cleanup(func() { _ = svc.settings.Close() })
	})
	t.Run("invalid source fails", func(t *testing.T) {
		conf := testConfig(t)
		conf.Location.Source = "carrier-pigeon"
		if _, err := New(t.Context(), conf, log, testLocalizer(t)); err == nil {
			t.Error("expected service creation to fail with unsupported source")
		}
	})
	t.Run("configured endpoint seeds the settings store", func(t *testing.T) {
		conf := testConfig(t)
		conf.API.URL = "https://track.example.com/loc"
		svc, err := New(t.Context(), conf, log, testLocalizer(t))
		if err != nil {
			t.Fatalf("failed to create service: %s", err)
		}
		t.Cleanup(func() { _ = svc.settings.Close() })

		stored, err := svc.settings.APIURL(t.Context())
		if err != nil {
			t.Fatalf("failed to read persisted endpoint: %s", err)
		}
		if stored != conf.API.URL {
			t.Errorf("expected endpoint %q, got %q", conf.API.URL, stored)
		}
	})
	t.Run("persisted endpoint wins over the configuration", func(t *testing.T) {
		conf := testConfig(t)
		store, err := settings.Open(conf.Settings.Path)
		if err != nil {
			t.Fatalf("failed to open settings store: %s", err)
		}
		if err = store.InitSchema(t.Context()); err != nil {
			t.Fatalf("failed to init settings schema: %s", err)
		}
		if err = store.SetAPIURL(t.Context(), "https://persisted.example.com/loc"); err != nil {
			t.Fatalf("failed to persist endpoint: %s", err)
		}
		if err = store.Close(); err != nil {
			t.Fatalf("failed to close settings store: %s", err)
		}

		conf.API.URL = "https://config.example.com/loc"
		svc, err := New(t.Context(), conf, log, testLocalizer(t))
		if err != nil {
			t.Fatalf("failed to create service: %s", err)
		}
		t.Cleanup(func() { _ = svc.settings.Close() })

		stored, err := svc.settings.APIURL(t.Context())
		if err != nil {
			t.Fatalf("failed to read persisted endpoint: %s", err)
		}
		if stored != "https://persisted.example.com/loc" {
			t.Errorf("expected persisted endpoint to win, got %q", stored)
		}
	})
}

func TestService_selectSource(t *testing.T) {
	log := logger.NewLogger(slog.LevelError, io.Discard)
	tests := []struct {
		source   string
		name     string
		accuracy location.Accuracy
	}{
		{config.SourceGPSD, "gpsd", location.AccuracyExact},
		{config.SourceFile, "geolocation file", location.AccuracyExact},
		{config.SourceICHNAEA, "BeaconDB", location.AccuracyCity},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			conf := testConfig(t)
			conf.Location.Source = tt.source
			source, accuracy, err := selectSource(conf, log)
			if err != nil {
				t.Fatalf("failed to select source: %s", err)
			}
			if source == nil {
				t.Fatal("expected source to be non-nil")
			}
			if accuracy != tt.accuracy {
				t.Errorf("expected accuracy %f, got %f", float64(tt.accuracy), float64(accuracy))
			}
		})
	}
}

func TestService_logStatus(t *testing.T) {
	buffer := bytes.NewBuffer(nil)
	log := logger.NewLogger(slog.LevelInfo, buffer)
	svc, err := New(t.Context(), testConfig(t), log, testLocalizer(t))
	if err != nil {
		t.Fatalf("failed to create service: %s", err)
	}
	t.Cleanup(func() { _ = svc.settings.Close() })

	svc.logStatus(t.Context())
	output := buffer.String()
	if !strings.Contains(output, "tracking is idle") {
		t.Errorf("expected idle status message, got %q", output)
	}
	if !strings.Contains(output, "state=idle") {
		t.Errorf("expected state attribute in status line, got %q", output)
	}
}
