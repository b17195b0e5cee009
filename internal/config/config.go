// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kkyr/fig"
)

const configEnv = "LOCPUSH"

// Source names for the location sampler.
const (
	SourceGPSD    = "gpsd"
	SourceFile    = "file"
	SourceICHNAEA = "ichnaea"
)

// Config represents the application's configuration structure.
type Config struct {
	Locale   string     `fig:"locale"`
	LogLevel slog.Level `fig:"loglevel" default:"0"`

	API struct {
		// URL seeds the persisted endpoint setting on first start. The persisted
		// value always wins once it has been written.
		URL string `fig:"url"`
	} `fig:"api"`

	Intervals struct {
		Push   time.Duration `fig:"push" default:"60s"`
		Status time.Duration `fig:"status" default:"30s"`
	} `fig:"intervals"`

	Gate struct {
		ThresholdMeters float64 `fig:"threshold_meters" default:"10"`
	} `fig:"gate"`

	Location struct {
		// Allowed values: gpsd, file, ichnaea
		Source   string `fig:"source" default:"gpsd"`
		File     string `fig:"file"`
		GPSDHost string `fig:"gpsd_host" default:"localhost"`
		GPSDPort string `fig:"gpsd_port" default:"2947"`
	} `fig:"location"`

	Background struct {
		Disable          bool          `fig:"disable"`
		TimeInterval     time.Duration `fig:"time_interval" default:"60s"`
		DistanceInterval float64       `fig:"distance_interval" default:"0"`
	} `fig:"background"`

	Settings struct {
		Path string `fig:"path"`
	} `fig:"settings"`
}

func NewFromFile(path, file string) (*Config, error) {
	conf := new(Config)
	_, err := os.Stat(filepath.Join(path, file))
	if err != nil {
		return conf, fmt.Errorf("failed to read Config: %w", err)
	}
	if err = fig.Load(conf, fig.Dirs(path), fig.File(file), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func New() (*Config, error) {
	conf := new(Config)
	if err := fig.Load(conf, fig.AllowNoFile(), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func (c *Config) Validate() error {
	switch c.Location.Source {
	case SourceGPSD, SourceFile, SourceICHNAEA:
	default:
		return fmt.Errorf("invalid location source: %s", c.Location.Source)
	}
	if c.Intervals.Push <= 0 {
		return fmt.Errorf("invalid push interval: %s", c.Intervals.Push)
	}
	if c.Gate.ThresholdMeters < 0 {
		return fmt.Errorf("invalid gate threshold: %f", c.Gate.ThresholdMeters)
	}
	if c.Locale == "" {
		c.Locale = getLocale()
	}
	if c.Location.File == "" {
		home, _ := os.UserHomeDir()
		c.Location.File = filepath.Join(home, ".config", "locpush", "geolocation")
	}
	if c.Settings.Path == "" {
		home, _ := os.UserHomeDir()
		c.Settings.Path = filepath.Join(home, ".config", "locpush", "settings.db")
	}

	return nil
}

func getLocale() string {
	locale := os.Getenv("LC_MESSAGES")
	if idx := strings.Index(locale, "."); idx != -1 {
		lang := locale[:idx]
		return strings.ReplaceAll(lang, "_", "-")
	}
	return locale
}
