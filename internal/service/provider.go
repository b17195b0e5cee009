// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package service

import (
	"fmt"

	"github.com/wneessen/locpush/internal/config"
	"github.com/wneessen/locpush/internal/http"
	"github.com/wneessen/locpush/internal/location"
	"github.com/wneessen/locpush/internal/location/gpsd"
	"github.com/wneessen/locpush/internal/location/ichnaea"
	"github.com/wneessen/locpush/internal/location/locfile"
	"github.com/wneessen/locpush/internal/logger"
)

// selectSource builds the configured location source together with the
// accuracy tier it is asked to meet. GPS-backed sources are held to an exact
// fix, WiFi-based geolocation only resolves to city level.
func selectSource(conf *config.Config, log *logger.Logger) (location.Source, location.Accuracy, error) {
	switch conf.Location.Source {
	case config.SourceGPSD:
		return gpsd.New(conf.Location.GPSDHost, conf.Location.GPSDPort), location.AccuracyExact, nil
	case config.SourceFile:
		return locfile.New(conf.Location.File), location.AccuracyExact, nil
	case config.SourceICHNAEA:
		source, err := ichnaea.New(http.New(log))
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create ichnaea source: %w", err)
		}
		return source, location.AccuracyCity, nil
	default:
		return nil, 0, fmt.Errorf("unsupported location source: %s", conf.Location.Source)
	}
}
