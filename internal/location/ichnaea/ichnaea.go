// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package ichnaea

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mdlayher/wifi"

	"github.com/wneessen/locpush/internal/geo"
	"github.com/wneessen/locpush/internal/http"
	"github.com/wneessen/locpush/internal/location"
)

const (
	apiEndpoint   = "https://api.beacondb.net/v1/geolocate"
	lookupTimeout = time.Second * 5
	name          = "ichnaea"
)

// Source resolves the current position via an ICHNAEA-compatible geolocation
// API, using the wifi networks in range as lookup input. It is a fallback for
// hosts without a GPS receiver.
type Source struct {
	name     string
	http     *http.Client
	wlan     *wifi.Client
	locateFn func(ctx context.Context) (geo.Coordinate, error)
}

type apiResult struct {
	Location struct {
		Latitude  float64 `json:"lat"`
		Longitude float64 `json:"lng"`
	} `json:"location"`
	Accuracy float64 `json:"accuracy"`
}

// WirelessNetwork is a single wifi access point sent to the geolocation API.
type WirelessNetwork struct {
	LastSeen       int64  `json:"age"`
	MACAddress     string `json:"macAddress"`
	SignalStrength int32  `json:"signalStrength"`
}

// New initializes an ICHNAEA Source with the given HTTP client.
func New(httpClient *http.Client) (*Source, error) {
	if httpClient == nil {
		return nil, fmt.Errorf("http client is required")
	}
	wlan, err := wifi.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create wifi client: %w", err)
	}

	source := &Source{
		name: name,
		http: httpClient,
		wlan: wlan,
	}
	source.locateFn = source.locate
	return source, nil
}

// Name returns the name of the source.
func (s *Source) Name() string {
	return name
}

// CurrentPosition performs one geolocation API lookup based on the currently
// visible wifi access points.
func (s *Source) CurrentPosition(ctx context.Context, acc location.Accuracy) (geo.Coordinate, error) {
	coord, err := s.locateFn(ctx)
	if err != nil {
		return geo.Coordinate{}, err
	}
	if coord.Acc > float64(acc) {
		return geo.Coordinate{}, location.ErrNotAccurate
	}
	if !coord.Valid() {
		return geo.Coordinate{}, fmt.Errorf("geolocation API returned an invalid coordinate: %f/%f",
			coord.Lat, coord.Lon)
	}
	return coord, nil
}

func (s *Source) locate(ctx context.Context) (geo.Coordinate, error) {
	wifiList, err := s.wifiAccessPoints()
	if err != nil {
		return geo.Coordinate{}, err
	}

	type request struct {
		ConsiderIP   bool              `json:"considerIp"`
		Accesspoints []WirelessNetwork `json:"wifiAccessPoints,omitempty"`
	}
	req := request{
		ConsiderIP:   true,
		Accesspoints: wifiList,
	}
	bodyBuffer := bytes.NewBuffer(nil)
	if err = json.NewEncoder(bodyBuffer).Encode(req); err != nil {
		return geo.Coordinate{}, fmt.Errorf("failed to encode wifi list to JSON: %w", err)
	}

	ctxHTTP, cancelHTTP := context.WithTimeout(ctx, lookupTimeout)
	defer cancelHTTP()
	result := new(apiResult)
	if _, err = s.http.Post(ctxHTTP, apiEndpoint, result, bodyBuffer,
		map[string]string{"Content-Type": "application/json"}); err != nil {
		return geo.Coordinate{}, fmt.Errorf("failed to get geolocation data from API: %w", err)
	}

	return geo.Coordinate{
		Lat: geo.Truncate(result.Location.Latitude, geo.TruncPrecision),
		Lon: geo.Truncate(result.Location.Longitude, geo.TruncPrecision),
		Acc: geo.Truncate(result.Accuracy, geo.TruncPrecision),
	}, nil
}

func (s *Source) wifiAccessPoints() ([]WirelessNetwork, error) {
	var checkIfaces []*wifi.Interface
	var list []WirelessNetwork

	ifaces, err := s.wlan.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}
	for _, iface := range ifaces {
		if iface.Type != wifi.InterfaceTypeStation {
			continue
		}
		checkIfaces = append(checkIfaces, iface)
	}
	if len(checkIfaces) == 0 {
		return nil, nil
	}

	for _, iface := range checkIfaces {
		aps, err := s.wlan.AccessPoints(iface)
		if err != nil {
			continue
		}
		for _, ap := range aps {
			if ap.SSID == "" || ap.SSID[0] == '\x00' || strings.HasSuffix(ap.SSID, "_nomap") {
				continue
			}
			list = append(list, WirelessNetwork{
				SignalStrength: ap.Signal / 100,
				MACAddress:     ap.BSSID.String(),
				LastSeen:       ap.LastSeen.Milliseconds(),
			})
		}
	}

	return list, nil
}
