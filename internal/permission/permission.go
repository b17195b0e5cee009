// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package permission models the platform's location permission checks.
package permission

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

const (
	dbusListNamesAddress = "org.freedesktop.DBus.ListNames"
	geoclueServiceName   = "org.freedesktop.GeoClue2"
	geoclueAgentName     = "org.freedesktop.GeoClue2.DemoAgent"
)

// Checker answers whether the process is allowed to read the device location in
// the foreground and whether it may keep receiving updates in the background.
type Checker interface {
	Foreground(ctx context.Context) (bool, error)
	Background(ctx context.Context) (bool, error)
}

// DBus checks location permissions through the GeoClue2 service on the D-Bus.
// Foreground access requires the GeoClue2 service itself, background updates
// additionally require a running authorization agent.
type DBus struct{}

// NewDBus returns a D-Bus backed permission Checker.
func NewDBus() *DBus {
	return &DBus{}
}

// Foreground reports whether the GeoClue2 location service is available.
func (d *DBus) Foreground(ctx context.Context) (bool, error) {
	return nameOnSystemBus(ctx, geoclueServiceName)
}

// Background reports whether a GeoClue2 authorization agent is running.
func (d *DBus) Background(ctx context.Context) (bool, error) {
	return nameOnSystemBus(ctx, geoclueAgentName)
}

func nameOnSystemBus(ctx context.Context, name string) (found bool, err error) {
	var list []string
	conn, err := dbus.ConnectSystemBus(dbus.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to connect to system bus: %w", err)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close system bus: %w", closeErr))
		}
	}()

	if err = conn.BusObject().Call(dbusListNamesAddress, 0).Store(&list); err != nil {
		return false, fmt.Errorf("failed to call DBus ListNames: %w", err)
	}

	for _, v := range list {
		if strings.EqualFold(v, name) {
			return true, nil
		}
	}
	return false, nil
}

// Static is a fixed-answer Checker for platforms without a permission concept
// and for tests. The zero value grants everything.
type Static struct {
	DenyForeground bool
	DenyBackground bool
}

// Foreground reports the static foreground grant.
func (s Static) Foreground(context.Context) (bool, error) {
	return !s.DenyForeground, nil
}

// Background reports the static background grant.
func (s Static) Background(context.Context) (bool, error) {
	return !s.DenyBackground, nil
}
