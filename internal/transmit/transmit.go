// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package transmit builds and sends a single location report over HTTP POST
// and classifies failures into a small set of user-facing errors.
package transmit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wneessen/locpush/internal/geo"
	"github.com/wneessen/locpush/internal/http"
	"github.com/wneessen/locpush/internal/logger"
)

var (
	// ErrNoEndpoint indicates that no endpoint URL is configured. This is a
	// precondition failure, no request is attempted.
	ErrNoEndpoint = errors.New("no endpoint URL configured")

	// ErrUnreachable indicates the endpoint could not be reached at all.
	ErrUnreachable = errors.New("endpoint is unreachable")
)

// StatusError is returned when the endpoint answered with a non-2xx status
// code. Message carries the server-supplied "message" field when the error
// body could be parsed.
type StatusError struct {
	Code    int
	Message string
}

// Error satisfies the error interface.
func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("endpoint returned status %d", e.Code)
	}
	return fmt.Sprintf("endpoint returned status %d: %s", e.Code, e.Message)
}

// Transmitter sends location samples to a configured endpoint. It performs
// exactly one network call per Send, with no retry and no deduplication.
type Transmitter struct {
	http   *http.Client
	logger *logger.Logger
	now    func() time.Time
}

// New returns a new Transmitter using the given HTTP client.
func New(client *http.Client, log *logger.Logger) *Transmitter {
	return &Transmitter{
		http:   client,
		logger: log,
		now:    time.Now,
	}
}

// Send POSTs the given position to endpoint as a JSON body with a freshly
// generated timestamp. On success the transmitted sample is returned so the
// caller can record it as the last known location. The acknowledgment body is
// decoded and logged but otherwise unused.
func (t *Transmitter) Send(ctx context.Context, endpoint string, pos geo.Coordinate) (geo.Sample, error) {
	var zero geo.Sample
	if endpoint == "" {
		return zero, ErrNoEndpoint
	}

	sample := geo.NewSample(pos, t.now())
	body := bytes.NewBuffer(nil)
	if err := json.NewEncoder(body).Encode(sample); err != nil {
		return zero, fmt.Errorf("failed to encode location sample: %w", err)
	}

	ack := make(map[string]any)
	status, err := t.http.Post(ctx, endpoint, &ack, body,
		map[string]string{"Content-Type": "application/json"})
	if status == 0 {
		return zero, fmt.Errorf("%w: %s", ErrUnreachable, err)
	}
	if status < 200 || status >= 300 {
		message, _ := ack["message"].(string)
		return zero, &StatusError{Code: status, Message: message}
	}
	if err != nil {
		// A 2xx response with an unparseable body is still an acknowledgment.
		t.logger.Warn("endpoint acknowledgment is not valid JSON", logger.Err(err))
		return sample, nil
	}

	t.logger.Debug("location sample transmitted", slog.String("endpoint", endpoint),
		slog.Any("response", ack))
	return sample, nil
}
