// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package http

import (
	"errors"
	"io"
	"log/slog"
	stdhttp "net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/wneessen/locpush/internal/logger"
	"github.com/wneessen/locpush/internal/testhelper"
)

type testType struct {
	String string  `json:"string"`
	Int    int     `json:"int"`
	Float  float64 `json:"float"`
	Bool   bool    `json:"bool"`
}

const testFile = "../../testdata/testtype.json"

func TestNew(t *testing.T) {
	client := New(logger.New(slog.LevelInfo))
	if client == nil {
		t.Fatal("expected client to be non-nil")
	}
}

func TestClient_Post(t *testing.T) {
	t.Run("posting and serializing JSON should work", func(t *testing.T) {
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			if req.Header.Get("User-Agent") != UserAgent {
				t.Errorf("expected User-Agent %q, got %q", UserAgent, req.Header.Get("User-Agent"))
			}
			data, err := os.Open(testFile)
			if err != nil {
				t.Fatalf("failed to open JSON response file: %s", err)
			}

			return &stdhttp.Response{
				StatusCode: 200,
				Body:       data,
				Header:     make(stdhttp.Header),
			}, nil
		}

		client := New(logger.New(slog.LevelInfo))
		client.Transport = testhelper.MockRoundTripper{Fn: rtFn}
		headers := make(map[string]string)
		headers["Content-Type"] = "application/json"

		target := new(testType)
		status, err := client.Post(t.Context(), "https://example.com", target,
			strings.NewReader(`{"hello":"world"}`), headers)
		if err != nil {
			t.Fatalf("failed to post JSON request: %s", err)
		}

		if status != 200 {
			t.Errorf("expected status code 200, got %d", status)
		}
		if target.String != "test" {
			t.Errorf("expected target string to be 'test', got %s", target.String)
		}
		if target.Int != 123 {
			t.Errorf("expected target int to be 123, got %d", target.Int)
		}
		if target.Float != 123.456 {
			t.Errorf("expected target float to be 123.456, got %f", target.Float)
		}
		if !target.Bool {
			t.Error("expected target bool to be true")
		}
	})
	t.Run("unmarshalling into non-pointer should fail", func(t *testing.T) {
		client := New(logger.New(slog.LevelInfo))
		var target testType
		_, err := client.Post(t.Context(), "https://example.com", target, nil, nil)
		if err == nil {
			t.Fatal("expected post to fail")
		}
		if !errors.Is(err, ErrNonPointerTarget) {
			t.Errorf("expected error to be %s, got %s", ErrNonPointerTarget, err)
		}
	})
	t.Run("post request fails", func(t *testing.T) {
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return nil, errors.New("intentionally failing")
		}

		client := New(logger.New(slog.LevelInfo))
		client.Transport = testhelper.MockRoundTripper{Fn: rtFn}

		target := new(testType)
		_, err := client.Post(t.Context(), "https://example.com", target, nil, nil)
		if err == nil {
			t.Fatal("expected post request to fail")
		}
	})
	t.Run("status code is returned on decode failure", func(t *testing.T) {
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			return &stdhttp.Response{
				StatusCode: 502,
				Body:       io.NopCloser(strings.NewReader("bad gateway")),
				Header:     make(stdhttp.Header),
			}, nil
		}

		client := New(logger.NewLogger(slog.LevelInfo, io.Discard))
		client.Transport = testhelper.MockRoundTripper{Fn: rtFn}

		target := new(testType)
		status, err := client.Post(t.Context(), "https://example.com", target, nil, nil)
		if err == nil {
			t.Fatal("expected post request to fail")
		}
		if status != 502 {
			t.Errorf("expected status code 502, got %d", status)
		}
	})
}

func TestClient_PostWithTimeout(t *testing.T) {
	t.Run("post request times out", func(t *testing.T) {
		rtFn := func(req *stdhttp.Request) (*stdhttp.Response, error) {
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(time.Second * 5):
				return nil, errors.New("timeout did not fire")
			}
		}

		client := New(logger.New(slog.LevelInfo))
		client.Transport = testhelper.MockRoundTripper{Fn: rtFn}

		target := new(testType)
		_, err := client.PostWithTimeout(t.Context(), "https://example.com", target, nil, nil, time.Millisecond)
		if err == nil {
			t.Fatal("expected post request to timeout")
		}
	})
}
