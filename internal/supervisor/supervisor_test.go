// Funnelcast - Event Marketing Recommendation and Prediction Engine
// Copyright 2026 M. Fujimoto (mfujimot)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mfujimot/funnelcast

package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mfujimot/funnelcast/internal/logging"
)

type mockServer struct {
	started  atomic.Bool
	shutdown atomic.Bool
	release  chan struct{}
	serveErr error
}

func newMockServer() *mockServer {
	return &mockServer{release: make(chan struct{})}
}

func (m *mockServer) ListenAndServe() error {
	m.started.Store(true)
	if m.serveErr != nil {
		return m.serveErr
	}
	<-m.release
	return nil
}

func (m *mockServer) Shutdown(_ context.Context) error {
	m.shutdown.Store(true)
	close(m.release)
	return nil
}

func TestHTTPServiceGracefulShutdown(t *testing.T) {
	server := newMockServer()
	svc := NewHTTPServerService(server, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	deadline := time.After(5 * time.Second)
	for !server.started.Load() {
		select {
		case <-deadline:
			t.Fatal("server never started")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
	if !server.shutdown.Load() {
		t.Error("Shutdown was never called")
	}
}

func TestHTTPServiceStartupFailure(t *testing.T) {
	server := newMockServer()
	server.serveErr = errors.New("address already in use")
	svc := NewHTTPServerService(server, time.Second)

	if err := svc.Serve(context.Background()); err == nil {
		t.Fatal("expected startup error, got nil")
	}
}

func TestTreeServesAndStops(t *testing.T) {
	tree := NewTree(logging.NewSlogLogger(), DefaultTreeConfig())

	server := newMockServer()
	tree.AddAPIService(NewHTTPServerService(server, time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.After(5 * time.Second)
	for !server.started.Load() {
		select {
		case <-deadline:
			t.Fatal("supervised server never started")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("tree returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("tree did not stop after cancel")
	}
}
