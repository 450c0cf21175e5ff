// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHTTPServerLifecycle(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := NewHTTPServer(HTTPServerConfig{
		Address: "127.0.0.1:0",
		Handler: handler,
		Logger:  discardLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(ctx)
	}()

	select {
	case <-server.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("server did not become ready")
	}

	resp, err := http.Get(fmt.Sprintf("http://%s/", server.Addr().String()))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	cancel()

	select {
	case err := <-serveErr:
		if err != nil {
			t.Errorf("Serve returned error after shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after context cancellation")
	}
}

func TestHTTPServerPanicsOnMissingConfig(t *testing.T) {
	tests := []struct {
		name   string
		config HTTPServerConfig
	}{
		{"missing address", HTTPServerConfig{Handler: http.NotFoundHandler(), Logger: discardLogger()}},
		{"missing handler", HTTPServerConfig{Address: ":0", Logger: discardLogger()}},
		{"missing logger", HTTPServerConfig{Address: ":0", Handler: http.NotFoundHandler()}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("NewHTTPServer: want panic, got none")
				}
			}()
			NewHTTPServer(tc.config)
		})
	}
}
