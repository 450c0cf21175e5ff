// SPDX-License-Identifier: Apache-2.0

// Package service provides shared scaffolding for filecached binaries.
//
// [NewLogger] constructs the standard structured logger: a JSON handler
// writing to stderr, also installed as the slog default so third-party
// code using the package-level slog functions shares it.
//
// [HTTPServer] wraps a net/http.Server with the listener lifecycle every
// daemon needs: Serve(ctx) binds the listener, signals readiness via
// Ready(), serves until ctx is cancelled, then drains in-flight requests
// during a bounded graceful shutdown. cmd/filecached uses it to host a
// gin.Engine; cmd/filecache-viewer does not need it, since it is a pure
// HTTP client of the daemon's debug endpoint.
package service
