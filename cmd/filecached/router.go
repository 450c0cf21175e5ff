// SPDX-License-Identifier: Apache-2.0

package main

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cachedepot/filecached/internal/core"
	"github.com/cachedepot/filecached/internal/name"
	"github.com/cachedepot/filecached/lib/config"
)

// newRouter builds the gin.Engine that fronts c: every request is
// translated into an endpoint name and handed to c.Submit, and the
// actor's Response is translated back into the wire reply. /debug/status
// is the one route the front end answers directly, without going
// through the actor.
func newRouter(c *core.Core, cfg config.Config, logger *slog.Logger) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	e := gin.New()
	e.Use(gin.Recovery())

	if cfg.Debug {
		e.GET("/debug/status", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, c.Status())
		})
	}

	e.NoRoute(func(ctx *gin.Context) {
		handleRequest(ctx, c, cfg, logger)
	})

	return e
}

func handleRequest(ctx *gin.Context, c *core.Core, cfg config.Config, logger *slog.Logger) {
	endpointName, ok := endpointNameFor(ctx.Request.Method, ctx.Request.URL.Path, cfg.UseHTTPMethodRouting)
	if !ok {
		ctx.Status(http.StatusMethodNotAllowed)
		return
	}

	headers := make(map[string]string, len(ctx.Request.Header))
	for key := range ctx.Request.Header {
		headers[strings.ToLower(key)] = ctx.Request.Header.Get(key)
	}

	body, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		ctx.Status(http.StatusBadRequest)
		return
	}

	resp, err := c.Submit(ctx.Request.Context(), endpointName, headers, body)
	if err != nil {
		logger.Warn("filecached: request cancelled", "path", ctx.Request.URL.Path, "error", err)
		ctx.Status(http.StatusServiceUnavailable)
		return
	}

	for _, h := range resp.Headers {
		ctx.Writer.Header().Set(h.Key, h.Value)
	}
	ctx.Status(resp.Status)
	if len(resp.Body) > 0 {
		ctx.Writer.Write(resp.Body)
	}
}

// endpointNameFor maps an incoming (method, path) pair onto the
// subscription name the core's file table is keyed by. ok is false for
// a method the core never exposes a suffix for.
func endpointNameFor(method, path string, routingEnabled bool) (string, bool) {
	logicalPath := strings.TrimPrefix(path, "/")

	if !routingEnabled {
		return logicalPath, true
	}

	var suffix name.Method
	switch method {
	case http.MethodOptions:
		suffix = name.Options
	case http.MethodHead:
		suffix = name.Head
	case http.MethodGet:
		suffix = name.Get
	case http.MethodPut:
		suffix = name.Put
	case http.MethodPost:
		suffix = name.Post
	default:
		return "", false
	}
	return name.Suffixed(logicalPath, suffix, routingEnabled), true
}
