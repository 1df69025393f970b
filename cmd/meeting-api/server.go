// Copyright The Meetwise Authors.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/meetwise-ai/meeting-agent-service/internal/logging"
	"github.com/meetwise-ai/meeting-agent-service/internal/middleware"
)

// gracefulShutdownTimeout bounds how long in-flight requests and the NATS
// drain may take once a termination signal arrives.
const gracefulShutdownTimeout = 25 * time.Second

// setupHTTPServer configures and starts the HTTP server
func setupHTTPServer(flags flags, svc *MeetingAgentAPI, gracefulCloseWG *sync.WaitGroup) *http.Server {
	router := mux.NewRouter()
	svc.registerRoutes(router)

	var handler http.Handler = router

	// Add HTTP middleware
	// Note: Order matters - RequestIDMiddleware should come first in the chain,
	// so it should be the last middleware added to the handler since it is executed in reverse order.
	handler = middleware.WebhookBodyCaptureMiddleware()(handler)
	handler = middleware.RequestLoggerMiddleware()(handler)
	handler = middleware.RequestIDMiddleware()(handler)

	// Set up http listener in a goroutine using provided command line parameters.
	var addr string
	if flags.Bind == "*" {
		addr = ":" + flags.Port
	} else {
		addr = flags.Bind + ":" + flags.Port
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 3 * time.Second,
	}
	gracefulCloseWG.Add(1)
	go func() {
		slog.With("addr", addr).Debug("starting http server, listening on port " + flags.Port)
		err := httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			slog.With(logging.ErrKey, err).Error("http listener error")
			os.Exit(1)
		}
		// Because ErrServerClosed is *immediately* returned when Shutdown is
		// called, not when when Shutdown completes, this must not yet decrement
		// the wait group.
	}()

	return httpServer
}

// gracefulShutdown stops accepting new work, waits for in-flight requests and
// transcript jobs, then drains the NATS connection.
func gracefulShutdown(
	httpServer *http.Server,
	natsConn *nats.Conn,
	consumeCtx jetstream.ConsumeContext,
	gracefulCloseWG *sync.WaitGroup,
	cancel context.CancelFunc,
) {
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.With(logging.ErrKey, err).Error("http server shutdown error")
	}
	gracefulCloseWG.Done()

	// Stop pulling transcript jobs before draining: a job consumed after the
	// drain starts could not publish its completion message.
	if consumeCtx != nil {
		consumeCtx.Stop()
	}

	if natsConn != nil && !natsConn.IsClosed() {
		if err := natsConn.Drain(); err != nil {
			slog.With(logging.ErrKey, err).Error("NATS drain error")
		}
	}

	cancel()
	gracefulCloseWG.Wait()
	slog.Info("shutdown complete")
}
