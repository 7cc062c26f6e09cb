// Copyright 2026 Harald Albrecht.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package appshell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server serves an application's static assets, the liveness check, and the
// application's entry document for everything else. Each Server is
// independent of any other Server in the same process.
type Server struct {
	cfg       Config
	log       *slog.Logger
	faults    *FaultSink
	entry     EntrySource
	assetRoot string
	router    *Router
	handler   http.Handler
	closers   []io.Closer
}

// ServerOption sets optional properties at the time of creating a Server.
type ServerOption func(*Server)

// WithLogger sets the structured logger to use; by default, a Server logs
// nothing.
func WithLogger(log *slog.Logger) ServerOption {
	return func(s *Server) {
		s.log = log
	}
}

// WithEntrySource overrides the entry document source otherwise derived from
// the configuration.
func WithEntrySource(src EntrySource) ServerOption {
	return func(s *Server) {
		s.entry = src
	}
}

// WithFaultSink sets the FaultSink to report uncaught faults to, instead of a
// FaultSink created from the configured fault policy.
func WithFaultSink(faults *FaultSink) ServerOption {
	return func(s *Server) {
		s.faults = faults
	}
}

// New returns a new Server for the specified configuration. The asset root
// and the entry document don't need to exist yet; they are looked up on each
// request.
func New(cfg Config, opts ...ServerOption) (*Server, error) {
	s := &Server{
		cfg: cfg,
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.ShutdownTimeout <= 0 {
		s.cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if s.faults == nil {
		s.faults = NewFaultSink(s.log, cfg.FaultPolicy)
	}
	var err error
	if s.assetRoot, err = cfg.AssetRoot(); err != nil {
		return nil, fmt.Errorf("cannot determine asset root, reason: %w", err)
	}
	if s.entry == nil {
		entrypath, _ := cfg.EntryDocument() // can't fail after AssetRoot succeeded.
		if cfg.EntryCache {
			watched, err := NewWatchedEntry(entrypath, s.faults)
			if err != nil {
				return nil, err
			}
			s.entry = watched
			s.closers = append(s.closers, watched)
		} else {
			s.entry = &DiskEntry{Path: entrypath}
		}
	}
	s.router = NewRouter(
		Route{Name: "asset", Match: IsAssetRequest, Responder: NewAssets(os.DirFS(s.assetRoot))},
		Route{Name: "healthz", Match: IsHealthCheck, Responder: HealthCheck()},
		Route{Name: "entry", Match: Always, Responder: EntryDocument(s.entry, s.log)},
	)
	// No chi mux here: it would answer unknown methods with a 405, while the
	// entry document is to be served for any method. And no RealIP either, as
	// without a trusted proxy in front of us, clients could forge the remote
	// addresses we log.
	s.handler = chi.Chain(
		middleware.RequestID,
		AccessLog(s.log),
		s.faults.Recoverer,
	).Handler(s.router)
	return s, nil
}

// Handler returns the Server's HTTP handler, including its middleware.
func (s *Server) Handler() http.Handler { return s.handler }

// Router returns the Server's ordered route list.
func (s *Server) Router() *Router { return s.router }

// AssetRoot returns the absolute path of the directory static assets are
// served from.
func (s *Server) AssetRoot() string { return s.assetRoot }

// Listen binds the configured TCP port on all interfaces, logging the port
// actually bound. Permission and address-in-use problems are reported as
// *BindError.
func (s *Server) Listen() (net.Listener, error) {
	l, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(s.cfg.Port)))
	if err != nil {
		return nil, ClassifyBindError(s.cfg.Port, err)
	}
	s.log.Info("Listening on "+bindTarget(l.Addr()),
		slog.String("addr", l.Addr().String()),
		slog.String("app", s.cfg.AppID),
		slog.String("assets", s.assetRoot))
	return l, nil
}

func bindTarget(addr net.Addr) string {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return "port " + strconv.Itoa(tcp.Port)
	}
	return "pipe " + addr.String()
}

// Serve serves HTTP requests on the specified listener until the context
// gets cancelled, then gracefully shuts down, giving in-flight requests the
// configured shutdown timeout to complete. Serve closes the listener.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	defer s.close()
	srv := &http.Server{
		Handler:  s.handler,
		ErrorLog: slog.NewLogLogger(s.log.Handler(), slog.LevelError),
	}
	served := make(chan error, 1)
	go func() {
		served <- srv.Serve(l)
	}()
	select {
	case err := <-served:
		return err
	case <-ctx.Done():
	}
	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
		return fmt.Errorf("graceful shutdown failed, reason: %w", err)
	}
	if err := <-served; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run binds the configured port and serves until the context gets
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	l, err := s.Listen()
	if err != nil {
		s.close()
		return err
	}
	return s.Serve(ctx, l)
}

// Close releases resources held by a Server that never got to Run or Serve;
// Run and Serve release them on their own when done.
func (s *Server) Close() error {
	s.close()
	return nil
}

func (s *Server) close() {
	for _, c := range s.closers {
		_ = c.Close()
	}
	s.closers = nil
}
