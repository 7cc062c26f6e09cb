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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/thediveo/appshell"
)

// Process exit codes.
const (
	// BindFailureExitCode when the listening port cannot be bound for lack of
	// privileges or because it is already in use.
	BindFailureExitCode = 1
	// UsageExitCode when the command line is invalid.
	UsageExitCode = 2
)

// fatalError marks errors that must not be handled gracefully but instead
// crash the process loudly.
type fatalError struct{ error }

func (e fatalError) Unwrap() error { return e.error }

// runServer runs the server until the context gets cancelled; tests replace
// it in order to inject failures.
var runServer = func(ctx context.Context, srv *appshell.Server) error {
	return srv.Run(ctx)
}

// startupError logs bind failures in a human-friendly way and passes them on,
// while marking all other errors as fatal.
func startupError(log *slog.Logger, err error) error {
	var binderr *appshell.BindError
	if errors.As(err, &binderr) {
		log.Error(binderr.Error())
		return err
	}
	return fatalError{err}
}

func newRootCmd(stderr io.Writer, lookup appshell.LookupFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "appshell",
		Short: "appshell serves a single-page application's build artifacts",
		Long: `appshell serves the static assets of a single-page application, answers
liveness checks on /healthz, and serves the application's entry document for
all other routes so that client-side routing works on deep links.

Configuration is taken from the environment (and an optional .env file):
PORT, APP_ID, ENTRY_CACHE, FAULT_POLICY.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := slog.New(slog.NewTextHandler(stderr, nil))
			if err := appshell.LoadDotEnv(".env"); err != nil {
				log.Warn("cannot load .env file", slog.String("err", err.Error()))
			}
			srv, err := appshell.New(appshell.ConfigFromEnv(lookup, log),
				appshell.WithLogger(log))
			if err != nil {
				return startupError(log, err)
			}
			if err := runServer(cmd.Context(), srv); err != nil {
				return startupError(log, err)
			}
			return nil
		},
	}
}

// run executes the command, returning the process exit code. Errors that
// are neither bind failures nor usage errors are considered to be fatal and
// thus panic.
func run(ctx context.Context, args []string, stderr io.Writer, lookup appshell.LookupFunc) int {
	cmd := newRootCmd(stderr, lookup)
	cmd.SetArgs(args)
	cmd.SetErr(stderr)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var binderr *appshell.BindError
	if errors.As(err, &binderr) {
		return BindFailureExitCode
	}
	var fatal fatalError
	if errors.As(err, &fatal) {
		panic(fatal.error)
	}
	fmt.Fprintf(stderr, "Error: %s\n", err)
	return UsageExitCode
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr, os.LookupEnv)
	stop()
	os.Exit(code)
}
