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
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// FaultPolicy determines what happens after a fault outside of request
// handling has been reported.
type FaultPolicy int

const (
	// FaultTerminate exits the process after reporting, leaving it to a
	// process supervisor to restart us in a known-good state.
	FaultTerminate FaultPolicy = iota
	// FaultContinue only reports the fault and keeps the process running.
	FaultContinue
)

// FaultExitCode is the process exit code used by FaultTerminate.
const FaultExitCode = 2

// ParseFaultPolicy parses "terminate" or "continue" (case-insensitive) into a
// FaultPolicy.
func ParseFaultPolicy(s string) (FaultPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "terminate":
		return FaultTerminate, nil
	case "continue":
		return FaultContinue, nil
	}
	return FaultTerminate, fmt.Errorf("invalid fault policy %q", s)
}

// String returns the textual representation of a fault policy.
func (p FaultPolicy) String() string {
	if p == FaultContinue {
		return "continue"
	}
	return "terminate"
}

// FaultSink is the last-resort place where faults escaping all local handling
// end up. It is a diagnostic aid, not a recovery mechanism: faults are logged
// with an incident ID and a stack trace for later correlation.
//
// Faults during request handling are request-scoped and never terminate the
// process. Faults in background goroutines started via FaultSink.Go are
// subject to the FaultSink's FaultPolicy.
type FaultSink struct {
	log    *slog.Logger
	policy FaultPolicy
	exit   func(code int)
}

// NewFaultSink returns a FaultSink reporting to the specified logger and
// applying the specified policy to background faults.
func NewFaultSink(log *slog.Logger, policy FaultPolicy) *FaultSink {
	return &FaultSink{
		log:    log,
		policy: policy,
		exit:   os.Exit,
	}
}

// Report logs the fault together with a fresh incident ID and the current
// stack, returning the incident ID.
func (f *FaultSink) Report(fault any, attrs ...any) string {
	incident := uuid.NewString()
	attrs = append(attrs,
		slog.String("incident", incident),
		slog.Any("fault", fault),
		slog.String("stack", string(debug.Stack())))
	f.log.Error("uncaught fault", attrs...)
	return incident
}

// Go runs fn in a separate goroutine, reporting any panic escaping fn and then
// applying the FaultSink's policy.
func (f *FaultSink) Go(fn func()) {
	go func() {
		defer func() {
			fault := recover()
			if fault == nil {
				return
			}
			f.Report(fault, slog.String("scope", "background"))
			if f.policy == FaultTerminate {
				f.exit(FaultExitCode)
			}
		}()
		fn()
	}()
}

// Recoverer is an HTTP middleware that recovers from panics escaping request
// handling, reports them, and answers with a 500 to the client if still
// possible. The process keeps running.
func (f *FaultSink) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			fault := recover()
			if fault == nil {
				return
			}
			if fault == http.ErrAbortHandler {
				// net/http deliberately uses this to abort a response, so
				// don't get in its way.
				panic(fault)
			}
			incident := f.Report(fault,
				slog.String("scope", "request"),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("request", middleware.GetReqID(r.Context())))
			if r.Header.Get("Connection") != "Upgrade" {
				w.Header().Set("X-Incident-Id", incident)
				NormalizedHttpError(w, fmt.Errorf("panic: %v", fault))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
