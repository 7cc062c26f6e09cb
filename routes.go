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
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// HealthCheckPath is the exact request path of the liveness check.
const HealthCheckPath = "/healthz"

// Responder answers a request, returning true if it served a response.
// Returning false passes the request on to the next matching route, and in
// this case the Responder must not have written anything to w.
type Responder interface {
	Respond(w http.ResponseWriter, r *http.Request) bool
}

// ResponderFunc adapts an ordinary function into a Responder.
type ResponderFunc func(w http.ResponseWriter, r *http.Request) bool

// Respond calls f(w, r).
func (f ResponderFunc) Respond(w http.ResponseWriter, r *http.Request) bool {
	return f(w, r)
}

// Route pairs a request predicate with the Responder to try on matching
// requests.
type Route struct {
	Name      string
	Match     func(r *http.Request) bool
	Responder Responder
}

// Router tries its routes in order, and the first route that matches a
// request and also serves it wins.
type Router struct {
	routes []Route
}

var _ http.Handler = (*Router)(nil)

// NewRouter returns a Router trying the specified routes in the order given.
func NewRouter(routes ...Route) *Router {
	return &Router{routes: routes}
}

// Routes returns the routes in the order they are tried.
func (rt *Router) Routes() []Route {
	return rt.routes
}

// ServeHTTP serves the request using the first matching route willing to
// serve it, or a plain 404 if there is none.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Get the absolute and also cleaned path to the requested resource in order
	// to prevent parent directory traversal outside the asset root. Slapping
	// "/" ensures that path.Clean does NOT use any current working directory
	// for resolving the request path.
	r.URL.Path = path.Clean("/" + r.URL.Path)
	for _, route := range rt.routes {
		if route.Match(r) && route.Responder.Respond(w, r) {
			return
		}
	}
	http.NotFound(w, r)
}

// IsAssetRequest returns true if r is a GET or HEAD request with a path
// looking like a file name, that is, some path segment contains a "." that
// is followed by at least one further character.
func IsAssetRequest(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	return hasFileExtension(r.URL.Path)
}

func hasFileExtension(p string) bool {
	for _, segment := range strings.Split(p, "/") {
		if dot := strings.LastIndexByte(segment, '.'); dot >= 0 && dot < len(segment)-1 {
			return true
		}
	}
	return false
}

// IsHealthCheck returns true for requests to the liveness check path, using
// any method.
func IsHealthCheck(r *http.Request) bool {
	return r.URL.Path == HealthCheckPath
}

// Always matches any request.
func Always(*http.Request) bool { return true }

// HealthCheck answers any request with a 200 and "OK", without checking any
// dependencies.
func HealthCheck() Responder {
	return ResponderFunc(func(w http.ResponseWriter, r *http.Request) bool {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
		return true
	})
}

// EntryDocument answers any request with a 200 and the entry document's
// current contents as supplied by src. Read errors are logged and then
// answered with a server error; they never affect other requests.
func EntryDocument(src EntrySource, log *slog.Logger) Responder {
	return ResponderFunc(func(w http.ResponseWriter, r *http.Request) bool {
		contents, err := src.Read()
		if err != nil {
			log.Error("cannot serve entry document",
				slog.String("path", r.URL.Path),
				slog.String("request", middleware.GetReqID(r.Context())),
				slog.String("err", err.Error()))
			NormalizedHttpError(w, err)
			return true
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			_, _ = w.Write(contents)
		}
		return true
	})
}
