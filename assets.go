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
	"bytes"
	"io"
	"io/fs"
	"net/http"
	"os"
)

// Assets serves regular files from an asset root, passing on requests for
// anything else.
type Assets struct {
	fs fs.FS // the FS to serve static assets from.
}

var _ Responder = (*Assets)(nil)

// NewAssets returns a new Responder serving static assets from the specified
// fs. In order to serve the static assets from a directory on the OS file
// system, use os.DirFS:
//
//	a := NewAssets(os.DirFS("/opt/data/myapp"))
func NewAssets(fs fs.FS) *Assets {
	return &Assets{fs: fs}
}

// Respond tries to serve the static asset specified in the request path from
// the Assets' fs and returning true if successful. If no such static asset
// exists, nothing is served and false is returned instead.
//
// IMPORTANT: the passed r.URL.Path must have already been sanitized.
func (a *Assets) Respond(w http.ResponseWriter, r *http.Request) bool {
	// Try to check that the requested resource in fact is a plain file.
	// Thankfully, fs.Stat deals with fs.FS implementations that don't support
	// fs.StatFS and works around this situation.
	path := r.URL.Path[1:] // ...fs.FS uses unrooted paths.
	if path == "" {
		return false
	}
	info, err := fs.Stat(a.fs, path)
	// If we have a "regular" file then serve it as-is. Not via http.FileServer,
	// as that redirects ".../index.html" to ".../", which in turn would end up
	// with the entry document instead.
	if err == nil && info.Mode()&os.ModeType == 0 {
		a.serveFile(w, r, path)
		return true
	}
	// If we got an error and it isn't a missing static asset, then normalize
	// (or rather, sanitize) the error and send that back to the client. A path
	// through a regular file ("foo.js/bar") isn't an asset either.
	if err != nil && !os.IsNotExist(err) && !isNotDir(err) {
		NormalizedHttpError(w, err)
		return true
	}
	return false
}

// serveFile serves the regular file at the (unrooted) path, with content type
// inference, range and conditional request support courtesy of
// http.ServeContent.
func (a *Assets) serveFile(w http.ResponseWriter, r *http.Request, path string) {
	f, err := a.fs.Open(path)
	if err != nil {
		NormalizedHttpError(w, err)
		return
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil {
		NormalizedHttpError(w, err)
		return
	}
	content, ok := f.(io.ReadSeeker)
	if !ok {
		// Not all fs.FS implementations hand out seekable files.
		contents, err := io.ReadAll(f)
		if err != nil {
			NormalizedHttpError(w, err)
			return
		}
		content = bytes.NewReader(contents)
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), content)
}
