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
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables consulted by ConfigFromEnv.
const (
	PortEnv        = "PORT"
	AppIDEnv       = "APP_ID"
	EntryCacheEnv  = "ENTRY_CACHE"
	FaultPolicyEnv = "FAULT_POLICY"
)

// Defaults for unset or invalid configuration values.
const (
	DefaultPort            = 5000
	DefaultAppID           = "app"
	DefaultShutdownTimeout = 15 * time.Second
)

// DistDir is the directory, relative to the working directory, containing
// the built applications, with one subdirectory per application ID.
const DistDir = "dist"

// EntryDocumentName is the name of the entry document inside the asset root.
const EntryDocumentName = "index.html"

// Config describes a static application server. The zero value is not
// useful; use ConfigFromEnv or fill in at least Port and AppID.
type Config struct {
	Port            int           // TCP port to listen on; 0 lets the kernel choose.
	AppID           string        // application identifier, names the asset root below DistDir.
	WorkDir         string        // base directory; empty means the current working directory.
	EntryCache      bool          // cache the entry document in memory, watching for changes.
	FaultPolicy     FaultPolicy   // what to do after background faults.
	ShutdownTimeout time.Duration // grace period for in-flight requests when stopping.
}

// LookupFunc looks up the value of an environment variable, with the same
// semantics as os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// LoadDotEnv loads environment variables from the specified ".env"-style
// files into the process environment, without overriding variables that are
// already set. A missing file is not an error.
func LoadDotEnv(filenames ...string) error {
	for _, name := range filenames {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ConfigFromEnv returns the configuration as derived from the environment
// variables looked up using lookup; pass os.LookupEnv for the process
// environment. Invalid values never fail: they fall back to their defaults,
// logging a warning to log.
//
// The port rule is: if PORT is unset or empty, use DefaultPort. Otherwise,
// parse it as a decimal integer; if that succeeds and the value is in range
// 0–65535, use it, else use DefaultPort.
func ConfigFromEnv(lookup LookupFunc, log *slog.Logger) Config {
	cfg := Config{
		Port:            DefaultPort,
		AppID:           DefaultAppID,
		FaultPolicy:     FaultTerminate,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
	if portval, ok := lookup(PortEnv); ok && portval != "" {
		port, err := ParsePort(portval)
		if err != nil {
			log.Warn("invalid port, using default",
				slog.String("env", PortEnv),
				slog.String("value", portval),
				slog.Int("default", DefaultPort))
		} else {
			cfg.Port = port
		}
	}
	if appid, ok := lookup(AppIDEnv); ok {
		appid = strings.TrimSpace(appid)
		// The application ID names a single directory, so don't let it wander
		// off somewhere else.
		if appid != "" && appid == filepath.Base(appid) && appid != ".." {
			cfg.AppID = appid
		} else if appid != "" {
			log.Warn("invalid application ID, using default",
				slog.String("env", AppIDEnv),
				slog.String("value", appid),
				slog.String("default", DefaultAppID))
		}
	}
	if cacheval, ok := lookup(EntryCacheEnv); ok && cacheval != "" {
		cache, err := strconv.ParseBool(cacheval)
		if err != nil {
			log.Warn("invalid entry cache setting, not caching",
				slog.String("env", EntryCacheEnv),
				slog.String("value", cacheval))
		}
		cfg.EntryCache = cache
	}
	if policyval, ok := lookup(FaultPolicyEnv); ok && policyval != "" {
		policy, err := ParseFaultPolicy(policyval)
		if err != nil {
			log.Warn("invalid fault policy, using default",
				slog.String("env", FaultPolicyEnv),
				slog.String("value", policyval),
				slog.String("default", FaultTerminate.String()))
		}
		cfg.FaultPolicy = policy
	}
	return cfg
}

// ParsePort parses a decimal TCP port number in the range 0–65535.
func ParsePort(s string) (int, error) {
	port, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil {
		return 0, err
	}
	return int(port), nil
}

// AssetRoot returns the absolute path of the directory containing the
// application's static assets.
func (c Config) AssetRoot() (string, error) {
	workdir := c.WorkDir
	if workdir == "" {
		var err error
		if workdir, err = os.Getwd(); err != nil {
			return "", err
		}
	}
	return filepath.Abs(filepath.Join(workdir, DistDir, c.AppID))
}

// EntryDocument returns the absolute path of the application's entry
// document.
func (c Config) EntryDocument() (string, error) {
	root, err := c.AssetRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, EntryDocumentName), nil
}
