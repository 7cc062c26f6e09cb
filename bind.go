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
	"fmt"
	"net"
)

// BindFailure classifies why binding the listening socket failed.
type BindFailure int

const (
	// BindPermissionDenied means lacking the privileges to bind the port.
	BindPermissionDenied BindFailure = iota + 1
	// BindAddressInUse means some other socket has already bound the port.
	BindAddressInUse
)

// BindError is a listen-phase error with a known cause. The Error message is
// meant to be shown to humans as-is.
type BindError struct {
	Target  string // "Port 80", et cetera.
	Failure BindFailure
	Err     error
}

func (e *BindError) Error() string {
	switch e.Failure {
	case BindPermissionDenied:
		return e.Target + " requires elevated privileges"
	case BindAddressInUse:
		return e.Target + " is already in use"
	}
	return fmt.Sprintf("%s cannot be bound: %s", e.Target, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// ClassifyBindError returns a *BindError if err is a listen-phase error
// caused by lacking privileges or the address already being in use. Otherwise,
// it returns err unchanged, leaving it to the caller to treat it as fatal.
func ClassifyBindError(port int, err error) error {
	var operr *net.OpError
	if !errors.As(err, &operr) || operr.Op != "listen" {
		return err
	}
	target := fmt.Sprintf("Port %d", port)
	switch {
	case isAccessDenied(err):
		return &BindError{Target: target, Failure: BindPermissionDenied, Err: err}
	case isAddrInUse(err):
		return &BindError{Target: target, Failure: BindAddressInUse, Err: err}
	}
	return err
}
