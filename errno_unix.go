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

//go:build unix

package appshell

import (
	"errors"

	"golang.org/x/sys/unix"
)

func isAccessDenied(err error) bool { return errors.Is(err, unix.EACCES) }

func isAddrInUse(err error) bool { return errors.Is(err, unix.EADDRINUSE) }

func isNotDir(err error) bool { return errors.Is(err, unix.ENOTDIR) }
