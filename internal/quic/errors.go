// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build go1.21

package quic

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// errInvalidState is the sentinel wrapped by every protocol-state
// invariant violation this package reports (P1–P5), so callers can test
// for "the core detected a contract violation" with errors.Is without
// caring which specific invariant fired.
var errInvalidState = errors.New("quic: invalid protocol state")

// invalidStatef wraps errInvalidState with a formatted, contextual
// message, mirroring pkg/errors' Wrapf idiom used throughout this
// package for every fallible call.
func invalidStatef(format string, args ...interface{}) error {
	return errors.Wrapf(errInvalidState, format, args...)
}

// AppendFrameErrors aggregates the independent per-frame replay errors
// encountered while walking a lost packet's frame list: a single
// malformed frame must not prevent the rest of the packet's frames from
// being retried.
func AppendFrameErrors(existing error, frameErr error) error {
	if frameErr == nil {
		return existing
	}
	return multierror.Append(existing, frameErr)
}
