// Copyright 2023 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build go1.21

package quic

import "time"

// fakeClock is a Clock test double with millisecond granularity and a
// caller-controlled current time, substituting a deterministic clock
// for wall time in tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Granularity() time.Duration { return time.Millisecond }

func (c *fakeClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}
