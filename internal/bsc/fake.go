// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bsc

import "sync"

// Fake is a software Endpoint for tests, grounded on lepton/fake_lepton.go's
// "cheezy but gets us going for testing without a device" pattern. Tests
// drive it with Inject to simulate an asynchronous byte burst arriving from
// the WPU.
type Fake struct {
	mu    sync.Mutex
	cb    func([]byte)
	armed bool
	addr  byte
}

// OnEvent implements Endpoint.
func (f *Fake) OnEvent(cb func([]byte)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cb = cb
}

// Arm implements Endpoint.
func (f *Fake) Arm(address byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armed = true
	f.addr = address
	return nil
}

// Disarm implements Endpoint.
func (f *Fake) Disarm() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armed = false
	return nil
}

// Armed reports whether Arm was called without a matching Disarm, for tests
// that assert on slave-arming behavior (e.g. master-only mode must never
// arm).
func (f *Fake) Armed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.armed
}

// Inject simulates the peripheral receiving data, invoking the registered
// callback synchronously as if called from the driver's background thread.
func (f *Fake) Inject(data []byte) {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	if cb != nil {
		cb(data)
	}
}
