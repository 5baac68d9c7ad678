// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package i2clink implements the I²C Raw Link (spec.md §4.A): byte-level
// read/write to the kernel I²C device acting as bus master.
package i2clink

import (
	"errors"
	"fmt"

	"periph.io/x/periph/conn/i2c"
)

// DefaultAddress is the WPU's I²C address that the master writes requests
// to (replies come back on a separate address, see internal/engine).
const DefaultAddress = 0x41

// ErrBadArgument is returned by Write when given a non-byte-sequence
// argument at a higher boundary (mirrors the original's
// "if type(data) is not list: return -1").
var ErrBadArgument = errors.New("i2clink: not a byte sequence")

// Link is single-owner: concurrent writers are undefined behavior, exactly
// like the kernel i2c-dev character device it wraps.
type Link struct {
	bus  i2c.BusCloser
	addr uint16
}

// Open opens the I²C bus named busName (empty string lets periph.io pick the
// only available bus) and binds it to addr for the master role.
func Open(busName string, addr uint16) (*Link, error) {
	bus, err := openBus(busName)
	if err != nil {
		return nil, err
	}
	return &Link{bus: bus, addr: addr}, nil
}

// New wraps an already-opened periph.io bus, letting tests inject
// i2ctest.Playback/i2ctest.Record in place of a real kernel device.
func New(bus i2c.BusCloser, addr uint16) *Link {
	return &Link{bus: bus, addr: addr}
}

// Write writes b atomically to the bound slave address.
func (l *Link) Write(b []byte) error {
	if b == nil {
		return ErrBadArgument
	}
	if err := l.bus.Tx(l.addr, b, nil); err != nil {
		return fmt.Errorf("i2clink: write: %w", err)
	}
	return nil
}

// Read reads exactly n bytes, blocking.
func (l *Link) Read(n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := l.bus.Tx(l.addr, nil, buf); err != nil {
		return nil, fmt.Errorf("i2clink: read: %w", err)
	}
	return buf, nil
}

// Close releases the underlying bus handle.
func (l *Link) Close() error {
	return l.bus.Close()
}
