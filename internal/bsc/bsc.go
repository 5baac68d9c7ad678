// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package bsc implements the BSC Slave Endpoint (spec.md §4.B): it arms the
// Broadcom Serial Controller peripheral to answer as an I²C slave at a given
// address and delivers received byte bursts to a callback running on a
// driver-owned background goroutine.
//
// No example in the retrieved pack drives a BSC peripheral in slave mode
// (periph.io is master-only); the register access shape below is modeled on
// the bit-constant style used for other Broadcom peripherals (see
// periph.io/x/periph/host/bcm283x's DMA register layout) and the
// open/poll/close lifecycle is modeled on lepton/bus.go's raw ioctl I²C
// link.
package bsc

import (
	"log"
	"sync"
	"time"
)

// Endpoint is the BSC Slave Endpoint contract. It is satisfied by the real
// memory-mapped peripheral (Device) and by a fake used in engine tests.
type Endpoint interface {
	// OnEvent registers the callback invoked whenever a byte burst arrives.
	// It must be called before Arm.
	OnEvent(cb func(data []byte))
	// Arm configures the peripheral to accept traffic at address.
	Arm(address byte) error
	// Disarm releases the peripheral and joins the background goroutine.
	Disarm() error
}

// pollInterval is how often the background goroutine checks the peripheral
// for a pending byte burst. This stands in for the hardware interrupt the
// BSC peripheral would otherwise raise.
const pollInterval = 5 * time.Millisecond

// Device is a BSC-backed Endpoint. The zero value is not usable; use Open.
type Device struct {
	regs *registers

	mu      sync.Mutex
	cb      func([]byte)
	armed   bool
	stop    chan struct{}
	done    chan struct{}
}

// Open maps the BSC peripheral's register window. memPath is normally
// "/dev/gpiomem" (unprivileged) or "/dev/mem" (requires root, needed for the
// BSC block on SoCs where it isn't exposed via gpiomem).
func Open(memPath string) (*Device, error) {
	regs, err := mapRegisters(memPath)
	if err != nil {
		return nil, err
	}
	return &Device{regs: regs}, nil
}

// OnEvent implements Endpoint.
func (d *Device) OnEvent(cb func([]byte)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cb = cb
}

// Arm implements Endpoint.
func (d *Device) Arm(address byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.armed {
		return nil
	}
	d.regs.setSlaveAddress(address)
	d.regs.enable()
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	d.armed = true
	go d.pollLoop(d.stop, d.done)
	return nil
}

// Disarm implements Endpoint: it stops the polling goroutine (joining it)
// and releases the peripheral.
func (d *Device) Disarm() error {
	d.mu.Lock()
	if !d.armed {
		d.mu.Unlock()
		return nil
	}
	stop, done := d.stop, d.done
	d.armed = false
	d.mu.Unlock()

	close(stop)
	<-done
	d.regs.disable()
	return nil
}

// Close releases the mapped register window. It implicitly disarms.
func (d *Device) Close() error {
	_ = d.Disarm()
	return d.regs.close()
}

// pollLoop is the "driver-provided thread" described in spec.md §5: it owns
// the hardware poll and is the sole producer onto whatever queue the
// registered callback feeds.
func (d *Device) pollLoop(stop, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(pollInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			n, data := d.regs.drain()
			if n == 0 {
				// Spurious wake; nothing arrived.
				continue
			}
			log.Printf("bsc: received %d bytes", n)
			d.mu.Lock()
			cb := d.cb
			d.mu.Unlock()
			if cb != nil {
				cb(data)
			}
		}
	}
}
