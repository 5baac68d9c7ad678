// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package engine implements the Transaction Engine (spec.md §4.D): it
// coordinates the I²C Raw Link, the BSC Slave Endpoint and the Frame Codec
// across one complete request/response "call", with retries, timing and a
// bounded queue. Grounded on lepton/lepton.go's capture loop (master write +
// poll-the-ring pattern) generalized from "grab one image" to "exchange one
// request/response frame, with a retry budget".
package engine

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/maruel/interrupt"

	"github.com/pommi/itho-wpu-go/internal/bsc"
	"github.com/pommi/itho-wpu-go/internal/cache"
	"github.com/pommi/itho-wpu-go/internal/protocol"
	"github.com/pommi/itho-wpu-go/internal/queue"
)

// errInterrupted is returned internally by popWait when Ctrl-C cuts a long
// wait short (spec.md §4.D's "--slave-only" mode can block up to
// SlaveTimeout). It never reaches the CLI as an error: callers treat it the
// same as a plain timeout, since both mean "no response arrived".
var errInterrupted = errors.New("engine: interrupted")

// popWait blocks for up to timeout like queue.Queue.PopWait, but also
// returns early on Ctrl-C, mirrored on cmd/lepton/main.go's sendImages
// select over interrupt.Channel.
func popWait(q *queue.Queue[[]byte], timeout time.Duration) ([]byte, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case v := <-q.C():
		return v, nil
	case <-interrupt.Channel:
		return nil, errInterrupted
	case <-t.C:
		return nil, nil
	}
}

// Mode selects which half of the dual-role exchange a call drives.
type Mode int

// Valid values for Mode.
const (
	ModeNormal Mode = iota
	ModeMasterOnly
	ModeSlaveOnly
)

// Defaults per spec.md §4.D/§6.
const (
	DefaultRetries          = 20
	DefaultRetryDelay       = 210 * time.Millisecond
	DefaultSlaveAddr   byte = 0x40
	DefaultSlaveTimeout      = 60 * time.Second
)

// ErrNotConfirmed is returned by Call for a write action (setsetting,
// setmanual) invoked without the CLI boundary's "YES"-typed confirmation.
var ErrNotConfirmed = errors.New("engine: write action requires confirmation")

// Writer is the master-side write half of the I²C Raw Link.
// *internal/i2clink.Link satisfies it.
type Writer interface {
	Write([]byte) error
}

// Engine wires the Transaction Engine. Its exported fields are plain
// configuration, not synchronized — set them before the first Call.
type Engine struct {
	Master Writer
	Slave  bsc.Endpoint
	Cache  *cache.Cache

	Mode         Mode
	NoCache      bool
	SlaveAddr    byte
	Retries      int
	RetryDelay   time.Duration
	SlaveTimeout time.Duration

	queue *queue.Queue[[]byte]
}

// New wires an Engine with spec.md's defaults. slave.OnEvent is claimed by
// the Engine; callers must not register their own callback on slave
// afterwards.
func New(master Writer, slave bsc.Endpoint, c *cache.Cache) *Engine {
	e := &Engine{
		Master:       master,
		Slave:        slave,
		Cache:        c,
		SlaveAddr:    DefaultSlaveAddr,
		Retries:      DefaultRetries,
		RetryDelay:   DefaultRetryDelay,
		SlaveTimeout: DefaultSlaveTimeout,
		queue:        queue.New[[]byte](4),
	}
	slave.OnEvent(e.onFrame)
	return e
}

// onFrame is the BSC callback contract (spec.md §4.B): validate checksum and
// length, silently drop on mismatch (logged only), otherwise enqueue.
func (e *Engine) onFrame(data []byte) {
	if len(data) == 0 {
		return
	}
	if _, kind := protocol.Parse(data); kind != protocol.OK {
		log.Printf("engine: dropping frame: %v", kind)
		return
	}
	if !e.queue.Push(data) {
		log.Printf("engine: queue full, dropping frame")
	}
}

// cacheKeyFor maps an action to its cache document key, or "" if the action
// is not cacheable.
func cacheKeyFor(name protocol.ActionName) string {
	switch name {
	case protocol.GetNodeID:
		return "nodeid"
	case protocol.GetSerial:
		return "serial"
	case protocol.GetDataType:
		return "datatype"
	default:
		return ""
	}
}

// Call executes one complete request/response cycle for action (spec.md
// §4.D). confirmed must be true for a write action (setsetting, setmanual);
// it is ignored for reads. The returned bytes, when non-nil, are the full
// raw wire frame (matching the cache file's on-disk representation) — the
// caller parses it with protocol.VerifyResponse or protocol.Parse to reach
// the payload.
func (e *Engine) Call(name string, params protocol.Params, confirmed bool) ([]byte, error) {
	action, ok := protocol.Lookup(name)
	if !ok {
		return nil, protocol.InvalidActionError(name)
	}
	if action.IsWrite() && !confirmed {
		return nil, ErrNotConfirmed
	}

	cacheKey := cacheKeyFor(action.Name)
	cacheable := cacheKey != "" && action.Cacheable()
	if !e.NoCache && cacheable {
		if hit := e.Cache.Get(cacheKey); hit != nil {
			return hit, nil
		}
	}

	if e.Mode == ModeSlaveOnly {
		return e.callSlaveOnly(action)
	}

	req, err := protocol.Compose(action, params)
	if err != nil {
		return nil, err
	}

	if e.Mode == ModeMasterOnly {
		if err := e.Master.Write(req); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return e.callNormal(action, req, cacheable, cacheKey)
}

func (e *Engine) callSlaveOnly(action protocol.Action) ([]byte, error) {
	if err := e.Slave.Arm(e.SlaveAddr); err != nil {
		log.Printf("engine: arm slave: %v", err)
		return nil, err
	}
	defer e.Slave.Disarm()
	raw, err := popWait(e.queue, e.SlaveTimeout)
	if err != nil {
		return nil, nil
	}
	if raw == nil {
		return nil, nil
	}
	return validate(raw, action)
}

func (e *Engine) callNormal(action protocol.Action, req []byte, cacheable bool, cacheKey string) ([]byte, error) {
	e.queue.Drain()
	if err := e.Slave.Arm(e.SlaveAddr); err != nil {
		log.Printf("engine: arm slave: %v", err)
		return nil, err
	}
	defer e.Slave.Disarm()

	for i := 0; i < e.Retries; i++ {
		if err := e.Master.Write(req); err != nil {
			return nil, err
		}
		raw, err := popWait(e.queue, e.RetryDelay)
		if err != nil {
			log.Printf("engine: %s: interrupted", action.Name)
			return nil, nil
		}
		if raw == nil {
			continue
		}
		result, err := validate(raw, action)
		if err != nil {
			return nil, err
		}
		if result == nil {
			continue
		}
		if !e.NoCache && cacheable {
			if err := e.Cache.Set(cacheKey, result); err != nil {
				log.Printf("engine: cache store: %v", err)
			}
		}
		return result, nil
	}
	log.Printf("engine: %s: no valid response after %d attempts", action.Name, e.Retries)
	return nil, nil
}

// validate checks raw against action's expected type/class (checksum and
// length were already enforced by onFrame). A type/class mismatch is
// reported as an error per spec.md §3's invariants, distinct from the
// silent drop applied to malformed frames at the queue boundary.
func validate(raw []byte, action protocol.Action) ([]byte, error) {
	if _, kind := protocol.VerifyResponse(raw, action); kind != protocol.OK {
		return nil, fmt.Errorf("engine: %s: %v", action.Name, kind)
	}
	return raw, nil
}
