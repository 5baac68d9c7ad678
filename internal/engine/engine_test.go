// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package engine

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/pommi/itho-wpu-go/internal/bsc"
	"github.com/pommi/itho-wpu-go/internal/cache"
	"github.com/pommi/itho-wpu-go/internal/protocol"
)

type fakeWriter struct {
	writes [][]byte
	err    error
}

func (w *fakeWriter) Write(b []byte) error {
	w.writes = append(w.writes, append([]byte(nil), b...))
	return w.err
}

func newTestEngine(t *testing.T) (*Engine, *fakeWriter, *bsc.Fake) {
	t.Helper()
	w := &fakeWriter{}
	s := &bsc.Fake{}
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.json"))
	if err != nil {
		t.Fatal(err)
	}
	e := New(w, s, c)
	e.RetryDelay = time.Millisecond
	e.Retries = 3
	return e, w, s
}

// S6 — cache hit bypass: a populated cache must not touch the I²C link.
func TestCall_CacheShortCircuit(t *testing.T) {
	e, w, s := newTestEngine(t)
	nodeid := []byte{0x80, 0x90, 0xE0, 0x01, 0x06, 0x00, 0x01, 0x00, 0x0D, 0x02, 0x05, 0x4F}
	if err := e.Cache.Set("nodeid", nodeid); err != nil {
		t.Fatal(err)
	}

	got, err := e.Call(string(protocol.GetNodeID), protocol.Params{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(nodeid) {
		t.Fatalf("got %v, want %v", got, nodeid)
	}
	if len(w.writes) != 0 {
		t.Fatalf("cache hit wrote to master: %v", w.writes)
	}
	if s.Armed() {
		t.Fatal("cache hit armed the slave endpoint")
	}
}

// Retry bound: when the queue never receives a frame, Call returns nil
// after exactly Retries writes.
func TestCall_RetryBound(t *testing.T) {
	e, w, _ := newTestEngine(t)
	got, err := e.Call(string(protocol.GetSerial), protocol.Params{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("got %v, want nil", got)
	}
	if len(w.writes) != e.Retries {
		t.Fatalf("got %d writes, want %d", len(w.writes), e.Retries)
	}
}

// Drop-on-bad-checksum: a frame injected with a flipped last byte never
// reaches the queue.
func TestOnFrame_DropsBadChecksum(t *testing.T) {
	e, _, s := newTestEngine(t)
	good := []byte{0x80, 0x90, 0xE1, 0x01, 0x00, 0x00}
	good[len(good)-1] = goodChecksum(good)
	bad := append([]byte(nil), good...)
	bad[len(bad)-1] ^= 0xFF

	s.Arm(DefaultSlaveAddr)
	s.Inject(bad)
	if e.queue.Len() != 0 {
		t.Fatalf("bad-checksum frame reached the queue: len=%d", e.queue.Len())
	}
	s.Inject(good)
	if e.queue.Len() != 1 {
		t.Fatalf("valid frame did not reach the queue: len=%d", e.queue.Len())
	}
}

func goodChecksum(partial []byte) byte {
	return protocol.Checksum(partial[:len(partial)-1], 0x80)
}

// A successful response delivered mid-retry satisfies the call and is
// cached.
func TestCall_SucceedsOnDelayedFrame(t *testing.T) {
	e, w, s := newTestEngine(t)
	e.Retries = 5
	resp := []byte{0x80, 0x90, 0xE1, 0x01, 0x03, 0x00, 0x12, 0x34}
	resp = append(resp, protocol.Checksum(resp, 0x80))

	go func() {
		time.Sleep(2 * time.Millisecond)
		s.Inject(resp)
	}()

	got, err := e.Call(string(protocol.GetSerial), protocol.Params{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(resp) {
		t.Fatalf("got %v, want %v", got, resp)
	}
	if len(w.writes) == 0 {
		t.Fatal("expected at least one write")
	}
	if cached := e.Cache.Get("serial"); len(cached) != len(resp) {
		t.Fatalf("cache not populated: %v", cached)
	}
}

func TestCall_WriteRequiresConfirmation(t *testing.T) {
	e, _, _ := newTestEngine(t)
	_, err := e.Call(string(protocol.SetSetting), protocol.Params{ID: 5, Value: 42}, false)
	if err != ErrNotConfirmed {
		t.Fatalf("got %v, want ErrNotConfirmed", err)
	}
}

func TestCall_MasterOnlyNeverArmsSlave(t *testing.T) {
	e, w, s := newTestEngine(t)
	e.Mode = ModeMasterOnly
	got, err := e.Call(string(protocol.GetNodeID), protocol.Params{}, false)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("got %v, want nil", got)
	}
	if len(w.writes) != 1 {
		t.Fatalf("got %d writes, want 1", len(w.writes))
	}
	if s.Armed() {
		t.Fatal("master-only mode armed the slave endpoint")
	}
}

func TestCall_InvalidAction(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if _, err := e.Call("bogus", protocol.Params{}, false); err == nil {
		t.Fatal("want error for unknown action")
	}
}
