// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package i2clink

import (
	"testing"

	"periph.io/x/periph/conn/i2c/i2ctest"
)

func TestLink_Write(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: DefaultAddress, W: []byte{0x80, 0xA4, 0x00, 0x04, 0x00, 0x56}},
		},
	}
	l := New(bus, DefaultAddress)
	if err := l.Write([]byte{0x80, 0xA4, 0x00, 0x04, 0x00, 0x56}); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestLink_Write_nil(t *testing.T) {
	l := New(&i2ctest.Playback{}, DefaultAddress)
	if err := l.Write(nil); err != ErrBadArgument {
		t.Fatalf("got %v, want ErrBadArgument", err)
	}
}

func TestLink_Read(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: DefaultAddress, R: []byte{0x80, 0x90, 0xE1, 0x01}},
		},
	}
	l := New(bus, DefaultAddress)
	got, err := l.Read(4)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x80, 0x90, 0xE1, 0x01}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
