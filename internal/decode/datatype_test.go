// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package decode

import (
	"math"
	"testing"

	"github.com/pommi/itho-wpu-go/internal/schema"
)

// S4 — datalog decode: datatype 0x92, payload [0xFF, 0x38] -> -2.00.
func TestDecode_S4(t *testing.T) {
	got, ok := Decode(0x92, []byte{0xFF, 0x38})
	if !ok {
		t.Fatal("not ok")
	}
	if got != -2.00 {
		t.Fatalf("got %v, want -2.00", got)
	}
}

// Sign reconstruction: dt in {0x80..0x8F} at raw 0xFF decodes to -1 scaled.
func TestDecode_SignReconstruction_byte(t *testing.T) {
	cases := []struct {
		dt   byte
		want float64
	}{
		{0x80, -1},
		{0x81, -0.1},
		{0x82, -0.01},
		{0x8F, -0.001},
	}
	for _, c := range cases {
		got, ok := Decode(c.dt, []byte{0xFF})
		if !ok {
			t.Fatalf("dt %#02x: not ok", c.dt)
		}
		if math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("dt %#02x: got %v, want %v", c.dt, got, c.want)
		}
	}
}

// Sign reconstruction: dt in {0x90..0x92} at raw 0xFF 0xFF decodes to -1/scale.
func TestDecode_SignReconstruction_word(t *testing.T) {
	cases := []struct {
		dt   byte
		want float64
	}{
		{0x90, -1},
		{0x91, -0.1},
		{0x92, -0.01},
	}
	for _, c := range cases {
		got, ok := Decode(c.dt, []byte{0xFF, 0xFF})
		if !ok {
			t.Fatalf("dt %#02x: not ok", c.dt)
		}
		if math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("dt %#02x: got %v, want %v", c.dt, got, c.want)
		}
	}
}

// Every width-tabulated code either decodes or is explicitly known-undecodable.
func TestDecode_ClosedSet(t *testing.T) {
	decodable := map[byte]bool{
		0x00: true, 0x0C: true, 0x01: true, 0x02: true,
		0x10: true, 0x12: true, 0x13: true, 0x14: true,
		0x80: true, 0x81: true, 0x82: true, 0x8F: true,
		0x90: true, 0x91: true, 0x92: true,
		0x20: true,
	}
	for dt, w := range widths {
		raw := make([]byte, w)
		for i := range raw {
			raw[i] = 0x01
		}
		_, ok := Decode(dt, raw)
		if ok != decodable[dt] {
			t.Errorf("dt %#02x: Decode ok=%v, want %v", dt, ok, decodable[dt])
		}
	}
}

// Datatype round-trip: decode(encode(v, dt), dt) == v for representable v.
func TestEncodeDecode_RoundTrip(t *testing.T) {
	cases := []struct {
		dt byte
		v  float64
	}{
		{0x00, 200}, {0x01, 12.3}, {0x02, 1.23},
		{0x10, 40000}, {0x12, 12.34}, {0x13, 1.234}, {0x14, 1.2345},
		{0x20, 70000},
	}
	for _, c := range cases {
		raw, ok := Encode(c.dt, c.v)
		if !ok {
			t.Fatalf("dt %#02x: encode not ok", c.dt)
		}
		got, ok := Decode(c.dt, raw)
		if !ok {
			t.Fatalf("dt %#02x: decode not ok", c.dt)
		}
		if math.Abs(got-c.v) > 1e-6 {
			t.Fatalf("dt %#02x: round-trip got %v, want %v", c.dt, got, c.v)
		}
	}
}

func TestWidthOf(t *testing.T) {
	if w, ok := WidthOf(0x12); !ok || w != 2 {
		t.Fatalf("got %d,%v, want 2,true", w, ok)
	}
	if _, ok := WidthOf(0xFF); ok {
		t.Fatal("want not ok for unrecognized code")
	}
}

func TestBuildFields_monotonicity(t *testing.T) {
	labels := []schema.DataLabelRow{
		{ID: 0, Name: "a"}, {ID: 1, Name: "b"}, {ID: 2, Name: "c"},
	}
	dtBytes := []byte{0x00, 0x10, 0x20} // widths 1, 2, 4
	fields := BuildFields(labels, dtBytes)
	if len(fields) != 3 {
		t.Fatalf("got %d fields, want 3", len(fields))
	}
	want := []int{0, 1, 3}
	for i, f := range fields {
		if f.Index != want[i] {
			t.Fatalf("field %d: offset %d, want %d", i, f.Index, want[i])
		}
	}
}

func TestBuildFields_abortsOnUnrecognized(t *testing.T) {
	labels := []schema.DataLabelRow{
		{ID: 0, Name: "a"}, {ID: 1, Name: "bad"}, {ID: 2, Name: "c"},
	}
	dtBytes := []byte{0x00, 0xFF, 0x00}
	fields := BuildFields(labels, dtBytes)
	if len(fields) != 1 {
		t.Fatalf("got %d fields, want 1 (abort at the unrecognized code)", len(fields))
	}
}

func TestDecodeDatalog_oneBadFieldDoesNotAbortRest(t *testing.T) {
	fields := []Field{
		{Index: 0, Datatype: 0x0F, Label: "undecodable"}, // known width (1), no decode rule
		{Index: 1, Datatype: 0x00, Label: "ok"},
	}
	payload := []byte{0x01, 0x2A}
	got := DecodeDatalog(fields, payload)
	if len(got) != 2 {
		t.Fatalf("got %d measurements, want 2", len(got))
	}
	if got[0].OK {
		t.Fatal("field 0 should be !OK")
	}
	if !got[1].OK || got[1].Value != 42 {
		t.Fatalf("field 1: got %+v", got[1])
	}
}

func TestDecodeCounters(t *testing.T) {
	rows := []schema.CounterRow{{ID: 3, Name: "hours_compressor"}}
	payload := make([]byte, 8)
	payload[6], payload[7] = 0x01, 0x2C // offset 3*2=6, value 0x012C=300
	got := DecodeCounters(rows, payload)
	if len(got) != 1 || !got[0].OK || got[0].Value != 300 {
		t.Fatalf("got %+v", got)
	}
}

func TestDecodeSettingResponse(t *testing.T) {
	payload := make([]byte, 19)
	// current=45 min=10 max=90 step=1, all datatype 0x00 (u8, right-aligned
	// in each 4-byte window per frame.go's big-endian field encoding)
	payload[3] = 45
	payload[7] = 10
	payload[11] = 90
	payload[15] = 1
	payload[16] = 0x00 // datatype
	payload[17] = 5    // id
	v, err := DecodeSettingResponse(payload)
	if err != nil {
		t.Fatal(err)
	}
	if v.Current != 45 || v.Min != 10 || v.Max != 90 || v.Step != 1 || v.ID != 5 {
		t.Fatalf("got %+v", v)
	}
}

func TestDecodeManualResponse(t *testing.T) {
	payload := []byte{0x00, 0x00, 0x07, 0x00, 0x00, 0x01} // id=7, dt=0x00, value=1
	v, err := DecodeManualResponse(payload)
	if err != nil {
		t.Fatal(err)
	}
	if v.ID != 7 || v.Datatype != 0x00 || v.Value != 1 {
		t.Fatalf("got %+v", v)
	}
}
