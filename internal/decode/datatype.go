// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package decode implements the Decoder/Encoder (spec.md §4.F): the closed
// datatype interpreter (width + signedness + decimal scale) and the
// version-resolved datalog/settings/manual payload decoders, widened from
// original_source/itho-wpu.py's process_datalog (which only ever exercised
// the 5 codes its own installed unit returned) to the full 31-code table
// spec.md §4.F documents.
package decode

import "encoding/binary"

// widths is the closed width table (bytes consumed) for every recognized
// datatype code, independent of whether a decode rule exists for it:
// structure construction (BuildFields) only needs the width, while Decode
// additionally needs a scale/signedness rule.
var widths = map[byte]int{
	0x00: 1, 0x01: 1, 0x02: 1, 0x0C: 1, 0x0F: 1, 0x6C: 1, 0x80: 1, 0x81: 1, 0x82: 1, 0x8F: 1,
	0x10: 2, 0x11: 2, 0x12: 2, 0x13: 2, 0x14: 2, 0x51: 2, 0x90: 2, 0x91: 2, 0x92: 2,
	0x20: 4, 0x21: 4, 0x22: 4, 0x23: 4, 0x24: 4, 0x25: 4, 0xA0: 4, 0xA1: 4, 0xA2: 4, 0xA3: 4, 0xA4: 4, 0xA5: 4,
}

// WidthOf returns the width in bytes of datatype code dt, and whether dt is
// a recognized code at all.
func WidthOf(dt byte) (int, bool) {
	w, ok := widths[dt]
	return w, ok
}

// DecimalPlaces returns how many decimal digits a decoded value of dt should
// be displayed with. Codes without a defined decode rule return 0.
func DecimalPlaces(dt byte) int {
	switch dt {
	case 0x01, 0x81, 0x91:
		return 1
	case 0x02, 0x12, 0x82, 0x92:
		return 2
	case 0x13, 0x8F:
		return 3
	case 0x14:
		return 4
	default:
		return 0
	}
}

// Decode interprets raw (big-endian, exactly WidthOf(dt) bytes) per the
// datatype table in spec.md §4.F. ok is false for codes with a known width
// but no defined decode rule (e.g. 0x0F, 0x11, 0x21..0x25, 0xA0..0xA5): the
// caller should log and emit nothing for that field, per §4.F's "Unknown
// codes: log error, emit nothing for that field".
func Decode(dt byte, raw []byte) (value float64, ok bool) {
	w, known := widths[dt]
	if !known || len(raw) < w {
		return 0, false
	}
	switch dt {
	case 0x00, 0x0C:
		return float64(raw[0]), true
	case 0x01:
		return float64(raw[0]) / 10, true
	case 0x02:
		return float64(raw[0]) / 100, true
	case 0x10:
		return float64(binary.BigEndian.Uint16(raw)), true
	case 0x12:
		// Corrected reading per spec.md §9: division applies to the whole
		// value, not just the low byte (the legacy operator-precedence bug
		// is deliberately not replicated).
		return float64(binary.BigEndian.Uint16(raw)) / 100, true
	case 0x13:
		return float64(binary.BigEndian.Uint16(raw)) / 1000, true
	case 0x14:
		return float64(binary.BigEndian.Uint16(raw)) / 10000, true
	case 0x80:
		return float64(int8(raw[0])), true
	case 0x81:
		return float64(int8(raw[0])) / 10, true
	case 0x82:
		return float64(int8(raw[0])) / 100, true
	case 0x8F:
		return float64(int8(raw[0])) / 1000, true
	case 0x90:
		return float64(int16(binary.BigEndian.Uint16(raw))), true
	case 0x91:
		return float64(int16(binary.BigEndian.Uint16(raw))) / 10, true
	case 0x92:
		return float64(int16(binary.BigEndian.Uint16(raw))) / 100, true
	case 0x20:
		return float64(binary.BigEndian.Uint32(raw)), true
	default:
		return 0, false
	}
}

// Signed reports whether dt's decode rule interprets its raw bytes as
// two's-complement.
func Signed(dt byte) bool {
	switch dt {
	case 0x80, 0x81, 0x82, 0x8F, 0x90, 0x91, 0x92:
		return true
	default:
		return false
	}
}

// Encode is the inverse of Decode for every datatype that has one: it scales
// v, truncates to the datatype's integer representation and emits
// big-endian bytes of the appropriate width, using two's complement for
// signed datatypes (spec.md §9's "future revision" extension — the general
// codec supports negative values even though the CLI boundary for
// setsetting/setmanual still rejects them per §4.C).
func Encode(dt byte, v float64) ([]byte, bool) {
	w, known := widths[dt]
	if !known {
		return nil, false
	}
	var scaled int64
	switch dt {
	case 0x00, 0x0C, 0x10, 0x20, 0x80, 0x90:
		scaled = int64(v)
	case 0x01, 0x81, 0x91:
		scaled = int64(v * 10)
	case 0x02, 0x12, 0x82, 0x92:
		scaled = int64(v * 100)
	case 0x13:
		scaled = int64(v * 1000)
	case 0x8F:
		scaled = int64(v * 1000)
	case 0x14:
		scaled = int64(v * 10000)
	default:
		return nil, false
	}
	out := make([]byte, w)
	switch w {
	case 1:
		out[0] = byte(scaled)
	case 2:
		binary.BigEndian.PutUint16(out, uint16(scaled))
	case 4:
		binary.BigEndian.PutUint32(out, uint32(scaled))
	}
	return out, true
}
