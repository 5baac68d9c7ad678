// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package decode

import (
	"log"

	"github.com/pommi/itho-wpu-go/internal/schema"
)

// Measurement is one decoded datalog field or counter value.
type Measurement struct {
	Label       string
	Title       string
	Description string
	Datatype    byte
	Value       float64
	OK          bool
}

// DecodeDatalog decodes payload per fields (built by BuildFields from a
// datalabel_v<N> table and a getdatatype response). A field whose bytes run
// past payload's end, or whose datatype has no decode rule, is reported
// with OK=false rather than aborting the whole stream: per spec.md §4.F one
// bad field never takes down the rest.
func DecodeDatalog(fields []Field, payload []byte) []Measurement {
	out := make([]Measurement, 0, len(fields))
	for _, f := range fields {
		w, known := WidthOf(f.Datatype)
		m := Measurement{Label: f.Label, Title: f.Title, Description: f.Description, Datatype: f.Datatype}
		if !known || f.Index+w > len(payload) {
			log.Printf("decode: field %q (datatype %#02x) out of range of %d-byte payload", f.Label, f.Datatype, len(payload))
			out = append(out, m)
			continue
		}
		v, ok := Decode(f.Datatype, payload[f.Index:f.Index+w])
		m.Value, m.OK = v, ok
		if !ok {
			log.Printf("decode: field %q has undecodable datatype %#02x", f.Label, f.Datatype)
		}
		out = append(out, m)
	}
	return out
}

// DecodeCounters decodes a getcounters response against a counters_v<N>
// table. Per spec.md §4.F every counter is a u16 (datatype 0x10) living at
// byte offset id*2.
func DecodeCounters(rows []schema.CounterRow, payload []byte) []Measurement {
	out := make([]Measurement, 0, len(rows))
	for _, r := range rows {
		offset := r.ID * 2
		m := Measurement{Label: r.Name, Title: r.Title, Description: r.Tooltip, Datatype: 0x10}
		if offset+2 > len(payload) {
			log.Printf("decode: counter %q (id %d) out of range of %d-byte payload", r.Name, r.ID, len(payload))
			out = append(out, m)
			continue
		}
		v, ok := Decode(0x10, payload[offset:offset+2])
		m.Value, m.OK = v, ok
		out = append(out, m)
	}
	return out
}
