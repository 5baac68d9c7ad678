// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package decode

import (
	"log"
	"strings"

	"github.com/pommi/itho-wpu-go/internal/schema"
)

// Field is one datalog stream element: a datalabel row paired with the byte
// offset and datatype code the matching getdatatype response assigned it.
type Field struct {
	Index       int
	Datatype    byte
	Label       string
	Title       string
	Description string
}

// BuildFields zips a datalabel_v<N> table against a getdatatype response's
// payload bytes to assign each labeled field its wire offset, per
// spec.md §4.F: element i of labels gets datatype datatypeBytes[i] and the
// running byte offset computed from the widths of all fields before it.
//
// The two sources are zipped element-wise to the shorter length; a length
// mismatch is logged but not fatal, mirroring original_source/itho-wpu.py's
// get_datalog_structure.
//
// An unrecognized datatype code aborts structure construction at that
// field: fields already built are kept, and that field and everything after
// it are dropped since their offsets cannot be computed.
func BuildFields(labels []schema.DataLabelRow, datatypeBytes []byte) []Field {
	n := len(labels)
	if len(datatypeBytes) < n {
		log.Printf("decode: datalabel table has %d rows but getdatatype payload has %d bytes; truncating", n, len(datatypeBytes))
		n = len(datatypeBytes)
	} else if len(datatypeBytes) > n {
		log.Printf("decode: getdatatype payload has %d bytes but datalabel table has %d rows; truncating", len(datatypeBytes), n)
	}

	fields := make([]Field, 0, n)
	offset := 0
	for i := 0; i < n; i++ {
		dt := datatypeBytes[i]
		w, ok := WidthOf(dt)
		if !ok {
			log.Printf("decode: unrecognized datatype code %#02x for field %d (%s); aborting structure construction", dt, i, labels[i].Name)
			break
		}
		fields = append(fields, Field{
			Index:       offset,
			Datatype:    dt,
			Label:       strings.ToLower(labels[i].Name),
			Title:       labels[i].Title,
			Description: labels[i].Tooltip,
		})
		offset += w
	}
	return fields
}
