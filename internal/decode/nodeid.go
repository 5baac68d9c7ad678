// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package decode

import (
	"encoding/binary"
	"fmt"
)

// NodeID is the decoded getnodeid response (spec.md §3), grounded on
// original_source/itho-wpu.py's process_nodeid.
type NodeID struct {
	ManufacturerGroup uint16
	Manufacturer      string
	HardwareType      string
	ProductVersion    byte
	ListVersion       byte
}

// hardwareInfo mirrors process_nodeid's hardware_info dict, keyed by the
// manufacturer byte: the only known manufacturer is HCCP (code 0), with two
// known hardware types.
var hardwareInfo = map[byte]struct {
	name  string
	types map[byte]string
}{
	0: {name: "HCCP", types: map[byte]string{13: "WPU", 15: "Autotemp"}},
}

// DecodeNodeID decodes a getnodeid response payload: {group_hi, group_lo,
// manufacturer, hardwaretype, productversion, listversion}.
func DecodeNodeID(payload []byte) (NodeID, error) {
	if len(payload) < 6 {
		return NodeID{}, fmt.Errorf("decode: getnodeid payload too short: %d bytes", len(payload))
	}
	mfg, ok := hardwareInfo[payload[2]]
	if !ok {
		return NodeID{}, fmt.Errorf("decode: unknown manufacturer code %#02x", payload[2])
	}
	hw, ok := mfg.types[payload[3]]
	if !ok {
		return NodeID{}, fmt.Errorf("decode: unknown hardware type code %#02x for manufacturer %s", payload[3], mfg.name)
	}
	return NodeID{
		ManufacturerGroup: binary.BigEndian.Uint16(payload[0:2]),
		Manufacturer:      mfg.name,
		HardwareType:      hw,
		ProductVersion:    payload[4],
		ListVersion:       payload[5],
	}, nil
}

// DecodeSerial decodes a getserial response payload: a 3-byte big-endian
// integer (spec.md §8 scenario S1).
func DecodeSerial(payload []byte) (uint32, error) {
	if len(payload) < 3 {
		return 0, fmt.Errorf("decode: getserial payload too short: %d bytes", len(payload))
	}
	return uint32(payload[0])<<16 | uint32(payload[1])<<8 | uint32(payload[2]), nil
}
