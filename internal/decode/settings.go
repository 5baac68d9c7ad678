// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package decode

import "fmt"

// SettingValue is a decoded getsetting response (spec.md §4.F): current,
// min, max and step share one datatype, read from four 4-byte windows
// followed by a {0, id, 0} trailer whose middle byte echoes the requested
// id and whose first byte carries the datatype.
type SettingValue struct {
	Current  float64
	Min      float64
	Max      float64
	Step     float64
	ID       byte
	Datatype byte
}

// DecodeSettingResponse decodes a getsetting response payload.
func DecodeSettingResponse(payload []byte) (SettingValue, error) {
	if len(payload) < 19 {
		return SettingValue{}, fmt.Errorf("decode: getsetting payload too short: %d bytes", len(payload))
	}
	dt := payload[16]
	w, known := WidthOf(dt)
	if !known {
		return SettingValue{}, fmt.Errorf("decode: getsetting response has unrecognized datatype %#02x", dt)
	}
	var v SettingValue
	v.Datatype = dt
	v.ID = payload[17]
	windows := [4]*float64{&v.Current, &v.Min, &v.Max, &v.Step}
	for i, dst := range windows {
		off := i * 4
		val, ok := Decode(dt, payload[off+4-w:off+4])
		if !ok {
			return SettingValue{}, fmt.Errorf("decode: getsetting window %d undecodable for datatype %#02x", i, dt)
		}
		*dst = val
	}
	return v, nil
}

// ManualValue is a decoded getmanual response.
type ManualValue struct {
	ID       byte
	Datatype byte
	Value    float64
}

// DecodeManualResponse decodes a getmanual response payload, laid out as
// {reserved, reserved, id, datatype, value_hi, value_lo}.
func DecodeManualResponse(payload []byte) (ManualValue, error) {
	if len(payload) < 6 {
		return ManualValue{}, fmt.Errorf("decode: getmanual payload too short: %d bytes", len(payload))
	}
	dt := payload[3]
	w, known := WidthOf(dt)
	if !known {
		return ManualValue{}, fmt.Errorf("decode: getmanual response has unrecognized datatype %#02x", dt)
	}
	v, ok := Decode(dt, payload[6-w:6])
	if !ok {
		return ManualValue{}, fmt.Errorf("decode: getmanual response has undecodable datatype %#02x", dt)
	}
	return ManualValue{ID: payload[2], Datatype: dt, Value: v}, nil
}
