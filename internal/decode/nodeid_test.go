// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package decode

import "testing"

// S2 — getnodeid response payload [0x00,0x01,0x00,0x0D,0x02,0x05] decodes to
// {ManufacturerGroup: 1, Manufacturer: "HCCP", HardwareType: "WPU",
// ProductVersion: 2, ListVersion: 5}.
func TestDecodeNodeID_S2(t *testing.T) {
	got, err := DecodeNodeID([]byte{0x00, 0x01, 0x00, 0x0D, 0x02, 0x05})
	if err != nil {
		t.Fatal(err)
	}
	want := NodeID{ManufacturerGroup: 1, Manufacturer: "HCCP", HardwareType: "WPU", ProductVersion: 2, ListVersion: 5}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestDecodeNodeID_UnknownManufacturer(t *testing.T) {
	if _, err := DecodeNodeID([]byte{0x00, 0x01, 0x09, 0x0D, 0x02, 0x05}); err == nil {
		t.Fatal("want error for unknown manufacturer code")
	}
}

// S1 — getserial payload [0x00, 0x12, 0x34] decodes to 4660.
func TestDecodeSerial_S1(t *testing.T) {
	got, err := DecodeSerial([]byte{0x00, 0x12, 0x34})
	if err != nil {
		t.Fatal(err)
	}
	if got != 4660 {
		t.Fatalf("got %d, want 4660", got)
	}
}
