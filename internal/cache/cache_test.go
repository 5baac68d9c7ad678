// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cache

import (
	"path/filepath"
	"testing"
)

func TestCache_MissingFile(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Get("nodeid"); got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}

func TestCache_SetThenReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "itho-wpu-cache.json")
	c, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	nodeid := []byte{0x80, 0x90, 0xE0, 0x01, 0x06, 0x00, 0x01, 0x00, 0x0D, 0x02, 0x05, 0x4F}
	if err := c.Set("nodeid", nodeid); err != nil {
		t.Fatal(err)
	}

	c2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	got := c2.Get("nodeid")
	if len(got) != len(nodeid) {
		t.Fatalf("got %v, want %v", got, nodeid)
	}
	for i := range nodeid {
		if got[i] != nodeid[i] {
			t.Fatalf("byte %d: got %#x, want %#x", i, got[i], nodeid[i])
		}
	}
}

func TestCache_UnsupportedKey(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "c.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Set("getdatalog", []byte{1}); err != nil {
		t.Fatal(err)
	}
	if got := c.Get("getdatalog"); got != nil {
		t.Fatalf("got %v, want nil for unsupported key", got)
	}
}
