// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package cache implements the process-wide JSON cache file described in
// spec.md §6, grounded on original_source/itho-wpu.py's IthoWPUCache and the
// read-json-if-present / write-json-on-change pattern from
// cmd/lepton/main.go's config handling.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// SchemaVersion is the cache file's own format version.
const SchemaVersion = "1"

// DefaultPath is the cache file name persisted in the working directory.
const DefaultPath = "itho-wpu-cache.json"

// HexBytes preserves the on-wire byte representation exactly by marshaling
// each byte as a "0x.." string, matching spec.md §6's cache file format.
type HexBytes []byte

// MarshalJSON implements json.Marshaler.
func (h HexBytes) MarshalJSON() ([]byte, error) {
	if h == nil {
		return []byte("null"), nil
	}
	strs := make([]string, len(h))
	for i, b := range h {
		strs[i] = fmt.Sprintf("0x%02x", b)
	}
	return json.Marshal(strs)
}

// UnmarshalJSON implements json.Unmarshaler.
func (h *HexBytes) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*h = nil
		return nil
	}
	var strs []string
	if err := json.Unmarshal(data, &strs); err != nil {
		return err
	}
	out := make([]byte, len(strs))
	for i, s := range strs {
		var b int
		if _, err := fmt.Sscanf(s, "0x%02x", &b); err != nil {
			return fmt.Errorf("cache: invalid byte %q: %w", s, err)
		}
		out[i] = byte(b)
	}
	*h = out
	return nil
}

// document is the on-disk JSON shape.
type document struct {
	NodeID        HexBytes `json:"nodeid"`
	Serial        HexBytes `json:"serial"`
	DataType      HexBytes `json:"datatype"`
	SchemaVersion string   `json:"schema_version"`
}

// cacheableKeys is the closed set of actions the cache understands.
var cacheableKeys = map[string]bool{"nodeid": true, "serial": true, "datatype": true}

// Cache is lazily loaded at startup, read on each nodeid|serial|datatype
// lookup, and written back on any successful Set.
type Cache struct {
	path string
	mu   sync.Mutex
	doc  document
}

// Open loads path if present; a missing file yields an empty cache.
func Open(path string) (*Cache, error) {
	if path == "" {
		path = DefaultPath
	}
	c := &Cache{path: path, doc: document{SchemaVersion: SchemaVersion}}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("cache: open %s: %w", path, err)
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&c.doc); err != nil {
		return nil, fmt.Errorf("cache: decode %s: %w", path, err)
	}
	return c, nil
}

// Get returns the cached response for a cacheable key ("nodeid", "serial",
// "datatype"), or nil if absent or the key is not cacheable.
func (c *Cache) Get(key string) []byte {
	if !cacheableKeys[key] {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch key {
	case "nodeid":
		return c.doc.NodeID
	case "serial":
		return c.doc.Serial
	case "datatype":
		return c.doc.DataType
	default:
		return nil
	}
}

// Set stores value under key and persists the cache file. Non-cacheable
// keys are a no-op.
func (c *Cache) Set(key string, value []byte) error {
	if !cacheableKeys[key] {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch key {
	case "nodeid":
		c.doc.NodeID = value
	case "serial":
		c.doc.Serial = value
	case "datatype":
		c.doc.DataType = value
	}
	c.doc.SchemaVersion = SchemaVersion
	return c.write()
}

func (c *Cache) write() error {
	f, err := os.OpenFile(c.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("cache: write %s: %w", c.path, err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(&c.doc)
}
