// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package export implements the time-series export sink referenced (but
// left out of core scope) by spec.md §1/§6: a write-only interface
// accepting {measurement, time, fields} records, with an InfluxDB HTTP
// line-protocol implementation grounded on
// original_source/itho_export.py's export_to_influxdb (same env-var names
// and defaults, same best-effort "log and continue" failure handling).
package export

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/influxdata/line-protocol/v2/lineprotocol"
)

// Sink accepts one decoded measurement set for a single Action invocation.
type Sink interface {
	Write(measurement string, fields map[string]float64, ts time.Time) error
}

// InfluxDBSink writes to an InfluxDB 1.x HTTP write endpoint.
type InfluxDBSink struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string

	HTTPClient *http.Client
}

// NewInfluxDBSinkFromEnv builds a sink from INFLUXDB_HOST, INFLUXDB_PORT,
// INFLUXDB_USERNAME, INFLUXDB_PASSWORD and INFLUXDB_DATABASE, defaulting
// host/port/username/password exactly like original_source/itho_export.py.
func NewInfluxDBSinkFromEnv() *InfluxDBSink {
	return &InfluxDBSink{
		Host:     envOr("INFLUXDB_HOST", "localhost"),
		Port:     envOr("INFLUXDB_PORT", "8086"),
		Username: envOr("INFLUXDB_USERNAME", "root"),
		Password: envOr("INFLUXDB_PASSWORD", "root"),
		Database: os.Getenv("INFLUXDB_DATABASE"),
	}
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

// Write implements Sink. All failures are returned; HTTP transport and
// non-2xx status failures are also logged here. Callers that
// want the original's "don't crash on export failure" behavior should log
// the error and continue rather than propagate it to process exit.
func (s *InfluxDBSink) Write(measurement string, fields map[string]float64, ts time.Time) error {
	body, err := encodeLine(measurement, fields, ts)
	if err != nil {
		return fmt.Errorf("export: encode %s: %w", measurement, err)
	}

	url := fmt.Sprintf("http://%s:%s/write?db=%s", s.Host, s.Port, s.Database)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if s.Username != "" {
		req.SetBasicAuth(s.Username, s.Password)
	}

	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		log.Printf("export: write to influxdb: %v", err)
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("export: influxdb returned %s: %s", resp.Status, b)
		log.Printf("%v", err)
		return err
	}
	return nil
}

// encodeLine renders one line-protocol line for measurement with fields
// sorted by key (canonical form; also makes output deterministic for
// tests).
func encodeLine(measurement string, fields map[string]float64, ts time.Time) ([]byte, error) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var enc lineprotocol.Encoder
	enc.SetPrecision(lineprotocol.Second)
	enc.StartLine(measurement)
	for _, k := range keys {
		enc.AddField(k, lineprotocol.MustNewValue(fields[k]))
	}
	enc.EndLine(ts)
	if err := enc.Err(); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}
