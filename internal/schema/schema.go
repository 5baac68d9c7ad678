// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package schema implements the Schema Store (spec.md §4.E): a read-only
// relational lookup over heatpump.sqlite, produced offline by the
// Microsoft-Access-to-schema conversion utility described in spec.md §1.
// Grounded on original_source/db.py's table shapes and
// original_source/itho-wpu.py's get_datalog_structure query.
package schema

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// ErrVersionNotFound is returned when versiebeheer has no row for a
// ListVersion.
var ErrVersionNotFound = errors.New("schema: version not found")

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("schema: not found")

// Versions is the per-family schema table version resolved from a
// ListVersion via versiebeheer.
type Versions struct {
	DataLabel      int
	ParameterList  int
	Handbed        int
	Counters       int
}

// DataLabelRow is one datalabel_v<N> row (datalog stream layout).
type DataLabelRow struct {
	ID     int
	Name   string
	Title  string
	Tooltip string
	Unit   sql.NullString
}

// CounterRow is one counters_v<N> row.
type CounterRow struct {
	ID      int
	Name    string
	Title   string
	Tooltip string
	Unit    sql.NullString
}

// SettingRow is one parameterlijst_v<N> row.
type SettingRow struct {
	ID          int
	Name        string
	NameFactory string
	Min         float64
	Max         float64
	Default     float64
	Title       string
	Description string
	Unit        sql.NullString
}

// ManualRow is one handbed_v<N> row.
type ManualRow struct {
	ID          int
	Name        string
	NameFactory string
	Min         float64
	Max         float64
	Default     float64
	Title       string
	Tooltip     string
	Unit        sql.NullString
}

// Store is a read-only handle on heatpump.sqlite. It is initialized once at
// startup and shared immutably; no mutation ever happens after Open.
type Store struct {
	db *sql.DB
}

// Open opens the sqlite database at path read-only.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, fmt.Errorf("schema: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// ResolveVersions reads the versiebeheer row for listVersion.
func (s *Store) ResolveVersions(listVersion int) (Versions, error) {
	row := s.db.QueryRow(
		`SELECT datalabel, parameterlist, handbed, counters FROM versiebeheer WHERE version = ?`,
		listVersion)
	var v Versions
	if err := row.Scan(&v.DataLabel, &v.ParameterList, &v.Handbed, &v.Counters); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Versions{}, ErrVersionNotFound
		}
		return Versions{}, fmt.Errorf("schema: resolve version %d: %w", listVersion, err)
	}
	return v, nil
}

// DataLabels returns the datalabel_v<version> rows ordered by id ascending.
func (s *Store) DataLabels(version int) ([]DataLabelRow, error) {
	rows, err := s.db.Query(fmt.Sprintf(
		`SELECT id, name, title, tooltip, unit FROM datalabel_v%d ORDER BY id ASC`, version))
	if err != nil {
		return nil, fmt.Errorf("schema: datalabels v%d: %w", version, err)
	}
	defer rows.Close()
	var out []DataLabelRow
	for rows.Next() {
		var r DataLabelRow
		var tooltip sql.NullString
		if err := rows.Scan(&r.ID, &r.Name, &r.Title, &tooltip, &r.Unit); err != nil {
			return nil, fmt.Errorf("schema: datalabels v%d: %w", version, err)
		}
		r.Tooltip = tooltip.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// Counters returns the counters_v<version> rows ordered by id ascending.
func (s *Store) Counters(version int) ([]CounterRow, error) {
	rows, err := s.db.Query(fmt.Sprintf(
		`SELECT id, name, title, tooltip, unit FROM counters_v%d ORDER BY id ASC`, version))
	if err != nil {
		return nil, fmt.Errorf("schema: counters v%d: %w", version, err)
	}
	defer rows.Close()
	var out []CounterRow
	for rows.Next() {
		var r CounterRow
		var tooltip sql.NullString
		if err := rows.Scan(&r.ID, &r.Name, &r.Title, &tooltip, &r.Unit); err != nil {
			return nil, fmt.Errorf("schema: counters v%d: %w", version, err)
		}
		r.Tooltip = tooltip.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// Settings returns the parameterlijst_v<version> rows ordered by id
// ascending.
func (s *Store) Settings(version int) ([]SettingRow, error) {
	rows, err := s.db.Query(fmt.Sprintf(
		`SELECT id, name, name_factory, min, max, def, title, description, unit FROM parameterlijst_v%d ORDER BY id ASC`, version))
	if err != nil {
		return nil, fmt.Errorf("schema: settings v%d: %w", version, err)
	}
	defer rows.Close()
	var out []SettingRow
	for rows.Next() {
		var r SettingRow
		if err := rows.Scan(&r.ID, &r.Name, &r.NameFactory, &r.Min, &r.Max, &r.Default, &r.Title, &r.Description, &r.Unit); err != nil {
			return nil, fmt.Errorf("schema: settings v%d: %w", version, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Manuals returns the handbed_v<version> rows ordered by id ascending.
func (s *Store) Manuals(version int) ([]ManualRow, error) {
	rows, err := s.db.Query(fmt.Sprintf(
		`SELECT id, name, name_factory, min, max, def, title, tooltip, unit FROM handbed_v%d ORDER BY id ASC`, version))
	if err != nil {
		return nil, fmt.Errorf("schema: manuals v%d: %w", version, err)
	}
	defer rows.Close()
	var out []ManualRow
	for rows.Next() {
		var r ManualRow
		var tooltip sql.NullString
		if err := rows.Scan(&r.ID, &r.Name, &r.NameFactory, &r.Min, &r.Max, &r.Default, &r.Title, &tooltip, &r.Unit); err != nil {
			return nil, fmt.Errorf("schema: manuals v%d: %w", version, err)
		}
		r.Tooltip = tooltip.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// SettingByID looks up a single parameterlijst_v<version> row by id.
func (s *Store) SettingByID(version, id int) (SettingRow, error) {
	row := s.db.QueryRow(fmt.Sprintf(
		`SELECT id, name, name_factory, min, max, def, title, description, unit FROM parameterlijst_v%d WHERE id = ?`, version), id)
	var r SettingRow
	if err := row.Scan(&r.ID, &r.Name, &r.NameFactory, &r.Min, &r.Max, &r.Default, &r.Title, &r.Description, &r.Unit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SettingRow{}, ErrNotFound
		}
		return SettingRow{}, fmt.Errorf("schema: setting v%d id %d: %w", version, id, err)
	}
	return r, nil
}

// ManualByID looks up a single handbed_v<version> row by id.
func (s *Store) ManualByID(version, id int) (ManualRow, error) {
	row := s.db.QueryRow(fmt.Sprintf(
		`SELECT id, name, name_factory, min, max, def, title, tooltip, unit FROM handbed_v%d WHERE id = ?`, version), id)
	var r ManualRow
	var tooltip sql.NullString
	if err := row.Scan(&r.ID, &r.Name, &r.NameFactory, &r.Min, &r.Max, &r.Default, &r.Title, &tooltip, &r.Unit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ManualRow{}, ErrNotFound
		}
		return ManualRow{}, fmt.Errorf("schema: manual v%d id %d: %w", version, id, err)
	}
	r.Tooltip = tooltip.String
	return r, nil
}
