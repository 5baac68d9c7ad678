// Copyright 2015 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// itho-wpu talks to an Itho heat-pump unit (WPU) over I²C, issuing one of
// the well-known Actions and printing the decoded result.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/maruel/interrupt"

	"github.com/pommi/itho-wpu-go/internal/bsc"
	"github.com/pommi/itho-wpu-go/internal/cache"
	"github.com/pommi/itho-wpu-go/internal/decode"
	"github.com/pommi/itho-wpu-go/internal/engine"
	"github.com/pommi/itho-wpu-go/internal/export"
	"github.com/pommi/itho-wpu-go/internal/i2clink"
	"github.com/pommi/itho-wpu-go/internal/protocol"
	"github.com/pommi/itho-wpu-go/internal/schema"
)

// readActions are actions with no input parameters beyond --id.
var readActions = map[string]bool{
	"getnodeid": true, "getserial": true, "getdatatype": true,
	"getdatalog": true, "getcounters": true, "getsetting": true,
	"getmanual": true, "getsettings": true,
}

func setLogFlags(timestamp bool) {
	if timestamp {
		log.SetFlags(log.Ldate | log.Ltime)
	} else {
		log.SetFlags(0)
	}
}

// logLevels mirrors the ordinals of Python's logging module, which the
// original itho-wpu.py configures via logger.setLevel(args.loglevel.upper()).
var logLevels = map[string]int{
	"debug":    10,
	"info":     20,
	"warning":  30,
	"error":    40,
	"critical": 50,
}

// setLogLevel is a verbosity gate over the standard logger: every log.Printf
// call in this program (internal/engine's retry/cache/drop notices, the
// "export:"/"getsettings:" lines below) is an info-level notice, so any
// threshold stricter than info silences them. There is no structured-logging
// library anywhere in the retrieved pack for this domain, so we do not add
// one; unrecognized level names fall back to info, matching the default
// logger.setLevel(logging.INFO) in the original.
func setLogLevel(level string) {
	threshold, ok := logLevels[level]
	if !ok {
		threshold = logLevels["info"]
	}
	if threshold > logLevels["info"] {
		log.SetOutput(io.Discard)
	} else {
		log.SetOutput(os.Stderr)
	}
}

func mainImpl() error {
	action := flag.String("action", "", "action to execute (required)")
	id := flag.Int("id", -1, "setting/manual id")
	value := flag.String("value", "", "value to write (prompts if absent for a write action)")
	check := flag.Bool("check", true, "manual-override check byte")
	noCheck := flag.Bool("no-check", false, "disable the manual-override check byte")
	masterOnly := flag.Bool("master-only", false, "diagnostic: skip slave arming, write only")
	slaveOnly := flag.Bool("slave-only", false, "diagnostic: arm slave and passively observe, no write")
	slaveTimeout := flag.Int("slave-timeout", 60, "seconds to wait for traffic in --slave-only mode")
	noCache := flag.Bool("no-cache", false, "bypass the nodeid/serial/datatype cache")
	exportToInfluxDB := flag.Bool("export-to-influxdb", false, "send decoded datalog measurements to InfluxDB")
	loglevel := flag.String("loglevel", "info", "debug|info|warning|error|critical")
	timestamp := flag.Bool("timestamp", false, "prefix log output with a timestamp")
	bus := flag.String("i2c", "", "I²C bus to use for the master link (empty picks the only bus)")
	memPath := flag.String("bsc-mem", "/dev/gpiomem", "memory device backing the BSC slave peripheral")
	dbPath := flag.String("db", "heatpump.sqlite", "path to the schema database")
	cachePath := flag.String("cache", cache.DefaultPath, "path to the nodeid/serial/datatype cache file")
	flag.Parse()

	if len(flag.Args()) != 0 {
		return fmt.Errorf("unexpected argument: %s", flag.Args())
	}
	if *action == "" {
		return fmt.Errorf("-action is required")
	}
	if *masterOnly && *slaveOnly {
		return fmt.Errorf("-master-only and -slave-only are mutually exclusive")
	}

	setLogFlags(*timestamp)
	setLogLevel(*loglevel)
	interrupt.HandleCtrlC()

	store, err := schema.Open(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	c, err := cache.Open(*cachePath)
	if err != nil {
		return err
	}

	master, err := i2clink.Open(*bus, i2clink.DefaultAddress)
	if err != nil {
		return err
	}
	defer master.Close()

	slave, err := bsc.Open(*memPath)
	if err != nil {
		return err
	}
	defer slave.Close()

	e := engine.New(master, slave, c)
	e.NoCache = *noCache
	e.SlaveTimeout = time.Duration(*slaveTimeout) * time.Second
	switch {
	case *masterOnly:
		e.Mode = engine.ModeMasterOnly
	case *slaveOnly:
		e.Mode = engine.ModeSlaveOnly
	default:
		e.Mode = engine.ModeNormal
	}

	var sink export.Sink
	if *exportToInfluxDB {
		sink = export.NewInfluxDBSinkFromEnv()
	}

	app := &app{engine: e, store: store, sink: sink}

	if readActions[*action] {
		return app.runRead(*action, *id)
	}
	return app.runWrite(*action, *id, *value, *check && !*noCheck)
}

// app wires the engine, schema store and export sink for one CLI
// invocation.
type app struct {
	engine *engine.Engine
	store  *schema.Store
	sink   export.Sink
}

func (a *app) runRead(action string, id int) error {
	switch action {
	case "getnodeid":
		raw, err := a.engine.Call(action, protocol.Params{}, false)
		if err != nil {
			return err
		}
		if raw == nil {
			fmt.Println("no response")
			return nil
		}
		f, kind := protocol.Parse(raw)
		if kind != protocol.OK {
			return kind
		}
		n, err := decode.DecodeNodeID(f.Payload)
		if err != nil {
			return err
		}
		fmt.Printf("ManufacturerGroup: %d, Manufacturer: %s, HardwareType: %s, ProductVersion: %d, ListVersion: %d\n",
			n.ManufacturerGroup, n.Manufacturer, n.HardwareType, n.ProductVersion, n.ListVersion)
		return nil

	case "getserial":
		raw, err := a.engine.Call(action, protocol.Params{}, false)
		if err != nil {
			return err
		}
		if raw == nil {
			fmt.Println("no response")
			return nil
		}
		f, kind := protocol.Parse(raw)
		if kind != protocol.OK {
			return kind
		}
		serial, err := decode.DecodeSerial(f.Payload)
		if err != nil {
			return err
		}
		fmt.Printf("Serial: %d\n", serial)
		return nil

	case "getdatatype":
		raw, err := a.engine.Call(action, protocol.Params{}, false)
		if err != nil {
			return err
		}
		if raw == nil {
			fmt.Println("no response")
			return nil
		}
		fmt.Printf("datatype: % x\n", raw)
		return nil

	case "getdatalog":
		return a.runDatalog()

	case "getcounters":
		return a.runCounters()

	case "getsetting":
		if id < 0 {
			return fmt.Errorf("-id is required for getsetting")
		}
		return a.runGetSetting(id)

	case "getsettings":
		return a.runGetSettings()

	case "getmanual":
		if id < 0 {
			return fmt.Errorf("-id is required for getmanual")
		}
		return a.runGetManual(id)

	default:
		return fmt.Errorf("unknown action %q", action)
	}
}

func (a *app) listVersion() (byte, error) {
	raw, err := a.engine.Call(string(protocol.GetNodeID), protocol.Params{}, false)
	if err != nil {
		return 0, err
	}
	if raw == nil {
		return 0, fmt.Errorf("no getnodeid response; cannot resolve schema version")
	}
	f, kind := protocol.Parse(raw)
	if kind != protocol.OK {
		return 0, kind
	}
	n, err := decode.DecodeNodeID(f.Payload)
	if err != nil {
		return 0, err
	}
	return n.ListVersion, nil
}

func (a *app) runDatalog() error {
	lv, err := a.listVersion()
	if err != nil {
		return err
	}
	versions, err := a.store.ResolveVersions(int(lv))
	if err != nil {
		return err
	}
	labels, err := a.store.DataLabels(versions.DataLabel)
	if err != nil {
		return err
	}
	dtRaw, err := a.engine.Call(string(protocol.GetDataType), protocol.Params{}, false)
	if err != nil {
		return err
	}
	if dtRaw == nil {
		return fmt.Errorf("no getdatatype response")
	}
	dtFrame, kind := protocol.Parse(dtRaw)
	if kind != protocol.OK {
		return kind
	}
	fields := decode.BuildFields(labels, dtFrame.Payload)

	raw, err := a.engine.Call(string(protocol.GetDataLog), protocol.Params{}, false)
	if err != nil {
		return err
	}
	if raw == nil {
		fmt.Println("no response")
		return nil
	}
	f, kind := protocol.Parse(raw)
	if kind != protocol.OK {
		return kind
	}
	measurements := decode.DecodeDatalog(fields, f.Payload)
	fields2 := make(map[string]float64, len(measurements))
	for _, m := range measurements {
		if !m.OK {
			continue
		}
		fmt.Printf("%-30s %v\n", m.Label, m.Value)
		fields2[m.Label] = m.Value
	}
	if a.sink != nil && len(fields2) > 0 {
		if err := a.sink.Write("getdatalog", fields2, time.Now().UTC()); err != nil {
			log.Printf("export: %v", err)
		}
	}
	return nil
}

func (a *app) runCounters() error {
	lv, err := a.listVersion()
	if err != nil {
		return err
	}
	versions, err := a.store.ResolveVersions(int(lv))
	if err != nil {
		return err
	}
	rows, err := a.store.Counters(versions.Counters)
	if err != nil {
		return err
	}
	raw, err := a.engine.Call(string(protocol.GetCounters), protocol.Params{}, false)
	if err != nil {
		return err
	}
	if raw == nil {
		fmt.Println("no response")
		return nil
	}
	f, kind := protocol.Parse(raw)
	if kind != protocol.OK {
		return kind
	}
	for _, m := range decode.DecodeCounters(rows, f.Payload) {
		if !m.OK {
			continue
		}
		fmt.Printf("%-30s %v\n", m.Label, m.Value)
	}
	return nil
}

func (a *app) runGetSetting(id int) error {
	lv, err := a.listVersion()
	if err != nil {
		return err
	}
	versions, err := a.store.ResolveVersions(int(lv))
	if err != nil {
		return err
	}
	row, err := a.store.SettingByID(versions.ParameterList, id)
	if err != nil {
		return err
	}
	v, err := a.fetchSetting(id)
	if err != nil {
		return err
	}
	fmt.Printf("%-30s current=%v min=%v max=%v step=%v\n", row.Name, v.Current, v.Min, v.Max, v.Step)
	return nil
}

func (a *app) fetchSetting(id int) (decode.SettingValue, error) {
	raw, err := a.engine.Call(string(protocol.GetSetting), protocol.Params{ID: uint16(id)}, false)
	if err != nil {
		return decode.SettingValue{}, err
	}
	if raw == nil {
		return decode.SettingValue{}, fmt.Errorf("no response for setting %d", id)
	}
	f, kind := protocol.Parse(raw)
	if kind != protocol.OK {
		return decode.SettingValue{}, kind
	}
	return decode.DecodeSettingResponse(f.Payload)
}

func (a *app) fetchManual(id int) (decode.ManualValue, error) {
	raw, err := a.engine.Call(string(protocol.GetManual), protocol.Params{ID: uint16(id)}, false)
	if err != nil {
		return decode.ManualValue{}, err
	}
	if raw == nil {
		return decode.ManualValue{}, fmt.Errorf("no response for manual %d", id)
	}
	f, kind := protocol.Parse(raw)
	if kind != protocol.OK {
		return decode.ManualValue{}, kind
	}
	return decode.DecodeManualResponse(f.Payload)
}

func (a *app) runGetSettings() error {
	lv, err := a.listVersion()
	if err != nil {
		return err
	}
	versions, err := a.store.ResolveVersions(int(lv))
	if err != nil {
		return err
	}
	rows, err := a.store.Settings(versions.ParameterList)
	if err != nil {
		return err
	}
	for _, row := range rows {
		v, err := a.fetchSetting(row.ID)
		if err != nil {
			log.Printf("getsettings: id %d (%s): %v", row.ID, row.Name, err)
			continue
		}
		fmt.Printf("%-30s current=%v min=%v max=%v step=%v\n", row.Name, v.Current, v.Min, v.Max, v.Step)
	}
	return nil
}

func (a *app) runGetManual(id int) error {
	lv, err := a.listVersion()
	if err != nil {
		return err
	}
	versions, err := a.store.ResolveVersions(int(lv))
	if err != nil {
		return err
	}
	row, err := a.store.ManualByID(versions.Handbed, id)
	if err != nil {
		return err
	}
	v, err := a.fetchManual(id)
	if err != nil {
		return err
	}
	fmt.Printf("%-30s current=%v\n", row.Name, v.Value)
	return nil
}

// runWrite handles setsetting/setmanual: resolves the schema row, checks
// the value against its [min, max] range (ValueOutOfRange, scenario S5),
// prompts for a missing value/confirmation, then issues the write.
func (a *app) runWrite(action string, id int, value string, check bool) error {
	if action != string(protocol.SetSetting) && action != string(protocol.SetManual) {
		return fmt.Errorf("unknown action %q", action)
	}
	if id < 0 {
		return fmt.Errorf("-id is required for %s", action)
	}

	lv, err := a.listVersion()
	if err != nil {
		return err
	}
	versions, err := a.store.ResolveVersions(int(lv))
	if err != nil {
		return err
	}

	var min, max float64
	var datatype byte
	var name string
	if action == string(protocol.SetSetting) {
		row, err := a.store.SettingByID(versions.ParameterList, id)
		if err != nil {
			return err
		}
		// parameterlijst carries no datatype column (see original_source/db.py);
		// the datatype is only known from a live getsetting response.
		current, err := a.fetchSetting(id)
		if err != nil {
			return err
		}
		min, max, name, datatype = row.Min, row.Max, row.Name, current.Datatype
	} else {
		row, err := a.store.ManualByID(versions.Handbed, id)
		if err != nil {
			return err
		}
		current, err := a.fetchManual(id)
		if err != nil {
			return err
		}
		min, max, name, datatype = row.Min, row.Max, row.Name, current.Datatype
	}

	if value == "" {
		value = prompt(fmt.Sprintf("Enter value for %s [%v..%v]: ", name, min, max))
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value %q: %w", value, err)
	}
	if v < 0 {
		return fmt.Errorf("negative values are not supported for %s", action)
	}
	if v < min || v > max {
		return fmt.Errorf("value %v out of range [%v, %v] for %s", v, min, max, name)
	}

	confirm := prompt(fmt.Sprintf("About to write %v to %s (id=%d). Type YES to confirm: ", v, name, id))
	if strings.TrimSpace(confirm) != "YES" {
		return fmt.Errorf("write not confirmed")
	}

	var params protocol.Params
	if action == string(protocol.SetSetting) {
		raw, ok := decode.Encode(datatype, v)
		if !ok {
			return fmt.Errorf("cannot encode value for datatype %#02x", datatype)
		}
		params = protocol.Params{ID: uint16(id), Value: bytesToUint32(raw)}
	} else {
		raw, ok := decode.Encode(datatype, v)
		if !ok {
			return fmt.Errorf("cannot encode value for datatype %#02x", datatype)
		}
		params = protocol.Params{ID: uint16(id), Datatype: datatype, Value: bytesToUint32(raw), Check: check}
	}

	_, err = a.engine.Call(action, params, true)
	return err
}

func bytesToUint32(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}

func prompt(msg string) string {
	fmt.Print(msg)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimSpace(line)
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "itho-wpu: %s.\n", err)
		os.Exit(1)
	}
}
