// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"periph.io/x/conn/v3/physic"
)

const envPrefix = "SCDMON_"

type config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// Sensor is one of scd40, scd41, scd43 or scd30.
	Sensor string
	// Bus is the periph i2creg bus name. Empty opens the first bus.
	Bus      string
	Interval time.Duration
	// Mode selects the transport: blocking or suspending.
	Mode string
	// Pressure is the ambient pressure compensation, 0 to disable.
	Pressure physic.Pressure
	// StopOnStart sends a stop command before measuring, so a controller
	// restarted while the sensor kept measuring gets back in sync.
	StopOnStart bool
	Display     bool
}

// loadConfig parses args. Every flag may be given a default through its
// SCDMON_ environment variable, e.g. SCDMON_LOG_LEVEL for -log-level.
func loadConfig(args []string, getenv func(string) string, output io.Writer) (config, error) {
	fs := flag.NewFlagSet("scdmon", flag.ContinueOnError)
	fs.SetOutput(output)
	env := func(name, def string) string {
		if v := strings.TrimSpace(getenv(envPrefix + name)); v != "" {
			return v
		}
		return def
	}

	appEnv := fs.String("app-env", env("APP_ENV", "dev"), "dev or prod; dev logs in color to the terminal")
	logLevel := fs.String("log-level", env("LOG_LEVEL", "info"), "debug, info, warn or error")
	httpAddr := fs.String("http", env("HTTP_ADDR", ":9110"), "listen address of the /metrics endpoint, empty to disable")
	sensor := fs.String("sensor", env("SENSOR", "scd41"), "sensor model: scd40, scd41, scd43 or scd30")
	bus := fs.String("bus", env("BUS", ""), "I²C bus name, empty for the first one")
	interval := fs.String("interval", env("INTERVAL", "5s"), "polling interval")
	mode := fs.String("mode", env("MODE", "suspending"), "transport mode: blocking or suspending")
	pressure := fs.String("pressure", env("PRESSURE", "0"), "ambient pressure in hPa, 0 to disable compensation")
	stopDefault, err := strconv.ParseBool(env("STOP_ON_START", "true"))
	if err != nil {
		return config{}, fmt.Errorf("invalid %sSTOP_ON_START: %w", envPrefix, err)
	}
	displayDefault, err := strconv.ParseBool(env("DISPLAY", "false"))
	if err != nil {
		return config{}, fmt.Errorf("invalid %sDISPLAY: %w", envPrefix, err)
	}
	stopOnStart := fs.Bool("stop-on-start", stopDefault, "stop a measurement left running before starting")
	display := fs.Bool("display", displayDefault, "draw a CO2 bar in the terminal")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}
	if fs.NArg() != 0 {
		return config{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	switch *appEnv {
	case "dev", "prod":
	default:
		return config{}, fmt.Errorf("invalid app env %q (allowed: dev, prod)", *appEnv)
	}
	level, err := parseLogLevel(*logLevel)
	if err != nil {
		return config{}, err
	}
	if *httpAddr != "" {
		if _, _, err := net.SplitHostPort(*httpAddr); err != nil {
			return config{}, fmt.Errorf("invalid http address %q: %w", *httpAddr, err)
		}
	}
	switch *sensor {
	case "scd40", "scd41", "scd43", "scd30":
	default:
		return config{}, fmt.Errorf("invalid sensor %q (allowed: scd40, scd41, scd43, scd30)", *sensor)
	}
	d, err := time.ParseDuration(*interval)
	if err != nil {
		return config{}, fmt.Errorf("invalid interval %q: %w", *interval, err)
	}
	if d < time.Second {
		return config{}, fmt.Errorf("invalid interval %s: must be at least 1s", d)
	}
	switch *mode {
	case "blocking", "suspending":
	default:
		return config{}, fmt.Errorf("invalid mode %q (allowed: blocking, suspending)", *mode)
	}
	hPa, err := strconv.ParseUint(*pressure, 10, 16)
	if err != nil {
		return config{}, fmt.Errorf("invalid pressure %q: %w", *pressure, err)
	}
	maxHPa := uint64(1200)
	if *sensor == "scd30" {
		maxHPa = 1400
	}
	if hPa != 0 && (hPa < 700 || hPa > maxHPa) {
		return config{}, fmt.Errorf("invalid pressure %d hPa for %s: must be 0 or from 700 to %d", hPa, *sensor, maxHPa)
	}
	return config{
		AppEnv:      *appEnv,
		LogLevel:    level,
		HTTPAddr:    *httpAddr,
		Sensor:      *sensor,
		Bus:         *bus,
		Interval:    d,
		Mode:        *mode,
		Pressure:    physic.Pressure(hPa) * 100 * physic.Pascal,
		StopOnStart: *stopOnStart,
		Display:     *display,
	}, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q (allowed: debug, info, warn, error)", s)
	}
}
