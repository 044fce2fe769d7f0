// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// scdmon reads a Sensirion SCD4x or SCD30 CO2 sensor and exports the
// readings as Prometheus metrics.
//
// Flags can be set through SCDMON_ environment variables, for example:
//
//	SCDMON_SENSOR=scd30 SCDMON_LOG_LEVEL=debug scdmon -display
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GermanBionicSystems/scd/sensirion"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

const appName = "scdmon"

// barWidth is the number of blocks of the terminal CO2 bar.
const barWidth = 40

func newLogger(cfg config) *slog.Logger {
	if cfg.AppEnv == "dev" {
		h := tint.NewHandler(colorable.NewColorableStderr(), &tint.Options{
			Level:      cfg.LogLevel,
			AddSource:  true,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("app", appName)
	}
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})
	return slog.New(h).With("app", appName, "env", cfg.AppEnv)
}

func main() {
	cfg, err := loadConfig(os.Args[1:], os.Getenv, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(2)
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("exiting", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config, logger *slog.Logger) error {
	if _, err := host.Init(); err != nil {
		return err
	}
	b, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return err
	}
	defer b.Close()

	s, err := newSensor(cfg, newTransport(cfg.Mode, b), logger)
	if err != nil {
		return err
	}
	m := newMetrics()
	mon := &monitor{
		sensor:      s,
		metrics:     m,
		logger:      logger.With("sensor", s.String()),
		interval:    cfg.Interval,
		stopOnStart: cfg.StopOnStart,
	}
	if cfg.Display {
		mon.bar = newBar(colorable.NewColorableStdout(), barWidth, nil)
	}

	if cfg.HTTPAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.handler())
		srv := &http.Server{Addr: cfg.HTTPAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			logger.Info("serving metrics", "addr", cfg.HTTPAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}
	return mon.run(ctx)
}

// monitor polls a sensor at a fixed interval.
type monitor struct {
	sensor      sensor
	metrics     *metrics
	logger      *slog.Logger
	bar         *bar
	interval    time.Duration
	stopOnStart bool

	id string
}

// start brings the sensor to a measuring state.
func (m *monitor) start(ctx context.Context) error {
	if m.stopOnStart {
		// The sensor may still be measuring from a previous run; ignore the
		// error since a sensor that was idle may not acknowledge.
		if err := m.sensor.Stop(ctx); err != nil {
			m.logger.Debug("stop on start", "err", err)
		}
	}
	id, err := m.sensor.ID(ctx)
	if err != nil {
		return fmt.Errorf("reading sensor id: %w", err)
	}
	m.id = id
	m.logger.Info("sensor found", "id", id)
	return m.sensor.Start(ctx)
}

// poll reads a measurement if one is available. It reports whether a reading
// was made.
func (m *monitor) poll(ctx context.Context) (bool, error) {
	ready, err := m.sensor.DataReady(ctx)
	if err != nil || !ready {
		return false, err
	}
	var env sensirion.Env
	if err := m.sensor.Read(ctx, &env); err != nil {
		return false, err
	}
	m.metrics.observe(m.id, &env)
	m.logger.Debug("reading", "co2", int(env.CO2), "temperature", env.Temperature.String(), "humidity", env.Humidity.String())
	if m.bar != nil {
		if err := m.bar.show(&env); err != nil {
			m.logger.Warn("display", "err", err)
		}
	}
	return true, nil
}

func (m *monitor) run(ctx context.Context) error {
	if err := m.start(ctx); err != nil {
		return err
	}
	defer m.halt()

	t := time.NewTicker(m.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
		if _, err := m.poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			m.metrics.failed(m.id)
			m.logger.Warn("poll failed", "err", err)
		}
	}
}

// halt stops the measurement. The run context is done by then, so a fresh
// one is used.
func (m *monitor) halt() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.sensor.Stop(ctx); err != nil {
		m.logger.Warn("stopping measurement", "err", err)
	}
	if m.bar != nil {
		_ = m.bar.halt()
	}
}
