// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/GermanBionicSystems/scd/scd30"
	"github.com/GermanBionicSystems/scd/scd4x"
	"github.com/GermanBionicSystems/scd/sensirion"
	"periph.io/x/conn/v3/physic"
)

// sensor is the part of the scd4x and scd30 drivers the monitor uses.
type sensor interface {
	fmt.Stringer
	// ID identifies the sensor in metric labels.
	ID(ctx context.Context) (string, error)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	DataReady(ctx context.Context) (bool, error)
	Read(ctx context.Context, env *sensirion.Env) error
}

type scd4xSensor struct {
	dev      *scd4x.Dev
	pressure physic.Pressure
}

func (s *scd4xSensor) String() string {
	return s.dev.String()
}

func (s *scd4xSensor) ID(ctx context.Context) (string, error) {
	serial, err := s.dev.SerialNumber(ctx)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(serial, 10), nil
}

func (s *scd4xSensor) Start(ctx context.Context) error {
	if err := s.dev.StartPeriodicMeasurement(ctx); err != nil {
		return err
	}
	if s.pressure != 0 {
		return s.dev.SetAmbientPressure(ctx, s.pressure)
	}
	return nil
}

func (s *scd4xSensor) Stop(ctx context.Context) error {
	return s.dev.StopPeriodicMeasurement(ctx)
}

func (s *scd4xSensor) DataReady(ctx context.Context) (bool, error) {
	return s.dev.DataReady(ctx)
}

func (s *scd4xSensor) Read(ctx context.Context, env *sensirion.Env) error {
	return s.dev.ReadMeasurement(ctx, env)
}

type scd30Sensor struct {
	dev      *scd30.Dev
	pressure physic.Pressure
}

func (s *scd30Sensor) String() string {
	return s.dev.String()
}

// ID returns the firmware version; the driver does not read the SCD30 serial
// number.
func (s *scd30Sensor) ID(ctx context.Context) (string, error) {
	major, minor, err := s.dev.FirmwareVersion(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("scd30-fw%d.%d", major, minor), nil
}

func (s *scd30Sensor) Start(ctx context.Context) error {
	return s.dev.StartContinuousMeasurement(ctx, s.pressure)
}

func (s *scd30Sensor) Stop(ctx context.Context) error {
	return s.dev.StopContinuousMeasurement(ctx)
}

func (s *scd30Sensor) DataReady(ctx context.Context) (bool, error) {
	return s.dev.DataReady(ctx)
}

func (s *scd30Sensor) Read(ctx context.Context, env *sensirion.Env) error {
	return s.dev.ReadMeasurement(ctx, env)
}

func newTransport(mode string, b sensirion.Bus) sensirion.Transport {
	if mode == "blocking" {
		return sensirion.NewBlocking(b)
	}
	return sensirion.NewSuspending(b)
}

// newSensor builds the driver selected by cfg on top of t.
func newSensor(cfg config, t sensirion.Transport, logger *slog.Logger) (sensor, error) {
	opts := []sensirion.Option{sensirion.WithLogger(logger)}
	switch cfg.Sensor {
	case "scd30":
		return &scd30Sensor{dev: scd30.New(t, opts...), pressure: cfg.Pressure}, nil
	case "scd40":
		return &scd4xSensor{dev: scd4x.New(t, scd4x.SCD40, opts...), pressure: cfg.Pressure}, nil
	case "scd41":
		return &scd4xSensor{dev: scd4x.New(t, scd4x.SCD41, opts...), pressure: cfg.Pressure}, nil
	case "scd43":
		return &scd4xSensor{dev: scd4x.New(t, scd4x.SCD43, opts...), pressure: cfg.Pressure}, nil
	default:
		return nil, fmt.Errorf("unknown sensor %q", cfg.Sensor)
	}
}
