// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.
//
// Unit tests for the package. Note that this supports running on a live
// sensor, or using playback mode to simulate a live device.
//
// To use a live device, define the environment variable SCD4X and run go test.

package scd4x

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/GermanBionicSystems/scd/sensirion"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"
)

var bus i2c.Bus
var liveDevice bool = false

// playback values for TestSense
var sensePlayback = []i2ctest.IO{
	{Addr: SensorAddress, W: []uint8{0x21, 0xb1}},
	{Addr: SensorAddress, W: []uint8{0xe4, 0xb8}},
	{Addr: SensorAddress, R: []uint8{0x80, 0x0, 0xa2}},
	{Addr: SensorAddress, W: []uint8{0xe4, 0xb8}},
	{Addr: SensorAddress, R: []uint8{0x80, 0x0, 0xa2}},
	{Addr: SensorAddress, W: []uint8{0xe4, 0xb8}},
	{Addr: SensorAddress, R: []uint8{0x80, 0x6, 0x4}},
	{Addr: SensorAddress, W: []uint8{0xec, 0x5}},
	{Addr: SensorAddress, R: []uint8{0x2, 0x2c, 0xa3, 0x67, 0xd, 0x36, 0x4d, 0x8, 0xf1}},
	{Addr: SensorAddress, W: []uint8{0x3f, 0x86}}}

// GetConfiguration on an idle SCD41.
var getConfigurationPlayback = []i2ctest.IO{
	{Addr: SensorAddress, W: []uint8{0xe0, 0x0}},
	{Addr: SensorAddress, R: []uint8{0x0, 0x5, 0x74}},
	{Addr: SensorAddress, W: []uint8{0x23, 0x13}},
	{Addr: SensorAddress, R: []uint8{0x0, 0x1, 0xb0}},
	{Addr: SensorAddress, W: []uint8{0x23, 0x40}},
	{Addr: SensorAddress, R: []uint8{0x0, 0x2c, 0x7a}},
	{Addr: SensorAddress, W: []uint8{0x23, 0x4b}},
	{Addr: SensorAddress, R: []uint8{0x0, 0x9c, 0xc5}},
	{Addr: SensorAddress, W: []uint8{0x23, 0x3f}},
	{Addr: SensorAddress, R: []uint8{0x1, 0x90, 0x4c}},
	{Addr: SensorAddress, W: []uint8{0x36, 0x82}},
	{Addr: SensorAddress, R: []uint8{0x73, 0xb1, 0x19, 0xeb, 0x7, 0x7a, 0x3b, 0xc, 0x54}},
	{Addr: SensorAddress, W: []uint8{0x20, 0x2f}},
	{Addr: SensorAddress, R: []uint8{0x14, 0x40, 0x51}},
	{Addr: SensorAddress, W: []uint8{0x23, 0x22}},
	{Addr: SensorAddress, R: []uint8{0x0, 0x0, 0x81}},
	{Addr: SensorAddress, W: []uint8{0x23, 0x18}},
	{Addr: SensorAddress, R: []uint8{0x5, 0xda, 0x29}}}

var setConfigurationPlayback = append(append([]i2ctest.IO{}, getConfigurationPlayback...),
	i2ctest.IO{Addr: SensorAddress, W: []uint8{0xe0, 0x0, 0x3, 0xf5, 0xdb}},
	i2ctest.IO{Addr: SensorAddress, W: []uint8{0x24, 0x16, 0x0, 0x0, 0x81}},
	i2ctest.IO{Addr: SensorAddress, W: []uint8{0x24, 0x45, 0x0, 0x30, 0x44}},
	i2ctest.IO{Addr: SensorAddress, W: []uint8{0x24, 0x4e, 0x0, 0xa0, 0x7d}},
	i2ctest.IO{Addr: SensorAddress, W: []uint8{0x24, 0x3a, 0x1, 0xa4, 0x4d}},
	i2ctest.IO{Addr: SensorAddress, W: []uint8{0x24, 0x27, 0x6, 0x44, 0x22}})

var singleShotPlayback = []i2ctest.IO{
	{Addr: SensorAddress, W: []uint8{0x21, 0x9d}},
	{Addr: SensorAddress, W: []uint8{0xec, 0x5}},
	{Addr: SensorAddress, R: []uint8{0x1, 0xf4, 0x33, 0x66, 0x67, 0xa2, 0x5e, 0xb9, 0x3c}}}

func init() {
	var err error
	// If the environment variable is set, assume we have a live device on
	// the default i2c bus and use it for testing. If the variable is not
	// present, then use the playback/read values.
	if os.Getenv("SCD4X") != "" {
		liveDevice = true
	}
	if _, err = host.Init(); err != nil {
		fmt.Println(err)
	}

	if liveDevice {
		bus, err = i2creg.Open("")
		if err != nil {
			fmt.Println(err)
		}
		// Add the recorder to dump the data stream when we're using a live device.
		bus = &i2ctest.Record{Bus: bus}
	} else {
		bus = &i2ctest.Playback{DontPanic: true}
	}
}

// getDev returns an SCD41 device for testing connected to either a live
// bus, or a playback bus. playbackOps is a slice of i2ctest.IO
// operations to be used for playback mode. Ignored for live device
// testing. In playback mode, command delays are skipped.
func getDev(t *testing.T, playbackOps ...[]i2ctest.IO) *Dev {
	tr := sensirion.NewBlocking(bus)
	if liveDevice {
		if recorder, ok := bus.(*i2ctest.Record); ok {
			// Clear the operations buffer.
			recorder.Ops = make([]i2ctest.IO, 0, 32)
		}
	} else {
		pb := bus.(*i2ctest.Playback)
		pb.Ops = nil
		if len(playbackOps) == 1 {
			pb.Ops = playbackOps[0]
		}
		pb.Count = 0
		tr.Sleep = func(time.Duration) {}
	}
	return New(tr, SCD41)
}

// shutdown dumps the recorder values if we we're running a live device, and
// verifies every playback operation was consumed otherwise.
func shutdown(t *testing.T) {
	if recorder, ok := bus.(*i2ctest.Record); ok {
		t.Logf("%#v", recorder.Ops)
	}
	if pb, ok := bus.(*i2ctest.Playback); ok {
		if err := pb.Close(); err != nil {
			t.Error(err)
		}
	}
}

func playbackOnly(t *testing.T) {
	if liveDevice {
		t.Skip("test relies on canned sensor responses")
	}
}

// Non-device basic functionality.
func TestBasic(t *testing.T) {
	dev := getDev(t)
	defer shutdown(t)

	env := Env{}
	dev.Precision(&env)
	t.Logf("scd4x.Precision()=%#v\n", env)
	if env.CO2 != 1 || env.Humidity != 152*physic.TenthMicroRH || env.Temperature != (2670328*physic.NanoKelvin) {
		t.Error(fmt.Errorf("incorrect value for Precision(): %#v", env))
	}

	s := dev.String()
	t.Logf("dev.String()=%s", s)
	if s != "scd4x: scd41@0x62" {
		t.Errorf("Dev.String() returned %q", s)
	}
	if dev.Variant() != SCD41 || dev.State() != sensirion.Idle {
		t.Errorf("unexpected variant %s or state %s", dev.Variant(), dev.State())
	}
	if err := dev.Halt(); err != nil {
		t.Error(err)
	}
}

func TestNewI2C(t *testing.T) {
	if _, err := NewI2C(&i2ctest.Playback{}, 0x61); !errors.Is(err, sensirion.ErrInvalidArgument) {
		t.Errorf("NewI2C accepted address 0x61: %v", err)
	}
	pb := &i2ctest.Playback{}
	dev, err := NewI2C(pb, SensorAddress)
	if err != nil {
		t.Fatal(err)
	}
	if dev.Variant() != SCD41 {
		t.Errorf("NewI2C variant %s", dev.Variant())
	}
	if err := pb.Close(); err != nil {
		t.Errorf("NewI2C issued bus traffic: %v", err)
	}
}

func TestNewTinyGo(t *testing.T) {
	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: SensorAddress, W: []uint8{0xe4, 0xb8}},
			{Addr: SensorAddress, R: []uint8{0x80, 0x6, 0x4}}},
		DontPanic: true}
	var b drivers.I2C = pb
	dev := NewTinyGo(b, SCD43)
	if dev.Variant() != SCD43 {
		t.Errorf("NewTinyGo variant %s", dev.Variant())
	}
	ready, err := dev.DataReady(context.Background())
	if err != nil || !ready {
		t.Errorf("DataReady()=%t, %v", ready, err)
	}
	if err := pb.Close(); err != nil {
		t.Error(err)
	}
}

func TestSense(t *testing.T) {
	dev := getDev(t, sensePlayback)
	defer shutdown(t)
	env := Env{}
	err := dev.Sense(&env)
	if err != nil {
		t.Fatal(err)
	}
	t.Log(env.String())
	if dev.State() != sensirion.PeriodicMeasurement {
		t.Errorf("Sense() left the sensor in state %s", dev.State())
	}
	if !liveDevice {
		if env.CO2 != 556 {
			t.Errorf("CO2 %s expected 556 PPM", env.CO2)
		}
		expected := countToTemp(0x670d)
		if env.Temperature != expected {
			t.Errorf("temperature %s expected %s", env.Temperature, expected)
		}
	}
	if err := dev.Halt(); err != nil {
		t.Error(err)
	}
	if dev.State() != sensirion.Idle {
		t.Errorf("Halt() left the sensor in state %s", dev.State())
	}
}

func TestSenseTimeout(t *testing.T) {
	playbackOnly(t)
	ops := []i2ctest.IO{{Addr: SensorAddress, W: []uint8{0x21, 0xb1}}}
	for i := 0; i < dataReadyPolls; i++ {
		ops = append(ops,
			i2ctest.IO{Addr: SensorAddress, W: []uint8{0xe4, 0xb8}},
			i2ctest.IO{Addr: SensorAddress, R: []uint8{0x80, 0x0, 0xa2}})
	}
	dev := getDev(t, ops)
	defer shutdown(t)
	env := Env{CO2: 1}
	if err := dev.Sense(&env); err == nil {
		t.Error("expected a timeout")
	}
	if env.CO2 != 0 {
		t.Errorf("Sense() did not clear the reading: %#v", env)
	}
}

// A data ready poll answering false does not prevent the next read.
func TestReadAfterNotReady(t *testing.T) {
	playbackOnly(t)
	dev := getDev(t, []i2ctest.IO{
		{Addr: SensorAddress, W: []uint8{0xe4, 0xb8}},
		{Addr: SensorAddress, R: []uint8{0x80, 0x0, 0xa2}},
		{Addr: SensorAddress, W: []uint8{0xec, 0x5}},
		{Addr: SensorAddress, R: []uint8{0x2, 0x2c, 0xa3, 0x67, 0xd, 0x36, 0x4d, 0x8, 0xf1}}})
	defer shutdown(t)
	ctx := context.Background()
	ready, err := dev.DataReady(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ready {
		t.Error("DataReady() returned true for status 0x8000")
	}
	env := Env{}
	if err := dev.ReadMeasurement(ctx, &env); err != nil {
		t.Fatal(err)
	}
	if env.CO2 != 556 {
		t.Errorf("CO2 %s expected 556 PPM", env.CO2)
	}
	if expected := countToTemp(0x670d); env.Temperature != expected {
		t.Errorf("temperature %s expected %s", env.Temperature, expected)
	}
	if expected := countToHumidity(0x4d08); env.Humidity != expected {
		t.Errorf("humidity %s expected %s", env.Humidity, expected)
	}
}

// In low power mode a reading takes 30 seconds, Sense waits for it.
func TestSenseLowPower(t *testing.T) {
	playbackOnly(t)
	const notReady = 10
	ops := []i2ctest.IO{{Addr: SensorAddress, W: []uint8{0x21, 0xac}}}
	for i := 0; i < notReady; i++ {
		ops = append(ops,
			i2ctest.IO{Addr: SensorAddress, W: []uint8{0xe4, 0xb8}},
			i2ctest.IO{Addr: SensorAddress, R: []uint8{0x80, 0x0, 0xa2}})
	}
	ops = append(ops,
		i2ctest.IO{Addr: SensorAddress, W: []uint8{0xe4, 0xb8}},
		i2ctest.IO{Addr: SensorAddress, R: []uint8{0x80, 0x6, 0x4}},
		i2ctest.IO{Addr: SensorAddress, W: []uint8{0xec, 0x5}},
		i2ctest.IO{Addr: SensorAddress, R: []uint8{0x2, 0x2c, 0xa3, 0x67, 0xd, 0x36, 0x4d, 0x8, 0xf1}},
		i2ctest.IO{Addr: SensorAddress, W: []uint8{0x3f, 0x86}})
	dev := getDev(t, ops)
	defer shutdown(t)
	if err := dev.StartLowPowerPeriodicMeasurement(context.Background()); err != nil {
		t.Fatal(err)
	}
	env := Env{}
	if err := dev.Sense(&env); err != nil {
		t.Fatal(err)
	}
	if env.CO2 != 556 {
		t.Errorf("CO2 %s expected 556 PPM", env.CO2)
	}
	if err := dev.Halt(); err != nil {
		t.Error(err)
	}
}

func TestStartTwice(t *testing.T) {
	playbackOnly(t)
	dev := getDev(t, []i2ctest.IO{
		{Addr: SensorAddress, W: []uint8{0x21, 0xb1}},
		{Addr: SensorAddress, W: []uint8{0x3f, 0x86}}})
	defer shutdown(t)
	ctx := context.Background()
	if err := dev.StartPeriodicMeasurement(ctx); err != nil {
		t.Fatal(err)
	}
	if err := dev.StartPeriodicMeasurement(ctx); !errors.Is(err, sensirion.ErrInvalidState) {
		t.Errorf("second start returned %v", err)
	}
	if err := dev.StartLowPowerPeriodicMeasurement(ctx); !errors.Is(err, sensirion.ErrInvalidState) {
		t.Errorf("low power start while measuring returned %v", err)
	}
	if _, err := dev.SerialNumber(ctx); !errors.Is(err, sensirion.ErrInvalidState) {
		t.Errorf("serial number while measuring returned %v", err)
	}
	if _, err := dev.GetConfiguration(ctx); !errors.Is(err, sensirion.ErrInvalidState) {
		t.Errorf("GetConfiguration while measuring returned %v", err)
	}
	if err := dev.StopPeriodicMeasurement(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestStopWhenIdle(t *testing.T) {
	playbackOnly(t)
	dev := getDev(t, []i2ctest.IO{{Addr: SensorAddress, W: []uint8{0x3f, 0x86}}})
	defer shutdown(t)
	if err := dev.StopPeriodicMeasurement(context.Background()); err != nil {
		t.Error(err)
	}
}

func TestAmbientPressureWhileMeasuring(t *testing.T) {
	playbackOnly(t)
	dev := getDev(t, []i2ctest.IO{
		{Addr: SensorAddress, W: []uint8{0x21, 0xac}},
		{Addr: SensorAddress, W: []uint8{0xe0, 0x0, 0x3, 0xf5, 0xdb}},
		{Addr: SensorAddress, W: []uint8{0xe0, 0x0}},
		{Addr: SensorAddress, R: []uint8{0x3, 0xf5, 0xdb}},
		{Addr: SensorAddress, W: []uint8{0x3f, 0x86}}})
	defer shutdown(t)
	ctx := context.Background()
	if err := dev.StartLowPowerPeriodicMeasurement(ctx); err != nil {
		t.Fatal(err)
	}
	if err := dev.SetAmbientPressure(ctx, 101300*physic.Pascal); err != nil {
		t.Fatal(err)
	}
	p, err := dev.AmbientPressure(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if p != 101300*physic.Pascal {
		t.Errorf("ambient pressure %s", p)
	}
	if err := dev.Halt(); err != nil {
		t.Error(err)
	}
}

func TestRangeChecks(t *testing.T) {
	playbackOnly(t)
	dev := getDev(t)
	defer shutdown(t)
	ctx := context.Background()
	tests := []struct {
		name string
		f    func() error
	}{
		{"pressure low", func() error { return dev.SetAmbientPressure(ctx, 69900*physic.Pascal) }},
		{"pressure high", func() error { return dev.SetAmbientPressure(ctx, 120100*physic.Pascal) }},
		{"altitude", func() error { return dev.SetSensorAltitude(ctx, 3001*physic.Metre) }},
		{"negative altitude", func() error { return dev.SetSensorAltitude(ctx, -physic.Metre) }},
		{"offset", func() error { return dev.SetTemperatureOffset(ctx, -physic.Kelvin) }},
		{"asc target", func() error { return dev.SetASCTarget(ctx, -1) }},
		{"initial period", func() error { return dev.SetASCInitialPeriod(ctx, 5*time.Hour) }},
		{"standard period", func() error { return dev.SetASCStandardPeriod(ctx, -4*time.Hour) }},
		{"frc target", func() error { _, err := dev.PerformForcedRecalibration(ctx, 70000); return err }},
		{"reset mode", func() error { return dev.Reset(ctx, ResetMode(7)) }},
	}
	for _, test := range tests {
		if err := test.f(); !errors.Is(err, sensirion.ErrInvalidArgument) {
			t.Errorf("%s: expected ErrInvalidArgument, got %v", test.name, err)
		}
	}
}

func TestConfigurationCommands(t *testing.T) {
	playbackOnly(t)
	dev := getDev(t, []i2ctest.IO{
		{Addr: SensorAddress, W: []uint8{0x24, 0x1d, 0x7, 0xe6, 0x48}},
		{Addr: SensorAddress, W: []uint8{0x23, 0x18}},
		{Addr: SensorAddress, R: []uint8{0x7, 0xe6, 0x48}},
		{Addr: SensorAddress, W: []uint8{0x24, 0x27, 0x6, 0x44, 0x22}},
		{Addr: SensorAddress, W: []uint8{0x24, 0x16, 0x0, 0x1, 0xb0}},
		{Addr: SensorAddress, W: []uint8{0x36, 0x15}},
		{Addr: SensorAddress, W: []uint8{0x36, 0x46}},
		{Addr: SensorAddress, W: []uint8{0x36, 0x32}}})
	defer shutdown(t)
	ctx := context.Background()
	if err := dev.SetTemperatureOffset(ctx, 5400*physic.MilliKelvin); err != nil {
		t.Fatal(err)
	}
	offset, err := dev.TemperatureOffset(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if absTemp(offset-5400*physic.MilliKelvin) > 5*physic.MilliKelvin {
		t.Errorf("temperature offset %s", offsetString(offset))
	}
	if err := dev.SetSensorAltitude(ctx, 1604*physic.Metre); err != nil {
		t.Fatal(err)
	}
	if err := dev.SetAutomaticSelfCalibration(ctx, true); err != nil {
		t.Fatal(err)
	}
	if err := dev.PersistSettings(ctx); err != nil {
		t.Fatal(err)
	}
	if err := dev.Reset(ctx, ResetEEPROM); err != nil {
		t.Fatal(err)
	}
	if err := dev.Reset(ctx, ResetFactory); err != nil {
		t.Fatal(err)
	}
}

func TestGetConfiguration(t *testing.T) {
	dev := getDev(t, getConfigurationPlayback)
	defer shutdown(t)
	cfg, err := dev.GetConfiguration(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	t.Logf("configuration: %#v", cfg)
	if liveDevice {
		return
	}
	expected := DevConfig{
		AmbientPressure:   500 * physic.Pascal,
		ASCEnabled:        true,
		ASCInitialPeriod:  44 * time.Hour,
		ASCStandardPeriod: 156 * time.Hour,
		ASCTarget:         400,
		SensorAltitude:    0,
		SerialNumber:      127207989525260,
		TemperatureOffset: countToOffset(0x05da),
		SensorType:        SCD41,
	}
	if *cfg != expected {
		t.Errorf("configuration %#v expected %#v", *cfg, expected)
	}
}

func TestSetConfiguration(t *testing.T) {
	playbackOnly(t)
	dev := getDev(t, setConfigurationPlayback)
	defer shutdown(t)
	cfg := &DevConfig{
		AmbientPressure:   101300 * physic.Pascal,
		ASCEnabled:        false,
		ASCInitialPeriod:  48 * time.Hour,
		ASCStandardPeriod: 160 * time.Hour,
		ASCTarget:         420,
		SensorAltitude:    1604 * physic.Metre,
		TemperatureOffset: countToOffset(0x05da),
	}
	if err := dev.SetConfiguration(context.Background(), cfg); err != nil {
		t.Error(err)
	}
}

func TestSCD40Configuration(t *testing.T) {
	playbackOnly(t)
	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: SensorAddress, W: []uint8{0xe0, 0x0}},
			{Addr: SensorAddress, R: []uint8{0x0, 0x5, 0x74}},
			{Addr: SensorAddress, W: []uint8{0x23, 0x13}},
			{Addr: SensorAddress, R: []uint8{0x0, 0x1, 0xb0}},
			{Addr: SensorAddress, W: []uint8{0x23, 0x3f}},
			{Addr: SensorAddress, R: []uint8{0x1, 0x90, 0x4c}},
			{Addr: SensorAddress, W: []uint8{0x36, 0x82}},
			{Addr: SensorAddress, R: []uint8{0x73, 0xb1, 0x19, 0xeb, 0x7, 0x7a, 0x3b, 0xc, 0x54}},
			{Addr: SensorAddress, W: []uint8{0x20, 0x2f}},
			{Addr: SensorAddress, R: []uint8{0x4, 0x41, 0xe}},
			{Addr: SensorAddress, W: []uint8{0x23, 0x22}},
			{Addr: SensorAddress, R: []uint8{0x0, 0x0, 0x81}},
			{Addr: SensorAddress, W: []uint8{0x23, 0x18}},
			{Addr: SensorAddress, R: []uint8{0x5, 0xda, 0x29}}},
		DontPanic: true,
	}
	dev := New(&sensirion.Blocking{Bus: pb, Sleep: func(time.Duration) {}}, SCD40)
	ctx := context.Background()
	cfg, err := dev.GetConfiguration(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SensorType != SCD40 || cfg.ASCInitialPeriod != 0 || cfg.ASCStandardPeriod != 0 {
		t.Errorf("unexpected configuration %#v", cfg)
	}
	for name, f := range map[string]func() error{
		"MeasureSingleShot":        func() error { return dev.MeasureSingleShot(ctx) },
		"MeasureSingleShotRHTOnly": func() error { return dev.MeasureSingleShotRHTOnly(ctx) },
		"PowerDown":                func() error { return dev.PowerDown(ctx) },
		"WakeUp":                   func() error { return dev.WakeUp(ctx) },
		"SetASCInitialPeriod":      func() error { return dev.SetASCInitialPeriod(ctx, 4*time.Hour) },
		"ASCStandardPeriod":        func() error { _, err := dev.ASCStandardPeriod(ctx); return err },
	} {
		if err := f(); !errors.Is(err, sensirion.ErrUnsupported) {
			t.Errorf("%s on SCD40 returned %v", name, err)
		}
	}
	if err := pb.Close(); err != nil {
		t.Error(err)
	}
}

func TestSingleShot(t *testing.T) {
	playbackOnly(t)
	dev := getDev(t, singleShotPlayback)
	defer shutdown(t)
	ctx := context.Background()
	if err := dev.MeasureSingleShot(ctx); err != nil {
		t.Fatal(err)
	}
	if dev.State() != sensirion.AwaitingOneShot {
		t.Fatalf("state after single shot %s", dev.State())
	}
	if err := dev.StartPeriodicMeasurement(ctx); !errors.Is(err, sensirion.ErrInvalidState) {
		t.Errorf("start while awaiting a single shot returned %v", err)
	}
	if err := dev.MeasureSingleShot(ctx); !errors.Is(err, sensirion.ErrInvalidState) {
		t.Errorf("single shot while awaiting a single shot returned %v", err)
	}
	env := Env{}
	if err := dev.ReadMeasurement(ctx, &env); err != nil {
		t.Fatal(err)
	}
	if env.CO2 != 500 {
		t.Errorf("CO2 %s expected 500 PPM", env.CO2)
	}
	if absTemp(env.Temperature-(physic.ZeroCelsius+25*physic.Celsius)) > 5*physic.MilliKelvin {
		t.Errorf("temperature %s expected 25°C", env.Temperature)
	}
	if dev.State() != sensirion.Idle {
		t.Errorf("state after reading the single shot %s", dev.State())
	}
}

func TestForcedRecalibration(t *testing.T) {
	playbackOnly(t)
	dev := getDev(t, []i2ctest.IO{
		{Addr: SensorAddress, W: []uint8{0x36, 0x2f, 0x1, 0x90, 0x4c}},
		{Addr: SensorAddress, R: []uint8{0x7f, 0xce, 0x7b}},
		{Addr: SensorAddress, W: []uint8{0x36, 0x2f, 0x1, 0x90, 0x4c}},
		{Addr: SensorAddress, R: []uint8{0xff, 0xff, 0xac}}})
	defer shutdown(t)
	ctx := context.Background()
	correction, err := dev.PerformForcedRecalibration(ctx, 400)
	if err != nil {
		t.Fatal(err)
	}
	if correction != -50 {
		t.Errorf("correction %s expected -50 PPM", correction)
	}
	if _, err = dev.PerformForcedRecalibration(ctx, 400); !errors.Is(err, sensirion.ErrRecalibrationFailed) {
		t.Errorf("expected ErrRecalibrationFailed, got %v", err)
	}
}

func TestSelfTest(t *testing.T) {
	playbackOnly(t)
	dev := getDev(t, []i2ctest.IO{
		{Addr: SensorAddress, W: []uint8{0x36, 0x39}},
		{Addr: SensorAddress, R: []uint8{0x0, 0x0, 0x81}},
		{Addr: SensorAddress, W: []uint8{0x36, 0x39}},
		{Addr: SensorAddress, R: []uint8{0x0, 0x2, 0xe3}}})
	defer shutdown(t)
	ctx := context.Background()
	if ok, err := dev.SelfTest(ctx); err != nil || !ok {
		t.Errorf("SelfTest()=%t, %v", ok, err)
	}
	if ok, err := dev.SelfTest(ctx); err != nil || ok {
		t.Errorf("SelfTest()=%t, %v expected a malfunction", ok, err)
	}
}

func TestWakeUpIgnoresMissingAck(t *testing.T) {
	playbackOnly(t)
	dev := getDev(t, []i2ctest.IO{
		{Addr: SensorAddress, W: []uint8{0x36, 0xe0}},
		{Addr: SensorAddress, W: []uint8{0x36, 0xf6}}})
	defer shutdown(t)
	ctx := context.Background()
	if err := dev.PowerDown(ctx); err != nil {
		t.Fatal(err)
	}
	if err := dev.WakeUp(ctx); err != nil {
		t.Fatal(err)
	}
	// Playback is exhausted: the next Tx fails like an unacknowledged write.
	if err := dev.WakeUp(ctx); err != nil {
		t.Errorf("WakeUp() surfaced the missing ack: %v", err)
	}
}

func TestChecksumError(t *testing.T) {
	playbackOnly(t)
	dev := getDev(t, []i2ctest.IO{
		{Addr: SensorAddress, W: []uint8{0x36, 0x82}},
		{Addr: SensorAddress, R: []uint8{0x73, 0xb1, 0x19, 0xeb, 0x7, 0x7b, 0x3b, 0xc, 0x54}}})
	defer shutdown(t)
	_, err := dev.SerialNumber(context.Background())
	var crcErr *sensirion.ChecksumError
	if !errors.As(err, &crcErr) || crcErr.Word != 1 {
		t.Errorf("expected a checksum error on word 1, got %v", err)
	}
}

// simulator answers like an SCD41 in periodic measurement mode.
type simulator struct {
	mu      sync.Mutex
	last    uint16
	reads   int
	written []uint16
}

func (s *simulator) Tx(addr uint16, w, r []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if addr != SensorAddress {
		return errors.New("simulator: wrong address")
	}
	if len(w) >= 2 {
		s.last = uint16(w[0])<<8 | uint16(w[1])
		s.written = append(s.written, s.last)
	}
	if len(r) == 0 {
		return nil
	}
	switch s.last {
	case 0xe4b8:
		copy(r, sensirion.Encode(0x8006))
	case 0xec05:
		s.reads++
		copy(r, sensirion.Encode(uint16(400+s.reads), 0x6667, 0x5eb9))
	default:
		return fmt.Errorf("simulator: unexpected read after 0x%04x", s.last)
	}
	return nil
}

func (s *simulator) commands() []uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint16(nil), s.written...)
}

func TestSenseContinuous(t *testing.T) {
	sim := &simulator{}
	dev := New(&sensirion.Blocking{Bus: sim, Sleep: func(time.Duration) {}}, SCD41)
	ch, err := dev.SenseContinuous(5 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := dev.SenseContinuous(5 * time.Millisecond); err == nil {
		t.Error("second SenseContinuous() succeeded")
	}
	readings := 3
	for i := 0; i < readings; i++ {
		select {
		case env := <-ch:
			if env.CO2 <= 400 {
				t.Errorf("unexpected reading %s", env.String())
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for a reading")
		}
	}
	if err := dev.Halt(); err != nil {
		t.Fatal(err)
	}
	for range ch {
	}
	if dev.State() != sensirion.Idle {
		t.Errorf("state after Halt() %s", dev.State())
	}
	written := sim.commands()
	if written[0] != 0x21b1 || written[len(written)-1] != 0x3f86 {
		t.Errorf("unexpected command sequence %#v", written)
	}

	// Halted: a new continuous sense can be started.
	ch, err = dev.SenseContinuous(time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if err := dev.Halt(); err != nil {
		t.Error(err)
	}
	if _, ok := <-ch; ok {
		t.Error("channel not closed by Halt()")
	}
}
