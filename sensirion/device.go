// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sensirion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Option configures a Device.
type Option func(*Device)

// WithLogger sets the logger used to trace commands at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(d *Device) {
		if l != nil {
			d.log = l
		}
	}
}

// Device is the handle of one physical sensor. It owns the transport for
// its lifetime and tracks the sensor state.
type Device struct {
	t       Transport
	addr    uint16
	catalog *Catalog
	log     *slog.Logger

	mu    sync.Mutex
	state State
}

// NewDevice returns a Device in the Idle state. No command is sent.
func NewDevice(t Transport, addr uint16, c *Catalog, opts ...Option) *Device {
	d := &Device{
		t:       t,
		addr:    addr,
		catalog: c,
		log:     slog.New(discardHandler{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.With("sensor", c.Name(), "addr", fmt.Sprintf("0x%02x", addr))
	return d
}

// State returns the state tracked by the driver.
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Catalog returns the command catalog of the device.
func (d *Device) Catalog() *Catalog {
	return d.catalog
}

// Addr returns the I2C address of the device.
func (d *Device) Addr() uint16 {
	return d.addr
}

// Wait pauses for duration using the device transport.
func (d *Device) Wait(ctx context.Context, duration time.Duration) error {
	return d.t.Wait(ctx, duration)
}

// Exec runs the command implementing op with the supplied argument words and
// returns the response words.
//
// The command is refused with ErrInvalidState, without touching the bus, if
// it is not permitted in the current state. The state transition of the
// command is applied only when the whole exchange succeeded.
func (d *Device) Exec(ctx context.Context, op Op, args ...uint16) ([]uint16, error) {
	cmd, err := d.catalog.Lookup(op)
	if err != nil {
		return nil, err
	}
	if len(args) != cmd.Args {
		return nil, fmt.Errorf("%w: %s takes %d argument words, got %d", ErrInvalidArgument, cmd.Name, cmd.Args, len(args))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if !cmd.Allowed.Has(d.state) {
		d.log.Debug("command rejected", "cmd", cmd.Name, "state", d.state, "allowed", cmd.Allowed)
		return nil, fmt.Errorf("sensirion: %s in state %s: %w", cmd.Name, d.state, ErrInvalidState)
	}

	words, err := d.roundTrip(ctx, cmd, args)
	if err != nil {
		d.log.Debug("command failed", "cmd", cmd.Name, "err", err)
		return nil, err
	}
	if cmd.Next != nil {
		next := cmd.Next(d.state)
		if next != d.state {
			d.log.Debug("state change", "cmd", cmd.Name, "from", d.state, "to", next)
		}
		d.state = next
	}
	return words, nil
}

func (d *Device) roundTrip(ctx context.Context, cmd Command, args []uint16) ([]uint16, error) {
	d.log.Debug("command", "cmd", cmd.Name, "code", fmt.Sprintf("0x%04x", cmd.Code), "args", args, "state", d.state)

	if err := d.t.Write(ctx, d.addr, EncodeCommand(cmd.Code, args...)); err != nil {
		if isContextErr(err) {
			return nil, err
		}
		if !cmd.NoAck {
			return nil, &BusError{Cmd: cmd.Name, Err: err}
		}
	}
	if err := d.t.Wait(ctx, cmd.Delay); err != nil {
		return nil, err
	}
	if cmd.Reply == 0 {
		return nil, nil
	}

	r, err := d.t.WriteRead(ctx, d.addr, nil, cmd.ResponseSize())
	if err != nil {
		if isContextErr(err) {
			return nil, err
		}
		return nil, &BusError{Cmd: cmd.Name, Err: err}
	}
	if len(r) != cmd.ResponseSize() {
		return nil, &UnexpectedResponseLengthError{Cmd: cmd.Name, Want: cmd.ResponseSize(), Got: len(r)}
	}
	words, err := Decode(r)
	if err != nil {
		return nil, fmt.Errorf("sensirion: %s: %w", cmd.Name, err)
	}
	return words, nil
}

func (d *Device) String() string {
	return fmt.Sprintf("%s@0x%02x", d.catalog.Name(), d.addr)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// discardHandler drops every record.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h discardHandler) WithGroup(string) slog.Handler           { return h }
