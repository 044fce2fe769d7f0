// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sensirion

import (
	"context"
	"time"

	"periph.io/x/conn/v3/i2c"
	"tinygo.org/x/drivers"
)

// Bus is the I2C capability consumed by the transports. When both w and r
// are provided, Tx performs the write followed by a repeated-start read.
//
// It is satisfied by periph.io i2c.Bus on Linux hosts and by the TinyGo
// drivers.I2C interface on microcontrollers.
type Bus interface {
	Tx(addr uint16, w, r []byte) error
}

// Transport issues the bus transactions and delays of a command.
//
// Implementations never retry. WriteRead returns the bytes read, and may
// return fewer or more than n; the Device checks the length.
type Transport interface {
	Write(ctx context.Context, addr uint16, w []byte) error
	WriteRead(ctx context.Context, addr uint16, w []byte, n int) ([]byte, error)
	Wait(ctx context.Context, d time.Duration) error
}

// Blocking is a Transport that runs every operation to completion on the
// calling goroutine. The context is ignored.
type Blocking struct {
	Bus Bus
	// Sleep is used to wait between the write and the read. Defaults to
	// time.Sleep.
	Sleep func(time.Duration)
}

// NewBlocking returns a blocking transport over b.
func NewBlocking(b Bus) *Blocking {
	return &Blocking{Bus: b}
}

func (t *Blocking) Write(_ context.Context, addr uint16, w []byte) error {
	return t.Bus.Tx(addr, w, nil)
}

func (t *Blocking) WriteRead(_ context.Context, addr uint16, w []byte, n int) ([]byte, error) {
	r := make([]byte, n)
	if err := t.Bus.Tx(addr, w, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (t *Blocking) Wait(_ context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if t.Sleep != nil {
		t.Sleep(d)
	} else {
		time.Sleep(d)
	}
	return nil
}

// Suspending is a Transport that yields while waiting. A delay returns early
// with the context error when the context is done, and no transaction is
// started once the context is done. A transaction that has started is
// never interrupted.
type Suspending struct {
	Bus Bus
}

// NewSuspending returns a suspending transport over b.
func NewSuspending(b Bus) *Suspending {
	return &Suspending{Bus: b}
}

func (t *Suspending) Write(ctx context.Context, addr uint16, w []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.Bus.Tx(addr, w, nil)
}

func (t *Suspending) WriteRead(ctx context.Context, addr uint16, w []byte, n int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := make([]byte, n)
	if err := t.Bus.Tx(addr, w, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (t *Suspending) Wait(ctx context.Context, d time.Duration) error {
	// Nothing to wait for: a transaction already acknowledged stands.
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var (
	_ Bus       = i2c.Bus(nil)
	_ Bus       = drivers.I2C(nil)
	_ Transport = &Blocking{}
	_ Transport = &Suspending{}
)
