// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sensirion

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"periph.io/x/conn/v3/i2c/i2ctest"
	"tinygo.org/x/drivers"
)

var _ drivers.I2C = (*fakeI2C)(nil)

type fakeTx struct {
	addr uint16
	w    []byte
	rn   int
}

// fakeI2C is a TinyGo style bus.
type fakeI2C struct {
	mu    sync.Mutex
	txs   []fakeTx
	reply []byte
	err   error
	// onTx runs after every transaction is recorded.
	onTx func()
}

func (f *fakeI2C) Tx(addr uint16, w, r []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs = append(f.txs, fakeTx{addr: addr, w: append([]byte(nil), w...), rn: len(r)})
	if f.onTx != nil {
		f.onTx()
	}
	if f.err != nil {
		return f.err
	}
	copy(r, f.reply)
	return nil
}

func TestBlockingPlayback(t *testing.T) {
	pb := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x62, W: []byte{0xe4, 0xb8}},
			{Addr: 0x62, R: []byte{0x80, 0x06, 0x04}},
		},
		DontPanic: true,
	}
	var slept []time.Duration
	tr := &Blocking{Bus: pb, Sleep: func(d time.Duration) { slept = append(slept, d) }}
	ctx := context.Background()
	if err := tr.Write(ctx, 0x62, []byte{0xe4, 0xb8}); err != nil {
		t.Fatal(err)
	}
	if err := tr.Wait(ctx, time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if err := tr.Wait(ctx, 0); err != nil {
		t.Fatal(err)
	}
	r, err := tr.WriteRead(ctx, 0x62, nil, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(r, []byte{0x80, 0x06, 0x04}) {
		t.Errorf("read %#v", r)
	}
	if len(slept) != 1 || slept[0] != time.Millisecond {
		t.Errorf("slept %v", slept)
	}
	if err := pb.Close(); err != nil {
		t.Error(err)
	}
}

func TestBlockingIgnoresContext(t *testing.T) {
	bus := &fakeI2C{}
	tr := NewBlocking(bus)
	tr.Sleep = func(time.Duration) {}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := tr.Write(ctx, 0x61, []byte{0x01, 0x04}); err != nil {
		t.Error(err)
	}
	if err := tr.Wait(ctx, time.Second); err != nil {
		t.Error(err)
	}
	if len(bus.txs) != 1 {
		t.Errorf("bus saw %d transactions", len(bus.txs))
	}
}

func TestBlockingBusError(t *testing.T) {
	fault := errors.New("nack")
	tr := NewBlocking(&fakeI2C{err: fault})
	if _, err := tr.WriteRead(context.Background(), 0x62, nil, 3); !errors.Is(err, fault) {
		t.Errorf("expected the bus fault, got %v", err)
	}
}

func TestSuspendingTransport(t *testing.T) {
	bus := &fakeI2C{reply: []byte{0xbe, 0xef, 0x92}}
	tr := NewSuspending(bus)
	ctx := context.Background()
	if err := tr.Write(ctx, 0x62, []byte{0x36, 0x82}); err != nil {
		t.Fatal(err)
	}
	if err := tr.Wait(ctx, time.Millisecond); err != nil {
		t.Fatal(err)
	}
	r, err := tr.WriteRead(ctx, 0x62, nil, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(r, []byte{0xbe, 0xef, 0x92}) {
		t.Errorf("read %#v", r)
	}
	if len(bus.txs) != 2 || bus.txs[0].addr != 0x62 || bus.txs[1].rn != 3 {
		t.Errorf("unexpected transactions %#v", bus.txs)
	}
}

func TestSuspendingDoneContext(t *testing.T) {
	bus := &fakeI2C{}
	tr := NewSuspending(bus)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := tr.Write(ctx, 0x62, []byte{0x21, 0xb1}); !errors.Is(err, context.Canceled) {
		t.Errorf("Write returned %v", err)
	}
	if _, err := tr.WriteRead(ctx, 0x62, nil, 3); !errors.Is(err, context.Canceled) {
		t.Errorf("WriteRead returned %v", err)
	}
	if err := tr.Wait(ctx, 0); err != nil {
		t.Errorf("Wait(0) returned %v", err)
	}
	start := time.Now()
	if err := tr.Wait(ctx, 10*time.Second); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait returned %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Wait did not return when the context was done")
	}
	if len(bus.txs) != 0 {
		t.Errorf("bus saw %d transactions after cancellation", len(bus.txs))
	}
}
