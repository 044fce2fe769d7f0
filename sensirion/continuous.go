// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sensirion

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrContinuousRunning is returned when a continuous sense is started twice.
var ErrContinuousRunning = errors.New("sensirion: continuous sense running already")

// continuousBuffer is the capacity of the channel returned by Start.
const continuousBuffer = 16

// Continuous runs a read function on a ticker in a background goroutine.
// The zero value is ready to use.
type Continuous struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Start calls start, then read every interval. Successful readings are sent
// to the returned channel; they are dropped while the channel is full. The
// context passed to both functions is cancelled by Stop.
//
// start may be nil.
func (c *Continuous) Start(interval time.Duration, start func(context.Context) error, read func(context.Context, *Env) error) (<-chan Env, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return nil, ErrContinuousRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	if start != nil {
		if err := start(ctx); err != nil {
			cancel()
			return nil, err
		}
	}
	channel := make(chan Env, continuousBuffer)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done

	go func() {
		defer close(done)
		defer close(channel)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e := Env{}
				if err := read(ctx, &e); err == nil && len(channel) < continuousBuffer {
					channel <- e
				}
			}
		}
	}()
	return channel, nil
}

// Stop cancels a running continuous sense and waits for its goroutine to
// exit, which closes the channel. It reports whether one was running.
func (c *Continuous) Stop() bool {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	<-done
	return true
}
