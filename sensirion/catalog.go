// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sensirion

import (
	"fmt"
	"sort"
	"time"
)

const (
	maxArgs  = 2
	maxReply = 6
)

// Op identifies a logical operation within a sensor family catalog.
type Op uint8

// Command describes one sensor command. Commands are defined statically by
// the sensor family packages and never modified.
type Command struct {
	Op   Op
	Name string
	// The 16-bit command word.
	Code uint16
	// Number of argument words written after the command word.
	Args int
	// Number of words returned by the sensor.
	Reply int
	// Minimum wait after the write before the response may be read or the
	// next command issued.
	Delay time.Duration
	// States in which the command may be issued.
	Allowed StateSet
	// Next returns the state entered once the command completed. nil keeps
	// the current state.
	Next func(State) State
	// Extended commands are only available on premium variants.
	Extended bool
	// The sensor does not acknowledge the write.
	NoAck bool
}

// ResponseSize is the number of bytes returned by the command.
func (c Command) ResponseSize() int {
	return c.Reply * WordSize
}

func (c Command) String() string {
	return fmt.Sprintf("%s(0x%04x)", c.Name, c.Code)
}

// Catalog maps logical operations of one sensor family to commands.
type Catalog struct {
	name     string
	cmds     map[Op]Command
	extended bool
}

// NewCatalog returns a catalog holding cmds, extended commands included.
//
// It panics on duplicate operations or malformed commands, as these are
// programming errors.
func NewCatalog(name string, cmds ...Command) *Catalog {
	c := &Catalog{name: name, cmds: make(map[Op]Command, len(cmds)), extended: true}
	for _, cmd := range cmds {
		if _, ok := c.cmds[cmd.Op]; ok {
			panic(fmt.Sprintf("sensirion: %s: duplicate op %d (%s)", name, cmd.Op, cmd.Name))
		}
		if cmd.Name == "" || cmd.Args < 0 || cmd.Args > maxArgs || cmd.Reply < 0 || cmd.Reply > maxReply || cmd.Allowed == 0 || cmd.Delay < 0 {
			panic(fmt.Sprintf("sensirion: %s: malformed command %#v", name, cmd))
		}
		c.cmds[cmd.Op] = cmd
	}
	return c
}

// Base returns a view of the catalog named name without the extended
// commands.
func (c *Catalog) Base(name string) *Catalog {
	return &Catalog{name: name, cmds: c.cmds}
}

// Name returns the name of the sensor variant the catalog describes.
func (c *Catalog) Name() string {
	return c.name
}

// Lookup returns the command implementing op.
func (c *Catalog) Lookup(op Op) (Command, error) {
	cmd, ok := c.cmds[op]
	if !ok || (cmd.Extended && !c.extended) {
		return Command{}, fmt.Errorf("%w: %s op %d", ErrUnsupported, c.name, op)
	}
	return cmd, nil
}

// Commands returns the commands available in the catalog ordered by Op.
func (c *Catalog) Commands() []Command {
	cmds := make([]Command, 0, len(c.cmds))
	for _, cmd := range c.cmds {
		if cmd.Extended && !c.extended {
			continue
		}
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Op < cmds[j].Op })
	return cmds
}
