// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"fmt"
	"image/color"
	"io"

	"github.com/GermanBionicSystems/scd/sensirion"
	"github.com/maruel/ansi256"
	"periph.io/x/conn/v3/physic"
)

// Bar scale, in PPM.
const (
	barMin = 400
	barMax = 2000
)

// co2Levels maps the upper bound of each air quality band to its color.
var co2Levels = []struct {
	max sensirion.PPM
	c   color.NRGBA
}{
	{800, color.NRGBA{0, 200, 0, 255}},
	{1200, color.NRGBA{220, 220, 0, 255}},
	{1600, color.NRGBA{255, 128, 0, 255}},
	{barMax, color.NRGBA{255, 0, 0, 255}},
}

// bar draws the last reading as a single line of colored blocks, rewritten
// in place at every update.
type bar struct {
	w       io.Writer
	width   int
	palette ansi256.Palette
	buf     bytes.Buffer
}

func newBar(w io.Writer, width int, p *ansi256.Palette) *bar {
	if p == nil {
		p = ansi256.Default
	}
	return &bar{w: w, width: width, palette: *p}
}

func levelColor(co2 sensirion.PPM) color.NRGBA {
	for _, l := range co2Levels {
		if co2 <= l.max {
			return l.c
		}
	}
	return co2Levels[len(co2Levels)-1].c
}

// filled returns the number of blocks lit for co2.
func (b *bar) filled(co2 sensirion.PPM) int {
	switch {
	case co2 <= barMin:
		return 0
	case co2 >= barMax:
		return b.width
	}
	return int(co2-barMin) * b.width / (barMax - barMin)
}

func (b *bar) show(env *sensirion.Env) error {
	// Build the whole line first so the terminal never shows half of it.
	b.buf.Reset()
	_, _ = b.buf.WriteString("\r\033[0m")
	lit := b.palette.Block(levelColor(env.CO2))
	dark := b.palette.Block(color.NRGBA{40, 40, 40, 255})
	n := b.filled(env.CO2)
	for i := 0; i < b.width; i++ {
		if i < n {
			_, _ = io.WriteString(&b.buf, lit)
		} else {
			_, _ = io.WriteString(&b.buf, dark)
		}
	}
	_, _ = fmt.Fprintf(&b.buf, "\033[0m %5d ppm %6.2f°C %5.1f%%rH ", int(env.CO2), env.Temperature.Celsius(), percentRH(env.Humidity))
	_, err := b.buf.WriteTo(b.w)
	return err
}

// halt leaves the cursor on a clean line.
func (b *bar) halt() error {
	_, err := b.w.Write([]byte("\n\033[0m"))
	return err
}

func percentRH(h physic.RelativeHumidity) float64 {
	return float64(h) / float64(physic.PercentRH)
}
