package nes

import (
	"image"

	"github.com/golang/glog"
)

// The PPU runs 3 dots per CPU cycle on NTSC.
const ppuDotsPerCPUCycle = 3

// Console is a deck the units are attached to.
type Console interface {
	// Step executes one CPU instruction and runs the other units for the
	// cycles it consumed. It returns the consumed CPU cycles.
	Step() (int, error)
	// RunFrame runs until the next frame completes and returns it.
	RunFrame() (*image.RGBA, error)
	// Frame returns the latest finished frame. The bool reports whether
	// the frame is new since the last call.
	Frame() (*image.RGBA, bool)
	// SetButtons latches the buttons of the first controller.
	SetButtons(buttons [8]bool)
	// Reset restarts the console from the reset vector.
	Reset() error
}

type NesConsole struct {
	cpu        *CPU
	ppu        *PPU
	apu        *APU
	controller *Controller

	buffer       *image.RGBA
	currentFrame uint64
	lastFrame    uint64
}

// NewConsole creates a console from an iNES image. If debug is true, the
// returned console drops into the interactive debugger on Step.
func NewConsole(buf []byte, debug bool) (Console, error) {
	cartridge, err := NewCartridge(buf)
	if err != nil {
		return nil, err
	}
	mapper, err := NewMapper(cartridge)
	if err != nil {
		return nil, err
	}
	ppuBus := NewPPUBus(NewRAM(), mapper, cartridge)
	ppu := NewPPU(ppuBus)
	apu := NewAPU()
	controller := NewController()
	cpuBus := NewCPUBus(NewRAM(), ppu, apu, mapper, controller)
	cpu, err := NewCPU(cpuBus)
	if err != nil {
		return nil, err
	}
	console := &NesConsole{
		cpu:        cpu,
		ppu:        ppu,
		apu:        apu,
		controller: controller,
	}
	frame, _ := ppu.TakeFrame()
	console.buffer = frame
	if debug {
		glog.Info("Starting the console in debug mode.")
		return &DebugConsole{NesConsole: console}, nil
	}
	return console, nil
}

// Step executes one CPU instruction and drives the APU and the PPU for
// the cycles it consumed.
func (c *NesConsole) Step() (int, error) {
	cycles, err := c.cpu.Step()
	if err != nil {
		return 0, err
	}
	c.apu.Step(cycles)
	if c.apu.irqPending() {
		c.cpu.irqTriggered = true
	}
	for i := 0; i < cycles*ppuDotsPerCPUCycle; i++ {
		nmi, err := c.ppu.Step()
		if err != nil {
			return 0, err
		}
		if nmi {
			c.cpu.nmiTriggered = true
		}
		if frame, ok := c.ppu.TakeFrame(); ok {
			c.currentFrame++
			c.buffer = frame
		}
	}
	return cycles, nil
}

// RunFrame runs until the PPU completes the current frame.
func (c *NesConsole) RunFrame() (*image.RGBA, error) {
	start := c.currentFrame
	for c.currentFrame == start {
		if _, err := c.Step(); err != nil {
			return nil, err
		}
	}
	return c.buffer, nil
}

// Frame returns a new frame if it exists.
func (c *NesConsole) Frame() (*image.RGBA, bool) {
	if c.lastFrame < c.currentFrame {
		c.lastFrame = c.currentFrame
		return c.buffer, true
	}
	return c.buffer, false
}

// SetButtons latches the buttons of the first controller.
func (c *NesConsole) SetButtons(buttons [8]bool) {
	c.controller.Set(buttons)
}

// Reset restarts the console from the reset vector.
func (c *NesConsole) Reset() error {
	c.ppu.Reset()
	c.apu.Reset()
	return c.cpu.Reset()
}
