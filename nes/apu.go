package nes

import "github.com/golang/glog"

// APU carries the $4000-$4017 register file and the frame counter.
// Channel registers are latched so software can program them, but no
// samples are synthesized.
// Reference: https://www.nesdev.org/wiki/APU
type APU struct {
	pulse1   pulse
	pulse2   pulse
	triangle triangle
	noise    noise
	dmc      dmc

	enabled    byte // $4015 write
	frameMode  byte // $4017 bit 7, 1 selects the 5-step sequence
	irqInhibit bool // $4017 bit 6
	frameIRQ   bool
	cycles     int
}

// The 4-step frame sequence takes 29830 CPU cycles per pass.
const frameSequenceCycles = 29830

func NewAPU() *APU {
	return &APU{}
}

// Reset silences all channels and clears the frame counter state.
func (a *APU) Reset() {
	a.enabled = 0
	a.frameIRQ = false
	a.cycles = 0
}

// Step advances the frame counter. The 4-step sequence raises the frame
// IRQ at the end of each pass unless inhibited.
func (a *APU) Step(cpuCycles int) {
	a.cycles += cpuCycles
	if frameSequenceCycles <= a.cycles {
		a.cycles -= frameSequenceCycles
		if a.frameMode == 0 && !a.irqInhibit {
			a.frameIRQ = true
		}
	}
}

func (a *APU) irqPending() bool {
	return a.frameIRQ
}

// readStatus reads $4015. Reading clears the frame IRQ flag.
func (a *APU) readStatus() byte {
	data := a.enabled & 0x1F
	if a.frameIRQ {
		data |= 1 << 6
	}
	a.frameIRQ = false
	return data
}

// writeRegister routes an APU register write, $4000-$4017.
func (a *APU) writeRegister(address uint16, data byte) {
	switch {
	case address < 0x4004:
		a.pulse1.write(address%4, data)
	case address < 0x4008:
		a.pulse2.write(address%4, data)
	case address < 0x400C:
		a.triangle.write(address%4, data)
	case address < 0x4010:
		a.noise.write(address%4, data)
	case address < 0x4014:
		a.dmc.write(address%4, data)
	case address == 0x4015:
		a.enabled = data
	case address == 0x4017:
		a.frameMode = data >> 7
		a.irqInhibit = data&0x40 != 0
		if a.irqInhibit {
			a.frameIRQ = false
		}
		a.cycles = 0
	default:
		glog.V(1).Infof("Unimplemented APU register write: address=0x%04x, data=0x%02x\n", address, data)
	}
}

// pulse latches the four pulse channel registers.
type pulse struct {
	control   byte
	sweep     byte
	timerLow  byte
	timerHigh byte
}

func (p *pulse) write(register uint16, data byte) {
	switch register {
	case 0:
		p.control = data
	case 1:
		p.sweep = data
	case 2:
		p.timerLow = data
	case 3:
		p.timerHigh = data
	}
}

type triangle struct {
	control   byte
	timerLow  byte
	timerHigh byte
}

func (t *triangle) write(register uint16, data byte) {
	switch register {
	case 0:
		t.control = data
	case 2:
		t.timerLow = data
	case 3:
		t.timerHigh = data
	}
}

type noise struct {
	control byte
	period  byte
	length  byte
}

func (n *noise) write(register uint16, data byte) {
	switch register {
	case 0:
		n.control = data
	case 2:
		n.period = data
	case 3:
		n.length = data
	}
}

type dmc struct {
	control byte
	load    byte
	address byte
	length  byte
}

func (d *dmc) write(register uint16, data byte) {
	switch register {
	case 0:
		d.control = data
	case 1:
		d.load = data
	case 2:
		d.address = data
	case 3:
		d.length = data
	}
}
