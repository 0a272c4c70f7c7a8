package nes

import (
	"fmt"

	"github.com/golang/glog"
)

type CPUBus struct {
	wram       *RAM
	ppu        *PPU
	apu        *APU
	mapper     Mapper
	controller *Controller
}

// NewCPUBus creates a new Bus for CPU.
// CPU memory map
// 0x0000 - 0x07FF	WRAM
// 0x0800 - 0x1FFF	WRAM Mirror
// 0x2000 - 0x2007	PPU Registers
// 0x2008 - 0x3FFF	PPU Registers Mirror (repeats every 8 bytes)
// 0x4000 - 0x4017	APU and I/O Registers
// 0x4018 - 0x401F	Normally disabled APU and I/O functionality
// 0x4020 - 0xFFFF	Cartridge space, owned by the mapper
func NewCPUBus(wram *RAM, ppu *PPU, apu *APU, mapper Mapper, controller *Controller) *CPUBus {
	return &CPUBus{wram, ppu, apu, mapper, controller}
}

// writeOAMDMA writes OAMDATA to PPU, this will be called by CPU.
func (b *CPUBus) writeOAMDMA(data [256]byte) {
	b.ppu.writeOAMDMA(data)
}

func (b *CPUBus) readPPURegister(address uint16) (byte, error) {
	switch address {
	case 0x2002:
		return b.ppu.readPPUSTATUS(), nil
	case 0x2004:
		return b.ppu.readOAMDATA(), nil
	case 0x2007:
		return b.ppu.readPPUDATA()
	default:
		return 0, fmt.Errorf("Read from the write-only PPU register: address=0x%04x", address)
	}
}

// read reads a byte.
func (b *CPUBus) read(address uint16) (byte, error) {
	switch {
	case address < 0x2000:
		return b.wram.read(address % 0x0800), nil
	case address < 0x4000:
		return b.readPPURegister(0x2000 + address%8)
	case address == 0x4014:
		// OAMDMA is write-only.
		glog.V(1).Infof("Read from OAMDMA not allowed, returning 0.\n")
		return 0, nil
	case address == 0x4015:
		return b.apu.readStatus(), nil
	case address == 0x4016: // 1P
		return b.controller.read(), nil
	case address == 0x4017: // 2P, not connected
		return 0, nil
	case address < 0x4020:
		glog.V(1).Infof("Unimplemented CPU bus read: address=0x%04x\n", address)
		return 0, nil
	default:
		return b.mapper.ReadFromCPU(address)
	}
}

// read16 reads 2 bytes.
func (b *CPUBus) read16(address uint16) (uint16, error) {
	l, err := b.read(address)
	if err != nil {
		return 0, err
	}
	h, err := b.read(address + 1)
	if err != nil {
		return 0, err
	}
	return uint16(h)<<8 | uint16(l), nil
}

// read16Wrap reads 2 bytes, but the high byte comes from the same page.
// The 6502 indirect addressing never carries into the page number.
func (b *CPUBus) read16Wrap(address uint16) (uint16, error) {
	l, err := b.read(address)
	if err != nil {
		return 0, err
	}
	h, err := b.read(address&0xFF00 | uint16(byte(address)+1))
	if err != nil {
		return 0, err
	}
	return uint16(h)<<8 | uint16(l), nil
}

// writeToPPURegisters writes data to PPU registers.
func (b *CPUBus) writeToPPURegisters(address uint16, data byte) error {
	switch address {
	case 0x2000:
		b.ppu.writePPUCTRL(data)
	case 0x2001:
		b.ppu.writePPUMASK(data)
	case 0x2003:
		b.ppu.writeOAMADDR(data)
	case 0x2004:
		b.ppu.writeOAMDATA(data)
	case 0x2005:
		b.ppu.writePPUSCROLL(data)
	case 0x2006:
		b.ppu.writePPUADDR(data)
	case 0x2007:
		if err := b.ppu.writePPUDATA(data); err != nil {
			return err
		}
	default:
		return fmt.Errorf("Write to the read-only PPU register: address=0x%04x, data=0x%02x", address, data)
	}
	return nil
}

// write writes a byte.
func (b *CPUBus) write(address uint16, data byte) error {
	switch {
	case address < 0x2000:
		b.wram.write(address%0x0800, data)
	case address < 0x4000:
		return b.writeToPPURegisters(0x2000+address%8, data)
	case address == 0x4014:
		// Implemented on CPU, see CPU.write.
		return fmt.Errorf("OAMDMA write must be handled by the CPU: data=0x%02x", data)
	case address == 0x4016: // 1P
		b.controller.write(data)
	case address < 0x4020:
		b.apu.writeRegister(address, data)
	default:
		return b.mapper.WriteFromCPU(address, data)
	}
	return nil
}
