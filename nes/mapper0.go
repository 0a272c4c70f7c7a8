package nes

import "fmt"

// Mapper0: https://www.nesdev.org/wiki/NROM
type mapper0 struct {
	cartridge *Cartridge
}

func (m *mapper0) ReadFromCPU(address uint16) (byte, error) {
	if 0x8000 <= address {
		// CPU $C000-$FFFF: Last 16 KiB of ROM (NROM-256) or mirror of $8000-$BFFF (NROM-128).
		mod := uint16(len(m.cartridge.prgROM))
		return m.cartridge.prgROM[(address-0x8000)%mod], nil
	}
	// CPU $6000-$7FFF: Family Basic only: PRG RAM
	return 0, fmt.Errorf("Reading PRG RAM not implemented. address: 0x%04x", address)
}

func (m *mapper0) WriteFromCPU(address uint16, data byte) error {
	if 0x8000 <= address {
		return fmt.Errorf("Writing data to PRG ROM not allowed: address=0x%04x, data=0x%02x", address, data)
	}
	return fmt.Errorf("Writing data to PRG RAM not implemented. address: 0x%04x, data: 0x%02x", address, data)
}

func (m *mapper0) ReadFromPPU(address uint16) (byte, error) {
	return m.cartridge.chrROM[address], nil
}

func (m *mapper0) WriteFromPPU(address uint16, data byte) error {
	if m.cartridge.chrRAM {
		m.cartridge.chrROM[address] = data
		return nil
	}
	return fmt.Errorf("Writing data to pattern tables not allowed, address=0x%04x, data=0x%02x", address, data)
}
