package nes

import "fmt"

type PPUBus struct {
	vram      *RAM
	mapper    Mapper
	cartridge *Cartridge
}

// NewPPUBus creates a new Bus for PPU.
func NewPPUBus(vram *RAM, mapper Mapper, cartridge *Cartridge) *PPUBus {
	return &PPUBus{vram, mapper, cartridge}
}

// nameTableBanks maps the 4 logical nametables onto the 2 physical 1 KiB
// banks, indexed by the cartridge mirror mode.
var nameTableBanks = [2][4]uint16{
	{0, 0, 1, 1}, // horizontal
	{0, 1, 0, 1}, // vertical
}

func (b *PPUBus) mirrorAddress(address uint16) uint16 {
	address = (address - 0x2000) % 0x1000
	table := address / 0x0400
	offset := address % 0x0400
	return nameTableBanks[b.cartridge.getTableMirrorMode()][table]*0x0400 + offset
}

// read reads data.
// Address        Size	  Description
// -------------------------------------
// $0000-$0FFF	  $1000	  Pattern table 0
// $1000-$1FFF	  $1000	  Pattern table 1
// $2000-$23FF	  $0400	  Nametable 0
// $2400-$27FF	  $0400	  Nametable 1
// $2800-$2BFF	  $0400	  Nametable 2
// $2C00-$2FFF	  $0400	  Nametable 3
// $3000-$3EFF	  $0F00	  Mirrors of $2000-$2EFF
// $3F00-$3F1F	  $0020	  Palette RAM indexes
// $3F20-$3FFF	  $00E0	  Mirrors of $3F00-$3F1F
// The palette lives inside the PPU, so the bus only covers the range below it.
// Reference: https://www.nesdev.org/wiki/PPU_memory_map
func (b *PPUBus) read(address uint16) (byte, error) {
	switch {
	case address < 0x2000:
		return b.mapper.ReadFromPPU(address)
	case address < 0x3F00:
		return b.vram.read(b.mirrorAddress(address)), nil
	default:
		return 0, fmt.Errorf("Unknown PPU bus read: 0x%04x", address)
	}
}

// write writes data.
// Reference: https://www.nesdev.org/wiki/PPU_memory_map
func (b *PPUBus) write(address uint16, data byte) error {
	switch {
	case address < 0x2000:
		return b.mapper.WriteFromPPU(address, data)
	case address < 0x3F00:
		b.vram.write(b.mirrorAddress(address), data)
	default:
		return fmt.Errorf("Unknown PPU bus write: address=0x%04x, data=0x%02x", address, data)
	}
	return nil
}
