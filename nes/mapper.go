package nes

import "fmt"

// Mapper translates cartridge-space accesses from both buses.
type Mapper interface {
	ReadFromCPU(uint16) (byte, error)
	WriteFromCPU(uint16, byte) error
	ReadFromPPU(uint16) (byte, error)
	WriteFromPPU(uint16, byte) error
}

// NewMapper selects a mapper implementation for the cartridge.
// An unsupported mapper id fails here, at construction time.
func NewMapper(cartridge *Cartridge) (Mapper, error) {
	switch cartridge.mapperNumber() {
	case 0:
		return &mapper0{cartridge}, nil
	}
	return nil, fmt.Errorf("Unsupported mapper: %d", cartridge.mapperNumber())
}
