package nes

import (
	"fmt"

	"github.com/golang/glog"
)

const (
	chrROMSizeUnit      int  = 0x2000 // 8 KiB
	prgROMSizeUnit      int  = 0x4000 // 16 KiB
	trainerSizeBytes    int  = 512
	inesHeaderSizeBytes int  = 16 // The valid iNES header has 16 bytes
	msDOSEOF            byte = 0x1A
)

type tableMirrorMode int

const (
	horizontal tableMirrorMode = iota
	vertical
)

// https://www.nesdev.org/wiki/INES
type Cartridge struct {
	prgROM  []byte
	chrROM  []byte
	chrRAM  bool // boards without CHR banks carry 8 KiB of CHR RAM instead
	flags6  byte // https://www.nesdev.org/wiki/INES#Flags_6
	flags7  byte // https://www.nesdev.org/wiki/INES#Flags_7
	flags8  byte // https://www.nesdev.org/wiki/INES#Flags_8
	flags9  byte // https://www.nesdev.org/wiki/INES#Flags_9
	flags10 byte // https://www.nesdev.org/wiki/INES#Flags_10
}

// isValid checks whether the buffer starts with the iNES magic.
func isValid(data []byte) bool {
	return len(data) >= inesHeaderSizeBytes &&
		data[0] == byte('N') &&
		data[1] == byte('E') &&
		data[2] == byte('S') &&
		data[3] == msDOSEOF
}

// NewCartridge parses an iNES image into a cartridge.
func NewCartridge(data []byte) (*Cartridge, error) {
	if !isValid(data) {
		return nil, fmt.Errorf("The buffer is not a valid iNES image.")
	}
	c := &Cartridge{
		flags6:  data[6],
		flags7:  data[7],
		flags8:  data[8],
		flags9:  data[9],
		flags10: data[10],
	}
	if data[4] == 0 {
		return nil, fmt.Errorf("The cartridge has no PRG ROM.")
	}
	prgStart := inesHeaderSizeBytes
	if c.hasTrainer() {
		prgStart += trainerSizeBytes
	}
	prgEnd := prgStart + int(data[4])*prgROMSizeUnit
	chrEnd := prgEnd + int(data[5])*chrROMSizeUnit
	if len(data) < chrEnd {
		return nil, fmt.Errorf("The buffer is truncated: got %d bytes, want %d bytes.", len(data), chrEnd)
	}
	c.prgROM = data[prgStart:prgEnd]
	if data[5] == 0 {
		c.chrROM = make([]byte, chrROMSizeUnit)
		c.chrRAM = true
	} else {
		c.chrROM = data[prgEnd:chrEnd]
	}
	glog.V(1).Infof("Cartridge: PRG=%d bytes, CHR=%d bytes (RAM=%t), mapper=%d\n",
		len(c.prgROM), len(c.chrROM), c.chrRAM, c.mapperNumber())
	return c, nil
}

func (c *Cartridge) hasTrainer() bool {
	return c.flags6&0x04 != 0
}

// mapperNumber assembles the mapper id from the high nibbles of flags 6 and 7.
func (c *Cartridge) mapperNumber() byte {
	return c.flags7&0xF0 | c.flags6>>4
}

func (c *Cartridge) getTableMirrorMode() tableMirrorMode {
	if c.flags6&1 == 1 {
		return vertical
	}
	return horizontal
}
