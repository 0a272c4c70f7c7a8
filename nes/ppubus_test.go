package nes

import (
	"strings"
	"testing"
)

func newTestPPUBus(t *testing.T, flags6 byte) *PPUBus {
	t.Helper()
	chr := make([]byte, chrROMSizeUnit)
	chr[0x0123] = 0x77
	cartridge, err := NewCartridge(inesSpec{prgBanks: 1, chrBanks: 1, flags6: flags6, chr: chr}.build())
	if err != nil {
		t.Fatalf("NewCartridge: %v", err)
	}
	mapper, err := NewMapper(cartridge)
	if err != nil {
		t.Fatalf("NewMapper: %v", err)
	}
	return NewPPUBus(NewRAM(), mapper, cartridge)
}

func TestNameTableMirroring(t *testing.T) {
	tests := []struct {
		name     string
		flags6   byte
		mirrored [2]uint16
		distinct uint16
	}{
		{"horizontal", 0x00, [2]uint16{0x2000, 0x2400}, 0x2800},
		{"horizontal lower", 0x00, [2]uint16{0x2800, 0x2C00}, 0x2000},
		{"vertical", 0x01, [2]uint16{0x2000, 0x2800}, 0x2400},
		{"vertical right", 0x01, [2]uint16{0x2400, 0x2C00}, 0x2000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := newTestPPUBus(t, tt.flags6)
			if err := bus.write(tt.mirrored[0], 0x5A); err != nil {
				t.Fatalf("write: %v", err)
			}
			got, err := bus.read(tt.mirrored[1])
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if got != 0x5A {
				t.Fatalf("0x%04x and 0x%04x must share a table: got=0x%02x, want=0x5a", tt.mirrored[0], tt.mirrored[1], got)
			}
			got, err = bus.read(tt.distinct)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if got == 0x5A {
				t.Fatalf("0x%04x and 0x%04x must not share a table", tt.mirrored[0], tt.distinct)
			}
		})
	}
}

func TestNameTable3000Mirror(t *testing.T) {
	bus := newTestPPUBus(t, 0x00)
	if err := bus.write(0x2005, 0xAB); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := bus.read(0x3005)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != 0xAB {
		t.Fatalf("0x3005 mirrors 0x2005: got=0x%02x, want=0xab", got)
	}
}

func TestPatternTableReadsThroughMapper(t *testing.T) {
	bus := newTestPPUBus(t, 0x00)
	got, err := bus.read(0x0123)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != 0x77 {
		t.Fatalf("CHR ROM read: got=0x%02x, want=0x77", got)
	}
	if err := bus.write(0x0123, 0x01); err == nil {
		t.Fatal("Writing CHR ROM must fail.")
	}
}

func TestPaletteRangeNotOnBus(t *testing.T) {
	bus := newTestPPUBus(t, 0x00)
	_, err := bus.read(0x3F00)
	if err == nil || !strings.Contains(err.Error(), "Unknown PPU bus read") {
		t.Fatalf("Reading 0x3f00: got err=%v, want an unknown address error", err)
	}
	if err := bus.write(0x3F00, 0x01); err == nil {
		t.Fatal("Writing 0x3f00 must fail.")
	}
}
