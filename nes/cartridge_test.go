package nes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inesSpec assembles iNES images for tests.
type inesSpec struct {
	prgBanks byte
	chrBanks byte
	flags6   byte
	flags7   byte
	trainer  []byte
	prg      []byte
	chr      []byte
}

func (s inesSpec) build() []byte {
	header := make([]byte, inesHeaderSizeBytes)
	header[0], header[1], header[2], header[3] = 'N', 'E', 'S', msDOSEOF
	header[4] = s.prgBanks
	header[5] = s.chrBanks
	header[6] = s.flags6
	header[7] = s.flags7
	buf := append([]byte{}, header...)
	buf = append(buf, s.trainer...)
	prg := make([]byte, int(s.prgBanks)*prgROMSizeUnit)
	copy(prg, s.prg)
	if len(prg) >= prgROMSizeUnit {
		// The vectors live at the tail of the last bank. Unless the test
		// placed its own, execution starts at $8000.
		bank := prg[len(prg)-prgROMSizeUnit:]
		if bank[0x3FFC] == 0 && bank[0x3FFD] == 0 {
			bank[0x3FFC] = 0x00
			bank[0x3FFD] = 0x80
		}
	}
	buf = append(buf, prg...)
	chr := make([]byte, int(s.chrBanks)*chrROMSizeUnit)
	copy(chr, s.chr)
	return append(buf, chr...)
}

// makeINES assembles a minimal NROM image whose program runs from $8000.
func makeINES(program []byte) []byte {
	return inesSpec{prgBanks: 1, chrBanks: 1, prg: program}.build()
}

func TestNewCartridge(t *testing.T) {
	tests := []struct {
		name       string
		spec       inesSpec
		wantMapper byte
		wantMirror tableMirrorMode
		wantCHRRAM bool
	}{
		{"NROM-128 horizontal", inesSpec{prgBanks: 1, chrBanks: 1}, 0, horizontal, false},
		{"NROM-256 vertical", inesSpec{prgBanks: 2, chrBanks: 1, flags6: 0x01}, 0, vertical, false},
		{"CHR RAM board", inesSpec{prgBanks: 1}, 0, horizontal, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cartridge, err := NewCartridge(tt.spec.build())
			require.NoError(t, err)
			assert.Equal(t, int(tt.spec.prgBanks)*prgROMSizeUnit, len(cartridge.prgROM), "PRG size")
			assert.Equal(t, chrROMSizeUnit, len(cartridge.chrROM), "CHR size")
			assert.Equal(t, tt.wantMapper, cartridge.mapperNumber(), "mapper number")
			assert.Equal(t, tt.wantMirror, cartridge.getTableMirrorMode(), "mirror mode")
			assert.Equal(t, tt.wantCHRRAM, cartridge.chrRAM, "CHR RAM")
		})
	}
}

func TestNewCartridgeErrors(t *testing.T) {
	valid := makeINES(nil)
	badMagic := append([]byte{}, valid...)
	badMagic[3] = 0x00
	tests := []struct {
		name string
		data []byte
	}{
		{"empty buffer", nil},
		{"bad magic", badMagic},
		{"no PRG banks", inesSpec{chrBanks: 1}.build()},
		{"truncated CHR", valid[:len(valid)-100]},
		{"truncated PRG", valid[:inesHeaderSizeBytes+100]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCartridge(tt.data)
			assert.Error(t, err)
		})
	}
}

func TestNewCartridgeSkipsTrainer(t *testing.T) {
	trainer := make([]byte, trainerSizeBytes)
	for i := range trainer {
		trainer[i] = 0xEE
	}
	spec := inesSpec{prgBanks: 1, chrBanks: 1, flags6: 0x05, trainer: trainer, prg: []byte{0xAB}}
	cartridge, err := NewCartridge(spec.build())
	require.NoError(t, err)
	assert.Equal(t, byte(0xAB), cartridge.prgROM[0], "PRG must start after the trainer")
	assert.Equal(t, vertical, cartridge.getTableMirrorMode())
}

func TestMapperNumberFromBothNibbles(t *testing.T) {
	cartridge, err := NewCartridge(inesSpec{prgBanks: 1, chrBanks: 1, flags6: 0x40, flags7: 0x10}.build())
	require.NoError(t, err)
	assert.Equal(t, byte(0x14), cartridge.mapperNumber())
}
