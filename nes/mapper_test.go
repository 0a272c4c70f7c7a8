package nes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMapper(t *testing.T, spec inesSpec) Mapper {
	t.Helper()
	cartridge, err := NewCartridge(spec.build())
	require.NoError(t, err)
	mapper, err := NewMapper(cartridge)
	require.NoError(t, err)
	return mapper
}

func TestNewMapperRejectsUnsupported(t *testing.T) {
	// Flags 6 high nibble 1 selects MMC1.
	cartridge, err := NewCartridge(inesSpec{prgBanks: 1, chrBanks: 1, flags6: 0x10}.build())
	require.NoError(t, err)
	_, err = NewMapper(cartridge)
	assert.ErrorContains(t, err, "Unsupported mapper: 1")
}

func TestMapper0PRGMirroring(t *testing.T) {
	prg := make([]byte, prgROMSizeUnit)
	prg[0] = 0x11
	prg[0x0123] = 0x22
	mapper := newTestMapper(t, inesSpec{prgBanks: 1, chrBanks: 1, prg: prg})
	tests := []struct {
		address uint16
		want    byte
	}{
		{0x8000, 0x11},
		{0xC000, 0x11}, // NROM-128 mirrors the single bank
		{0x8123, 0x22},
		{0xC123, 0x22},
	}
	for _, tt := range tests {
		got, err := mapper.ReadFromCPU(tt.address)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "address 0x%04x", tt.address)
	}
}

func TestMapper0PRG32K(t *testing.T) {
	prg := make([]byte, 2*prgROMSizeUnit)
	prg[0] = 0x11
	prg[prgROMSizeUnit] = 0x33
	mapper := newTestMapper(t, inesSpec{prgBanks: 2, chrBanks: 1, prg: prg})
	got, err := mapper.ReadFromCPU(0x8000)
	require.NoError(t, err)
	assert.Equal(t, byte(0x11), got)
	got, err = mapper.ReadFromCPU(0xC000)
	require.NoError(t, err)
	assert.Equal(t, byte(0x33), got, "NROM-256 maps the second bank at 0xC000")
}

func TestMapper0RejectsPRGWrites(t *testing.T) {
	mapper := newTestMapper(t, inesSpec{prgBanks: 1, chrBanks: 1})
	assert.Error(t, mapper.WriteFromCPU(0x8000, 0x01))
	assert.Error(t, mapper.WriteFromCPU(0x6000, 0x01), "PRG RAM is not on NROM")
}

func TestMapper0CHRROM(t *testing.T) {
	chr := make([]byte, chrROMSizeUnit)
	chr[0x0123] = 0x5A
	mapper := newTestMapper(t, inesSpec{prgBanks: 1, chrBanks: 1, chr: chr})
	got, err := mapper.ReadFromPPU(0x0123)
	require.NoError(t, err)
	assert.Equal(t, byte(0x5A), got)
	assert.Error(t, mapper.WriteFromPPU(0x0123, 0x01), "CHR ROM is not writable")
}

func TestMapper0CHRRAM(t *testing.T) {
	mapper := newTestMapper(t, inesSpec{prgBanks: 1})
	require.NoError(t, mapper.WriteFromPPU(0x1FFF, 0x77))
	got, err := mapper.ReadFromPPU(0x1FFF)
	require.NoError(t, err)
	assert.Equal(t, byte(0x77), got)
}
