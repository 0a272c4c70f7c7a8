package nes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConsole(t *testing.T, program []byte) *NesConsole {
	t.Helper()
	console, err := NewConsole(makeINES(program), false)
	require.NoError(t, err)
	nes, ok := console.(*NesConsole)
	require.True(t, ok)
	return nes
}

// newVectorConsole builds a console whose NMI and IRQ vectors point into
// the given program instead of the default reset target.
func newVectorConsole(t *testing.T, program []byte, nmi, irq uint16) *NesConsole {
	t.Helper()
	prg := make([]byte, prgROMSizeUnit)
	copy(prg, program)
	prg[0x3FFA] = byte(nmi)
	prg[0x3FFB] = byte(nmi >> 8)
	prg[0x3FFC] = 0x00
	prg[0x3FFD] = 0x80
	prg[0x3FFE] = byte(irq)
	prg[0x3FFF] = byte(irq >> 8)
	return newTestConsole(t, prg)
}

func TestConsoleRunsProgram(t *testing.T) {
	// LDA #$05; STA $00; JMP $8004
	console := newTestConsole(t, []byte{0xA9, 0x05, 0x85, 0x00, 0x4C, 0x04, 0x80})
	for i := 0; i < 3; i++ {
		_, err := console.Step()
		require.NoError(t, err)
	}
	assert.Equal(t, byte(0x05), console.cpu.a)
	data, err := console.cpu.bus.read(0x0000)
	require.NoError(t, err)
	assert.Equal(t, byte(0x05), data)
}

func TestConsoleStepDrivesPPUAndAPU(t *testing.T) {
	console := newTestConsole(t, []byte{0xA9, 0x01})
	cycles, err := console.Step()
	require.NoError(t, err)
	require.Equal(t, 2, cycles)
	assert.Equal(t, cycles*ppuDotsPerCPUCycle, console.ppu.cycle, "the PPU runs three dots per CPU cycle")
	assert.Equal(t, cycles, console.apu.cycles)
}

func TestRunFrameProducesFrame(t *testing.T) {
	console := newTestConsole(t, []byte{0x4C, 0x00, 0x80})
	frame, err := console.RunFrame()
	require.NoError(t, err)
	require.NotNil(t, frame)
	bounds := frame.Bounds()
	assert.Equal(t, width, bounds.Dx())
	assert.Equal(t, height, bounds.Dy())

	_, fresh := console.Frame()
	assert.True(t, fresh, "the first poll after a frame sees it")
	_, fresh = console.Frame()
	assert.False(t, fresh, "polling again returns a stale frame")
}

func TestConsoleReset(t *testing.T) {
	console := newTestConsole(t, []byte{0xA9, 0x01, 0x4C, 0x02, 0x80})
	for i := 0; i < 10; i++ {
		_, err := console.Step()
		require.NoError(t, err)
	}
	require.NoError(t, console.Reset())
	assert.Equal(t, uint16(0x8000), console.cpu.pc)
	assert.Equal(t, uint64(0), console.cpu.cycles)
	assert.Equal(t, 0, console.ppu.cycle)
	assert.Equal(t, 0, console.ppu.scanline)
	assert.Equal(t, 0, console.apu.cycles)
}

func TestNewConsoleDebug(t *testing.T) {
	console, err := NewConsole(makeINES([]byte{0xA9, 0x01}), true)
	require.NoError(t, err)
	_, ok := console.(*DebugConsole)
	assert.True(t, ok)
}

func TestNewConsoleRejectsBadImage(t *testing.T) {
	_, err := NewConsole([]byte{0x01, 0x02, 0x03}, false)
	assert.Error(t, err)
}

func TestAPUFrameIRQReachesCPU(t *testing.T) {
	program := make([]byte, 0x30)
	program[0] = 0x58                              // CLI
	copy(program[0x01:], []byte{0x4C, 0x01, 0x80}) // JMP $8001
	program[0x20] = 0xA9                           // LDA #$42
	program[0x21] = 0x42
	copy(program[0x22:], []byte{0x4C, 0x22, 0x80}) // JMP $8022
	console := newVectorConsole(t, program, 0x8000, 0x8020)
	for console.cpu.a != 0x42 && console.cpu.cycles < 2*frameSequenceCycles {
		_, err := console.Step()
		require.NoError(t, err)
	}
	assert.Equal(t, byte(0x42), console.cpu.a, "the frame counter IRQ ran the handler")
	assert.Less(t, uint64(frameSequenceCycles), console.cpu.cycles)
}
