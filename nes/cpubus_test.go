package nes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockMapper struct {
	mock.Mock
}

func (m *mockMapper) ReadFromCPU(address uint16) (byte, error) {
	args := m.Called(address)
	return args.Get(0).(byte), args.Error(1)
}

func (m *mockMapper) WriteFromCPU(address uint16, data byte) error {
	args := m.Called(address, data)
	return args.Error(0)
}

func (m *mockMapper) ReadFromPPU(address uint16) (byte, error) {
	args := m.Called(address)
	return args.Get(0).(byte), args.Error(1)
}

func (m *mockMapper) WriteFromPPU(address uint16, data byte) error {
	args := m.Called(address, data)
	return args.Error(0)
}

func TestWRAMMirrors(t *testing.T) {
	bus := newTestConsole(t, []byte{0xA9, 0x01}).cpu.bus
	require.NoError(t, bus.write(0x0000, 0x12))
	for _, address := range []uint16{0x0000, 0x0800, 0x1000, 0x1800} {
		data, err := bus.read(address)
		require.NoError(t, err)
		assert.Equal(t, byte(0x12), data, "address=0x%04x", address)
	}
	require.NoError(t, bus.write(0x1FFF, 0x34))
	data, err := bus.read(0x07FF)
	require.NoError(t, err)
	assert.Equal(t, byte(0x34), data)
}

func TestPPURegisterMirrors(t *testing.T) {
	console := newTestConsole(t, []byte{0xA9, 0x01})
	bus := console.cpu.bus
	// PPUADDR repeats every 8 bytes up to 0x3FFF.
	require.NoError(t, bus.write(0x2006, 0x21))
	require.NoError(t, bus.write(0x3FFE, 0x08))
	assert.Equal(t, uint16(0x2108), console.ppu.v)
}

func TestControllerPortOnBus(t *testing.T) {
	console := newTestConsole(t, []byte{0xA9, 0x01})
	bus := console.cpu.bus
	console.controller.Set([8]bool{true, false, false, false, false, false, false, false})
	require.NoError(t, bus.write(0x4016, 0x01))
	require.NoError(t, bus.write(0x4016, 0x00))
	data, err := bus.read(0x4016)
	require.NoError(t, err)
	assert.Equal(t, byte(1), data, "button A was held during the strobe")

	// The second controller is not connected.
	data, err = bus.read(0x4017)
	require.NoError(t, err)
	assert.Equal(t, byte(0), data)
}

func TestWriteOnlyAndReadOnlyRegisters(t *testing.T) {
	bus := newTestConsole(t, []byte{0xA9, 0x01}).cpu.bus

	_, err := bus.read(0x2000)
	assert.ErrorContains(t, err, "write-only")
	_, err = bus.read(0x2002)
	assert.NoError(t, err)

	err = bus.write(0x2002, 0x01)
	assert.ErrorContains(t, err, "read-only")

	err = bus.write(0x4014, 0x02)
	assert.ErrorContains(t, err, "OAMDMA")
}

func TestAPURegistersOnBus(t *testing.T) {
	console := newTestConsole(t, []byte{0xA9, 0x01})
	bus := console.cpu.bus
	require.NoError(t, bus.write(0x4015, 0x1F))
	data, err := bus.read(0x4015)
	require.NoError(t, err)
	assert.Equal(t, byte(0x1F), data)
}

func TestMapperDispatch(t *testing.T) {
	console := newTestConsole(t, []byte{0xA9, 0x01})
	m := new(mockMapper)
	m.On("ReadFromCPU", uint16(0xC123)).Return(byte(0x42), nil)
	m.On("WriteFromCPU", uint16(0x8000), byte(0x07)).Return(nil)
	bus := NewCPUBus(NewRAM(), console.ppu, console.apu, m, console.controller)

	data, err := bus.read(0xC123)
	require.NoError(t, err)
	assert.Equal(t, byte(0x42), data)
	require.NoError(t, bus.write(0x8000, 0x07))
	m.AssertExpectations(t)
}
