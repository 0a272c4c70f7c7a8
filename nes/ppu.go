package nes

import "image"

// NES PPU generates 256x240 pixels.
const (
	width  = 256
	height = 240
)

// PPU stands for Picture Processing Unit, renders 256px x 240px image for a screen.
// PPU is 3x faster than CPU and rendering 1 frame requires 341x262=89342 cycles (each cycle writes a dot).
//
// This PPU implementation includes the PPU registers as well.
// References:
//   https://www.nesdev.org/wiki/PPU
//   https://www.nesdev.org/wiki/PPU_rendering
//   https://pgate1.at-ninja.jp/NES_on_FPGA/nes_ppu.htm (In Japanese)
type PPU struct {
	bus *PPUBus

	// Double buffered frames. back receives dots, front is complete.
	front *image.RGBA
	back  *image.RGBA

	// Internal registers for scrolling and addressing.
	// Reference:
	//   https://www.nesdev.org/wiki/PPU_registers
	//   https://www.nesdev.org/wiki/PPU_scrolling
	// Current VRAM address (15bit)
	v uint16
	// Temporary VRAM address, the top left of the screen
	t uint16
	// Fine X scroll (3bit)
	x byte
	// w indicates whether the current access is the first or the second,
	// shared by PPUSCROLL $2005 and PPUADDR $2006
	w bool
	// buffer for PPUDATA $2007
	buffer byte

	// PPUCTRL $2000
	ctrlIncrement32     bool
	ctrlSpriteTable     byte
	ctrlBackgroundTable byte
	ctrlSpriteSize      byte
	ctrlMasterSlave     byte
	ctrlNMIEnable       bool

	// PPUMASK $2001
	maskGrayscale          bool
	maskShowLeftBackground bool
	maskShowLeftSprites    bool
	maskShowBackground     bool
	maskShowSprites        bool
	maskEmphasizeRed       bool
	maskEmphasizeGreen     bool
	maskEmphasizeBlue      bool

	// PPUSTATUS $2002
	statusSpriteOverflow bool
	statusSprite0Hit     bool
	statusVBlank         bool

	// OAM is the sprite attribute memory, filled over OAMDATA $2004 or DMA.
	oamAddr byte
	oamData [256]byte

	// PPU has an internal RAM for palette data.
	paletteRAM [32]byte

	// Background fetch pipeline. The pattern and attribute bits of the
	// next tile are loaded into the low bytes of 16bit shift registers.
	nextTileID           byte
	nextTileAttribute    byte
	nextTileLow          byte
	nextTileHigh         byte
	patternShifterLow    uint16
	patternShifterHigh   uint16
	attributeShifterLow  uint16
	attributeShifterHigh uint16

	// cycle, scanline indicates which dot is processing.
	cycle    int
	scanline int
	oddFrame bool
	// Real hardware skips the last dot of the pre-render line on odd
	// frames while rendering. Tests turn this off for stable timing.
	skipOddFrame bool

	nmiPending    bool
	frameComplete bool
}

// NewPPU creates a PPU.
func NewPPU(bus *PPUBus) *PPU {
	p := &PPU{
		bus:          bus,
		front:        image.NewRGBA(image.Rect(0, 0, width, height)),
		back:         image.NewRGBA(image.Rect(0, 0, width, height)),
		skipOddFrame: true,
	}
	p.Reset()
	return p
}

// Reset restores the power-up state. The dot clock restarts at the top
// left of an even frame.
func (p *PPU) Reset() {
	p.cycle = 0
	p.scanline = 0
	p.oddFrame = false
	p.v = 0
	p.t = 0
	p.x = 0
	p.w = false
	p.buffer = 0
	p.writePPUCTRL(0)
	p.writePPUMASK(0)
	p.statusVBlank = false
	p.statusSprite0Hit = false
	p.statusSpriteOverflow = false
	p.oamAddr = 0
	p.nmiPending = false
	p.frameComplete = false
}

// writePPUCTRL writes PPUCTRL ($2000).
func (p *PPU) writePPUCTRL(data byte) {
	p.ctrlIncrement32 = data&0x04 != 0
	p.ctrlSpriteTable = data >> 3 & 1
	p.ctrlBackgroundTable = data >> 4 & 1
	p.ctrlSpriteSize = data >> 5 & 1
	p.ctrlMasterSlave = data >> 6 & 1
	enabled := data&0x80 != 0
	// Enabling NMI during VBlank raises one immediately.
	if !p.ctrlNMIEnable && enabled && p.statusVBlank {
		p.nmiPending = true
	}
	p.ctrlNMIEnable = enabled
	// The low 2 bits select the base nametable.
	p.t = p.t&0xF3FF | uint16(data&0x03)<<10
}

// writePPUMASK writes PPUMASK ($2001).
func (p *PPU) writePPUMASK(data byte) {
	p.maskGrayscale = data&0x01 != 0
	p.maskShowLeftBackground = data&0x02 != 0
	p.maskShowLeftSprites = data&0x04 != 0
	p.maskShowBackground = data&0x08 != 0
	p.maskShowSprites = data&0x10 != 0
	p.maskEmphasizeRed = data&0x20 != 0
	p.maskEmphasizeGreen = data&0x40 != 0
	p.maskEmphasizeBlue = data&0x80 != 0
}

// readPPUSTATUS reads PPUSTATUS ($2002). Reading clears the VBlank flag
// and the shared write toggle. The low 5 bits float from the data buffer.
func (p *PPU) readPPUSTATUS() byte {
	res := p.buffer & 0x1F
	if p.statusSpriteOverflow {
		res |= 1 << 5
	}
	if p.statusSprite0Hit {
		res |= 1 << 6
	}
	if p.statusVBlank {
		res |= 1 << 7
	}
	p.statusVBlank = false
	p.w = false
	return res
}

// writeOAMADDR writes OAMADDR ($2003).
func (p *PPU) writeOAMADDR(data byte) {
	p.oamAddr = data
}

// readOAMDATA reads OAMDATA ($2004). Reading does not increment OAMADDR.
func (p *PPU) readOAMDATA() byte {
	return p.oamData[p.oamAddr]
}

// writeOAMDATA writes OAMDATA ($2004).
func (p *PPU) writeOAMDATA(data byte) {
	p.oamData[p.oamAddr] = data
	p.oamAddr++
}

// writeOAMDMA copies a full page into OAM starting at the current OAMADDR,
// this will be called by the CPU.
func (p *PPU) writeOAMDMA(data [256]byte) {
	for i := 0; i < 256; i++ {
		p.oamData[p.oamAddr] = data[i]
		p.oamAddr++
	}
}

// writePPUSCROLL writes PPUSCROLL ($2005). The first write sets the X
// scroll, the second the Y scroll.
func (p *PPU) writePPUSCROLL(data byte) {
	if !p.w { // first
		p.t = p.t&0xFFE0 | uint16(data)>>3
		p.x = data & 0x07
		p.w = true
	} else { // second
		p.t = p.t&0x8FFF | uint16(data&0x07)<<12
		p.t = p.t&0xFC1F | uint16(data&0xF8)<<2
		p.w = false
	}
}

// writePPUADDR writes PPUADDR ($2006), the high byte comes first.
func (p *PPU) writePPUADDR(data byte) {
	if !p.w { // high
		p.t = p.t&0x80FF | uint16(data&0x3F)<<8
		p.w = true
	} else { // low
		p.t = p.t&0xFF00 | uint16(data)
		p.v = p.t
		p.w = false
	}
}

// incrementV applies the address increment PPUCTRL selects.
func (p *PPU) incrementV() {
	if p.ctrlIncrement32 {
		p.v += 32
	} else {
		p.v++
	}
}

// writePPUDATA writes PPUDATA ($2007).
func (p *PPU) writePPUDATA(data byte) error {
	address := p.v & 0x3FFF
	// Writing to paletteRAM
	if 0x3F00 <= address {
		p.writePalette(address, data)
	} else {
		if err := p.bus.write(address, data); err != nil {
			return err
		}
	}
	p.incrementV()
	return nil
}

// readPPUDATA reads PPUDATA ($2007). Reads below the palette go through
// an internal buffer, so the first read returns stale data.
func (p *PPU) readPPUDATA() (byte, error) {
	address := p.v & 0x3FFF
	var data byte
	if 0x3F00 <= address {
		data = p.readPalette(address)
		// The buffer still loads from the nametable underneath.
		d, err := p.bus.read(address - 0x1000)
		if err != nil {
			return 0, err
		}
		p.buffer = d
	} else {
		d, err := p.bus.read(address)
		if err != nil {
			return 0, err
		}
		data = p.buffer
		p.buffer = d
	}
	p.incrementV()
	return data, nil
}

// paletteAddress mirrors $3F00-$3FFF into the 32 byte palette RAM.
// $3F10/$3F14/$3F18/$3F1C are mirrors of the background entries.
func paletteAddress(address uint16) uint16 {
	address = (address - 0x3F00) % 32
	if 16 <= address && address%4 == 0 {
		address -= 16
	}
	return address
}

func (p *PPU) readPalette(address uint16) byte {
	return p.paletteRAM[paletteAddress(address)]
}

func (p *PPU) writePalette(address uint16, data byte) {
	p.paletteRAM[paletteAddress(address)] = data
}

func (p *PPU) renderingEnabled() bool {
	return p.maskShowBackground || p.maskShowSprites
}

// incrementX moves coarse X, wrapping into the next horizontal nametable.
func (p *PPU) incrementX() {
	if p.v&0x001F == 31 {
		p.v &= 0xFFE0
		p.v ^= 0x0400
	} else {
		p.v++
	}
}

// incrementY moves fine Y, overflowing into coarse Y. Coarse Y 29 is the
// last row of tiles, 30 and 31 are the attribute table.
func (p *PPU) incrementY() {
	if p.v&0x7000 != 0x7000 {
		p.v += 0x1000
	} else {
		p.v &= 0x8FFF
		y := p.v >> 5 & 0x1F
		switch y {
		case 29:
			y = 0
			p.v ^= 0x0800
		case 31:
			y = 0
		default:
			y++
		}
		p.v = p.v&0xFC1F | y<<5
	}
}

// copyX copies the horizontal bits from t to v.
func (p *PPU) copyX() {
	p.v = p.v&0xFBE0 | p.t&0x041F
}

// copyY copies the vertical bits from t to v.
func (p *PPU) copyY() {
	p.v = p.v&0x841F | p.t&0x7BE0
}

func (p *PPU) fetchNameTableByte() error {
	data, err := p.bus.read(0x2000 | p.v&0x0FFF)
	if err != nil {
		return err
	}
	p.nextTileID = data
	return nil
}

func (p *PPU) fetchAttributeTableByte() error {
	address := 0x23C0 | p.v&0x0C00 | p.v>>4&0x38 | p.v>>2&0x07
	data, err := p.bus.read(address)
	if err != nil {
		return err
	}
	// 2 bits for the quadrant of the tile.
	shift := byte(p.v>>4&4 | p.v&2)
	p.nextTileAttribute = data >> shift & 3
	return nil
}

func (p *PPU) fetchLowTileByte() error {
	fineY := p.v >> 12 & 7
	data, err := p.bus.read(uint16(p.ctrlBackgroundTable)*0x1000 + uint16(p.nextTileID)*16 + fineY)
	if err != nil {
		return err
	}
	p.nextTileLow = data
	return nil
}

func (p *PPU) fetchHighTileByte() error {
	fineY := p.v >> 12 & 7
	data, err := p.bus.read(uint16(p.ctrlBackgroundTable)*0x1000 + uint16(p.nextTileID)*16 + fineY + 8)
	if err != nil {
		return err
	}
	p.nextTileHigh = data
	return nil
}

func (p *PPU) updateShifters() {
	p.patternShifterLow <<= 1
	p.patternShifterHigh <<= 1
	p.attributeShifterLow <<= 1
	p.attributeShifterHigh <<= 1
}

// loadShifters reloads the low bytes with the next tile. The attribute
// bits are expanded to a full byte since they apply to the whole tile.
func (p *PPU) loadShifters() {
	p.patternShifterLow = p.patternShifterLow&0xFF00 | uint16(p.nextTileLow)
	p.patternShifterHigh = p.patternShifterHigh&0xFF00 | uint16(p.nextTileHigh)
	if p.nextTileAttribute&1 != 0 {
		p.attributeShifterLow = p.attributeShifterLow&0xFF00 | 0x00FF
	} else {
		p.attributeShifterLow = p.attributeShifterLow & 0xFF00
	}
	if p.nextTileAttribute&2 != 0 {
		p.attributeShifterHigh = p.attributeShifterHigh&0xFF00 | 0x00FF
	} else {
		p.attributeShifterHigh = p.attributeShifterHigh & 0xFF00
	}
}

// backgroundPixel samples the shift registers at the fine X offset.
// It returns the 2bit pattern value and the 2bit palette number.
func (p *PPU) backgroundPixel() (byte, byte) {
	if !p.maskShowBackground {
		return 0, 0
	}
	mux := uint16(0x8000) >> p.x
	var pixel, attribute byte
	if p.patternShifterLow&mux != 0 {
		pixel |= 1
	}
	if p.patternShifterHigh&mux != 0 {
		pixel |= 2
	}
	if p.attributeShifterLow&mux != 0 {
		attribute |= 1
	}
	if p.attributeShifterHigh&mux != 0 {
		attribute |= 2
	}
	return pixel, attribute
}

// renderPixel resolves the color of the current dot into the working
// frame. Pattern value 0 always falls through to the backdrop at $3F00,
// which also shows when rendering is disabled.
func (p *PPU) renderPixel() {
	x := p.cycle - 1
	y := p.scanline
	var index byte
	if p.renderingEnabled() {
		pixel, attribute := p.backgroundPixel()
		if x < 8 && !p.maskShowLeftBackground {
			pixel = 0
		}
		if pixel == 0 {
			index = p.readPalette(0x3F00)
		} else {
			index = p.readPalette(0x3F00 + uint16(attribute)<<2 + uint16(pixel))
		}
	} else {
		index = p.readPalette(0x3F00)
	}
	if p.maskGrayscale {
		index &= 0x30
	}
	p.back.SetRGBA(x, y, colors[index%64])
}

// completeFrame publishes the working frame and starts the next one.
func (p *PPU) completeFrame() {
	p.front, p.back = p.back, p.front
	p.frameComplete = true
	p.oddFrame = !p.oddFrame
}

// tick advances the dot counters. The last dot of the pre-render line is
// skipped on odd frames while rendering is enabled.
func (p *PPU) tick() {
	if p.skipOddFrame && p.oddFrame && p.renderingEnabled() && p.scanline == 261 && p.cycle == 339 {
		p.cycle = 0
		p.scanline = 0
		p.completeFrame()
		return
	}
	p.cycle++
	if p.cycle == 341 { // rendered a line
		p.cycle = 0
		p.scanline++
		if p.scanline == 262 { // rendered a frame
			p.scanline = 0
			p.completeFrame()
		}
	}
}

// TakeFrame returns the last completed frame. The bool reports true only
// once per completed frame.
func (p *PPU) TakeFrame() (*image.RGBA, bool) {
	if p.frameComplete {
		p.frameComplete = false
		return p.front, true
	}
	return p.front, false
}

// Step emulates a dot of the PPU and returns whether an NMI should be
// raised. Scanlines 0-239 draw the frame, 240 is idle, 241-260 are the
// VBlank lines and 261 is the pre-render line.
// Reference:
//   https://www.nesdev.org/wiki/PPU_rendering
//   https://www.nesdev.org/wiki/File:Ntsc_timing.png
func (p *PPU) Step() (bool, error) {
	p.tick()

	visibleLine := p.scanline < 240
	preLine := p.scanline == 261
	renderLine := visibleLine || preLine
	fetchCycle := (1 <= p.cycle && p.cycle <= 256) || (321 <= p.cycle && p.cycle <= 336)

	// The backdrop shows even when rendering is off.
	if visibleLine && 1 <= p.cycle && p.cycle <= 256 {
		p.renderPixel()
	}
	if p.renderingEnabled() {
		if renderLine && fetchCycle {
			p.updateShifters()
			switch (p.cycle - 1) % 8 {
			case 0:
				if err := p.fetchNameTableByte(); err != nil {
					return false, err
				}
			case 2:
				if err := p.fetchAttributeTableByte(); err != nil {
					return false, err
				}
			case 4:
				if err := p.fetchLowTileByte(); err != nil {
					return false, err
				}
			case 6:
				if err := p.fetchHighTileByte(); err != nil {
					return false, err
				}
			case 7:
				p.loadShifters()
				p.incrementX()
			}
		}
		if renderLine && p.cycle == 256 {
			p.incrementY()
		}
		if renderLine && p.cycle == 257 {
			p.copyX()
		}
		if preLine && 280 <= p.cycle && p.cycle <= 304 {
			p.copyY()
		}
	}

	// VBlank begins on scanline 241 and ends on the pre-render line.
	if p.scanline == 241 && p.cycle == 1 {
		p.statusVBlank = true
		if p.ctrlNMIEnable {
			p.nmiPending = true
		}
	}
	if preLine && p.cycle == 1 {
		p.statusVBlank = false
		p.statusSprite0Hit = false
		p.statusSpriteOverflow = false
	}

	if p.nmiPending {
		p.nmiPending = false
		return true, nil
	}
	return false, nil
}
