package gpu

import (
	"github.com/rogestation/psxcore/bus"
	"github.com/rogestation/psxcore/errors"
	"github.com/rogestation/psxcore/logger"
)

// GP1 display-control command codes.
const (
	gp1Reset          = 0x00
	gp1ResetFIFO      = 0x01
	gp1AckIRQ         = 0x02
	gp1DisplayEnable  = 0x03
	gp1DMADirection   = 0x04
	gp1DisplayArea    = 0x05
	gp1HDisplayRange  = 0x06
	gp1VDisplayRange  = 0x07
	gp1DisplayMode    = 0x08
	gp1GetGPUInfo     = 0x10
)

// WriteGP1 handles the GP1 display-control port.
func (g *GPU) WriteGP1(word uint32) {
	cmd := word >> 24
	switch cmd {
	case gp1Reset:
		g.Reset()
	case gp1ResetFIFO:
		g.state = WaitingForCommand
		g.params = g.params[:0]
	case gp1AckIRQ:
		g.irqAck = true
	case gp1DisplayEnable:
		g.dispEnabled = word&1 == 0
	case gp1DMADirection:
		g.dmaDirection = word & 0x3
	case gp1DisplayArea:
		g.dispAreaX = word & 0x3FF
		g.dispAreaY = (word >> 10) & 0x1FF
	case gp1HDisplayRange:
		g.hRange = word & 0xFFFFFF
	case gp1VDisplayRange:
		g.vRange = word & 0xFFFFF
	case gp1DisplayMode:
		g.dispMode = word & 0xFF
	case gp1GetGPUInfo:
		// accepted and ignored: no internal register is copied to GPUREAD,
		// which keeps returning VRAM-to-CPU transfer data. GP1(0x11-0x1F)
		// are logged as unknown commands.
	default:
		logger.Log("gpu", errors.New(errors.UnknownGP1Command, cmd))
	}
}

// DMAIn implements dma.Peer: a linked-list or slice DMA transfer feeds GP0
// words directly, exactly as if the CPU had written them one at a time.
func (g *GPU) DMAIn(word uint32) { g.WriteGP0(word) }

// DMAOut implements dma.Peer for GPU-to-RAM image transfers.
func (g *GPU) DMAOut() uint32 { return g.ReadGP0() }

// gpuStat packs the GPUSTAT status word.
func (g *GPU) gpuStat() uint32 {
	var s uint32
	s |= uint32(g.texPageX/64) & 0xF
	s |= uint32(g.texPageY/256&0x1) << 4
	if g.dmaDirection != 0 {
		s |= 1 << 25
	}
	s |= g.dmaDirection << 29
	if !g.dispEnabled {
		s |= 1 << 23
	}
	if g.irqAck {
		s |= 1 << 24
	}
	s |= (g.dispMode & 0x3F) << 17
	s |= 1 << 26 // ready to receive command
	s |= 1 << 27 // ready to send VRAM to CPU
	s |= 1 << 28 // ready to receive DMA block
	return s
}

// ---- bus.PsxDevice wiring: GP0/GPUREAD at offset 0, GP1/GPUSTAT at offset 4 ----

func (g *GPU) Contains(offset uint32, width bus.Width) bool {
	return offset < 8 && bus.Aligned(offset, width)
}

func (g *GPU) Read32(offset uint32) (uint32, error) {
	switch offset {
	case 0x0:
		return g.ReadGP0(), nil
	case 0x4:
		return g.gpuStat(), nil
	}
	return 0, bus.ErrUnmapped
}

func (g *GPU) Write32(offset uint32, v uint32) error {
	switch offset {
	case 0x0:
		g.WriteGP0(v)
	case 0x4:
		g.WriteGP1(v)
	}
	return nil
}

func (g *GPU) Read8(offset uint32) (uint8, error) {
	v, err := g.Read32(offset &^ 3)
	return uint8(v >> ((offset & 3) * 8)), err
}

func (g *GPU) Read16(offset uint32) (uint16, error) {
	v, err := g.Read32(offset &^ 3)
	return uint16(v >> ((offset & 2) * 8)), err
}

func (g *GPU) Write8(offset uint32, v uint8) error {
	return g.Write32(offset&^3, uint32(v))
}

func (g *GPU) Write16(offset uint32, v uint16) error {
	return g.Write32(offset&^3, uint32(v))
}

func (g *GPU) Peek(offset uint32) (uint32, error) { return g.Read32(offset) }
func (g *GPU) Poke(offset uint32, v uint32) error  { return g.Write32(offset, v) }

// MarshalState serializes the full VRAM followed by the packed GPUSTAT word.
func (g *GPU) MarshalState() []byte {
	buf := make([]byte, len(g.vram)*2+4)
	for i, px := range g.vram {
		buf[i*2] = byte(px)
		buf[i*2+1] = byte(px >> 8)
	}
	off := len(g.vram) * 2
	stat := g.gpuStat()
	buf[off] = byte(stat)
	buf[off+1] = byte(stat >> 8)
	buf[off+2] = byte(stat >> 16)
	buf[off+3] = byte(stat >> 24)
	return buf
}

// UnmarshalState restores VRAM only; the GPUSTAT word at the end of the
// block is not read back, so the display-control state keeps its current
// values.
func (g *GPU) UnmarshalState(buf []byte) {
	for i := range g.vram {
		g.vram[i] = uint16(buf[i*2]) | uint16(buf[i*2+1])<<8
	}
}
