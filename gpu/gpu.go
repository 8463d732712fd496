// Package gpu implements the GPU command processor, rasterizer and VRAM:
// the GP0 port (drawing commands, the WaitingForCommand /
// ReceivingParameters / ReceivingDataWords state machine), the GP1 port
// (display control), a 1MiB VRAM in ABGR-1555, and VBlank timing.
//
// Grounded on the teacher's hardware/tia package: a clocked device that
// consumes a fixed parameter count per "instruction" before producing
// pixels, generalized from the TIA's per-scanline color clock to the GPU's
// command-driven pixel pipeline.
package gpu

import (
	"github.com/rogestation/psxcore/errors"
	"github.com/rogestation/psxcore/logger"
)

// Port state machine: an idle GP0 port treats the next word as a command;
// a command wanting parameters collects a fixed count of them before
// dispatching; a command moving pixel data switches to raw data words.
type portState int

const (
	WaitingForCommand portState = iota
	ReceivingParameters
	ReceivingDataWords
)

const (
	vramWidth  = 1024
	vramHeight = 512

	// timing constants for VBlank generation
	dotsPerScanline  = 3413
	scanlinesPerFrame = 263
)

// GPU is the GP0/GP1 command processor, rasterizer, and VRAM.
type GPU struct {
	vram [vramWidth * vramHeight]uint16

	state       portState
	pendingCmd  uint32
	lastCmdWord uint32
	params      []uint32
	paramsWant  int

	// data-word transfer (CPU<->VRAM copy commands)
	xferX, xferY, xferW, xferH, xferRow, xferCol int
	xferToVRAM                                   bool

	// drawing state
	drawAreaX1, drawAreaY1, drawAreaX2, drawAreaY2 int
	drawOffsetX, drawOffsetY                       int
	texPageX, texPageY                             int
	maskSet, maskCheck                             bool

	// GP1 display state
	dispEnabled  bool
	dmaDirection uint32
	dispAreaX    uint32
	dispAreaY    uint32
	hRange       uint32
	vRange       uint32
	dispMode     uint32
	irqAck       bool

	// VBlank scanline counter
	dotCounter      uint32
	scanline        uint32
	vblankRequested bool
}

func New() *GPU {
	g := &GPU{}
	g.Reset()
	return g
}

func (g *GPU) Name() string { return "GPU" }

func (g *GPU) Reset() {
	for i := range g.vram {
		g.vram[i] = 0
	}
	g.state = WaitingForCommand
	g.params = g.params[:0]
	g.dispEnabled = false
	g.dotCounter = 0
	g.scanline = 0
	g.vblankRequested = false
}

// VRAM returns the raw 1MiB framebuffer, ABGR-1555 per pixel.
func (g *GPU) VRAM() []uint16 { return g.vram[:] }

// Tick advances the GPU's VBlank timer by cycles CPU cycles, using the
// 11/7 CPU-to-dot-clock ratio. It reports whether a VBlank IRQ should fire
// this call.
func (g *GPU) Tick(cpuCycles uint32) bool {
	dots := (cpuCycles * 11) / 7
	g.dotCounter += dots
	fired := false
	for g.dotCounter >= dotsPerScanline {
		g.dotCounter -= dotsPerScanline
		g.scanline++
		if g.scanline >= scanlinesPerFrame {
			g.scanline = 0
			fired = true
		}
	}
	return fired
}

// ---- GP0 (render commands) ----

// WriteGP0 feeds the GP0 port's state machine: the first word of an idle
// port is always a command; words after that feed either a fixed
// parameter count or a data-word rectangle, depending on the command.
func (g *GPU) WriteGP0(word uint32) {
	switch g.state {
	case WaitingForCommand:
		g.beginCommand(word)
	case ReceivingParameters:
		g.params = append(g.params, word)
		if len(g.params) >= g.paramsWant {
			g.dispatchCommand()
		}
	case ReceivingDataWords:
		g.feedDataWord(word)
	}
}

func (g *GPU) beginCommand(word uint32) {
	cmd := word >> 24
	g.pendingCmd = cmd
	g.lastCmdWord = word
	g.params = g.params[:0]

	switch {
	case cmd == 0x00: // NOP
	case cmd == 0x01: // clear cache
	case cmd == 0x02: // fill rectangle in VRAM
		g.paramsWant = 2
		g.state = ReceivingParameters
	case cmd == 0xE1: // draw mode setting
		g.texPageX = int(word&0xF) * 64
		g.texPageY = int((word>>4)&1) * 256
	case cmd == 0xE2: // texture window (not modeled further)
	case cmd == 0xE3: // drawing area top-left
		g.drawAreaX1 = int(word & 0x3FF)
		g.drawAreaY1 = int((word >> 10) & 0x1FF)
	case cmd == 0xE4: // drawing area bottom-right
		g.drawAreaX2 = int(word & 0x3FF)
		g.drawAreaY2 = int((word >> 10) & 0x1FF)
	case cmd == 0xE5: // drawing offset
		g.drawOffsetX = signExtend11(word & 0x7FF)
		g.drawOffsetY = signExtend11((word >> 11) & 0x7FF)
	case cmd == 0xE6: // mask bit setting
		g.maskSet = word&1 != 0
		g.maskCheck = word&2 != 0
	case cmd >= 0x20 && cmd <= 0x3F: // polygon draw
		g.paramsWant = polygonParamCount(cmd)
		g.state = ReceivingParameters
	case cmd >= 0x40 && cmd <= 0x5F: // line: one segment's parameters are consumed; no line is drawn
		g.paramsWant = lineParamCount(cmd)
		g.state = ReceivingParameters
	case cmd >= 0x60 && cmd <= 0x7F: // rectangle draw
		g.paramsWant = rectParamCount(cmd)
		g.state = ReceivingParameters
	case cmd == 0x80: // VRAM to VRAM copy
		g.paramsWant = 3
		g.state = ReceivingParameters
	case cmd == 0xA0: // CPU to VRAM copy
		g.paramsWant = 2
		g.state = ReceivingParameters
	case cmd == 0xC0: // VRAM to CPU copy
		g.paramsWant = 2
		g.state = ReceivingParameters
	default:
		logger.Log("gpu", errors.New(errors.UnknownGP0Command, cmd))
	}
}

func polygonParamCount(cmd uint32) int {
	quad := cmd&0x08 != 0
	textured := cmd&0x04 != 0
	shaded := cmd&0x10 != 0
	verts := 3
	if quad {
		verts = 4
	}
	per := 1 // XY
	if textured {
		per++ // UV/CLUT word
	}
	n := verts * per
	if shaded {
		n += verts - 1 // extra color words for vertices after the first
	}
	return n
}

func lineParamCount(cmd uint32) int {
	if cmd&0x10 != 0 { // shaded
		return 3
	}
	return 2
}

func rectParamCount(cmd uint32) int {
	n := 1 // XY
	size := (cmd >> 3) & 0x3
	if size == 0 {
		n++ // explicit width/height word
	}
	if cmd&0x04 != 0 {
		n++ // UV word
	}
	return n
}

func signExtend11(v uint32) int {
	if v&0x400 != 0 {
		return int(v) - 0x800
	}
	return int(v)
}

func (g *GPU) dispatchCommand() {
	cmd := g.pendingCmd
	switch {
	case cmd == 0x02:
		g.fillRectangle()
	case cmd >= 0x20 && cmd <= 0x3F:
		g.drawPolygon(cmd)
	case cmd >= 0x60 && cmd <= 0x7F:
		g.drawRectangle(cmd)
	case cmd == 0x80:
		g.copyVRAMToVRAM()
	case cmd == 0xA0:
		g.beginCPUToVRAM()
		return // stays in ReceivingDataWords, not WaitingForCommand
	case cmd == 0xC0:
		g.beginVRAMToCPU()
		return
	}
	g.state = WaitingForCommand
	g.params = g.params[:0]
}

// fillRectangle writes the command's RGB color, converted to 15-bit, into
// every pixel of the rectangle.
func (g *GPU) fillRectangle() {
	color := rgb24to15(g.pendingCmdColor())
	xy := g.params[0]
	wh := g.params[1]
	x0 := int(xy & 0x3F0)
	y0 := int((xy >> 16) & 0x1FF)
	w := int(wh&0x3FF) + 0xF
	w &^= 0xF
	h := int((wh >> 16) & 0x1FF)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g.setPixel(x0+x, y0+y, color)
		}
	}
}

// pendingCmdColor returns the 24-bit color packed into the low 24 bits of
// the command word, which beginCommand keeps in lastCmdWord.
func (g *GPU) pendingCmdColor() uint32 { return g.lastCmdWord & 0x00FFFFFF }

func rgb24to15(c uint32) uint16 {
	r := uint16(c&0xFF) >> 3
	gg := uint16((c>>8)&0xFF) >> 3
	b := uint16((c>>16)&0xFF) >> 3
	return r | gg<<5 | b<<10
}

func (g *GPU) setPixel(x, y int, color uint16) {
	if x < 0 || y < 0 || x >= vramWidth || y >= vramHeight {
		return
	}
	if g.maskCheck && g.vram[y*vramWidth+x]&0x8000 != 0 {
		return
	}
	if g.maskSet {
		color |= 0x8000
	}
	g.vram[y*vramWidth+x] = color
}

// drawPolygon rasterizes a flat-shaded triangle (or two, for a quad) using
// a barycentric edge test; quads are drawn as two triangles.
func (g *GPU) drawPolygon(cmd uint32) {
	quad := cmd&0x08 != 0
	textured := cmd&0x04 != 0
	shaded := cmd&0x10 != 0
	color := rgb24to15(g.pendingCmdColor())

	per := 1
	if textured {
		per++
	}
	stride := per
	if shaded {
		stride++
	}

	type vertex struct{ x, y int }
	verts := make([]vertex, 0, 4)
	idx := 0
	for v := 0; v < polyVertexCount(quad); v++ {
		if shaded && v > 0 {
			idx++ // skip the extra per-vertex color word for v>0
		}
		xy := g.params[idx]
		verts = append(verts, vertex{
			x: int(int16(xy & 0xFFFF)),
			y: int(int16(xy >> 16)),
		})
		idx += per
		_ = stride
	}

	g.fillTriangle(verts[0], verts[1], verts[2], color)
	if quad {
		g.fillTriangle(verts[1], verts[2], verts[3], color)
	}
}

func polyVertexCount(quad bool) int {
	if quad {
		return 4
	}
	return 3
}

func (g *GPU) fillTriangle(a, b, c struct{ x, y int }, color uint16) {
	minX, maxX := minOf3(a.x, b.x, c.x), maxOf3(a.x, b.x, c.x)
	minY, maxY := minOf3(a.y, b.y, c.y), maxOf3(a.y, b.y, c.y)

	area := edge(a, b, c)
	if area == 0 {
		return
	}
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			p := struct{ x, y int }{x, y}
			w0 := edge(b, c, p)
			w1 := edge(c, a, p)
			w2 := edge(a, b, p)
			if (w0 >= 0 && w1 >= 0 && w2 >= 0) || (w0 <= 0 && w1 <= 0 && w2 <= 0) {
				g.setPixel(g.drawOffsetX+x, g.drawOffsetY+y, color)
			}
		}
	}
}

func edge(a, b, p struct{ x, y int }) int {
	return (b.x-a.x)*(p.y-a.y) - (b.y-a.y)*(p.x-a.x)
}

func minOf3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

func maxOf3(a, b, c int) int {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

// drawRectangle draws untextured flat-color rectangles. Textured
// rectangles with a CLUT are not modeled.
func (g *GPU) drawRectangle(cmd uint32) {
	color := rgb24to15(g.pendingCmdColor())
	xy := g.params[0]
	x0 := g.drawOffsetX + int(int16(xy&0xFFFF))
	y0 := g.drawOffsetY + int(int16(xy>>16))

	size := (cmd >> 3) & 0x3
	var w, h int
	paramIdx := 1
	if cmd&0x04 != 0 {
		paramIdx++ // skip UV word
	}
	switch size {
	case 1:
		w, h = 1, 1
	case 2:
		w, h = 8, 8
	case 3:
		w, h = 16, 16
	default:
		if paramIdx < len(g.params) {
			wh := g.params[paramIdx]
			w = int(wh & 0x3FF)
			h = int((wh >> 16) & 0x1FF)
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g.setPixel(x0+x, y0+y, color)
		}
	}
}

func (g *GPU) copyVRAMToVRAM() {
	srcXY := g.params[0]
	dstXY := g.params[1]
	wh := g.params[2]
	sx, sy := int(srcXY&0x3FF), int((srcXY>>16)&0x1FF)
	dx, dy := int(dstXY&0x3FF), int((dstXY>>16)&0x1FF)
	w, h := int(wh&0x3FF), int((wh>>16)&0x1FF)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if sy+y < vramHeight && sx+x < vramWidth {
				g.setPixel(dx+x, dy+y, g.vram[(sy+y)*vramWidth+sx+x])
			}
		}
	}
}

func (g *GPU) beginCPUToVRAM() {
	xy := g.params[0]
	wh := g.params[1]
	g.xferX, g.xferY = int(xy&0x3FF), int((xy>>16)&0x1FF)
	g.xferW, g.xferH = int(wh&0x3FF), int((wh>>16)&0x1FF)
	g.xferRow, g.xferCol = 0, 0
	g.xferToVRAM = true
	g.state = ReceivingDataWords
}

func (g *GPU) beginVRAMToCPU() {
	xy := g.params[0]
	wh := g.params[1]
	g.xferX, g.xferY = int(xy&0x3FF), int((xy>>16)&0x1FF)
	g.xferW, g.xferH = int(wh&0x3FF), int((wh>>16)&0x1FF)
	g.xferRow, g.xferCol = 0, 0
	g.xferToVRAM = false
	g.state = WaitingForCommand // reads are pulled via ReadGP0, not pushed
}

func (g *GPU) feedDataWord(word uint32) {
	g.writePixelPair(uint16(word), uint16(word>>16))
	g.xferCol += 2
	if g.xferCol >= g.xferW {
		g.xferCol = 0
		g.xferRow++
		if g.xferRow >= g.xferH {
			g.state = WaitingForCommand
			g.params = g.params[:0]
		}
	}
}

func (g *GPU) writePixelPair(lo, hi uint16) {
	g.setPixelRaw(g.xferX+g.xferCol, g.xferY+g.xferRow, lo)
	g.setPixelRaw(g.xferX+g.xferCol+1, g.xferY+g.xferRow, hi)
}

func (g *GPU) setPixelRaw(x, y int, v uint16) {
	if x < 0 || y < 0 || x >= vramWidth || y >= vramHeight {
		return
	}
	g.vram[y*vramWidth+x] = v
}

// ReadGP0 pulls the next data word during a VRAM-to-CPU transfer.
func (g *GPU) ReadGP0() uint32 {
	if g.xferRow >= g.xferH {
		return 0
	}
	lo := g.pixelAt(g.xferX+g.xferCol, g.xferY+g.xferRow)
	hi := g.pixelAt(g.xferX+g.xferCol+1, g.xferY+g.xferRow)
	g.xferCol += 2
	if g.xferCol >= g.xferW {
		g.xferCol = 0
		g.xferRow++
	}
	return uint32(lo) | uint32(hi)<<16
}

func (g *GPU) pixelAt(x, y int) uint16 {
	if x < 0 || y < 0 || x >= vramWidth || y >= vramHeight {
		return 0
	}
	return g.vram[y*vramWidth+x]
}
