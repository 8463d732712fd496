// Package gte implements the Geometry Transformation Engine (COP2): 32
// control registers, 32 data registers, fixed-point rotation/light/color
// matrices, translation vectors, offset registers, a FLAG register, and a
// 3-entry RGB color FIFO.
//
// Grounded on the teacher's registers package (small fixed-width register
// file types with named accessors) generalized from 8-bit CPU registers to
// the GTE's 32-bit fixed-point data/control file.
package gte

import "encoding/binary"

// Data register indices actually modeled. The fixed-point matrix math
// itself isn't bit-exact against real hardware; what matters is the
// register state and the shape of the pipeline, not an exhaustive table of
// every GTE command.
const (
	DataVXY0 = 0
	DataVZ0  = 1
	DataVXY1 = 2
	DataVZ1  = 3
	DataVXY2 = 4
	DataVZ2  = 5
	DataRGBC = 6
	DataOTZ  = 7
	DataIR0  = 8
	DataIR1  = 9
	DataIR2  = 10
	DataIR3  = 11
	DataSXY0 = 12
	DataSXY1 = 13
	DataSXY2 = 14
	DataSXYP = 15
	DataSZ0  = 16
	DataSZ1  = 17
	DataSZ2  = 18
	DataSZ3  = 19
	DataRGB0 = 20
	DataRGB1 = 21
	DataRGB2 = 22
	DataMAC0 = 24
	DataMAC1 = 25
	DataMAC2 = 26
	DataMAC3 = 27
	DataLZCS = 30
	DataLZCR = 31
)

// Control register indices: rotation/light/color matrices, translation
// vectors, and offset registers (OFX, OFY, H).
const (
	CtrlRT11RT12 = 0
	CtrlRT13RT21 = 1
	CtrlRT22RT23 = 2
	CtrlRT31RT32 = 3
	CtrlRT33     = 4
	CtrlTRX      = 5
	CtrlTRY      = 6
	CtrlTRZ      = 7
	CtrlL11L12   = 8
	CtrlL13L21   = 9
	CtrlL22L23   = 10
	CtrlL31L32   = 11
	CtrlL33      = 12
	CtrlRBK      = 13
	CtrlGBK      = 14
	CtrlBBK      = 15
	CtrlLR1LR2   = 16
	CtrlLR3LG1   = 17
	CtrlLG2LG3   = 18
	CtrlLB1LB2   = 19
	CtrlLB3      = 20
	CtrlRFC      = 21
	CtrlGFC      = 22
	CtrlBFC      = 23
	CtrlOFX      = 24
	CtrlOFY      = 25
	CtrlH        = 26
	CtrlDQA      = 27
	CtrlDQB      = 28
	CtrlZSF3     = 29
	CtrlZSF4     = 30
	CtrlFlag     = 31
)

// FLAG register bits: accumulating overflow/underflow/saturation flags.
const (
	FlagIR0Sat = 1 << 12
	FlagSY2Sat = 1 << 13
	FlagSX2Sat = 1 << 14
	FlagMAC0Overflow = 1 << 15
	FlagDivOverflow  = 1 << 17
	FlagIR3Sat       = 1 << 22
	FlagIR2Sat       = 1 << 23
	FlagIR1Sat       = 1 << 24
	FlagMAC3Overflow = 1 << 25
	FlagMAC2Overflow = 1 << 26
	FlagMAC1Overflow = 1 << 27
	FlagError        = 1 << 31
)

// RGB is one entry of the 3-slot color FIFO.
type RGB struct {
	R, G, B, Code uint8
}

// GTE is the COP2 state and fixed-point pipeline.
type GTE struct {
	data [32]uint32
	ctrl [32]uint32

	// rotation/light/color matrices, stored here as signed 16-bit entries in
	// addition to the packed control-register pairs, for readable matrix
	// math without repeated unpacking.
	rotation [3][3]int16
	light    [3][3]int16
	color    [3][3]int16

	colorFIFO [3]RGB
}

// New creates a GTE in its post-reset state (all registers zero).
func New() *GTE {
	return &GTE{}
}

func (g *GTE) Reset() {
	for i := range g.data {
		g.data[i] = 0
	}
	for i := range g.ctrl {
		g.ctrl[i] = 0
	}
	g.rotation = [3][3]int16{}
	g.light = [3][3]int16{}
	g.color = [3][3]int16{}
	g.colorFIFO = [3]RGB{}
}

// ReadData implements MFC2.
func (g *GTE) ReadData(reg uint32) uint32 { return g.data[reg&0x1F] }

// WriteData implements MTC2.
func (g *GTE) WriteData(reg uint32, v uint32) {
	g.data[reg&0x1F] = v
	if reg&0x1F == DataRGBC {
		g.pushColorFIFO(RGB{R: uint8(v), G: uint8(v >> 8), B: uint8(v >> 16), Code: uint8(v >> 24)})
	}
}

// ReadCtrl implements CFC2.
func (g *GTE) ReadCtrl(reg uint32) uint32 { return g.ctrl[reg&0x1F] }

// WriteCtrl implements CTC2, keeping the unpacked matrix view in sync with
// the packed control-register pairs it backs.
func (g *GTE) WriteCtrl(reg uint32, v uint32) {
	g.ctrl[reg&0x1F] = v
	g.syncMatrixFromCtrl(reg & 0x1F)
}

func (g *GTE) syncMatrixFromCtrl(reg uint32) {
	unpack := func(v uint32) (int16, int16) {
		return int16(uint16(v)), int16(uint16(v >> 16))
	}
	switch reg {
	case CtrlRT11RT12:
		g.rotation[0][0], g.rotation[0][1] = unpack(g.ctrl[reg])
	case CtrlRT13RT21:
		g.rotation[0][2], g.rotation[1][0] = unpack(g.ctrl[reg])
	case CtrlRT22RT23:
		g.rotation[1][1], g.rotation[1][2] = unpack(g.ctrl[reg])
	case CtrlRT31RT32:
		g.rotation[2][0], g.rotation[2][1] = unpack(g.ctrl[reg])
	case CtrlRT33:
		g.rotation[2][2] = int16(uint16(g.ctrl[reg]))
	case CtrlL11L12:
		g.light[0][0], g.light[0][1] = unpack(g.ctrl[reg])
	case CtrlL13L21:
		g.light[0][2], g.light[1][0] = unpack(g.ctrl[reg])
	case CtrlL22L23:
		g.light[1][1], g.light[1][2] = unpack(g.ctrl[reg])
	case CtrlL31L32:
		g.light[2][0], g.light[2][1] = unpack(g.ctrl[reg])
	case CtrlL33:
		g.light[2][2] = int16(uint16(g.ctrl[reg]))
	}
}

func (g *GTE) pushColorFIFO(c RGB) {
	g.colorFIFO[0] = g.colorFIFO[1]
	g.colorFIFO[1] = g.colorFIFO[2]
	g.colorFIFO[2] = c
}

// ColorFIFO returns the 3 most recently pushed colors, oldest first.
func (g *GTE) ColorFIFO() [3]RGB { return g.colorFIFO }

// RotationMatrix returns the unpacked 3x3 rotation matrix.
func (g *GTE) RotationMatrix() [3][3]int16 { return g.rotation }

// Translation returns the (TRX, TRY, TRZ) translation vector.
func (g *GTE) Translation() (int32, int32, int32) {
	return int32(g.ctrl[CtrlTRX]), int32(g.ctrl[CtrlTRY]), int32(g.ctrl[CtrlTRZ])
}

// Offset returns (OFX, OFY, H), the screen-space offset and projection
// plane distance.
func (g *GTE) Offset() (int32, int32, uint16) {
	return int32(g.ctrl[CtrlOFX]), int32(g.ctrl[CtrlOFY]), uint16(g.ctrl[CtrlH])
}

// Flag returns the current FLAG register (ctrl register 31).
func (g *GTE) Flag() uint32 { return g.ctrl[CtrlFlag] }

func (g *GTE) setFlag(bits uint32) {
	g.ctrl[CtrlFlag] |= bits
	// bit 31 summarizes bits 30..23 and 18..13 (any error set)
	if g.ctrl[CtrlFlag]&0x7F87E000 != 0 {
		g.ctrl[CtrlFlag] |= FlagError
	}
}

// clampIR saturates a value to the signed 16-bit range used by the IR
// registers, reporting saturation so the caller can set the FLAG bit.
func clampIR(v int32) (int16, bool) {
	if v > 0x7FFF {
		return 0x7FFF, true
	}
	if v < -0x8000 {
		return -0x8000, true
	}
	return int16(v), false
}

// MarshalState serializes the 32 data and 32 control registers.
func (g *GTE) MarshalState() []byte {
	buf := make([]byte, 256)
	for i, v := range g.data {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	for i, v := range g.ctrl {
		binary.LittleEndian.PutUint32(buf[128+i*4:], v)
	}
	return buf
}

// UnmarshalState restores the data/control register files and re-derives
// the unpacked matrix view from the restored control registers.
func (g *GTE) UnmarshalState(buf []byte) {
	for i := range g.data {
		g.data[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	for i := range g.ctrl {
		g.ctrl[i] = binary.LittleEndian.Uint32(buf[128+i*4:])
		g.syncMatrixFromCtrl(uint32(i))
	}
}

// RTPS performs the simplified perspective transformation of a single vertex
// (vx, vy, vz): rotate by the rotation matrix, add the translation vector,
// and project through (OFX, OFY, H). This is a faithful-enough model of the
// GTE's most common opcode for the purpose of driving GPU vertex commands;
// it is not bit-exact hardware divider behavior.
func (g *GTE) RTPS(vx, vy, vz int16) (sx, sy int16, sz uint16) {
	rm := g.rotation
	trx, try, trz := g.Translation()

	mx := int64(rm[0][0])*int64(vx) + int64(rm[0][1])*int64(vy) + int64(rm[0][2])*int64(vz)
	my := int64(rm[1][0])*int64(vx) + int64(rm[1][1])*int64(vy) + int64(rm[1][2])*int64(vz)
	mz := int64(rm[2][0])*int64(vx) + int64(rm[2][1])*int64(vy) + int64(rm[2][2])*int64(vz)

	x := int64(trx) + mx>>12
	y := int64(try) + my>>12
	z := int64(trz) + mz>>12

	if z <= 0 {
		z = 1
	}

	ofx, ofy, h := g.Offset()
	px := (int64(h)*x)/z + int64(ofx)
	py := (int64(h)*y)/z + int64(ofy)

	ix, satX := clampIR(int32(px))
	iy, satY := clampIR(int32(py))
	if satX {
		g.setFlag(FlagSX2Sat)
	}
	if satY {
		g.setFlag(FlagSY2Sat)
	}

	szClamped := z
	if szClamped > 0xFFFF {
		szClamped = 0xFFFF
		g.setFlag(FlagDivOverflow)
	}

	g.data[DataSXY0] = g.data[DataSXY1]
	g.data[DataSXY1] = g.data[DataSXY2]
	g.data[DataSXY2] = uint32(uint16(ix)) | uint32(uint16(iy))<<16
	g.data[DataSXYP] = g.data[DataSXY2]

	g.data[DataSZ0] = g.data[DataSZ1]
	g.data[DataSZ1] = g.data[DataSZ2]
	g.data[DataSZ2] = uint32(szClamped)
	g.data[DataSZ3] = g.data[DataSZ2]

	return ix, iy, uint16(szClamped)
}
