package gte_test

import (
	"testing"

	"github.com/rogestation/psxcore/gte"
	"github.com/rogestation/psxcore/internal/testhelp"
)

func TestDataRegisterRoundTrip(t *testing.T) {
	g := gte.New()
	g.WriteData(gte.DataIR1, 0x1234)
	testhelp.Equate(t, g.ReadData(gte.DataIR1), uint32(0x1234))
}

func TestRGBCPushesColorFIFO(t *testing.T) {
	g := gte.New()
	g.WriteData(gte.DataRGBC, 0x04030201)
	fifo := g.ColorFIFO()
	testhelp.Equate(t, fifo[2], gte.RGB{R: 1, G: 2, B: 3, Code: 4})
}

func TestIdentityRotationPassesThroughTranslation(t *testing.T) {
	g := gte.New()
	g.WriteCtrl(gte.CtrlRT11RT12, 1<<12) // RT11 = 1.0 in 4.12 fixed point
	g.WriteCtrl(gte.CtrlRT22RT23, 1<<12) // RT22 = 1.0
	g.WriteCtrl(gte.CtrlRT33, 1<<12)     // RT33 = 1.0
	g.WriteCtrl(gte.CtrlTRZ, 512)
	g.WriteCtrl(gte.CtrlH, 256)

	_, _, sz := g.RTPS(0, 0, 0)
	testhelp.Equate(t, sz, uint16(512))
}
