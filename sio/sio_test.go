package sio_test

import (
	"testing"

	"github.com/rogestation/psxcore/internal/testhelp"
	"github.com/rogestation/psxcore/sio"
)

func TestPadReplySequence(t *testing.T) {
	pad := sio.NewPad()
	pad.Buttons = 0x0001 // Select pressed
	c := sio.New(pad)

	testhelp.ExpectSuccess(t, c.Write32(0x8, 1<<1)) // select the pad
	testhelp.ExpectSuccess(t, c.Write32(0x0, 0x01)) // first shift: HighZ -> IDLo
	v, _ := c.Read32(0x0)
	testhelp.Equate(t, v, uint32(0xFF))

	testhelp.ExpectSuccess(t, c.Write32(0x0, 0x42))
	v, _ = c.Read32(0x0)
	testhelp.Equate(t, v, uint32(0x41))

	testhelp.ExpectSuccess(t, c.Write32(0x0, 0x00))
	v, _ = c.Read32(0x0)
	testhelp.Equate(t, v, uint32(0x5A))
}

func TestDisconnectedPadRepliesAllOnes(t *testing.T) {
	pad := sio.NewPad()
	pad.SetConnected(false)
	c := sio.New(pad)
	testhelp.ExpectSuccess(t, c.Write32(0x8, 1<<1))
	testhelp.ExpectSuccess(t, c.Write32(0x0, 0x01))

	v, _ := c.Read32(0x0)
	testhelp.Equate(t, v, uint32(0xFF))
}

func TestACKTimerRaisesAfterDelay(t *testing.T) {
	pad := sio.NewPad()
	c := sio.New(pad)
	testhelp.ExpectSuccess(t, c.Write32(0x8, 1<<1))
	testhelp.ExpectSuccess(t, c.Write32(0x0, 0x01))

	testhelp.Equate(t, c.Tick(50), false)
	testhelp.Equate(t, c.Tick(60), true)
}
