package irq_test

import (
	"testing"

	"github.com/rogestation/psxcore/internal/testhelp"
	"github.com/rogestation/psxcore/irq"
)

func TestTriggerAndMask(t *testing.T) {
	c := irq.New()
	testhelp.Equate(t, c.Pending(), false)

	c.Trigger(irq.VBLANK)
	testhelp.Equate(t, c.ISTAT(), uint16(1))
	testhelp.Equate(t, c.Pending(), false) // masked off by default

	testhelp.ExpectSuccess(t, c.Write16(0x4, 1<<uint(irq.VBLANK)))
	testhelp.Equate(t, c.Pending(), true)
}

func TestAcknowledgeClearsOnlyWrittenBits(t *testing.T) {
	c := irq.New()
	c.Trigger(irq.VBLANK)
	c.Trigger(irq.GPU)
	testhelp.Equate(t, c.ISTAT(), uint16(0b11))

	// acknowledge only VBLANK: ISTAT &= written
	testhelp.ExpectSuccess(t, c.Write16(0x0, ^uint16(1)))
	testhelp.Equate(t, c.ISTAT(), uint16(0b10))
}

func TestByteAccess(t *testing.T) {
	c := irq.New()
	testhelp.ExpectSuccess(t, c.Write8(0x4, 0xFF))
	testhelp.Equate(t, c.IMASK(), uint16(0x00FF))
	testhelp.ExpectSuccess(t, c.Write8(0x5, 0xFF))
	testhelp.Equate(t, c.IMASK(), uint16(0xFFFF))
}
