package cop0_test

import (
	"testing"

	"github.com/rogestation/psxcore/cop0"
	"github.com/rogestation/psxcore/internal/testhelp"
)

// SYSCALL exception dispatch.
func TestSyscallException(t *testing.T) {
	c := cop0.New()
	c.SetSR(0x0000000A)

	const p = 0x80010000
	vector := c.EnterException(cop0.ExcSyscall, p, false, nil)

	testhelp.Equate(t, vector, uint32(cop0.VectorNorm))
	testhelp.Equate(t, c.EPC(), uint32(p))
	testhelp.Equate(t, (c.Cause()>>2)&0x1F, uint32(8))
	testhelp.Equate(t, c.Cause()&(1<<31) != 0, false)
	testhelp.Equate(t, c.SR()&0x3F, uint32(0x28))
}

func TestBranchDelayEPCAdjustment(t *testing.T) {
	c := cop0.New()
	c.EnterException(cop0.ExcOverflow, 0x1000, true, nil)
	testhelp.Equate(t, c.EPC(), uint32(0x0FFC))
	testhelp.Equate(t, c.Cause()&(1<<31) != 0, true)
}

func TestBEVSelectsVector(t *testing.T) {
	c := cop0.New()
	testhelp.Equate(t, c.BEV(), true) // reset state has BEV set
	v := c.EnterException(cop0.ExcSyscall, 0x100, false, nil)
	testhelp.Equate(t, v, uint32(cop0.VectorBEV))
}

func TestRFEPopsStack(t *testing.T) {
	c := cop0.New()
	c.SetSR(0b111111)
	c.RFE()
	testhelp.Equate(t, c.SR()&0x3F, uint32(0b111111)) // bits 3:0 take bits 5:2; bits 5:4 are left as they were
}

func TestAddressErrorWritesBadVaddr(t *testing.T) {
	c := cop0.New()
	bv := uint32(0xDEAD0000)
	c.EnterException(cop0.ExcAddressErrLoad, 0x2000, false, &bv)
	testhelp.Equate(t, c.BadVaddr(), bv)
}
