package cpu_test

import (
	"testing"

	"github.com/rogestation/psxcore/bus"
	"github.com/rogestation/psxcore/cop0"
	"github.com/rogestation/psxcore/cpu"
	"github.com/rogestation/psxcore/gte"
	"github.com/rogestation/psxcore/internal/testhelp"
	"github.com/rogestation/psxcore/memory"
)

type noInterrupts struct{}

func (noInterrupts) Pending() bool { return false }

// newTestCPU wires a CPU against a plain RAM-backed bus at address 0, so
// tests can place instructions at small, readable addresses.
func newTestCPU(t *testing.T) (*cpu.CPU, *memory.RAM) {
	t.Helper()
	router := bus.NewRouter()
	ram := memory.NewRAM()
	router.Register(0, 2*1024*1024, ram)
	c := cpu.New(router, cop0.New(), gte.New(), noInterrupts{})
	c.SetPC(0)
	return c, ram
}

func store32(t *testing.T, ram *memory.RAM, addr uint32, v uint32) {
	t.Helper()
	testhelp.ExpectSuccess(t, ram.Write32(addr, v))
}

func encodeI(op, rs, rt uint32, imm uint16) uint32 {
	return op<<26 | rs<<21 | rt<<16 | uint32(imm)
}

func encodeR(rs, rt, rd, shamt, funct uint32) uint32 {
	return rs<<21 | rt<<16 | rd<<11 | shamt<<6 | funct
}

// LUI+ORI builds an arbitrary 32-bit constant.
func TestLuiOriBuildsConstant(t *testing.T) {
	c, ram := newTestCPU(t)
	store32(t, ram, 0, encodeI(0x0F, 0, 8, 0x1234)) // LUI $8, 0x1234
	store32(t, ram, 4, encodeI(0x0D, 8, 8, 0x5678)) // ORI $8, $8, 0x5678

	c.Step()
	c.Step()

	testhelp.Equate(t, c.GPR(8), uint32(0x12345678))
}

// A load's result is not visible to the very next instruction, only to the
// one after.
func TestLoadDelaySlot(t *testing.T) {
	c, ram := newTestCPU(t)
	store32(t, ram, 0x100, 0xDEADBEEF)
	testhelp.ExpectSuccess(t, ram.Write32(36, 0x11111111)) // unrelated RAM word; $9 itself starts at 0

	store32(t, ram, 0, encodeI(0x23, 0, 9, 0x100)) // LW $9, 0x100($0)
	store32(t, ram, 4, encodeI(0x0D, 9, 10, 0))    // ORI $10, $9, 0
	store32(t, ram, 8, encodeI(0x0D, 9, 11, 0))    // ORI $11, $9, 0 (next, sees new value)

	c.Step() // LW issues into the pipeline
	c.Step() // ORI $10 reads stale $9 (0), LW's value retires at the end of this step
	testhelp.Equate(t, c.GPR(10), uint32(0))
	testhelp.Equate(t, c.GPR(9), uint32(0xDEADBEEF))

	c.Step() // ORI $11 now sees the retired value
	testhelp.Equate(t, c.GPR(11), uint32(0xDEADBEEF))
}

// The branch-delay slot always executes, and the branch target takes
// effect only after it does.
func TestBranchDelaySlotExecutes(t *testing.T) {
	c, ram := newTestCPU(t)
	// BEQ $0, $0, +0x20 (branch always taken)
	store32(t, ram, 0, encodeI(0x04, 0, 0, 0x0020))
	// delay slot: ORI $9, $0, 0x1234
	store32(t, ram, 4, encodeI(0x0D, 0, 9, 0x1234))

	c.Step() // BEQ
	c.Step() // delay slot ORI executes unconditionally

	testhelp.Equate(t, c.GPR(9), uint32(0x1234))
	testhelp.Equate(t, c.PC(), uint32(0+4+0x20*4)) // BEQ at 0: target is its PC + 4 + offset*4
}

func TestRegisterZeroAlwaysReadsZero(t *testing.T) {
	c, ram := newTestCPU(t)
	store32(t, ram, 0, encodeI(0x0D, 0, 0, 0xFFFF)) // ORI $0, $0, 0xFFFF
	c.Step()
	testhelp.Equate(t, c.GPR(0), uint32(0))
}

func TestShiftAmountMasksTo5Bits(t *testing.T) {
	c, ram := newTestCPU(t)
	store32(t, ram, 0, encodeI(0x0F, 0, 9, 1))             // LUI $9, 1 -> $9 = 0x00010000
	store32(t, ram, 4, encodeI(0x0D, 0, 8, 0x21))           // ORI $8, $0, 0x21 -> shift amount 0x21 masks to 1
	store32(t, ram, 8, encodeR(8, 9, 10, 0, 0x04))          // SLLV $10, $9, $8 (rs=$8 holds the shift amount)
	c.Step()
	c.Step()
	c.Step()
	testhelp.Equate(t, c.GPR(10), uint32(0x00020000))
}

func TestDivByZeroDoesNotTrap(t *testing.T) {
	c, ram := newTestCPU(t)
	store32(t, ram, 0, encodeI(0x0D, 0, 4, 5)) // ORI $4, $0, 5
	store32(t, ram, 4, encodeI(0x0D, 0, 5, 0)) // ORI $5, $0, 0
	store32(t, ram, 8, encodeR(4, 5, 0, 0, 0x1A)) // DIV $4, $5

	c.Step()
	c.Step()
	c.Step()

	testhelp.Equate(t, c.LO(), uint32(0xFFFFFFFF))
	testhelp.Equate(t, c.HI(), uint32(5))
}

func TestAddiTrapsOnOverflow(t *testing.T) {
	c, ram := newTestCPU(t)
	store32(t, ram, 0, encodeI(0x0F, 0, 8, 0x7FFF)) // LUI $8, 0x7FFF
	store32(t, ram, 4, encodeI(0x0D, 8, 8, 0xFFFF)) // ORI $8, $8, 0xFFFF -> 0x7FFFFFFF
	store32(t, ram, 8, encodeI(0x08, 8, 9, 1))      // ADDI $9, $8, 1 -> overflow

	c.Step()
	c.Step()
	preOverflowPC := c.PC()
	c.Step()

	testhelp.Equate(t, c.GPR(9), uint32(0))
	testhelp.ExpectInequality(t, c.PC(), preOverflowPC+4)
}
