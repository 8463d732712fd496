// Package cop0 implements the System Control Coprocessor: SR, Cause, EPC,
// BadVaddr, PRID, and the 6-bit interrupt-enable/kernel-mode stack packed
// into SR's low bits, plus the exception-dispatch machinery built on them.
//
// Register layout and exception-code numbering are grounded on the MIPS32
// CP0 model in the retrieval pack (SchawnnDev-awesomeVM's internal/mips
// package), reduced to the subset this core actually uses: SR (12),
// Cause (13), EPC (14), BadVaddr (8), PRID (15).
package cop0

import "encoding/binary"

// Register slot indices.
const (
	RegBadVaddr = 8
	RegSR       = 12
	RegCause    = 13
	RegEPC      = 14
	RegPRID     = 15
)

// SR bit layout.
const (
	srIEcMask  = 0x3F     // the 6-bit interrupt-enable/kernel-mode stack
	srIEc      = 1 << 0   // current interrupt enable
	srIsolate  = 1 << 16  // cache isolation
	srBEV      = 1 << 22  // boot exception vectors
	srIMShift  = 8        // interrupt mask field start (IM0..IM7, bits 8-15)
	srIMMask   = 0xFF << 8
)

// Cause bit layout.
const (
	causeExcCodeShift = 2
	causeExcCodeMask  = 0x1F << causeExcCodeShift
	causeIPShift      = 8
	causeIP2          = 1 << (causeIPShift + 2) // bit 10: wired to the interrupt controller
	causeBD           = 1 << 31
)

// ExcCode values (subset actually raised by this core).
const (
	ExcInterrupt      = 0
	ExcAddressErrLoad = 4
	ExcAddressErrStor = 5
	ExcSyscall        = 8
	ExcBreakpoint     = 9
	ExcReservedInstr  = 10
	ExcCopUnusable    = 11
	ExcOverflow       = 12
)

// PRID is the fixed value of COP0 register 15.
const PRID = 0x00000002

// Vector addresses.
const (
	VectorBEV  = 0xBFC00180
	VectorNorm = 0x80000080
	VectorBrk  = 0x80000040
)

// COP0 holds the 16-slot register file; only the slots this core actually
// uses are backed by meaningful storage, the rest read/write as plain
// 32-bit scratch so MTC0/MFC0 never needs a special case.
type COP0 struct {
	regs [16]uint32
}

// New creates a COP0 with PRID pre-loaded and everything else zeroed, as if
// just reset.
func New() *COP0 {
	c := &COP0{}
	c.Reset()
	return c
}

func (c *COP0) Reset() {
	for i := range c.regs {
		c.regs[i] = 0
	}
	c.regs[RegPRID] = PRID
	c.regs[RegSR] = srBEV
}

// MFC0 reads a COP0 register.
func (c *COP0) MFC0(reg uint32) uint32 {
	return c.regs[reg&0x1F%16]
}

// MTC0 writes a COP0 register. PRID is read-only in real hardware; this core
// stores the write like any other slot, so a later MFC0 of PRID returns the
// written value.
func (c *COP0) MTC0(reg uint32, v uint32) {
	c.regs[reg&0x1F%16] = v
}

func (c *COP0) SR() uint32       { return c.regs[RegSR] }
func (c *COP0) SetSR(v uint32)   { c.regs[RegSR] = v }
func (c *COP0) Cause() uint32    { return c.regs[RegCause] }
func (c *COP0) SetCause(v uint32) { c.regs[RegCause] = v }
func (c *COP0) EPC() uint32      { return c.regs[RegEPC] }
func (c *COP0) BadVaddr() uint32 { return c.regs[RegBadVaddr] }

// InterruptsGloballyEnabled reports SR bit 0.
func (c *COP0) InterruptsGloballyEnabled() bool {
	return c.regs[RegSR]&srIEc != 0
}

// InterruptMasked reports whether Cause.IP2 survives masking against SR.IM.
func (c *COP0) InterruptMasked() bool {
	return c.regs[RegCause]&c.regs[RegSR]&srIMMask != 0
}

// CacheIsolated reports SR bit 16.
func (c *COP0) CacheIsolated() bool {
	return c.regs[RegSR]&srIsolate != 0
}

// BEV reports SR bit 22, selecting the exception vector base.
func (c *COP0) BEV() bool {
	return c.regs[RegSR]&srBEV != 0
}

// SetInterruptPending sets or clears Cause bit 10, the line wired to the
// interrupt controller.
func (c *COP0) SetInterruptPending(pending bool) {
	if pending {
		c.regs[RegCause] |= causeIP2
	} else {
		c.regs[RegCause] &^= causeIP2
	}
}

// EnterException implements the common exception handler: Cause gets
// (inBranchDelay<<31)|(excCode<<2); EPC gets pc, or pc-4 if the
// faulting instruction was itself in a branch delay slot; the 6-bit
// interrupt/mode stack is pushed two positions left; BadVaddr is written for
// address errors (badVaddr==nil otherwise); the vector address is returned
// for the CPU to redirect PC to.
func (c *COP0) EnterException(excCode uint32, pc uint32, inBranchDelay bool, badVaddr *uint32) uint32 {
	cause := (excCode << causeExcCodeShift) & causeExcCodeMask
	if inBranchDelay {
		cause |= causeBD
		c.regs[RegEPC] = pc - 4
	} else {
		c.regs[RegEPC] = pc
	}
	// preserve the pending-interrupt (IP) bits already latched
	cause |= c.regs[RegCause] & (0xFF << causeIPShift)
	c.regs[RegCause] = cause

	if badVaddr != nil {
		c.regs[RegBadVaddr] = *badVaddr
	}

	sr := c.regs[RegSR]
	stack := sr & srIEcMask
	sr &^= srIEcMask
	sr |= (stack << 2) & srIEcMask
	c.regs[RegSR] = sr

	switch {
	case excCode == ExcBreakpoint:
		return VectorBrk
	case c.BEV():
		return VectorBEV
	default:
		return VectorNorm
	}
}

// MarshalState serializes all 16 register slots, little-endian.
func (c *COP0) MarshalState() []byte {
	buf := make([]byte, len(c.regs)*4)
	for i, v := range c.regs {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}

// UnmarshalState restores all 16 register slots from a save-state block.
func (c *COP0) UnmarshalState(buf []byte) {
	for i := range c.regs {
		c.regs[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
}

// RFE pops the 6-bit interrupt/mode stack: SR[5:0] = SR[5:2]; SR[5:4]
// unchanged.
func (c *COP0) RFE() {
	sr := c.regs[RegSR]
	low := (sr & srIEcMask) >> 2
	sr &^= 0x0F // bits [3:0]
	sr |= low & 0x0F
	c.regs[RegSR] = sr
}
