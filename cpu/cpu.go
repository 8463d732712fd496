// Package cpu implements the MIPS R3000A-class interpreter: fetch/decode/
// execute, the two-slot load-delay pipeline, the branch-delay flag, and
// the exception dispatch that ties into COP0.
//
// Grounded on the teacher's hardware/cpu package: a CPU type holding
// named registers plus a small piece of non-architectural bookkeeping
// (LastResult in the teacher, the load/branch-delay bookkeeping here),
// driven one instruction at a time by a Step-shaped method, talking to
// memory only through a narrow bus interface so the CPU never needs to
// know what's mapped where.
package cpu

import (
	"encoding/binary"

	"github.com/rogestation/psxcore/bus"
	"github.com/rogestation/psxcore/cop0"
	"github.com/rogestation/psxcore/gte"
)

// Bus is the narrow memory contract the CPU needs.
type Bus interface {
	Load(vaddr uint32, width bus.Width) (uint32, error)
	Store(vaddr uint32, width bus.Width, v uint32) error
}

// InterruptSource reports whether the interrupt controller currently has an
// unmasked interrupt pending; the CPU polls this between instructions.
type InterruptSource interface {
	Pending() bool
}

// TTYSink receives a line of flushed TTY output.
type TTYSink func(string)

type loadSlot struct {
	reg int32 // -1 means empty
	val uint32
}

// CPU is the MIPS interpreter core.
type CPU struct {
	gpr [32]uint32
	pc  uint32
	hi  uint32
	lo  uint32

	cop0 *cop0.COP0
	gte  *gte.GTE

	mem Bus
	irq InterruptSource

	// two-slot load-delay pipeline
	pipeline [2]loadSlot

	// "next is branch delay" flag plus its saved target
	branchPending bool
	branchTarget  uint32

	// deferred JR/JALR-to-unaligned-target fault: armed at the branch's own
	// dispatch, raised at the fetch that follows the delay slot.
	armedMisalignedJump    bool
	armedMisalignedBadVAddr uint32
	armedMisalignedEPC      uint32

	// TTY hook state
	ttyBuf  []byte
	ttySink TTYSink
}

// New creates a CPU wired to mem for memory access and irq for interrupt
// polling. PC starts at the BIOS reset vector.
func New(mem Bus, c0 *cop0.COP0, g *gte.GTE, irqSrc InterruptSource) *CPU {
	c := &CPU{
		mem:  mem,
		cop0: c0,
		gte:  g,
		irq:  irqSrc,
	}
	c.Reset()
	return c
}

// resetVector is the BIOS entry point in KSEG1 (uncached).
const resetVector = 0xBFC00000

func (c *CPU) Reset() {
	for i := range c.gpr {
		c.gpr[i] = 0
	}
	c.pc = resetVector
	c.hi, c.lo = 0, 0
	c.pipeline[0] = loadSlot{reg: -1}
	c.pipeline[1] = loadSlot{reg: -1}
	c.branchPending = false
	c.branchTarget = 0
	c.armedMisalignedJump = false
	c.ttyBuf = nil
	c.cop0.Reset()
	c.gte.Reset()
}

// SetTTYSink installs the callback invoked whenever the TTY hook flushes.
func (c *CPU) SetTTYSink(sink TTYSink) { c.ttySink = sink }

// PC returns the program counter of the instruction about to be fetched.
func (c *CPU) PC() uint32 { return c.pc }

// GPR returns the architectural value of general-purpose register reg.
// Register 0 always reads 0.
func (c *CPU) GPR(reg uint32) uint32 {
	if reg == 0 {
		return 0
	}
	return c.gpr[reg]
}

func (c *CPU) setGPR(reg uint32, v uint32) {
	if reg == 0 {
		return
	}
	c.gpr[reg] = v
}

func (c *CPU) HI() uint32 { return c.hi }
func (c *CPU) LO() uint32 { return c.lo }

// SetPC forcibly redirects the program counter, used by the loader to jump
// to a PSX-EXE entry point.
func (c *CPU) SetPC(pc uint32) {
	c.pc = pc
	c.branchPending = false
	c.armedMisalignedJump = false
}

// SetGPRForLoad sets a GPR directly, bypassing the load-delay pipeline. Used
// by the loader to prime GP/SP/FP from a PSX-EXE header.
func (c *CPU) SetGPRForLoad(reg uint32, v uint32) { c.setGPR(reg, v) }

// issueLoad records a pending load in the pipeline instead of writing the
// GPR directly. reg==0 is a legal but inert load.
func (c *CPU) issueLoad(reg uint32, val uint32) {
	if reg == 0 {
		return
	}
	if c.pipeline[0].reg == int32(reg) {
		c.pipeline[0].reg = -1 // superseded, cancel the earlier pending value
	}
	c.pipeline[1] = loadSlot{reg: int32(reg), val: val}
}

// bypassGPR returns the value LWL/LWR must merge against: the pipeline's
// most recently issued but not-yet-committed load for reg, if any, else the
// plain architectural value. This lets a concurrent LWL+LWR pair observe
// the partial-result merge via the load-delay pipeline instead of the
// already-committed register.
func (c *CPU) bypassGPR(reg uint32) uint32 {
	if c.pipeline[0].reg == int32(reg) {
		return c.pipeline[0].val
	}
	return c.GPR(reg)
}

// retirePipeline commits the load-delay pipeline one step: slot 0 commits,
// slot 1 moves into slot 0.
func (c *CPU) retirePipeline() {
	if c.pipeline[0].reg >= 0 {
		c.setGPR(uint32(c.pipeline[0].reg), c.pipeline[0].val)
	}
	c.pipeline[0] = c.pipeline[1]
	c.pipeline[1] = loadSlot{reg: -1}
}

// exceptionSignal is returned by opcode handlers that detect an
// architectural fault mid-dispatch (Overflow, address errors, Syscall,
// Breakpoint, RI). It is picked up by Step after dispatch returns.
type exceptionSignal struct {
	code     uint32
	badVaddr *uint32
	hasVaddr bool
}

func (c *CPU) newException(code uint32) exceptionSignal {
	return exceptionSignal{code: code}
}

func (c *CPU) newAddressException(code uint32, badVaddr uint32) exceptionSignal {
	return exceptionSignal{code: code, badVaddr: &badVaddr, hasVaddr: true}
}

// MarshalState serializes the GPR file, PC, HI/LO and the load-delay
// pipeline.
func (c *CPU) MarshalState() []byte {
	buf := make([]byte, 32*4+4+4+4+2*8)
	for i, v := range c.gpr {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	off := 32 * 4
	binary.LittleEndian.PutUint32(buf[off:], c.pc)
	binary.LittleEndian.PutUint32(buf[off+4:], c.hi)
	binary.LittleEndian.PutUint32(buf[off+8:], c.lo)
	off += 12
	for i, slot := range c.pipeline {
		binary.LittleEndian.PutUint32(buf[off+i*8:], uint32(slot.reg))
		binary.LittleEndian.PutUint32(buf[off+i*8+4:], slot.val)
	}
	return buf
}

func (c *CPU) UnmarshalState(buf []byte) {
	for i := range c.gpr {
		c.gpr[i] = binary.LittleEndian.Uint32(buf[i*4:])
	}
	off := 32 * 4
	c.pc = binary.LittleEndian.Uint32(buf[off:])
	c.hi = binary.LittleEndian.Uint32(buf[off+4:])
	c.lo = binary.LittleEndian.Uint32(buf[off+8:])
	off += 12
	for i := range c.pipeline {
		c.pipeline[i].reg = int32(binary.LittleEndian.Uint32(buf[off+i*8:]))
		c.pipeline[i].val = binary.LittleEndian.Uint32(buf[off+i*8+4:])
	}
}

// Step executes exactly one instruction: armed fault check, interrupt
// check, fetch, decode, dispatch, pipeline retire, then PC update. It
// never returns a Go error for guest-level faults -- those are modeled as
// COP0/PC state changes, not propagated failures.
func (c *CPU) Step() {
	instrAddr := c.pc

	inDelaySlot := c.branchPending
	var successor uint32
	if inDelaySlot {
		successor = c.branchTarget
	} else {
		successor = instrAddr + 4
	}
	c.branchPending = false

	// (d) deferred unaligned-jump fault, armed by a JR/JALR and raised once
	// its delay slot has executed
	if c.armedMisalignedJump && !inDelaySlot {
		c.armedMisalignedJump = false
		vector := c.cop0.EnterException(cop0.ExcAddressErrLoad, c.armedMisalignedEPC, false, &c.armedMisalignedBadVAddr)
		c.retirePipeline()
		c.pc = vector
		return
	}

	// (e) pending, unmasked interrupt
	if c.irq != nil {
		c.cop0.SetInterruptPending(c.irq.Pending())
	}
	if c.cop0.InterruptsGloballyEnabled() && c.cop0.InterruptMasked() {
		vector := c.cop0.EnterException(cop0.ExcInterrupt, instrAddr, inDelaySlot, nil)
		c.retirePipeline()
		c.pc = vector
		return
	}

	// (a)/(b) fetch and decode
	raw, err := c.mem.Load(instrAddr, bus.Word)
	if err != nil {
		badVaddr := instrAddr
		vector := c.cop0.EnterException(cop0.ExcAddressErrLoad, instrAddr, inDelaySlot, &badVaddr)
		c.retirePipeline()
		c.pc = vector
		return
	}

	c.checkTTYHook(instrAddr & 0x1FFFFFFF)

	// (f) dispatch
	exc, excOK := c.execute(raw, instrAddr, inDelaySlot)

	// (g) retire load-delay pipeline
	c.retirePipeline()

	// (h) update PC, possibly overridden by an exception raised during dispatch
	if excOK {
		var bv *uint32
		if exc.hasVaddr {
			bv = exc.badVaddr
		}
		successor = c.cop0.EnterException(exc.code, instrAddr, inDelaySlot, bv)
	}
	c.pc = successor
}
