package cpu

import (
	"github.com/rogestation/psxcore/bus"
	"github.com/rogestation/psxcore/cop0"
	"github.com/rogestation/psxcore/errors"
	"github.com/rogestation/psxcore/logger"
)

// field extractors for the three MIPS instruction encodings (R/I/J).
func opField(instr uint32) uint32    { return instr >> 26 }
func rsField(instr uint32) uint32    { return (instr >> 21) & 0x1F }
func rtField(instr uint32) uint32    { return (instr >> 16) & 0x1F }
func rdField(instr uint32) uint32    { return (instr >> 11) & 0x1F }
func shamtField(instr uint32) uint32 { return (instr >> 6) & 0x1F }
func functField(instr uint32) uint32 { return instr & 0x3F }
func imm16Field(instr uint32) uint32 { return instr & 0xFFFF }
func simm16Field(instr uint32) int32 { return int32(int16(instr & 0xFFFF)) }
func target26Field(instr uint32) uint32 { return instr & 0x03FFFFFF }

// execute dispatches a single decoded instruction. It returns (signal, true)
// when the instruction raised an architectural exception; the caller (Step)
// is responsible for feeding that into cop0.EnterException.
func (c *CPU) execute(instr uint32, pc uint32, inDelaySlot bool) (exceptionSignal, bool) {
	op := opField(instr)
	rs := rsField(instr)
	rt := rtField(instr)

	switch op {
	case 0x00: // SPECIAL
		return c.executeSpecial(instr, pc)
	case 0x01: // BCONDZ: BLTZ/BGEZ/BLTZAL/BGEZAL
		return c.executeBCondZ(instr, pc)
	case 0x02: // J
		target := (pc & 0xF0000000) | (target26Field(instr) << 2)
		c.takeBranch(target)
		return exceptionSignal{}, false
	case 0x03: // JAL
		target := (pc & 0xF0000000) | (target26Field(instr) << 2)
		c.setGPR(31, pc+8)
		c.takeBranch(target)
		return exceptionSignal{}, false
	case 0x04: // BEQ
		if c.GPR(rs) == c.GPR(rt) {
			c.takeBranch(uint32(int32(pc) + 4 + simm16Field(instr)<<2))
		}
		return exceptionSignal{}, false
	case 0x05: // BNE
		if c.GPR(rs) != c.GPR(rt) {
			c.takeBranch(uint32(int32(pc) + 4 + simm16Field(instr)<<2))
		}
		return exceptionSignal{}, false
	case 0x06: // BLEZ
		if int32(c.GPR(rs)) <= 0 {
			c.takeBranch(uint32(int32(pc) + 4 + simm16Field(instr)<<2))
		}
		return exceptionSignal{}, false
	case 0x07: // BGTZ
		if int32(c.GPR(rs)) > 0 {
			c.takeBranch(uint32(int32(pc) + 4 + simm16Field(instr)<<2))
		}
		return exceptionSignal{}, false
	case 0x08: // ADDI (trapping)
		v := c.GPR(rs)
		imm := simm16Field(instr)
		sum := int32(v) + imm
		if overflowsAddS(int32(v), imm, sum) {
			return c.newException(cop0.ExcOverflow), true
		}
		c.setGPR(rt, uint32(sum))
		return exceptionSignal{}, false
	case 0x09: // ADDIU
		c.setGPR(rt, c.GPR(rs)+uint32(simm16Field(instr)))
		return exceptionSignal{}, false
	case 0x0A: // SLTI
		if int32(c.GPR(rs)) < simm16Field(instr) {
			c.setGPR(rt, 1)
		} else {
			c.setGPR(rt, 0)
		}
		return exceptionSignal{}, false
	case 0x0B: // SLTIU
		if c.GPR(rs) < uint32(simm16Field(instr)) {
			c.setGPR(rt, 1)
		} else {
			c.setGPR(rt, 0)
		}
		return exceptionSignal{}, false
	case 0x0C: // ANDI
		c.setGPR(rt, c.GPR(rs)&imm16Field(instr))
		return exceptionSignal{}, false
	case 0x0D: // ORI
		c.setGPR(rt, c.GPR(rs)|imm16Field(instr))
		return exceptionSignal{}, false
	case 0x0E: // XORI
		c.setGPR(rt, c.GPR(rs)^imm16Field(instr))
		return exceptionSignal{}, false
	case 0x0F: // LUI
		c.setGPR(rt, imm16Field(instr)<<16)
		return exceptionSignal{}, false
	case 0x10: // COP0
		return c.executeCOP0(instr, pc)
	case 0x12: // COP2 (GTE)
		return c.executeCOP2(instr)
	case 0x20: // LB
		return c.executeLoad(instr, bus.Byte, true)
	case 0x21: // LH
		return c.executeLoad(instr, bus.Half, true)
	case 0x22: // LWL
		return c.executeLWL(instr)
	case 0x23: // LW
		return c.executeLoad(instr, bus.Word, true)
	case 0x24: // LBU
		return c.executeLoad(instr, bus.Byte, false)
	case 0x25: // LHU
		return c.executeLoad(instr, bus.Half, false)
	case 0x26: // LWR
		return c.executeLWR(instr)
	case 0x28: // SB
		return c.executeStore(instr, bus.Byte)
	case 0x29: // SH
		return c.executeStore(instr, bus.Half)
	case 0x2A: // SWL
		return c.executeSWL(instr)
	case 0x2B: // SW
		return c.executeStore(instr, bus.Word)
	case 0x2E: // SWR
		return c.executeSWR(instr)
	case 0x32: // LWC2
		addr := uint32(int32(c.GPR(rs)) + simm16Field(instr))
		v, err := c.mem.Load(addr, bus.Word)
		if err != nil {
			return c.addrFaultFor(err, addr, false), true
		}
		c.gte.WriteData(rt, v)
		return exceptionSignal{}, false
	case 0x3A: // SWC2
		addr := uint32(int32(c.GPR(rs)) + simm16Field(instr))
		v := c.gte.ReadData(rt)
		if err := c.mem.Store(addr, bus.Word, v); err != nil {
			return c.addrFaultFor(err, addr, true), true
		}
		return exceptionSignal{}, false
	default:
		return c.newException(cop0.ExcReservedInstr), true
	}
}

func (c *CPU) addrFaultFor(err error, addr uint32, isStore bool) exceptionSignal {
	if isStore {
		return c.newAddressException(cop0.ExcAddressErrStor, addr)
	}
	return c.newAddressException(cop0.ExcAddressErrLoad, addr)
}

// takeBranch arms the branch-delay flag: the NEXT instruction (the delay
// slot, already being fetched this very step) executes normally, and the PC
// after it executes becomes target.
func (c *CPU) takeBranch(target uint32) {
	c.branchPending = true
	c.branchTarget = target
}

// overflowsAddS reports signed 32-bit add overflow. ADDI and ADDIU differ
// only in whether this trap fires.
func overflowsAddS(a, b, sum int32) bool {
	return ((a ^ sum) & (b ^ sum)) < 0
}

func overflowsSubS(a, b, diff int32) bool {
	return ((a ^ b) & (a ^ diff)) < 0
}

func (c *CPU) executeSpecial(instr uint32, pc uint32) (exceptionSignal, bool) {
	rs := rsField(instr)
	rt := rtField(instr)
	rd := rdField(instr)
	shamt := shamtField(instr)
	funct := functField(instr)

	switch funct {
	case 0x00: // SLL
		c.setGPR(rd, c.GPR(rt)<<shamt)
	case 0x02: // SRL
		c.setGPR(rd, c.GPR(rt)>>shamt)
	case 0x03: // SRA
		c.setGPR(rd, uint32(int32(c.GPR(rt))>>shamt))
	case 0x04: // SLLV
		c.setGPR(rd, c.GPR(rt)<<(c.GPR(rs)&0x1F))
	case 0x06: // SRLV
		c.setGPR(rd, c.GPR(rt)>>(c.GPR(rs)&0x1F))
	case 0x07: // SRAV
		c.setGPR(rd, uint32(int32(c.GPR(rt))>>(c.GPR(rs)&0x1F)))
	case 0x08: // JR
		return c.jumpRegister(c.GPR(rs), pc, 0, false)
	case 0x09: // JALR
		link := rd
		if link == 0 {
			link = 31
		}
		return c.jumpRegister(c.GPR(rs), pc, link, true)
	case 0x0C: // SYSCALL
		return c.newException(cop0.ExcSyscall), true
	case 0x0D: // BREAK
		return c.newException(cop0.ExcBreakpoint), true
	case 0x10: // MFHI
		c.setGPR(rd, c.hi)
	case 0x11: // MTHI
		c.hi = c.GPR(rs)
	case 0x12: // MFLO
		c.setGPR(rd, c.lo)
	case 0x13: // MTLO
		c.lo = c.GPR(rs)
	case 0x18: // MULT
		p := int64(int32(c.GPR(rs))) * int64(int32(c.GPR(rt)))
		c.lo = uint32(p)
		c.hi = uint32(p >> 32)
	case 0x19: // MULTU
		p := uint64(c.GPR(rs)) * uint64(c.GPR(rt))
		c.lo = uint32(p)
		c.hi = uint32(p >> 32)
	case 0x1A: // DIV
		c.doDiv(int32(c.GPR(rs)), int32(c.GPR(rt)))
	case 0x1B: // DIVU
		c.doDivU(c.GPR(rs), c.GPR(rt))
	case 0x20: // ADD (trapping)
		a, b := int32(c.GPR(rs)), int32(c.GPR(rt))
		sum := a + b
		if overflowsAddS(a, b, sum) {
			return c.newException(cop0.ExcOverflow), true
		}
		c.setGPR(rd, uint32(sum))
	case 0x21: // ADDU
		c.setGPR(rd, c.GPR(rs)+c.GPR(rt))
	case 0x22: // SUB (trapping)
		a, b := int32(c.GPR(rs)), int32(c.GPR(rt))
		diff := a - b
		if overflowsSubS(a, b, diff) {
			return c.newException(cop0.ExcOverflow), true
		}
		c.setGPR(rd, uint32(diff))
	case 0x23: // SUBU
		c.setGPR(rd, c.GPR(rs)-c.GPR(rt))
	case 0x24: // AND
		c.setGPR(rd, c.GPR(rs)&c.GPR(rt))
	case 0x25: // OR
		c.setGPR(rd, c.GPR(rs)|c.GPR(rt))
	case 0x26: // XOR
		c.setGPR(rd, c.GPR(rs)^c.GPR(rt))
	case 0x27: // NOR
		c.setGPR(rd, ^(c.GPR(rs) | c.GPR(rt)))
	case 0x2A: // SLT
		if int32(c.GPR(rs)) < int32(c.GPR(rt)) {
			c.setGPR(rd, 1)
		} else {
			c.setGPR(rd, 0)
		}
	case 0x2B: // SLTU
		if c.GPR(rs) < c.GPR(rt) {
			c.setGPR(rd, 1)
		} else {
			c.setGPR(rd, 0)
		}
	default:
		return c.newException(cop0.ExcReservedInstr), true
	}
	return exceptionSignal{}, false
}

// jumpRegister implements JR/JALR, including the deferred unaligned-target
// fault: if the jump target is not word-aligned, the fault is deferred to
// the fetch after the delay slot, BadVaddr recording the branch's own PC.
func (c *CPU) jumpRegister(target uint32, pc uint32, link uint32, isJalr bool) (exceptionSignal, bool) {
	if isJalr {
		c.setGPR(link, pc+8)
	}
	if target&0x3 != 0 {
		c.armedMisalignedJump = true
		c.armedMisalignedBadVAddr = pc
		c.armedMisalignedEPC = pc + 4
	}
	c.takeBranch(target)
	return exceptionSignal{}, false
}

// doDiv implements DIV's edge cases: divide by zero yields
// architecturally-defined LO/HI without trapping, and the INT32_MIN / -1
// case does not overflow-trap either.
func (c *CPU) doDiv(n, d int32) {
	switch {
	case d == 0:
		if n < 0 {
			c.lo, c.hi = 1, uint32(n)
		} else {
			c.lo, c.hi = 0xFFFFFFFF, uint32(n)
		}
	case n == -2147483648 && d == -1:
		c.lo, c.hi = uint32(n), 0
	default:
		c.lo, c.hi = uint32(n/d), uint32(n%d)
	}
}

func (c *CPU) doDivU(n, d uint32) {
	if d == 0 {
		c.lo, c.hi = 0xFFFFFFFF, n
		return
	}
	c.lo, c.hi = n/d, n%d
}

func (c *CPU) executeBCondZ(instr uint32, pc uint32) (exceptionSignal, bool) {
	rs := rsField(instr)
	rt := rtField(instr)
	v := int32(c.GPR(rs))
	target := uint32(int32(pc) + 4 + simm16Field(instr)<<2)

	link := rt&0x1E == 0x10 // BLTZAL/BGEZAL (rt == 0x10 or 0x11)
	taken := false
	switch rt & 0x0F {
	case 0x00: // BLTZ / BLTZAL
		taken = v < 0
	case 0x01: // BGEZ / BGEZAL
		taken = v >= 0
	}
	if link {
		c.setGPR(31, pc+8)
	}
	if taken {
		c.takeBranch(target)
	}
	return exceptionSignal{}, false
}

func (c *CPU) executeCOP0(instr uint32, pc uint32) (exceptionSignal, bool) {
	rs := rsField(instr)
	rt := rtField(instr)
	rd := rdField(instr)

	switch rs {
	case 0x00: // MFC0
		c.issueLoad(rt, c.cop0.MFC0(rd))
	case 0x04: // MTC0
		c.cop0.MTC0(rd, c.GPR(rt))
	case 0x10: // RFE (funct field reused for CO instructions)
		if functField(instr) == 0x10 {
			c.cop0.RFE()
		}
	default:
		return c.newException(cop0.ExcReservedInstr), true
	}
	return exceptionSignal{}, false
}

func (c *CPU) executeCOP2(instr uint32) (exceptionSignal, bool) {
	rs := rsField(instr)
	rt := rtField(instr)
	rd := rdField(instr)

	switch {
	case rs == 0x00: // MFC2
		c.issueLoad(rt, c.gte.ReadData(rd))
	case rs == 0x02: // CFC2
		c.issueLoad(rt, c.gte.ReadCtrl(rd))
	case rs == 0x04: // MTC2
		c.gte.WriteData(rd, c.GPR(rt))
	case rs == 0x06: // CTC2
		c.gte.WriteCtrl(rd, c.GPR(rt))
	case instr&(1<<25) != 0: // COP2 imm25 function dispatch
		c.executeGTEOp(instr & 0x1FFFFFF)
	}
	return exceptionSignal{}, false
}

// executeGTEOp dispatches the subset of GTE opcodes this core actually
// models; unrecognized function codes are accepted as no-ops, matching real
// hardware's tolerance of undefined GTE instructions, but are logged.
func (c *CPU) executeGTEOp(funct uint32) {
	switch funct & 0x3F {
	case 0x01: // RTPS
		c.gte.RTPS(
			int16(c.gte.ReadData(0)), // VX0
			int16(c.gte.ReadData(0)>>16),
			int16(c.gte.ReadData(1)), // VZ0
		)
	default:
		logger.Log("cpu", errors.New(errors.UnknownGTEFunction, funct&0x3F))
	}
}

func (c *CPU) executeLoad(instr uint32, width bus.Width, signed bool) (exceptionSignal, bool) {
	rs := rsField(instr)
	rt := rtField(instr)
	addr := uint32(int32(c.GPR(rs)) + simm16Field(instr))

	raw, err := c.mem.Load(addr, width)
	if err != nil {
		return c.addrFaultFor(err, addr, false), true
	}
	var v uint32
	switch width {
	case bus.Byte:
		if signed {
			v = uint32(int32(int8(raw)))
		} else {
			v = raw & 0xFF
		}
	case bus.Half:
		if signed {
			v = uint32(int32(int16(raw)))
		} else {
			v = raw & 0xFFFF
		}
	default:
		v = raw
	}
	c.issueLoad(rt, v)
	return exceptionSignal{}, false
}

func (c *CPU) executeStore(instr uint32, width bus.Width) (exceptionSignal, bool) {
	rs := rsField(instr)
	rt := rtField(instr)
	addr := uint32(int32(c.GPR(rs)) + simm16Field(instr))

	if c.cop0.CacheIsolated() {
		return exceptionSignal{}, false // stores are no-ops while the cache is isolated
	}
	if err := c.mem.Store(addr, width, c.GPR(rt)); err != nil {
		return c.addrFaultFor(err, addr, true), true
	}
	return exceptionSignal{}, false
}

// executeLWL implements the unaligned "load word left" merge against the
// load-delay-bypassed register value.
func (c *CPU) executeLWL(instr uint32) (exceptionSignal, bool) {
	rs := rsField(instr)
	rt := rtField(instr)
	addr := uint32(int32(c.GPR(rs)) + simm16Field(instr))
	aligned := addr &^ 3

	word, err := c.mem.Load(aligned, bus.Word)
	if err != nil {
		return c.addrFaultFor(err, addr, false), true
	}
	cur := c.bypassGPR(rt)
	shift := (addr & 3) * 8
	merged := (word << (24 - shift)) | (cur &^ (0xFFFFFFFF << (24 - shift)))
	if shift == 0 {
		merged = word
	}
	c.issueLoad(rt, merged)
	return exceptionSignal{}, false
}

// executeLWR implements "load word right".
func (c *CPU) executeLWR(instr uint32) (exceptionSignal, bool) {
	rs := rsField(instr)
	rt := rtField(instr)
	addr := uint32(int32(c.GPR(rs)) + simm16Field(instr))
	aligned := addr &^ 3

	word, err := c.mem.Load(aligned, bus.Word)
	if err != nil {
		return c.addrFaultFor(err, addr, false), true
	}
	cur := c.bypassGPR(rt)
	shift := (addr & 3) * 8
	merged := (word >> shift) | (cur &^ (0xFFFFFFFF >> shift))
	if shift == 24 {
		merged = word >> 24 | (cur &^ 0xFF)
	}
	if shift == 0 {
		merged = word
	}
	c.issueLoad(rt, merged)
	return exceptionSignal{}, false
}

func (c *CPU) executeSWL(instr uint32) (exceptionSignal, bool) {
	rs := rsField(instr)
	rt := rtField(instr)
	addr := uint32(int32(c.GPR(rs)) + simm16Field(instr))
	aligned := addr &^ 3
	shift := (addr & 3) * 8

	if c.cop0.CacheIsolated() {
		return exceptionSignal{}, false
	}
	word, err := c.mem.Load(aligned, bus.Word)
	if err != nil {
		return c.addrFaultFor(err, addr, true), true
	}
	v := c.GPR(rt)
	merged := (v >> (24 - shift)) | (word &^ (0xFFFFFFFF >> shift))
	if shift == 0 {
		merged = v
	}
	if err := c.mem.Store(aligned, bus.Word, merged); err != nil {
		return c.addrFaultFor(err, addr, true), true
	}
	return exceptionSignal{}, false
}

func (c *CPU) executeSWR(instr uint32) (exceptionSignal, bool) {
	rs := rsField(instr)
	rt := rtField(instr)
	addr := uint32(int32(c.GPR(rs)) + simm16Field(instr))
	aligned := addr &^ 3
	shift := (addr & 3) * 8

	if c.cop0.CacheIsolated() {
		return exceptionSignal{}, false
	}
	word, err := c.mem.Load(aligned, bus.Word)
	if err != nil {
		return c.addrFaultFor(err, addr, true), true
	}
	v := c.GPR(rt)
	merged := (v << shift) | (word &^ (0xFFFFFFFF << shift))
	if shift == 0 {
		merged = v
	}
	if err := c.mem.Store(aligned, bus.Word, merged); err != nil {
		return c.addrFaultFor(err, addr, true), true
	}
	return exceptionSignal{}, false
}
