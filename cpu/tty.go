package cpu

// TTY hook: snoop BIOS putchar calls without altering guest state, so a
// host can show what the guest is printing without an actual serial
// terminal attached.
//
// std_out_putchar(A0) is reached two ways depending on the BIOS build: the
// function-table jump at physical 0xA0 with T1==0x3C, or at 0xB0 with
// T1==0x3D. Character argument is A0 (GPR 4).
const (
	ttyTableLo = 0xA0
	ttyTableHi = 0xB0
	ttyFunctLo = 0x3C
	ttyFunctHi = 0x3D
)

func (c *CPU) checkTTYHook(physAddr uint32) {
	t1 := c.GPR(9)
	isHook := (physAddr == ttyTableLo && t1 == ttyFunctLo) || (physAddr == ttyTableHi && t1 == ttyFunctHi)
	if !isHook {
		return
	}
	ch := byte(c.GPR(4))
	switch ch {
	case '\n':
		c.flushTTY()
	case '\b':
		if n := len(c.ttyBuf); n > 0 {
			c.ttyBuf = c.ttyBuf[:n-1]
		}
	case '\a':
		c.ttyBuf = append(c.ttyBuf, []byte("[BELL]")...)
	case '\t':
		c.ttyBuf = append(c.ttyBuf, ' ', ' ', ' ', ' ')
	default:
		c.ttyBuf = append(c.ttyBuf, ch)
	}
}

func (c *CPU) flushTTY() {
	if c.ttySink != nil {
		c.ttySink(string(c.ttyBuf))
	}
	c.ttyBuf = c.ttyBuf[:0]
}
