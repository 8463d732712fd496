// Package sio implements SIO0 and the digital pad reply automaton: the
// TX_DATA/RX_DATA shift register, the ACK-timer-driven CONTROLLER_MEMCARD
// interrupt, and the pad's HighZ -> IDLo -> IDHi -> SwLo -> SwHi -> HighZ
// state machine.
//
// Grounded on the teacher's hardware/riot/input package: a small state
// machine advancing one step per host write/read, driven by the same
// "peripheral replies with the next byte of a fixed sequence" shape as a
// digital joystick port.
package sio

import "github.com/rogestation/psxcore/bus"

// pad reply states.
type padState int

const (
	padHighZ padState = iota
	padIDLo
	padIDHi
	padSwLo
	padSwHi
)

const ackDelayCycles = 100

// Pad models a PSX digital controller's button state, bit0=Select ...
// bit15=Square. Buttons holds 1 for a pressed button; the reply bytes on the
// wire are active-low.
type Pad struct {
	Buttons uint16 // 1 = pressed; converted to active-low on the wire
	connected bool
}

func NewPad() *Pad {
	return &Pad{connected: true}
}

// SetConnected controls whether the pad responds on the line at all; a
// disconnected pad replies with all-0xFF bytes.
func (p *Pad) SetConnected(connected bool) { p.connected = connected }

// Controller is the SIO0 serial port plus an attached digital pad.
type Controller struct {
	txData uint8
	rxData uint8
	ctrl   uint16
	stat   uint32

	ackPending bool
	ackCycles  uint32

	pad       *Pad
	padState  padState
	selected  bool
}

func New(pad *Pad) *Controller {
	c := &Controller{pad: pad}
	c.Reset()
	return c
}

func (c *Controller) Name() string { return "SerialInterface" }

func (c *Controller) Reset() {
	c.txData, c.rxData = 0, 0
	c.ctrl, c.stat = 0, 0
	c.ackPending = false
	c.padState = padHighZ
}

func (c *Controller) Contains(offset uint32, width bus.Width) bool {
	return offset < 0x10 && bus.Aligned(offset, width)
}

// statTXReady / statRXReady bits.
const (
	statTXReady1 = 1 << 0
	statRXReady  = 1 << 1
	statTXReady2 = 1 << 2
	statACK      = 1 << 7
	statIRQ      = 1 << 9
)

func (c *Controller) statusWord() uint32 {
	s := uint32(statTXReady1 | statTXReady2)
	if c.ackPending {
		// RX not ready until the ACK delay elapses; this core treats RX as
		// ready immediately once the reply byte has been latched.
	}
	s |= statRXReady
	return s
}

func (c *Controller) Read32(offset uint32) (uint32, error) {
	switch offset {
	case 0x0:
		return uint32(c.rxData), nil
	case 0x4:
		return c.statusWord(), nil
	case 0x8:
		return uint32(c.ctrl), nil
	}
	return 0, bus.ErrUnmapped
}

func (c *Controller) Write32(offset uint32, v uint32) error {
	switch offset {
	case 0x0:
		c.txData = uint8(v)
		c.shiftPad()
	case 0x8:
		c.ctrl = uint16(v)
		if c.ctrl&(1<<1) != 0 { // /JOYn select
			c.selected = true
		} else {
			c.selected = false
			c.padState = padHighZ
		}
	}
	return nil
}

// shiftPad advances the pad reply automaton by one byte for each byte the
// host writes to TX_DATA, mirroring a real shift-register handshake.
func (c *Controller) shiftPad() {
	if !c.selected || c.pad == nil {
		c.rxData = 0xFF
		return
	}
	if !c.pad.connected {
		c.rxData = 0xFF
		c.padState = padHighZ
		return
	}
	switch c.padState {
	case padHighZ:
		c.rxData = 0xFF
		c.padState = padIDLo
	case padIDLo:
		c.rxData = 0x41 // digital pad ID low byte
		c.padState = padIDHi
	case padIDHi:
		c.rxData = 0x5A
		c.padState = padSwLo
	case padSwLo:
		c.rxData = uint8(^c.pad.Buttons) // active-low
		c.padState = padSwHi
	case padSwHi:
		c.rxData = uint8(^c.pad.Buttons >> 8)
		c.padState = padHighZ
	}
	c.ackPending = true
	c.ackCycles = ackDelayCycles
}

// Tick advances the ACK timer; once it elapses the CONTROLLER_MEMCARD IRQ
// line raises.
func (c *Controller) Tick(cpuCycles uint32) bool {
	if !c.ackPending {
		return false
	}
	if c.ackCycles > cpuCycles {
		c.ackCycles -= cpuCycles
		return false
	}
	c.ackPending = false
	return true
}

func (c *Controller) Read8(offset uint32) (uint8, error) {
	v, err := c.Read32(offset &^ 3)
	return uint8(v >> ((offset & 3) * 8)), err
}
func (c *Controller) Read16(offset uint32) (uint16, error) {
	v, err := c.Read32(offset &^ 3)
	return uint16(v >> ((offset & 2) * 8)), err
}
func (c *Controller) Write8(offset uint32, v uint8) error  { return c.Write32(offset&^3, uint32(v)) }
func (c *Controller) Write16(offset uint32, v uint16) error { return c.Write32(offset&^3, uint32(v)) }
func (c *Controller) Peek(offset uint32) (uint32, error)    { return c.Read32(offset) }
func (c *Controller) Poke(offset uint32, v uint32) error    { return c.Write32(offset, v) }

// MarshalState serializes the shift-register contents and the pad reply
// automaton's position.
func (c *Controller) MarshalState() []byte {
	return []byte{c.txData, c.rxData, uint8(c.ctrl), uint8(c.ctrl >> 8), uint8(c.padState)}
}

func (c *Controller) UnmarshalState(buf []byte) {
	c.txData = buf[0]
	c.rxData = buf[1]
	c.ctrl = uint16(buf[2]) | uint16(buf[3])<<8
	c.padState = padState(buf[4])
}
