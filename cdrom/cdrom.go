// Package cdrom implements the CD-ROM controller: the 4-byte index-banked
// MMIO window at 0x1F801800, the command/response/data FIFOs, the outer
// state machine, and the sector-read countdown timer.
//
// Grounded on the teacher's hardware/riot package: a small index-addressed
// register file (RIOT's I/O ports selected by address bit patterns)
// generalized to the CD-ROM's explicit index register selecting which bank
// of 4 the other 3 ports address.
package cdrom

import (
	"github.com/rogestation/psxcore/bus"
	"github.com/rogestation/psxcore/errors"
	"github.com/rogestation/psxcore/logger"
)

// Command codes this core recognizes.
const (
	CmdGetStat  = 0x01
	CmdSetLoc   = 0x02
	CmdPlay     = 0x03
	CmdReadN    = 0x06
	CmdMotorOn  = 0x07
	CmdStop     = 0x08
	CmdPause    = 0x09
	CmdInit     = 0x0A
	CmdMute     = 0x0B
	CmdDemute   = 0x0C
	CmdSetFilter = 0x0D
	CmdSetMode  = 0x0E
	CmdGetLocL  = 0x10
	CmdGetLocP  = 0x11
	CmdGetTN    = 0x13
	CmdGetTD    = 0x14
	CmdSeekL    = 0x15
	CmdTest     = 0x19
	CmdGetID    = 0x1A
	CmdReadTOC  = 0x1E
	CmdReadS    = 0x1B
)

// Interrupt flag values written to the response FIFO's companion status.
const (
	IntDataReady  = 1
	IntComplete   = 2
	IntAcknowledge = 3
	IntDataEnd    = 4
	IntError      = 5
)

// outer state machine.
type state int

const (
	stateIdle state = iota
	stateWaitingFirstResponse
	stateWaitingSecondResponse
	stateReading
)

// sector read timings, in CPU cycles.
const (
	cyclesSingleSpeed = 451584
	cyclesDoubleSpeed = 225792
)

// Disc is the minimal image reader a CD-ROM controller needs.
type Disc interface {
	ReadSector(msf [3]byte) ([]byte, bool)
	TrackCount() int
}

// Controller is the CD-ROM block.
type Controller struct {
	index uint8

	paramFIFO    []byte
	responseFIFO []byte
	dataFIFO     []byte
	dataPos      int

	interruptFlag uint8
	interruptMask uint8

	st         state
	motorOn    bool
	doubleSpeed bool
	pendingCmd uint8
	cycleCount uint32
	readTarget [3]byte

	disc Disc
}

func New() *Controller {
	c := &Controller{}
	c.Reset()
	return c
}

func (c *Controller) Name() string { return "CDROM" }

func (c *Controller) Reset() {
	c.index = 0
	c.paramFIFO = c.paramFIFO[:0]
	c.responseFIFO = c.responseFIFO[:0]
	c.dataFIFO = c.dataFIFO[:0]
	c.interruptFlag = 0
	c.interruptMask = 0
	c.st = stateIdle
	c.motorOn = false
	c.cycleCount = 0
}

// AttachDisc wires the controller to a disc image; nil is a valid "tray
// open" state.
func (c *Controller) AttachDisc(d Disc) { c.disc = d }

func (c *Controller) Contains(offset uint32, width bus.Width) bool {
	return offset < 4 && width == bus.Byte
}

// status byte layout: bit7 busy with a parameter, bits vary by spec; this
// core models the subset callers actually observe -- FIFO non-empty flags
// and the index bits.
func (c *Controller) statusByte() byte {
	var s byte
	s |= c.index & 0x3
	if len(c.paramFIFO) == 0 {
		s |= 1 << 3 // parameter FIFO empty
	}
	if len(c.paramFIFO) < 16 {
		s |= 1 << 4 // parameter FIFO not full
	}
	if len(c.responseFIFO) > 0 {
		s |= 1 << 5 // response FIFO not empty
	}
	if len(c.dataFIFO) > c.dataPos {
		s |= 1 << 6 // data FIFO not empty
	}
	return s
}

func (c *Controller) Read8(offset uint32) (uint8, error) {
	switch offset {
	case 0:
		return c.statusByte(), nil
	case 1: // response FIFO
		if len(c.responseFIFO) == 0 {
			return 0, nil
		}
		v := c.responseFIFO[0]
		c.responseFIFO = c.responseFIFO[1:]
		return v, nil
	case 2: // data FIFO
		if c.dataPos >= len(c.dataFIFO) {
			return 0, nil
		}
		v := c.dataFIFO[c.dataPos]
		c.dataPos++
		return v, nil
	case 3:
		if c.index&1 == 0 {
			return c.interruptMask, nil
		}
		return c.interruptFlag | 0xE0, nil
	}
	return 0, bus.ErrUnmapped
}

func (c *Controller) Write8(offset uint32, v uint8) error {
	switch offset {
	case 0:
		c.index = v & 0x3
	case 1:
		switch c.index {
		case 0:
			c.runCommand(v)
		}
	case 2:
		switch c.index {
		case 0:
			c.paramFIFO = append(c.paramFIFO, v)
		case 1:
			c.interruptMask = v & 0x1F
		}
	case 3:
		switch c.index {
		case 1: // interrupt flag acknowledge (write 1 to clear)
			c.interruptFlag &^= v & 0x1F
			if v&0x40 != 0 {
				c.paramFIFO = c.paramFIFO[:0]
			}
		}
	}
	return nil
}

// runCommand dispatches a host-issued command, queues the first response,
// and (for read commands) arms the sector-read countdown.
func (c *Controller) runCommand(cmd uint8) {
	c.pendingCmd = cmd
	params := append([]byte(nil), c.paramFIFO...)
	c.paramFIFO = c.paramFIFO[:0]

	switch cmd {
	case CmdGetStat:
		c.pushResponse(IntComplete, c.statStatByte())
	case CmdSetLoc:
		if len(params) >= 3 {
			copy(c.readTarget[:], params[:3])
		}
		c.pushResponse(IntComplete, c.statStatByte())
	case CmdSeekL:
		c.pushResponse(IntComplete, c.statStatByte())
	case CmdMotorOn:
		c.motorOn = true
		c.pushResponse(IntComplete, c.statStatByte())
	case CmdStop:
		c.motorOn = false
		c.st = stateIdle
		c.pushResponse(IntComplete, c.statStatByte())
	case CmdPause:
		c.st = stateIdle
		c.pushResponse(IntComplete, c.statStatByte())
	case CmdInit:
		c.motorOn = true
		c.pushResponse(IntComplete, c.statStatByte())
	case CmdMute, CmdDemute, CmdSetFilter, CmdSetMode, CmdTest:
		c.pushResponse(IntAcknowledge, c.statStatByte())
	case CmdGetID:
		c.pushResponse(IntComplete, c.statStatByte(), 0x00, 0x20, 0x00, 0x00, 'S', 'C', 'E', 'A')
	case CmdGetTN:
		n := uint8(1)
		if c.disc != nil {
			n = uint8(c.disc.TrackCount())
		}
		c.pushResponse(IntComplete, c.statStatByte(), 1, n)
	case CmdReadN, CmdReadS:
		c.motorOn = true
		c.st = stateReading
		if c.doubleSpeed {
			c.cycleCount = cyclesDoubleSpeed
		} else {
			c.cycleCount = cyclesSingleSpeed
		}
		c.pushResponse(IntComplete, c.statStatByte())
	default:
		logger.Log("cdrom", errors.New(errors.UnknownCDROMCommand, cmd))
		c.pushResponse(IntAcknowledge, c.statStatByte())
	}
}

func (c *Controller) statStatByte() byte {
	var s byte
	if c.motorOn {
		s |= 1 << 1
	}
	if c.st == stateReading {
		s |= 1 << 5
	}
	return s
}

func (c *Controller) pushResponse(irq uint8, bytes ...byte) {
	c.responseFIFO = append(c.responseFIFO, bytes...)
	c.interruptFlag = irq & 0x1F
}

// Tick advances the sector-read countdown; when it elapses, the next
// sector is pulled from the attached disc into the data FIFO and a
// DataReady interrupt is queued.
func (c *Controller) Tick(cpuCycles uint32) {
	if c.st != stateReading {
		return
	}
	if c.cycleCount > cpuCycles {
		c.cycleCount -= cpuCycles
		return
	}
	c.cycleCount = 0
	if c.doubleSpeed {
		c.cycleCount = cyclesDoubleSpeed
	} else {
		c.cycleCount = cyclesSingleSpeed
	}
	if c.disc != nil {
		if sector, ok := c.disc.ReadSector(c.readTarget); ok {
			c.dataFIFO = sector
			c.dataPos = 0
			c.pushResponse(IntDataReady, c.statStatByte())
			// move the read position on by one sector (75 frames a second)
			c.readTarget[2]++
			if c.readTarget[2] >= 75 {
				c.readTarget[2] = 0
				c.readTarget[1]++
				if c.readTarget[1] >= 60 {
					c.readTarget[1] = 0
					c.readTarget[0]++
				}
			}
		}
	}
}

// Pending reports whether an interrupt survives masking, for wiring into
// the interrupt controller.
func (c *Controller) Pending() bool { return c.interruptFlag&c.interruptMask != 0 }

func (c *Controller) Read16(offset uint32) (uint16, error) { v, err := c.Read8(offset); return uint16(v), err }
func (c *Controller) Read32(offset uint32) (uint32, error)  { v, err := c.Read8(offset); return uint32(v), err }
func (c *Controller) Write16(offset uint32, v uint16) error { return c.Write8(offset, uint8(v)) }
func (c *Controller) Write32(offset uint32, v uint32) error  { return c.Write8(offset, uint8(v)) }
func (c *Controller) Peek(offset uint32) (uint32, error)     { return c.Read32(offset) }
func (c *Controller) Poke(offset uint32, v uint32) error     { return c.Write32(offset, v) }

// MarshalState serializes the controller's index, interrupt latches, and
// outer state (the FIFOs and disc position are not restored exactly -- a
// save taken mid-sector-read resumes with the read re-armed from scratch).
func (c *Controller) MarshalState() []byte {
	buf := make([]byte, 5)
	buf[0] = c.index
	buf[1] = c.interruptFlag
	buf[2] = c.interruptMask
	buf[3] = byte(c.st)
	if c.motorOn {
		buf[4] = 1
	}
	return buf
}

func (c *Controller) UnmarshalState(buf []byte) {
	c.index = buf[0]
	c.interruptFlag = buf[1]
	c.interruptMask = buf[2]
	c.st = state(buf[3])
	c.motorOn = buf[4] != 0
}
