// Package timer implements the 3 programmable timers, each with
// current/mode/target registers, selectable clock source, and the
// reached-target/reached-max flags that can raise an IRQ once or repeatedly.
//
// Grounded on the teacher's hardware/riot/timer.go: a free-running counter
// clocked once per CPU cycle with a programmable target, generalized to
// the PSX's 3 independently-clocked, independently-synced channels.
package timer

import (
	"encoding/binary"

	"github.com/rogestation/psxcore/bus"
)

// Mode register bits.
const (
	modeSyncEnable     = 1 << 0
	modeSyncModeShift  = 1
	modeSyncModeMask   = 0x3 << modeSyncModeShift
	modeResetOnTarget  = 1 << 3
	modeIRQOnTarget    = 1 << 4
	modeIRQOnMax       = 1 << 5
	modeIRQRepeat      = 1 << 6
	modeIRQPulse       = 1 << 7
	modeClockSrcShift  = 8
	modeClockSrcMask   = 0x3 << modeClockSrcShift
	modeReachedTarget  = 1 << 11
	modeReachedMax     = 1 << 12
)

type channel struct {
	counter uint16
	mode    uint16
	target  uint16

	irqLatched bool // IRQ already fired once under a one-shot mode
}

// Timers is the 3-channel programmable timer block.
type Timers struct {
	chans [3]channel
}

func New() *Timers {
	t := &Timers{}
	t.Reset()
	return t
}

func (t *Timers) Name() string { return "Timers" }

func (t *Timers) Reset() {
	for i := range t.chans {
		t.chans[i] = channel{}
	}
}

func (t *Timers) Contains(offset uint32, width bus.Width) bool {
	return offset < 0x30 && bus.Aligned(offset, width)
}

// Tick advances every channel by cpuCycles, using each channel's clock
// source: system clock, /8 for timer 2, H-blank-driven for timer 1.
// hblanks counts H-blank edges that occurred this tick, needed for timer
// 1's H-blank clock source. Returns which channels want to raise an IRQ
// this tick.
func (t *Timers) Tick(cpuCycles uint32, hblanks uint32) [3]bool {
	var fire [3]bool
	for i := range t.chans {
		ch := &t.chans[i]
		if ch.mode&modeSyncEnable != 0 && i != 1 {
			continue // timers 0 and 2 stay paused while sync is enabled; timer 1 ignores its sync bits
		}
		var ticks uint32
		src := (ch.mode & modeClockSrcMask) >> modeClockSrcShift
		switch i {
		case 2:
			if src == 1 || src == 3 {
				ticks = cpuCycles / 8
			} else {
				ticks = cpuCycles
			}
		case 1:
			if src == 1 || src == 3 {
				ticks = hblanks
			} else {
				ticks = cpuCycles
			}
		default:
			ticks = cpuCycles
		}
		fire[i] = t.advance(ch, ticks)
	}
	return fire
}

func (t *Timers) advance(ch *channel, ticks uint32) bool {
	fired := false
	for n := uint32(0); n < ticks; n++ {
		ch.counter++
		if ch.counter == ch.target {
			ch.mode |= modeReachedTarget
			if ch.mode&modeResetOnTarget != 0 {
				ch.counter = 0
			}
			if ch.mode&modeIRQOnTarget != 0 && t.canFire(ch) {
				fired = true
			}
		}
		if ch.counter == 0xFFFF {
			ch.mode |= modeReachedMax
			if ch.mode&modeIRQOnMax != 0 && t.canFire(ch) {
				fired = true
			}
			ch.counter = 0
		}
	}
	return fired
}

func (t *Timers) canFire(ch *channel) bool {
	if ch.mode&modeIRQRepeat != 0 {
		return true
	}
	if ch.irqLatched {
		return false
	}
	ch.irqLatched = true
	return true
}

func chanForOffset(offset uint32) (int, uint32) { return int(offset / 0x10), offset % 0x10 }

func (t *Timers) Read32(offset uint32) (uint32, error) {
	ch, reg := chanForOffset(offset)
	if ch > 2 {
		return 0, bus.ErrUnmapped
	}
	switch reg {
	case 0x0:
		return uint32(t.chans[ch].counter), nil
	case 0x4:
		v := t.chans[ch].mode
		t.chans[ch].mode &^= modeReachedTarget | modeReachedMax // read-and-clear per spec convention
		return uint32(v), nil
	case 0x8:
		return uint32(t.chans[ch].target), nil
	}
	return 0, bus.ErrUnmapped
}

func (t *Timers) Write32(offset uint32, v uint32) error {
	ch, reg := chanForOffset(offset)
	if ch > 2 {
		return nil
	}
	switch reg {
	case 0x0:
		t.chans[ch].counter = uint16(v)
	case 0x4:
		t.chans[ch].mode = uint16(v) &^ (modeReachedTarget | modeReachedMax)
		t.chans[ch].counter = 0
		t.chans[ch].irqLatched = false
	case 0x8:
		t.chans[ch].target = uint16(v)
	}
	return nil
}

func (t *Timers) Read8(offset uint32) (uint8, error) {
	v, err := t.Read32(offset &^ 3)
	return uint8(v >> ((offset & 3) * 8)), err
}
func (t *Timers) Read16(offset uint32) (uint16, error) {
	v, err := t.Read32(offset &^ 3)
	return uint16(v >> ((offset & 2) * 8)), err
}
func (t *Timers) Write8(offset uint32, v uint8) error  { return t.Write32(offset&^3, uint32(v)) }
func (t *Timers) Write16(offset uint32, v uint16) error { return t.Write32(offset&^3, uint32(v)) }
func (t *Timers) Peek(offset uint32) (uint32, error)    { return t.Read32(offset) }
func (t *Timers) Poke(offset uint32, v uint32) error    { return t.Write32(offset, v) }

// MarshalState serializes the 3 channels' counter/mode/target registers.
func (t *Timers) MarshalState() []byte {
	buf := make([]byte, 3*6)
	for i, ch := range t.chans {
		binary.LittleEndian.PutUint16(buf[i*6:], ch.counter)
		binary.LittleEndian.PutUint16(buf[i*6+2:], ch.mode)
		binary.LittleEndian.PutUint16(buf[i*6+4:], ch.target)
	}
	return buf
}

func (t *Timers) UnmarshalState(buf []byte) {
	for i := range t.chans {
		t.chans[i].counter = binary.LittleEndian.Uint16(buf[i*6:])
		t.chans[i].mode = binary.LittleEndian.Uint16(buf[i*6+2:])
		t.chans[i].target = binary.LittleEndian.Uint16(buf[i*6+4:])
	}
}
