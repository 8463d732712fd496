// Package memory implements the backing memory blocks (RAM, BIOS,
// Scratchpad): byte-aligned arrays with no behavior beyond storage (unlike
// the peripherals, which hold state machines). Each block implements
// bus.PsxDevice.
//
// Grounded on the teacher's RAM/cartridge memory devices, which are plain
// byte-slice-backed implementations of the same CPUBus contract.
package memory

import (
	"encoding/binary"

	"github.com/rogestation/psxcore/bus"
)

// RAM is the 2 MiB main memory block at physical 0x00000000.
type RAM struct {
	bus.Base
	data [memmapRAMSize]byte
}

const memmapRAMSize = 2 * 1024 * 1024

// NewRAM creates a zero-initialised RAM block.
func NewRAM() *RAM {
	r := &RAM{Base: bus.NewBase(memmapRAMSize)}
	return r
}

func (r *RAM) Name() string { return "RAM" }

func (r *RAM) Reset() {
	for i := range r.data {
		r.data[i] = 0
	}
}

func (r *RAM) Read8(offset uint32) (uint8, error) {
	if !r.Contains(offset, bus.Byte) {
		return 0, bus.ErrUnmapped
	}
	return r.data[offset], nil
}

func (r *RAM) Read16(offset uint32) (uint16, error) {
	if !r.Contains(offset, bus.Half) {
		return 0, bus.ErrUnmapped
	}
	return binary.LittleEndian.Uint16(r.data[offset:]), nil
}

func (r *RAM) Read32(offset uint32) (uint32, error) {
	if !r.Contains(offset, bus.Word) {
		return 0, bus.ErrUnmapped
	}
	return binary.LittleEndian.Uint32(r.data[offset:]), nil
}

func (r *RAM) Write8(offset uint32, v uint8) error {
	if !r.Contains(offset, bus.Byte) {
		return bus.ErrUnmapped
	}
	r.data[offset] = v
	return nil
}

func (r *RAM) Write16(offset uint32, v uint16) error {
	if !r.Contains(offset, bus.Half) {
		return bus.ErrUnmapped
	}
	binary.LittleEndian.PutUint16(r.data[offset:], v)
	return nil
}

func (r *RAM) Write32(offset uint32, v uint32) error {
	if !r.Contains(offset, bus.Word) {
		return bus.ErrUnmapped
	}
	binary.LittleEndian.PutUint32(r.data[offset:], v)
	return nil
}

// Peek/Poke implement bus.DebuggerBus without side effects beyond Poke's
// intended write.
func (r *RAM) Peek(offset uint32) (uint8, error) { return r.Read8(offset) }
func (r *RAM) Poke(offset uint32, v uint8) error { return r.Write8(offset, v) }

// LoadBytes copies src into RAM starting at offset, used by the PSX-EXE
// loader and by save-state restore. It does not range-check beyond what Write8 already does.
func (r *RAM) LoadBytes(offset uint32, src []byte) error {
	for i, b := range src {
		if err := r.Write8(offset+uint32(i), b); err != nil {
			return err
		}
	}
	return nil
}

// Bytes gives raw access to the backing array, used by save-state
// serialization.
func (r *RAM) Bytes() []byte { return r.data[:] }
