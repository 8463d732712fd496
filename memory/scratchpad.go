package memory

import (
	"encoding/binary"

	"github.com/rogestation/psxcore/bus"
)

// ScratchpadSize is the 1 KiB fast-RAM region the BIOS maps alongside RAM.
const ScratchpadSize = 1024

// Scratchpad is the 1 KiB region at physical 0x1F800000.
type Scratchpad struct {
	bus.Base
	data [ScratchpadSize]byte
}

// NewScratchpad creates a zero-initialised Scratchpad.
func NewScratchpad() *Scratchpad {
	return &Scratchpad{Base: bus.NewBase(ScratchpadSize)}
}

func (s *Scratchpad) Name() string { return "ScratchPad" }

func (s *Scratchpad) Reset() {
	for i := range s.data {
		s.data[i] = 0
	}
}

func (s *Scratchpad) Read8(offset uint32) (uint8, error) {
	if !s.Contains(offset, bus.Byte) {
		return 0, bus.ErrUnmapped
	}
	return s.data[offset], nil
}

func (s *Scratchpad) Read16(offset uint32) (uint16, error) {
	if !s.Contains(offset, bus.Half) {
		return 0, bus.ErrUnmapped
	}
	return binary.LittleEndian.Uint16(s.data[offset:]), nil
}

func (s *Scratchpad) Read32(offset uint32) (uint32, error) {
	if !s.Contains(offset, bus.Word) {
		return 0, bus.ErrUnmapped
	}
	return binary.LittleEndian.Uint32(s.data[offset:]), nil
}

func (s *Scratchpad) Write8(offset uint32, v uint8) error {
	if !s.Contains(offset, bus.Byte) {
		return bus.ErrUnmapped
	}
	s.data[offset] = v
	return nil
}

func (s *Scratchpad) Write16(offset uint32, v uint16) error {
	if !s.Contains(offset, bus.Half) {
		return bus.ErrUnmapped
	}
	binary.LittleEndian.PutUint16(s.data[offset:], v)
	return nil
}

func (s *Scratchpad) Write32(offset uint32, v uint32) error {
	if !s.Contains(offset, bus.Word) {
		return bus.ErrUnmapped
	}
	binary.LittleEndian.PutUint32(s.data[offset:], v)
	return nil
}

func (s *Scratchpad) Peek(offset uint32) (uint8, error) { return s.Read8(offset) }
func (s *Scratchpad) Poke(offset uint32, v uint8) error { return s.Write8(offset, v) }

// Bytes gives raw access to the backing array, used by save-state
// serialization.
func (s *Scratchpad) Bytes() []byte { return s.data[:] }

// LoadBytes copies src into the scratchpad starting at offset, used by
// save-state restore.
func (s *Scratchpad) LoadBytes(offset uint32, src []byte) error {
	for i, b := range src {
		if err := s.Write8(offset+uint32(i), b); err != nil {
			return err
		}
	}
	return nil
}
