package memory

import (
	"encoding/binary"

	"github.com/rogestation/psxcore/bus"
	"github.com/rogestation/psxcore/errors"
)

// BIOSSize is the exact size of a retail PSX BIOS ROM image.
const BIOSSize = 512 * 1024

// BIOS is the read-only 512 KiB boot ROM at physical 0x1FC00000.
type BIOS struct {
	bus.Base
	data [BIOSSize]byte
}

// NewBIOS creates an empty (all-zero) BIOS block; use Load to populate it.
func NewBIOS() *BIOS {
	return &BIOS{Base: bus.NewBase(BIOSSize)}
}

func (b *BIOS) Name() string { return "BIOS" }

func (b *BIOS) Reset() {}

// Load copies a BIOS image verbatim into the block. Any size other than
// exactly BIOSSize is a fatal initialization failure; the caller
// (system.LoadBIOS) reports that to the host.
func (b *BIOS) Load(image []byte) error {
	if len(image) != BIOSSize {
		return errors.New(errors.BIOSImageSize, len(image), BIOSSize)
	}
	copy(b.data[:], image)
	return nil
}

func (b *BIOS) Read8(offset uint32) (uint8, error) {
	if !b.Contains(offset, bus.Byte) {
		return 0, bus.ErrUnmapped
	}
	return b.data[offset], nil
}

func (b *BIOS) Read16(offset uint32) (uint16, error) {
	if !b.Contains(offset, bus.Half) {
		return 0, bus.ErrUnmapped
	}
	return binary.LittleEndian.Uint16(b.data[offset:]), nil
}

func (b *BIOS) Read32(offset uint32) (uint32, error) {
	if !b.Contains(offset, bus.Word) {
		return 0, bus.ErrUnmapped
	}
	return binary.LittleEndian.Uint32(b.data[offset:]), nil
}

// Write8/16/32 are no-ops: BIOS is read-only. Writes from guest code
// (there are none in practice) are simply dropped rather than faulted.
func (b *BIOS) Write8(offset uint32, v uint8) error   { return nil }
func (b *BIOS) Write16(offset uint32, v uint16) error { return nil }
func (b *BIOS) Write32(offset uint32, v uint32) error { return nil }

func (b *BIOS) Peek(offset uint32) (uint8, error) { return b.Read8(offset) }
func (b *BIOS) Poke(offset uint32, v uint8) error {
	if !b.Contains(offset, bus.Byte) {
		return bus.ErrUnmapped
	}
	b.data[offset] = v
	return nil
}
