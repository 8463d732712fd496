// Package bus defines the uniform device contract every memory-mapped
// device on the PSX bus implements, and the typed load/store helpers built
// on top of it.
//
// Grounded on the teacher's hardware/memory/bus package: the CPU sees every
// memory-mapped device through one interface, and the routing bus (Router,
// in router.go) need not know the concrete device type to dispatch a read
// or write.
package bus

import "github.com/rogestation/psxcore/errors"

// Width names the access size of a bus operation.
type Width int

const (
	Byte Width = 1
	Half Width = 2
	Word Width = 4
)

// PsxDevice is implemented by every memory-mapped device on the bus: RAM,
// BIOS, Scratchpad, and every I/O peripheral. Devices receive addresses
// already normalised to their own base (offset 0 is the device's first
// byte).
type PsxDevice interface {
	// Name identifies the device for diagnostics and save-state ordering.
	Name() string

	// Contains reports whether offset..offset+size-1 lies entirely within
	// this device's mapped range.
	Contains(offset uint32, width Width) bool

	// Read8/Read16/Read32 fetch a value at offset. Implementations must not
	// themselves raise CPU exceptions -- the CPU does that at its call site.
	Read8(offset uint32) (uint8, error)
	Read16(offset uint32) (uint16, error)
	Read32(offset uint32) (uint32, error)

	// Write8/Write16/Write32 store a value at offset.
	Write8(offset uint32, v uint8) error
	Write16(offset uint32, v uint16) error
	Write32(offset uint32, v uint32) error

	// Reset returns the device to its post-construction state.
	Reset()
}

// ErrUnmapped is returned by PsxDevice implementations (and observed by the
// routing bus) when an offset falls outside of the device's mapped range.
// This is never itself fatal.
var ErrUnmapped = errors.New(errors.UnmappedAddress)

// ErrMisaligned is returned when a halfword or word access is not aligned to
// its own size. Like ErrUnmapped, this is a diagnostic only; dispatching the
// corresponding AddressError exception is the CPU's job.
var ErrMisaligned = errors.New(errors.UnalignedAccess)

// Aligned reports whether offset is properly aligned for width.
func Aligned(offset uint32, width Width) bool {
	switch width {
	case Half:
		return offset&1 == 0
	case Word:
		return offset&3 == 0
	default:
		return true
	}
}

// DebuggerBus is implemented by devices that support the host debugger's
// non-side-effecting peek/poke operations at a frame boundary. It is
// optional -- type-asserted by callers that need it.
type DebuggerBus interface {
	Peek(offset uint32) (uint8, error)
	Poke(offset uint32, v uint8) error
}
