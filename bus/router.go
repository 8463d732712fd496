package bus

import (
	"fmt"

	"github.com/rogestation/psxcore/logger"
	"github.com/rogestation/psxcore/memmap"
)

// entry pairs a device with the physical address range it owns.
type entry struct {
	lo, hi uint32
	dev    PsxDevice
}

// Router is the memory bus: it folds a virtual address onto the physical
// map, enforces alignment, linearly scans the device table for the owning
// device, and delegates.
//
// Grounded on the teacher's top-level memory-routing struct (VCSMemory),
// generalized from the Atari's single fixed address map to the PSX's
// segment-folding plus a small ordered device table -- a linear scan over a
// handful of devices being the Go-idiomatic equivalent of a dispatch table.
type Router struct {
	devices []entry
}

// NewRouter creates an empty bus; devices are registered with Register.
func NewRouter() *Router {
	return &Router{}
}

// Register adds a device to the table, owning physical addresses
// [base, base+size).
func (r *Router) Register(base uint32, size uint32, dev PsxDevice) {
	r.devices = append(r.devices, entry{lo: base, hi: base + size, dev: dev})
}

// Reset resets every registered device.
func (r *Router) Reset() {
	for _, e := range r.devices {
		e.dev.Reset()
	}
}

// find locates the device owning a physical address, and the address's
// offset within that device. Addresses in the cache-control segment are
// routed just like any other registered device -- callers wire a
// cache-control device at memmap.CacheControlStart if they want it
// observable.
func (r *Router) find(paddr uint32) (PsxDevice, uint32, bool) {
	for _, e := range r.devices {
		if paddr >= e.lo && paddr < e.hi {
			return e.dev, paddr - e.lo, true
		}
	}
	return nil, 0, false
}

// Load performs a guest read of the given width at virtual address vaddr.
// Unaligned access and unmapped access are reported to the caller (the CPU
// decides whether to raise an exception) but are never themselves fatal;
// an unmapped read returns 0.
func (r *Router) Load(vaddr uint32, width Width) (uint32, error) {
	if !Aligned(vaddr, width) {
		return 0, ErrMisaligned
	}
	paddr := memmap.FoldSegment(vaddr)
	dev, off, ok := r.find(paddr)
	if !ok {
		logger.Logf("bus", "unmapped read at 0x%08x", vaddr)
		return 0, ErrUnmapped
	}
	switch width {
	case Byte:
		v, err := dev.Read8(off)
		return uint32(v), err
	case Half:
		v, err := dev.Read16(off)
		return uint32(v), err
	default:
		return dev.Read32(off)
	}
}

// Store performs a guest write of the given width at virtual address vaddr.
func (r *Router) Store(vaddr uint32, width Width, v uint32) error {
	if !Aligned(vaddr, width) {
		return ErrMisaligned
	}
	paddr := memmap.FoldSegment(vaddr)
	dev, off, ok := r.find(paddr)
	if !ok {
		logger.Logf("bus", "unmapped write at 0x%08x", vaddr)
		return nil
	}
	switch width {
	case Byte:
		return dev.Write8(off, uint8(v))
	case Half:
		return dev.Write16(off, uint16(v))
	default:
		return dev.Write32(off, v)
	}
}

// Device returns the registered device whose Name() matches, or nil. Used
// by the system orchestrator to fetch typed handles to peers: devices
// obtain a typed view of each other through the bus, never by reverse
// pointer.
func (r *Router) Device(name string) PsxDevice {
	for _, e := range r.devices {
		if e.dev.Name() == name {
			return e.dev
		}
	}
	return nil
}

// String lists every registered device and its range in registration order
// (not sorted by address), in memmap.Summary()'s format.
func (r *Router) String() string {
	s := ""
	for _, e := range r.devices {
		s += fmt.Sprintf("%08x -> %08x\t%s\n", e.lo, e.hi-1, e.dev.Name())
	}
	return s
}
