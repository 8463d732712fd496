package system

import (
	"encoding/binary"

	"github.com/rogestation/psxcore/errors"
)

// Save-state framing: little-endian, magic "ROGE", version 1, a fixed
// device order so a state saved by one build loads predictably on another
// of the same version.
const (
	saveMagic   = 0x524F4745
	saveVersion = 1
)

type block struct {
	name string
	data []byte
}

// SaveState serializes every device in a fixed order behind a small framed
// header.
func (s *System) SaveState() []byte {
	// CPU first, then RAM, ScratchPad, GPU, DMA, SerialInterface, Timers,
	// InterruptController. SPU is a stub with no state to save;
	// MemoryControl/CacheControl/Expansion2 have no implemented device in
	// this core. COP0, GTE, and CDROM are appended after that fixed set
	// since they were added to this core's scope afterward.
	blocks := []block{
		{"CPU", s.CPU.MarshalState()},
		{"RAM", s.RAM.Bytes()},
		{"ScratchPad", s.Scratchpad.Bytes()},
		{"GPU", s.GPU.MarshalState()},
		{"DMA", s.DMA.MarshalState()},
		{"SerialInterface", s.SIO.MarshalState()},
		{"Timers", s.Timers.MarshalState()},
		{"InterruptController", s.IRQ.MarshalState()},
		{"COP0", s.COP0.MarshalState()},
		{"GTE", s.GTE.MarshalState()},
		{"CDROM", s.CDROM.MarshalState()},
	}

	total := 8
	for _, b := range blocks {
		total += 4 + len(b.data)
	}
	out := make([]byte, total)
	binary.LittleEndian.PutUint32(out[0:], saveMagic)
	binary.LittleEndian.PutUint32(out[4:], saveVersion)
	pos := 8
	for _, b := range blocks {
		binary.LittleEndian.PutUint32(out[pos:], uint32(len(b.data)))
		copy(out[pos+4:], b.data)
		pos += 4 + len(b.data)
	}
	return out
}

// LoadState restores every device from a buffer produced by SaveState, in
// the same fixed order.
func (s *System) LoadState(buf []byte) error {
	if len(buf) < 8 {
		return errors.New(errors.SaveStateTruncated)
	}
	if binary.LittleEndian.Uint32(buf[0:]) != saveMagic {
		return errors.New(errors.SaveStateBadMagic)
	}
	if v := binary.LittleEndian.Uint32(buf[4:]); v != saveVersion {
		return errors.New(errors.SaveStateBadVersion, v)
	}

	pos := 8
	next := func() ([]byte, error) {
		if pos+4 > len(buf) {
			return nil, errors.New(errors.SaveStateTruncated)
		}
		n := int(binary.LittleEndian.Uint32(buf[pos:]))
		pos += 4
		if pos+n > len(buf) {
			return nil, errors.New(errors.SaveStateTruncated)
		}
		data := buf[pos : pos+n]
		pos += n
		return data, nil
	}

	steps := []struct {
		name  string
		apply func([]byte)
	}{
		{"CPU", s.CPU.UnmarshalState},
		{"RAM", func(d []byte) { _ = s.RAM.LoadBytes(0, d) }},
		{"ScratchPad", func(d []byte) { _ = s.Scratchpad.LoadBytes(0, d) }},
		{"GPU", s.GPU.UnmarshalState},
		{"DMA", s.DMA.UnmarshalState},
		{"SerialInterface", s.SIO.UnmarshalState},
		{"Timers", s.Timers.UnmarshalState},
		{"InterruptController", s.IRQ.UnmarshalState},
		{"COP0", s.COP0.UnmarshalState},
		{"GTE", s.GTE.UnmarshalState},
		{"CDROM", s.CDROM.UnmarshalState},
	}
	for _, st := range steps {
		data, err := next()
		if err != nil {
			return errors.Errorf("restoring %s: %v", st.name, err)
		}
		st.apply(data)
	}
	return nil
}
