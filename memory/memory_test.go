package memory_test

import (
	"testing"

	"github.com/rogestation/psxcore/bus"
	"github.com/rogestation/psxcore/internal/testhelp"
	"github.com/rogestation/psxcore/memory"
)

// a store followed by an equally-sized load at an aligned address observes
// the stored value byte-for-byte.
func TestRAMStoreLoadRoundTrip(t *testing.T) {
	r := memory.NewRAM()

	testhelp.ExpectSuccess(t, r.Write32(0x1000, 0xDEADBEEF))
	got, err := r.Read32(0x1000)
	testhelp.ExpectSuccess(t, err)
	testhelp.Equate(t, got, uint32(0xDEADBEEF))

	testhelp.ExpectSuccess(t, r.Write16(0x2000, 0xCAFE))
	gotH, err := r.Read16(0x2000)
	testhelp.ExpectSuccess(t, err)
	testhelp.Equate(t, gotH, uint16(0xCAFE))

	testhelp.ExpectSuccess(t, r.Write8(0x3000, 0x7F))
	gotB, err := r.Read8(0x3000)
	testhelp.ExpectSuccess(t, err)
	testhelp.Equate(t, gotB, uint8(0x7F))
}

func TestRAMUnmappedAccess(t *testing.T) {
	r := memory.NewRAM()
	_, err := r.Read32(2*1024*1024 - 2)
	testhelp.Equate(t, err, bus.ErrUnmapped)
}

func TestBIOSRejectsWrongSize(t *testing.T) {
	b := memory.NewBIOS()
	err := b.Load(make([]byte, 100))
	testhelp.ExpectFailure(t, err)

	err = b.Load(make([]byte, memory.BIOSSize))
	testhelp.ExpectSuccess(t, err)
}

func TestBIOSIsReadOnly(t *testing.T) {
	b := memory.NewBIOS()
	testhelp.ExpectSuccess(t, b.Load(make([]byte, memory.BIOSSize)))
	testhelp.ExpectSuccess(t, b.Write8(0, 0xFF))
	got, err := b.Read8(0)
	testhelp.ExpectSuccess(t, err)
	testhelp.Equate(t, got, uint8(0))
}

func TestScratchpadRoundTrip(t *testing.T) {
	s := memory.NewScratchpad()
	testhelp.ExpectSuccess(t, s.Write32(4, 0x12345678))
	got, err := s.Read32(4)
	testhelp.ExpectSuccess(t, err)
	testhelp.Equate(t, got, uint32(0x12345678))
}
