package dma_test

import (
	"testing"

	"github.com/rogestation/psxcore/dma"
	"github.com/rogestation/psxcore/internal/testhelp"
)

type fakeRAM struct {
	words map[uint32]uint32
}

func newFakeRAM() *fakeRAM { return &fakeRAM{words: map[uint32]uint32{}} }

func (r *fakeRAM) Read32(offset uint32) (uint32, error) { return r.words[offset], nil }
func (r *fakeRAM) Write32(offset uint32, v uint32) error { r.words[offset] = v; return nil }

// OTC DMA builds a reverse linked list, terminated by 0x00FFFFFF.
func TestOTCReverseLinkedListInit(t *testing.T) {
	ram := newFakeRAM()
	ctl := dma.New(ram)

	const base = 0x1000
	const count = 4

	testhelp.ExpectSuccess(t, ctl.Write32(dma.ChanOTC*0x10+0x0, base+(count-1)*4))
	testhelp.ExpectSuccess(t, ctl.Write32(dma.ChanOTC*0x10+0x4, count))
	testhelp.ExpectSuccess(t, ctl.Write32(dma.ChanOTC*0x10+0x8, (1<<24)|(1<<1)))

	top := uint32(base + (count-1)*4)
	testhelp.Equate(t, ram.words[top], uint32(top-4))
	testhelp.Equate(t, ram.words[top-4], uint32(top-8))
	testhelp.Equate(t, ram.words[top-8], uint32(top-12))
	testhelp.Equate(t, ram.words[top-12], uint32(0x00FFFFFF))
}

func TestDPCRDefaultsToAllChannelsEnabled(t *testing.T) {
	ctl := dma.New(newFakeRAM())
	v, err := ctl.Read32(0x70)
	testhelp.ExpectSuccess(t, err)
	testhelp.Equate(t, v, uint32(0x07654321))
}
