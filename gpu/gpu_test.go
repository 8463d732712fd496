package gpu_test

import (
	"testing"

	"github.com/rogestation/psxcore/gpu"
	"github.com/rogestation/psxcore/internal/testhelp"
)

// A quick rectangle fill writes the command's color into every pixel of
// the rectangle.
func TestQuickRectFill(t *testing.T) {
	g := gpu.New()

	g.WriteGP0(0x020000FF) // Fill Rectangle, color = (R=0xFF, G=0x00, B=0x00)
	g.WriteGP0(0x00100010) // X=0x10, Y=0x10
	g.WriteGP0(0x00080008) // W=8, H=8

	vram := g.VRAM()
	const stride = 1024
	want := uint16(0x1F) // red, 5 bits, after 8->5 bit conversion
	testhelp.Equate(t, vram[0x10*stride+0x10], want)
	testhelp.Equate(t, vram[0x17*stride+0x17], want)
	testhelp.Equate(t, vram[0x18*stride+0x10], uint16(0))
}

func TestVBlankFiresAfterFullFrame(t *testing.T) {
	g := gpu.New()
	fired := false
	for i := 0; i < 300 && !fired; i++ {
		fired = g.Tick(3413 * 7 / 11)
	}
	testhelp.Equate(t, fired, true)
}
