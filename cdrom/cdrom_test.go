package cdrom_test

import (
	"testing"

	"github.com/rogestation/psxcore/cdrom"
	"github.com/rogestation/psxcore/internal/testhelp"
)

func TestGetStatRespondsWithComplete(t *testing.T) {
	c := cdrom.New()
	testhelp.ExpectSuccess(t, c.Write8(0, 0))                 // select index 0
	testhelp.ExpectSuccess(t, c.Write8(1, cdrom.CmdGetStat))   // issue command
	v, err := c.Read8(1)
	testhelp.ExpectSuccess(t, err)
	testhelp.Equate(t, v, uint8(0))

	testhelp.ExpectSuccess(t, c.Write8(0, 1)) // select index 1: interrupt flag register
	flags, err := c.Read8(3)
	testhelp.ExpectSuccess(t, err)
	testhelp.Equate(t, flags&0x1F, uint8(cdrom.IntComplete))
}

func TestMotorOnSetsStatusBit(t *testing.T) {
	c := cdrom.New()
	testhelp.ExpectSuccess(t, c.Write8(1, cdrom.CmdMotorOn))
	testhelp.ExpectSuccess(t, c.Write8(1, cdrom.CmdGetStat))
	v, _ := c.Read8(1)
	testhelp.Equate(t, v&0x02 != 0, true)
}

type oneSector struct{}

func (oneSector) ReadSector(msf [3]byte) ([]byte, bool) { return make([]byte, 2048), true }
func (oneSector) TrackCount() int                       { return 1 }

func TestReadCommandEventuallyDeliversData(t *testing.T) {
	c := cdrom.New()
	c.AttachDisc(oneSector{})
	testhelp.ExpectSuccess(t, c.Write8(1, cdrom.CmdReadN))

	for i := 0; i < 10; i++ {
		c.Tick(60000)
	}
	status, err := c.Read8(0)
	testhelp.ExpectSuccess(t, err)
	testhelp.Equate(t, status&0x40 != 0, true) // data FIFO not empty
}
