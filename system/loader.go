package system

import (
	"encoding/binary"

	"github.com/rogestation/psxcore/errors"
)

// exeMagic is the 8-byte signature at the head of a PSX-EXE.
const exeMagic = "PS-X EXE"

// exeHeaderSize is the fixed PSX-EXE header length.
const exeHeaderSize = 0x800

// LoadEXE installs a PSX-EXE image into RAM and primes the CPU's PC, GP,
// SP and FP from its header, then redirects execution to the entry point.
func (s *System) LoadEXE(image []byte) error {
	if len(image) < exeHeaderSize {
		return errors.New(errors.EXEImageTruncated)
	}
	if string(image[0:8]) != exeMagic {
		return errors.New(errors.EXEHeaderInvalid)
	}

	entryPC := binary.LittleEndian.Uint32(image[0x10:])
	gp := binary.LittleEndian.Uint32(image[0x14:])
	loadAddr := binary.LittleEndian.Uint32(image[0x18:])
	fileSize := binary.LittleEndian.Uint32(image[0x1C:])
	sp := binary.LittleEndian.Uint32(image[0x30:])

	body := image[exeHeaderSize:]
	if uint32(len(body)) < fileSize {
		fileSize = uint32(len(body))
	}
	if err := s.RAM.LoadBytes(loadAddr&0x1FFFFFFF, body[:fileSize]); err != nil {
		return err
	}

	s.CPU.SetPC(entryPC)
	s.CPU.SetGPRForLoad(28, gp) // $gp
	if sp != 0 {
		s.CPU.SetGPRForLoad(29, sp) // $sp
		s.CPU.SetGPRForLoad(30, sp) // $fp
	}
	return nil
}

// entryTrapPC is the address BIOS jumps to when it hands control to a
// loaded PSX-EXE's shell stub, which front-ends use to detect that the
// BIOS is done booting and an EXE can be injected.
const entryTrapPC = 0x80030000

// AtEXEEntryTrap reports whether the CPU has reached the BIOS shell's
// fixed handoff address.
func (s *System) AtEXEEntryTrap() bool { return s.CPU.PC() == entryTrapPC }
