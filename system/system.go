// Package system is the orchestrator: it wires every device onto a shared
// bus, steps the CPU and ticks every device once per frame loop iteration,
// and exposes the loader/save-state operations as the core's externally
// visible surface.
//
// Grounded on the teacher's hardware/vcs.go (the top-level VCS type that
// owns every chip, wires them onto a Bus, and exposes Step/Reset), scaled
// from the Atari's handful of chips to the PSX's device set.
package system

import (
	"github.com/rogestation/psxcore/bus"
	"github.com/rogestation/psxcore/cdrom"
	"github.com/rogestation/psxcore/cop0"
	"github.com/rogestation/psxcore/cpu"
	"github.com/rogestation/psxcore/dma"
	"github.com/rogestation/psxcore/gpu"
	"github.com/rogestation/psxcore/gte"
	"github.com/rogestation/psxcore/irq"
	"github.com/rogestation/psxcore/memmap"
	"github.com/rogestation/psxcore/memory"
	"github.com/rogestation/psxcore/sio"
	"github.com/rogestation/psxcore/timer"
)

// System owns every PSX device and drives them from a single frame loop.
type System struct {
	Bus *bus.Router

	RAM        *memory.RAM
	BIOS       *memory.BIOS
	Scratchpad *memory.Scratchpad
	COP0       *cop0.COP0
	GTE        *gte.GTE
	IRQ        *irq.Controller
	DMA        *dma.Controller
	GPU        *gpu.GPU
	CDROM      *cdrom.Controller
	Timers     *timer.Timers
	SIO        *sio.Controller
	Pad        *sio.Pad
	CPU        *cpu.CPU
}

// New constructs a fully wired system. BIOS image loading happens
// separately via LoadBIOS, so a System can exist before a BIOS is chosen.
func New() *System {
	s := &System{}

	s.RAM = memory.NewRAM()
	s.BIOS = memory.NewBIOS()
	s.Scratchpad = memory.NewScratchpad()
	s.COP0 = cop0.New()
	s.GTE = gte.New()
	s.IRQ = irq.New()
	s.DMA = dma.New(s.RAM)
	s.GPU = gpu.New()
	s.CDROM = cdrom.New()
	s.Timers = timer.New()
	s.Pad = sio.NewPad()
	s.SIO = sio.New(s.Pad)

	s.Bus = bus.NewRouter()
	s.Bus.Register(memmap.RAMStart, memmap.RAMSize, s.RAM)
	s.Bus.Register(memmap.ScratchpadStart, memmap.ScratchpadSize, s.Scratchpad)
	s.Bus.Register(memmap.BIOSStart, memmap.BIOSSize, s.BIOS)
	s.Bus.Register(memmap.InterruptStart, memmap.InterruptSize, s.IRQ)
	s.Bus.Register(memmap.DMAStart, memmap.DMASize, s.DMA)
	s.Bus.Register(memmap.TimerStart, memmap.TimerSize, s.Timers)
	s.Bus.Register(memmap.CDROMStart, memmap.CDROMSize, s.CDROM)
	s.Bus.Register(memmap.GPUStart, memmap.GPUSize, s.GPU)
	s.Bus.Register(memmap.SIOStart, memmap.SIOSize, s.SIO)

	s.DMA.AttachPeer(dma.ChanGPU, s.GPU)

	s.CPU = cpu.New(s.Bus, s.COP0, s.GTE, s.IRQ)
	return s
}

// LoadBIOS installs a 512KiB BIOS image, rejecting anything else.
func (s *System) LoadBIOS(image []byte) error {
	return s.BIOS.Load(image)
}

// Reset reinitializes every device and the CPU.
func (s *System) Reset() {
	s.Bus.Reset()
	s.CPU.Reset()
}

// Step executes one CPU instruction and ticks every clocked device by a
// fixed per-instruction cycle estimate.
const cyclesPerInstruction = 2

func (s *System) Step() {
	s.CPU.Step()
	s.tick(cyclesPerInstruction)
}

func (s *System) tick(cycles uint32) {
	if s.GPU.Tick(cycles) {
		s.IRQ.Trigger(irq.VBLANK)
	}
	s.Timers.Tick(cycles, 0)
	s.CDROM.Tick(cycles)
	if s.CDROM.Pending() {
		s.IRQ.Trigger(irq.CDROM)
	}
	if s.SIO.Tick(cycles) {
		s.IRQ.Trigger(irq.CONTROLLER_MEMCARD)
	}
}

// RunFrame steps the CPU until one VBlank has elapsed, the unit most
// front-ends drive the emulation loop by.
func (s *System) RunFrame() {
	seenVBlank := false
	for !seenVBlank {
		s.CPU.Step()
		if s.GPU.Tick(cyclesPerInstruction) {
			s.IRQ.Trigger(irq.VBLANK)
			seenVBlank = true
		}
		s.Timers.Tick(cyclesPerInstruction, 0)
		s.CDROM.Tick(cyclesPerInstruction)
		if s.CDROM.Pending() {
			s.IRQ.Trigger(irq.CDROM)
		}
		if s.SIO.Tick(cyclesPerInstruction) {
			s.IRQ.Trigger(irq.CONTROLLER_MEMCARD)
		}
	}
}

// SetTTYSink installs a callback invoked with each flushed line of BIOS TTY
// output.
func (s *System) SetTTYSink(sink cpu.TTYSink) { s.CPU.SetTTYSink(sink) }
