package timer_test

import (
	"testing"

	"github.com/rogestation/psxcore/internal/testhelp"
	"github.com/rogestation/psxcore/timer"
)

func TestCounterReachesTargetAndResets(t *testing.T) {
	tm := timer.New()
	testhelp.ExpectSuccess(t, tm.Write32(0x8, 10))               // target=10
	testhelp.ExpectSuccess(t, tm.Write32(0x4, 1<<3|1<<4))         // reset-on-target, IRQ-on-target

	fire := tm.Tick(10, 0)
	testhelp.Equate(t, fire[0], true)

	v, _ := tm.Read32(0x0)
	testhelp.Equate(t, v, uint32(0))
}

func TestOneShotIRQDoesNotRefireWithoutRepeat(t *testing.T) {
	tm := timer.New()
	testhelp.ExpectSuccess(t, tm.Write32(0x8, 5))
	testhelp.ExpectSuccess(t, tm.Write32(0x4, 1<<4)) // IRQ-on-target, no repeat, no reset

	first := tm.Tick(5, 0)
	testhelp.Equate(t, first[0], true)

	second := tm.Tick(0xFFFF, 0)
	testhelp.Equate(t, second[0], false)
}
