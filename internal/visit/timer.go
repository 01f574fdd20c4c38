package visit

import (
	"fmt"
	"time"
)

const DefaultTarget = 20 * time.Minute

// Timer derives the on-site countdown from the check-in time. Nothing about
// it is stored; callers recompute it at whatever instant they need.
type Timer struct {
	CheckIn time.Time
	Target  time.Duration
}

func NewTimer(checkIn time.Time, target time.Duration) Timer {
	if target <= 0 {
		target = DefaultTarget
	}
	return Timer{CheckIn: checkIn, Target: target}
}

type TimerDisplay struct {
	ElapsedSeconds   int64  `json:"elapsedSeconds"`
	TargetSeconds    int64  `json:"targetSeconds"`
	RemainingSeconds int64  `json:"remainingSeconds"`
	Overtime         bool   `json:"overtime"`
	OvertimeSeconds  int64  `json:"overtimeSeconds"`
	Display          string `json:"display"`
}

// At counts down while elapsed < target and counts up as "+MM:SS" after.
func (t Timer) At(now time.Time) TimerDisplay {
	elapsed := int64(now.Sub(t.CheckIn) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	target := int64(t.Target / time.Second)

	d := TimerDisplay{ElapsedSeconds: elapsed, TargetSeconds: target}
	if elapsed < target {
		d.RemainingSeconds = target - elapsed
		d.Display = clock(d.RemainingSeconds)
		return d
	}
	d.Overtime = true
	d.OvertimeSeconds = elapsed - target
	d.Display = "+" + clock(d.OvertimeSeconds)
	return d
}

func clock(seconds int64) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
