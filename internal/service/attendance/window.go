package attendance

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/company"
)

// Resolution is the outcome of placing a timestamp in a check-in window.
// Status is SlotStatusUnset when the timestamp falls outside the window.
type Resolution struct {
	Slot           attendance.Slot
	Label          string
	Status         attendance.SlotStatus
	LateByMinutes  int
	EarlyByMinutes int
}

// minutesSinceMidnight is the wall-clock minute of ts in loc.
func minutesSinceMidnight(ts time.Time, loc *time.Location) int {
	local := ts.In(loc)
	return local.Hour()*60 + local.Minute()
}

// ResolveOutcome classifies ts against one slot window. Both window edges are
// inclusive. Only check3 has an early-leave band, which opens graceMinutes
// before the window start.
func ResolveOutcome(ts time.Time, slot attendance.Slot, window company.TimeWindow, graceMinutes int, loc *time.Location) (Resolution, error) {
	start, end, err := window.Bounds()
	if err != nil {
		return Resolution{}, fmt.Errorf("window %s: %w", slot, err)
	}
	if graceMinutes < 0 {
		graceMinutes = 0
	}

	res := Resolution{Slot: slot, Label: window.Label}
	actual := minutesSinceMidnight(ts, loc)

	switch {
	case slot == attendance.SlotCheck3 && actual >= start-graceMinutes && actual < start:
		res.Status = attendance.SlotStatusEarlyLeave
		res.EarlyByMinutes = start - actual
	case actual < start:
	case actual <= end:
		res.Status = attendance.SlotStatusOnTime
	case actual <= end+graceMinutes:
		res.Status = attendance.SlotStatusLate
		res.LateByMinutes = actual - end
	}
	return res, nil
}

// ResolveSlot tries check1, check2 and check3 in order and returns the first
// slot whose outcome is set. The boolean is false when no window is open.
func ResolveSlot(ts time.Time, settings company.Settings, loc *time.Location) (Resolution, bool, error) {
	for _, slot := range attendance.Slots() {
		window, _ := settings.TimeWindows.For(string(slot))
		res, err := ResolveOutcome(ts, slot, window, settings.GracePeriods.For(string(slot)), loc)
		if err != nil {
			return Resolution{}, false, err
		}
		if res.Status.IsSet() {
			return res, true, nil
		}
	}
	return Resolution{}, false, nil
}
