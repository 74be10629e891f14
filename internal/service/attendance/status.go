package attendance

import "github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"

// ComputeDailyStatus rolls the three slot outcomes up to a daily status.
// A single completed slot counts as in progress only once another slot has
// been marked missed; before that the day is still absent.
func ComputeDailyStatus(c1, c2, c3 attendance.SlotStatus) attendance.DailyStatus {
	completed, missed := 0, false
	for _, s := range []attendance.SlotStatus{c1, c2, c3} {
		if s.IsCompleted() {
			completed++
		}
		if s == attendance.SlotStatusMissed {
			missed = true
		}
	}

	switch completed {
	case 3:
		return attendance.StatusPresent
	case 2:
		return attendance.StatusHalfDayAbsent
	case 1:
		if missed {
			return attendance.StatusInProgress
		}
	}
	return attendance.StatusAbsent
}

// recomputeStatus refreshes record.Status unless the day is owned by a manual
// entry or a leave backfill. It reports whether the status changed.
func recomputeStatus(record *attendance.Attendance) bool {
	if record.IsOverridden() {
		return false
	}
	next := ComputeDailyStatus(record.Check1.Status, record.Check2.Status, record.Check3.Status)
	if next == record.Status {
		return false
	}
	record.Status = next
	return true
}
