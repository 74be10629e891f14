package memory

import (
	"context"
	"sort"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"
)

type attendanceRepository struct {
	s *Store
}

func (r attendanceRepository) Get(ctx context.Context, id string) (attendance.Attendance, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.attendance[id]
	if !ok {
		return attendance.Attendance{}, 0, attendance.ErrAttendanceNotFound
	}
	return v.record, v.version, nil
}

func (r attendanceRepository) Save(ctx context.Context, record attendance.Attendance, expectedVersion int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, exists := r.s.attendance[record.ID]
	switch {
	case expectedVersion == 0 && exists:
		return 0, attendance.ErrVersionConflict
	case expectedVersion != 0 && (!exists || current.version != expectedVersion):
		return 0, attendance.ErrVersionConflict
	}

	now := r.s.now()
	if exists {
		record.CreatedAt = current.record.CreatedAt
	} else {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	version := expectedVersion + 1
	r.s.track(ctx, restoreEntry(r.s.attendance, record.ID))
	r.s.attendance[record.ID] = versionedAttendance{record: record, version: version}
	return version, nil
}

func (r attendanceRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.attendance[id]; !ok {
		return attendance.ErrAttendanceNotFound
	}
	r.s.track(ctx, restoreEntry(r.s.attendance, id))
	delete(r.s.attendance, id)
	return nil
}

func (r attendanceRepository) ListByDate(ctx context.Context, dateKey string, userID *string) ([]attendance.Attendance, error) {
	return r.list(func(a attendance.Attendance) bool {
		return a.DateKey == dateKey && (userID == nil || a.UserID == *userID)
	}), nil
}

func (r attendanceRepository) ListByUserRange(ctx context.Context, userID, fromDateKey, toDateKey string) ([]attendance.Attendance, error) {
	return r.list(func(a attendance.Attendance) bool {
		return a.UserID == userID && a.DateKey >= fromDateKey && a.DateKey <= toDateKey
	}), nil
}

func (r attendanceRepository) list(match func(attendance.Attendance) bool) []attendance.Attendance {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var records []attendance.Attendance
	for _, v := range r.s.attendance {
		if match(v.record) {
			records = append(records, v.record)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records
}
