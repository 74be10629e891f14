package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/utils"
	"github.com/jackc/pgx/v5"
)

const attendanceColumns = `
	id, user_id, date_key, attendance_date,
	check1_status, check1_timestamp, check1_latitude, check1_longitude,
	check2_status, check2_timestamp, check2_latitude, check2_longitude,
	check3_status, check3_timestamp, check3_latitude, check3_longitude,
	status, is_manual_entry, manual_reason, notes, leave_request_id, leave_backfill,
	version, created_at, updated_at`

type attendanceRepository struct {
	db *database.DB
}

// slotColumns holds the nullable column values of one slot.
type slotColumns struct {
	status    *string
	timestamp *time.Time
	latitude  *float64
	longitude *float64
}

func (c slotColumns) toSlot() attendance.SlotRecord {
	slot := attendance.SlotRecord{Timestamp: c.timestamp}
	if c.status != nil {
		slot.Status = attendance.SlotStatus(*c.status)
	}
	if c.latitude != nil && c.longitude != nil {
		slot.Location = &utils.Coordinate{Latitude: *c.latitude, Longitude: *c.longitude}
	}
	return slot
}

func slotArgs(slot attendance.SlotRecord) []interface{} {
	var status *string
	if slot.Status.IsSet() {
		s := string(slot.Status)
		status = &s
	}
	var lat, lng *float64
	if slot.Location != nil {
		lat, lng = &slot.Location.Latitude, &slot.Location.Longitude
	}
	return []interface{}{status, slot.Timestamp, lat, lng}
}

func scanAttendance(row pgx.Row) (attendance.Attendance, int64, error) {
	var (
		att        attendance.Attendance
		c1, c2, c3 slotColumns
		status     string
		version    int64
	)
	err := row.Scan(
		&att.ID, &att.UserID, &att.DateKey, &att.AttendanceDate,
		&c1.status, &c1.timestamp, &c1.latitude, &c1.longitude,
		&c2.status, &c2.timestamp, &c2.latitude, &c2.longitude,
		&c3.status, &c3.timestamp, &c3.latitude, &c3.longitude,
		&status, &att.IsManualEntry, &att.ManualReason, &att.Notes, &att.LeaveRequestID, &att.LeaveBackfill,
		&version, &att.CreatedAt, &att.UpdatedAt,
	)
	if err != nil {
		return attendance.Attendance{}, 0, err
	}
	att.Check1, att.Check2, att.Check3 = c1.toSlot(), c2.toSlot(), c3.toSlot()
	att.Status = attendance.DailyStatus(status)
	att.AttendanceDate = att.AttendanceDate.UTC()
	return att, version, nil
}

func attendanceArgs(att attendance.Attendance) []interface{} {
	args := []interface{}{att.ID, att.UserID, att.DateKey, att.AttendanceDate}
	args = append(args, slotArgs(att.Check1)...)
	args = append(args, slotArgs(att.Check2)...)
	args = append(args, slotArgs(att.Check3)...)
	return append(args,
		string(att.Status), att.IsManualEntry, att.ManualReason, att.Notes, att.LeaveRequestID, att.LeaveBackfill,
	)
}

// Get implements attendance.AttendanceRepository.
func (r *attendanceRepository) Get(ctx context.Context, id string) (attendance.Attendance, int64, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + attendanceColumns + ` FROM attendance_records WHERE id = $1`

	att, version, err := scanAttendance(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Attendance{}, 0, attendance.ErrAttendanceNotFound
		}
		return attendance.Attendance{}, 0, fmt.Errorf("failed to get attendance record: %w", err)
	}

	return att, version, nil
}

// Save implements attendance.AttendanceRepository.
func (r *attendanceRepository) Save(ctx context.Context, record attendance.Attendance, expectedVersion int64) (int64, error) {
	q := GetQuerier(ctx, r.db)
	args := attendanceArgs(record)

	var (
		query      string
		newVersion int64
	)
	if expectedVersion == 0 {
		query = `
			INSERT INTO attendance_records (
				id, user_id, date_key, attendance_date,
				check1_status, check1_timestamp, check1_latitude, check1_longitude,
				check2_status, check2_timestamp, check2_latitude, check2_longitude,
				check3_status, check3_timestamp, check3_latitude, check3_longitude,
				status, is_manual_entry, manual_reason, notes, leave_request_id, leave_backfill,
				version, created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
				$17, $18, $19, $20, $21, $22, 1, NOW(), NOW()
			)
			ON CONFLICT DO NOTHING
			RETURNING version
		`
	} else {
		query = `
			UPDATE attendance_records SET
				user_id = $2, date_key = $3, attendance_date = $4,
				check1_status = $5, check1_timestamp = $6, check1_latitude = $7, check1_longitude = $8,
				check2_status = $9, check2_timestamp = $10, check2_latitude = $11, check2_longitude = $12,
				check3_status = $13, check3_timestamp = $14, check3_latitude = $15, check3_longitude = $16,
				status = $17, is_manual_entry = $18, manual_reason = $19, notes = $20,
				leave_request_id = $21, leave_backfill = $22,
				version = version + 1, updated_at = NOW()
			WHERE id = $1 AND version = $23
			RETURNING version
		`
		args = append(args, expectedVersion)
	}

	err := q.QueryRow(ctx, query, args...).Scan(&newVersion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, attendance.ErrVersionConflict
		}
		return 0, fmt.Errorf("failed to save attendance record: %w", err)
	}

	return newVersion, nil
}

// Delete implements attendance.AttendanceRepository.
func (r *attendanceRepository) Delete(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM attendance_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete attendance record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrAttendanceNotFound
	}

	return nil
}

// ListByDate implements attendance.AttendanceRepository.
func (r *attendanceRepository) ListByDate(ctx context.Context, dateKey string, userID *string) ([]attendance.Attendance, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + attendanceColumns + `
		FROM attendance_records
		WHERE date_key = $1 AND ($2::text IS NULL OR user_id = $2)
		ORDER BY user_id`

	rows, err := q.Query(ctx, query, dateKey, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance records: %w", err)
	}
	return collectAttendance(rows)
}

// ListByUserRange implements attendance.AttendanceRepository.
func (r *attendanceRepository) ListByUserRange(ctx context.Context, userID, fromDateKey, toDateKey string) ([]attendance.Attendance, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + attendanceColumns + `
		FROM attendance_records
		WHERE user_id = $1 AND date_key BETWEEN $2 AND $3
		ORDER BY date_key`

	rows, err := q.Query(ctx, query, userID, fromDateKey, toDateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance records: %w", err)
	}
	return collectAttendance(rows)
}

func collectAttendance(rows pgx.Rows) ([]attendance.Attendance, error) {
	defer rows.Close()

	var records []attendance.Attendance
	for rows.Next() {
		att, _, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		records = append(records, att)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attendance records: %w", err)
	}

	return records, nil
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}
