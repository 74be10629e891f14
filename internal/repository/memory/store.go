// Package memory keeps every repository in process memory. It backs the
// "memory" database driver and the service tests. Transactions serialize
// callers and undo their own writes when the transaction function fails.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attachment"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/audit"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/company"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/jobflag"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/penalty"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/database"
)

type versionedAttendance struct {
	record  attendance.Attendance
	version int64
}

type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex
	now  func() time.Time

	settings      *company.Settings
	users         map[string]user.User
	attendance    map[string]versionedAttendance
	penalties     map[string]penalty.Penalty
	leaves        map[string]leave.LeaveRequest
	attachments   map[string]attachment.Attachment
	notifications []*notification.Notification
	auditLogs     []audit.Entry
	flags         map[string]jobflag.Flag
}

func NewStore() *Store {
	return &Store{
		now:         time.Now,
		users:       make(map[string]user.User),
		attendance:  make(map[string]versionedAttendance),
		penalties:   make(map[string]penalty.Penalty),
		leaves:      make(map[string]leave.LeaveRequest),
		attachments: make(map[string]attachment.Attachment),
		flags:       make(map[string]jobflag.Flag),
	}
}

// SetClock replaces the clock used for timestamps and lease staleness.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) Settings() company.SettingsRepository        { return settingsRepository{s} }
func (s *Store) Users() user.UserRepository                  { return userRepository{s} }
func (s *Store) Attendance() attendance.AttendanceRepository { return attendanceRepository{s} }
func (s *Store) Penalties() penalty.PenaltyRepository        { return penaltyRepository{s} }
func (s *Store) LeaveRequests() leave.LeaveRequestRepository { return leaveRequestRepository{s} }
func (s *Store) Attachments() attachment.Repository          { return attachmentRepository{s} }
func (s *Store) Notifications() notification.Repository      { return notificationRepository{s} }
func (s *Store) AuditLogs() audit.Repository                 { return auditRepository{s} }
func (s *Store) JobFlags() jobflag.Guard                     { return jobFlagGuard{s} }
func (s *Store) Transactor() database.Transactor             { return transactor{s} }

// PutUser inserts or replaces a user.
func (s *Store) PutUser(u user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	u.UpdatedAt = s.now()
	s.users[u.ID] = u
}

// PutAttachment inserts or replaces an attachment.
func (s *Store) PutAttachment(a attachment.Attachment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	s.attachments[a.ID] = a
}

// Flag returns the stored job flag.
func (s *Store) Flag(id string) (jobflag.Flag, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flags[id]
	return f, ok
}

type txKey struct{}

// txJournal collects undo steps for writes made inside one transaction.
type txJournal struct {
	undo []func()
}

// track registers undo for the write being made under s.mu. Writes outside a
// transaction are not journaled.
func (s *Store) track(ctx context.Context, undo func()) {
	if j, ok := ctx.Value(txKey{}).(*txJournal); ok {
		j.undo = append(j.undo, undo)
	}
}

// restoreEntry returns an undo step that puts m[key] back to its current state.
func restoreEntry[K comparable, V any](m map[K]V, key K) func() {
	old, existed := m[key]
	return func() {
		if existed {
			m[key] = old
		} else {
			delete(m, key)
		}
	}
}

type transactor struct {
	s *Store
}

func (t transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*txJournal); ok {
		return fn(ctx)
	}
	t.s.txMu.Lock()
	defer t.s.txMu.Unlock()

	j := &txJournal{}
	if err := fn(context.WithValue(ctx, txKey{}, j)); err != nil {
		t.s.mu.Lock()
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		t.s.mu.Unlock()
		return err
	}
	return nil
}
