package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/jobflag"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/presence-backend-go/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttendanceSaveIsVersioned(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Attendance()
	rec := attendance.New("u1", "2024-03-18", time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC))

	version, err := repo.Save(ctx, rec, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	_, err = repo.Save(ctx, rec, 0)
	assert.ErrorIs(t, err, attendance.ErrVersionConflict, "insert must not overwrite")

	rec.Status = attendance.StatusInProgress
	version, err = repo.Save(ctx, rec, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	_, err = repo.Save(ctx, rec, 1)
	assert.ErrorIs(t, err, attendance.ErrVersionConflict, "stale version must be rejected")

	got, v, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
	assert.Equal(t, attendance.StatusInProgress, got.Status)
}

func TestJobFlagLease(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	now := time.Date(2024, 3, 18, 18, 30, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })
	guard := store.JobFlags()
	stale := 10 * time.Minute

	ok, err := guard.Claim(ctx, "finalization_2024-03-18", stale)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = guard.Claim(ctx, "finalization_2024-03-18", stale)
	require.NoError(t, err)
	assert.False(t, ok, "fresh processing flag is held")

	now = now.Add(11 * time.Minute)
	ok, err = guard.Claim(ctx, "finalization_2024-03-18", stale)
	require.NoError(t, err)
	assert.True(t, ok, "stale heartbeat can be taken over")

	require.NoError(t, guard.Fail(ctx, "finalization_2024-03-18", errors.New("boom")))
	message, failed, err := guard.LastError(ctx, "finalization_2024-03-18")
	require.NoError(t, err)
	assert.True(t, failed)
	assert.Equal(t, "boom", message)

	ok, err = guard.Claim(ctx, "finalization_2024-03-18", stale)
	require.NoError(t, err)
	assert.True(t, ok, "errored flag can be retried")

	_, failed, err = guard.LastError(ctx, "finalization_2024-03-18")
	require.NoError(t, err)
	assert.False(t, failed, "a reclaimed flag is processing again")

	require.NoError(t, guard.Complete(ctx, "finalization_2024-03-18", map[string]interface{}{"processed": 3}))
	ok, err = guard.Claim(ctx, "finalization_2024-03-18", stale)
	require.NoError(t, err)
	assert.False(t, ok, "completed flag is final")

	flag, found := store.Flag("finalization_2024-03-18")
	require.True(t, found)
	assert.Equal(t, jobflag.StatusCompleted, flag.Status)
}

func TestTransactorJoinsOuterTransaction(t *testing.T) {
	tx := NewStore().Transactor()
	calls := 0
	err := tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
		return tx.WithinTransaction(ctx, func(ctx context.Context) error {
			calls++
			return nil
		})
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestTransactorUndoesWritesOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.PutUser(user.User{ID: "emp-1", Role: user.RoleEmployee, IsActive: true, FullLeaveBalance: 5})
	existing := attendance.New("emp-1", "2024-03-19", time.Date(2024, 3, 19, 0, 0, 0, 0, time.UTC))
	_, err := store.Attendance().Save(ctx, existing, 0)
	require.NoError(t, err)

	failure := errors.New("backfill failed")
	err = store.Transactor().WithinTransaction(ctx, func(txCtx context.Context) error {
		u, err := store.Users().GetByIDForUpdate(txCtx, "emp-1")
		require.NoError(t, err)
		u.FullLeaveBalance = 2
		require.NoError(t, store.Users().UpdateLeaveBalances(txCtx, u))

		require.NoError(t, store.Attendance().Delete(txCtx, existing.ID))
		created := attendance.New("emp-1", "2024-03-20", time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC))
		_, err = store.Attendance().Save(txCtx, created, 0)
		require.NoError(t, err)

		_, err = store.LeaveRequests().Create(txCtx, leave.LeaveRequest{ID: "leave-1", UserID: "emp-1"})
		require.NoError(t, err)
		require.NoError(t, store.Notifications().Create(txCtx, &notification.Notification{RecipientID: "emp-1"}))
		return failure
	})
	require.ErrorIs(t, err, failure)

	u, err := store.Users().GetByID(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, 5.0, u.FullLeaveBalance)

	_, v, err := store.Attendance().Get(ctx, existing.ID)
	require.NoError(t, err, "deleted record is restored")
	assert.Equal(t, int64(1), v)
	_, _, err = store.Attendance().Get(ctx, "emp-1_2024-03-20")
	assert.ErrorIs(t, err, attendance.ErrAttendanceNotFound)

	_, err = store.LeaveRequests().GetByID(ctx, "leave-1")
	assert.ErrorIs(t, err, leave.ErrLeaveRequestNotFound)

	_, total, err := store.Notifications().GetByUserID(ctx, "emp-1", 1, 10, false)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestTransactorKeepsWritesOnSuccess(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.PutUser(user.User{ID: "emp-1", Role: user.RoleEmployee, IsActive: true, FullLeaveBalance: 5})

	err := store.Transactor().WithinTransaction(ctx, func(txCtx context.Context) error {
		u, err := store.Users().GetByIDForUpdate(txCtx, "emp-1")
		if err != nil {
			return err
		}
		u.FullLeaveBalance = 3
		return store.Users().UpdateLeaveBalances(txCtx, u)
	})
	require.NoError(t, err)

	u, err := store.Users().GetByID(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, 3.0, u.FullLeaveBalance)
}
