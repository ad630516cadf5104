package booking_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/educonnectpro/educonnect/core"
	"github.com/educonnectpro/educonnect/core/booking"
	"github.com/educonnectpro/educonnect/core/payment"
	"github.com/educonnectpro/educonnect/core/user"
	inmemdb "github.com/educonnectpro/educonnect/storage/database/inmem"
	testutil "github.com/educonnectpro/educonnect/tests"
)

type fixture struct {
	svc  *booking.Service
	repo booking.Repository

	teacher, busyTeacher, student, otherStudent, parent, admin user.User
}

func newFixture(t *testing.T, configure ...func(*core.Config)) *fixture {
	t.Helper()
	conf := core.NewTestConfig()
	for _, fn := range configure {
		fn(conf)
	}
	db := inmemdb.Open()
	userRepo := inmemdb.NewUserRepository(db)
	users := user.NewService(userRepo, nil, nil, nil, conf)

	f := &fixture{repo: inmemdb.NewBookingRepository(db)}
	f.svc = booking.NewService(f.repo, users, payment.NewSimulator(conf, nil))

	f.teacher = testutil.CreateUser(t, userRepo, "Teacher", "teacher@example.com", "", user.RoleTeacher, true,
		user.TeacherProfile{Subjects: []string{"Maths", "Physics"}, HourlyRate: 450})
	f.busyTeacher = testutil.CreateUser(t, userRepo, "Busy", "busy@example.com", "", user.RoleTeacher, true)
	f.student = testutil.CreateUser(t, userRepo, "Student", "student@example.com", "", user.RoleStudent, true)
	f.otherStudent = testutil.CreateUser(t, userRepo, "Other Student", "os@example.com", "", user.RoleStudent, true)
	f.admin = testutil.CreateUser(t, userRepo, "Admin", "admin@example.com", "", user.RoleAdmin, true)
	f.parent = testutil.CreateUser(t, userRepo, "Parent", "parent@example.com", "", user.RoleParent, true,
		user.ParentProfile{ChildIDs: []string{f.student.ID}})
	return f
}

func (f *fixture) newBooking(t *testing.T, booker user.User) booking.HomeBooking {
	t.Helper()
	b, err := f.svc.Create(context.Background(), booker, booking.NewBooking{
		StudentID:   f.student.ID,
		TeacherID:   f.teacher.ID,
		Subject:     "maths",
		Address:     " 12 Lake Road ",
		ScheduledAt: time.Now().Add(48 * time.Hour),
		Hours:       1.5,
	})
	require.NoError(t, err)
	return b
}

func fieldOf(t *testing.T, err error) string {
	t.Helper()
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr), "want a validation error, got %v", err)
	return verr.Fields[0].Field
}

func TestService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b := f.newBooking(t, f.student)
	assert.Equal(t, f.student.ID, b.StudentID)
	assert.Equal(t, f.student.ID, b.BookedByID)
	assert.Equal(t, "12 Lake Road", b.Address)
	assert.Equal(t, 675.0, b.Amount)
	assert.Equal(t, booking.StatusPending, b.Status)

	byParent := f.newBooking(t, f.parent)
	assert.Equal(t, f.student.ID, byParent.StudentID)
	assert.Equal(t, f.parent.ID, byParent.BookedByID)

	future := time.Now().Add(time.Hour)
	tests := []struct {
		name      string
		booker    user.User
		nb        booking.NewBooking
		wantErr   error
		wantField string
	}{
		{
			name:    "teacher",
			booker:  f.teacher,
			nb:      booking.NewBooking{TeacherID: f.teacher.ID, Subject: "Maths", ScheduledAt: future, Hours: 1},
			wantErr: core.ErrPermissionDenied,
		},
		{
			name:      "parent of someone else",
			booker:    f.parent,
			nb:        booking.NewBooking{StudentID: f.otherStudent.ID, TeacherID: f.teacher.ID, Subject: "Maths", ScheduledAt: future, Hours: 1},
			wantField: "student_id",
		},
		{
			name:      "in the past",
			booker:    f.student,
			nb:        booking.NewBooking{TeacherID: f.teacher.ID, Subject: "Maths", ScheduledAt: time.Now().Add(-time.Hour), Hours: 1},
			wantField: "scheduled_at",
		},
		{
			name:      "unknown teacher",
			booker:    f.student,
			nb:        booking.NewBooking{TeacherID: f.student.ID, Subject: "Maths", ScheduledAt: future, Hours: 1},
			wantField: "teacher_id",
		},
		{
			name:      "subject not taught",
			booker:    f.student,
			nb:        booking.NewBooking{TeacherID: f.teacher.ID, Subject: "History", ScheduledAt: future, Hours: 1},
			wantField: "subject",
		},
		{
			name:    "no hourly rate",
			booker:  f.student,
			nb:      booking.NewBooking{TeacherID: f.busyTeacher.ID, Subject: "Maths", ScheduledAt: future, Hours: 1},
			wantErr: booking.ErrTeacherUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, tt.booker, tt.nb)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			assert.Equal(t, tt.wantField, fieldOf(t, err))
		})
	}
}

func TestService_ForUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.newBooking(t, f.student)
	f.newBooking(t, f.parent)

	tests := []struct {
		name string
		usr  user.User
		want int
	}{
		{name: "student", usr: f.student, want: 2},
		{name: "parent", usr: f.parent, want: 2},
		{name: "teacher", usr: f.teacher, want: 2},
		{name: "other teacher", usr: f.busyTeacher, want: 0},
		{name: "other student", usr: f.otherStudent, want: 0},
		{name: "admin", usr: f.admin, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bookings, err := f.svc.ForUser(ctx, tt.usr)
			require.NoError(t, err)
			assert.Len(t, bookings, tt.want)
		})
	}
}

func TestService_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.newBooking(t, f.parent)

	// the teacher cannot act on an unpaid booking
	_, err := f.svc.Respond(ctx, f.teacher, b.ID, true)
	assert.True(t, errors.Is(err, booking.ErrInvalidTransition))

	_, err = f.svc.Pay(ctx, f.otherStudent, b.ID)
	assert.Equal(t, core.ErrPermissionDenied, err)

	paid, err := f.svc.Pay(ctx, f.student, b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPaid, paid.Status)

	tx, err := f.svc.PaymentState(ctx, f.parent, b.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StateSuccess, tx.State)

	_, err = f.svc.Pay(ctx, f.student, b.ID)
	assert.True(t, errors.Is(err, booking.ErrInvalidTransition))

	_, err = f.svc.Respond(ctx, f.busyTeacher, b.ID, true)
	assert.Equal(t, core.ErrPermissionDenied, err)

	confirmed, err := f.svc.Respond(ctx, f.teacher, b.ID, true)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, confirmed.Status)

	_, err = f.svc.Cancel(ctx, f.student, b.ID)
	assert.True(t, errors.Is(err, booking.ErrInvalidTransition))

	done, err := f.svc.Complete(ctx, f.teacher, b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCompleted, done.Status)

	// rejection and cancellation
	rejected := f.newBooking(t, f.student)
	_, err = f.svc.Pay(ctx, f.student, rejected.ID)
	require.NoError(t, err)
	rejected, err = f.svc.Respond(ctx, f.teacher, rejected.ID, false)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusRejected, rejected.Status)

	cancelled := f.newBooking(t, f.student)
	cancelled, err = f.svc.Cancel(ctx, f.admin, cancelled.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, cancelled.Status)
}

func TestStatus_CanBecome(t *testing.T) {
	tests := []struct {
		from, to booking.Status
		want     bool
	}{
		{booking.StatusPending, booking.StatusPaid, true},
		{booking.StatusPending, booking.StatusCancelled, true},
		{booking.StatusPending, booking.StatusConfirmed, false},
		{booking.StatusPaid, booking.StatusConfirmed, true},
		{booking.StatusPaid, booking.StatusRejected, true},
		{booking.StatusPaid, booking.StatusCancelled, true},
		{booking.StatusConfirmed, booking.StatusCompleted, true},
		{booking.StatusConfirmed, booking.StatusCancelled, false},
		{booking.StatusCompleted, booking.StatusCancelled, false},
		{booking.StatusRejected, booking.StatusPaid, false},
		{booking.StatusCancelled, booking.StatusPending, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanBecome(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestService_ExpireStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stale := f.newBooking(t, f.student)
	paid := f.newBooking(t, f.student)
	_, err := f.svc.Pay(ctx, f.student, paid.ID)
	require.NoError(t, err)
	f.newBooking(t, f.student)

	// nothing is stale yet
	n, err := f.svc.ExpireStale(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.svc.ExpireStale(ctx, time.Now().Add(72*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := f.repo.GetBooking(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, got.Status)
	got, err = f.repo.GetBooking(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPaid, got.Status)
}

func TestService_PayRacingCancellation(t *testing.T) {
	tests := []struct {
		name   string
		cancel func(f *fixture, b booking.HomeBooking) error
	}{
		{
			name: "cancelled by the booker",
			cancel: func(f *fixture, b booking.HomeBooking) error {
				_, err := f.svc.Cancel(context.Background(), f.parent, b.ID)
				return err
			},
		},
		{
			name: "expired by the scheduler",
			cancel: func(f *fixture, b booking.HomeBooking) error {
				n, err := f.svc.ExpireStale(context.Background(), time.Now().Add(72*time.Hour))
				if err == nil && n != 1 {
					err = errors.Errorf("expired %d bookings, want 1", n)
				}
				return err
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(conf *core.Config) {
				conf.Payment.ProcessingDelay = 200 * time.Millisecond
				conf.Payment.ResetDelay = time.Hour
			})
			ctx := context.Background()
			b := f.newBooking(t, f.student)

			done := make(chan error)
			go func() {
				_, err := f.svc.Pay(ctx, f.student, b.ID)
				done <- err
			}()
			require.Eventually(t, func() bool {
				tx, _ := f.svc.PaymentState(ctx, f.student, b.ID)
				return tx.State == payment.StateProcessing
			}, time.Second, time.Millisecond)

			require.NoError(t, tt.cancel(f, b))

			err := <-done
			assert.True(t, errors.Is(err, payment.ErrPaymentFailed), "Pay() error = %v", err)
			got, err := f.repo.GetBooking(ctx, b.ID)
			require.NoError(t, err)
			assert.Equal(t, booking.StatusCancelled, got.Status)

			tx, err := f.svc.PaymentState(ctx, f.student, b.ID)
			require.NoError(t, err)
			assert.Equal(t, payment.StateIdle, tx.State)
			assert.Equal(t, payment.ErrPaymentFailed.Error(), tx.Message)
		})
	}
}

func TestService_StaleStatusWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.newBooking(t, f.student)

	// a stale copy of the booking, paid since it was read
	_, err := f.svc.Pay(ctx, f.student, b.ID)
	require.NoError(t, err)
	b.Status = booking.StatusCancelled
	_, err = f.repo.UpdateBooking(ctx, b, booking.StatusPending)
	assert.True(t, errors.Is(err, booking.ErrInvalidTransition))

	n, err := f.svc.ExpireStale(ctx, time.Now().Add(72*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
	got, err := f.repo.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusPaid, got.Status)
}
