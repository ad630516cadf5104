package fee_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/educonnectpro/educonnect/core"
	"github.com/educonnectpro/educonnect/core/classroom"
	"github.com/educonnectpro/educonnect/core/fee"
	"github.com/educonnectpro/educonnect/core/payment"
	"github.com/educonnectpro/educonnect/core/user"
	inmemdb "github.com/educonnectpro/educonnect/storage/database/inmem"
	testutil "github.com/educonnectpro/educonnect/tests"
)

type fixture struct {
	svc      *fee.Service
	repo     fee.Repository
	payments *payment.Simulator

	teacher, otherTeacher, student, otherStudent, parent, admin user.User
	class                                                       classroom.Class
}

func newFixture(t *testing.T, configure ...func(*core.Config)) *fixture {
	t.Helper()
	ctx := context.Background()
	conf := core.NewTestConfig()
	for _, fn := range configure {
		fn(conf)
	}
	db := inmemdb.Open()
	userRepo := inmemdb.NewUserRepository(db)
	users := user.NewService(userRepo, nil, nil, nil, conf)
	classes := classroom.NewService(inmemdb.NewClassroomRepository(db), users)

	f := &fixture{repo: inmemdb.NewFeeRepository(db), payments: payment.NewSimulator(conf, nil)}
	f.svc = fee.NewService(f.repo, classes, f.payments)

	f.teacher = testutil.CreateUser(t, userRepo, "Teacher", "teacher@example.com", "", user.RoleTeacher, true)
	f.otherTeacher = testutil.CreateUser(t, userRepo, "Other", "other@example.com", "", user.RoleTeacher, true)
	f.student = testutil.CreateUser(t, userRepo, "Student", "student@example.com", "", user.RoleStudent, true)
	f.otherStudent = testutil.CreateUser(t, userRepo, "Other Student", "os@example.com", "", user.RoleStudent, true)
	f.admin = testutil.CreateUser(t, userRepo, "Admin", "admin@example.com", "", user.RoleAdmin, true)
	f.parent = testutil.CreateUser(t, userRepo, "Parent", "parent@example.com", "", user.RoleParent, true,
		user.ParentProfile{ChildIDs: []string{f.student.ID}})

	var err error
	f.class, err = classes.CreateClass(ctx, f.teacher, classroom.NewClass{Name: "Maths", Subject: "Maths", MonthlyFee: 1500})
	require.NoError(t, err)
	_, err = classes.Enroll(ctx, f.student, f.class.Code)
	require.NoError(t, err)
	return f
}

func (f *fixture) newFee(t *testing.T, due time.Time) fee.Fee {
	t.Helper()
	fe, err := f.svc.CreateFee(context.Background(), f.teacher, fee.NewFee{
		StudentID:   f.student.ID,
		ClassID:     f.class.ID,
		Description: " March fee ",
		Amount:      1500,
		DueDate:     due,
	})
	require.NoError(t, err)
	return fe
}

func TestService_CreateFee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	due := time.Now().Add(72 * time.Hour)

	fe := f.newFee(t, due)
	assert.Equal(t, "March fee", fe.Description)
	assert.Equal(t, fee.StatusPending, fe.Status)
	assert.True(t, fe.PaidAt.IsZero())

	_, err := f.svc.CreateFee(ctx, f.otherTeacher, fee.NewFee{StudentID: f.student.ID, ClassID: f.class.ID, Description: "x", Amount: 1, DueDate: due})
	assert.Equal(t, core.ErrPermissionDenied, err)

	_, err = f.svc.CreateFee(ctx, f.teacher, fee.NewFee{StudentID: f.otherStudent.ID, ClassID: f.class.ID, Description: "x", Amount: 1, DueDate: due})
	assert.True(t, errors.Is(err, fee.ErrNotEnrolled))

	for _, viewer := range []user.User{f.student, f.parent, f.admin} {
		fees, err := f.svc.StudentFees(ctx, viewer, f.student.ID)
		require.NoError(t, err, viewer.Name)
		assert.Len(t, fees, 1, viewer.Name)
	}
	_, err = f.svc.StudentFees(ctx, f.otherStudent, f.student.ID)
	assert.Equal(t, core.ErrPermissionDenied, err)

	fees, err := f.svc.ClassFees(ctx, f.teacher, f.class.ID)
	require.NoError(t, err)
	assert.Len(t, fees, 1)
	_, err = f.svc.ClassFees(ctx, f.otherTeacher, f.class.ID)
	assert.Equal(t, core.ErrPermissionDenied, err)
}

func TestService_Pay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fe := f.newFee(t, time.Now().Add(time.Hour))

	_, err := f.svc.Pay(ctx, f.otherStudent, fe.ID)
	assert.Equal(t, core.ErrPermissionDenied, err)

	tx, err := f.svc.PaymentState(ctx, f.parent, fe.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StateIdle, tx.State)

	paid, err := f.svc.Pay(ctx, f.parent, fe.ID)
	require.NoError(t, err)
	assert.Equal(t, fee.StatusPaid, paid.Status)
	assert.False(t, paid.PaidAt.IsZero())

	tx, err = f.svc.PaymentState(ctx, f.student, fe.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StateSuccess, tx.State)

	_, err = f.svc.Pay(ctx, f.student, fe.ID)
	assert.Equal(t, fee.ErrNotPayable, err)

	// success resets to idle
	assert.Eventually(t, func() bool {
		tx, _ := f.svc.PaymentState(ctx, f.student, fe.ID)
		return tx.State == payment.StateIdle
	}, time.Second, 10*time.Millisecond)
}

func TestService_MarkOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	late := f.newFee(t, now.Add(-24*time.Hour))
	upcoming := f.newFee(t, now.Add(24*time.Hour))
	paid := f.newFee(t, now.Add(-48*time.Hour))
	_, err := f.svc.Pay(ctx, f.student, paid.ID)
	require.NoError(t, err)

	n, err := f.svc.MarkOverdue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.repo.GetFee(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, fee.StatusOverdue, got.Status)
	got, err = f.repo.GetFee(ctx, upcoming.ID)
	require.NoError(t, err)
	assert.Equal(t, fee.StatusPending, got.Status)
	got, err = f.repo.GetFee(ctx, paid.ID)
	require.NoError(t, err)
	assert.Equal(t, fee.StatusPaid, got.Status)

	// overdue fees stay payable
	_, err = f.svc.Pay(ctx, f.student, late.ID)
	assert.NoError(t, err)

	n, err = f.svc.MarkOverdue(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// paidAfterQuery pays the queried fees right after QueryFees returns.
type paidAfterQuery struct {
	fee.Repository
}

func (repo paidAfterQuery) QueryFees(ctx context.Context, filter fee.Filter) ([]fee.Fee, error) {
	fees, err := repo.Repository.QueryFees(ctx, filter)
	for _, f := range fees {
		f.Status = fee.StatusPaid
		f.PaidAt = time.Now().UTC()
		if _, err := repo.Repository.UpdateFee(ctx, f); err != nil {
			return nil, err
		}
	}
	return fees, err
}

func TestService_MarkOverdueKeepsPaidFees(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	late := f.newFee(t, time.Now().Add(-24*time.Hour))

	svc := fee.NewService(paidAfterQuery{f.repo}, nil, f.payments)
	n, err := svc.MarkOverdue(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := f.repo.GetFee(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, fee.StatusPaid, got.Status)

	_, err = f.repo.UpdateFee(ctx, got, fee.StatusPending)
	assert.True(t, errors.Is(err, fee.ErrStatusChanged))
}

func TestService_PayWhileMarkedOverdue(t *testing.T) {
	f := newFixture(t, func(conf *core.Config) { conf.Payment.ProcessingDelay = 200 * time.Millisecond })
	ctx := context.Background()
	late := f.newFee(t, time.Now().Add(-24*time.Hour))

	done := make(chan error)
	go func() {
		_, err := f.svc.Pay(ctx, f.student, late.ID)
		done <- err
	}()
	require.Eventually(t, func() bool {
		tx, _ := f.svc.PaymentState(ctx, f.student, late.ID)
		return tx.State == payment.StateProcessing
	}, time.Second, time.Millisecond)

	n, err := f.svc.MarkOverdue(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, <-done)
	got, err := f.repo.GetFee(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, fee.StatusPaid, got.Status)
}
