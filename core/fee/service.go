package fee

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/educonnectpro/educonnect/core"
	"github.com/educonnectpro/educonnect/core/classroom"
	"github.com/educonnectpro/educonnect/core/payment"
	"github.com/educonnectpro/educonnect/core/user"
)

var (
	// errors
	ErrNotFound    = errors.Wrap(core.ErrNotFound, "fee")
	ErrNotPayable  = errors.New("this fee has already been paid")
	ErrNotEnrolled = errors.New("student is not enrolled in this class")

	// ErrStatusChanged is returned by UpdateFee when the stored status is not an expected one.
	ErrStatusChanged = errors.New("fee status has changed")
)

type (
	Repository interface {
		CreateFee(ctx context.Context, f Fee) (Fee, error)
		GetFee(ctx context.Context, id string) (Fee, error)
		// QueryFees returns the matching fees, earliest due first.
		QueryFees(ctx context.Context, filter Filter) ([]Fee, error)
		// UpdateFee stores `f` only while the stored fee is in one of the `from` statuses, when given.
		UpdateFee(ctx context.Context, f Fee, from ...Status) (Fee, error)
	}

	// Classes checks class ownership & enrollment. Satisfied by *classroom.Service.
	Classes interface {
		OwnedClass(ctx context.Context, usr user.User, id string) (classroom.Class, error)
		IsEnrolled(ctx context.Context, classID, studentID string) (bool, error)
	}

	Service struct {
		repo     Repository
		classes  Classes
		payments *payment.Simulator
	}
)

func NewService(repo Repository, classes Classes, payments *payment.Simulator) *Service {
	return &Service{repo: repo, classes: classes, payments: payments}
}

// CreateFee bills a student enrolled in a class owned by `teacher`.
func (svc *Service) CreateFee(ctx context.Context, teacher user.User, nf NewFee) (Fee, error) {
	nf.Clean()
	if _, err := svc.classes.OwnedClass(ctx, teacher, nf.ClassID); err != nil {
		return Fee{}, err
	}
	enrolled, err := svc.classes.IsEnrolled(ctx, nf.ClassID, nf.StudentID)
	if err != nil {
		return Fee{}, err
	}
	if !enrolled {
		return Fee{}, core.NewValidationError(ErrNotEnrolled, core.FieldError{Field: "student_id", Error: ErrNotEnrolled.Error()})
	}
	return svc.repo.CreateFee(ctx, Fee{
		ID:          uuid.New().String(),
		StudentID:   nf.StudentID,
		ClassID:     nf.ClassID,
		Description: nf.Description,
		Amount:      nf.Amount,
		DueDate:     nf.DueDate,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	})
}

func canPay(viewer user.User, f Fee) bool {
	return viewer.ID == f.StudentID || viewer.IsParentOf(f.StudentID)
}

// StudentFees returns the fees of a student, visible to the student, their parents and admins.
func (svc *Service) StudentFees(ctx context.Context, viewer user.User, studentID string) ([]Fee, error) {
	if viewer.ID != studentID && !viewer.IsParentOf(studentID) && !viewer.IsAdmin() {
		return nil, core.ErrPermissionDenied
	}
	return svc.repo.QueryFees(ctx, Filter{StudentID: studentID})
}

// ClassFees returns the fees of a class owned by `teacher`.
func (svc *Service) ClassFees(ctx context.Context, teacher user.User, classID string) ([]Fee, error) {
	if _, err := svc.classes.OwnedClass(ctx, teacher, classID); err != nil {
		return nil, err
	}
	return svc.repo.QueryFees(ctx, Filter{ClassID: classID})
}

func (svc *Service) payable(ctx context.Context, viewer user.User, id string) (Fee, error) {
	f, err := svc.repo.GetFee(ctx, id)
	if err != nil {
		return Fee{}, err
	}
	if !canPay(viewer, f) {
		return Fee{}, core.ErrPermissionDenied
	}
	return f, nil
}

func paymentKey(id string) string {
	return "fee:" + id
}

// Pay runs the simulated payment of a pending or overdue fee by the student or a linked parent.
func (svc *Service) Pay(ctx context.Context, viewer user.User, id string) (Fee, error) {
	f, err := svc.payable(ctx, viewer, id)
	if err != nil {
		return Fee{}, err
	}
	if !f.Status.Payable() {
		return Fee{}, ErrNotPayable
	}

	err = svc.payments.Confirm(ctx, paymentKey(id), func(ctx context.Context) error {
		f.Status = StatusPaid
		f.PaidAt = time.Now().UTC()
		f, err = svc.repo.UpdateFee(ctx, f, StatusPending, StatusOverdue)
		return err
	})
	if err != nil {
		return Fee{}, err
	}
	return f, nil
}

// PaymentState returns the state of the simulated payment of a fee.
func (svc *Service) PaymentState(ctx context.Context, viewer user.User, id string) (payment.Transaction, error) {
	if _, err := svc.payable(ctx, viewer, id); err != nil {
		return payment.Transaction{}, err
	}
	return svc.payments.State(paymentKey(id)), nil
}

// MarkOverdue flags the pending fees due before `now` and returns how many were updated.
func (svc *Service) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	fees, err := svc.repo.QueryFees(ctx, Filter{Statuses: []Status{StatusPending}, DueBefore: now.UTC()})
	if err != nil {
		return 0, errors.Wrap(err, "querying pending fees")
	}
	var n int
	for _, f := range fees {
		f.Status = StatusOverdue
		if _, err = svc.repo.UpdateFee(ctx, f, StatusPending); err != nil {
			// paid since the query
			if errors.Is(err, ErrStatusChanged) {
				continue
			}
			return n, errors.Wrapf(err, "updating fee %s", f.ID)
		}
		n++
	}
	return n, nil
}
