package booking

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/educonnectpro/educonnect/core"
	"github.com/educonnectpro/educonnect/core/payment"
	"github.com/educonnectpro/educonnect/core/user"
)

var (
	// errors
	ErrNotFound           = errors.Wrap(core.ErrNotFound, "booking")
	ErrInvalidTransition  = errors.New("invalid booking status change")
	ErrTeacherUnavailable = errors.New("this teacher is not available for home tutoring")
)

type (
	Repository interface {
		CreateBooking(ctx context.Context, b HomeBooking) (HomeBooking, error)
		GetBooking(ctx context.Context, id string) (HomeBooking, error)
		// QueryBookings returns the matching bookings, soonest scheduled first.
		QueryBookings(ctx context.Context, filter Filter) ([]HomeBooking, error)
		// UpdateBooking stores `b` only while the stored booking is still in status `from`,
		// otherwise it returns ErrInvalidTransition.
		UpdateBooking(ctx context.Context, b HomeBooking, from Status) (HomeBooking, error)
	}

	// Teachers looks up marketplace teachers. Satisfied by *user.Service.
	Teachers interface {
		GetTeacher(ctx context.Context, id string) (user.User, error)
	}

	Service struct {
		repo     Repository
		teachers Teachers
		payments *payment.Simulator
	}
)

func NewService(repo Repository, teachers Teachers, payments *payment.Simulator) *Service {
	return &Service{repo: repo, teachers: teachers, payments: payments}
}

// Create books a teacher for a student. Parents book for a linked child.
// The amount is the teacher's hourly rate times the booked hours.
func (svc *Service) Create(ctx context.Context, booker user.User, nb NewBooking) (HomeBooking, error) {
	nb.Clean()
	switch {
	case booker.IsStudent():
		nb.StudentID = booker.ID
	case booker.IsParent():
		if !booker.IsParentOf(nb.StudentID) {
			return HomeBooking{}, core.NewValidationError(core.ErrPermissionDenied, core.FieldError{
				Field: "student_id",
				Error: "must be one of your children",
			})
		}
	default:
		return HomeBooking{}, core.ErrPermissionDenied
	}

	now := time.Now().UTC()
	if !nb.ScheduledAt.After(now) {
		return HomeBooking{}, core.NewValidationError(nil, core.FieldError{Field: "scheduled_at", Error: "must be in the future"})
	}

	teacher, err := svc.teachers.GetTeacher(ctx, nb.TeacherID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return HomeBooking{}, core.NewValidationError(err, core.FieldError{Field: "teacher_id", Error: "teacher not found"})
		}
		return HomeBooking{}, err
	}
	profile, _ := teacher.TeacherProfile()
	if profile.HourlyRate <= 0 {
		return HomeBooking{}, ErrTeacherUnavailable
	}
	if len(profile.Subjects) > 0 && !profile.TeachesSubject(nb.Subject) {
		return HomeBooking{}, core.NewValidationError(nil, core.FieldError{Field: "subject", Error: "this teacher does not teach this subject"})
	}

	return svc.repo.CreateBooking(ctx, HomeBooking{
		ID:          uuid.New().String(),
		StudentID:   nb.StudentID,
		BookedByID:  booker.ID,
		TeacherID:   teacher.ID,
		Subject:     nb.Subject,
		Address:     nb.Address,
		ScheduledAt: nb.ScheduledAt,
		Hours:       nb.Hours,
		Amount:      math.Round(profile.HourlyRate*nb.Hours*100) / 100,
		Status:      StatusPending,
		Notes:       nb.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

// ForUser returns the bookings of `usr` as a student, booker, parent, teacher or admin.
func (svc *Service) ForUser(ctx context.Context, usr user.User) ([]HomeBooking, error) {
	var filter Filter
	switch usr.Role {
	case user.RoleAdmin:
	case user.RoleTeacher:
		filter.TeacherID = usr.ID
	case user.RoleStudent:
		filter.StudentIDs = []string{usr.ID}
	case user.RoleParent:
		profile, _ := usr.ParentProfile()
		filter.StudentIDs = profile.ChildIDs
		filter.BookedByID = usr.ID
	default:
		return nil, core.ErrPermissionDenied
	}
	return svc.repo.QueryBookings(ctx, filter)
}

// isClient reports whether `usr` booked or attends the session.
func isClient(usr user.User, b HomeBooking) bool {
	return usr.ID == b.StudentID || usr.ID == b.BookedByID || usr.IsParentOf(b.StudentID)
}

func (svc *Service) get(ctx context.Context, usr user.User, id string, allowed func(user.User, HomeBooking) bool) (HomeBooking, error) {
	b, err := svc.repo.GetBooking(ctx, id)
	if err != nil {
		return HomeBooking{}, err
	}
	if !allowed(usr, b) {
		return HomeBooking{}, core.ErrPermissionDenied
	}
	return b, nil
}

func (svc *Service) transition(ctx context.Context, b HomeBooking, to Status) (HomeBooking, error) {
	if !b.Status.CanBecome(to) {
		return HomeBooking{}, errors.Wrap(ErrInvalidTransition, fmt.Sprintf("%s booking cannot become %s", b.Status, to))
	}
	from := b.Status
	b.Status = to
	b.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateBooking(ctx, b, from)
}

func paymentKey(id string) string {
	return "booking:" + id
}

// Pay runs the simulated payment of a pending booking.
// A booking cancelled while the payment is processing stays cancelled and the payment fails.
func (svc *Service) Pay(ctx context.Context, usr user.User, id string) (HomeBooking, error) {
	b, err := svc.get(ctx, usr, id, isClient)
	if err != nil {
		return HomeBooking{}, err
	}
	if !b.Status.CanBecome(StatusPaid) {
		return HomeBooking{}, errors.Wrap(ErrInvalidTransition, fmt.Sprintf("%s booking cannot be paid", b.Status))
	}

	var paid HomeBooking
	err = svc.payments.Confirm(ctx, paymentKey(id), func(ctx context.Context) error {
		var err error
		paid, err = svc.transition(ctx, b, StatusPaid)
		return err
	})
	if err != nil {
		return HomeBooking{}, err
	}
	return paid, nil
}

// PaymentState returns the state of the simulated payment of a booking.
func (svc *Service) PaymentState(ctx context.Context, usr user.User, id string) (payment.Transaction, error) {
	if _, err := svc.get(ctx, usr, id, isClient); err != nil {
		return payment.Transaction{}, err
	}
	return svc.payments.State(paymentKey(id)), nil
}

// Respond lets the booked teacher accept or reject a paid booking.
func (svc *Service) Respond(ctx context.Context, teacher user.User, id string, accept bool) (HomeBooking, error) {
	b, err := svc.get(ctx, teacher, id, isTeacherOf)
	if err != nil {
		return HomeBooking{}, err
	}
	to := StatusRejected
	if accept {
		to = StatusConfirmed
	}
	return svc.transition(ctx, b, to)
}

func isTeacherOf(usr user.User, b HomeBooking) bool {
	return usr.ID == b.TeacherID
}

// Complete marks a confirmed booking as done by its teacher.
func (svc *Service) Complete(ctx context.Context, teacher user.User, id string) (HomeBooking, error) {
	b, err := svc.get(ctx, teacher, id, isTeacherOf)
	if err != nil {
		return HomeBooking{}, err
	}
	return svc.transition(ctx, b, StatusCompleted)
}

// Cancel cancels a pending or paid booking. Allowed to its clients and admins.
func (svc *Service) Cancel(ctx context.Context, usr user.User, id string) (HomeBooking, error) {
	b, err := svc.get(ctx, usr, id, func(u user.User, b HomeBooking) bool { return u.IsAdmin() || isClient(u, b) })
	if err != nil {
		return HomeBooking{}, err
	}
	return svc.transition(ctx, b, StatusCancelled)
}

// ExpireStale cancels the unpaid bookings scheduled before `now` and returns how many were cancelled.
func (svc *Service) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	stale, err := svc.repo.QueryBookings(ctx, Filter{Statuses: []Status{StatusPending}, ScheduledBefore: now.UTC()})
	if err != nil {
		return 0, errors.Wrap(err, "querying stale bookings")
	}
	var n int
	for _, b := range stale {
		if _, err = svc.transition(ctx, b, StatusCancelled); err != nil {
			// paid or cancelled since the query
			if errors.Is(err, ErrInvalidTransition) {
				continue
			}
			return n, errors.Wrapf(err, "cancelling booking %s", b.ID)
		}
		n++
	}
	return n, nil
}
