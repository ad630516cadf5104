package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/educonnectpro/educonnect/core/booking"
)

var bookingColumns = []string{
	"id", "student_id", "booked_by_id", "teacher_id", "subject", "address", "scheduled_at",
	"hours", "amount", "status", "notes", "created_at", "updated_at",
}

type bookingRepository struct {
	db *sqlx.DB
}

var _ booking.Repository = (*bookingRepository)(nil) // interface compliance check

func NewBookingRepository(db *sqlx.DB) booking.Repository {
	return &bookingRepository{db: db}
}

func (repo *bookingRepository) CreateBooking(ctx context.Context, b booking.HomeBooking) (booking.HomeBooking, error) {
	query, args, err := psql.Insert("home_bookings").Columns(bookingColumns...).Values(
		b.ID, b.StudentID, b.BookedByID, b.TeacherID, b.Subject, b.Address, b.ScheduledAt.UTC(),
		b.Hours, b.Amount, string(b.Status), b.Notes, b.CreatedAt.UTC(), b.UpdatedAt.UTC(),
	).ToSql()
	if err != nil {
		return booking.HomeBooking{}, errors.Wrap(err, "building insert query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return booking.HomeBooking{}, errors.Wrap(err, "inserting booking")
	}
	return b, nil
}

func (repo *bookingRepository) GetBooking(ctx context.Context, id string) (booking.HomeBooking, error) {
	if _, err := uuid.Parse(id); err != nil {
		return booking.HomeBooking{}, booking.ErrNotFound
	}
	query, args, err := psql.Select(bookingColumns...).From("home_bookings").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return booking.HomeBooking{}, errors.Wrap(err, "building booking query")
	}
	var b booking.HomeBooking
	if err = repo.db.GetContext(ctx, &b, query, args...); err != nil {
		return booking.HomeBooking{}, trapNoRowsErr(err, booking.ErrNotFound, "finding booking")
	}
	return b, nil
}

func (repo *bookingRepository) QueryBookings(ctx context.Context, filter booking.Filter) ([]booking.HomeBooking, error) {
	where := sq.And{}
	if filter.StudentIDs != nil || filter.BookedByID != "" {
		clients := sq.Or{}
		if len(filter.StudentIDs) > 0 {
			clients = append(clients, sq.Eq{"student_id": filter.StudentIDs})
		}
		if filter.BookedByID != "" {
			clients = append(clients, sq.Eq{"booked_by_id": filter.BookedByID})
		}
		if len(clients) == 0 {
			return []booking.HomeBooking{}, nil
		}
		where = append(where, clients)
	}
	if filter.TeacherID != "" {
		where = append(where, sq.Eq{"teacher_id": filter.TeacherID})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		where = append(where, sq.Eq{"status": statuses})
	}
	if !filter.ScheduledBefore.IsZero() {
		where = append(where, sq.Lt{"scheduled_at": filter.ScheduledBefore.UTC()})
	}

	query, args, err := psql.Select(bookingColumns...).From("home_bookings").Where(where).OrderBy("scheduled_at").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building bookings query")
	}
	bookings := make([]booking.HomeBooking, 0)
	if err = repo.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying bookings")
	}
	return bookings, nil
}

func (repo *bookingRepository) UpdateBooking(ctx context.Context, b booking.HomeBooking, from booking.Status) (booking.HomeBooking, error) {
	query, args, err := psql.Update("home_bookings").
		Set("status", string(b.Status)).
		Set("notes", b.Notes).
		Set("updated_at", b.UpdatedAt.UTC()).
		Where(sq.Eq{"id": b.ID, "status": string(from)}).
		ToSql()
	if err != nil {
		return booking.HomeBooking{}, errors.Wrap(err, "building update query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return booking.HomeBooking{}, errors.Wrap(err, "updating booking")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		stored, err := repo.GetBooking(ctx, b.ID)
		if err != nil {
			return booking.HomeBooking{}, err
		}
		return booking.HomeBooking{}, errors.Wrapf(booking.ErrInvalidTransition, "booking is now %s", stored.Status)
	}
	return b, nil
}
