package inmemdb

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/educonnectpro/educonnect/core/booking"
)

type bookingRepository struct {
	db *bookingTable
}

func NewBookingRepository(db *DB) booking.Repository {
	return &bookingRepository{db: db.booking}
}

func (repo *bookingRepository) CreateBooking(_ context.Context, b booking.HomeBooking) (booking.HomeBooking, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.table[b.ID] = &b
	return b, nil
}

func (repo *bookingRepository) GetBooking(_ context.Context, id string) (booking.HomeBooking, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if b, ok := repo.db.table[id]; ok {
		return *b, nil
	}
	return booking.HomeBooking{}, booking.ErrNotFound
}

func matchBooking(b *booking.HomeBooking, f booking.Filter) bool {
	if f.StudentIDs != nil || f.BookedByID != "" {
		if !contains(f.StudentIDs, b.StudentID) && (f.BookedByID == "" || b.BookedByID != f.BookedByID) {
			return false
		}
	}
	if f.TeacherID != "" && b.TeacherID != f.TeacherID {
		return false
	}
	if len(f.Statuses) > 0 {
		var ok bool
		for _, st := range f.Statuses {
			if b.Status == st {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if !f.ScheduledBefore.IsZero() && !b.ScheduledAt.Before(f.ScheduledBefore) {
		return false
	}
	return true
}

func (repo *bookingRepository) QueryBookings(_ context.Context, filter booking.Filter) ([]booking.HomeBooking, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	bookings := make([]booking.HomeBooking, 0)
	for _, b := range repo.db.table {
		if matchBooking(b, filter) {
			bookings = append(bookings, *b)
		}
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].ScheduledAt.Before(bookings[j].ScheduledAt) })
	return bookings, nil
}

func (repo *bookingRepository) UpdateBooking(_ context.Context, b booking.HomeBooking, from booking.Status) (booking.HomeBooking, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	stored, ok := repo.db.table[b.ID]
	if !ok {
		return booking.HomeBooking{}, booking.ErrNotFound
	}
	if stored.Status != from {
		return booking.HomeBooking{}, errors.Wrapf(booking.ErrInvalidTransition, "booking is now %s", stored.Status)
	}
	repo.db.table[b.ID] = &b
	return b, nil
}
