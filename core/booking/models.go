package booking

import (
	"time"

	"github.com/educonnectpro/educonnect/core"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusRejected  Status = "rejected"
)

// transitions lists the statuses reachable from each status.
var transitions = map[Status][]Status{
	StatusPending:   {StatusPaid, StatusCancelled},
	StatusPaid:      {StatusConfirmed, StatusRejected, StatusCancelled},
	StatusConfirmed: {StatusCompleted},
}

func (s Status) CanBecome(to Status) bool {
	for _, st := range transitions[s] {
		if st == to {
			return true
		}
	}
	return false
}

// HomeBooking is a home tutoring session booked with a teacher.
type HomeBooking struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student_id"`
	BookedByID  string    `json:"booked_by_id"` // the student or a parent
	TeacherID   string    `json:"teacher_id"`
	Subject     string    `json:"subject"`
	Address     string    `json:"address"`
	ScheduledAt time.Time `json:"scheduled_at"` // UTC
	Hours       float64   `json:"hours"`
	Amount      float64   `json:"amount"`
	Status      Status    `json:"status"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

type NewBooking struct {
	StudentID   string    `json:"student_id"` // required when booked by a parent
	TeacherID   string    `json:"teacher_id" validate:"required"`
	Subject     string    `json:"subject" validate:"required,notblank"`
	Address     string    `json:"address" validate:"required,notblank,max=300"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Hours       float64   `json:"hours" validate:"gt=0,lte=12"`
	Notes       string    `json:"notes" validate:"max=1000"`
}

func (nb *NewBooking) Clean() {
	nb.StudentID = core.CleanString(nb.StudentID)
	nb.TeacherID = core.CleanString(nb.TeacherID)
	nb.Subject = core.CleanString(nb.Subject)
	nb.Address = core.CleanString(nb.Address)
	nb.Notes = core.CleanString(nb.Notes)
	nb.ScheduledAt = nb.ScheduledAt.UTC()
}

// Filter applies AND operation on its non-empty fields, except StudentIDs and BookedByID which are OR-ed.
type Filter struct {
	StudentIDs      []string
	BookedByID      string
	TeacherID       string
	Statuses        []Status
	ScheduledBefore time.Time
}
