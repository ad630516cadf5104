package fee

import (
	"time"

	"github.com/educonnectpro/educonnect/core"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

// Payable reports whether a fee in this status can be paid.
func (s Status) Payable() bool {
	return s == StatusPending || s == StatusOverdue
}

type Fee struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"student_id"`
	ClassID     string    `json:"class_id"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	DueDate     time.Time `json:"due_date"` // UTC
	Status      Status    `json:"status"`
	PaidAt      time.Time `json:"paid_at,omitempty"` // UTC
	CreatedAt   time.Time `json:"created_at"`        // UTC
}

type NewFee struct {
	StudentID   string    `json:"student_id" validate:"required"`
	ClassID     string    `json:"class_id" validate:"required"`
	Description string    `json:"description" validate:"required,notblank,max=200"`
	Amount      float64   `json:"amount" validate:"gt=0"`
	DueDate     time.Time `json:"due_date" validate:"required"`
}

func (nf *NewFee) Clean() {
	nf.StudentID = core.CleanString(nf.StudentID)
	nf.ClassID = core.CleanString(nf.ClassID)
	nf.Description = core.CleanString(nf.Description)
	nf.DueDate = nf.DueDate.UTC()
}

// Filter applies AND operation on its non-empty fields.
type Filter struct {
	StudentID string
	ClassID   string
	Statuses  []Status
	DueBefore time.Time
}
