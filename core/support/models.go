package support

import (
	"time"

	"github.com/educonnectpro/educonnect/core"
)

type (
	Status   string
	Category string
)

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"

	CategoryGeneral   Category = "general"
	CategoryBilling   Category = "billing"
	CategoryTechnical Category = "technical"
	CategoryAccount   Category = "account"
	CategoryOther     Category = "other"
)

type Ticket struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Category  Category  `json:"category"`
	Status    Status    `json:"status"`
	Response  string    `json:"response,omitempty"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type NewTicket struct {
	Subject  string   `json:"subject" validate:"required,notblank,max=200"`
	Message  string   `json:"message" validate:"required,notblank,max=5000"`
	Category Category `json:"category" validate:"omitempty,oneof=general billing technical account other"`
}

func (nt *NewTicket) Clean() {
	nt.Subject = core.CleanString(nt.Subject)
	nt.Message = core.CleanString(nt.Message)
	if nt.Category == "" {
		nt.Category = CategoryGeneral
	}
}

type UpdateTicket struct {
	Status   Status `json:"status" validate:"required,oneof=open in_progress resolved closed"`
	Response string `json:"response" validate:"max=5000"`
}

type Filter struct {
	UserID   string   `query:"-"`
	Statuses []Status `query:"status"`
	Category Category `query:"category"`
}
