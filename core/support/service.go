package support

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/educonnectpro/educonnect/core"
	"github.com/educonnectpro/educonnect/core/user"
)

var ErrNotFound = errors.Wrap(core.ErrNotFound, "ticket")

type (
	Repository interface {
		CreateTicket(ctx context.Context, t Ticket) (Ticket, error)
		GetTicket(ctx context.Context, id string) (Ticket, error)
		// QueryTickets returns the matching tickets, newest first.
		QueryTickets(ctx context.Context, filter Filter) ([]Ticket, error)
		UpdateTicket(ctx context.Context, t Ticket) (Ticket, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
	}
)

func NewService(repo Repository, mailSvc core.EmailService) *Service {
	return &Service{repo: repo, mailSvc: mailSvc}
}

// Open files a ticket and emails an acknowledgement to users with an email address.
func (svc *Service) Open(ctx context.Context, usr user.User, nt NewTicket) (Ticket, error) {
	nt.Clean()
	now := time.Now().UTC()
	t, err := svc.repo.CreateTicket(ctx, Ticket{
		ID:        uuid.New().String(),
		UserID:    usr.ID,
		Subject:   nt.Subject,
		Message:   nt.Message,
		Category:  nt.Category,
		Status:    StatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Ticket{}, errors.Wrap(err, "creating ticket")
	}

	if usr.Email != "" {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
			Subject:      "We received your request",
			TemplateName: "ticket_received",
			TemplateData: map[string]string{
				"Name":     usr.Name,
				"Subject":  t.Subject,
				"TicketID": t.ID,
			},
		})
	}
	return t, nil
}

func (svc *Service) Mine(ctx context.Context, usr user.User) ([]Ticket, error) {
	return svc.repo.QueryTickets(ctx, Filter{UserID: usr.ID})
}

func (svc *Service) All(ctx context.Context, admin user.User, filter Filter) ([]Ticket, error) {
	if !admin.IsAdmin() {
		return nil, core.ErrPermissionDenied
	}
	return svc.repo.QueryTickets(ctx, filter)
}

// Update sets the status and response of a ticket.
func (svc *Service) Update(ctx context.Context, admin user.User, id string, ut UpdateTicket) (Ticket, error) {
	if !admin.IsAdmin() {
		return Ticket{}, core.ErrPermissionDenied
	}
	t, err := svc.repo.GetTicket(ctx, id)
	if err != nil {
		return Ticket{}, err
	}
	t.Status = ut.Status
	if resp := core.CleanString(ut.Response); resp != "" {
		t.Response = resp
	}
	t.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateTicket(ctx, t)
}
