package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/educonnectpro/educonnect/core/support"
)

var ticketColumns = []string{
	"id", "user_id", "subject", "message", "category", "status", "response", "created_at", "updated_at",
}

type ticketRepository struct {
	db *sqlx.DB
}

var _ support.Repository = (*ticketRepository)(nil) // interface compliance check

func NewTicketRepository(db *sqlx.DB) support.Repository {
	return &ticketRepository{db: db}
}

func (repo *ticketRepository) CreateTicket(ctx context.Context, t support.Ticket) (support.Ticket, error) {
	query, args, err := psql.Insert("support_tickets").Columns(ticketColumns...).Values(
		t.ID, t.UserID, t.Subject, t.Message, string(t.Category), string(t.Status), t.Response,
		t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
	).ToSql()
	if err != nil {
		return support.Ticket{}, errors.Wrap(err, "building insert query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return support.Ticket{}, errors.Wrap(err, "inserting ticket")
	}
	return t, nil
}

func (repo *ticketRepository) GetTicket(ctx context.Context, id string) (support.Ticket, error) {
	if _, err := uuid.Parse(id); err != nil {
		return support.Ticket{}, support.ErrNotFound
	}
	query, args, err := psql.Select(ticketColumns...).From("support_tickets").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return support.Ticket{}, errors.Wrap(err, "building ticket query")
	}
	var t support.Ticket
	if err = repo.db.GetContext(ctx, &t, query, args...); err != nil {
		return support.Ticket{}, trapNoRowsErr(err, support.ErrNotFound, "finding ticket")
	}
	return t, nil
}

func (repo *ticketRepository) QueryTickets(ctx context.Context, filter support.Filter) ([]support.Ticket, error) {
	where := sq.And{}
	if filter.UserID != "" {
		where = append(where, sq.Eq{"user_id": filter.UserID})
	}
	if filter.Category != "" {
		where = append(where, sq.Eq{"category": string(filter.Category)})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		where = append(where, sq.Eq{"status": statuses})
	}

	query, args, err := psql.Select(ticketColumns...).From("support_tickets").Where(where).OrderBy("created_at DESC").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building tickets query")
	}
	tickets := make([]support.Ticket, 0)
	if err = repo.db.SelectContext(ctx, &tickets, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying tickets")
	}
	return tickets, nil
}

func (repo *ticketRepository) UpdateTicket(ctx context.Context, t support.Ticket) (support.Ticket, error) {
	query, args, err := psql.Update("support_tickets").
		Set("status", string(t.Status)).
		Set("response", t.Response).
		Set("updated_at", t.UpdatedAt.UTC()).
		Where(sq.Eq{"id": t.ID}).
		ToSql()
	if err != nil {
		return support.Ticket{}, errors.Wrap(err, "building update query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return support.Ticket{}, errors.Wrap(err, "updating ticket")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return support.Ticket{}, support.ErrNotFound
	}
	return t, nil
}
