package inmemdb

import (
	"context"
	"sort"

	"github.com/educonnectpro/educonnect/core/support"
)

type ticketRepository struct {
	db *ticketTable
}

func NewTicketRepository(db *DB) support.Repository {
	return &ticketRepository{db: db.support}
}

func (repo *ticketRepository) CreateTicket(_ context.Context, t support.Ticket) (support.Ticket, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.table[t.ID] = &t
	return t, nil
}

func (repo *ticketRepository) GetTicket(_ context.Context, id string) (support.Ticket, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if t, ok := repo.db.table[id]; ok {
		return *t, nil
	}
	return support.Ticket{}, support.ErrNotFound
}

func (repo *ticketRepository) QueryTickets(_ context.Context, filter support.Filter) ([]support.Ticket, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	tickets := make([]support.Ticket, 0)
	for _, t := range repo.db.table {
		if filter.UserID != "" && t.UserID != filter.UserID {
			continue
		}
		if filter.Category != "" && t.Category != filter.Category {
			continue
		}
		if len(filter.Statuses) > 0 {
			var ok bool
			for _, st := range filter.Statuses {
				if t.Status == st {
					ok = true
					break
				}
			}
			if !ok {
				continue
			}
		}
		tickets = append(tickets, *t)
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].CreatedAt.After(tickets[j].CreatedAt) })
	return tickets, nil
}

func (repo *ticketRepository) UpdateTicket(_ context.Context, t support.Ticket) (support.Ticket, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.table[t.ID]; !ok {
		return support.Ticket{}, support.ErrNotFound
	}
	repo.db.table[t.ID] = &t
	return t, nil
}
