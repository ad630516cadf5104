package inmemdb

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/educonnectpro/educonnect/core/fee"
)

type feeRepository struct {
	db *feeTable
}

func NewFeeRepository(db *DB) fee.Repository {
	return &feeRepository{db: db.fee}
}

func (repo *feeRepository) CreateFee(_ context.Context, f fee.Fee) (fee.Fee, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.table[f.ID] = &f
	return f, nil
}

func (repo *feeRepository) GetFee(_ context.Context, id string) (fee.Fee, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if f, ok := repo.db.table[id]; ok {
		return *f, nil
	}
	return fee.Fee{}, fee.ErrNotFound
}

func hasFeeStatus(statuses []fee.Status, s fee.Status) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

func (repo *feeRepository) QueryFees(_ context.Context, filter fee.Filter) ([]fee.Fee, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	fees := make([]fee.Fee, 0)
	for _, f := range repo.db.table {
		if filter.StudentID != "" && f.StudentID != filter.StudentID {
			continue
		}
		if filter.ClassID != "" && f.ClassID != filter.ClassID {
			continue
		}
		if len(filter.Statuses) > 0 && !hasFeeStatus(filter.Statuses, f.Status) {
			continue
		}
		if !filter.DueBefore.IsZero() && !f.DueDate.Before(filter.DueBefore) {
			continue
		}
		fees = append(fees, *f)
	}
	sort.Slice(fees, func(i, j int) bool { return fees[i].DueDate.Before(fees[j].DueDate) })
	return fees, nil
}

func (repo *feeRepository) UpdateFee(_ context.Context, f fee.Fee, from ...fee.Status) (fee.Fee, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	stored, ok := repo.db.table[f.ID]
	if !ok {
		return fee.Fee{}, fee.ErrNotFound
	}
	if len(from) > 0 && !hasStatus(from, stored.Status) {
		return fee.Fee{}, errors.Wrapf(fee.ErrStatusChanged, "fee is now %s", stored.Status)
	}
	repo.db.table[f.ID] = &f
	return f, nil
}

func hasStatus(statuses []fee.Status, st fee.Status) bool {
	for _, s := range statuses {
		if s == st {
			return true
		}
	}
	return false
}
