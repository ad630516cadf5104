package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/educonnectpro/educonnect/core/fee"
)

var feeColumns = []string{
	"id", "student_id", "class_id", "description", "amount", "due_date", "status", "paid_at", "created_at",
}

type feeRow struct {
	ID          string    `db:"id"`
	StudentID   string    `db:"student_id"`
	ClassID     string    `db:"class_id"`
	Description string    `db:"description"`
	Amount      float64   `db:"amount"`
	DueDate     time.Time `db:"due_date"`
	Status      string    `db:"status"`
	PaidAt      null.Time `db:"paid_at"`
	CreatedAt   time.Time `db:"created_at"`
}

func (row feeRow) fee() fee.Fee {
	return fee.Fee{
		ID:          row.ID,
		StudentID:   row.StudentID,
		ClassID:     row.ClassID,
		Description: row.Description,
		Amount:      row.Amount,
		DueDate:     row.DueDate.UTC(),
		Status:      fee.Status(row.Status),
		PaidAt:      row.PaidAt.Time.UTC(),
		CreatedAt:   row.CreatedAt.UTC(),
	}
}

type feeRepository struct {
	db *sqlx.DB
}

var _ fee.Repository = (*feeRepository)(nil) // interface compliance check

func NewFeeRepository(db *sqlx.DB) fee.Repository {
	return &feeRepository{db: db}
}

func (repo *feeRepository) CreateFee(ctx context.Context, f fee.Fee) (fee.Fee, error) {
	query, args, err := psql.Insert("fees").Columns(feeColumns...).Values(
		f.ID, f.StudentID, f.ClassID, f.Description, f.Amount, f.DueDate.UTC(), string(f.Status),
		nullTime(f.PaidAt), f.CreatedAt.UTC(),
	).ToSql()
	if err != nil {
		return fee.Fee{}, errors.Wrap(err, "building insert query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return fee.Fee{}, errors.Wrap(err, "inserting fee")
	}
	return f, nil
}

func (repo *feeRepository) GetFee(ctx context.Context, id string) (fee.Fee, error) {
	if _, err := uuid.Parse(id); err != nil {
		return fee.Fee{}, fee.ErrNotFound
	}
	query, args, err := psql.Select(feeColumns...).From("fees").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fee.Fee{}, errors.Wrap(err, "building fee query")
	}
	var row feeRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return fee.Fee{}, trapNoRowsErr(err, fee.ErrNotFound, "finding fee")
	}
	return row.fee(), nil
}

func (repo *feeRepository) QueryFees(ctx context.Context, filter fee.Filter) ([]fee.Fee, error) {
	where := sq.And{}
	if filter.StudentID != "" {
		where = append(where, sq.Eq{"student_id": filter.StudentID})
	}
	if filter.ClassID != "" {
		where = append(where, sq.Eq{"class_id": filter.ClassID})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		where = append(where, sq.Eq{"status": statuses})
	}
	if !filter.DueBefore.IsZero() {
		where = append(where, sq.Lt{"due_date": filter.DueBefore.UTC()})
	}

	query, args, err := psql.Select(feeColumns...).From("fees").Where(where).OrderBy("due_date").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building fees query")
	}
	var rows []feeRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying fees")
	}
	fees := make([]fee.Fee, 0, len(rows))
	for _, row := range rows {
		fees = append(fees, row.fee())
	}
	return fees, nil
}

func (repo *feeRepository) UpdateFee(ctx context.Context, f fee.Fee, from ...fee.Status) (fee.Fee, error) {
	where := sq.And{sq.Eq{"id": f.ID}}
	if len(from) > 0 {
		statuses := make([]string, 0, len(from))
		for _, st := range from {
			statuses = append(statuses, string(st))
		}
		where = append(where, sq.Eq{"status": statuses})
	}
	query, args, err := psql.Update("fees").
		Set("description", f.Description).
		Set("amount", f.Amount).
		Set("due_date", f.DueDate.UTC()).
		Set("status", string(f.Status)).
		Set("paid_at", nullTime(f.PaidAt)).
		Where(where).
		ToSql()
	if err != nil {
		return fee.Fee{}, errors.Wrap(err, "building update query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fee.Fee{}, errors.Wrap(err, "updating fee")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		stored, err := repo.GetFee(ctx, f.ID)
		if err != nil {
			return fee.Fee{}, err
		}
		return fee.Fee{}, errors.Wrapf(fee.ErrStatusChanged, "fee is now %s", stored.Status)
	}
	return f, nil
}
