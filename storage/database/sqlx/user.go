package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/educonnectpro/educonnect/core"
	"github.com/educonnectpro/educonnect/core/user"
)

const usersTable = "users"

var (
	userColumns = []string{
		"id", "name", "email", "phone", "role", "is_active", "provider",
		"password_hash", "profile", "created_at", "updated_at", "last_login",
	}

	userOrderExprs = map[string]string{
		"rating": "COALESCE((profile->>'rating')::numeric, 0)",
	}
)

type userRow struct {
	ID           string      `db:"id"`
	Name         string      `db:"name"`
	Email        null.String `db:"email"`
	Phone        null.String `db:"phone"`
	Role         string      `db:"role"`
	IsActive     bool        `db:"is_active"`
	Provider     string      `db:"provider"`
	PasswordHash null.Bytes  `db:"password_hash"`
	Profile      string      `db:"profile"` // JSONB
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) toRow(usr user.User) (userRow, error) {
	profile, err := user.EncodeProfile(usr.Profile)
	if err != nil {
		return userRow{}, errors.Wrap(err, "encoding profile")
	}
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Email:        nullString(usr.Email),
		Phone:        nullString(usr.Phone),
		Role:         string(usr.Role),
		IsActive:     usr.IsActive,
		Provider:     string(usr.Provider),
		PasswordHash: null.NewBytes(usr.PasswordHash, usr.PasswordHash != nil),
		Profile:      string(profile),
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    nullTime(usr.LastLogin),
	}, nil
}

func (repo *userRepository) fromRow(row userRow) (user.User, error) {
	role := user.Role(row.Role)
	profile, err := user.DecodeProfile(role, []byte(row.Profile))
	if err != nil {
		return user.User{}, err
	}
	return user.User{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email.String,
		Phone:        row.Phone.String,
		Role:         role,
		IsActive:     row.IsActive,
		Provider:     user.Provider(row.Provider),
		PasswordHash: row.PasswordHash.Bytes,
		Profile:      profile,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
		LastLogin:    row.LastLogin.Time.UTC(),
	}, nil
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, email, phone string, excludedIDs ...string) error {
	or := sq.Or{}
	if email != "" {
		or = append(or, sq.Eq{"email": email})
	}
	if phone != "" {
		or = append(or, sq.Eq{"phone": phone})
	}
	if len(or) == 0 {
		return nil
	}
	where := sq.And{or}
	if len(excludedIDs) > 0 {
		where = append(where, sq.NotEq{"id": excludedIDs})
	}

	query, args, err := psql.Select("email", "phone").From(usersTable).Where(where).Limit(1).ToSql()
	if err != nil {
		return errors.Wrap(err, "building uniqueness query")
	}
	var row struct {
		Email null.String `db:"email"`
		Phone null.String `db:"phone"`
	}
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return errors.Wrap(err, "checking user uniqueness")
	}
	if email != "" && row.Email.String == email {
		return user.ErrEmailExists
	}
	return user.ErrPhoneExists
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	row, err := repo.toRow(usr)
	if err != nil {
		return user.User{}, err
	}
	query, args, err := psql.Insert(usersTable).Columns(userColumns...).Values(
		row.ID, row.Name, row.Email, row.Phone, row.Role, row.IsActive, row.Provider,
		row.PasswordHash, row.Profile, row.CreatedAt, row.UpdatedAt, row.LastLogin,
	).ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building insert query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var where sq.Sqlizer
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		where = sq.Eq{"id": filter.ID}
	case filter.Email != "":
		where = sq.Eq{"email": filter.Email}
	case filter.Phone != "":
		where = sq.Eq{"phone": filter.Phone}
	default:
		return user.User{}, user.ErrNotFound
	}

	query, args, err := psql.Select(userColumns...).From(usersTable).Where(where).ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building user query")
	}
	var row userRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return repo.fromRow(row)
}

func userFilter(filter *user.QueryFilter) sq.And {
	where := sq.And{}
	if filter == nil {
		return where
	}
	// users with Name, Email or Phone matching the search keyword
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		where = append(where, sq.Or{sq.ILike{"name": val}, sq.ILike{"email": val}, sq.ILike{"phone": val}})
	}
	if len(filter.Roles) > 0 {
		roles := make([]string, len(filter.Roles))
		for i, role := range filter.Roles {
			roles[i] = string(role)
		}
		where = append(where, sq.Eq{"role": roles})
	}
	if filter.IsActive != nil {
		where = append(where, sq.Eq{"is_active": *filter.IsActive})
	}
	if !filter.CreatedFrom.IsZero() {
		where = append(where, sq.GtOrEq{"created_at": filter.CreatedFrom.UTC()})
	}
	if !filter.CreatedTo.IsZero() {
		where = append(where, sq.LtOrEq{"created_at": filter.CreatedTo.UTC()})
	}
	if filter.IDs != nil {
		where = append(where, sq.Eq{"id": filter.IDs})
	}

	// teacher profiles
	if filter.Subject != "" {
		where = append(where, sq.Expr(
			"EXISTS (SELECT 1 FROM jsonb_array_elements_text(profile->'subjects') s WHERE lower(s) = ?)",
			filter.Subject,
		))
	}
	if filter.City != "" {
		where = append(where, sq.Expr("profile->>'city' ILIKE ?", filter.City))
	}
	if filter.Verified != nil {
		where = append(where, sq.Expr("COALESCE((profile->>'is_verified')::boolean, false) = ?", *filter.Verified))
	}
	if filter.MinRating > 0 {
		where = append(where, sq.Expr(userOrderExprs["rating"]+" >= ?", filter.MinRating))
	}
	return where
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	qb := psql.Select(userColumns...).From(usersTable).Where(userFilter(filter))
	if len(ordering) > 0 {
		qb = qb.OrderBy(orderBy(ordering, userOrderExprs))
	} else {
		qb = qb.OrderBy("created_at DESC")
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building users query")
	}

	var rows []userRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		usr, err := repo.fromRow(row)
		if err != nil {
			return nil, err
		}
		users = append(users, usr)
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	row, err := repo.toRow(usr)
	if err != nil {
		return user.User{}, err
	}
	query, args, err := psql.Update(usersTable).SetMap(map[string]interface{}{
		"name":          row.Name,
		"email":         row.Email,
		"phone":         row.Phone,
		"role":          row.Role,
		"is_active":     row.IsActive,
		"provider":      row.Provider,
		"password_hash": row.PasswordHash,
		"profile":       row.Profile,
		"updated_at":    row.UpdatedAt,
		"last_login":    row.LastLogin,
	}).Where(sq.Eq{"id": row.ID}).ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building update query")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) DeleteUsers(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := psql.Delete(usersTable).Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
