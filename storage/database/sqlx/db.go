package sqlxrepos

import (
	"database/sql"
	"strings"
	"time"
	"unicode"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/educonnectpro/educonnect/core"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// trapNoRowsErr maps psql "no rows" err to `notFound`
func trapNoRowsErr(err, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// orderBy renders `ordering`; fields found in `exprs` are replaced with their SQL expression.
func orderBy(ordering []core.DBOrdering, exprs map[string]string) string {
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if expr, ok := exprs[ord.Field]; ok {
			ord.Field = expr
		}
		orderList = append(orderList, ord.String())
	}
	return strings.Join(orderList, ", ")
}

func nullTime(t time.Time) null.Time {
	return null.NewTime(t.UTC(), !t.IsZero())
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}

// NewDB wraps a connection pool, mapping struct fields without a `db` tag to snake_case columns.
func NewDB(db *sql.DB, driverName string) *sqlx.DB {
	xdb := sqlx.NewDb(db, driverName)
	xdb.MapperFunc(SnakeCase)
	return xdb
}

// SnakeCase converts a Go field name to its column name: TeacherID -> teacher_id, URL -> url.
func SnakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
