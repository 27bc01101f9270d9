package catalog

import (
	"strings"
	"time"

	"sooicy-orders/internal/apperr"
	"sooicy-orders/internal/logger"

	"github.com/uptrace/bun"
)

// Service is the dispatcher's side of the catalog: riders, delivery
// locations, products and add-ons. Reads that the order workflow also needs
// come from the embedded Lookup.
type Service struct {
	*Lookup
	Logger *logger.Logger
	now    func() time.Time
}

func NewService(db *bun.DB, log *logger.Logger) *Service {
	return &Service{
		Lookup: NewLookup(db),
		Logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// searchAny narrows q to rows where any of cols contains term, ignoring case.
func searchAny(q *bun.SelectQuery, term string, cols ...string) *bun.SelectQuery {
	term = strings.TrimSpace(term)
	if term == "" || len(cols) == 0 {
		return q
	}
	like := "%" + strings.ToLower(term) + "%"
	return q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
		for i, col := range cols {
			if i == 0 {
				q = q.Where("LOWER(COALESCE(?, '')) LIKE ?", bun.Ident(col), like)
				continue
			}
			q = q.WhereOr("LOWER(COALESCE(?, '')) LIKE ?", bun.Ident(col), like)
		}
		return q
	})
}

// updated turns a zero-row update into NotFound.
func updated(op, what string, id int64, n int64, err error) error {
	if err != nil {
		return apperr.Storage(op, "failed to update "+what, err)
	}
	if n == 0 {
		return apperr.NotFound(op, "%s %d not found", what, id)
	}
	return nil
}

func trimmed(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

// nullable maps an empty string to NULL for nullzero columns.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
