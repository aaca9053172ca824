package option

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/smallbiznis/streamhub/pkg/db/pagination"
	"gorm.io/gorm"
)

// QueryOption mutates a gorm statement.
type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type QueryOptionFunc func(db *gorm.DB) *gorm.DB

func (f QueryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

type Operator string

const (
	EQ    Operator = "="
	NEQ   Operator = "<>"
	GTE   Operator = ">="
	LTE   Operator = "<="
	ILIKE Operator = "ilike"
)

type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

// ApplyOperator adds a single WHERE condition. ILIKE is portable: it lowers both sides.
func ApplyOperator(cond Condition) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		field := strings.TrimSpace(cond.Field)
		if field == "" {
			return db
		}
		switch cond.Operator {
		case ILIKE:
			pattern := fmt.Sprintf("%%%s%%", strings.ToLower(fmt.Sprint(cond.Value)))
			return db.Where(fmt.Sprintf("LOWER(%s) LIKE ?", field), pattern)
		case EQ, NEQ, GTE, LTE:
			return db.Where(fmt.Sprintf("%s %s ?", field, cond.Operator), cond.Value)
		default:
			return db
		}
	})
}

type QuerySortBy struct {
	Field string
	Desc  bool
	Allow map[string]bool
}

func WithQuerySortBy(field, order string, allow map[string]bool) QuerySortBy {
	return QuerySortBy{
		Field: strings.TrimSpace(field),
		Desc:  !strings.EqualFold(strings.TrimSpace(order), "asc"),
		Allow: allow,
	}
}

// WithSortBy orders by an allow-listed field, falling back to created_at desc.
// id is always appended as a tie-breaker.
func WithSortBy(sort QuerySortBy) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		field := sort.Field
		desc := sort.Desc
		if field == "" || !sort.Allow[field] {
			field = "created_at"
			desc = true
		}
		direction := "asc"
		if desc {
			direction = "desc"
		}
		return db.Order(fmt.Sprintf("%s %s, id %s", field, direction, direction))
	})
}

// ApplyPagination applies an id-descending keyset cursor and fetches one
// extra row so callers can detect another page.
func ApplyPagination(page pagination.Pagination) QueryOption {
	return QueryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if token := strings.TrimSpace(page.PageToken); token != "" {
			if cursor, err := pagination.DecodeCursor(token); err == nil {
				if id, err := strconv.ParseInt(cursor.ID, 10, 64); err == nil {
					db = db.Where("id < ?", id)
				}
			}
		}
		return db.Limit(page.Limit() + 1)
	})
}
