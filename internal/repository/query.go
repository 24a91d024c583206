package repository

import (
	"fmt"
	"strings"

	"github.com/affiliateops/backend/internal/models"
)

// whereBuilder accumulates AND-ed conditions and their positional arguments.
type whereBuilder struct {
	conds []string
	args  []any
}

func (b *whereBuilder) add(cond string, arg any) {
	b.args = append(b.args, arg)
	b.conds = append(b.conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(b.args))))
}

func (b *whereBuilder) addRange(column string, r models.DateRange) {
	if r.From != nil {
		b.add(column+" >= ?", *r.From)
	}
	if r.To != nil {
		b.add(column+" < ?", *r.To)
	}
}

func (b *whereBuilder) sql() string {
	if len(b.conds) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(b.conds, " AND ")
}

// next returns the placeholder for an argument appended after the conditions.
func (b *whereBuilder) next(arg any) string {
	b.args = append(b.args, arg)
	return fmt.Sprintf("$%d", len(b.args))
}
