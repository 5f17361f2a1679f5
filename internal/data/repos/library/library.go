package library

import (
	"gorm.io/gorm"

	"github.com/yungbote/library-backend/internal/platform/dbctx"
)

// Page is an offset window over an ordered listing. A zero Limit means no limit.
type Page struct {
	Offset int
	Limit  int
}

func conn(db *gorm.DB, dbc dbctx.Context) *gorm.DB { return dbc.Conn(db) }

func paginate(q *gorm.DB, p Page) *gorm.DB {
	if p.Offset > 0 {
		q = q.Offset(p.Offset)
	}
	if p.Limit > 0 {
		q = q.Limit(p.Limit)
	}
	return q
}
