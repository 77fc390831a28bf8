package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context is what every repo method takes: the caller's context plus, inside a
// service transaction, the transaction handle. A nil Tx means the repo's own *gorm.DB.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

func New(ctx context.Context) Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return Context{Ctx: ctx}
}

// DB picks the handle a repo should query with and binds the context to it.
func (c Context) DB(fallback *gorm.DB) *gorm.DB {
	h := fallback
	if c.Tx != nil {
		h = c.Tx
	}
	if c.Ctx == nil {
		return h.WithContext(context.Background())
	}
	return h.WithContext(c.Ctx)
}
