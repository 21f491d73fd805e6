package orgscope

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrAppendOnly is returned when a statement would update or delete rows of an
// append-only table
var ErrAppendOnly = errors.New("orgscope: table is append-only")

const (
	appendOnlyUpdate = "orgscope:append_only_update"
	appendOnlyDelete = "orgscope:append_only_delete"
)

// RegisterAppendOnly rejects UPDATE and DELETE statements against the given
// tables. Inserts and reads pass through.
func RegisterAppendOnly(db *gorm.DB, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	guarded := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		guarded[t] = struct{}{}
	}

	guard := func(tx *gorm.DB) {
		if _, ok := guarded[tx.Statement.Table]; ok {
			_ = tx.AddError(fmt.Errorf("%w: %s", ErrAppendOnly, tx.Statement.Table))
		}
	}

	if err := db.Callback().Update().Before("gorm:update").Register(appendOnlyUpdate, guard); err != nil {
		return err
	}
	return db.Callback().Delete().Before("gorm:delete").Register(appendOnlyDelete, guard)
}
