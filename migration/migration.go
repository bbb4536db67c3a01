// Package migration describes named schema steps applied in order by internal/db.
package migration

import (
	"crypto/sha256"
	"database/sql"
	"fmt"
)

type Migration struct {
	Name string
	Func func(*sql.Tx) error
}

// String identifies the migration in the _migrations_<name> table.
func (m *Migration) String() string {
	sum := sha256.Sum256([]byte(m.Name))
	return fmt.Sprintf("%x", sum[:8])
}
