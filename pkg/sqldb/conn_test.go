package sqldb

import "database/sql"

// Compile-time interface compliance checks
var (
	_ Conn = (*sql.DB)(nil)
	_ Conn = (*sql.Conn)(nil)
	_ Conn = (*Session)(nil)
)
