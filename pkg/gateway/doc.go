/*
Package gateway serves generic create, read, update and delete operations on
whatever tables a database currently holds. It has no per-table code: table
and column names come from requests and are checked against the live catalog
before they reach a statement, and values are always bound as parameters.

Every operation opens its own connection through a sqldb.Provider and closes
it before returning. Writes run in a single-statement transaction, so a
failed write leaves the table as it was.

Errors are *Error values classified by Kind:

	err := gw.Create(ctx, "users", []byte(`{"name":"Ann","age":30}`))
	switch gateway.KindOf(err) {
	case gateway.KindNotFound, gateway.KindInvalidInput:
		// caller's fault, err.Error() is safe to return
	}

Updates and deletes address rows by their "id" column and succeed even when
no row matches.
*/
package gateway
