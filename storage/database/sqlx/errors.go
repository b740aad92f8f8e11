package sqlxrepos

import (
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/dismissal/core"
)

// postgres error codes returned when the queries do not match the schema
var schemaErrCodes = map[pq.ErrorCode]bool{
	"42P01": true, // undefined_table
	"42703": true, // undefined_column
	"42P10": true, // invalid_column_reference (ON CONFLICT target without its unique index)
}

// dbError wraps err. Schema mismatches become shutdown errors: no request can succeed
// until the migrations are applied.
func dbError(err error, msg string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && schemaErrCodes[pqErr.Code] {
		return core.NewShutdownError(err, msg+": database schema is out of date")
	}
	return errors.Wrap(err, msg)
}
