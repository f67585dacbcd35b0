package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"

	customError "github.com/segyhp/lending-engine/pkg/errors"
)

const uniqueViolation = "23505"

// wrapQueryError maps sql.ErrNoRows to a not-found error and everything else
// to a database error.
func wrapQueryError(err error, resource, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return customError.WrapNotFound(resource, id)
	}
	return customError.WrapDatabaseError(err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
