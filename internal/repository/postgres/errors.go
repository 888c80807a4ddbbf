package postgres

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"locar-backend/internal/domain"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// mapError converts driver errors into domain errors. Anything unrecognised
// is returned unchanged.
func mapError(err error, entity string, id int32) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound(entity, id)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return domain.ErrDuplicate.WithMessage("%s: %s already in use", entity, pqErr.Constraint).Wrap(err)
		case pqForeignKeyViolation:
			return domain.ErrReferenced.WithMessage("%s %d is referenced by other records", entity, id).Wrap(err)
		}
	}
	return err
}

// requireAffected turns a zero-row write into a NotFound error.
func requireAffected(res sql.Result, entity string, id int32) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFound(entity, id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
