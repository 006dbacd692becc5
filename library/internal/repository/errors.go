package repository

import (
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"

	"github.com/librarydesk/library-service/library/internal/errs"
)

// activeLoanIndex guarantees at most one open loan per copy.
const activeLoanIndex = `loans_active_copy_uidx`

// classify maps postgres failures onto the domain error taxonomy.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		if pgErr.ConstraintName == activeLoanIndex {
			return errors.Wrap(errs.ErrCopyUnavailable, "copy already has an active loan")
		}
		return errors.Wrap(errs.ErrDuplicate, pgErr.ConstraintName)
	case pgerrcode.ForeignKeyViolation:
		return errors.Wrap(errs.ErrNotFound, pgErr.ConstraintName)
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected, pgerrcode.LockNotAvailable:
		return errors.Wrap(errs.ErrConcurrencyConflict, pgErr.Message)
	case pgerrcode.CheckViolation:
		return errors.Wrap(errs.ErrInvalidParameter, pgErr.ConstraintName)
	}
	return err
}
