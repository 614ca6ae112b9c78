package persistence

import (
	"errors"
	"fmt"

	"github.com/erp/lotledger/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes the ledger reacts to
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// isDuplicateKey reports a unique constraint violation from either dialect.
// gorm.ErrDuplicatedKey requires TranslateError on the session.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// isTransactionConflict reports a serialization failure or deadlock
func isTransactionConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
}

// translateError maps driver errors onto domain errors and wraps the rest with op.
// Domain errors pass through untouched.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case isDuplicateKey(err):
		return shared.ErrAlreadyExists
	case isTransactionConflict(err):
		return shared.NewDomainError(shared.CodeConcurrencyConflict,
			"Transaction conflicted with a concurrent update, retry the request")
	}
	return fmt.Errorf("%s: %w", op, err)
}
