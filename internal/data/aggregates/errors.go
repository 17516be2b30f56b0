package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/localai-backend/internal/domain/aggregates"
)

// postgres SQLSTATE classes seen on the conversation tables.
var pgCodes = map[string]domainagg.ErrorCode{
	"23505": domainagg.CodeConflict,           // unique_violation
	"23503": domainagg.CodePreconditionFailed, // foreign_key_violation
	"23514": domainagg.CodeInvariantViolation, // check_violation
	"40001": domainagg.CodeRetryable,          // serialization_failure
	"40P01": domainagg.CodeRetryable,          // deadlock_detected
	"55P03": domainagg.CodeRetryable,          // lock_not_available
}

// sqlite reports constraint and locking failures only through the message.
var sqliteMessages = []struct {
	fragment string
	code     domainagg.ErrorCode
}{
	{"unique constraint failed", domainagg.CodeConflict},
	{"duplicate key", domainagg.CodeConflict},
	{"foreign key constraint failed", domainagg.CodePreconditionFailed},
	{"check constraint failed", domainagg.CodeInvariantViolation},
	{"database is locked", domainagg.CodeRetryable},
	{"database table is locked", domainagg.CodeRetryable},
	{"deadlock", domainagg.CodeRetryable},
	{"timeout", domainagg.CodeRetryable},
}

// MapError classifies a store failure. Errors that already carry a code pass
// through untouched.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var aggErr *domainagg.Error
	if errors.As(err, &aggErr) {
		return err
	}
	return domainagg.Wrap(classify(err), op, err)
}

func classify(err error) domainagg.ErrorCode {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domainagg.CodeNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domainagg.CodeConflict
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return domainagg.CodePreconditionFailed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domainagg.CodeRetryable
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if code, ok := pgCodes[strings.TrimSpace(pgErr.Code)]; ok {
			return code
		}
		return domainagg.CodeInternal
	}

	msg := strings.ToLower(err.Error())
	for _, m := range sqliteMessages {
		if strings.Contains(msg, m.fragment) {
			return m.code
		}
	}
	return domainagg.CodeInternal
}
