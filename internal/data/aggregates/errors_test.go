package aggregates

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/localai-backend/internal/domain/aggregates"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want domainagg.ErrorCode
	}{
		{"not found", fmt.Errorf("lookup: %w", gorm.ErrRecordNotFound), domainagg.CodeNotFound},
		{"duplicated key", gorm.ErrDuplicatedKey, domainagg.CodeConflict},
		{"fk violated", gorm.ErrForeignKeyViolated, domainagg.CodePreconditionFailed},
		{"deadline", context.DeadlineExceeded, domainagg.CodeRetryable},
		{"canceled", context.Canceled, domainagg.CodeRetryable},
		{"pg unique", &pgconn.PgError{Code: "23505"}, domainagg.CodeConflict},
		{"pg fk", &pgconn.PgError{Code: "23503"}, domainagg.CodePreconditionFailed},
		{"pg serialization", &pgconn.PgError{Code: "40001"}, domainagg.CodeRetryable},
		{"pg check", &pgconn.PgError{Code: "23514"}, domainagg.CodeInvariantViolation},
		{"pg other", &pgconn.PgError{Code: "42P01", Message: "relation does not exist timeout"}, domainagg.CodeInternal},
		{"sqlite unique", errors.New("UNIQUE constraint failed: system_prompts.name"), domainagg.CodeConflict},
		{"sqlite fk", errors.New("FOREIGN KEY constraint failed"), domainagg.CodePreconditionFailed},
		{"sqlite locked", errors.New("database is locked"), domainagg.CodeRetryable},
		{"sqlite check", errors.New("CHECK constraint failed: tokens >= 0"), domainagg.CodeInvariantViolation},
		{"other", errors.New("boom"), domainagg.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MapError("op", tc.err)
			if domainagg.CodeOf(got) != tc.want {
				t.Fatalf("MapError(%v) code = %q, want %q", tc.err, domainagg.CodeOf(got), tc.want)
			}
		})
	}
}

func TestMapErrorKeepsDomainErrors(t *testing.T) {
	in := domainagg.NewError(domainagg.CodeNotFound, "inner.op", "missing", nil)
	out := MapError("outer.op", in)
	if out != in {
		t.Fatalf("expected passthrough, got %v", out)
	}
	if MapError("op", nil) != nil {
		t.Fatalf("nil should stay nil")
	}
}
