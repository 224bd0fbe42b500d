package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/spec-kit/task-manager/pkg/util"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func pgErrorCode(err error) (string, *pgconn.PgError) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr
	}
	return "", nil
}

// uniqueField derives the column name from constraints named <table>_<column>_key.
func uniqueField(pgErr *pgconn.PgError) string {
	name := strings.TrimSuffix(pgErr.ConstraintName, "_key")
	if idx := strings.Index(name, "_"); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

func mapUserWriteError(err error, user userFields) error {
	code, pgErr := pgErrorCode(err)
	if code != pgUniqueViolation {
		return err
	}
	switch field := uniqueField(pgErr); field {
	case "username":
		return apperrors.NewConflict(field, user.Username)
	case "email":
		return apperrors.NewConflict(field, user.Email)
	default:
		return apperrors.NewConflict(field, nil)
	}
}

type userFields struct {
	Username string
	Email    string
}

// escapeLike escapes LIKE metacharacters so search terms match literally.
func escapeLike(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(replacer.Replace(term)) + "%"
}
