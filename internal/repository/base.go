// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"connector/internal/models"
	"connector/internal/observability"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const pgUniqueViolation = "23505"

// observe opens a span and a latency timer for one repository call. The
// returned finish func must be deferred with a pointer to the named error.
func observe(ctx context.Context, method, table string) (context.Context, func(*error)) {
	ctx, span := observability.StartRepositorySpan(ctx, method, table)
	done := observability.TrackQuery(method, table)
	return ctx, func(errp *error) {
		done()
		observability.EndSpan(span, *errp)
	}
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, pgUniqueViolation)
}

// asAppError passes AppErrors through and wraps anything else as internal.
func asAppError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.NewTimeoutError(err)
	}
	return models.NewInternalError(err)
}

// forUpdate adds a row lock on dialects that support it.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func newestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC").Order("id DESC")
}
