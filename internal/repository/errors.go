package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Unique constraint names on users; see migrations/000001_init.up.sql.
const (
	constraintUserAt = "idx_users_user_at"
	constraintEmail  = "idx_users_email"
)

var (
	// ErrUserAtTaken means another account already owns the handle.
	ErrUserAtTaken = errors.New("user_at already taken")
	// ErrEmailTaken means another account already owns the email.
	ErrEmailTaken = errors.New("email already taken")
)

const pgUniqueViolation = "23505"

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint")
}

// userConflict maps a unique violation on users to the typed conflict it represents.
func userConflict(err error) error {
	if !isUniqueConstraintError(err) {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.ConstraintName {
		case constraintEmail:
			return ErrEmailTaken
		case constraintUserAt:
			return ErrUserAtTaken
		}
	}

	// SQLite reports "UNIQUE constraint failed: users.email".
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "email"):
		return ErrEmailTaken
	case strings.Contains(msg, "user_at"):
		return ErrUserAtTaken
	}
	return nil
}
