package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("Validation Error")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthenticated returns an AppError for requests with no valid session.
// HTTP handlers map this to 401 Unauthorized.
func Unauthenticated(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: message,
	}
}

// QuotaExceeded is returned when an add would push an owner past the album cap.
// It wraps ErrConflict — a user-facing 409, never logged as a system fault.
func QuotaExceeded(max int) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("album limit reached: a collection may hold at most %d albums", max),
		Field:   "albumId",
	}
}

// DuplicateAlbum is returned when an owner already saved the same catalog album.
func DuplicateAlbum(catalogAlbumID string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("album %s is already in your collection", catalogAlbumID),
		Field:   "albumId",
	}
}

// NotOwner is returned when a caller tries to touch an entry that belongs to
// someone else. It wraps ErrForbidden — distinguished from NotFound so the
// client can show a useful message instead of a generic "gone".
func NotOwner(resource, id string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: fmt.Sprintf("%s %s belongs to another user", resource, id),
	}
}
