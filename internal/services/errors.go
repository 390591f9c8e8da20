package services

import (
	"errors"
	"fmt"

	"hatchery_backend/internal/repositories"
)

// Error taxonomy shared by every service. Handlers map these to HTTP statuses
// with errors.Is, so specific errors always wrap one of the base kinds.
var (
	ErrValidation             = errors.New("validation failed")
	ErrNotFound               = errors.New("not found")
	ErrConflict               = errors.New("conflict")
	ErrInsufficientStock      = errors.New("insufficient feed stock")
	ErrInsufficientPopulation = errors.New("insufficient fish in batch")
)

var (
	ErrDateFormat        = fmt.Errorf("%w: dates must use the YYYY-MM-DD format", ErrValidation)
	ErrInvalidTransition = fmt.Errorf("%w: invalid status transition", ErrValidation)

	ErrFeedInventoryNotFound = fmt.Errorf("feed inventory %w", ErrNotFound)
	ErrBatchNotFound         = fmt.Errorf("batch %w", ErrNotFound)
	ErrTankNotFound          = fmt.Errorf("tank %w", ErrNotFound)
	ErrCustomerNotFound      = fmt.Errorf("customer %w", ErrNotFound)
	ErrHealthLogNotFound     = fmt.Errorf("health log %w", ErrNotFound)
	ErrWorkerNotFound        = fmt.Errorf("worker %w", ErrNotFound)
	ErrUserNotFound          = fmt.Errorf("user %w", ErrNotFound)

	ErrDuplicateCode  = fmt.Errorf("%w: could not generate a unique batch code", ErrConflict)
	ErrFeedNameExists = fmt.Errorf("%w: a feed with this name already exists", ErrConflict)
	ErrTankNameExists = fmt.Errorf("%w: a tank with this name already exists", ErrConflict)
	ErrUsernameTaken  = fmt.Errorf("%w: username already taken", ErrConflict)

	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrRegistrationClosed = errors.New("registration is closed, an admin must create the account")
)

func validationErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// notFoundOr translates a repository ErrNotFound into the given service error
// and passes anything else through.
func notFoundOr(err error, notFound error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return notFound
	}
	return err
}

// outcomeOf labels an operation result for the ledger_operations_total counter.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrNotFound), errors.Is(err, repositories.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict), errors.Is(err, repositories.ErrDuplicateKey):
		return "conflict"
	case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrInsufficientPopulation):
		return "rejected"
	default:
		return "error"
	}
}
