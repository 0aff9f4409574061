package services

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Error taxonomy. Every mutating operation either fully commits or returns
// exactly one of these with zero persisted side effects; retry policy belongs
// to the caller.

// AuthorizationError — the call did not satisfy the scope it declares.
type AuthorizationError struct {
	Scope  string
	Reason string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s scope not satisfied: %s", e.Scope, e.Reason)
}

// ValidationError — bad input; the caller must correct the request.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// StateConflictError — the operation is valid but the record is in the wrong
// state (completed session, full roster, duplicate registration, ...).
type StateConflictError struct {
	Reason string
}

func (e *StateConflictError) Error() string {
	return e.Reason
}

// NotFoundError — a record the operation must read does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func authErr(scope, format string, args ...interface{}) error {
	return &AuthorizationError{Scope: scope, Reason: fmt.Sprintf(format, args...)}
}

func validationErr(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func conflictErr(format string, args ...interface{}) error {
	return &StateConflictError{Reason: fmt.Sprintf(format, args...)}
}

func notFoundErr(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// StatusCode maps a taxonomy error to its HTTP status.
func StatusCode(err error) int {
	var (
		authE     *AuthorizationError
		valE      *ValidationError
		conflictE *StateConflictError
		nfE       *NotFoundError
	)
	switch {
	case errors.As(err, &authE):
		return fiber.StatusForbidden
	case errors.As(err, &valE):
		return fiber.StatusBadRequest
	case errors.As(err, &conflictE):
		return fiber.StatusConflict
	case errors.As(err, &nfE):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// respondErr renders a taxonomy error the same way everywhere.
func respondErr(c *fiber.Ctx, err error) error {
	return c.Status(StatusCode(err)).JSON(fiber.Map{"error": err.Error()})
}
