package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidState       = errors.New("operation not allowed in current state")
	ErrUnauthorized       = errors.New("caller does not own this entity")
	ErrProductInactive    = errors.New("product is not purchasable")
	ErrAmountMismatch     = errors.New("callback amount does not match order amount")
	ErrInvalidSignature   = errors.New("signature verification failed")
	ErrInsufficientPoints = errors.New("insufficient points balance")

	// Infra-level errors surfaced through repositories
	ErrOperationFailed    = errors.New("storage operation failed")
	ErrInvalidExecContext = errors.New("invalid transaction context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)
