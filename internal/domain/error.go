package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnauthorized    = errors.New("unauthorized")

	// Persistence
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid database execution context")
	ErrUserNotFound       = errors.New("user not found")

	// Payment orders
	ErrInvalidPlan         = errors.New("invalid plan type")
	ErrPlanNotFound        = errors.New("plan not found")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrMissingContactInfo  = errors.New("missing contact email")
	ErrOrderCreationFailed = errors.New("payment order creation failed")
	ErrRateLimited         = errors.New("too many requests")
)
