package distribution

import "errors"

// Calculation errors. Both are terminal and are returned before anything is persisted.
var (
	ErrInvalidDistribution = errors.New("net distribution must be greater than zero")
	ErrNoEligibleClaims    = errors.New("no eligible claims: total agreed claims is zero")
)

// Declaration errors
var (
	ErrInvalidDistributionType = errors.New("invalid distribution type")
	ErrDeclarationNotFound     = errors.New("distribution declaration not found")
	ErrDeletionNotConfirmed    = errors.New("deletion of a declared distribution must be confirmed")
	ErrMissingCaseID           = errors.New("case id is required")
)
