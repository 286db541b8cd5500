package ledger

import "errors"

// Entry errors
var (
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrInvalidJournalType = errors.New("invalid journal type")
	ErrNegativeAmount     = errors.New("debit and credit amounts cannot be negative")
	ErrMissingAccountName = errors.New("account name is required")
	ErrMissingEntryDate   = errors.New("entry date is required")
)

// Transaction errors
var (
	ErrInvalidTransactionType   = errors.New("invalid transaction type")
	ErrInvalidTransactionStatus = errors.New("invalid transaction status")
)

// Window errors
var (
	ErrPeriodReversed        = errors.New("period start is after period end")
	ErrPeriodBeforeInception = errors.New("period end is before the appointment date")
	ErrPeriodStartsEarly     = errors.New("period start is before the appointment date")
)
