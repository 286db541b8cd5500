package statement

import "errors"

var (
	ErrUnsupportedLayoutFormat = errors.New("unsupported layout file format")
	ErrEmptyLayout             = errors.New("layout has no sections")
	ErrDuplicateSectionKey     = errors.New("duplicate section key")
	ErrAccountTypeUnplaced     = errors.New("movement account type not placed in exactly one section")
	ErrCreditorTypeUnplaced    = errors.New("creditor type not placed in exactly one section")
	ErrFallbackSection         = errors.New("layout needs exactly one fallback creditor section")
	ErrInvalidSection          = errors.New("invalid section")
)
