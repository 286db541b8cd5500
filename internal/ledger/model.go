package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType is the coarse category of a case account. It drives the sign
// convention used when netting postings and where the account lands in a
// receipts-and-payments statement.
type AccountType string

const (
	AccountTypeAssetRealisation AccountType = "asset_realisation"
	AccountTypeCost             AccountType = "cost"
	AccountTypeTrading          AccountType = "trading"
	AccountTypeDistribution     AccountType = "distribution"
	AccountTypeBank             AccountType = "bank"
	AccountTypeVATControl       AccountType = "vat_control"
	// AccountTypeControl covers interest-bearing and other suspense/control accounts.
	AccountTypeControl AccountType = "control"
)

// AllAccountTypes returns every known account type
func AllAccountTypes() []AccountType {
	return []AccountType{
		AccountTypeAssetRealisation,
		AccountTypeCost,
		AccountTypeTrading,
		AccountTypeDistribution,
		AccountTypeBank,
		AccountTypeVATControl,
		AccountTypeControl,
	}
}

// IsValid checks if the account type is known
func (t AccountType) IsValid() bool {
	for _, known := range AllAccountTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Label returns a human-readable label for the account type
func (t AccountType) Label() string {
	switch t {
	case AccountTypeAssetRealisation:
		return "Asset Realisations"
	case AccountTypeCost:
		return "Cost of Realisations"
	case AccountTypeTrading:
		return "Trading"
	case AccountTypeDistribution:
		return "Distributions"
	case AccountTypeBank:
		return "Bank Accounts"
	case AccountTypeVATControl:
		return "VAT Control"
	case AccountTypeControl:
		return "Control Accounts"
	default:
		return "Unknown"
	}
}

// IsRepresentation reports whether balances of this type appear in the
// "represented by" block rather than as movements.
func (t AccountType) IsRepresentation() bool {
	return t == AccountTypeBank || t == AccountTypeVATControl || t == AccountTypeControl
}

// JournalType distinguishes ordinary postings from period-end adjustments
type JournalType string

const (
	JournalOrdinary  JournalType = "ordinary"
	JournalAdjusting JournalType = "adjusting"
)

// IsValid checks if the journal type is known
func (j JournalType) IsValid() bool {
	return j == JournalOrdinary || j == JournalAdjusting
}

// TransactionStatus is the approval state of a cashiering transaction
type TransactionStatus string

const (
	TransactionStatusDraft     TransactionStatus = "draft"
	TransactionStatusSubmitted TransactionStatus = "submitted"
	TransactionStatusApproved  TransactionStatus = "approved"
)

// IsValid checks if the status is known
func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusDraft, TransactionStatusSubmitted, TransactionStatusApproved:
		return true
	}
	return false
}

// TransactionType is the cash direction of a transaction
type TransactionType string

const (
	TransactionTypeReceipt TransactionType = "receipt"
	TransactionTypePayment TransactionType = "payment"
)

// IsValid checks if the transaction type is known
func (t TransactionType) IsValid() bool {
	return t == TransactionTypeReceipt || t == TransactionTypePayment
}

// Entry is a single debit or credit posting against a case account.
// Entries are owned by the case and are never mutated here.
type Entry struct {
	ID            uuid.UUID       `json:"id"`
	AccountCode   string          `json:"account_code"`
	AccountName   string          `json:"account_name"`
	AccountGroup  string          `json:"account_group"`
	AccountType   AccountType     `json:"account_type"`
	Debit         decimal.Decimal `json:"debit_amount"`
	Credit        decimal.Decimal `json:"credit_amount"`
	EntryDate     time.Time       `json:"entry_date"`
	TransactionID *uuid.UUID      `json:"transaction_id,omitempty"`
	JournalType   JournalType     `json:"journal_type"`
	Description   string          `json:"description,omitempty"`
	// ClaimRef optionally ties a distribution posting to a claim id
	ClaimRef *uuid.UUID `json:"claim_ref,omitempty"`
}

// Validate validates the entry
func (e *Entry) Validate() error {
	if !e.AccountType.IsValid() {
		return ErrInvalidAccountType
	}

	if e.JournalType != "" && !e.JournalType.IsValid() {
		return ErrInvalidJournalType
	}

	if e.AccountName == "" {
		return ErrMissingAccountName
	}

	if e.Debit.IsNegative() || e.Credit.IsNegative() {
		return ErrNegativeAmount
	}

	if e.EntryDate.IsZero() {
		return ErrMissingEntryDate
	}

	return nil
}

// IsAdjusting returns true for period-end adjusting journals
func (e *Entry) IsAdjusting() bool {
	return e.JournalType == JournalAdjusting
}

// Net returns the posting's signed amount under the given convention
func (e *Entry) Net(sign Sign) decimal.Decimal {
	return sign.Apply(e.Debit, e.Credit)
}

// Transaction is the cashiering record an entry hangs off
type Transaction struct {
	ID            uuid.UUID         `json:"id"`
	Status        TransactionStatus `json:"status"`
	Type          TransactionType   `json:"transaction_type"`
	TargetAccount string            `json:"target_account,omitempty"`
	Amount        decimal.Decimal   `json:"amount"`
}

// Validate validates the transaction
func (t *Transaction) Validate() error {
	if !t.Status.IsValid() {
		return ErrInvalidTransactionStatus
	}
	if !t.Type.IsValid() {
		return ErrInvalidTransactionType
	}
	return nil
}

// IsApproved returns true once the transaction has been approved
func (t *Transaction) IsApproved() bool {
	return t.Status == TransactionStatusApproved
}
