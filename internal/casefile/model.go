package casefile

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kislikjeka/caseledger/internal/distribution"
	"github.com/kislikjeka/caseledger/internal/ledger"
	"github.com/kislikjeka/caseledger/internal/statement"
)

// Case is the metadata of an insolvency case
type Case struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	CaseType        string    `json:"case_type,omitempty"`
	AppointmentDate time.Time `json:"appointment_date"`
	// PrimaryBankAccount owns transactions that name no target account
	PrimaryBankAccount string `json:"primary_bank_account,omitempty"`
}

// Snapshot is everything the reports of one case are computed from. It is
// read once and treated as immutable for the duration of a calculation.
type Snapshot struct {
	Case         Case                  `json:"case"`
	Entries      []*ledger.Entry       `json:"entries"`
	Transactions []*ledger.Transaction `json:"transactions"`
	Claims       []distribution.Claim  `json:"claims"`
}

// Validate checks every record in the snapshot
func (s *Snapshot) Validate() error {
	if s.Case.AppointmentDate.IsZero() {
		return fmt.Errorf("%w: %w", ErrInvalidSnapshot, ErrMissingAppointment)
	}
	for i, e := range s.Entries {
		if e == nil {
			continue
		}
		if err := e.Validate(); err != nil {
			return fmt.Errorf("%w: entry %d: %w", ErrInvalidSnapshot, i, err)
		}
	}
	for i, tx := range s.Transactions {
		if tx == nil {
			continue
		}
		if err := tx.Validate(); err != nil {
			return fmt.Errorf("%w: transaction %d: %w", ErrInvalidSnapshot, i, err)
		}
	}
	for i, c := range s.Claims {
		if !c.CreditorType.IsValid() {
			return fmt.Errorf("%w: claim %d: %w", ErrInvalidSnapshot, i, distribution.ErrInvalidDistributionType)
		}
	}
	return nil
}

// ReportKind names a case report
type ReportKind string

const (
	ReportStatement    ReportKind = "statement"
	ReportTrialBalance ReportKind = "trial_balance"
	ReportVAT          ReportKind = "vat"
)

// IsValid checks if the report kind is known
func (k ReportKind) IsValid() bool {
	switch k {
	case ReportStatement, ReportTrialBalance, ReportVAT:
		return true
	}
	return false
}

// ReportOptions are the caller's selections for one report
type ReportOptions struct {
	// PeriodFrom defaults to the appointment date
	PeriodFrom time.Time `json:"period_from"`
	// PeriodTo defaults to today
	PeriodTo time.Time `json:"period_to"`
	// BankAccount scopes a statement to one bank account; empty or "all" for every account
	BankAccount string `json:"bank_account,omitempty"`
	// IncludeUnapproved lets draft and submitted transactions count
	IncludeUnapproved bool `json:"include_unapproved,omitempty"`
}

func (o ReportOptions) window(c Case, now time.Time) ledger.Window {
	w := ledger.Window{
		AppointmentDate: c.AppointmentDate,
		PeriodFrom:      o.PeriodFrom,
		PeriodTo:        o.PeriodTo,
	}
	if w.PeriodTo.IsZero() {
		w.PeriodTo = now.UTC()
	}
	if w.PeriodFrom.IsZero() {
		w.PeriodFrom = c.AppointmentDate
	}
	return w
}

// cacheKey identifies a report for caching
func (o ReportOptions) cacheKey(kind ReportKind, caseID uuid.UUID, now time.Time) string {
	const day = "2006-01-02"
	to := o.PeriodTo
	if to.IsZero() {
		to = now.UTC()
	}
	from := "inception"
	if !o.PeriodFrom.IsZero() {
		from = o.PeriodFrom.UTC().Format(day)
	}
	bank := o.BankAccount
	if bank == "" {
		bank = ledger.AllBankAccounts
	}
	return fmt.Sprintf("%s:%s:%s:%s:%s:%t", caseID, kind, from, to.UTC().Format(day), bank, o.IncludeUnapproved)
}

// Report is a computed case report with the anomalies found building it
type Report struct {
	Kind        ReportKind          `json:"kind"`
	CaseID      uuid.UUID           `json:"case_id"`
	CaseName    string              `json:"case_name,omitempty"`
	Window      ledger.Window       `json:"window"`
	Filter      ledger.FilterReport `json:"filter"`
	Anomalies   []ledger.Anomaly    `json:"anomalies,omitempty"`
	GeneratedAt time.Time           `json:"generated_at"`
	// Stale is set when the case source was unavailable and a previously
	// computed report was served instead
	Stale bool `json:"stale,omitempty"`

	Statement    *statement.Statement `json:"statement,omitempty"`
	TrialBalance *ledger.TrialBalance `json:"trial_balance,omitempty"`
	VAT          *ledger.VATPosition  `json:"vat,omitempty"`
}
