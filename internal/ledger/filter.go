package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// AllBankAccounts selects every bank account when scoping entries
const AllBankAccounts = "all"

// FilterOptions controls which postings survive Filter
type FilterOptions struct {
	// RequireApproved keeps only entries whose parent transaction is approved
	RequireApproved bool

	// BankAccount scopes entries to transactions targeting one bank account.
	// Empty or AllBankAccounts disables scoping.
	BankAccount string

	// PrimaryAccount is the account an entry belongs to when its transaction
	// has no explicit target.
	PrimaryAccount string
}

func (o FilterOptions) scoped() bool {
	return o.BankAccount != "" && o.BankAccount != AllBankAccounts
}

// FilterReport counts what Filter did with each posting
type FilterReport struct {
	Total      int `json:"total"`
	Retained   int `json:"retained"`
	Adjusting  int `json:"adjusting"`
	Orphaned   int `json:"orphaned"`
	Unapproved int `json:"unapproved"`
	OutOfScope int `json:"out_of_scope"`
}

// Linked is the number of postings with a resolvable parent transaction plus
// adjusting journals, regardless of approval or account scope.
func (r FilterReport) Linked() int {
	return r.Total - r.Orphaned
}

// Anomalies returns the soft warnings implied by the report
func (r FilterReport) Anomalies() []Anomaly {
	if r.Orphaned == 0 {
		return nil
	}
	return []Anomaly{{
		Code:    AnomalyOrphanDataAssumed,
		Message: fmt.Sprintf("%d of %d ledger entries reference a missing transaction and were excluded", r.Orphaned, r.Total),
	}}
}

// Filter drops postings that must not contribute to statutory aggregates.
//
// Adjusting journals are account-wide and always kept. Any other entry is
// kept only if its transaction is present in transactions (an empty set
// therefore drops them all), is approved when opts.RequireApproved is set,
// and targets opts.BankAccount when scoping is requested.
//
// The input slices are not modified; the returned slice shares entry pointers.
func Filter(entries []*Entry, transactions []*Transaction, opts FilterOptions) ([]*Entry, FilterReport) {
	report := FilterReport{Total: len(entries)}

	byID := make(map[uuid.UUID]*Transaction, len(transactions))
	for _, tx := range transactions {
		if tx != nil {
			byID[tx.ID] = tx
		}
	}

	valid := make([]*Entry, 0, len(entries))
	for _, entry := range entries {
		if entry == nil {
			report.Total--
			continue
		}

		if entry.IsAdjusting() {
			report.Adjusting++
			valid = append(valid, entry)
			continue
		}

		var tx *Transaction
		if entry.TransactionID != nil {
			tx = byID[*entry.TransactionID]
		}
		if tx == nil {
			report.Orphaned++
			continue
		}

		if opts.RequireApproved && !tx.IsApproved() {
			report.Unapproved++
			continue
		}

		if opts.scoped() {
			target := tx.TargetAccount
			if target == "" {
				target = opts.PrimaryAccount
			}
			if target != opts.BankAccount {
				report.OutOfScope++
				continue
			}
		}

		valid = append(valid, entry)
	}

	report.Retained = len(valid)
	return valid, report
}
