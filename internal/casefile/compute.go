package casefile

import (
	"fmt"
	"time"

	"github.com/kislikjeka/caseledger/internal/ledger"
	"github.com/kislikjeka/caseledger/internal/statement"
)

// Compute builds one report from a snapshot. It has no side effects and
// never blocks.
func Compute(composer *statement.Composer, kind ReportKind, snap *Snapshot, opts ReportOptions, now time.Time) (*Report, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidReportKind, kind)
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	w := opts.window(snap.Case, now)
	if err := w.Validate(); err != nil {
		return nil, err
	}

	filterOpts := ledger.FilterOptions{
		RequireApproved: !opts.IncludeUnapproved,
		PrimaryAccount:  snap.Case.PrimaryBankAccount,
	}
	if kind == ReportStatement {
		filterOpts.BankAccount = opts.BankAccount
	}
	entries, filterReport := ledger.Filter(snap.Entries, snap.Transactions, filterOpts)

	report := &Report{
		Kind:        kind,
		CaseID:      snap.Case.ID,
		CaseName:    snap.Case.Name,
		Window:      w,
		Filter:      filterReport,
		Anomalies:   filterReport.Anomalies(),
		GeneratedAt: now.UTC(),
	}

	switch kind {
	case ReportStatement:
		report.Statement = composer.Build(statement.CaseContext{
			CaseID:      snap.Case.ID,
			CaseName:    snap.Case.Name,
			CaseType:    snap.Case.CaseType,
			Window:      w,
			BankAccount: opts.BankAccount,
		}, entries, snap.Claims)
		report.Anomalies = append(report.Anomalies, report.Statement.Anomalies...)
	case ReportTrialBalance:
		report.TrialBalance = ledger.BuildTrialBalance(entries, w)
		report.Anomalies = append(report.Anomalies, report.TrialBalance.Anomalies...)
	case ReportVAT:
		report.VAT = ledger.BuildVATPosition(entries, w)
	}

	return report, nil
}
