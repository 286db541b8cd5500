package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/kislikjeka/caseledger/internal/casefile"
	"github.com/kislikjeka/caseledger/internal/distribution"
	"github.com/kislikjeka/caseledger/internal/ledger"
	"github.com/kislikjeka/caseledger/internal/statement"
	"github.com/kislikjeka/caseledger/pkg/money"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
}

func renderHeader(w io.Writer, title string, r *casefile.Report) {
	fmt.Fprintf(w, "%s\n", r.CaseName)
	fmt.Fprintf(w, "%s from %s to %s (appointed %s)\n", title,
		r.Window.PeriodFrom.Format(dateLayout),
		r.Window.PeriodTo.Format(dateLayout),
		r.Window.AppointmentDate.Format(dateLayout))
	if r.Stale {
		fmt.Fprintln(w, "WARNING: served from a stale copy")
	}
	fmt.Fprintln(w)
}

func renderAnomalies(w io.Writer, r *casefile.Report) {
	f := r.Filter
	fmt.Fprintf(w, "\nPostings: %d total, %d used, %d orphaned, %d unapproved, %d out of scope, %d adjusting\n",
		f.Total, f.Retained, f.Orphaned, f.Unapproved, f.OutOfScope, f.Adjusting)
	for _, a := range r.Anomalies {
		fmt.Fprintf(w, "! %s: %s\n", a.Code, a.Message)
	}
}

func balanceRow(tw io.Writer, label string, b ledger.Balance) {
	fmt.Fprintf(tw, "%s\t%s\t%s\t\n", label, money.Statutory(b.Period), money.Statutory(b.SinceInception))
}

func renderSection(tw io.Writer, s statement.Section) {
	fmt.Fprintf(tw, "%s\t\t\t\n", s.Title)
	for _, row := range s.Rows {
		balanceRow(tw, "  "+row.Label, row.Balance)
	}
	balanceRow(tw, "", s.Total)
	fmt.Fprintln(tw, "\t\t\t")
}

func renderStatement(w io.Writer, r *casefile.Report) error {
	st := r.Statement
	account := st.BankAccount
	if account == "" {
		account = ledger.AllBankAccounts
	}
	renderHeader(w, "Receipts and payments account", r)
	fmt.Fprintf(w, "Bank account: %s\n\n", account)

	tw := newTable(w)
	fmt.Fprintf(tw, "\tPeriod\tSince inception\t\n")
	for _, s := range st.Sections {
		renderSection(tw, s)
	}
	balanceRow(tw, "Total movements", st.TotalMovements)
	fmt.Fprintln(tw, "\t\t\t")
	renderSection(tw, st.RepresentedBy)
	balanceRow(tw, "Difference", st.Difference)
	if err := tw.Flush(); err != nil {
		return err
	}

	if st.Reconciled {
		fmt.Fprintln(w, "\nReconciled")
	} else {
		fmt.Fprintln(w, "\nNOT RECONCILED")
	}
	renderAnomalies(w, r)
	return nil
}

func renderTrialBalance(w io.Writer, r *casefile.Report) error {
	tb := r.TrialBalance
	renderHeader(w, "Trial balance", r)

	tw := newTable(w)
	fmt.Fprintf(tw, "Code\tAccount\tDebit\tCredit\t\n")
	for _, row := range tb.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", row.AccountCode, row.AccountName,
			money.Statutory(row.Debit), money.Statutory(row.Credit))
	}
	fmt.Fprintf(tw, "\tTotal\t%s\t%s\t\n", money.Statutory(tb.TotalDebit), money.Statutory(tb.TotalCredit))
	if err := tw.Flush(); err != nil {
		return err
	}

	if tb.Balanced {
		fmt.Fprintln(w, "\nBalanced")
	} else {
		fmt.Fprintln(w, "\nNOT BALANCED")
	}
	renderAnomalies(w, r)
	return nil
}

func renderVAT(w io.Writer, r *casefile.Report) error {
	v := r.VAT
	renderHeader(w, "VAT control position", r)

	tw := newTable(w)
	fmt.Fprintf(tw, "\tPeriod\tSince inception\t\n")
	fmt.Fprintf(tw, "Input VAT\t%s\t%s\t\n", money.Statutory(v.Period.Input), money.Statutory(v.SinceInception.Input))
	fmt.Fprintf(tw, "Output VAT\t%s\t%s\t\n", money.Statutory(v.Period.Output), money.Statutory(v.SinceInception.Output))
	fmt.Fprintf(tw, "Net reclaimable\t%s\t%s\t\n", money.Statutory(v.Period.Net), money.Statutory(v.SinceInception.Net))
	if err := tw.Flush(); err != nil {
		return err
	}

	if v.Adjustments > 0 {
		fmt.Fprintf(w, "\nIncludes %d adjusting journal(s)\n", v.Adjustments)
	}
	renderAnomalies(w, r)
	return nil
}

func renderResult(w io.Writer, res *distribution.Result) error {
	fmt.Fprintf(w, "%s distribution\n", res.DistributionType.Label())
	fmt.Fprintf(w, "Sum to distribute: %s\n", money.Display(res.SumToDistribute, ""))
	fmt.Fprintf(w, "Sum to retain:     %s\n", money.Display(res.SumToRetain, ""))
	fmt.Fprintf(w, "Net distribution:  %s\n", money.Display(res.NetDistribution, ""))
	fmt.Fprintf(w, "Total claims:      %s\n", money.Display(res.TotalClaims, ""))
	fmt.Fprintf(w, "Dividend rate:     %s\n\n", res.DividendRateLabel)

	tw := newTable(w)
	fmt.Fprintf(tw, "Claimant\tClaim\tShare\tPayment\t\n")
	for _, l := range res.Lines {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", l.ClaimName,
			money.Display(l.ClaimAmount, ""), l.DistributionAmount.String(), money.Display(l.Payment, ""))
	}
	fmt.Fprintf(tw, "Total\t\t\t%s\t\n", money.Display(res.TotalPayments(), ""))
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(res.Inactive) > 0 {
		fmt.Fprintln(w, "\nNot participating (no agreed balance):")
		for _, c := range res.Inactive {
			fmt.Fprintf(w, "  %s\n", c.CreditorName)
		}
	}
	return nil
}

func renderDeclaration(w io.Writer, d *distribution.Declaration) error {
	fmt.Fprintf(w, "Declaration %s\n", d.ID)
	fmt.Fprintf(w, "Declared %s", d.DeclaredDate.Format("2006-01-02 15:04:05 MST"))
	if d.DeclaredBy != "" {
		fmt.Fprintf(w, " by %s", d.DeclaredBy)
	}
	fmt.Fprint(w, "\n\n")
	return renderResult(w, &d.Result)
}

func renderHistory(w io.Writer, decls []*distribution.Declaration) error {
	if len(decls) == 0 {
		fmt.Fprintln(w, "No distributions declared")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\tDECLARED\tTYPE\tNET\tRATE\tBY\n")
	for _, d := range decls {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", d.ID,
			d.DeclaredDate.Format("2006-01-02 15:04"), d.DistributionType,
			money.Display(d.NetDistribution, ""), d.DividendRateLabel, d.DeclaredBy)
	}
	return tw.Flush()
}
