package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kislikjeka/caseledger/internal/casefile"
)

const dateLayout = "2006-01-02"

func newReportCmd(kind casefile.ReportKind, use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, kind)
		},
	}

	cmd.Flags().String("from", "", "Period start (YYYY-MM-DD, default appointment date)")
	cmd.Flags().String("to", "", "Period end (YYYY-MM-DD, default today)")
	cmd.Flags().Bool("include-unapproved", false, "Count draft and submitted transactions")
	if kind == casefile.ReportStatement {
		cmd.Flags().String("account", "", `Bank account to report on (default "all")`)
	}
	return cmd
}

func runReport(cmd *cobra.Command, kind casefile.ReportKind) error {
	snap, err := loadSnapshot(cmd)
	if err != nil {
		return err
	}
	composer, err := loadComposer(cmd)
	if err != nil {
		return err
	}
	opts, err := reportOptions(cmd)
	if err != nil {
		return err
	}

	report, err := casefile.Compute(composer, kind, snap, opts, time.Now())
	if err != nil {
		return err
	}

	log := commandLogger(cmd).WithCase(snap.Case.ID)
	for _, a := range report.Anomalies {
		log.Warn("report anomaly", "code", a.Code, "message", a.Message)
	}

	out := cmd.OutOrStdout()
	if wantJSON(cmd) {
		return printJSON(out, report)
	}
	switch kind {
	case casefile.ReportStatement:
		return renderStatement(out, report)
	case casefile.ReportTrialBalance:
		return renderTrialBalance(out, report)
	default:
		return renderVAT(out, report)
	}
}

func reportOptions(cmd *cobra.Command) (casefile.ReportOptions, error) {
	var opts casefile.ReportOptions
	var err error

	from, _ := cmd.Flags().GetString("from")
	if opts.PeriodFrom, err = parseDateFlag("from", from); err != nil {
		return opts, err
	}
	to, _ := cmd.Flags().GetString("to")
	if opts.PeriodTo, err = parseDateFlag("to", to); err != nil {
		return opts, err
	}
	opts.IncludeUnapproved, _ = cmd.Flags().GetBool("include-unapproved")
	if cmd.Flags().Lookup("account") != nil {
		opts.BankAccount, _ = cmd.Flags().GetString("account")
	}
	return opts, nil
}

func parseDateFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: expected YYYY-MM-DD, got %q", name, value)
	}
	return t, nil
}
