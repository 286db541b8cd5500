// Package cli implements casectl, the offline companion to the API server.
// Reports and distribution previews are computed from a JSON case snapshot;
// declared distributions are kept in a local SQLite file.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kislikjeka/caseledger/internal/casefile"
	"github.com/kislikjeka/caseledger/internal/statement"
	"github.com/kislikjeka/caseledger/pkg/logger"
)

// Execute runs casectl and returns the process exit code
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		return 1
	}
	return 0
}

// NewRootCmd builds the casectl command tree
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "casectl",
		Short: "Statutory reports and distributions for insolvency cases",
		Long: `casectl computes receipts-and-payments statements, trial balances, VAT
positions and creditor distributions from a case snapshot file.

Declared distributions are recorded in a local SQLite database so that a
case's distribution history can be listed and corrected.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringP("snapshot", "s", "", "Path to the case snapshot JSON file")
	root.PersistentFlags().String("layout", "", "Statement layout file (.yaml, .yml or .toml)")
	root.PersistentFlags().Bool("json", false, "Print JSON instead of text")
	root.PersistentFlags().BoolP("verbose", "v", false, "Log to stderr")

	root.AddCommand(
		newReportCmd(casefile.ReportStatement, "statement", "Receipts and payments statement"),
		newReportCmd(casefile.ReportTrialBalance, "trial-balance", "Trial balance of every material account"),
		newReportCmd(casefile.ReportVAT, "vat", "VAT control account position"),
		newDistributeCmd(),
		newHistoryCmd(),
		newLayoutCmd(),
	)
	return root
}

func commandLogger(cmd *cobra.Command) *logger.Logger {
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		return logger.NewWithFormat("development", "", cmd.ErrOrStderr())
	}
	return logger.Discard()
}

func loadSnapshot(cmd *cobra.Command) (*casefile.Snapshot, error) {
	path, _ := cmd.Flags().GetString("snapshot")
	if path == "" {
		return nil, fmt.Errorf("snapshot file required: --snapshot <file>")
	}
	return casefile.ReadSnapshotFile(path)
}

func loadLayout(cmd *cobra.Command) (statement.Layout, error) {
	path, _ := cmd.Flags().GetString("layout")
	if path == "" {
		return statement.DefaultLayout(), nil
	}
	return statement.LoadLayout(path)
}

func loadComposer(cmd *cobra.Command) (*statement.Composer, error) {
	layout, err := loadLayout(cmd)
	if err != nil {
		return nil, err
	}
	return statement.NewComposer(layout)
}

func wantJSON(cmd *cobra.Command) bool {
	asJSON, _ := cmd.Flags().GetBool("json")
	return asJSON
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// defaultActor names the local user on declarations and deletions
func defaultActor() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "casectl"
}
