package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kislikjeka/caseledger/internal/casefile"
	"github.com/kislikjeka/caseledger/internal/distribution"
	"github.com/kislikjeka/caseledger/internal/infra/sqlite"
	"github.com/kislikjeka/caseledger/pkg/money"
)

func newDistributeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "distribute",
		Short: "Preview or declare a distribution to one class of claims",
		Long: `Compute a pro-rata distribution of --sum less --retain across the agreed
claims of one class in the snapshot. Nothing is recorded unless --declare is
given, in which case the result is stored in the local history database.`,
		Args: cobra.NoArgs,
		RunE: runDistribute,
	}

	cmd.Flags().StringP("type", "t", string(distribution.CreditorUnsecured),
		"Class to pay: secured, preferential, secondary_preferential, unsecured or members")
	cmd.Flags().String("sum", "", "Sum to distribute")
	cmd.Flags().String("retain", "0", "Sum to retain")
	cmd.Flags().Bool("declare", false, "Record the distribution in the history database")
	cmd.Flags().String("db", defaultDBPath, "History database file")
	cmd.Flags().String("by", defaultActor(), "Name recorded on the declaration")
	_ = cmd.MarkFlagRequired("sum")
	return cmd
}

func runDistribute(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	snap, err := loadSnapshot(cmd)
	if err != nil {
		return err
	}
	req, err := distributionRequest(cmd, snap)
	if err != nil {
		return err
	}
	log := commandLogger(cmd)

	// claims are read from the snapshot through the case service
	claims := casefile.NewService(casefile.NewStaticSource(snap), nil, nil, nil, log)

	declare, _ := cmd.Flags().GetBool("declare")
	out := cmd.OutOrStdout()

	if !declare {
		svc := distribution.NewService(distribution.NewMemoryRepository(), claims, nil, nil, log)
		result, err := svc.Preview(ctx, req)
		if err != nil {
			return err
		}
		if wantJSON(cmd) {
			return printJSON(out, result)
		}
		if err := renderResult(out, result); err != nil {
			return err
		}
		fmt.Fprintln(out, "\nPreview only; re-run with --declare to record it")
		return nil
	}

	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := distribution.NewService(sqlite.NewDistributionRepository(db), claims, nil, nil, log)
	req.DeclaredBy, _ = cmd.Flags().GetString("by")
	decl, err := svc.Declare(ctx, req)
	if err != nil {
		return err
	}
	if wantJSON(cmd) {
		return printJSON(out, decl)
	}
	return renderDeclaration(out, decl)
}

func distributionRequest(cmd *cobra.Command, snap *casefile.Snapshot) (distribution.Request, error) {
	typ, _ := cmd.Flags().GetString("type")
	sumFlag, _ := cmd.Flags().GetString("sum")
	retainFlag, _ := cmd.Flags().GetString("retain")

	sum, err := money.Parse(sumFlag)
	if err != nil {
		return distribution.Request{}, fmt.Errorf("--sum: %w", err)
	}
	retain, err := money.Parse(retainFlag)
	if err != nil {
		return distribution.Request{}, fmt.Errorf("--retain: %w", err)
	}

	return distribution.Request{
		CaseID:           snap.Case.ID,
		DistributionType: distribution.CreditorType(typ),
		SumToDistribute:  sum,
		SumToRetain:      retain,
	}, nil
}
