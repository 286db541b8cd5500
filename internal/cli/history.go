package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kislikjeka/caseledger/internal/distribution"
	"github.com/kislikjeka/caseledger/internal/infra/sqlite"
)

const defaultDBPath = "caseledger.db"

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List, show or delete declared distributions",
		Long: `Inspect the distributions declared for a case. The case is taken from
--case or, failing that, from the --snapshot file.`,
	}
	cmd.PersistentFlags().String("db", defaultDBPath, "History database file")
	cmd.PersistentFlags().String("case", "", "Case ID (default: the snapshot's case)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List declarations, newest first",
		Args:  cobra.NoArgs,
		RunE:  runHistoryList,
	}

	show := &cobra.Command{
		Use:   "show ID",
		Short: "Show one declaration",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShow,
	}

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a declaration so that it can be re-declared",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryDelete,
	}
	del.Flags().Bool("confirm", false, "Confirm the deletion")
	del.Flags().String("by", defaultActor(), "Name recorded against the deletion")

	cmd.AddCommand(list, show, del)
	return cmd
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	svc, caseID, done, err := historyService(cmd)
	if err != nil {
		return err
	}
	defer done()

	decls, err := svc.List(commandContext(cmd), caseID)
	if err != nil {
		return err
	}
	if wantJSON(cmd) {
		if decls == nil {
			decls = []*distribution.Declaration{}
		}
		return printJSON(cmd.OutOrStdout(), decls)
	}
	return renderHistory(cmd.OutOrStdout(), decls)
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid declaration ID %q", args[0])
	}
	svc, caseID, done, err := historyService(cmd)
	if err != nil {
		return err
	}
	defer done()

	decl, err := svc.Get(commandContext(cmd), caseID, id)
	if err != nil {
		return err
	}
	if wantJSON(cmd) {
		return printJSON(cmd.OutOrStdout(), decl)
	}
	return renderDeclaration(cmd.OutOrStdout(), decl)
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid declaration ID %q", args[0])
	}
	svc, caseID, done, err := historyService(cmd)
	if err != nil {
		return err
	}
	defer done()

	confirm, _ := cmd.Flags().GetBool("confirm")
	actor, _ := cmd.Flags().GetString("by")
	if err := svc.Delete(commandContext(cmd), caseID, id, confirm, actor); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted declaration %s\n", id)
	return nil
}

// historyService opens the history database for the selected case. done
// closes it.
func historyService(cmd *cobra.Command) (*distribution.Service, uuid.UUID, func(), error) {
	caseID, err := selectedCase(cmd)
	if err != nil {
		return nil, uuid.Nil, nil, err
	}
	db, err := openHistory(cmd)
	if err != nil {
		return nil, uuid.Nil, nil, err
	}
	svc := distribution.NewService(sqlite.NewDistributionRepository(db), nil, nil, nil, commandLogger(cmd))
	return svc, caseID, func() { db.Close() }, nil
}

func selectedCase(cmd *cobra.Command) (uuid.UUID, error) {
	if raw, _ := cmd.Flags().GetString("case"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid case ID %q", raw)
		}
		return id, nil
	}
	snap, err := loadSnapshot(cmd)
	if err != nil {
		return uuid.Nil, fmt.Errorf("no case selected: pass --case or --snapshot")
	}
	return snap.Case.ID, nil
}

func openHistory(cmd *cobra.Command) (*sqlite.DB, error) {
	path, _ := cmd.Flags().GetString("db")
	db, err := sqlite.Open(commandContext(cmd), path)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", path, err)
	}
	return db, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
