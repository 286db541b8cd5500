package ledger_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/caseledger/internal/ledger"
)

func TestFilter_DropsOrphans(t *testing.T) {
	tx := approvedTx("")
	deleted := approvedTx("")

	kept := posting(tx, ledger.AccountTypeAssetRealisation, "Book Debts", "0", "500", date(2024, 3, 1))
	orphan := posting(deleted, ledger.AccountTypeAssetRealisation, "Book Debts", "0", "250", date(2024, 3, 2))
	unlinked := posting(nil, ledger.AccountTypeCost, "Agent Fees", "40", "0", date(2024, 3, 3))

	valid, report := ledger.Filter([]*ledger.Entry{kept, orphan, unlinked}, []*ledger.Transaction{tx}, ledger.FilterOptions{})

	require.Len(t, valid, 1)
	assert.Same(t, kept, valid[0])
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Orphaned)
	assert.Equal(t, 1, report.Retained)
	assert.Equal(t, 1, report.Linked())

	anomalies := report.Anomalies()
	require.Len(t, anomalies, 1)
	assert.Equal(t, ledger.AnomalyOrphanDataAssumed, anomalies[0].Code)
}

func TestFilter_OrphanExclusionMatchesPhysicalRemoval(t *testing.T) {
	tx1, tx2 := approvedTx(""), approvedTx("")
	ghost := approvedTx("")

	clean := []*ledger.Entry{
		posting(tx1, ledger.AccountTypeAssetRealisation, "Stock", "0", "1200", date(2024, 2, 1)),
		posting(tx1, ledger.AccountTypeBank, "Current", "1200", "0", date(2024, 2, 1)),
		posting(tx2, ledger.AccountTypeCost, "Legal Fees", "300", "0", date(2023, 5, 1)),
		posting(tx2, ledger.AccountTypeBank, "Current", "0", "300", date(2023, 5, 1)),
	}
	withOrphans := append([]*ledger.Entry{
		posting(ghost, ledger.AccountTypeAssetRealisation, "Stock", "0", "999", date(2024, 2, 2)),
		posting(ghost, ledger.AccountTypeBank, "Current", "999", "0", date(2024, 2, 2)),
	}, clean...)
	txs := []*ledger.Transaction{tx1, tx2}

	filteredClean, _ := ledger.Filter(clean, txs, ledger.FilterOptions{RequireApproved: true})
	filteredDirty, report := ledger.Filter(withOrphans, txs, ledger.FilterOptions{RequireApproved: true})

	assert.Equal(t, 2, report.Orphaned)
	assert.Equal(t,
		flatten(ledger.Aggregate(filteredClean, nil, window, nil)),
		flatten(ledger.Aggregate(filteredDirty, nil, window, nil)))
}

func TestFilter_ApprovalGating(t *testing.T) {
	tx := approvedTx("")
	entries := []*ledger.Entry{
		posting(tx, ledger.AccountTypeAssetRealisation, "Plant", "0", "800", date(2024, 4, 1)),
		posting(tx, ledger.AccountTypeBank, "Current", "800", "0", date(2024, 4, 1)),
	}

	valid, report := ledger.Filter(entries, []*ledger.Transaction{tx}, ledger.FilterOptions{RequireApproved: true})
	require.Len(t, valid, 2)
	agg := ledger.Aggregate(valid, nil, window, nil)
	assert.Contains(t, agg, ledger.GroupKey{AccountType: ledger.AccountTypeAssetRealisation, Name: "Plant"})

	for _, status := range []ledger.TransactionStatus{ledger.TransactionStatusDraft, ledger.TransactionStatusSubmitted} {
		t.Run(string(status), func(t *testing.T) {
			tx.Status = status

			valid, gated := ledger.Filter(entries, []*ledger.Transaction{tx}, ledger.FilterOptions{RequireApproved: true})
			assert.Empty(t, valid)
			assert.Empty(t, ledger.Aggregate(valid, nil, window, nil))
			assert.Equal(t, report.Total, gated.Total)
			assert.Equal(t, report.Linked(), gated.Linked())
			assert.Equal(t, 2, gated.Unapproved)
			assert.Empty(t, gated.Anomalies())

			ungated, _ := ledger.Filter(entries, []*ledger.Transaction{tx}, ledger.FilterOptions{})
			assert.Len(t, ungated, 2)
		})
	}
}

// VAT adjustment with no transaction survives; posting whose transaction was deleted does not
func TestFilter_AdjustingRetainedOrphanExcluded(t *testing.T) {
	deleted := approvedTx("")
	vatAdj := adjusting(ledger.AccountTypeVATControl, "VAT Control", "75", "0", date(2024, 6, 30))
	orphan := posting(deleted, ledger.AccountTypeAssetRealisation, "Debtors", "0", "400", date(2024, 6, 1))

	valid, report := ledger.Filter([]*ledger.Entry{vatAdj, orphan}, nil, ledger.FilterOptions{RequireApproved: true})

	require.Len(t, valid, 1)
	assert.Same(t, vatAdj, valid[0])
	assert.Equal(t, 1, report.Adjusting)
	assert.Equal(t, 1, report.Orphaned)

	agg := ledger.Aggregate(valid, nil, window, nil)
	require.Len(t, agg, 1)
	b := agg[ledger.GroupKey{AccountType: ledger.AccountTypeVATControl, Name: "VAT Control"}]
	assert.True(t, dec("75").Equal(b.Period))
	assert.True(t, dec("75").Equal(b.SinceInception))
}

func TestFilter_EmptyTransactionsDropsAllOrdinary(t *testing.T) {
	entries := []*ledger.Entry{
		posting(approvedTx(""), ledger.AccountTypeAssetRealisation, "Cash", "0", "10", date(2024, 1, 15)),
		posting(approvedTx(""), ledger.AccountTypeCost, "Fees", "10", "0", date(2024, 1, 15)),
		adjusting(ledger.AccountTypeControl, "Interest", "1.50", "0", date(2024, 1, 31)),
		nil,
	}

	valid, report := ledger.Filter(entries, []*ledger.Transaction{}, ledger.FilterOptions{})

	require.Len(t, valid, 1)
	assert.True(t, valid[0].IsAdjusting())
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Orphaned)
}

func TestFilter_BankScoping(t *testing.T) {
	primary := approvedTx("")
	current := approvedTx("Current")
	deposit := approvedTx("Deposit")

	entries := []*ledger.Entry{
		posting(primary, ledger.AccountTypeBank, "Current", "10", "0", date(2024, 2, 1)),
		posting(current, ledger.AccountTypeBank, "Current", "20", "0", date(2024, 2, 1)),
		posting(deposit, ledger.AccountTypeBank, "Deposit", "30", "0", date(2024, 2, 1)),
		adjusting(ledger.AccountTypeBank, "Deposit", "0", "5", date(2024, 2, 2)),
	}
	txs := []*ledger.Transaction{primary, current, deposit}

	tests := []struct {
		name       string
		opts       ledger.FilterOptions
		retained   int
		outOfScope int
	}{
		{"no scoping", ledger.FilterOptions{}, 4, 0},
		{"all accounts", ledger.FilterOptions{BankAccount: ledger.AllBankAccounts}, 4, 0},
		{"primary account picks untargeted", ledger.FilterOptions{BankAccount: "Current", PrimaryAccount: "Current"}, 3, 1},
		{"secondary account", ledger.FilterOptions{BankAccount: "Deposit", PrimaryAccount: "Current"}, 2, 2},
		{"unknown account keeps adjustments only", ledger.FilterOptions{BankAccount: "Escrow", PrimaryAccount: "Current"}, 1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, report := ledger.Filter(entries, txs, tt.opts)
			assert.Len(t, valid, tt.retained)
			assert.Equal(t, tt.outOfScope, report.OutOfScope)
		})
	}
}

func TestFilter_DoesNotMutateInputs(t *testing.T) {
	tx := approvedTx("")
	id := uuid.New()
	entries := []*ledger.Entry{
		posting(tx, ledger.AccountTypeCost, "Fees", "5", "0", date(2024, 1, 20)),
		{ID: id, AccountName: "Orphan", AccountType: ledger.AccountTypeCost, Debit: dec("1"), Credit: dec("0"), EntryDate: date(2024, 1, 20)},
	}
	before := append([]*ledger.Entry(nil), entries...)

	_, _ = ledger.Filter(entries, []*ledger.Transaction{tx}, ledger.FilterOptions{})

	assert.Equal(t, before, entries)
}
