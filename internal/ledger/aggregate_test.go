package ledger_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/caseledger/internal/ledger"
)

func key(t ledger.AccountType, name string) ledger.GroupKey {
	return ledger.GroupKey{AccountType: t, Name: name}
}

func TestAggregate_TwoWindows(t *testing.T) {
	entries := []*ledger.Entry{
		// before appointment: ignored
		posting(nil, ledger.AccountTypeAssetRealisation, "Stock", "0", "5000", date(2022, 12, 31)),
		// prior period: since inception only
		posting(nil, ledger.AccountTypeAssetRealisation, "Stock", "0", "1000", date(2023, 6, 1)),
		// current period: both
		posting(nil, ledger.AccountTypeAssetRealisation, "Stock", "0", "250.50", date(2024, 1, 10)),
		posting(nil, ledger.AccountTypeAssetRealisation, "Stock", "50", "0", date(2025, 1, 9)),
		// after period end: ignored
		posting(nil, ledger.AccountTypeAssetRealisation, "Stock", "0", "777", date(2025, 1, 10)),
	}

	agg := ledger.Aggregate(entries, nil, window, nil)

	require.Len(t, agg, 1)
	b := agg[key(ledger.AccountTypeAssetRealisation, "Stock")]
	assert.Equal(t, "200.5", b.Period.String())
	assert.Equal(t, "1200.5", b.SinceInception.String())
}

func TestAggregate_SignConvention(t *testing.T) {
	entries := []*ledger.Entry{
		posting(nil, ledger.AccountTypeAssetRealisation, "Debtors", "0", "300", date(2024, 5, 1)),
		posting(nil, ledger.AccountTypeBank, "Current", "300", "0", date(2024, 5, 1)),
		posting(nil, ledger.AccountTypeCost, "Agent", "45", "0", date(2024, 5, 2)),
		posting(nil, ledger.AccountTypeBank, "Current", "0", "45", date(2024, 5, 2)),
	}

	t.Run("default follows account role", func(t *testing.T) {
		agg := ledger.Aggregate(entries, nil, window, nil)
		assert.Equal(t, "300", agg[key(ledger.AccountTypeAssetRealisation, "Debtors")].Period.String())
		assert.Equal(t, "-45", agg[key(ledger.AccountTypeCost, "Agent")].Period.String())
		assert.Equal(t, "255", agg[key(ledger.AccountTypeBank, "Current")].Period.String())
	})

	t.Run("caller overrides convention", func(t *testing.T) {
		agg := ledger.Aggregate(entries, nil, window, ledger.Always(ledger.DebitNormal))
		assert.Equal(t, "-300", agg[key(ledger.AccountTypeAssetRealisation, "Debtors")].Period.String())
		assert.Equal(t, "45", agg[key(ledger.AccountTypeCost, "Agent")].Period.String())
		assert.Equal(t, "255", agg[key(ledger.AccountTypeBank, "Current")].Period.String())
	})
}

func TestAggregate_Materiality(t *testing.T) {
	entries := []*ledger.Entry{
		// exact offset
		posting(nil, ledger.AccountTypeCost, "Insurance", "120", "0", date(2024, 2, 1)),
		posting(nil, ledger.AccountTypeCost, "Insurance", "0", "120", date(2024, 2, 3)),
		// one penny is not material
		posting(nil, ledger.AccountTypeCost, "Sundry", "0.01", "0", date(2024, 2, 1)),
		// just over is
		posting(nil, ledger.AccountTypeCost, "Postage", "0.011", "0", date(2024, 2, 1)),
		// zero in period but material since inception
		posting(nil, ledger.AccountTypeCost, "Legal", "80", "0", date(2023, 3, 1)),
	}

	agg := ledger.Aggregate(entries, nil, window, nil)

	assert.NotContains(t, agg, key(ledger.AccountTypeCost, "Insurance"))
	assert.NotContains(t, agg, key(ledger.AccountTypeCost, "Sundry"))
	assert.Contains(t, agg, key(ledger.AccountTypeCost, "Postage"))
	legal := agg[key(ledger.AccountTypeCost, "Legal")]
	assert.True(t, legal.Period.IsZero())
	assert.Equal(t, "-80", legal.SinceInception.String())
}

func TestAggregate_GroupsScopedByType(t *testing.T) {
	entries := []*ledger.Entry{
		posting(nil, ledger.AccountTypeAssetRealisation, "Interest", "0", "12", date(2024, 8, 1)),
		posting(nil, ledger.AccountTypeControl, "Interest", "12", "0", date(2024, 8, 1)),
	}

	agg := ledger.Aggregate(entries, nil, window, nil)

	require.Len(t, agg, 2)
	lines := agg.Lines()
	assert.Equal(t, ledger.AccountTypeAssetRealisation, lines[0].Key.AccountType)
	assert.Equal(t, ledger.AccountTypeControl, lines[1].Key.AccountType)
	assert.Len(t, agg.OfType(ledger.AccountTypeControl), 1)
	assert.Equal(t, "24", agg.Total().Period.String())
}

func TestAggregate_CustomKey(t *testing.T) {
	byGroup := func(e *ledger.Entry) ledger.GroupKey {
		return ledger.GroupKey{AccountType: e.AccountType, Name: e.AccountGroup}
	}
	a := posting(nil, ledger.AccountTypeAssetRealisation, "Van", "0", "900", date(2024, 9, 1))
	b := posting(nil, ledger.AccountTypeAssetRealisation, "Lathe", "0", "100", date(2024, 9, 1))
	a.AccountGroup, b.AccountGroup = "Plant & Machinery", "Plant & Machinery"

	agg := ledger.Aggregate([]*ledger.Entry{a, b}, byGroup, window, nil)

	require.Len(t, agg, 1)
	assert.Equal(t, "1000", agg[key(ledger.AccountTypeAssetRealisation, "Plant & Machinery")].Period.String())
}

func TestAggregate_OrderIndependent(t *testing.T) {
	var entries []*ledger.Entry
	names := []string{"Stock", "Debtors", "Plant"}
	for i := 0; i < 60; i++ {
		on := date(2023, 2, 1).AddDate(0, 0, i*11)
		entries = append(entries,
			posting(nil, ledger.AccountTypeAssetRealisation, names[i%3], "0", "10.37", on),
			posting(nil, ledger.AccountTypeBank, "Current", "10.37", "0", on),
		)
	}

	want := ledger.Aggregate(entries, nil, window, nil)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 5; i++ {
		shuffled := append([]*ledger.Entry(nil), entries...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := ledger.Aggregate(shuffled, nil, window, nil)
		require.Len(t, got, len(want))
		for k, b := range want {
			assert.True(t, b.Period.Equal(got[k].Period), "period for %v", k)
			assert.True(t, b.SinceInception.Equal(got[k].SinceInception), "since inception for %v", k)
		}
	}
}

func TestAggregate_Empty(t *testing.T) {
	agg := ledger.Aggregate(nil, nil, window, nil)
	assert.Empty(t, agg)
	assert.Empty(t, agg.Lines())
	assert.True(t, agg.Total().Period.IsZero())
}
