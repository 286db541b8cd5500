package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kislikjeka/caseledger/pkg/money"
)

// TrialBalanceRow is one account's closing position
type TrialBalanceRow struct {
	AccountCode  string          `json:"account_code"`
	AccountName  string          `json:"account_name"`
	AccountGroup string          `json:"account_group"`
	AccountType  AccountType     `json:"account_type"`
	TotalDebit   decimal.Decimal `json:"total_debit"`
	TotalCredit  decimal.Decimal `json:"total_credit"`
	// Debit and Credit are the net balance shown in its natural column
	Debit  decimal.Decimal `json:"debit"`
	Credit decimal.Decimal `json:"credit"`
}

// TrialBalance lists every account with a material balance
type TrialBalance struct {
	AsOf        time.Time         `json:"as_of"`
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  decimal.Decimal   `json:"total_debit"`
	TotalCredit decimal.Decimal   `json:"total_credit"`
	Balanced    bool              `json:"balanced"`
	Anomalies   []Anomaly         `json:"anomalies,omitempty"`
}

type accountKey struct {
	code string
	name string
	typ  AccountType
}

// BuildTrialBalance totals postings dated within [w.AppointmentDate, w.PeriodTo]
// per account. Accounts are identified by code, name and type; rows are sorted
// by code then name.
func BuildTrialBalance(entries []*Entry, w Window) *TrialBalance {
	type totals struct {
		group  string
		debit  decimal.Decimal
		credit decimal.Decimal
	}

	byAccount := make(map[accountKey]*totals)
	for _, e := range entries {
		if !w.SinceInception(e.EntryDate) {
			continue
		}
		k := accountKey{code: e.AccountCode, name: e.AccountName, typ: e.AccountType}
		t, ok := byAccount[k]
		if !ok {
			t = &totals{group: e.AccountGroup, debit: decimal.Zero, credit: decimal.Zero}
			byAccount[k] = t
		}
		t.debit = t.debit.Add(e.Debit)
		t.credit = t.credit.Add(e.Credit)
	}

	tb := &TrialBalance{
		AsOf:        day(w.PeriodTo),
		Rows:        make([]TrialBalanceRow, 0, len(byAccount)),
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}

	for k, t := range byAccount {
		net := t.debit.Sub(t.credit)
		if !money.IsMaterial(net) {
			continue
		}
		row := TrialBalanceRow{
			AccountCode:  k.code,
			AccountName:  k.name,
			AccountGroup: t.group,
			AccountType:  k.typ,
			TotalDebit:   t.debit,
			TotalCredit:  t.credit,
			Debit:        decimal.Zero,
			Credit:       decimal.Zero,
		}
		if net.IsPositive() {
			row.Debit = net
		} else {
			row.Credit = net.Neg()
		}
		tb.TotalDebit = tb.TotalDebit.Add(row.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(row.Credit)
		tb.Rows = append(tb.Rows, row)
	}

	sort.Slice(tb.Rows, func(i, j int) bool {
		if tb.Rows[i].AccountCode != tb.Rows[j].AccountCode {
			return tb.Rows[i].AccountCode < tb.Rows[j].AccountCode
		}
		return tb.Rows[i].AccountName < tb.Rows[j].AccountName
	})

	tb.Balanced = money.WithinTolerance(tb.TotalDebit, tb.TotalCredit)
	if !tb.Balanced {
		tb.Anomalies = append(tb.Anomalies, Anomaly{
			Code: AnomalyTrialBalanceUnbalanced,
			Message: fmt.Sprintf("debits %s do not equal credits %s",
				tb.TotalDebit.StringFixed(money.PenceScale), tb.TotalCredit.StringFixed(money.PenceScale)),
		})
	}

	return tb
}
