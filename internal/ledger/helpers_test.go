package ledger_test

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kislikjeka/caseledger/internal/ledger"
)

var (
	appointed = date(2023, 1, 10)
	window    = ledger.Window{
		AppointmentDate: appointed,
		PeriodFrom:      date(2024, 1, 10),
		PeriodTo:        date(2025, 1, 9),
	}
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func approvedTx(target string) *ledger.Transaction {
	return &ledger.Transaction{
		ID:            uuid.New(),
		Status:        ledger.TransactionStatusApproved,
		Type:          ledger.TransactionTypeReceipt,
		TargetAccount: target,
		Amount:        decimal.Zero,
	}
}

func posting(tx *ledger.Transaction, typ ledger.AccountType, name, debit, credit string, on time.Time) *ledger.Entry {
	e := &ledger.Entry{
		ID:          uuid.New(),
		AccountCode: string(typ) + ":" + name,
		AccountName: name,
		AccountType: typ,
		Debit:       dec(debit),
		Credit:      dec(credit),
		EntryDate:   on,
		JournalType: ledger.JournalOrdinary,
	}
	if tx != nil {
		id := tx.ID
		e.TransactionID = &id
	}
	return e
}

func adjusting(typ ledger.AccountType, name, debit, credit string, on time.Time) *ledger.Entry {
	e := posting(nil, typ, name, debit, credit, on)
	e.JournalType = ledger.JournalAdjusting
	return e
}

func flatten(agg ledger.Aggregates) map[ledger.GroupKey][2]string {
	out := make(map[ledger.GroupKey][2]string, len(agg))
	for k, b := range agg {
		out[k] = [2]string{b.Period.String(), b.SinceInception.String()}
	}
	return out
}
