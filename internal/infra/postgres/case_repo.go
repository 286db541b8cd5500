package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kislikjeka/caseledger/internal/casefile"
	"github.com/kislikjeka/caseledger/internal/distribution"
	"github.com/kislikjeka/caseledger/internal/ledger"
)

// CaseRepository reads case data written by the case-management application.
// It is read-only: nothing here inserts or updates case records.
type CaseRepository struct {
	txManager
}

// NewCaseRepository creates a new PostgreSQL case repository
func NewCaseRepository(pool *pgxpool.Pool) *CaseRepository {
	return &CaseRepository{txManager: txManager{pool: pool}}
}

// LoadSnapshot reads the case, its postings, its transactions and its claims.
// Outside a caller transaction the four reads share one repeatable-read
// read-only transaction so the snapshot is consistent.
func (r *CaseRepository) LoadSnapshot(ctx context.Context, caseID uuid.UUID) (*casefile.Snapshot, error) {
	if getTx(ctx) == nil {
		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
			IsoLevel:   pgx.RepeatableRead,
			AccessMode: pgx.ReadOnly,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to begin snapshot transaction: %w", err)
		}
		defer tx.Rollback(ctx) //nolint:errcheck
		ctx = context.WithValue(ctx, txContextKey, tx)
	}

	c, err := r.getCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	entries, err := r.listEntries(ctx, caseID)
	if err != nil {
		return nil, err
	}

	transactions, err := r.listTransactions(ctx, caseID)
	if err != nil {
		return nil, err
	}

	claims, err := r.listClaims(ctx, caseID, false)
	if err != nil {
		return nil, err
	}

	return &casefile.Snapshot{
		Case:         *c,
		Entries:      entries,
		Transactions: transactions,
		Claims:       claims,
	}, nil
}

// ListClaims returns the claims of a case in creation order. Inside a
// transaction the rows are share-locked so they cannot change before commit.
func (r *CaseRepository) ListClaims(ctx context.Context, caseID uuid.UUID) ([]distribution.Claim, error) {
	return r.listClaims(ctx, caseID, getTx(ctx) != nil)
}

func (r *CaseRepository) listClaims(ctx context.Context, caseID uuid.UUID, lock bool) ([]distribution.Claim, error) {
	query := `
		SELECT id, creditor_type, creditor_name, balance_submitted::text
		FROM claims
		WHERE case_id = $1
		ORDER BY created_at, id
	`
	if lock {
		query += " FOR SHARE"
	}

	rows, err := r.getQueryer(ctx).Query(ctx, query, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	claims := make([]distribution.Claim, 0)
	for rows.Next() {
		var (
			c       distribution.Claim
			typ     string
			balance string
		)
		if err := rows.Scan(&c.ID, &typ, &c.CreditorName, &balance); err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		c.CreditorType = distribution.CreditorType(typ)
		if c.BalanceSubmitted, err = parseDecimal(balance); err != nil {
			return nil, fmt.Errorf("claim %s: %w", c.ID, err)
		}
		claims = append(claims, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating claims: %w", err)
	}

	return claims, nil
}

func (r *CaseRepository) getCase(ctx context.Context, caseID uuid.UUID) (*casefile.Case, error) {
	query := `
		SELECT id, name, case_type, appointment_date, primary_bank_account
		FROM cases
		WHERE id = $1
	`

	var c casefile.Case
	err := r.getQueryer(ctx).QueryRow(ctx, query, caseID).Scan(
		&c.ID,
		&c.Name,
		&c.CaseType,
		&c.AppointmentDate,
		&c.PrimaryBankAccount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, casefile.ErrCaseNotFound
		}
		return nil, fmt.Errorf("failed to get case: %w", err)
	}

	return &c, nil
}

func (r *CaseRepository) listEntries(ctx context.Context, caseID uuid.UUID) ([]*ledger.Entry, error) {
	query := `
		SELECT id, account_code, account_name, account_group, account_type,
		       debit_amount::text, credit_amount::text, entry_date,
		       transaction_id, journal_type, description, claim_ref
		FROM ledger_entries
		WHERE case_id = $1
		ORDER BY entry_date, created_at, id
	`

	rows, err := r.getQueryer(ctx).Query(ctx, query, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*ledger.Entry, 0)
	for rows.Next() {
		var (
			e             ledger.Entry
			accountType   string
			journalType   string
			debit, credit string
		)
		err := rows.Scan(
			&e.ID,
			&e.AccountCode,
			&e.AccountName,
			&e.AccountGroup,
			&accountType,
			&debit,
			&credit,
			&e.EntryDate,
			&e.TransactionID,
			&journalType,
			&e.Description,
			&e.ClaimRef,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		e.AccountType = ledger.AccountType(accountType)
		e.JournalType = ledger.JournalType(journalType)
		if e.Debit, err = parseDecimal(debit); err != nil {
			return nil, fmt.Errorf("entry %s debit: %w", e.ID, err)
		}
		if e.Credit, err = parseDecimal(credit); err != nil {
			return nil, fmt.Errorf("entry %s credit: %w", e.ID, err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}

	return entries, nil
}

func (r *CaseRepository) listTransactions(ctx context.Context, caseID uuid.UUID) ([]*ledger.Transaction, error) {
	query := `
		SELECT id, status, transaction_type, target_account, amount::text
		FROM case_transactions
		WHERE case_id = $1
	`

	rows, err := r.getQueryer(ctx).Query(ctx, query, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	transactions := make([]*ledger.Transaction, 0)
	for rows.Next() {
		var (
			tx     ledger.Transaction
			status string
			typ    string
			amount string
		)
		if err := rows.Scan(&tx.ID, &status, &typ, &tx.TargetAccount, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.Status = ledger.TransactionStatus(status)
		tx.Type = ledger.TransactionType(typ)
		if tx.Amount, err = parseDecimal(amount); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
		transactions = append(transactions, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// parseDecimal reads a NUMERIC selected as text
func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid numeric %q: %w", s, err)
	}
	return d, nil
}
