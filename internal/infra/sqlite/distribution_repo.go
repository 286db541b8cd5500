package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kislikjeka/caseledger/internal/distribution"
)

// dateLayout is fixed width so declared_date sorts as text
const dateLayout = "2006-01-02T15:04:05.000000000Z"

type ctxKey string

const txContextKey ctxKey = "sqlite_tx"

// sqliteTx is a database transaction plus the case locks taken inside it
type sqliteTx struct {
	tx    *sql.Tx
	locks []*sync.Mutex
}

func (t *sqliteTx) release() {
	for i := len(t.locks) - 1; i >= 0; i-- {
		t.locks[i].Unlock()
	}
	t.locks = nil
}

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DistributionRepository implements distribution.Repository over SQLite
type DistributionRepository struct {
	db    *DB
	cases sync.Map // uuid.UUID -> *sync.Mutex
}

// NewDistributionRepository creates a new SQLite declaration repository
func NewDistributionRepository(db *DB) *DistributionRepository {
	return &DistributionRepository{db: db}
}

var _ distribution.Repository = (*DistributionRepository)(nil)

// BeginTx starts a new database transaction and stores it in the context
func (r *DistributionRepository) BeginTx(ctx context.Context) (context.Context, error) {
	if getTx(ctx) != nil {
		return ctx, fmt.Errorf("transaction already in progress")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return ctx, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return context.WithValue(ctx, txContextKey, &sqliteTx{tx: tx}), nil
}

// CommitTx commits the transaction and releases its case locks
func (r *DistributionRepository) CommitTx(ctx context.Context) error {
	t := getTx(ctx)
	if t == nil {
		return fmt.Errorf("no transaction in context")
	}
	defer t.release()

	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RollbackTx rolls back the transaction and releases its case locks
func (r *DistributionRepository) RollbackTx(ctx context.Context) error {
	t := getTx(ctx)
	if t == nil {
		return fmt.Errorf("no transaction in context")
	}
	defer t.release()

	if err := t.tx.Rollback(); err != nil {
		// Ignore already rolled back or committed errors
		if errors.Is(err, sql.ErrTxDone) {
			return nil
		}
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// LockCase holds a per-case mutex until the transaction ends
func (r *DistributionRepository) LockCase(ctx context.Context, caseID uuid.UUID) error {
	t := getTx(ctx)
	if t == nil {
		return fmt.Errorf("lock case: no transaction in context")
	}

	v, _ := r.cases.LoadOrStore(caseID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	t.locks = append(t.locks, mu)
	return nil
}

// CreateDeclaration inserts a declaration
func (r *DistributionRepository) CreateDeclaration(ctx context.Context, d *distribution.Declaration) error {
	lines, err := json.Marshal(d.Lines)
	if err != nil {
		return fmt.Errorf("failed to marshal distribution lines: %w", err)
	}

	inactive := d.Inactive
	if inactive == nil {
		inactive = []distribution.Claim{}
	}
	inactiveJSON, err := json.Marshal(inactive)
	if err != nil {
		return fmt.Errorf("failed to marshal inactive claims: %w", err)
	}

	query := `
		INSERT INTO distribution_declarations (
			id, case_id, distribution_type,
			sum_to_distribute, sum_to_retain, net_distribution,
			total_claims, dividend_rate, dividend_rate_label,
			per_claim_distributions, inactive_claims, declared_date, declared_by
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.getQueryer(ctx).ExecContext(ctx, query,
		d.ID.String(),
		d.CaseID.String(),
		string(d.DistributionType),
		d.SumToDistribute.String(),
		d.SumToRetain.String(),
		d.NetDistribution.String(),
		d.TotalClaims.String(),
		d.DividendRate.String(),
		d.DividendRateLabel,
		string(lines),
		string(inactiveJSON),
		d.DeclaredDate.UTC().Format(dateLayout),
		d.DeclaredBy,
	)
	if err != nil {
		return fmt.Errorf("failed to create declaration: %w", err)
	}

	return nil
}

const declarationColumns = `
	id, case_id, distribution_type,
	sum_to_distribute, sum_to_retain, net_distribution,
	total_claims, dividend_rate, dividend_rate_label,
	per_claim_distributions, inactive_claims, declared_date, declared_by
`

// GetDeclaration retrieves one declaration of a case
func (r *DistributionRepository) GetDeclaration(ctx context.Context, caseID, id uuid.UUID) (*distribution.Declaration, error) {
	query := `SELECT ` + declarationColumns + `
		FROM distribution_declarations
		WHERE case_id = ? AND id = ?`

	d, err := scanDeclaration(r.getQueryer(ctx).QueryRowContext(ctx, query, caseID.String(), id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, distribution.ErrDeclarationNotFound
		}
		return nil, fmt.Errorf("failed to get declaration: %w", err)
	}
	return d, nil
}

// ListDeclarations returns a case's declarations newest first
func (r *DistributionRepository) ListDeclarations(ctx context.Context, caseID uuid.UUID) ([]*distribution.Declaration, error) {
	query := `SELECT ` + declarationColumns + `
		FROM distribution_declarations
		WHERE case_id = ?
		ORDER BY declared_date DESC, seq DESC`

	rows, err := r.getQueryer(ctx).QueryContext(ctx, query, caseID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list declarations: %w", err)
	}
	defer rows.Close()

	declarations := make([]*distribution.Declaration, 0)
	for rows.Next() {
		d, err := scanDeclaration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan declaration: %w", err)
		}
		declarations = append(declarations, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating declarations: %w", err)
	}

	return declarations, nil
}

// DeleteDeclaration removes a declaration of a case
func (r *DistributionRepository) DeleteDeclaration(ctx context.Context, caseID, id uuid.UUID) error {
	res, err := r.getQueryer(ctx).ExecContext(ctx,
		`DELETE FROM distribution_declarations WHERE case_id = ? AND id = ?`,
		caseID.String(), id.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to delete declaration: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete declaration: %w", err)
	}
	if n == 0 {
		return distribution.ErrDeclarationNotFound
	}
	return nil
}

func getTx(ctx context.Context) *sqliteTx {
	if t, ok := ctx.Value(txContextKey).(*sqliteTx); ok {
		return t
	}
	return nil
}

func (r *DistributionRepository) getQueryer(ctx context.Context) queryer {
	if t := getTx(ctx); t != nil {
		return t.tx
	}
	return r.db
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDeclaration(row scanner) (*distribution.Declaration, error) {
	var (
		d                                        distribution.Declaration
		id, caseID, typ                          string
		sumToDistribute, sumToRetain, net, total string
		rate, lines, inactive, declared          string
	)

	err := row.Scan(
		&id,
		&caseID,
		&typ,
		&sumToDistribute,
		&sumToRetain,
		&net,
		&total,
		&rate,
		&d.DividendRateLabel,
		&lines,
		&inactive,
		&declared,
		&d.DeclaredBy,
	)
	if err != nil {
		return nil, err
	}

	if d.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid declaration id %q: %w", id, err)
	}
	if d.CaseID, err = uuid.Parse(caseID); err != nil {
		return nil, fmt.Errorf("invalid case id %q: %w", caseID, err)
	}
	if d.DeclaredDate, err = time.Parse(dateLayout, declared); err != nil {
		return nil, fmt.Errorf("invalid declared date %q: %w", declared, err)
	}
	d.DistributionType = distribution.CreditorType(typ)

	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&d.SumToDistribute, sumToDistribute},
		{&d.SumToRetain, sumToRetain},
		{&d.NetDistribution, net},
		{&d.TotalClaims, total},
		{&d.DividendRate, rate},
	} {
		v, err := decimal.NewFromString(f.src)
		if err != nil {
			return nil, fmt.Errorf("invalid numeric %q: %w", f.src, err)
		}
		*f.dst = v
	}

	if err := json.Unmarshal([]byte(lines), &d.Lines); err != nil {
		return nil, fmt.Errorf("failed to unmarshal distribution lines: %w", err)
	}
	if err := json.Unmarshal([]byte(inactive), &d.Inactive); err != nil {
		return nil, fmt.Errorf("failed to unmarshal inactive claims: %w", err)
	}

	return &d, nil
}
