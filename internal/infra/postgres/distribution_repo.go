package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kislikjeka/caseledger/internal/distribution"
)

// DistributionRepository implements distribution.Repository using PostgreSQL
type DistributionRepository struct {
	txManager
}

// NewDistributionRepository creates a new PostgreSQL declaration repository
func NewDistributionRepository(pool *pgxpool.Pool) *DistributionRepository {
	return &DistributionRepository{txManager: txManager{pool: pool}}
}

var _ distribution.Repository = (*DistributionRepository)(nil)

const declarationColumns = `
	id, case_id, distribution_type,
	sum_to_distribute::text, sum_to_retain::text, net_distribution::text,
	total_claims::text, dividend_rate::text, dividend_rate_label,
	per_claim_distributions, inactive_claims, declared_date, declared_by
`

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
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::numeric, $7::numeric, $8::numeric, $9, $10, $11, $12, $13)
	`

	_, err = r.getQueryer(ctx).Exec(ctx, query,
		d.ID,
		d.CaseID,
		string(d.DistributionType),
		d.SumToDistribute.String(),
		d.SumToRetain.String(),
		d.NetDistribution.String(),
		d.TotalClaims.String(),
		d.DividendRate.String(),
		d.DividendRateLabel,
		lines,
		inactiveJSON,
		d.DeclaredDate,
		d.DeclaredBy,
	)
	if err != nil {
		return fmt.Errorf("failed to create declaration: %w", err)
	}

	return nil
}

// GetDeclaration retrieves one declaration of a case
func (r *DistributionRepository) GetDeclaration(ctx context.Context, caseID, id uuid.UUID) (*distribution.Declaration, error) {
	query := `SELECT ` + declarationColumns + `
		FROM distribution_declarations
		WHERE case_id = $1 AND id = $2
	`

	d, err := scanDeclaration(r.getQueryer(ctx).QueryRow(ctx, query, caseID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, distribution.ErrDeclarationNotFound
		}
		return nil, fmt.Errorf("failed to get declaration: %w", err)
	}

	return d, nil
}

// ListDeclarations returns a case's declarations newest first. Declarations
// made in the same instant keep reverse insertion order.
func (r *DistributionRepository) ListDeclarations(ctx context.Context, caseID uuid.UUID) ([]*distribution.Declaration, error) {
	query := `SELECT ` + declarationColumns + `
		FROM distribution_declarations
		WHERE case_id = $1
		ORDER BY declared_date DESC, seq DESC
	`

	rows, err := r.getQueryer(ctx).Query(ctx, query, caseID)
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
	tag, err := r.getQueryer(ctx).Exec(ctx,
		`DELETE FROM distribution_declarations WHERE case_id = $1 AND id = $2`,
		caseID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete declaration: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return distribution.ErrDeclarationNotFound
	}

	return nil
}

// LockCase takes a transaction-scoped advisory lock keyed by the case id.
// It must be called inside BeginTx; the lock is released on commit or rollback.
func (r *DistributionRepository) LockCase(ctx context.Context, caseID uuid.UUID) error {
	tx := getTx(ctx)
	if tx == nil {
		return fmt.Errorf("lock case: no transaction in context")
	}

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, caseID.String()); err != nil {
		return fmt.Errorf("failed to lock case: %w", err)
	}

	return nil
}

func scanDeclaration(row pgx.Row) (*distribution.Declaration, error) {
	var (
		d                                        distribution.Declaration
		typ                                      string
		sumToDistribute, sumToRetain, net, total string
		rate                                     string
		lines, inactive                          []byte
	)

	err := row.Scan(
		&d.ID,
		&d.CaseID,
		&typ,
		&sumToDistribute,
		&sumToRetain,
		&net,
		&total,
		&rate,
		&d.DividendRateLabel,
		&lines,
		&inactive,
		&d.DeclaredDate,
		&d.DeclaredBy,
	)
	if err != nil {
		return nil, err
	}

	d.DistributionType = distribution.CreditorType(typ)
	if d.SumToDistribute, err = parseDecimal(sumToDistribute); err != nil {
		return nil, err
	}
	if d.SumToRetain, err = parseDecimal(sumToRetain); err != nil {
		return nil, err
	}
	if d.NetDistribution, err = parseDecimal(net); err != nil {
		return nil, err
	}
	if d.TotalClaims, err = parseDecimal(total); err != nil {
		return nil, err
	}
	if d.DividendRate, err = parseDecimal(rate); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(lines, &d.Lines); err != nil {
		return nil, fmt.Errorf("failed to unmarshal distribution lines: %w", err)
	}
	if err := json.Unmarshal(inactive, &d.Inactive); err != nil {
		return nil, fmt.Errorf("failed to unmarshal inactive claims: %w", err)
	}
	d.DeclaredDate = d.DeclaredDate.UTC()

	return &d, nil
}
