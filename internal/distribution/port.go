package distribution

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository defines the interface for declaration persistence.
// Declarations are append-only: there is no update operation.
type Repository interface {
	CreateDeclaration(ctx context.Context, d *Declaration) error
	GetDeclaration(ctx context.Context, caseID, id uuid.UUID) (*Declaration, error)
	// ListDeclarations returns a case's declarations newest first
	ListDeclarations(ctx context.Context, caseID uuid.UUID) ([]*Declaration, error)
	DeleteDeclaration(ctx context.Context, caseID, id uuid.UUID) error

	// LockCase serialises declarations for one case until the surrounding
	// transaction commits or rolls back.
	LockCase(ctx context.Context, caseID uuid.UUID) error

	// Transaction management
	BeginTx(ctx context.Context) (context.Context, error)
	CommitTx(ctx context.Context) error
	RollbackTx(ctx context.Context) error
}

// ClaimSource supplies the claim set of a case. When called with a context
// returned by Repository.BeginTx it should read within that transaction.
type ClaimSource interface {
	ListClaims(ctx context.Context, caseID uuid.UUID) ([]Claim, error)
}

// ClaimSourceFunc adapts a function to ClaimSource
type ClaimSourceFunc func(ctx context.Context, caseID uuid.UUID) ([]Claim, error)

// ListClaims implements ClaimSource
func (f ClaimSourceFunc) ListClaims(ctx context.Context, caseID uuid.UUID) ([]Claim, error) {
	return f(ctx, caseID)
}

// EventPublisher announces declaration changes to other systems
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// Metrics records declaration activity
type Metrics interface {
	DeclarationCreated(distributionType CreditorType, net decimal.Decimal)
	DeclarationDeleted(distributionType CreditorType)
	CalculationRejected(reason string)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, Event) error { return nil }

type noopMetrics struct{}

func (noopMetrics) DeclarationCreated(CreditorType, decimal.Decimal) {}
func (noopMetrics) DeclarationDeleted(CreditorType) {}
func (noopMetrics) CalculationRejected(string) {}
