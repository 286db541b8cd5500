package distribution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kislikjeka/caseledger/pkg/logger"
)

// Request describes a distribution to preview or declare
type Request struct {
	CaseID           uuid.UUID
	DistributionType CreditorType
	SumToDistribute  decimal.Decimal
	SumToRetain      decimal.Decimal
	// DeclaredBy is recorded on the declaration; empty for previews
	DeclaredBy string
}

// Validate checks the request before any claims are read
func (r Request) Validate() error {
	if r.CaseID == uuid.Nil {
		return ErrMissingCaseID
	}
	if !r.DistributionType.IsValid() {
		return ErrInvalidDistributionType
	}
	return nil
}

// Service keeps a case's distribution history
type Service struct {
	repo    Repository
	claims  ClaimSource
	events  EventPublisher
	metrics Metrics
	logger  *logger.Logger
	now     func() time.Time
}

// NewService creates a new distribution service. events and metrics may be nil.
func NewService(repo Repository, claims ClaimSource, events EventPublisher, metrics Metrics, log *logger.Logger) *Service {
	if events == nil {
		events = noopPublisher{}
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		repo:    repo,
		claims:  claims,
		events:  events,
		metrics: metrics,
		logger:  log.WithField("component", "distribution"),
		now:     time.Now,
	}
}

// Preview computes a distribution against the current claim set without
// persisting anything.
func (s *Service) Preview(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	claims, err := s.claims.ListClaims(ctx, req.CaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}

	return s.calculate(claims, req)
}

// Declare snapshots the claim set, computes the distribution and records it.
//
// Declarations for one case are serialised: the case is locked and the
// claims are read inside the same transaction, so the calculation sees a
// single consistent snapshot. Calculation errors are returned before
// anything is written. The event is published after commit; a publish
// failure is logged and does not undo the declaration.
func (s *Service) Declare(ctx context.Context, req Request) (*Declaration, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	txCtx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = s.repo.RollbackTx(txCtx)
		}
	}()

	if err := s.repo.LockCase(txCtx, req.CaseID); err != nil {
		return nil, fmt.Errorf("failed to lock case: %w", err)
	}

	claims, err := s.claims.ListClaims(txCtx, req.CaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}

	result, err := s.calculate(claims, req)
	if err != nil {
		return nil, err
	}

	declaration := NewDeclaration(req.CaseID, result, req.DeclaredBy, s.now())
	if err := s.repo.CreateDeclaration(txCtx, declaration); err != nil {
		return nil, fmt.Errorf("failed to create declaration: %w", err)
	}

	if err := s.repo.CommitTx(txCtx); err != nil {
		return nil, fmt.Errorf("failed to commit declaration: %w", err)
	}
	committed = true

	s.metrics.DeclarationCreated(declaration.DistributionType, declaration.NetDistribution)
	s.logger.WithContext(ctx).Info("distribution declared",
		"case_id", req.CaseID,
		"declaration_id", declaration.ID,
		"distribution_type", declaration.DistributionType,
		"net_distribution", declaration.NetDistribution.String(),
		"rate", declaration.DividendRateLabel,
		"claims", len(declaration.Lines),
	)
	s.publish(ctx, newEvent(EventDeclared, declaration, req.DeclaredBy, s.now()))

	return declaration, nil
}

// List returns a case's declarations, newest first
func (s *Service) List(ctx context.Context, caseID uuid.UUID) ([]*Declaration, error) {
	return s.repo.ListDeclarations(ctx, caseID)
}

// Get returns one declaration of a case
func (s *Service) Get(ctx context.Context, caseID, id uuid.UUID) (*Declaration, error) {
	return s.repo.GetDeclaration(ctx, caseID, id)
}

// Delete hard-deletes a declaration. The caller must confirm.
func (s *Service) Delete(ctx context.Context, caseID, id uuid.UUID, confirm bool, actor string) error {
	if !confirm {
		return ErrDeletionNotConfirmed
	}

	declaration, err := s.repo.GetDeclaration(ctx, caseID, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteDeclaration(ctx, caseID, id); err != nil {
		return fmt.Errorf("failed to delete declaration: %w", err)
	}

	s.metrics.DeclarationDeleted(declaration.DistributionType)
	s.logger.WithContext(ctx).Info("distribution deleted",
		"case_id", caseID,
		"declaration_id", id,
		"actor", actor,
	)
	s.publish(ctx, newEvent(EventDeleted, declaration, actor, s.now()))

	return nil
}

func (s *Service) calculate(claims []Claim, req Request) (*Result, error) {
	result, err := Calculate(OfType(claims, req.DistributionType), req.SumToDistribute, req.SumToRetain, req.DistributionType)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidDistribution):
			s.metrics.CalculationRejected("invalid_distribution")
		case errors.Is(err, ErrNoEligibleClaims):
			s.metrics.CalculationRejected("no_eligible_claims")
		}
		return nil, err
	}
	return result, nil
}

func (s *Service) publish(ctx context.Context, event Event) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("failed to publish distribution event",
			"type", event.Type,
			"declaration_id", event.DeclarationID,
		)
	}
}
