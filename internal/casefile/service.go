package casefile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kislikjeka/caseledger/internal/distribution"
	"github.com/kislikjeka/caseledger/internal/ledger"
	"github.com/kislikjeka/caseledger/internal/statement"
	"github.com/kislikjeka/caseledger/pkg/logger"
)

// Service builds case reports from snapshots loaded on demand
type Service struct {
	source   SnapshotSource
	composer *statement.Composer
	cache    ReportCache
	metrics  Metrics
	logger   *logger.Logger
	now      func() time.Time
}

// NewService creates a new case report service. cache and metrics may be nil.
func NewService(source SnapshotSource, composer *statement.Composer, cache ReportCache, metrics Metrics, log *logger.Logger) *Service {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Service{
		source:   source,
		composer: composer,
		cache:    cache,
		metrics:  metrics,
		logger:   log.WithField("component", "casefile"),
		now:      time.Now,
	}
}

// Statement returns the receipts-and-payments statement of a case
func (s *Service) Statement(ctx context.Context, caseID uuid.UUID, opts ReportOptions) (*Report, error) {
	return s.Report(ctx, ReportStatement, caseID, opts)
}

// TrialBalance returns the trial balance of a case
func (s *Service) TrialBalance(ctx context.Context, caseID uuid.UUID, opts ReportOptions) (*Report, error) {
	return s.Report(ctx, ReportTrialBalance, caseID, opts)
}

// VAT returns the VAT control position of a case
func (s *Service) VAT(ctx context.Context, caseID uuid.UUID, opts ReportOptions) (*Report, error) {
	return s.Report(ctx, ReportVAT, caseID, opts)
}

// Report loads the case snapshot and computes the requested report.
//
// A cached report is returned when present. If the snapshot cannot be
// loaded for any reason other than an unknown case, the last stale copy of
// the report is served with Stale set.
func (s *Service) Report(ctx context.Context, kind ReportKind, caseID uuid.UUID, opts ReportOptions) (*Report, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidReportKind, kind)
	}

	log := s.logger.WithContext(ctx).WithCase(caseID)
	now := s.now()
	key := opts.cacheKey(kind, caseID, now)

	if s.cache != nil {
		cached, found, err := s.cache.Get(ctx, key)
		if err != nil {
			log.WithError(err).Warn("report cache read failed", "kind", kind)
		}
		s.metrics.ReportCacheLookup(kind, found)
		if found {
			return cached, nil
		}
	}

	start := time.Now()
	snap, err := s.source.LoadSnapshot(ctx, caseID)
	if err != nil {
		if errors.Is(err, ErrCaseNotFound) {
			return nil, err
		}
		if stale, ok := s.stale(ctx, key); ok {
			log.WithError(err).Warn("case source unavailable, serving stale report", "kind", kind)
			return stale, nil
		}
		return nil, fmt.Errorf("failed to load case snapshot: %w", err)
	}

	report, err := Compute(s.composer, kind, snap, opts, now)
	if err != nil {
		return nil, err
	}
	s.metrics.ReportBuilt(kind, time.Since(start))
	s.logAnomalies(log, report)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, report); err != nil {
			log.WithError(err).Warn("report cache write failed", "kind", kind)
		}
		if err := s.cache.SetStale(ctx, key, report); err != nil {
			log.WithError(err).Warn("stale report cache write failed", "kind", kind)
		}
	}

	return report, nil
}

// Invalidate drops cached reports of a case after its ledger changed
func (s *Service) Invalidate(ctx context.Context, caseID uuid.UUID) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.InvalidateCase(ctx, caseID)
}

// ListClaims returns the claims of a case. It lets the service stand in as
// a distribution.ClaimSource when claims come from the case source.
func (s *Service) ListClaims(ctx context.Context, caseID uuid.UUID) ([]distribution.Claim, error) {
	snap, err := s.source.LoadSnapshot(ctx, caseID)
	if err != nil {
		return nil, err
	}
	return snap.Claims, nil
}

func (s *Service) stale(ctx context.Context, key string) (*Report, bool) {
	if s.cache == nil {
		return nil, false
	}
	report, found, err := s.cache.GetStale(ctx, key)
	if err != nil || !found {
		return nil, false
	}
	report.Stale = true
	return report, true
}

func (s *Service) logAnomalies(log *logger.Logger, report *Report) {
	for _, a := range report.Anomalies {
		s.metrics.ReportAnomaly(a.Code)
		attrs := []any{"kind", report.Kind, "code", a.Code}
		if a.Code == ledger.AnomalyOrphanDataAssumed {
			attrs = append(attrs, "orphaned", report.Filter.Orphaned, "total", report.Filter.Total)
		}
		log.Warn(a.Message, attrs...)
	}
}
