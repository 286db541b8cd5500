package casefile

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kislikjeka/caseledger/internal/ledger"
)

// SnapshotSource loads a case's ledger, transactions and claims
type SnapshotSource interface {
	// LoadSnapshot returns ErrCaseNotFound for an unknown case
	LoadSnapshot(ctx context.Context, caseID uuid.UUID) (*Snapshot, error)
}

// ReportCache holds computed reports. A fresh entry expires quickly; the
// stale copy lives longer and is only served when the source fails.
type ReportCache interface {
	Get(ctx context.Context, key string) (*Report, bool, error)
	Set(ctx context.Context, key string, report *Report) error
	GetStale(ctx context.Context, key string) (*Report, bool, error)
	SetStale(ctx context.Context, key string, report *Report) error
	// InvalidateCase drops every fresh report of a case
	InvalidateCase(ctx context.Context, caseID uuid.UUID) error
}

// Metrics records report activity
type Metrics interface {
	ReportBuilt(kind ReportKind, elapsed time.Duration)
	ReportAnomaly(code ledger.AnomalyCode)
	ReportCacheLookup(kind ReportKind, hit bool)
}

type noopMetrics struct{}

func (noopMetrics) ReportBuilt(ReportKind, time.Duration) {}
func (noopMetrics) ReportAnomaly(ledger.AnomalyCode) {}
func (noopMetrics) ReportCacheLookup(ReportKind, bool) {}
