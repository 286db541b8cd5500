package distribution

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType names a declaration lifecycle event
type EventType string

const (
	EventDeclared EventType = "distribution.declared"
	EventDeleted  EventType = "distribution.deleted"
)

// Event is published after a declaration is committed or deleted
type Event struct {
	Type              EventType       `json:"type"`
	CaseID            uuid.UUID       `json:"case_id"`
	DeclarationID     uuid.UUID       `json:"declaration_id"`
	DistributionType  CreditorType    `json:"distribution_type"`
	NetDistribution   decimal.Decimal `json:"net_distribution"`
	DividendRateLabel string          `json:"dividend_rate_label"`
	Claims            int             `json:"claims"`
	Actor             string          `json:"actor,omitempty"`
	OccurredAt        time.Time       `json:"occurred_at"`
}

func newEvent(t EventType, d *Declaration, actor string, at time.Time) Event {
	return Event{
		Type:              t,
		CaseID:            d.CaseID,
		DeclarationID:     d.ID,
		DistributionType:  d.DistributionType,
		NetDistribution:   d.NetDistribution,
		DividendRateLabel: d.DividendRateLabel,
		Claims:            len(d.Lines),
		Actor:             actor,
		OccurredAt:        at.UTC(),
	}
}
