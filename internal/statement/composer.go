package statement

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kislikjeka/caseledger/internal/distribution"
	"github.com/kislikjeka/caseledger/internal/ledger"
	"github.com/kislikjeka/caseledger/pkg/money"
)

// CaseContext carries the case metadata and caller selections a statement
// is built for
type CaseContext struct {
	CaseID      uuid.UUID     `json:"case_id"`
	CaseName    string        `json:"case_name,omitempty"`
	CaseType    string        `json:"case_type,omitempty"`
	Window      ledger.Window `json:"window"`
	BankAccount string        `json:"bank_account,omitempty"`
}

// Row is one labelled line of a section
type Row struct {
	Label string `json:"label"`
	ledger.Balance
}

// Section is an ordered block of rows with its total
type Section struct {
	Key   string         `json:"key"`
	Title string         `json:"title"`
	Rows  []Row          `json:"rows"`
	Total ledger.Balance `json:"total"`
}

// Statement is a receipts-and-payments account with its reconciliation
type Statement struct {
	CaseContext
	Sections         []Section        `json:"sections"`
	TotalMovements   ledger.Balance   `json:"total_movements"`
	RepresentedBy    Section          `json:"represented_by"`
	TotalRepresented ledger.Balance   `json:"total_represented"`
	Difference       ledger.Balance   `json:"difference"`
	Reconciled       bool             `json:"reconciled"`
	Anomalies        []ledger.Anomaly `json:"anomalies,omitempty"`
}

// Composer arranges aggregates into statutory sections
type Composer struct {
	layout Layout
}

// NewComposer creates a composer for a validated layout
func NewComposer(layout Layout) (*Composer, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	return &Composer{layout: layout}, nil
}

// Layout returns the composer's layout
func (c *Composer) Layout() Layout {
	return c.layout
}

// Build aggregates entries with creditor attribution and composes the result.
// entries must already be filtered.
func (c *Composer) Build(cc CaseContext, entries []*ledger.Entry, claims []distribution.Claim) *Statement {
	attr := NewAttributor(claims)
	agg := ledger.Aggregate(entries, attr.Key, cc.Window, ledger.DefaultSign)
	return c.Compose(cc, agg, attr)
}

// Compose lays out aggregates keyed by attr.Key. Movement rows keep the sign
// the aggregator gave them, so costs and payments are negative. The totals
// are compared but never adjusted; a mismatch is reported as an anomaly.
func (c *Composer) Compose(cc CaseContext, agg ledger.Aggregates, attr *Attributor) *Statement {
	if attr == nil {
		attr = NewAttributor(nil)
	}

	builders := make([]*sectionBuilder, len(c.layout.Sections))
	byAccountType := make(map[ledger.AccountType]*sectionBuilder)
	byCreditorType := make(map[distribution.CreditorType]*sectionBuilder)
	var fallback *sectionBuilder
	for i, sec := range c.layout.Sections {
		b := newSectionBuilder(sec.Key, sec.Title)
		builders[i] = b
		for _, t := range sec.AccountTypes {
			byAccountType[t] = b
		}
		for _, t := range sec.CreditorTypes {
			byCreditorType[t] = b
		}
		if sec.Fallback {
			fallback = b
		}
	}

	st := &Statement{CaseContext: cc}
	represented := newSectionBuilder("represented_by", c.layout.RepresentedByTitle)
	var banks, controls []Row
	vat := zeroBalance()
	hasVAT := false

	for _, line := range agg.Lines() {
		switch line.Key.AccountType {
		case ledger.AccountTypeBank:
			banks = append(banks, Row{Label: line.Key.Name, Balance: line.Balance})
		case ledger.AccountTypeControl:
			controls = append(controls, Row{Label: line.Key.Name, Balance: line.Balance})
		case ledger.AccountTypeVATControl:
			vat = vat.Add(line.Balance)
			hasVAT = true
		case ledger.AccountTypeDistribution:
			claim, accountName, matched := attr.resolve(line.Key)
			if matched {
				if target, found := byCreditorType[claim.CreditorType]; found {
					target.add(claim.CreditorName, line.Balance)
					continue
				}
			}
			if fallback == nil {
				continue
			}
			if !matched {
				fallback.add(accountName, line.Balance)
				st.Anomalies = append(st.Anomalies, ledger.Anomaly{
					Code:    ledger.AnomalyUnattributedPayment,
					Message: fmt.Sprintf("distribution posted to %q matched no claim and is shown under %s", accountName, fallback.title),
				})
				continue
			}
			fallback.add(claim.CreditorName, line.Balance)
			st.Anomalies = append(st.Anomalies, ledger.Anomaly{
				Code: ledger.AnomalyUnattributedPayment,
				Message: fmt.Sprintf("distribution to %s is a %s claim, which no section lists; shown under %s",
					claim.CreditorName, claim.CreditorType, fallback.title),
			})
		default:
			if target, found := byAccountType[line.Key.AccountType]; found {
				target.add(line.Key.Name, line.Balance)
			}
		}
	}

	st.TotalMovements = zeroBalance()
	for i, b := range builders {
		section := b.build()
		st.TotalMovements = st.TotalMovements.Add(section.Total)
		if c.layout.Sections[i].Optional && len(section.Rows) == 0 {
			continue
		}
		st.Sections = append(st.Sections, section)
	}

	for _, r := range banks {
		represented.add(r.Label, r.Balance)
	}
	if hasVAT && vat.IsMaterial() {
		represented.add(c.layout.VATLabel, vat)
	}
	for _, r := range controls {
		represented.add(r.Label, r.Balance)
	}
	st.RepresentedBy = represented.buildInOrder()
	st.TotalRepresented = st.RepresentedBy.Total

	st.Difference = ledger.Balance{
		Period:         st.TotalMovements.Period.Sub(st.TotalRepresented.Period),
		SinceInception: st.TotalMovements.SinceInception.Sub(st.TotalRepresented.SinceInception),
	}
	st.Reconciled = money.WithinTolerance(st.TotalMovements.Period, st.TotalRepresented.Period) &&
		money.WithinTolerance(st.TotalMovements.SinceInception, st.TotalRepresented.SinceInception)
	if !st.Reconciled {
		st.Anomalies = append(st.Anomalies, ledger.Anomaly{
			Code: ledger.AnomalyReconciliationMismatch,
			Message: fmt.Sprintf("total movements %s / %s do not agree to total represented %s / %s (period / since inception)",
				money.Statutory(st.TotalMovements.Period), money.Statutory(st.TotalMovements.SinceInception),
				money.Statutory(st.TotalRepresented.Period), money.Statutory(st.TotalRepresented.SinceInception)),
		})
	}

	return st
}

type sectionBuilder struct {
	key   string
	title string
	rows  []Row
	index map[string]int
}

func newSectionBuilder(key, title string) *sectionBuilder {
	return &sectionBuilder{key: key, title: title, index: make(map[string]int)}
}

// add merges rows sharing a label
func (b *sectionBuilder) add(label string, bal ledger.Balance) {
	if i, ok := b.index[label]; ok {
		b.rows[i].Balance = b.rows[i].Balance.Add(bal)
		return
	}
	b.index[label] = len(b.rows)
	b.rows = append(b.rows, Row{Label: label, Balance: bal})
}

func (b *sectionBuilder) build() Section {
	sort.SliceStable(b.rows, func(i, j int) bool { return b.rows[i].Label < b.rows[j].Label })
	return b.buildInOrder()
}

func (b *sectionBuilder) buildInOrder() Section {
	rows := make([]Row, 0, len(b.rows))
	total := zeroBalance()
	for _, r := range b.rows {
		rows = append(rows, r)
		total = total.Add(r.Balance)
	}
	return Section{Key: b.key, Title: b.title, Rows: rows, Total: total}
}

func zeroBalance() ledger.Balance {
	return ledger.Balance{Period: decimal.Zero, SinceInception: decimal.Zero}
}
