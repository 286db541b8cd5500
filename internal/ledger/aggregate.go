package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kislikjeka/caseledger/pkg/money"
)

// Window is the pair of date ranges a case report is built over: the
// reporting period and the since-inception range that starts at the
// appointment date. Both end on PeriodTo. Bounds are inclusive calendar days.
type Window struct {
	AppointmentDate time.Time `json:"appointment_date"`
	PeriodFrom      time.Time `json:"period_from"`
	PeriodTo        time.Time `json:"period_to"`
}

// Validate checks the window bounds are ordered and that the period lies
// within the since-inception range
func (w Window) Validate() error {
	if day(w.PeriodFrom).After(day(w.PeriodTo)) {
		return ErrPeriodReversed
	}
	if day(w.PeriodTo).Before(day(w.AppointmentDate)) {
		return ErrPeriodBeforeInception
	}
	if day(w.PeriodFrom).Before(day(w.AppointmentDate)) {
		return ErrPeriodStartsEarly
	}
	return nil
}

// InPeriod reports whether t falls within [PeriodFrom, PeriodTo]
func (w Window) InPeriod(t time.Time) bool {
	return between(t, w.PeriodFrom, w.PeriodTo)
}

// SinceInception reports whether t falls within [AppointmentDate, PeriodTo]
func (w Window) SinceInception(t time.Time) bool {
	return between(t, w.AppointmentDate, w.PeriodTo)
}

func between(t, from, to time.Time) bool {
	d := day(t)
	return !d.Before(day(from)) && !d.After(day(to))
}

// day truncates a timestamp to its calendar date in UTC
func day(t time.Time) time.Time {
	y, m, dd := t.UTC().Date()
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}

// GroupKey identifies one aggregate line
type GroupKey struct {
	AccountType AccountType `json:"account_type"`
	Name        string      `json:"name"`
}

// KeyFunc maps a posting to the group it is summed into
type KeyFunc func(*Entry) GroupKey

// ByAccountName groups postings by account name scoped by account type
func ByAccountName(e *Entry) GroupKey {
	return GroupKey{AccountType: e.AccountType, Name: e.AccountName}
}

// Balance holds the two signed window sums for a group
type Balance struct {
	Period         decimal.Decimal `json:"period"`
	SinceInception decimal.Decimal `json:"since_inception"`
}

// IsMaterial reports whether either window sum exceeds the materiality threshold
func (b Balance) IsMaterial() bool {
	return money.IsMaterial(b.Period) || money.IsMaterial(b.SinceInception)
}

// Add returns the element-wise sum of two balances
func (b Balance) Add(other Balance) Balance {
	return Balance{
		Period:         b.Period.Add(other.Period),
		SinceInception: b.SinceInception.Add(other.SinceInception),
	}
}

// Aggregates maps each material group to its balance
type Aggregates map[GroupKey]Balance

// Line is one group and its balance
type Line struct {
	Key     GroupKey `json:"key"`
	Balance Balance  `json:"balance"`
}

// Lines returns the aggregates ordered by account type then name
func (a Aggregates) Lines() []Line {
	lines := make([]Line, 0, len(a))
	for k, b := range a {
		lines = append(lines, Line{Key: k, Balance: b})
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Key.AccountType != lines[j].Key.AccountType {
			return lines[i].Key.AccountType < lines[j].Key.AccountType
		}
		return lines[i].Key.Name < lines[j].Key.Name
	})
	return lines
}

// OfType returns the ordered lines whose key has the given account type
func (a Aggregates) OfType(t AccountType) []Line {
	var out []Line
	for _, l := range a.Lines() {
		if l.Key.AccountType == t {
			out = append(out, l)
		}
	}
	return out
}

// Total sums every aggregate
func (a Aggregates) Total() Balance {
	total := Balance{Period: decimal.Zero, SinceInception: decimal.Zero}
	for _, b := range a {
		total = total.Add(b)
	}
	return total
}

// Aggregate nets postings per group over both windows of w. sign chooses the
// netting convention per account type; nil means DefaultSign. key chooses the
// grouping; nil means ByAccountName. Groups whose period and since-inception
// sums are both within materiality are omitted.
//
// Postings outside [AppointmentDate, PeriodTo] contribute nothing. The result
// does not depend on the order of entries.
func Aggregate(entries []*Entry, key KeyFunc, w Window, sign SignFunc) Aggregates {
	if key == nil {
		key = ByAccountName
	}
	if sign == nil {
		sign = DefaultSign
	}

	sums := make(map[GroupKey]Balance)
	for _, e := range entries {
		inPeriod := w.InPeriod(e.EntryDate)
		sinceInception := w.SinceInception(e.EntryDate)
		if !inPeriod && !sinceInception {
			continue
		}

		k := key(e)
		b, ok := sums[k]
		if !ok {
			b = Balance{Period: decimal.Zero, SinceInception: decimal.Zero}
		}

		net := e.Net(sign(e.AccountType))
		if inPeriod {
			b.Period = b.Period.Add(net)
		}
		if sinceInception {
			b.SinceInception = b.SinceInception.Add(net)
		}
		sums[k] = b
	}

	out := make(Aggregates, len(sums))
	for k, b := range sums {
		if b.IsMaterial() {
			out[k] = b
		}
	}
	return out
}
