package ledger

import "github.com/shopspring/decimal"

// VATFigures splits VAT control postings into input and output tax
type VATFigures struct {
	// Input is VAT suffered on payments (debits to the control account)
	Input decimal.Decimal `json:"input"`
	// Output is VAT charged on receipts (credits to the control account)
	Output decimal.Decimal `json:"output"`
	// Net is Input − Output; positive means VAT is reclaimable
	Net decimal.Decimal `json:"net"`
}

// VATPosition is the VAT control account position over both windows
type VATPosition struct {
	Window         Window     `json:"window"`
	Period         VATFigures `json:"period"`
	SinceInception VATFigures `json:"since_inception"`
	Adjustments    int        `json:"adjustments"`
}

// BuildVATPosition summarises postings to VAT control accounts. Adjusting
// journals count like any other posting.
func BuildVATPosition(entries []*Entry, w Window) *VATPosition {
	zero := VATFigures{Input: decimal.Zero, Output: decimal.Zero, Net: decimal.Zero}
	pos := &VATPosition{Window: w, Period: zero, SinceInception: zero}

	for _, e := range entries {
		if e.AccountType != AccountTypeVATControl {
			continue
		}
		inPeriod := w.InPeriod(e.EntryDate)
		sinceInception := w.SinceInception(e.EntryDate)
		if inPeriod {
			pos.Period = pos.Period.add(e)
		}
		if sinceInception {
			pos.SinceInception = pos.SinceInception.add(e)
		}
		if e.IsAdjusting() && (inPeriod || sinceInception) {
			pos.Adjustments++
		}
	}

	return pos
}

func (f VATFigures) add(e *Entry) VATFigures {
	f.Input = f.Input.Add(e.Debit)
	f.Output = f.Output.Add(e.Credit)
	f.Net = f.Input.Sub(f.Output)
	return f
}
