package statement

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/kislikjeka/caseledger/internal/distribution"
	"github.com/kislikjeka/caseledger/internal/ledger"
)

const (
	claimKeyPrefix        = "claim:"
	unattributedKeyPrefix = "account:"
)

// Attributor ties distribution postings to the claims they pay.
//
// A posting carrying a claim reference matches that claim. Otherwise the
// creditor names are searched for, case-insensitively, in the posting's
// description and then its account name; the longest name found wins.
// Equal-length names resolve by creditor ranking, then by claim order.
type Attributor struct {
	byID       map[uuid.UUID]distribution.Claim
	candidates []candidate
}

type candidate struct {
	needle string
	claim  distribution.Claim
}

// NewAttributor indexes claims for matching
func NewAttributor(claims []distribution.Claim) *Attributor {
	rank := make(map[distribution.CreditorType]int)
	for i, t := range distribution.AllCreditorTypes() {
		rank[t] = i
	}

	a := &Attributor{byID: make(map[uuid.UUID]distribution.Claim, len(claims))}
	for _, c := range claims {
		a.byID[c.ID] = c
		needle := strings.ToLower(strings.TrimSpace(c.CreditorName))
		if needle == "" {
			continue
		}
		a.candidates = append(a.candidates, candidate{needle: needle, claim: c})
	}

	sort.SliceStable(a.candidates, func(i, j int) bool {
		ci, cj := a.candidates[i], a.candidates[j]
		if len(ci.needle) != len(cj.needle) {
			return len(ci.needle) > len(cj.needle)
		}
		return rank[ci.claim.CreditorType] < rank[cj.claim.CreditorType]
	})
	return a
}

// Match returns the claim a posting pays
func (a *Attributor) Match(e *ledger.Entry) (distribution.Claim, bool) {
	if e.ClaimRef != nil {
		if c, ok := a.byID[*e.ClaimRef]; ok {
			return c, true
		}
	}

	for _, text := range []string{e.Description, e.AccountName} {
		haystack := strings.ToLower(text)
		if haystack == "" {
			continue
		}
		for _, cand := range a.candidates {
			if strings.Contains(haystack, cand.needle) {
				return cand.claim, true
			}
		}
	}
	return distribution.Claim{}, false
}

// Key groups distribution postings by the claim they pay, or by account name
// when no claim matches. Other postings group by account name.
func (a *Attributor) Key(e *ledger.Entry) ledger.GroupKey {
	if e.AccountType != ledger.AccountTypeDistribution {
		return ledger.ByAccountName(e)
	}
	if c, ok := a.Match(e); ok {
		return ledger.GroupKey{AccountType: e.AccountType, Name: claimKeyPrefix + c.ID.String()}
	}
	return ledger.GroupKey{AccountType: e.AccountType, Name: unattributedKeyPrefix + e.AccountName}
}

// resolve maps a distribution group key back to its claim. For unmatched
// groups it returns the account name instead.
func (a *Attributor) resolve(k ledger.GroupKey) (distribution.Claim, string, bool) {
	if id, ok := strings.CutPrefix(k.Name, claimKeyPrefix); ok {
		if parsed, err := uuid.Parse(id); err == nil {
			if c, found := a.byID[parsed]; found {
				return c, "", true
			}
		}
	}
	return distribution.Claim{}, strings.TrimPrefix(k.Name, unattributedKeyPrefix), false
}
