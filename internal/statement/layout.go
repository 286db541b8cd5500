package statement

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/kislikjeka/caseledger/internal/distribution"
	"github.com/kislikjeka/caseledger/internal/ledger"
)

// SectionKind says where a section's rows come from
type SectionKind string

const (
	// SectionAccounts rows are account balances of the listed account types
	SectionAccounts SectionKind = "accounts"
	// SectionCreditors rows are distribution payments attributed to claims of
	// the listed creditor types
	SectionCreditors SectionKind = "creditors"
)

// SectionSpec describes one movement section of a receipts-and-payments account
type SectionSpec struct {
	Key           string                      `yaml:"key" toml:"key" json:"key"`
	Title         string                      `yaml:"title" toml:"title" json:"title"`
	Kind          SectionKind                 `yaml:"kind" toml:"kind" json:"kind"`
	AccountTypes  []ledger.AccountType        `yaml:"account_types,omitempty" toml:"account_types,omitempty" json:"account_types,omitempty"`
	CreditorTypes []distribution.CreditorType `yaml:"creditor_types,omitempty" toml:"creditor_types,omitempty" json:"creditor_types,omitempty"`
	// Optional sections are left out of the statement when they have no rows
	Optional bool `yaml:"optional,omitempty" toml:"optional,omitempty" json:"optional,omitempty"`
	// Fallback receives distribution payments that match no claim
	Fallback bool `yaml:"fallback,omitempty" toml:"fallback,omitempty" json:"fallback,omitempty"`
}

// Layout is the ordered section structure of a statement
type Layout struct {
	Sections           []SectionSpec `yaml:"sections" toml:"sections" json:"sections"`
	RepresentedByTitle string        `yaml:"represented_by_title" toml:"represented_by_title" json:"represented_by_title"`
	VATLabel           string        `yaml:"vat_label" toml:"vat_label" json:"vat_label"`
}

// DefaultLayout returns the standard receipts-and-payments layout
func DefaultLayout() Layout {
	return Layout{
		Sections: []SectionSpec{
			{Key: "asset_realisations", Title: "Asset Realisations", Kind: SectionAccounts,
				AccountTypes: []ledger.AccountType{ledger.AccountTypeAssetRealisation}},
			{Key: "cost_of_realisations", Title: "Cost of Realisations", Kind: SectionAccounts,
				AccountTypes: []ledger.AccountType{ledger.AccountTypeCost}},
			{Key: "trading_expenses", Title: "Trading Expenses", Kind: SectionAccounts,
				AccountTypes: []ledger.AccountType{ledger.AccountTypeTrading}},
			{Key: "secured_creditors", Title: "Secured Creditors", Kind: SectionCreditors, Optional: true,
				CreditorTypes: []distribution.CreditorType{distribution.CreditorSecured}},
			{Key: "preferential_creditors", Title: "Preferential Creditors", Kind: SectionCreditors,
				CreditorTypes: []distribution.CreditorType{distribution.CreditorPreferential}},
			{Key: "secondary_preferential_creditors", Title: "Secondary Preferential Creditors", Kind: SectionCreditors,
				CreditorTypes: []distribution.CreditorType{distribution.CreditorSecondaryPreferential}},
			{Key: "unsecured_creditors", Title: "Unsecured Creditors", Kind: SectionCreditors, Fallback: true,
				CreditorTypes: []distribution.CreditorType{distribution.CreditorUnsecured}},
			{Key: "distributions_to_members", Title: "Distributions to Members", Kind: SectionCreditors, Optional: true,
				CreditorTypes: []distribution.CreditorType{distribution.CreditorMembers}},
		},
		RepresentedByTitle: "Represented By",
		VATLabel:           "VAT Control Account",
	}
}

// LoadLayout reads a layout from a .yaml, .yml or .toml file and validates it.
// Titles left empty fall back to the default layout's wording.
func LoadLayout(path string) (Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("failed to read layout: %w", err)
	}

	var layout Layout
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &layout); err != nil {
			return Layout{}, fmt.Errorf("failed to parse layout %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &layout); err != nil {
			return Layout{}, fmt.Errorf("failed to parse layout %s: %w", path, err)
		}
	default:
		return Layout{}, fmt.Errorf("%w: %s", ErrUnsupportedLayoutFormat, path)
	}

	defaults := DefaultLayout()
	if layout.RepresentedByTitle == "" {
		layout.RepresentedByTitle = defaults.RepresentedByTitle
	}
	if layout.VATLabel == "" {
		layout.VATLabel = defaults.VATLabel
	}

	if err := layout.Validate(); err != nil {
		return Layout{}, fmt.Errorf("invalid layout %s: %w", path, err)
	}
	return layout, nil
}

// Validate checks that every movement account type and every creditor type
// lands in exactly one section, so no posting is dropped or counted twice.
func (l Layout) Validate() error {
	if len(l.Sections) == 0 {
		return ErrEmptyLayout
	}

	keys := make(map[string]bool)
	accountTypes := make(map[ledger.AccountType]int)
	creditorTypes := make(map[distribution.CreditorType]int)
	fallbacks := 0

	for _, s := range l.Sections {
		if s.Key == "" || s.Title == "" {
			return fmt.Errorf("%w: key and title are required", ErrInvalidSection)
		}
		if keys[s.Key] {
			return fmt.Errorf("%w: %s", ErrDuplicateSectionKey, s.Key)
		}
		keys[s.Key] = true

		switch s.Kind {
		case SectionAccounts:
			if s.Fallback || len(s.CreditorTypes) > 0 {
				return fmt.Errorf("%w: %s: account sections take account types only", ErrInvalidSection, s.Key)
			}
			for _, t := range s.AccountTypes {
				if !t.IsValid() || t.IsRepresentation() || t == ledger.AccountTypeDistribution {
					return fmt.Errorf("%w: %s: account type %q", ErrInvalidSection, s.Key, t)
				}
				accountTypes[t]++
			}
		case SectionCreditors:
			if len(s.AccountTypes) > 0 {
				return fmt.Errorf("%w: %s: creditor sections take creditor types only", ErrInvalidSection, s.Key)
			}
			for _, t := range s.CreditorTypes {
				if !t.IsValid() {
					return fmt.Errorf("%w: %s: creditor type %q", ErrInvalidSection, s.Key, t)
				}
				creditorTypes[t]++
			}
			if s.Fallback {
				fallbacks++
			}
		default:
			return fmt.Errorf("%w: %s: kind %q", ErrInvalidSection, s.Key, s.Kind)
		}
	}

	for _, t := range ledger.AllAccountTypes() {
		if t.IsRepresentation() || t == ledger.AccountTypeDistribution {
			continue
		}
		if accountTypes[t] != 1 {
			return fmt.Errorf("%w: %s", ErrAccountTypeUnplaced, t)
		}
	}
	for _, t := range distribution.AllCreditorTypes() {
		if creditorTypes[t] != 1 {
			return fmt.Errorf("%w: %s", ErrCreditorTypeUnplaced, t)
		}
	}
	if fallbacks != 1 {
		return ErrFallbackSection
	}

	return nil
}
