package compat

import (
	"context"
	"log/slog"

	"github.com/BearBump/VeinLine/internal/models"
)

// Store reads persisted compatibility rules.
type Store interface {
	// ListCompatibleDonorGroups returns donor groups with is_compatible = true for recipient.
	ListCompatibleDonorGroups(ctx context.Context, recipient models.BloodGroup) ([]models.BloodGroup, error)
}

type fallbackCounter interface {
	IncCompatFallback()
}

// Default is the built-in ABO/Rh red-cell compatibility table, recipient -> donors.
var Default = map[models.BloodGroup][]models.BloodGroup{
	models.BloodGroupONeg:  {models.BloodGroupONeg},
	models.BloodGroupOPos:  {models.BloodGroupONeg, models.BloodGroupOPos},
	models.BloodGroupANeg:  {models.BloodGroupONeg, models.BloodGroupANeg},
	models.BloodGroupAPos:  {models.BloodGroupONeg, models.BloodGroupOPos, models.BloodGroupANeg, models.BloodGroupAPos},
	models.BloodGroupBNeg:  {models.BloodGroupONeg, models.BloodGroupBNeg},
	models.BloodGroupBPos:  {models.BloodGroupONeg, models.BloodGroupOPos, models.BloodGroupBNeg, models.BloodGroupBPos},
	models.BloodGroupABNeg: {models.BloodGroupONeg, models.BloodGroupANeg, models.BloodGroupBNeg, models.BloodGroupABNeg},
	models.BloodGroupABPos: models.BloodGroups,
}

type Table struct {
	store   Store
	metrics fallbackCounter
}

// New builds a Table over store. store may be nil, in which case only Default is used.
func New(store Store, m fallbackCounter) *Table {
	return &Table{store: store, metrics: m}
}

// CompatibleDonorGroups returns the donor groups that may give to recipient.
// Unknown groups yield an empty set. An empty or failing store falls back to Default.
func (t *Table) CompatibleDonorGroups(ctx context.Context, recipient models.BloodGroup) []models.BloodGroup {
	if !recipient.Valid() {
		return []models.BloodGroup{}
	}
	if t.store != nil {
		groups, err := t.store.ListCompatibleDonorGroups(ctx, recipient)
		switch {
		case err != nil:
			slog.Warn("compat store failed, using built-in table", "recipient", recipient, "err", err)
		case len(groups) > 0:
			return groups
		default:
			slog.Warn("no compatibility rules stored, using built-in table", "recipient", recipient)
		}
	}
	if t.metrics != nil {
		t.metrics.IncCompatFallback()
	}
	out := make([]models.BloodGroup, len(Default[recipient]))
	copy(out, Default[recipient])
	return out
}

// DefaultRules flattens Default into (donor, recipient) pairs for seeding.
func DefaultRules() []Rule {
	rules := make([]Rule, 0, len(models.BloodGroups)*len(models.BloodGroups))
	for _, recipient := range models.BloodGroups {
		ok := make(map[models.BloodGroup]bool, len(Default[recipient]))
		for _, d := range Default[recipient] {
			ok[d] = true
		}
		for _, donor := range models.BloodGroups {
			rules = append(rules, Rule{Donor: donor, Recipient: recipient, Compatible: ok[donor]})
		}
	}
	return rules
}

type Rule struct {
	Donor      models.BloodGroup
	Recipient  models.BloodGroup
	Compatible bool
}
