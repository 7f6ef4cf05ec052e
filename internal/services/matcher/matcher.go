package matcher

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/BearBump/VeinLine/internal/models"
)

const DefaultLimit = 50

// Directory is the donor directory the matcher reads from.
type Directory interface {
	ListAvailableDonors(ctx context.Context, groups []models.BloodGroup, city models.CityFilter) ([]*models.DonorRecord, error)
}

type Compatibility interface {
	CompatibleDonorGroups(ctx context.Context, recipient models.BloodGroup) []models.BloodGroup
}

type Config struct {
	CityMatchStrict bool
	DefaultLimit    int
}

type Matcher struct {
	compat Compatibility
	dir    Directory
	cfg    Config
}

func New(compat Compatibility, dir Directory, cfg Config) *Matcher {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultLimit
	}
	return &Matcher{compat: compat, dir: dir, cfg: cfg}
}

// MatchDonors returns available, compatible donors in the request's city, most recently
// updated first, at most limit of them. limit <= 0 uses the configured default.
// No match is an empty slice, not an error.
func (m *Matcher) MatchDonors(ctx context.Context, req *models.SOSRequest, limit int) ([]*models.DonorRecord, error) {
	if limit <= 0 {
		limit = m.cfg.DefaultLimit
	}
	groups := m.compat.CompatibleDonorGroups(ctx, req.BloodGroupNeeded)
	if len(groups) == 0 {
		return []*models.DonorRecord{}, nil
	}

	filter := models.CityFilter{City: req.City, AllowBlank: !m.cfg.CityMatchStrict}
	donors, err := m.dir.ListAvailableDonors(ctx, groups, filter)
	if err != nil {
		return nil, errors.Wrap(err, "list available donors")
	}

	allowed := make(map[models.BloodGroup]struct{}, len(groups))
	for _, g := range groups {
		allowed[g] = struct{}{}
	}

	// The directory already filters; re-check so the guarantees hold for any implementation.
	out := make([]*models.DonorRecord, 0, len(donors))
	for _, d := range donors {
		if d == nil || !d.IsAvailable || !filter.Match(d.City) {
			continue
		}
		if _, ok := allowed[d.BloodGroup]; !ok {
			continue
		}
		if d.Eligible != nil && !*d.Eligible {
			continue
		}
		out = append(out, d)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].UserID > out[j].UserID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
