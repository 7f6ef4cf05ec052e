package pgsos

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/VeinLine/internal/domainerr"
	"github.com/BearBump/VeinLine/internal/models"
)

const selectDonor = `
SELECT
  user_id, full_name, blood_group, city, area,
  is_available, is_eligible, last_donated_at,
  latitude, longitude, updated_at
FROM donor_details
`

func scanDonor(row pgx.Row) (*models.DonorRecord, error) {
	var d models.DonorRecord
	err := row.Scan(
		&d.UserID, &d.FullName, &d.BloodGroup, &d.City, &d.Area,
		&d.IsAvailable, &d.Eligible, &d.LastDonatedAt,
		&d.Latitude, &d.Longitude, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListAvailableDonors returns available donors of the given groups in the filter's city,
// newest profile update first.
func (s *Storage) ListAvailableDonors(ctx context.Context, groups []models.BloodGroup, f models.CityFilter) ([]*models.DonorRecord, error) {
	if len(groups) == 0 {
		return []*models.DonorRecord{}, nil
	}
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, string(g))
	}

	rows, err := s.db.Query(ctx, selectDonor+`
WHERE is_available
  AND blood_group = ANY($1)
  AND (lower(btrim(city)) = lower(btrim($2)) OR ($3 AND btrim(city) = ''))
ORDER BY updated_at DESC, user_id DESC
`, names, f.City, f.AllowBlank)
	if err != nil {
		return nil, errors.Wrap(err, "select available donors")
	}
	defer rows.Close()

	out := make([]*models.DonorRecord, 0)
	for rows.Next() {
		d, err := scanDonor(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan donor")
		}
		out = append(out, d)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) GetDonor(ctx context.Context, userID uint64) (*models.DonorRecord, error) {
	d, err := scanDonor(s.db.QueryRow(ctx, selectDonor+`WHERE user_id = $1`, userID))
	if err != nil {
		return nil, notFound(err, "select donor")
	}
	return d, nil
}

func (s *Storage) MarkDonated(ctx context.Context, userID uint64, at time.Time) error {
	tag, err := s.db.Exec(ctx, `UPDATE donor_details SET last_donated_at = $2, updated_at = $2 WHERE user_id = $1`, userID, at.UTC())
	if err != nil {
		return errors.Wrap(err, "mark donated")
	}
	if tag.RowsAffected() == 0 {
		return domainerr.ErrNotFound
	}
	return nil
}

// UpsertDonor writes a donor profile. Used by the directory sync and fixtures.
func (s *Storage) UpsertDonor(ctx context.Context, d *models.DonorRecord) error {
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx, `
INSERT INTO donor_details (
  user_id, full_name, blood_group, city, area, is_available, is_eligible,
  last_donated_at, latitude, longitude, updated_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (user_id) DO UPDATE SET
  full_name = EXCLUDED.full_name,
  blood_group = EXCLUDED.blood_group,
  city = EXCLUDED.city,
  area = EXCLUDED.area,
  is_available = EXCLUDED.is_available,
  is_eligible = EXCLUDED.is_eligible,
  last_donated_at = EXCLUDED.last_donated_at,
  latitude = EXCLUDED.latitude,
  longitude = EXCLUDED.longitude,
  updated_at = EXCLUDED.updated_at
`, d.UserID, d.FullName, d.BloodGroup, d.City, d.Area, d.IsAvailable, d.Eligible,
		d.LastDonatedAt, d.Latitude, d.Longitude, d.UpdatedAt.UTC())
	return errors.Wrap(err, "upsert donor")
}

func (s *Storage) ListCompatibleDonorGroups(ctx context.Context, recipient models.BloodGroup) ([]models.BloodGroup, error) {
	rows, err := s.db.Query(ctx, `
SELECT donor_group FROM blood_compatibility
WHERE recipient_group = $1 AND is_compatible
ORDER BY donor_group
`, recipient)
	if err != nil {
		return nil, errors.Wrap(err, "select compatibility")
	}
	defer rows.Close()

	var out []models.BloodGroup
	for rows.Next() {
		var g models.BloodGroup
		if err := rows.Scan(&g); err != nil {
			return nil, errors.Wrap(err, "scan compatibility")
		}
		out = append(out, g)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// SeedCompatibility inserts rules that are not stored yet; existing rows keep their value.
func (s *Storage) SeedCompatibility(ctx context.Context, donor, recipient models.BloodGroup, compatible bool) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO blood_compatibility (donor_group, recipient_group, is_compatible)
VALUES ($1,$2,$3)
ON CONFLICT (donor_group, recipient_group) DO NOTHING
`, donor, recipient, compatible)
	return errors.Wrap(err, "seed compatibility")
}
