package pgsos

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/VeinLine/internal/models"
)

const trackerColumns = `
  id, response_id, current_status,
  latitude, longitude, estimated_arrival_at, notes,
  agreed_at, traveling_at, arrived_at, donating_at, completed_at, cancelled_at,
  updated_at
`

func scanTracker(row pgx.Row) (*models.DonationTracker, error) {
	var t models.DonationTracker
	err := row.Scan(
		&t.ID, &t.ResponseID, &t.CurrentStatus,
		&t.Latitude, &t.Longitude, &t.EstimatedArrivalAt, &t.Notes,
		&t.AgreedAt, &t.TravelingAt, &t.ArrivedAt, &t.DonatingAt, &t.CompletedAt, &t.CancelledAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetOrCreateTracker opens the tracker for a response in status agreed; created is false when
// it already existed.
func (s *Storage) GetOrCreateTracker(ctx context.Context, responseID uint64, at time.Time) (*models.DonationTracker, bool, error) {
	at = at.UTC()
	t, err := scanTracker(s.db.QueryRow(ctx, `
INSERT INTO donation_trackers (response_id, current_status, agreed_at, updated_at)
VALUES ($1,$2,$3,$3)
ON CONFLICT (response_id) DO NOTHING
RETURNING`+trackerColumns, responseID, models.DonationStatusAgreed, at))
	if err == nil {
		return t, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, errors.Wrap(err, "insert tracker")
	}

	t, err = scanTracker(s.db.QueryRow(ctx, `SELECT`+trackerColumns+`FROM donation_trackers WHERE response_id = $1`, responseID))
	if err != nil {
		return nil, false, notFound(err, "select tracker by response")
	}
	return t, false, nil
}

func (s *Storage) GetTracker(ctx context.Context, id uint64) (*models.DonationTracker, error) {
	t, err := scanTracker(s.db.QueryRow(ctx, `SELECT`+trackerColumns+`FROM donation_trackers WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "select tracker")
	}
	return t, nil
}

// SaveTracker writes the tracker and refreshes t from the stored row. Stage stamps are
// write-once in the database: a stamp already set wins over the one in t.
func (s *Storage) SaveTracker(ctx context.Context, t *models.DonationTracker) error {
	saved, err := scanTracker(s.db.QueryRow(ctx, `
UPDATE donation_trackers
SET current_status = $2,
    latitude = $3, longitude = $4, estimated_arrival_at = $5, notes = $6,
    traveling_at = COALESCE(traveling_at, $7),
    arrived_at = COALESCE(arrived_at, $8),
    donating_at = COALESCE(donating_at, $9),
    completed_at = COALESCE(completed_at, $10),
    cancelled_at = COALESCE(cancelled_at, $11),
    updated_at = $12
WHERE id = $1
RETURNING`+trackerColumns, t.ID, t.CurrentStatus,
		t.Latitude, t.Longitude, t.EstimatedArrivalAt, t.Notes,
		utcPtr(t.TravelingAt), utcPtr(t.ArrivedAt), utcPtr(t.DonatingAt), utcPtr(t.CompletedAt), utcPtr(t.CancelledAt),
		t.UpdatedAt.UTC()))
	if err != nil {
		return notFound(err, "update tracker")
	}
	*t = *saved
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
