package pgsos

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/VeinLine/internal/domainerr"
	"github.com/BearBump/VeinLine/internal/models"
)

const selectResponse = `
SELECT
  id, request_id, donor_id, response, channel,
  donor_consented_to_share_contact, patient_contact_revealed_at,
  responded_at, created_at
FROM sos_responses
`

func scanResponse(row pgx.Row) (*models.SOSResponse, error) {
	var r models.SOSResponse
	err := row.Scan(
		&r.ID, &r.RequestID, &r.DonorID, &r.Response, &r.Channel,
		&r.DonorConsentedToShareContact, &r.PatientContactRevealedAt,
		&r.RespondedAt, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// EnsurePendingResponses get-or-creates one row per donor in a single transaction.
// Concurrent callers never duplicate a (request, donor) pair.
func (s *Storage) EnsurePendingResponses(ctx context.Context, requestID uint64, donorIDs []uint64, channel models.ResponseChannel) ([]models.ResponseRef, error) {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out := make([]models.ResponseRef, 0, len(donorIDs))
	for _, donorID := range donorIDs {
		ref := models.ResponseRef{DonorID: donorID}
		err := tx.QueryRow(ctx, `
INSERT INTO sos_responses (request_id, donor_id, response, channel, created_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (request_id, donor_id) DO NOTHING
RETURNING id
`, requestID, donorID, models.ResponsePending, channel, now).Scan(&ref.ResponseID)
		switch {
		case err == nil:
			ref.Created = true
		case errors.Is(err, pgx.ErrNoRows):
			err = tx.QueryRow(ctx, `SELECT id FROM sos_responses WHERE request_id = $1 AND donor_id = $2`,
				requestID, donorID).Scan(&ref.ResponseID)
			if err != nil {
				return nil, errors.Wrap(err, "select existing response")
			}
		default:
			return nil, errors.Wrap(err, "insert response")
		}
		out = append(out, ref)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return out, nil
}

func (s *Storage) GetResponse(ctx context.Context, id uint64) (*models.SOSResponse, error) {
	r, err := scanResponse(s.db.QueryRow(ctx, selectResponse+`WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "select response")
	}
	return r, nil
}

func (s *Storage) SaveResponseDecision(ctx context.Context, r *models.SOSResponse) error {
	tag, err := s.db.Exec(ctx, `
UPDATE sos_responses
SET response = $2, channel = $3, donor_consented_to_share_contact = $4, responded_at = $5
WHERE id = $1
`, r.ID, r.Response, r.Channel, r.DonorConsentedToShareContact, r.RespondedAt)
	if err != nil {
		return errors.Wrap(err, "update response")
	}
	if tag.RowsAffected() == 0 {
		return domainerr.ErrNotFound
	}
	return nil
}

// MarkContactRevealed keeps the first reveal time. The donor's consent is checked in the same
// statement, so a consent withdrawn after the caller looked still blocks the reveal.
func (s *Storage) MarkContactRevealed(ctx context.Context, responseID uint64, at time.Time) (*models.SOSResponse, error) {
	r, err := scanResponse(s.db.QueryRow(ctx, `
UPDATE sos_responses
SET patient_contact_revealed_at = COALESCE(patient_contact_revealed_at, $2)
WHERE id = $1 AND donor_consented_to_share_contact
RETURNING
  id, request_id, donor_id, response, channel,
  donor_consented_to_share_contact, patient_contact_revealed_at,
  responded_at, created_at
`, responseID, at.UTC()))
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.Wrap(err, "reveal contact")
	}

	var exists bool
	if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sos_responses WHERE id = $1)`, responseID).Scan(&exists); err != nil {
		return nil, errors.Wrap(err, "select response")
	}
	if !exists {
		return nil, domainerr.ErrNotFound
	}
	return nil, domainerr.ErrConsentRequired
}

func (s *Storage) ListResponses(ctx context.Context, requestID uint64) ([]*models.SOSResponse, error) {
	rows, err := s.db.Query(ctx, selectResponse+`WHERE request_id = $1 ORDER BY id`, requestID)
	if err != nil {
		return nil, errors.Wrap(err, "select responses")
	}
	defer rows.Close()

	out := make([]*models.SOSResponse, 0)
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan response")
		}
		out = append(out, r)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
