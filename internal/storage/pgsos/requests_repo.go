package pgsos

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/VeinLine/internal/domainerr"
	"github.com/BearBump/VeinLine/internal/models"
)

const tokenInsertAttempts = 3

const selectRequest = `
SELECT
  id, requester_id, blood_group_needed, units_needed,
  city, area, hospital_name, message,
  status, priority, sms_reply_token,
  created_at, updated_at
FROM sos_requests
`

func scanRequest(row pgx.Row) (*models.SOSRequest, error) {
	var r models.SOSRequest
	err := row.Scan(
		&r.ID, &r.RequesterID, &r.BloodGroupNeeded, &r.UnitsNeeded,
		&r.City, &r.Area, &r.HospitalName, &r.Message,
		&r.Status, &r.Priority, &r.SMSReplyToken,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRequest inserts r with a reply token, drawing a new token if one collides.
func (s *Storage) CreateRequest(ctx context.Context, r *models.SOSRequest) error {
	now := time.Now().UTC()
	if err := r.EnsureSMSReplyToken(); err != nil {
		return errors.Wrap(err, "generate token")
	}

	for attempt := 1; ; attempt++ {
		err := s.db.QueryRow(ctx, `
INSERT INTO sos_requests (
  requester_id, blood_group_needed, units_needed, city, area, hospital_name, message,
  status, priority, sms_reply_token, created_at, updated_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11)
RETURNING id
`, r.RequesterID, r.BloodGroupNeeded, r.UnitsNeeded, r.City, r.Area, r.HospitalName, r.Message,
			r.Status, r.Priority, r.SMSReplyToken, now).Scan(&r.ID)
		if err == nil {
			r.CreatedAt, r.UpdatedAt = now, now
			return nil
		}
		if !isUniqueViolation(err, "uq_sos_requests_token") || attempt == tokenInsertAttempts {
			return errors.Wrap(err, "insert sos request")
		}
		r.SMSReplyToken = ""
		if err := r.EnsureSMSReplyToken(); err != nil {
			return errors.Wrap(err, "generate token")
		}
	}
}

func (s *Storage) GetRequest(ctx context.Context, id uint64) (*models.SOSRequest, error) {
	r, err := scanRequest(s.db.QueryRow(ctx, selectRequest+`WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "select sos request")
	}
	return r, nil
}

func (s *Storage) GetRequestByToken(ctx context.Context, token string) (*models.SOSRequest, error) {
	r, err := scanRequest(s.db.QueryRow(ctx, selectRequest+`WHERE sms_reply_token = $1`, token))
	if err != nil {
		return nil, notFound(err, "select sos request by token")
	}
	return r, nil
}

// SaveRequest writes the editable columns. sms_reply_token is deliberately absent.
func (s *Storage) SaveRequest(ctx context.Context, r *models.SOSRequest) error {
	tag, err := s.db.Exec(ctx, `
UPDATE sos_requests
SET units_needed = $2, area = $3, hospital_name = $4, message = $5,
    status = $6, priority = $7, updated_at = $8
WHERE id = $1
`, r.ID, r.UnitsNeeded, r.Area, r.HospitalName, r.Message, r.Status, r.Priority, r.UpdatedAt.UTC())
	if err != nil {
		return errors.Wrap(err, "update sos request")
	}
	if tag.RowsAffected() == 0 {
		return domainerr.ErrNotFound
	}
	return nil
}

func (s *Storage) UpdateRequestStatus(ctx context.Context, id uint64, from, to models.SOSStatus, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
UPDATE sos_requests SET status = $3, updated_at = $4
WHERE id = $1 AND status = $2
`, id, from, to, at.UTC())
	if err != nil {
		return false, errors.Wrap(err, "update sos request status")
	}
	return tag.RowsAffected() == 1, nil
}
