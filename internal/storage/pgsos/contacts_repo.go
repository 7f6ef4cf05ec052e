package pgsos

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/VeinLine/internal/models"
)

func (s *Storage) GetPhone(ctx context.Context, userID uint64) (string, bool, error) {
	return s.contact(ctx, `SELECT phone_e164 FROM users WHERE id = $1`, userID)
}

func (s *Storage) GetEmail(ctx context.Context, userID uint64) (string, bool, error) {
	return s.contact(ctx, `SELECT email FROM users WHERE id = $1`, userID)
}

func (s *Storage) contact(ctx context.Context, q string, userID uint64) (string, bool, error) {
	var v string
	err := s.db.QueryRow(ctx, q, userID).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "select contact")
	}
	return v, v != "", nil
}

// FindUserByPhoneSuffix compares digits only, so "+91 98000 00010" and "09800000010" both
// end in the same suffix. Returns nil when nobody matches.
func (s *Storage) FindUserByPhoneSuffix(ctx context.Context, suffix string) (*models.UserRef, error) {
	var u models.UserRef
	err := s.db.QueryRow(ctx, `
SELECT u.id, d.user_id IS NOT NULL
FROM users u
LEFT JOIN donor_details d ON d.user_id = u.id
WHERE u.phone_e164 <> ''
  AND right(regexp_replace(u.phone_e164, '\D', '', 'g'), length($1)) = $1
ORDER BY u.id
LIMIT 1
`, suffix).Scan(&u.ID, &u.IsDonor)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select user by phone")
	}
	return &u, nil
}

// UpsertUser writes the contact mirror of an account.
func (s *Storage) UpsertUser(ctx context.Context, id uint64, username, email, phoneE164 string) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO users (id, username, email, phone_e164)
VALUES ($1,$2,$3,$4)
ON CONFLICT (id) DO UPDATE SET
  username = EXCLUDED.username,
  email = EXCLUDED.email,
  phone_e164 = EXCLUDED.phone_e164
`, id, username, email, phoneE164)
	return errors.Wrap(err, "upsert user")
}
