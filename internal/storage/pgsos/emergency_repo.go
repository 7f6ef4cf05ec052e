package pgsos

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/VeinLine/internal/domainerr"
	"github.com/BearBump/VeinLine/internal/models"
)

const emergencyColumns = `
  id, user_id, contact_user_id, contact_name, contact_phone, contact_email, relationship,
  can_create_sos, can_view_medical_info, is_active, created_at, updated_at
`

func scanEmergencyContact(row pgx.Row) (*models.EmergencyContact, error) {
	var c models.EmergencyContact
	err := row.Scan(
		&c.ID, &c.UserID, &c.ContactUserID, &c.ContactName, &c.ContactPhone, &c.ContactEmail, &c.Relationship,
		&c.CanCreateSOS, &c.CanViewMedicalInfo, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func duplicateContact(err error, msg string) error {
	if isUniqueViolation(err, "uq_emergency_contacts_user") {
		return domainerr.Invalid("contact_user_id", "is already an emergency contact")
	}
	return errors.Wrap(err, msg)
}

func (s *Storage) CreateEmergencyContact(ctx context.Context, c *models.EmergencyContact) error {
	now := time.Now().UTC()
	err := s.db.QueryRow(ctx, `
INSERT INTO emergency_contacts (
  user_id, contact_user_id, contact_name, contact_phone, contact_email, relationship,
  can_create_sos, can_view_medical_info, is_active, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$10)
RETURNING id
`, c.UserID, c.ContactUserID, c.ContactName, c.ContactPhone, c.ContactEmail, c.Relationship,
		c.CanCreateSOS, c.CanViewMedicalInfo, c.IsActive, now).Scan(&c.ID)
	if err != nil {
		return duplicateContact(err, "insert emergency contact")
	}
	c.CreatedAt, c.UpdatedAt = now, now
	return nil
}

func (s *Storage) GetEmergencyContact(ctx context.Context, id uint64) (*models.EmergencyContact, error) {
	c, err := scanEmergencyContact(s.db.QueryRow(ctx, `SELECT`+emergencyColumns+`FROM emergency_contacts WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "select emergency contact")
	}
	return c, nil
}

func (s *Storage) ListEmergencyContacts(ctx context.Context, userID uint64) ([]*models.EmergencyContact, error) {
	rows, err := s.db.Query(ctx, `SELECT`+emergencyColumns+`FROM emergency_contacts WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "select emergency contacts")
	}
	defer rows.Close()

	out := make([]*models.EmergencyContact, 0)
	for rows.Next() {
		c, err := scanEmergencyContact(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan emergency contact")
		}
		out = append(out, c)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) SaveEmergencyContact(ctx context.Context, c *models.EmergencyContact) error {
	c.UpdatedAt = time.Now().UTC()
	tag, err := s.db.Exec(ctx, `
UPDATE emergency_contacts
SET contact_user_id = $2, contact_name = $3, contact_phone = $4, contact_email = $5, relationship = $6,
    can_create_sos = $7, can_view_medical_info = $8, is_active = $9, updated_at = $10
WHERE id = $1
`, c.ID, c.ContactUserID, c.ContactName, c.ContactPhone, c.ContactEmail, c.Relationship,
		c.CanCreateSOS, c.CanViewMedicalInfo, c.IsActive, c.UpdatedAt)
	if err != nil {
		return duplicateContact(err, "update emergency contact")
	}
	if tag.RowsAffected() == 0 {
		return domainerr.ErrNotFound
	}
	return nil
}

func (s *Storage) DeleteEmergencyContact(ctx context.Context, id uint64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM emergency_contacts WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "delete emergency contact")
	}
	if tag.RowsAffected() == 0 {
		return domainerr.ErrNotFound
	}
	return nil
}
