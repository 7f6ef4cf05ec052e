package pgsos

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		// users and donor_details mirror the accounts service; this service only reads them
		// apart from last_donated_at.
		`
CREATE TABLE IF NOT EXISTS users (
  id BIGSERIAL PRIMARY KEY,
  username TEXT NOT NULL,
  email TEXT NOT NULL DEFAULT '',
  phone_e164 TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`
CREATE TABLE IF NOT EXISTS donor_details (
  user_id BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
  full_name TEXT NOT NULL DEFAULT '',
  blood_group TEXT NOT NULL,
  city TEXT NOT NULL DEFAULT '',
  area TEXT NOT NULL DEFAULT '',
  is_available BOOLEAN NOT NULL DEFAULT true,
  is_eligible BOOLEAN NULL,
  last_donated_at TIMESTAMPTZ NULL,
  latitude DOUBLE PRECISION NULL,
  longitude DOUBLE PRECISION NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
		`CREATE INDEX IF NOT EXISTS idx_donor_details_match ON donor_details(blood_group, lower(city)) WHERE is_available`,
		`
CREATE TABLE IF NOT EXISTS blood_compatibility (
  donor_group TEXT NOT NULL,
  recipient_group TEXT NOT NULL,
  is_compatible BOOLEAN NOT NULL,
  PRIMARY KEY (donor_group, recipient_group)
)`,
		`
CREATE TABLE IF NOT EXISTS sos_requests (
  id BIGSERIAL PRIMARY KEY,
  requester_id BIGINT NOT NULL,
  blood_group_needed TEXT NOT NULL,
  units_needed INT NOT NULL CHECK (units_needed >= 1),
  city TEXT NOT NULL,
  area TEXT NOT NULL DEFAULT '',
  hospital_name TEXT NOT NULL DEFAULT '',
  message TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  priority TEXT NOT NULL DEFAULT 'normal',
  sms_reply_token TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  CONSTRAINT uq_sos_requests_token UNIQUE (sms_reply_token)
)`,
		`CREATE INDEX IF NOT EXISTS idx_sos_requests_requester ON sos_requests(requester_id, created_at DESC)`,
		`
CREATE TABLE IF NOT EXISTS sos_responses (
  id BIGSERIAL PRIMARY KEY,
  request_id BIGINT NOT NULL REFERENCES sos_requests(id) ON DELETE CASCADE,
  donor_id BIGINT NOT NULL,
  response TEXT NOT NULL DEFAULT 'pending',
  channel TEXT NOT NULL,
  donor_consented_to_share_contact BOOLEAN NOT NULL DEFAULT false,
  patient_contact_revealed_at TIMESTAMPTZ NULL,
  responded_at TIMESTAMPTZ NULL,
  created_at TIMESTAMPTZ NOT NULL,
  UNIQUE (request_id, donor_id)
)`,
		`
CREATE TABLE IF NOT EXISTS donation_trackers (
  id BIGSERIAL PRIMARY KEY,
  response_id BIGINT NOT NULL UNIQUE REFERENCES sos_responses(id) ON DELETE CASCADE,
  current_status TEXT NOT NULL,
  latitude DOUBLE PRECISION NULL,
  longitude DOUBLE PRECISION NULL,
  estimated_arrival_at TIMESTAMPTZ NULL,
  notes TEXT NOT NULL DEFAULT '',
  agreed_at TIMESTAMPTZ NOT NULL,
  traveling_at TIMESTAMPTZ NULL,
  arrived_at TIMESTAMPTZ NULL,
  donating_at TIMESTAMPTZ NULL,
  completed_at TIMESTAMPTZ NULL,
  cancelled_at TIMESTAMPTZ NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		`
CREATE TABLE IF NOT EXISTS notifications (
  id BIGSERIAL PRIMARY KEY,
  recipient_id BIGINT NOT NULL,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  body TEXT NOT NULL,
  metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
  channels TEXT[] NOT NULL DEFAULT '{}',
  priority TEXT NOT NULL DEFAULT 'normal',
  is_read BOOLEAN NOT NULL DEFAULT false,
  read_at TIMESTAMPTZ NULL,
  created_at TIMESTAMPTZ NOT NULL
)`,
		`ALTER TABLE notifications ADD COLUMN IF NOT EXISTS read_at TIMESTAMPTZ NULL`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications(recipient_id) WHERE NOT is_read`,
		`
CREATE TABLE IF NOT EXISTS sos_messages (
  id BIGSERIAL PRIMARY KEY,
  sos_request_id BIGINT NOT NULL REFERENCES sos_requests(id) ON DELETE CASCADE,
  sender_id BIGINT NOT NULL,
  recipient_id BIGINT NOT NULL,
  content TEXT NOT NULL,
  template_type TEXT NOT NULL DEFAULT '',
  is_read BOOLEAN NOT NULL DEFAULT false,
  read_at TIMESTAMPTZ NULL,
  created_at TIMESTAMPTZ NOT NULL,
  CHECK (sender_id <> recipient_id)
)`,
		`CREATE INDEX IF NOT EXISTS idx_sos_messages_pair ON sos_messages(sender_id, recipient_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_sos_messages_request ON sos_messages(sos_request_id, created_at DESC)`,
		`
CREATE TABLE IF NOT EXISTS emergency_contacts (
  id BIGSERIAL PRIMARY KEY,
  user_id BIGINT NOT NULL,
  contact_user_id BIGINT NULL,
  contact_name TEXT NOT NULL DEFAULT '',
  contact_phone TEXT NOT NULL DEFAULT '',
  contact_email TEXT NOT NULL DEFAULT '',
  relationship TEXT NOT NULL,
  can_create_sos BOOLEAN NOT NULL DEFAULT true,
  can_view_medical_info BOOLEAN NOT NULL DEFAULT false,
  is_active BOOLEAN NOT NULL DEFAULT true,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  CONSTRAINT uq_emergency_contacts_user UNIQUE (user_id, contact_user_id)
)`,
		`CREATE INDEX IF NOT EXISTS idx_emergency_contacts_active ON emergency_contacts(user_id, is_active)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
