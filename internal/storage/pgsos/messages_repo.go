package pgsos

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/VeinLine/internal/models"
)

const messageColumns = `
  id, sos_request_id, sender_id, recipient_id, content, template_type, is_read, read_at, created_at
`

func scanMessage(row pgx.Row) (*models.Message, error) {
	var m models.Message
	err := row.Scan(&m.ID, &m.SOSRequestID, &m.SenderID, &m.RecipientID, &m.Content, &m.Template, &m.IsRead, &m.ReadAt, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Storage) CreateMessage(ctx context.Context, m *models.Message) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	err := s.db.QueryRow(ctx, `
INSERT INTO sos_messages (sos_request_id, sender_id, recipient_id, content, template_type, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id
`, m.SOSRequestID, m.SenderID, m.RecipientID, m.Content, m.Template, m.CreatedAt.UTC()).Scan(&m.ID)
	return errors.Wrap(err, "insert message")
}

func (s *Storage) GetMessage(ctx context.Context, id uint64) (*models.Message, error) {
	m, err := scanMessage(s.db.QueryRow(ctx, `SELECT`+messageColumns+`FROM sos_messages WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "select message")
	}
	return m, nil
}

// ListMessages returns what the user sent or received, newest first.
func (s *Storage) ListMessages(ctx context.Context, userID uint64, limit int) ([]*models.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.queryMessages(ctx, `
SELECT`+messageColumns+`
FROM sos_messages
WHERE sender_id = $1 OR recipient_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2
`, userID, limit)
}

// Conversation returns the messages between two users in sending order. A zero SOSRequestID
// spans every request.
func (s *Storage) Conversation(ctx context.Context, q models.ConversationQuery) ([]*models.Message, error) {
	return s.queryMessages(ctx, `
SELECT`+messageColumns+`
FROM sos_messages
WHERE ((sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1))
  AND ($3 = 0 OR sos_request_id = $3)
ORDER BY created_at, id
`, q.UserID, q.OtherUserID, q.SOSRequestID)
}

// MarkMessageRead keeps the first read time.
func (s *Storage) MarkMessageRead(ctx context.Context, id uint64, at time.Time) (*models.Message, error) {
	m, err := scanMessage(s.db.QueryRow(ctx, `
UPDATE sos_messages
SET is_read = true, read_at = COALESCE(read_at, $2)
WHERE id = $1
RETURNING`+messageColumns, id, at.UTC()))
	if err != nil {
		return nil, notFound(err, "mark message read")
	}
	return m, nil
}

func (s *Storage) queryMessages(ctx context.Context, q string, args ...any) ([]*models.Message, error) {
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select messages")
	}
	defer rows.Close()

	out := make([]*models.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan message")
		}
		out = append(out, m)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
