package pgsos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/VeinLine/internal/models"
)

const notificationColumns = `
  id, recipient_id, type, title, body, metadata, channels, priority, is_read, read_at, created_at
`

func scanNotification(row pgx.Row) (*models.Notification, error) {
	var n models.Notification
	var meta []byte
	var channels []string
	if err := row.Scan(&n.ID, &n.RecipientID, &n.Type, &n.Title, &n.Body, &meta, &channels, &n.Priority, &n.IsRead, &n.ReadAt, &n.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(meta, &n.Metadata); err != nil {
		return nil, errors.Wrap(err, "unmarshal notification metadata")
	}
	for _, c := range channels {
		n.Channels = append(n.Channels, models.NotificationChannel(c))
	}
	return &n, nil
}

func (s *Storage) CreateNotification(ctx context.Context, n *models.Notification) error {
	meta := n.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return errors.Wrap(err, "marshal notification metadata")
	}
	channels := make([]string, 0, len(n.Channels))
	for _, c := range n.Channels {
		channels = append(channels, string(c))
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	err = s.db.QueryRow(ctx, `
INSERT INTO notifications (recipient_id, type, title, body, metadata, channels, priority, is_read, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
RETURNING id
`, n.RecipientID, n.Type, n.Title, n.Body, b, channels, n.Priority, n.IsRead, n.CreatedAt.UTC()).Scan(&n.ID)
	return errors.Wrap(err, "insert notification")
}

// ListNotifications returns the newest notifications of one recipient first.
func (s *Storage) ListNotifications(ctx context.Context, q models.NotificationQuery) ([]*models.Notification, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	rows, err := s.db.Query(ctx, `
SELECT`+notificationColumns+`
FROM notifications
WHERE recipient_id = $1 AND ($2::boolean IS NULL OR is_read = $2)
ORDER BY created_at DESC, id DESC
LIMIT $3
`, q.RecipientID, q.Read, q.Limit)
	if err != nil {
		return nil, errors.Wrap(err, "select notifications")
	}
	defer rows.Close()

	out := make([]*models.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan notification")
		}
		out = append(out, n)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) CountUnreadNotifications(ctx context.Context, recipientID uint64) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM notifications WHERE recipient_id = $1 AND NOT is_read`, recipientID).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "count unread notifications")
	}
	return n, nil
}

// MarkNotificationRead keeps the first read time. A notification of another recipient is not found.
func (s *Storage) MarkNotificationRead(ctx context.Context, recipientID, id uint64, at time.Time) (*models.Notification, error) {
	n, err := scanNotification(s.db.QueryRow(ctx, `
UPDATE notifications
SET is_read = true, read_at = COALESCE(read_at, $3)
WHERE id = $1 AND recipient_id = $2
RETURNING`+notificationColumns, id, recipientID, at.UTC()))
	if err != nil {
		return nil, notFound(err, "mark notification read")
	}
	return n, nil
}

// MarkAllNotificationsRead returns how many unread notifications it marked.
func (s *Storage) MarkAllNotificationsRead(ctx context.Context, recipientID uint64, at time.Time) (int, error) {
	tag, err := s.db.Exec(ctx, `
UPDATE notifications
SET is_read = true, read_at = $2
WHERE recipient_id = $1 AND NOT is_read
`, recipientID, at.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "mark notifications read")
	}
	return int(tag.RowsAffected()), nil
}
