// Package messaging carries short notes between the requester of an SOS request and the
// donors alerted for it.
package messaging

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/BearBump/VeinLine/internal/domainerr"
	"github.com/BearBump/VeinLine/internal/models"
	"github.com/BearBump/VeinLine/internal/policy"
	"github.com/BearBump/VeinLine/internal/services/notifier"
)

type Repository interface {
	GetRequest(ctx context.Context, id uint64) (*models.SOSRequest, error)
	ListResponses(ctx context.Context, requestID uint64) ([]*models.SOSResponse, error)

	CreateMessage(ctx context.Context, m *models.Message) error
	GetMessage(ctx context.Context, id uint64) (*models.Message, error)
	ListMessages(ctx context.Context, userID uint64, limit int) ([]*models.Message, error)
	Conversation(ctx context.Context, q models.ConversationQuery) ([]*models.Message, error)
	// MarkMessageRead keeps the first read time.
	MarkMessageRead(ctx context.Context, id uint64, at time.Time) (*models.Message, error)
}

type Notifier interface {
	Notify(ctx context.Context, recipients []uint64, msg notifier.Message, channels []models.NotificationChannel) notifier.Report
}

const (
	maxContentLen  = 1000
	previewRunes   = 100
	defaultListLen = 50
)

type Service struct {
	repo     Repository
	notifier Notifier
	now      func() time.Time
}

// New builds the messaging service. n may be nil, then recipients get no in-app alert.
func New(repo Repository, n Notifier) *Service {
	return &Service{repo: repo, notifier: n, now: func() time.Time { return time.Now().UTC() }}
}

type SendInput struct {
	SOSRequestID uint64
	RecipientID  uint64
	Content      string
	// Template is optional; without Content the template's default text is sent.
	Template string
}

// Send stores a message from actor and alerts the recipient in-app. The requester may write
// to any donor alerted for the request; a donor may write only to the requester.
func (s *Service) Send(ctx context.Context, actor models.Actor, in SendInput) (*models.Message, error) {
	v := domainerr.NewValidation()
	if in.SOSRequestID == 0 {
		v.Field("sos_request_id", "is required")
	}
	switch {
	case in.RecipientID == 0:
		v.Field("recipient_id", "is required")
	case in.RecipientID == actor.ID:
		v.Field("recipient_id", "must not be the sender")
	}
	var tpl models.MessageTemplate
	if strings.TrimSpace(in.Template) != "" {
		var ok bool
		if tpl, ok = models.ParseMessageTemplate(in.Template); !ok {
			v.Field("template_type", "must be one of on_my_way, arrived, need_directions, thank_you")
		}
	}
	content := strings.TrimSpace(in.Content)
	if content == "" && tpl != "" {
		content = tpl.DefaultText()
	}
	switch {
	case content == "":
		v.Field("content", "is required")
	case len([]rune(content)) > maxContentLen:
		v.Field("content", "is too long")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	req, err := s.repo.GetRequest(ctx, in.SOSRequestID)
	if err != nil {
		return nil, err
	}
	donors, err := s.donorsOf(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	owners := append([]uint64{req.RequesterID}, donors...)
	if err := policy.Check(policy.OpSendMessage, actor, policy.Owner(owners...)); err != nil {
		return nil, err
	}
	if !allowedRecipient(req.RequesterID, donors, actor.ID, in.RecipientID) {
		return nil, domainerr.Invalid("recipient_id", "must be the requester or a donor of this request")
	}

	m := &models.Message{
		SOSRequestID: req.ID,
		SenderID:     actor.ID,
		RecipientID:  in.RecipientID,
		Content:      content,
		Template:     tpl,
		CreatedAt:    s.now(),
	}
	if err := s.repo.CreateMessage(ctx, m); err != nil {
		return nil, err
	}
	slog.Info("sos message sent", "message_id", m.ID, "request_id", req.ID, "sender_id", m.SenderID, "recipient_id", m.RecipientID, "template", m.Template)

	s.alert(ctx, m)
	return m, nil
}

func (s *Service) donorsOf(ctx context.Context, requestID uint64) ([]uint64, error) {
	responses, err := s.repo.ListResponses(ctx, requestID)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, 0, len(responses))
	for _, r := range responses {
		out = append(out, r.DonorID)
	}
	return out, nil
}

func allowedRecipient(requesterID uint64, donors []uint64, senderID, recipientID uint64) bool {
	if recipientID == requesterID {
		return true
	}
	if senderID != requesterID {
		return false
	}
	for _, id := range donors {
		if id == recipientID {
			return true
		}
	}
	return false
}

func (s *Service) alert(ctx context.Context, m *models.Message) {
	if s.notifier == nil {
		return
	}
	preview := m.Content
	if r := []rune(preview); len(r) > previewRunes {
		preview = string(r[:previewRunes])
	}
	s.notifier.Notify(ctx, []uint64{m.RecipientID}, notifier.Message{
		Type:  models.NotificationSystem,
		Title: "New message about your SOS request",
		Body:  preview,
		Metadata: map[string]any{
			"message_id":     m.ID,
			"sos_request_id": m.SOSRequestID,
			"sender_id":      m.SenderID,
		},
	}, []models.NotificationChannel{models.ChannelInApp})
}

// List returns what actor sent or received, newest first.
func (s *Service) List(ctx context.Context, actor models.Actor, limit int) ([]*models.Message, error) {
	if limit <= 0 {
		limit = defaultListLen
	}
	return s.repo.ListMessages(ctx, actor.ID, limit)
}

// Conversation returns the exchange between actor and another user in sending order.
// A zero sosRequestID spans every request.
func (s *Service) Conversation(ctx context.Context, actor models.Actor, otherUserID, sosRequestID uint64) ([]*models.Message, error) {
	if otherUserID == 0 {
		return nil, domainerr.Invalid("user_id", "is required")
	}
	return s.repo.Conversation(ctx, models.ConversationQuery{
		UserID:       actor.ID,
		OtherUserID:  otherUserID,
		SOSRequestID: sosRequestID,
	})
}

// MarkRead is allowed to the recipient only and keeps the first read time.
func (s *Service) MarkRead(ctx context.Context, actor models.Actor, id uint64) (*models.Message, error) {
	m, err := s.repo.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(policy.OpMarkMessageRead, actor, policy.Owner(m.RecipientID)); err != nil {
		return nil, err
	}
	if m.IsRead {
		return m, nil
	}
	return s.repo.MarkMessageRead(ctx, id, s.now())
}
