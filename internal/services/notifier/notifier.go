package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BearBump/VeinLine/internal/integrations/email"
	"github.com/BearBump/VeinLine/internal/integrations/sms"
	"github.com/BearBump/VeinLine/internal/models"
)

type ContactProvider interface {
	GetPhone(ctx context.Context, userID uint64) (string, bool, error)
	GetEmail(ctx context.Context, userID uint64) (string, bool, error)
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type Recorder interface {
	IncNotification(channel, status, reason string)
}

type Deps struct {
	Contacts ContactProvider
	SMS      sms.Provider
	Email    email.Sender
	Store    NotificationStore

	// RateLimiter is optional; nil disables the per-recipient SMS cap.
	RateLimiter RateLimiter
	Metrics     Recorder
}

type Config struct {
	Concurrency         int
	SMSRateLimitPerHour int64
	EmailTimeout        time.Duration
}

type Notifier struct {
	d   Deps
	cfg Config
	now func() time.Time
}

func New(d Deps, cfg Config) *Notifier {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.EmailTimeout <= 0 {
		cfg.EmailTimeout = 15 * time.Second
	}
	return &Notifier{d: d, cfg: cfg, now: time.Now}
}

// Message is one alert fanned out to every recipient.
// SMSText defaults to "Title: Body" cut to 160 characters.
type Message struct {
	Type     models.NotificationType
	Title    string
	Body     string
	SMSText  string
	Priority string
	Metadata map[string]any
}

func (m Message) smsText() string {
	if m.SMSText != "" {
		return m.SMSText
	}
	t := m.Title + ": " + m.Body
	if r := []rune(t); len(r) > 160 {
		t = string(r[:160])
	}
	return t
}

// Notify delivers msg to every recipient on the requested channels. It never fails:
// every problem is logged and recorded as an outcome in the report.
func (n *Notifier) Notify(ctx context.Context, recipients []uint64, msg Message, channels []models.NotificationChannel) Report {
	want := make(map[models.NotificationChannel]bool, len(channels))
	for _, c := range channels {
		want[c] = true
	}

	reports := make([]RecipientReport, len(recipients))
	sem := make(chan struct{}, n.cfg.Concurrency)
	var wg sync.WaitGroup
	for i, id := range recipients {
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() {
				<-sem
				wg.Done()
			}()
			reports[i] = n.notifyOne(ctx, id, msg, channels, want)
		}()
	}
	wg.Wait()

	return newReport(reports, want)
}

func (n *Notifier) notifyOne(ctx context.Context, userID uint64, msg Message, channels []models.NotificationChannel, want map[models.NotificationChannel]bool) RecipientReport {
	rep := RecipientReport{RecipientID: userID}
	if want[models.ChannelSMS] {
		rep.Outcomes = append(rep.Outcomes, n.record(userID, n.sendSMS(ctx, userID, msg)))
	}
	// Email is attempted whatever happened on SMS.
	if want[models.ChannelEmail] {
		rep.Outcomes = append(rep.Outcomes, n.record(userID, n.sendEmail(ctx, userID, msg)))
	}
	if want[models.ChannelInApp] {
		rep.Outcomes = append(rep.Outcomes, n.record(userID, n.storeInApp(ctx, userID, msg, channels)))
	}
	return rep
}

func (n *Notifier) sendSMS(ctx context.Context, userID uint64, msg Message) Outcome {
	out := Outcome{Channel: models.ChannelSMS}
	if n.d.SMS == nil {
		return out.skip(ReasonChannelDisabled)
	}
	phone, ok, err := n.d.Contacts.GetPhone(ctx, userID)
	if err != nil {
		slog.Error("lookup phone", "user_id", userID, "err", err)
		return out.fail(ReasonContactError)
	}
	if !ok || phone == "" {
		return out.skip(ReasonNoPhone)
	}

	if n.d.RateLimiter != nil && n.cfg.SMSRateLimitPerHour > 0 {
		key := fmt.Sprintf("rl:sms:%d:%s", userID, n.now().UTC().Format("2006010215"))
		allowed, count, err := n.d.RateLimiter.Allow(ctx, key, n.cfg.SMSRateLimitPerHour, 70*time.Minute)
		if err != nil {
			// fail open: an emergency alert beats a strict cap
			slog.Warn("sms rate limiter unavailable", "user_id", userID, "err", err)
		} else if !allowed {
			slog.Warn("sms rate limit exceeded", "user_id", userID, "count", count)
			return out.skip(ReasonRateLimited)
		}
	}

	res, err := n.d.SMS.Send(ctx, phone, msg.smsText())
	if err != nil {
		slog.Error("sms provider failed unexpectedly", "user_id", userID, "provider", n.d.SMS.Name(), "err", err)
		return out.fail(ReasonUnexpectedError)
	}
	out.Status = Status(res.Status)
	out.Reason = res.Reason
	out.HTTPStatus = res.HTTPStatus
	if res.Status == sms.StatusFailed {
		slog.Error("sms not delivered", "user_id", userID, "provider", res.Provider, "reason", res.Reason, "http_status", res.HTTPStatus)
	}
	return out
}

func (n *Notifier) sendEmail(ctx context.Context, userID uint64, msg Message) Outcome {
	out := Outcome{Channel: models.ChannelEmail}
	if n.d.Email == nil {
		return out.skip(ReasonChannelDisabled)
	}
	addr, ok, err := n.d.Contacts.GetEmail(ctx, userID)
	if err != nil {
		slog.Error("lookup email", "user_id", userID, "err", err)
		return out.fail(ReasonContactError)
	}
	if !ok || addr == "" {
		return out.skip(ReasonNoEmail)
	}

	ctx, cancel := context.WithTimeout(ctx, n.cfg.EmailTimeout)
	defer cancel()
	if err := n.d.Email.Send(ctx, addr, msg.Title, msg.Body); err != nil {
		slog.Error("email not delivered", "user_id", userID, "err", err)
		return out.fail(ReasonDeliveryError)
	}
	out.Status = StatusSent
	return out
}

func (n *Notifier) storeInApp(ctx context.Context, userID uint64, msg Message, channels []models.NotificationChannel) Outcome {
	out := Outcome{Channel: models.ChannelInApp}
	if n.d.Store == nil {
		return out.skip(ReasonChannelDisabled)
	}
	priority := msg.Priority
	if priority == "" {
		priority = "normal"
	}
	err := n.d.Store.CreateNotification(ctx, &models.Notification{
		RecipientID: userID,
		Type:        msg.Type,
		Title:       msg.Title,
		Body:        msg.Body,
		Metadata:    msg.Metadata,
		Channels:    channels,
		Priority:    priority,
		CreatedAt:   n.now().UTC(),
	})
	if err != nil {
		slog.Error("store in-app notification", "user_id", userID, "err", err)
		return out.fail(ReasonStoreError)
	}
	out.Status = StatusSent
	return out
}

func (n *Notifier) record(userID uint64, o Outcome) Outcome {
	if o.Status == StatusSkipped {
		slog.Warn("notification skipped", "user_id", userID, "channel", o.Channel, "reason", o.Reason)
	}
	if n.d.Metrics != nil {
		n.d.Metrics.IncNotification(string(o.Channel), string(o.Status), o.Reason)
	}
	return o
}
