// Package logsms is the development SMS provider: it logs the message and reports it as sent.
package logsms

import (
	"context"
	"log/slog"
	"sync"

	"github.com/BearBump/VeinLine/internal/integrations/sms"
)

const Name = "log"

type Message struct {
	Phone string
	Text  string
}

type Provider struct {
	mu   sync.Mutex
	sent []Message
}

func New() *Provider {
	return &Provider{}
}

func (p *Provider) Name() string { return Name }

func (p *Provider) Send(ctx context.Context, phoneE164, text string) (sms.Result, error) {
	if _, ok := sms.VendorNumber(phoneE164); !ok {
		return sms.Result{Provider: Name, Status: sms.StatusSkipped, Reason: sms.ReasonInvalidPhone}, nil
	}
	slog.Info("sms (log provider)", "phone", phoneE164, "text", text)

	p.mu.Lock()
	p.sent = append(p.sent, Message{Phone: phoneE164, Text: text})
	p.mu.Unlock()
	return sms.Result{Provider: Name, Status: sms.StatusSent}, nil
}

// Sent returns a copy of everything logged so far.
func (p *Provider) Sent() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Message(nil), p.sent...)
}
