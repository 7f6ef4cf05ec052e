package notifier

import "github.com/BearBump/VeinLine/internal/models"

type Status string

const (
	StatusSent    Status = "sent"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Reasons beyond the SMS provider ones in package sms.
const (
	ReasonNoPhone         = "no_phone"
	ReasonNoEmail         = "no_email"
	ReasonRateLimited     = "rate_limited"
	ReasonUnexpectedError = "unexpected_error"
	ReasonDeliveryError   = "delivery_error"
	ReasonStoreError      = "store_error"
	ReasonContactError    = "contact_error"
	ReasonChannelDisabled = "channel_disabled"
)

type Outcome struct {
	Channel    models.NotificationChannel `json:"channel"`
	Status     Status                     `json:"status"`
	Reason     string                     `json:"reason,omitempty"`
	HTTPStatus int                        `json:"http_status,omitempty"`
}

func (o Outcome) skip(reason string) Outcome {
	o.Status, o.Reason = StatusSkipped, reason
	return o
}

func (o Outcome) fail(reason string) Outcome {
	o.Status, o.Reason = StatusFailed, reason
	return o
}

type RecipientReport struct {
	RecipientID uint64    `json:"recipient_id"`
	Outcomes    []Outcome `json:"outcomes"`
}

func (r RecipientReport) Outcome(ch models.NotificationChannel) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Channel == ch {
			return o, true
		}
	}
	return Outcome{}, false
}

// Summary counts recipients. Notified means at least one external channel delivered
// (in-app counts only when no external channel was requested). Failed and Skipped
// split the rest by whether any channel failed.
type Summary struct {
	Recipients int `json:"recipients"`
	Notified   int `json:"notified"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

type Report struct {
	Recipients []RecipientReport `json:"recipients"`
	Summary    Summary           `json:"summary"`
}

// For returns the report of one recipient.
func (r Report) For(userID uint64) (RecipientReport, bool) {
	for _, rr := range r.Recipients {
		if rr.RecipientID == userID {
			return rr, true
		}
	}
	return RecipientReport{}, false
}

func newReport(recipients []RecipientReport, want map[models.NotificationChannel]bool) Report {
	externalOnly := want[models.ChannelSMS] || want[models.ChannelEmail]
	s := Summary{Recipients: len(recipients)}
	for _, rr := range recipients {
		delivered, failed := false, false
		for _, o := range rr.Outcomes {
			if o.Channel == models.ChannelInApp && externalOnly {
				continue
			}
			switch o.Status {
			case StatusSent:
				delivered = true
			case StatusFailed:
				failed = true
			}
		}
		switch {
		case delivered:
			s.Notified++
		case failed:
			s.Failed++
		default:
			s.Skipped++
		}
	}
	if recipients == nil {
		recipients = []RecipientReport{}
	}
	return Report{Recipients: recipients, Summary: s}
}
