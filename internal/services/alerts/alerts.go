// Package alerts turns SOS events from Kafka into requester-facing notifications.
package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/BearBump/VeinLine/internal/broker/messages"
	"github.com/BearBump/VeinLine/internal/models"
	"github.com/BearBump/VeinLine/internal/services/notifier"
)

type Consumer interface {
	Consume(ctx context.Context, handler func(ctx context.Context, key, value []byte) error) error
}

type Deduper interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type Notifier interface {
	Notify(ctx context.Context, recipients []uint64, msg notifier.Message, channels []models.NotificationChannel) notifier.Report
}

type DonorReader interface {
	GetDonor(ctx context.Context, userID uint64) (*models.DonorRecord, error)
}

type Recorder interface {
	IncWorkerEvent(typ, result string)
}

const (
	resultNotified  = "notified"
	resultIgnored   = "ignored"
	resultDuplicate = "duplicate"
	resultBadEvent  = "bad_event"
)

var requesterChannels = []models.NotificationChannel{models.ChannelInApp, models.ChannelEmail}

type Worker struct {
	consumer Consumer
	dedup    Deduper
	notifier Notifier
	donors   DonorReader
	metrics  Recorder

	dedupTTL time.Duration

	startedAtUnixNano int64
	lastEventUnixNano atomic.Int64
	totalReceived     atomic.Int64
	totalNotified     atomic.Int64
	totalIgnored      atomic.Int64
	totalDuplicates   atomic.Int64
	totalErrors       atomic.Int64
	inFlight          atomic.Int64
	lastErrorMu       sync.Mutex
	lastError         string
}

// New builds the worker. dedup and metrics may be nil.
func New(consumer Consumer, dedup Deduper, n Notifier, donors DonorReader, metrics Recorder) *Worker {
	return &Worker{
		consumer:          consumer,
		dedup:             dedup,
		notifier:          n,
		donors:            donors,
		metrics:           metrics,
		dedupTTL:          24 * time.Hour,
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func (w *Worker) WithDedupTTL(ttl time.Duration) *Worker {
	if ttl > 0 {
		w.dedupTTL = ttl
	}
	return w
}

type Stats struct {
	StartedAt       time.Time  `json:"startedAt"`
	LastEventAt     *time.Time `json:"lastEventAt,omitempty"`
	TotalReceived   int64      `json:"totalReceived"`
	TotalNotified   int64      `json:"totalNotified"`
	TotalIgnored    int64      `json:"totalIgnored"`
	TotalDuplicates int64      `json:"totalDuplicates"`
	TotalErrors     int64      `json:"totalErrors"`
	InFlight        int64      `json:"inFlight"`
	LastError       string     `json:"lastError,omitempty"`
}

func (w *Worker) Stats() Stats {
	st := Stats{
		StartedAt:       time.Unix(0, w.startedAtUnixNano).UTC(),
		TotalReceived:   w.totalReceived.Load(),
		TotalNotified:   w.totalNotified.Load(),
		TotalIgnored:    w.totalIgnored.Load(),
		TotalDuplicates: w.totalDuplicates.Load(),
		TotalErrors:     w.totalErrors.Load(),
		InFlight:        w.inFlight.Load(),
	}
	if n := w.lastEventUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastEventAt = &t
	}
	w.lastErrorMu.Lock()
	st.LastError = w.lastError
	w.lastErrorMu.Unlock()
	return st
}

func (w *Worker) Run(ctx context.Context) error {
	return w.consumer.Consume(ctx, w.Handle)
}

// Handle processes one event and never fails: undecodable events are dropped so a single bad
// payload cannot stall the partition, and a dedup store outage lets the event through.
func (w *Worker) Handle(ctx context.Context, key, value []byte) error {
	w.inFlight.Add(1)
	defer w.inFlight.Add(-1)
	w.totalReceived.Add(1)
	w.lastEventUnixNano.Store(time.Now().UTC().UnixNano())

	ev, err := messages.DecodeSOSEvent(value)
	if err != nil || ev.EventID == "" {
		if err == nil {
			err = errors.New("missing event_id")
		}
		w.fail(errors.Wrapf(err, "decode sos event key=%s", key))
		w.record("unknown", resultBadEvent)
		return nil
	}

	msg, recipient, ok := w.compose(ctx, ev)
	if !ok {
		w.totalIgnored.Add(1)
		w.record(string(ev.Type), resultIgnored)
		return nil
	}

	dedupKey := "alerts:event:" + ev.EventID
	if w.dedup != nil {
		claimed, err := w.dedup.Claim(ctx, dedupKey, w.dedupTTL)
		if err != nil {
			w.fail(errors.Wrap(err, "claim event"))
		}
		if err == nil && !claimed {
			w.totalDuplicates.Add(1)
			w.record(string(ev.Type), resultDuplicate)
			slog.Info("duplicate sos event skipped", "event_id", ev.EventID, "type", ev.Type)
			return nil
		}
	}

	rep := w.notifier.Notify(ctx, []uint64{recipient}, msg, requesterChannels)
	w.totalNotified.Add(1)
	w.record(string(ev.Type), resultNotified)
	slog.Info("requester notified",
		"event_id", ev.EventID,
		"type", ev.Type,
		"request_id", ev.RequestID,
		"recipient_id", recipient,
		"notified", rep.Summary.Notified,
		"failed", rep.Summary.Failed,
	)
	return nil
}

// compose picks the recipient and text for an event; ok is false for events nobody is told about.
func (w *Worker) compose(ctx context.Context, ev messages.SOSEvent) (notifier.Message, uint64, bool) {
	if ev.RequesterID == 0 {
		return notifier.Message{}, 0, false
	}
	meta := map[string]any{"request_id": ev.RequestID, "event_id": ev.EventID}

	switch ev.Type {
	case messages.EventResponseRecorded:
		name := w.donorName(ctx, ev.DonorID)
		verb := "declined"
		if ev.Response == string(models.ResponseYes) {
			verb = "agreed to help"
		}
		meta["response_id"] = ev.ResponseID
		return notifier.Message{
			Type:     models.NotificationSOSResponse,
			Title:    "Donor Response: " + name,
			Body:     fmt.Sprintf("%s has %s for your SOS request.", name, verb),
			Priority: "high",
			Metadata: meta,
		}, ev.RequesterID, true

	case messages.EventDonationStatusChange:
		status := displayStatus(ev.DonationStatus)
		meta["tracker_id"] = ev.TrackerID
		return notifier.Message{
			Type:     models.NotificationDonorProgress,
			Title:    "Donor Status Update: " + status,
			Body:     "Your donor has updated their status to " + status,
			Priority: "high",
			Metadata: meta,
		}, ev.RequesterID, true
	}
	return notifier.Message{}, 0, false
}

func (w *Worker) donorName(ctx context.Context, donorID uint64) string {
	if w.donors != nil && donorID != 0 {
		d, err := w.donors.GetDonor(ctx, donorID)
		if err == nil && d.FullName != "" {
			return d.FullName
		}
	}
	return "A donor"
}

func displayStatus(s string) string {
	if s == "" {
		return "Unknown"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (w *Worker) fail(err error) {
	w.totalErrors.Add(1)
	w.lastErrorMu.Lock()
	w.lastError = err.Error()
	w.lastErrorMu.Unlock()
	slog.Error("alerts worker", "error", err.Error())
}

func (w *Worker) record(typ, result string) {
	if w.metrics != nil {
		w.metrics.IncWorkerEvent(typ, result)
	}
}
