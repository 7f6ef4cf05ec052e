package donations

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/BearBump/VeinLine/internal/broker/messages"
	"github.com/BearBump/VeinLine/internal/domainerr"
	"github.com/BearBump/VeinLine/internal/models"
	"github.com/BearBump/VeinLine/internal/policy"
)

type Repository interface {
	GetTracker(ctx context.Context, id uint64) (*models.DonationTracker, error)
	SaveTracker(ctx context.Context, t *models.DonationTracker) error
	GetResponse(ctx context.Context, id uint64) (*models.SOSResponse, error)
	GetRequest(ctx context.Context, id uint64) (*models.SOSRequest, error)
}

type DonorMarker interface {
	MarkDonated(ctx context.Context, userID uint64, at time.Time) error
}

type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type Recorder interface {
	IncSOSEvent(typ string)
}

type Service struct {
	repo      Repository
	donors    DonorMarker
	publisher Publisher
	metrics   Recorder
	topic     string
	now       func() time.Time
}

// New builds the tracker service. publisher and metrics may be nil.
func New(repo Repository, donors DonorMarker, publisher Publisher, metrics Recorder, topic string) *Service {
	if topic == "" {
		topic = "sos.events"
	}
	return &Service{
		repo:      repo,
		donors:    donors,
		publisher: publisher,
		metrics:   metrics,
		topic:     topic,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Location is an optional live position reported by the travelling donor.
type Location struct {
	Latitude           float64
	Longitude          float64
	EstimatedArrivalAt *time.Time
}

func (l *Location) validate(v *domainerr.ValidationError) {
	if l == nil {
		return
	}
	if l.Latitude < -90 || l.Latitude > 90 {
		v.Field("latitude", "must be between -90 and 90")
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		v.Field("longitude", "must be between -180 and 180")
	}
}

const maxNotesLen = 500

func (s *Service) AdvanceStatus(ctx context.Context, actor models.Actor, trackerID uint64, status string, loc *Location, notes string) (*models.DonationTracker, error) {
	tr, err := s.repo.GetTracker(ctx, trackerID)
	if err != nil {
		return nil, err
	}
	resp, err := s.repo.GetResponse(ctx, tr.ResponseID)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(policy.OpAdvanceTracker, actor, policy.Owner(resp.DonorID)); err != nil {
		return nil, err
	}

	v := domainerr.NewValidation()
	next, ok := models.ParseDonationStatus(strings.ToLower(strings.TrimSpace(status)))
	if !ok {
		v.Field("status", "must be one of agreed, traveling, arrived, donating, completed, cancelled")
	}
	loc.validate(v)
	notes = strings.TrimSpace(notes)
	if len(notes) > maxNotesLen {
		v.Field("notes", "is too long")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	now := s.now()
	firstCompletion := next == models.DonationStatusCompleted && tr.CompletedAt == nil
	move := tr.Advance(next, now)
	if !move.Forward {
		slog.Warn("donation tracker moved out of order",
			"tracker_id", tr.ID,
			"from", move.From,
			"to", move.To,
			"actor_id", actor.ID,
		)
	}
	if loc != nil {
		lat, lon := loc.Latitude, loc.Longitude
		tr.Latitude, tr.Longitude = &lat, &lon
		if loc.EstimatedArrivalAt != nil {
			eta := loc.EstimatedArrivalAt.UTC()
			tr.EstimatedArrivalAt = &eta
		}
	}
	if notes != "" {
		tr.Notes = notes
	}
	tr.UpdatedAt = now
	if err := s.repo.SaveTracker(ctx, tr); err != nil {
		return nil, err
	}

	if firstCompletion {
		if err := s.donors.MarkDonated(ctx, resp.DonorID, now); err != nil {
			return nil, err
		}
		slog.Info("donation completed", "tracker_id", tr.ID, "donor_id", resp.DonorID)
	}

	s.publish(ctx, tr, resp)
	return tr, nil
}

func (s *Service) GetTracker(ctx context.Context, actor models.Actor, trackerID uint64) (*models.DonationTracker, error) {
	tr, err := s.repo.GetTracker(ctx, trackerID)
	if err != nil {
		return nil, err
	}
	resp, err := s.repo.GetResponse(ctx, tr.ResponseID)
	if err != nil {
		return nil, err
	}
	req, err := s.repo.GetRequest(ctx, resp.RequestID)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(policy.OpGetTracker, actor, policy.Owner(resp.DonorID, req.RequesterID)); err != nil {
		return nil, err
	}
	return tr, nil
}

func (s *Service) publish(ctx context.Context, tr *models.DonationTracker, resp *models.SOSResponse) {
	if s.metrics != nil {
		s.metrics.IncSOSEvent(string(messages.EventDonationStatusChange))
	}
	if s.publisher == nil {
		return
	}
	req, err := s.repo.GetRequest(ctx, resp.RequestID)
	if err != nil {
		slog.Warn("load request for tracker event", "request_id", resp.RequestID, "err", err)
		return
	}

	ev := messages.NewSOSEvent(messages.EventDonationStatusChange, req.ID, req.RequesterID, s.now())
	ev.ResponseID = resp.ID
	ev.DonorID = resp.DonorID
	ev.TrackerID = tr.ID
	ev.DonationStatus = string(tr.CurrentStatus)
	b, err := ev.Encode()
	if err != nil {
		slog.Warn("encode tracker event", "tracker_id", tr.ID, "err", err)
		return
	}
	key := []byte(strconv.FormatUint(req.ID, 10))
	if err := s.publisher.Publish(context.WithoutCancel(ctx), s.topic, key, b); err != nil {
		slog.Warn("publish tracker event", "tracker_id", tr.ID, "err", err)
	}
}
