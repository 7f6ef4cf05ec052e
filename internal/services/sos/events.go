package sos

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/BearBump/VeinLine/internal/broker/messages"
	"github.com/BearBump/VeinLine/internal/models"
)

// publish runs after the state change committed. Failures are logged and dropped: events
// drive follow-up notifications only and never roll back the request lifecycle.
func (s *Service) publish(ctx context.Context, ev messages.SOSEvent) {
	if s.d.Metrics != nil {
		s.d.Metrics.IncSOSEvent(string(ev.Type))
	}
	if s.d.Publisher == nil {
		return
	}
	b, err := ev.Encode()
	if err != nil {
		slog.Warn("encode sos event", "type", ev.Type, "request_id", ev.RequestID, "err", err)
		return
	}
	key := []byte(strconv.FormatUint(ev.RequestID, 10))
	if err := s.d.Publisher.Publish(context.WithoutCancel(ctx), s.cfg.EventsTopic, key, b); err != nil {
		slog.Warn("publish sos event", "type", ev.Type, "request_id", ev.RequestID, "err", err)
	}
}

func (s *Service) publishRequest(ctx context.Context, t messages.EventType, req *models.SOSRequest) {
	ev := messages.NewSOSEvent(t, req.ID, req.RequesterID, s.now())
	ev.BloodGroup = string(req.BloodGroupNeeded)
	ev.City = req.City
	ev.Status = string(req.Status)
	s.publish(ctx, ev)
}

func (s *Service) publishResponse(ctx context.Context, t messages.EventType, req *models.SOSRequest, resp *models.SOSResponse) {
	ev := messages.NewSOSEvent(t, req.ID, req.RequesterID, s.now())
	ev.BloodGroup = string(req.BloodGroupNeeded)
	ev.City = req.City
	ev.ResponseID = resp.ID
	ev.DonorID = resp.DonorID
	ev.Response = string(resp.Response)
	ev.Channel = string(resp.Channel)
	s.publish(ctx, ev)
}
