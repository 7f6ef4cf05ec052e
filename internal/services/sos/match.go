package sos

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BearBump/VeinLine/internal/domainerr"
	"github.com/BearBump/VeinLine/internal/models"
	"github.com/BearBump/VeinLine/internal/policy"
	"github.com/BearBump/VeinLine/internal/services/notifier"
)

type MatchResult struct {
	RequestID     uint64
	MatchedDonors int
	Responses     []models.ResponseRef
	Delivery      notifier.Report
}

var alertChannels = []models.NotificationChannel{models.ChannelSMS, models.ChannelEmail, models.ChannelInApp}

// TriggerMatch finds compatible donors, makes sure each has a pending response and alerts them.
// Responses are committed before any SMS or email goes out; a retry re-sends alerts but never
// duplicates rows.
func (s *Service) TriggerMatch(ctx context.Context, actor models.Actor, requestID uint64) (*MatchResult, error) {
	req, err := s.d.Repo.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(policy.OpTriggerMatch, actor, policy.Owner(req.RequesterID)); err != nil {
		return nil, err
	}
	if !req.IsOpen() {
		return nil, domainerr.Invalid("status", "request is not open")
	}

	start := time.Now()
	donors, err := s.d.Matcher.MatchDonors(ctx, req, s.cfg.MatchLimit)
	if err != nil {
		return nil, err
	}
	if s.d.Metrics != nil {
		s.d.Metrics.ObserveMatch(time.Since(start), len(donors))
	}

	res := &MatchResult{RequestID: req.ID, MatchedDonors: len(donors), Responses: []models.ResponseRef{}}
	if len(donors) == 0 {
		slog.Info("sos match found no donors", "request_id", req.ID, "blood_group", req.BloodGroupNeeded, "city", req.City)
		return res, nil
	}

	ids := make([]uint64, 0, len(donors))
	for _, d := range donors {
		ids = append(ids, d.UserID)
	}
	refs, err := s.d.Repo.EnsurePendingResponses(ctx, req.ID, ids, models.ResponseChannelSMS)
	if err != nil {
		return nil, err
	}
	res.Responses = refs

	// Delivery is not cut short by the caller going away.
	res.Delivery = s.d.Notifier.Notify(context.WithoutCancel(ctx), ids, alertMessage(req), alertChannels)

	slog.Info("sos match dispatched",
		"request_id", req.ID,
		"matched", len(donors),
		"notified", res.Delivery.Summary.Notified,
		"skipped", res.Delivery.Summary.Skipped,
		"failed", res.Delivery.Summary.Failed,
	)
	return res, nil
}

func alertMessage(req *models.SOSRequest) notifier.Message {
	tok := req.SMSReplyToken
	where := req.City
	if req.Area != "" {
		where = req.Area + ", " + req.City
	}
	body := fmt.Sprintf("%d unit(s) of %s blood needed in %s.", req.UnitsNeeded, req.BloodGroupNeeded, where)
	if req.HospitalName != "" {
		body += " Hospital: " + req.HospitalName + "."
	}
	if req.Message != "" {
		body += " " + req.Message
	}
	text := fmt.Sprintf("VeinLine SOS: Need %s blood in %s. Reply: YES %s or NO %s. (Optional consent: YES SHARE %s)",
		req.BloodGroupNeeded, req.City, tok, tok, tok)
	return notifier.Message{
		Type:     models.NotificationSOSRequest,
		Title:    "VeinLine SOS Alert",
		Body:     body,
		SMSText:  text,
		Priority: string(req.Priority),
		Metadata: map[string]any{
			"request_id":  req.ID,
			"blood_group": string(req.BloodGroupNeeded),
			"city":        req.City,
		},
	}
}
