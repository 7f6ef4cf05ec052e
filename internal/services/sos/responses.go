package sos

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/BearBump/VeinLine/internal/broker/messages"
	"github.com/BearBump/VeinLine/internal/domainerr"
	"github.com/BearBump/VeinLine/internal/models"
	"github.com/BearBump/VeinLine/internal/policy"
)

// ResponseView is a response enriched with donor details for the requester side.
// DonorPhone is set only when the donor consented to share contact for this request.
type ResponseView struct {
	Response        *models.SOSResponse
	DonorName       string
	DonorBloodGroup models.BloodGroup
	DonorCity       string
	DonorArea       string
	DonorPhone      string
	TrackerID       uint64
}

func (s *Service) RecordResponse(ctx context.Context, actor models.Actor, responseID uint64, decision string, consent bool) (*ResponseView, error) {
	resp, err := s.d.Repo.GetResponse(ctx, responseID)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(policy.OpRecordResponse, actor, policy.Owner(resp.DonorID)); err != nil {
		return nil, err
	}

	d := models.ResponseDecision(decision)
	if d != models.ResponseYes && d != models.ResponseNo {
		return nil, domainerr.Invalid("response", "must be yes or no")
	}

	now := s.now()
	resp.Response = d
	resp.DonorConsentedToShareContact = consent
	resp.RespondedAt = &now
	resp.Channel = models.ResponseChannelWeb
	if err := s.d.Repo.SaveResponseDecision(ctx, resp); err != nil {
		return nil, err
	}

	trackerID, err := s.afterDecision(ctx, resp)
	if err != nil {
		return nil, err
	}
	view, err := s.view(ctx, resp)
	if err != nil {
		return nil, err
	}
	view.TrackerID = trackerID
	return view, nil
}

// afterDecision opens the donation tracker on yes and publishes the response event.
func (s *Service) afterDecision(ctx context.Context, resp *models.SOSResponse) (uint64, error) {
	var trackerID uint64
	if resp.Response == models.ResponseYes {
		tr, created, err := s.d.Repo.GetOrCreateTracker(ctx, resp.ID, s.now())
		if err != nil {
			return 0, err
		}
		trackerID = tr.ID
		if created {
			slog.Info("donation tracker opened", "tracker_id", tr.ID, "response_id", resp.ID, "donor_id", resp.DonorID)
		}
	}

	slog.Info("sos response recorded",
		"request_id", resp.RequestID,
		"response_id", resp.ID,
		"donor_id", resp.DonorID,
		"response", resp.Response,
		"channel", resp.Channel,
		"consent", resp.DonorConsentedToShareContact,
	)
	req, err := s.d.Repo.GetRequest(ctx, resp.RequestID)
	if err != nil {
		slog.Warn("load request for response event", "request_id", resp.RequestID, "err", err)
		return trackerID, nil
	}
	s.publishResponse(ctx, messages.EventResponseRecorded, req, resp)
	return trackerID, nil
}

// RevealContact is write-once: a repeated call keeps the first reveal time.
func (s *Service) RevealContact(ctx context.Context, actor models.Actor, responseID uint64) (*ResponseView, error) {
	resp, err := s.d.Repo.GetResponse(ctx, responseID)
	if err != nil {
		return nil, err
	}
	req, err := s.d.Repo.GetRequest(ctx, resp.RequestID)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(policy.OpRevealContact, actor, policy.Owner(req.RequesterID)); err != nil {
		return nil, err
	}
	if !resp.DonorConsentedToShareContact {
		return nil, domainerr.ErrConsentRequired
	}

	first := resp.PatientContactRevealedAt == nil
	resp, err = s.d.Repo.MarkContactRevealed(ctx, responseID, s.now())
	if err != nil {
		return nil, err
	}
	if first {
		s.publishResponse(ctx, messages.EventContactRevealed, req, resp)
	}
	return s.view(ctx, resp)
}

func (s *Service) ListResponses(ctx context.Context, actor models.Actor, requestID uint64) ([]*ResponseView, error) {
	req, err := s.d.Repo.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(policy.OpListResponses, actor, policy.Owner(req.RequesterID)); err != nil {
		return nil, err
	}

	rows, err := s.d.Repo.ListResponses(ctx, requestID)
	if err != nil {
		return nil, err
	}
	out := make([]*ResponseView, 0, len(rows))
	for _, r := range rows {
		v, err := s.view(ctx, r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Service) view(ctx context.Context, resp *models.SOSResponse) (*ResponseView, error) {
	v := &ResponseView{Response: resp}

	donor, err := s.d.Donors.GetDonor(ctx, resp.DonorID)
	switch {
	case err == nil:
		v.DonorName = donor.FullName
		v.DonorBloodGroup = donor.BloodGroup
		v.DonorCity = donor.City
		v.DonorArea = donor.Area
	case errors.Is(err, domainerr.ErrNotFound):
		// donor profile removed; the response row stays readable
	default:
		return nil, err
	}

	if resp.DonorConsentedToShareContact {
		phone, ok, err := s.d.Phones.GetPhone(ctx, resp.DonorID)
		if err != nil {
			return nil, err
		}
		if ok {
			v.DonorPhone = phone
		}
	}
	return v, nil
}

