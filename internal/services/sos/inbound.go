package sos

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/pkg/errors"

	"github.com/BearBump/VeinLine/internal/domainerr"
	"github.com/BearBump/VeinLine/internal/models"
	"github.com/BearBump/VeinLine/internal/services/inbound"
)

type InboundSMS struct {
	FromPhone string
	Message   string
}

type InboundOutcome struct {
	RequestID  uint64
	ResponseID uint64
	Response   models.ResponseDecision
}

const tokenCachePrefix = "sos:token:"

// HandleInboundSMS applies a donor's SMS reply. The caller is not authenticated; the donor
// is identified only by the sender number (see inbound.SenderResolver).
func (s *Service) HandleInboundSMS(ctx context.Context, in InboundSMS) (*InboundOutcome, error) {
	out, err := s.handleInbound(ctx, in)
	if s.d.Metrics != nil {
		s.d.Metrics.IncInboundSMS(inboundResult(err))
	}
	if err != nil {
		slog.Warn("inbound sms rejected", "from", maskPhone(in.FromPhone), "err", err)
		return nil, err
	}
	return out, nil
}

func (s *Service) handleInbound(ctx context.Context, in InboundSMS) (*InboundOutcome, error) {
	reply, err := inbound.Parse(in.Message)
	if err != nil {
		return nil, err
	}
	req, err := s.requestByToken(ctx, reply.Token)
	if err != nil {
		return nil, err
	}
	donorID, err := s.d.Senders.ResolveDonor(ctx, in.FromPhone)
	if err != nil {
		return nil, err
	}

	refs, err := s.d.Repo.EnsurePendingResponses(ctx, req.ID, []uint64{donorID}, models.ResponseChannelSMS)
	if err != nil {
		return nil, err
	}
	if len(refs) != 1 {
		return nil, errors.Errorf("ensure response for donor %d: got %d rows", donorID, len(refs))
	}
	resp, err := s.d.Repo.GetResponse(ctx, refs[0].ResponseID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	resp.Response = reply.Decision
	resp.Channel = models.ResponseChannelSMS
	resp.RespondedAt = &now
	// NO and plain YES leave an earlier consent as it was.
	if reply.GrantsConsent() {
		resp.DonorConsentedToShareContact = true
	}
	if err := s.d.Repo.SaveResponseDecision(ctx, resp); err != nil {
		return nil, err
	}
	if _, err := s.afterDecision(ctx, resp); err != nil {
		return nil, err
	}

	return &InboundOutcome{RequestID: req.ID, ResponseID: resp.ID, Response: resp.Response}, nil
}

// requestByToken resolves a reply token through the cache. Tokens never rotate, so a cached
// mapping stays valid for the life of the request.
func (s *Service) requestByToken(ctx context.Context, token string) (*models.SOSRequest, error) {
	key := tokenCachePrefix + token
	if s.d.TokenCache != nil {
		b, ok, err := s.d.TokenCache.Get(ctx, key)
		if err != nil {
			slog.Warn("token cache get", "err", err)
		}
		if ok {
			if id, perr := strconv.ParseUint(string(b), 10, 64); perr == nil {
				req, err := s.d.Repo.GetRequest(ctx, id)
				if err == nil {
					return req, nil
				}
				if !errors.Is(err, domainerr.ErrNotFound) {
					return nil, err
				}
			}
		}
	}

	req, err := s.d.Repo.GetRequestByToken(ctx, token)
	if errors.Is(err, domainerr.ErrNotFound) {
		return nil, domainerr.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	if s.d.TokenCache != nil {
		val := []byte(strconv.FormatUint(req.ID, 10))
		if err := s.d.TokenCache.Set(ctx, key, val, s.cfg.TokenCacheTTL); err != nil {
			slog.Warn("token cache set", "err", err)
		}
	}
	return req, nil
}

func inboundResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domainerr.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, domainerr.ErrInvalidFormat):
		return "invalid_format"
	case errors.Is(err, domainerr.ErrUnknownPhone):
		return "unknown_phone"
	case errors.Is(err, domainerr.ErrNotADonor):
		return "not_a_donor"
	default:
		return "error"
	}
}

func maskPhone(p string) string {
	if len(p) <= 4 {
		return "****"
	}
	return "****" + p[len(p)-4:]
}
