package sos

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/BearBump/VeinLine/internal/broker/messages"
	"github.com/BearBump/VeinLine/internal/cache"
	"github.com/BearBump/VeinLine/internal/domainerr"
	"github.com/BearBump/VeinLine/internal/models"
	"github.com/BearBump/VeinLine/internal/policy"
	"github.com/BearBump/VeinLine/internal/services/inbound"
	"github.com/BearBump/VeinLine/internal/services/notifier"
)

type Repository interface {
	// CreateRequest assigns ID, timestamps and the reply token (retrying on token collision).
	CreateRequest(ctx context.Context, r *models.SOSRequest) error
	GetRequest(ctx context.Context, id uint64) (*models.SOSRequest, error)
	GetRequestByToken(ctx context.Context, token string) (*models.SOSRequest, error)
	// SaveRequest updates the editable fields. It never writes the reply token.
	SaveRequest(ctx context.Context, r *models.SOSRequest) error
	// UpdateRequestStatus moves the request from -> to; false when it was not in from.
	UpdateRequestStatus(ctx context.Context, id uint64, from, to models.SOSStatus, at time.Time) (bool, error)

	// EnsurePendingResponses get-or-creates one pending response per donor in a single transaction.
	EnsurePendingResponses(ctx context.Context, requestID uint64, donorIDs []uint64, channel models.ResponseChannel) ([]models.ResponseRef, error)
	GetResponse(ctx context.Context, id uint64) (*models.SOSResponse, error)
	SaveResponseDecision(ctx context.Context, r *models.SOSResponse) error
	// MarkContactRevealed stamps the reveal time once and returns the stored row; it fails with
	// domainerr.ErrConsentRequired when the stored response does not carry consent.
	MarkContactRevealed(ctx context.Context, responseID uint64, at time.Time) (*models.SOSResponse, error)
	ListResponses(ctx context.Context, requestID uint64) ([]*models.SOSResponse, error)

	GetOrCreateTracker(ctx context.Context, responseID uint64, at time.Time) (*models.DonationTracker, bool, error)
}

type Matcher interface {
	MatchDonors(ctx context.Context, req *models.SOSRequest, limit int) ([]*models.DonorRecord, error)
}

type Notifier interface {
	Notify(ctx context.Context, recipients []uint64, msg notifier.Message, channels []models.NotificationChannel) notifier.Report
}

type DonorReader interface {
	GetDonor(ctx context.Context, userID uint64) (*models.DonorRecord, error)
}

type PhoneReader interface {
	GetPhone(ctx context.Context, userID uint64) (string, bool, error)
}

type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type Recorder interface {
	IncSOSEvent(typ string)
	ObserveMatch(d time.Duration, donors int)
	IncInboundSMS(result string)
}

type Deps struct {
	Repo     Repository
	Matcher  Matcher
	Notifier Notifier
	Donors   DonorReader
	Phones   PhoneReader
	Senders  inbound.SenderResolver

	// Optional.
	TokenCache cache.BytesCache
	Publisher  Publisher
	Metrics    Recorder
}

type Config struct {
	MatchLimit    int
	TokenCacheTTL time.Duration
	EventsTopic   string
}

type Service struct {
	d   Deps
	cfg Config
	now func() time.Time
}

func New(d Deps, cfg Config) *Service {
	if cfg.TokenCacheTTL <= 0 {
		cfg.TokenCacheTTL = 24 * time.Hour
	}
	if cfg.EventsTopic == "" {
		cfg.EventsTopic = "sos.events"
	}
	return &Service{d: d, cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
}

type CreateRequestInput = models.SOSRequestCreateInput

const (
	maxCityLen     = 64
	maxAreaLen     = 64
	maxHospitalLen = 120
)

func (s *Service) CreateRequest(ctx context.Context, actor models.Actor, in CreateRequestInput) (*models.SOSRequest, error) {
	if err := policy.Check(policy.OpCreateRequest, actor, policy.Subject{}); err != nil {
		return nil, err
	}

	v := domainerr.NewValidation()
	group, ok := models.ParseBloodGroup(in.BloodGroupNeeded)
	if !ok {
		v.Field("blood_group_needed", "must be one of O+, O-, A+, A-, B+, B-, AB+, AB-")
	}
	if in.UnitsNeeded < 1 {
		v.Field("units_needed", "must be at least 1")
	}
	city := strings.TrimSpace(in.City)
	switch {
	case city == "":
		v.Field("city", "is required")
	case len(city) > maxCityLen:
		v.Field("city", "is too long")
	}
	if len(strings.TrimSpace(in.Area)) > maxAreaLen {
		v.Field("area", "is too long")
	}
	if len(strings.TrimSpace(in.HospitalName)) > maxHospitalLen {
		v.Field("hospital_name", "is too long")
	}
	priority := models.SOSPriorityNormal
	if in.Priority != "" {
		priority = models.SOSPriority(strings.ToLower(strings.TrimSpace(in.Priority)))
		if !priority.Valid() {
			v.Field("priority", "must be one of normal, urgent, critical")
		}
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	req := &models.SOSRequest{
		RequesterID:      actor.ID,
		BloodGroupNeeded: group,
		UnitsNeeded:      in.UnitsNeeded,
		City:             city,
		Area:             strings.TrimSpace(in.Area),
		HospitalName:     strings.TrimSpace(in.HospitalName),
		Message:          strings.TrimSpace(in.Message),
		Status:           models.SOSStatusOpen,
		Priority:         priority,
	}
	if err := req.EnsureSMSReplyToken(); err != nil {
		return nil, errors.Wrap(err, "generate sms reply token")
	}
	if err := s.d.Repo.CreateRequest(ctx, req); err != nil {
		return nil, err
	}

	slog.Info("sos request created", "request_id", req.ID, "blood_group", req.BloodGroupNeeded, "city", req.City, "priority", req.Priority)
	s.publishRequest(ctx, messages.EventRequestCreated, req)
	return req, nil
}

func (s *Service) GetRequest(ctx context.Context, actor models.Actor, id uint64) (*models.SOSRequest, error) {
	req, err := s.d.Repo.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	subj := policy.Subject{Owners: []uint64{req.RequesterID}, Open: req.IsOpen()}
	if err := policy.Check(policy.OpGetRequest, actor, subj); err != nil {
		return nil, err
	}
	return req, nil
}

// UpdateRequestInput holds the editable fields; nil leaves a field unchanged.
type UpdateRequestInput struct {
	UnitsNeeded  *int
	Area         *string
	HospitalName *string
	Message      *string
	Priority     *string
}

func (s *Service) UpdateRequest(ctx context.Context, actor models.Actor, id uint64, in UpdateRequestInput) (*models.SOSRequest, error) {
	req, err := s.d.Repo.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(policy.OpUpdateRequest, actor, policy.Owner(req.RequesterID)); err != nil {
		return nil, err
	}

	v := domainerr.NewValidation()
	if !req.IsOpen() {
		v.Field("status", "request is not open")
	}
	if in.UnitsNeeded != nil {
		if *in.UnitsNeeded < 1 {
			v.Field("units_needed", "must be at least 1")
		}
		req.UnitsNeeded = *in.UnitsNeeded
	}
	if in.Area != nil {
		req.Area = strings.TrimSpace(*in.Area)
		if len(req.Area) > maxAreaLen {
			v.Field("area", "is too long")
		}
	}
	if in.HospitalName != nil {
		req.HospitalName = strings.TrimSpace(*in.HospitalName)
		if len(req.HospitalName) > maxHospitalLen {
			v.Field("hospital_name", "is too long")
		}
	}
	if in.Message != nil {
		req.Message = strings.TrimSpace(*in.Message)
	}
	if in.Priority != nil {
		req.Priority = models.SOSPriority(strings.ToLower(strings.TrimSpace(*in.Priority)))
		if !req.Priority.Valid() {
			v.Field("priority", "must be one of normal, urgent, critical")
		}
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	req.UpdatedAt = s.now()
	if err := s.d.Repo.SaveRequest(ctx, req); err != nil {
		return nil, err
	}
	return s.d.Repo.GetRequest(ctx, id)
}

func (s *Service) CancelRequest(ctx context.Context, actor models.Actor, id uint64) (*models.SOSRequest, error) {
	return s.closeRequest(ctx, actor, id, policy.OpCancelRequest, models.SOSStatusCancelled)
}

func (s *Service) FulfillRequest(ctx context.Context, actor models.Actor, id uint64) (*models.SOSRequest, error) {
	return s.closeRequest(ctx, actor, id, policy.OpFulfillRequest, models.SOSStatusFulfilled)
}

func (s *Service) closeRequest(ctx context.Context, actor models.Actor, id uint64, op policy.Operation, to models.SOSStatus) (*models.SOSRequest, error) {
	req, err := s.d.Repo.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(op, actor, policy.Owner(req.RequesterID)); err != nil {
		return nil, err
	}
	if !req.IsOpen() {
		return nil, domainerr.Invalid("status", "request is not open")
	}

	ok, err := s.d.Repo.UpdateRequestStatus(ctx, id, models.SOSStatusOpen, to, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		// closed concurrently
		return nil, domainerr.Invalid("status", "request is not open")
	}
	req, err = s.d.Repo.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	slog.Info("sos request closed", "request_id", id, "status", to, "actor_id", actor.ID)
	s.publishRequest(ctx, messages.EventRequestStatusChanged, req)
	return req, nil
}
