package sos

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/BearBump/VeinLine/internal/domainerr"
	"github.com/BearBump/VeinLine/internal/models"
	"github.com/BearBump/VeinLine/internal/services/notifier"
)

type fakeRepo struct {
	mu sync.Mutex

	nextID    uint64
	requests  map[uint64]models.SOSRequest
	responses map[uint64]models.SOSResponse
	byPair    map[[2]uint64]uint64
	trackers  map[uint64]models.DonationTracker
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		requests:  map[uint64]models.SOSRequest{},
		responses: map[uint64]models.SOSResponse{},
		byPair:    map[[2]uint64]uint64{},
		trackers:  map[uint64]models.DonationTracker{},
	}
}

func (f *fakeRepo) id() uint64 {
	f.nextID++
	return f.nextID
}

func (f *fakeRepo) CreateRequest(_ context.Context, r *models.SOSRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := r.EnsureSMSReplyToken(); err != nil {
		return err
	}
	r.ID = f.id()
	r.CreatedAt = time.Now().UTC()
	r.UpdatedAt = r.CreatedAt
	f.requests[r.ID] = *r
	return nil
}

func (f *fakeRepo) GetRequest(_ context.Context, id uint64) (*models.SOSRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok {
		return nil, domainerr.ErrNotFound
	}
	return &r, nil
}

func (f *fakeRepo) GetRequestByToken(_ context.Context, token string) (*models.SOSRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r.SMSReplyToken == token {
			return &r, nil
		}
	}
	return nil, domainerr.ErrNotFound
}

func (f *fakeRepo) SaveRequest(_ context.Context, r *models.SOSRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.requests[r.ID]
	if !ok {
		return domainerr.ErrNotFound
	}
	next := *r
	next.SMSReplyToken = cur.SMSReplyToken
	f.requests[r.ID] = next
	return nil
}

func (f *fakeRepo) UpdateRequestStatus(_ context.Context, id uint64, from, to models.SOSStatus, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok {
		return false, domainerr.ErrNotFound
	}
	if r.Status != from {
		return false, nil
	}
	r.Status = to
	r.UpdatedAt = at
	f.requests[id] = r
	return true, nil
}

func (f *fakeRepo) EnsurePendingResponses(_ context.Context, requestID uint64, donorIDs []uint64, channel models.ResponseChannel) ([]models.ResponseRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.ResponseRef, 0, len(donorIDs))
	for _, d := range donorIDs {
		key := [2]uint64{requestID, d}
		if id, ok := f.byPair[key]; ok {
			out = append(out, models.ResponseRef{DonorID: d, ResponseID: id})
			continue
		}
		id := f.id()
		f.byPair[key] = id
		f.responses[id] = models.SOSResponse{
			ID:        id,
			RequestID: requestID,
			DonorID:   d,
			Response:  models.ResponsePending,
			Channel:   channel,
			CreatedAt: time.Now().UTC(),
		}
		out = append(out, models.ResponseRef{DonorID: d, ResponseID: id, Created: true})
	}
	return out, nil
}

func (f *fakeRepo) GetResponse(_ context.Context, id uint64) (*models.SOSResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.responses[id]
	if !ok {
		return nil, domainerr.ErrNotFound
	}
	return &r, nil
}

func (f *fakeRepo) SaveResponseDecision(_ context.Context, r *models.SOSResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.responses[r.ID]
	if !ok {
		return domainerr.ErrNotFound
	}
	cur.Response = r.Response
	cur.Channel = r.Channel
	cur.DonorConsentedToShareContact = r.DonorConsentedToShareContact
	cur.RespondedAt = r.RespondedAt
	f.responses[r.ID] = cur
	return nil
}

func (f *fakeRepo) MarkContactRevealed(_ context.Context, id uint64, at time.Time) (*models.SOSResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.responses[id]
	if !ok {
		return nil, domainerr.ErrNotFound
	}
	if cur.PatientContactRevealedAt == nil {
		cur.PatientContactRevealedAt = &at
		f.responses[id] = cur
	}
	return &cur, nil
}

func (f *fakeRepo) ListResponses(_ context.Context, requestID uint64) ([]*models.SOSResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.SOSResponse
	for _, r := range f.responses {
		if r.RequestID == requestID {
			r := r
			out = append(out, &r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) GetOrCreateTracker(_ context.Context, responseID uint64, at time.Time) (*models.DonationTracker, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.trackers[responseID]; ok {
		return &t, false, nil
	}
	t := models.DonationTracker{ID: f.id(), ResponseID: responseID, CurrentStatus: models.DonationStatusAgreed, AgreedAt: at, UpdatedAt: at}
	f.trackers[responseID] = t
	return &t, true, nil
}

func (f *fakeRepo) response(id uint64) models.SOSResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.responses[id]
}

type fakeMatcher struct {
	donors []*models.DonorRecord
	err    error
	calls  int
}

func (m *fakeMatcher) MatchDonors(context.Context, *models.SOSRequest, int) ([]*models.DonorRecord, error) {
	m.calls++
	return m.donors, m.err
}

type notifyCall struct {
	recipients []uint64
	msg        notifier.Message
	channels   []models.NotificationChannel
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (n *fakeNotifier) Notify(_ context.Context, recipients []uint64, msg notifier.Message, channels []models.NotificationChannel) notifier.Report {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{recipients: recipients, msg: msg, channels: channels})
	return notifier.Report{Summary: notifier.Summary{Recipients: len(recipients), Notified: len(recipients)}}
}

// fakeContacts serves phones and emails to both the service and a real notifier.
type fakeContacts struct {
	phones map[uint64]string
	emails map[uint64]string
}

func (c *fakeContacts) GetPhone(_ context.Context, id uint64) (string, bool, error) {
	p, ok := c.phones[id]
	return p, ok, nil
}

func (c *fakeContacts) GetEmail(_ context.Context, id uint64) (string, bool, error) {
	e, ok := c.emails[id]
	return e, ok, nil
}

type fakeDonors map[uint64]*models.DonorRecord

func (d fakeDonors) GetDonor(_ context.Context, id uint64) (*models.DonorRecord, error) {
	r, ok := d[id]
	if !ok {
		return nil, domainerr.ErrNotFound
	}
	return r, nil
}

// fakeResolver maps sender phones straight to donor ids.
type fakeResolver map[string]uint64

func (r fakeResolver) ResolveDonor(_ context.Context, phone string) (uint64, error) {
	id, ok := r[phone]
	if !ok {
		return 0, domainerr.ErrUnknownPhone
	}
	return id, nil
}

type published struct {
	topic string
	key   string
	value []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(_ context.Context, topic string, key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{topic: topic, key: string(key), value: value})
	return nil
}

type fakeNotificationStore struct {
	mu   sync.Mutex
	rows []*models.Notification
}

func (s *fakeNotificationStore) CreateNotification(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, n)
	return nil
}
