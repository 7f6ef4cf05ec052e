package alerts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/BearBump/VeinLine/internal/broker/messages"
	"github.com/BearBump/VeinLine/internal/cache/rediscache"
	"github.com/BearBump/VeinLine/internal/domainerr"
	"github.com/BearBump/VeinLine/internal/models"
	"github.com/BearBump/VeinLine/internal/services/notifier"
)

type sentAlert struct {
	recipients []uint64
	msg        notifier.Message
	channels   []models.NotificationChannel
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentAlert
}

func (n *fakeNotifier) Notify(_ context.Context, recipients []uint64, msg notifier.Message, channels []models.NotificationChannel) notifier.Report {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentAlert{recipients: recipients, msg: msg, channels: channels})
	return notifier.Report{Summary: notifier.Summary{Recipients: 1, Notified: 1}}
}

type donorNames map[uint64]string

func (d donorNames) GetDonor(_ context.Context, id uint64) (*models.DonorRecord, error) {
	n, ok := d[id]
	if !ok {
		return nil, domainerr.ErrNotFound
	}
	return &models.DonorRecord{UserID: id, FullName: n}, nil
}

type failingDedup struct{}

func (failingDedup) Claim(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("redis down")
}

type recorder struct {
	mu   sync.Mutex
	seen map[string]int
}

func (r *recorder) IncWorkerEvent(typ, result string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen[typ+"/"+result]++
}

func encode(t *testing.T, ev messages.SOSEvent) []byte {
	t.Helper()
	b, err := ev.Encode()
	require.NoError(t, err)
	return b
}

func responseEvent(resp models.ResponseDecision) messages.SOSEvent {
	ev := messages.NewSOSEvent(messages.EventResponseRecorded, 5, 1, time.Now())
	ev.ResponseID = 50
	ev.DonorID = 10
	ev.Response = string(resp)
	return ev
}

func TestHandle_ResponseRecordedNotifiesRequesterOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	n := &fakeNotifier{}
	rec := &recorder{seen: map[string]int{}}
	w := New(nil, rediscache.New(mr.Addr()), n, donorNames{10: "Asha"}, rec)
	ctx := context.Background()

	ev := responseEvent(models.ResponseYes)
	require.NoError(t, w.Handle(ctx, []byte("5"), encode(t, ev)))
	require.NoError(t, w.Handle(ctx, []byte("5"), encode(t, ev)))

	require.Len(t, n.sent, 1)
	got := n.sent[0]
	require.Equal(t, []uint64{1}, got.recipients)
	require.Equal(t, []models.NotificationChannel{models.ChannelInApp, models.ChannelEmail}, got.channels)
	require.Equal(t, models.NotificationSOSResponse, got.msg.Type)
	require.Equal(t, "Donor Response: Asha", got.msg.Title)
	require.Equal(t, "Asha has agreed to help for your SOS request.", got.msg.Body)

	st := w.Stats()
	require.Equal(t, int64(2), st.TotalReceived)
	require.Equal(t, int64(1), st.TotalNotified)
	require.Equal(t, int64(1), st.TotalDuplicates)
	require.NotNil(t, st.LastEventAt)
	require.Equal(t, 1, rec.seen["sos.response_recorded/notified"])
	require.Equal(t, 1, rec.seen["sos.response_recorded/duplicate"])
}

func TestHandle_DeclineWithUnknownDonor(t *testing.T) {
	n := &fakeNotifier{}
	w := New(nil, nil, n, donorNames{}, nil)

	require.NoError(t, w.Handle(context.Background(), nil, encode(t, responseEvent(models.ResponseNo))))
	require.Len(t, n.sent, 1)
	require.Equal(t, "A donor has declined for your SOS request.", n.sent[0].msg.Body)
}

func TestHandle_DonationProgress(t *testing.T) {
	n := &fakeNotifier{}
	w := New(nil, nil, n, nil, nil)

	ev := messages.NewSOSEvent(messages.EventDonationStatusChange, 5, 1, time.Now())
	ev.TrackerID = 8
	ev.DonationStatus = "arrived"
	require.NoError(t, w.Handle(context.Background(), nil, encode(t, ev)))

	require.Len(t, n.sent, 1)
	require.Equal(t, models.NotificationDonorProgress, n.sent[0].msg.Type)
	require.Equal(t, "Donor Status Update: Arrived", n.sent[0].msg.Title)
	require.Equal(t, uint64(8), n.sent[0].msg.Metadata["tracker_id"])
}

func TestHandle_IgnoredAndBadEvents(t *testing.T) {
	n := &fakeNotifier{}
	w := New(nil, nil, n, nil, nil)
	ctx := context.Background()

	created := messages.NewSOSEvent(messages.EventRequestCreated, 5, 1, time.Now())
	require.NoError(t, w.Handle(ctx, nil, encode(t, created)))
	require.NoError(t, w.Handle(ctx, nil, []byte("{not json")))
	require.NoError(t, w.Handle(ctx, nil, []byte(`{"type":"sos.response_recorded"}`)))

	require.Empty(t, n.sent)
	st := w.Stats()
	require.Equal(t, int64(1), st.TotalIgnored)
	require.Equal(t, int64(2), st.TotalErrors)
	require.Contains(t, st.LastError, "missing event_id")
}

func TestHandle_DedupOutageStillNotifies(t *testing.T) {
	n := &fakeNotifier{}
	w := New(nil, failingDedup{}, n, nil, nil)

	require.NoError(t, w.Handle(context.Background(), nil, encode(t, responseEvent(models.ResponseYes))))
	require.Len(t, n.sent, 1)
	require.Equal(t, int64(1), w.Stats().TotalErrors)
}

type scriptedConsumer struct {
	values [][]byte
}

func (c *scriptedConsumer) Consume(ctx context.Context, handler func(ctx context.Context, key, value []byte) error) error {
	for _, v := range c.values {
		if err := handler(ctx, nil, v); err != nil {
			return err
		}
	}
	return context.Canceled
}

func TestRun_DrainsConsumer(t *testing.T) {
	n := &fakeNotifier{}
	c := &scriptedConsumer{values: [][]byte{
		encode(t, responseEvent(models.ResponseYes)),
		encode(t, responseEvent(models.ResponseNo)),
	}}
	w := New(c, nil, n, nil, nil)

	err := w.Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, n.sent, 2)
}
