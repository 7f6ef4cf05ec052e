package pgsos

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/BearBump/VeinLine/internal/domainerr"
	"github.com/BearBump/VeinLine/internal/models"
	"github.com/BearBump/VeinLine/internal/services/compat"
)

func startPostgres(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("needs docker")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "admin",
			"POSTGRES_PASSWORD": "admin",
			"POSTGRES_DB":       "veinline_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := "postgres://admin:admin@" + host + ":" + port.Port() + "/veinline_test?sslmode=disable"
	st, err := New(dsn)
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return st
}

func TestPGSOS_RepoFlow(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()
	require.NoError(t, st.Ping(ctx))

	// directory
	for _, r := range compat.DefaultRules() {
		require.NoError(t, st.SeedCompatibility(ctx, r.Donor, r.Recipient, r.Compatible))
	}
	groups, err := st.ListCompatibleDonorGroups(ctx, models.BloodGroupOPos)
	require.NoError(t, err)
	require.ElementsMatch(t, []models.BloodGroup{models.BloodGroupONeg, models.BloodGroupOPos}, groups)

	require.NoError(t, st.UpsertUser(ctx, 1, "patient", "p@example.com", "+919800000001"))
	require.NoError(t, st.UpsertUser(ctx, 10, "asha", "", "+91 98000 00010"))
	require.NoError(t, st.UpsertUser(ctx, 11, "ravi", "ravi@example.com", ""))
	t0 := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, st.UpsertDonor(ctx, &models.DonorRecord{UserID: 10, FullName: "Asha", BloodGroup: models.BloodGroupOPos, City: "Mumbai", IsAvailable: true, UpdatedAt: t0}))
	require.NoError(t, st.UpsertDonor(ctx, &models.DonorRecord{UserID: 11, FullName: "Ravi", BloodGroup: models.BloodGroupONeg, City: " mumbai ", IsAvailable: false, UpdatedAt: t0}))

	donors, err := st.ListAvailableDonors(ctx, groups, models.CityFilter{City: "MUMBAI"})
	require.NoError(t, err)
	require.Len(t, donors, 1)
	require.Equal(t, uint64(10), donors[0].UserID)
	require.Nil(t, donors[0].Eligible)

	phone, ok, err := st.GetPhone(ctx, 10)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "+91 98000 00010", phone)
	_, ok, err = st.GetPhone(ctx, 11)
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = st.GetEmail(ctx, 404)
	require.NoError(t, err)
	require.False(t, ok)

	u, err := st.FindUserByPhoneSuffix(ctx, "9800000010")
	require.NoError(t, err)
	require.Equal(t, uint64(10), u.ID)
	require.True(t, u.IsDonor)
	u, err = st.FindUserByPhoneSuffix(ctx, "9800000001")
	require.NoError(t, err)
	require.False(t, u.IsDonor)
	u, err = st.FindUserByPhoneSuffix(ctx, "1111111111")
	require.NoError(t, err)
	require.Nil(t, u)

	// requests
	req := &models.SOSRequest{
		RequesterID: 1, BloodGroupNeeded: models.BloodGroupOPos, UnitsNeeded: 2, City: "Mumbai",
		Status: models.SOSStatusOpen, Priority: models.SOSPriorityUrgent,
	}
	require.NoError(t, st.CreateRequest(ctx, req))
	require.NotZero(t, req.ID)
	tok := req.SMSReplyToken
	require.Len(t, tok, 16)

	byTok, err := st.GetRequestByToken(ctx, tok)
	require.NoError(t, err)
	require.Equal(t, req.ID, byTok.ID)

	req.UnitsNeeded = 3
	req.SMSReplyToken = "rotated-token"
	req.UpdatedAt = time.Now().UTC()
	require.NoError(t, st.SaveRequest(ctx, req))
	got, err := st.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	require.Equal(t, 3, got.UnitsNeeded)
	require.Equal(t, tok, got.SMSReplyToken)

	_, err = st.GetRequest(ctx, 999999)
	require.ErrorIs(t, err, domainerr.ErrNotFound)
	_, err = st.GetRequestByToken(ctx, "nope")
	require.ErrorIs(t, err, domainerr.ErrNotFound)

	// responses
	refs, err := st.EnsurePendingResponses(ctx, req.ID, []uint64{10, 11}, models.ResponseChannelSMS)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	require.True(t, refs[0].Created)
	again, err := st.EnsurePendingResponses(ctx, req.ID, []uint64{11, 10}, models.ResponseChannelSMS)
	require.NoError(t, err)
	require.False(t, again[0].Created)
	require.Equal(t, refs[1].ResponseID, again[0].ResponseID)

	resp, err := st.GetResponse(ctx, refs[0].ResponseID)
	require.NoError(t, err)
	require.Equal(t, models.ResponsePending, resp.Response)
	now := time.Now().UTC()
	resp.Response = models.ResponseYes
	resp.DonorConsentedToShareContact = true
	resp.RespondedAt = &now
	resp.Channel = models.ResponseChannelWeb
	require.NoError(t, st.SaveResponseDecision(ctx, resp))

	first, err := st.MarkContactRevealed(ctx, resp.ID, now)
	require.NoError(t, err)
	second, err := st.MarkContactRevealed(ctx, resp.ID, now.Add(time.Hour))
	require.NoError(t, err)
	require.WithinDuration(t, *first.PatientContactRevealedAt, *second.PatientContactRevealedAt, 0)
	_, err = st.MarkContactRevealed(ctx, 999999, now)
	require.ErrorIs(t, err, domainerr.ErrNotFound)

	// consent withdrawn after a reveal check still blocks the write
	other, err := st.GetResponse(ctx, refs[1].ResponseID)
	require.NoError(t, err)
	other.Response = models.ResponseYes
	other.DonorConsentedToShareContact = false
	other.RespondedAt = &now
	require.NoError(t, st.SaveResponseDecision(ctx, other))
	_, err = st.MarkContactRevealed(ctx, other.ID, now)
	require.ErrorIs(t, err, domainerr.ErrConsentRequired)
	other, err = st.GetResponse(ctx, other.ID)
	require.NoError(t, err)
	require.Nil(t, other.PatientContactRevealedAt)

	list, err := st.ListResponses(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, models.ResponseChannelWeb, list[0].Channel)

	// trackers
	tr, created, err := st.GetOrCreateTracker(ctx, resp.ID, now)
	require.NoError(t, err)
	require.True(t, created)
	tr2, created, err := st.GetOrCreateTracker(ctx, resp.ID, now.Add(time.Minute))
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, tr.ID, tr2.ID)

	tr.Advance(models.DonationStatusCompleted, now)
	lat, lon := 19.07, 72.87
	tr.Latitude, tr.Longitude = &lat, &lon
	tr.UpdatedAt = now
	require.NoError(t, st.SaveTracker(ctx, tr))
	tr3, err := st.GetTracker(ctx, tr.ID)
	require.NoError(t, err)
	require.Equal(t, models.DonationStatusCompleted, tr3.CurrentStatus)
	require.NotNil(t, tr3.CompletedAt)
	require.InDelta(t, lat, *tr3.Latitude, 1e-9)

	require.Error(t, st.SaveTracker(ctx, &models.DonationTracker{ID: 999999, UpdatedAt: now}))

	require.NoError(t, st.MarkDonated(ctx, 10, now))
	d, err := st.GetDonor(ctx, 10)
	require.NoError(t, err)
	require.NotNil(t, d.LastDonatedAt)
	require.ErrorIs(t, st.MarkDonated(ctx, 404, now), domainerr.ErrNotFound)

	// status
	ok, err = st.UpdateRequestStatus(ctx, req.ID, models.SOSStatusOpen, models.SOSStatusFulfilled, now)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = st.UpdateRequestStatus(ctx, req.ID, models.SOSStatusOpen, models.SOSStatusCancelled, now)
	require.NoError(t, err)
	require.False(t, ok)

	// notifications
	n := &models.Notification{
		RecipientID: 1, Type: models.NotificationSOSResponse, Title: "t", Body: "b",
		Metadata: map[string]any{"request_id": req.ID}, Channels: []models.NotificationChannel{models.ChannelInApp},
		Priority: "high",
	}
	require.NoError(t, st.CreateNotification(ctx, n))
	require.NotZero(t, n.ID)
	feed, err := st.ListNotifications(ctx, models.NotificationQuery{RecipientID: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, feed, 1)
	require.Equal(t, []models.NotificationChannel{models.ChannelInApp}, feed[0].Channels)
	require.EqualValues(t, req.ID, feed[0].Metadata["request_id"])
	require.Nil(t, feed[0].ReadAt)
}

func TestPGSOS_NotificationReadState(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	ids := make([]uint64, 0, 3)
	for i := 0; i < 3; i++ {
		n := &models.Notification{RecipientID: 1, Type: models.NotificationSystem, Title: "t", Body: "b", Priority: "normal"}
		require.NoError(t, st.CreateNotification(ctx, n))
		ids = append(ids, n.ID)
	}
	other := &models.Notification{RecipientID: 2, Type: models.NotificationSystem, Title: "t", Body: "b", Priority: "normal"}
	require.NoError(t, st.CreateNotification(ctx, other))

	unread, err := st.CountUnreadNotifications(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 3, unread)

	t0 := time.Now().UTC().Truncate(time.Microsecond)
	n, err := st.MarkNotificationRead(ctx, 1, ids[0], t0)
	require.NoError(t, err)
	require.True(t, n.IsRead)
	n, err = st.MarkNotificationRead(ctx, 1, ids[0], t0.Add(time.Hour))
	require.NoError(t, err)
	require.WithinDuration(t, t0, *n.ReadAt, 0)

	// not the recipient
	_, err = st.MarkNotificationRead(ctx, 1, other.ID, t0)
	require.ErrorIs(t, err, domainerr.ErrNotFound)

	read, unreadOnly := true, false
	got, err := st.ListNotifications(ctx, models.NotificationQuery{RecipientID: 1, Read: &read})
	require.NoError(t, err)
	require.Len(t, got, 1)
	got, err = st.ListNotifications(ctx, models.NotificationQuery{RecipientID: 1, Read: &unreadOnly})
	require.NoError(t, err)
	require.Len(t, got, 2)

	marked, err := st.MarkAllNotificationsRead(ctx, 1, t0)
	require.NoError(t, err)
	require.Equal(t, 2, marked)
	unread, err = st.CountUnreadNotifications(ctx, 1)
	require.NoError(t, err)
	require.Zero(t, unread)
	unread, err = st.CountUnreadNotifications(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, 1, unread)
}

func TestPGSOS_Messages(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	req := &models.SOSRequest{RequesterID: 1, BloodGroupNeeded: models.BloodGroupANeg, UnitsNeeded: 1, City: "Pune", Status: models.SOSStatusOpen, Priority: models.SOSPriorityNormal}
	require.NoError(t, st.CreateRequest(ctx, req))
	req2 := &models.SOSRequest{RequesterID: 1, BloodGroupNeeded: models.BloodGroupANeg, UnitsNeeded: 1, City: "Pune", Status: models.SOSStatusOpen, Priority: models.SOSPriorityNormal}
	require.NoError(t, st.CreateRequest(ctx, req2))

	t0 := time.Now().UTC().Truncate(time.Microsecond)
	msgs := []*models.Message{
		{SOSRequestID: req.ID, SenderID: 10, RecipientID: 1, Content: "on my way", Template: models.MessageTemplateOnMyWay, CreatedAt: t0},
		{SOSRequestID: req.ID, SenderID: 1, RecipientID: 10, Content: "gate 2", CreatedAt: t0.Add(time.Second)},
		{SOSRequestID: req.ID, SenderID: 11, RecipientID: 1, Content: "coming too", CreatedAt: t0.Add(2 * time.Second)},
		{SOSRequestID: req2.ID, SenderID: 10, RecipientID: 1, Content: "thanks", Template: models.MessageTemplateThankYou, CreatedAt: t0.Add(3 * time.Second)},
	}
	for _, m := range msgs {
		require.NoError(t, st.CreateMessage(ctx, m))
		require.NotZero(t, m.ID)
	}

	conv, err := st.Conversation(ctx, models.ConversationQuery{UserID: 1, OtherUserID: 10, SOSRequestID: req.ID})
	require.NoError(t, err)
	require.Len(t, conv, 2)
	require.Equal(t, msgs[0].ID, conv[0].ID)
	require.Equal(t, models.MessageTemplateOnMyWay, conv[0].Template)

	conv, err = st.Conversation(ctx, models.ConversationQuery{UserID: 10, OtherUserID: 1})
	require.NoError(t, err)
	require.Len(t, conv, 3)

	mine, err := st.ListMessages(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.Equal(t, msgs[3].ID, mine[0].ID)

	read, err := st.MarkMessageRead(ctx, msgs[0].ID, t0.Add(time.Minute))
	require.NoError(t, err)
	require.True(t, read.IsRead)
	read, err = st.MarkMessageRead(ctx, msgs[0].ID, t0.Add(time.Hour))
	require.NoError(t, err)
	require.WithinDuration(t, t0.Add(time.Minute), *read.ReadAt, 0)

	got, err := st.GetMessage(ctx, msgs[0].ID)
	require.NoError(t, err)
	require.True(t, got.IsRead)
	_, err = st.GetMessage(ctx, 999999)
	require.ErrorIs(t, err, domainerr.ErrNotFound)
	_, err = st.MarkMessageRead(ctx, 999999, t0)
	require.ErrorIs(t, err, domainerr.ErrNotFound)
}

func TestPGSOS_EmergencyContacts(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	linked := uint64(7)
	c := &models.EmergencyContact{UserID: 1, ContactUserID: &linked, Relationship: "Caregiver", CanCreateSOS: true, IsActive: true}
	require.NoError(t, st.CreateEmergencyContact(ctx, c))
	require.NotZero(t, c.ID)
	ext := &models.EmergencyContact{UserID: 1, ContactName: "Meera", ContactPhone: "+919800000020", Relationship: "Sister", IsActive: true}
	require.NoError(t, st.CreateEmergencyContact(ctx, ext))

	dup := &models.EmergencyContact{UserID: 1, ContactUserID: &linked, Relationship: "Friend"}
	err := st.CreateEmergencyContact(ctx, dup)
	require.ErrorIs(t, err, domainerr.ErrValidation)

	list, err := st.ListEmergencyContacts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, linked, *list[0].ContactUserID)
	require.Nil(t, list[1].ContactUserID)

	ext.IsActive = false
	ext.CanViewMedicalInfo = true
	require.NoError(t, st.SaveEmergencyContact(ctx, ext))
	got, err := st.GetEmergencyContact(ctx, ext.ID)
	require.NoError(t, err)
	require.False(t, got.IsActive)
	require.True(t, got.CanViewMedicalInfo)

	require.NoError(t, st.DeleteEmergencyContact(ctx, c.ID))
	require.ErrorIs(t, st.DeleteEmergencyContact(ctx, c.ID), domainerr.ErrNotFound)
	_, err = st.GetEmergencyContact(ctx, c.ID)
	require.ErrorIs(t, err, domainerr.ErrNotFound)
	require.ErrorIs(t, st.SaveEmergencyContact(ctx, c), domainerr.ErrNotFound)
}

func TestPGSOS_SaveTrackerKeepsFirstStageStamps(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	req := &models.SOSRequest{RequesterID: 1, BloodGroupNeeded: models.BloodGroupBPos, UnitsNeeded: 1, City: "Delhi", Status: models.SOSStatusOpen, Priority: models.SOSPriorityNormal}
	require.NoError(t, st.CreateRequest(ctx, req))
	refs, err := st.EnsurePendingResponses(ctx, req.ID, []uint64{7}, models.ResponseChannelWeb)
	require.NoError(t, err)

	t0 := time.Now().UTC().Truncate(time.Microsecond)
	base, _, err := st.GetOrCreateTracker(ctx, refs[0].ResponseID, t0)
	require.NoError(t, err)

	// two writers advance stale copies of the same row
	traveling, arrived := *base, *base
	traveling.Advance(models.DonationStatusTraveling, t0.Add(time.Minute))
	traveling.UpdatedAt = t0.Add(time.Minute)
	arrived.Advance(models.DonationStatusArrived, t0.Add(2*time.Minute))
	arrived.UpdatedAt = t0.Add(2 * time.Minute)
	require.NoError(t, st.SaveTracker(ctx, &traveling))
	require.NoError(t, st.SaveTracker(ctx, &arrived))
	require.NotNil(t, arrived.TravelingAt)
	require.WithinDuration(t, t0.Add(time.Minute), *arrived.TravelingAt, 0)

	// a later re-entry keeps the first stamp
	again := arrived
	late := t0.Add(time.Hour)
	again.TravelingAt = &late
	again.CurrentStatus = models.DonationStatusTraveling
	again.UpdatedAt = late
	require.NoError(t, st.SaveTracker(ctx, &again))

	got, err := st.GetTracker(ctx, base.ID)
	require.NoError(t, err)
	require.WithinDuration(t, t0.Add(time.Minute), *got.TravelingAt, 0)
	require.WithinDuration(t, t0.Add(2*time.Minute), *got.ArrivedAt, 0)
}

func TestPGSOS_ConcurrentEnsureNeverDuplicates(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	req := &models.SOSRequest{RequesterID: 1, BloodGroupNeeded: models.BloodGroupAPos, UnitsNeeded: 1, City: "Pune", Status: models.SOSStatusOpen, Priority: models.SOSPriorityNormal}
	require.NoError(t, st.CreateRequest(ctx, req))

	var wg sync.WaitGroup
	created := make(chan bool, 8)
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			refs, err := st.EnsurePendingResponses(ctx, req.ID, []uint64{42}, models.ResponseChannelSMS)
			if err != nil {
				errs <- err
				return
			}
			created <- refs[0].Created
		}()
	}
	wg.Wait()
	close(created)
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	n := 0
	for c := range created {
		if c {
			n++
		}
	}
	require.Equal(t, 1, n)

	list, err := st.ListResponses(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
}
