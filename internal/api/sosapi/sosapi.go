// Package sosapi is the JSON HTTP surface of the SOS core. The gateway authenticates callers
// and forwards them as X-User-ID / X-User-Roles.
package sosapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/BearBump/VeinLine/internal/models"
	"github.com/BearBump/VeinLine/internal/services/donations"
	"github.com/BearBump/VeinLine/internal/services/emergency"
	"github.com/BearBump/VeinLine/internal/services/messaging"
	"github.com/BearBump/VeinLine/internal/services/sos"
)

type SOSService interface {
	CreateRequest(ctx context.Context, actor models.Actor, in sos.CreateRequestInput) (*models.SOSRequest, error)
	GetRequest(ctx context.Context, actor models.Actor, id uint64) (*models.SOSRequest, error)
	UpdateRequest(ctx context.Context, actor models.Actor, id uint64, in sos.UpdateRequestInput) (*models.SOSRequest, error)
	CancelRequest(ctx context.Context, actor models.Actor, id uint64) (*models.SOSRequest, error)
	FulfillRequest(ctx context.Context, actor models.Actor, id uint64) (*models.SOSRequest, error)
	TriggerMatch(ctx context.Context, actor models.Actor, id uint64) (*sos.MatchResult, error)
	ListResponses(ctx context.Context, actor models.Actor, requestID uint64) ([]*sos.ResponseView, error)
	RecordResponse(ctx context.Context, actor models.Actor, responseID uint64, decision string, consent bool) (*sos.ResponseView, error)
	RevealContact(ctx context.Context, actor models.Actor, responseID uint64) (*sos.ResponseView, error)
	HandleInboundSMS(ctx context.Context, in sos.InboundSMS) (*sos.InboundOutcome, error)
}

type TrackerService interface {
	AdvanceStatus(ctx context.Context, actor models.Actor, trackerID uint64, status string, loc *donations.Location, notes string) (*models.DonationTracker, error)
	GetTracker(ctx context.Context, actor models.Actor, trackerID uint64) (*models.DonationTracker, error)
}

// NotificationFeed is the in-app feed. Every call is scoped to one recipient; a notification
// of someone else is not found.
type NotificationFeed interface {
	ListNotifications(ctx context.Context, q models.NotificationQuery) ([]*models.Notification, error)
	CountUnreadNotifications(ctx context.Context, recipientID uint64) (int, error)
	MarkNotificationRead(ctx context.Context, recipientID, id uint64, at time.Time) (*models.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, recipientID uint64, at time.Time) (int, error)
}

type MessageService interface {
	Send(ctx context.Context, actor models.Actor, in messaging.SendInput) (*models.Message, error)
	List(ctx context.Context, actor models.Actor, limit int) ([]*models.Message, error)
	Conversation(ctx context.Context, actor models.Actor, otherUserID, sosRequestID uint64) ([]*models.Message, error)
	MarkRead(ctx context.Context, actor models.Actor, id uint64) (*models.Message, error)
}

type EmergencyContactService interface {
	List(ctx context.Context, actor models.Actor) ([]*models.EmergencyContact, error)
	Create(ctx context.Context, actor models.Actor, in emergency.Input) (*models.EmergencyContact, error)
	Get(ctx context.Context, actor models.Actor, id uint64) (*models.EmergencyContact, error)
	Update(ctx context.Context, actor models.Actor, id uint64, in emergency.Input) (*models.EmergencyContact, error)
	Delete(ctx context.Context, actor models.Actor, id uint64) error
}

type API struct {
	sos      SOSService
	trackers TrackerService
	feed     NotificationFeed
	messages MessageService
	contacts EmergencyContactService
	now      func() time.Time
}

func New(s SOSService, trackers TrackerService, feed NotificationFeed) *API {
	return &API{sos: s, trackers: trackers, feed: feed, now: func() time.Time { return time.Now().UTC() }}
}

// WithMessaging mounts the /v1/messages routes.
func (a *API) WithMessaging(m MessageService) *API {
	a.messages = m
	return a
}

// WithEmergencyContacts mounts the /v1/emergency-contacts routes.
func (a *API) WithEmergencyContacts(c EmergencyContactService) *API {
	a.contacts = c
	return a
}

func (a *API) Register(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		// gateway webhook, no actor
		r.Post("/sms/inbound", a.inboundSMS)

		r.Group(func(r chi.Router) {
			r.Use(requireActor)

			r.Post("/sos", a.createRequest)
			r.Get("/sos/{id}", a.getRequest)
			r.Patch("/sos/{id}", a.updateRequest)
			r.Post("/sos/{id}/match", a.triggerMatch)
			r.Post("/sos/{id}/cancel", a.cancelRequest)
			r.Post("/sos/{id}/fulfill", a.fulfillRequest)
			r.Get("/sos/{id}/responses", a.listResponses)

			r.Post("/responses/{id}/respond", a.recordResponse)
			r.Post("/responses/{id}/reveal-contact", a.revealContact)

			r.Get("/trackers/{id}", a.getTracker)
			r.Post("/trackers/{id}/status", a.advanceTracker)

			r.Get("/notifications", a.listNotifications)
			r.Get("/notifications/unread-count", a.unreadNotificationCount)
			r.Post("/notifications/read-all", a.markAllNotificationsRead)
			r.Post("/notifications/{id}/read", a.markNotificationRead)

			if a.messages != nil {
				r.Post("/messages", a.sendMessage)
				r.Get("/messages", a.listMessages)
				r.Get("/messages/conversation", a.conversation)
				r.Post("/messages/{id}/read", a.markMessageRead)
			}

			if a.contacts != nil {
				r.Get("/emergency-contacts", a.listEmergencyContacts)
				r.Post("/emergency-contacts", a.createEmergencyContact)
				r.Get("/emergency-contacts/{id}", a.getEmergencyContact)
				r.Patch("/emergency-contacts/{id}", a.updateEmergencyContact)
				r.Delete("/emergency-contacts/{id}", a.deleteEmergencyContact)
			}
		})
	})
}

// Handler is a standalone router with only the API routes.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	a.Register(r)
	return r
}
