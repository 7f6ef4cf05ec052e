package sosapi

import (
	"net/http"
	"strconv"

	"github.com/BearBump/VeinLine/internal/domainerr"
	"github.com/BearBump/VeinLine/internal/models"
	"github.com/BearBump/VeinLine/internal/services/messaging"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// queryLimit reads ?limit= within [1, maxListLimit].
func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > maxListLimit {
		return 0, domainerr.Invalid("limit", "must be between 1 and "+strconv.Itoa(maxListLimit))
	}
	return n, nil
}

// queryID reads an optional positive id; zero when absent.
func queryID(r *http.Request, name string) (uint64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, domainerr.Invalid(name, "must be a positive integer")
	}
	return id, nil
}

func (a *API) listNotifications(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := models.NotificationQuery{RecipientID: actorFrom(r.Context()).ID, Limit: limit}
	if raw := r.URL.Query().Get("is_read"); raw != "" {
		read, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, domainerr.Invalid("is_read", "must be true or false"))
			return
		}
		q.Read = &read
	}
	items, err := a.feed.ListNotifications(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]notificationDTO, 0, len(items))
	for _, n := range items {
		out = append(out, toNotificationDTO(n))
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": out})
}

func (a *API) unreadNotificationCount(w http.ResponseWriter, r *http.Request) {
	n, err := a.feed.CountUnreadNotifications(r.Context(), actorFrom(r.Context()).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread_count": n})
}

func (a *API) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	n, err := a.feed.MarkNotificationRead(r.Context(), actorFrom(r.Context()).ID, id, a.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toNotificationDTO(n))
}

func (a *API) markAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	n, err := a.feed.MarkAllNotificationsRead(r.Context(), actorFrom(r.Context()).ID, a.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"marked_as_read": n})
}

func (a *API) sendMessage(w http.ResponseWriter, r *http.Request) {
	var body sendMessageBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := a.messages.Send(r.Context(), actorFrom(r.Context()), messaging.SendInput{
		SOSRequestID: body.SOSRequestID,
		RecipientID:  body.RecipientID,
		Content:      body.Content,
		Template:     body.TemplateType,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMessageDTO(m))
}

func (a *API) listMessages(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := a.messages.List(r.Context(), actorFrom(r.Context()), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": toMessageDTOs(items)})
}

func (a *API) conversation(w http.ResponseWriter, r *http.Request) {
	other, err := queryID(r, "user_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	requestID, err := queryID(r, "sos_request_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := a.messages.Conversation(r.Context(), actorFrom(r.Context()), other, requestID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": toMessageDTOs(items)})
}

func (a *API) markMessageRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	m, err := a.messages.MarkRead(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMessageDTO(m))
}
