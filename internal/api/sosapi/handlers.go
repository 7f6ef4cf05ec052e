package sosapi

import (
	"context"
	"net/http"

	"github.com/BearBump/VeinLine/internal/domainerr"
	"github.com/BearBump/VeinLine/internal/models"
	"github.com/BearBump/VeinLine/internal/services/donations"
	"github.com/BearBump/VeinLine/internal/services/sos"
)

func (a *API) createRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	req, err := a.sos.CreateRequest(r.Context(), actorFrom(r.Context()), sos.CreateRequestInput{
		BloodGroupNeeded: body.BloodGroupNeeded,
		UnitsNeeded:      body.UnitsNeeded,
		City:             body.City,
		Area:             body.Area,
		HospitalName:     body.HospitalName,
		Message:          body.Message,
		Priority:         body.Priority,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestDTO(req))
}

func (a *API) getRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := a.sos.GetRequest(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

func (a *API) updateRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body updateRequestBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	req, err := a.sos.UpdateRequest(r.Context(), actorFrom(r.Context()), id, sos.UpdateRequestInput{
		UnitsNeeded:  body.UnitsNeeded,
		Area:         body.Area,
		HospitalName: body.HospitalName,
		Message:      body.Message,
		Priority:     body.Priority,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

func (a *API) cancelRequest(w http.ResponseWriter, r *http.Request) {
	a.closeRequest(w, r, a.sos.CancelRequest)
}

func (a *API) fulfillRequest(w http.ResponseWriter, r *http.Request) {
	a.closeRequest(w, r, a.sos.FulfillRequest)
}

func (a *API) closeRequest(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, actor models.Actor, id uint64) (*models.SOSRequest, error)) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := op(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

func (a *API) triggerMatch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := a.sos.TriggerMatch(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMatchDTO(res))
}

func (a *API) listResponses(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views, err := a.sos.ListResponses(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]sosResponseDTO, 0, len(views))
	for _, v := range views {
		out = append(out, toResponseDTO(v))
	}
	writeJSON(w, http.StatusOK, map[string]any{"responses": out})
}

func (a *API) recordResponse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body respondBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := a.sos.RecordResponse(r.Context(), actorFrom(r.Context()), id, body.Response, body.DonorConsentedToShareContact)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponseDTO(v))
}

func (a *API) revealContact(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := a.sos.RevealContact(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponseDTO(v))
}

func (a *API) getTracker(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tr, err := a.trackers.GetTracker(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrackerDTO(tr))
}

func (a *API) advanceTracker(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body trackerStatusBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	var loc *donations.Location
	switch {
	case body.Latitude != nil && body.Longitude != nil:
		loc = &donations.Location{
			Latitude:           *body.Latitude,
			Longitude:          *body.Longitude,
			EstimatedArrivalAt: body.EstimatedArrivalAt,
		}
	case body.Latitude != nil || body.Longitude != nil:
		writeError(w, r, domainerr.Invalid("location", "latitude and longitude go together"))
		return
	}
	tr, err := a.trackers.AdvanceStatus(r.Context(), actorFrom(r.Context()), id, body.Status, loc, body.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrackerDTO(tr))
}

// inboundSMS is the gateway webhook for donor replies. Rejections are reported with the
// usual error body so the gateway can log them; nothing is sent back to the donor.
func (a *API) inboundSMS(w http.ResponseWriter, r *http.Request) {
	var body inboundSMSBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := a.sos.HandleInboundSMS(r.Context(), sos.InboundSMS{FromPhone: body.FromPhone, Message: body.Message})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inboundOutcomeDTO{
		Ok:         true,
		Request:    out.RequestID,
		ResponseID: out.ResponseID,
		Response:   string(out.Response),
	})
}
