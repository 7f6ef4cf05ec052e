package sosapi

import (
	"net/http"

	"github.com/BearBump/VeinLine/internal/services/emergency"
)

func (b emergencyContactBody) input() emergency.Input {
	return emergency.Input{
		ContactUserID:      b.ContactUserID,
		ContactName:        b.ContactName,
		ContactPhone:       b.ContactPhone,
		ContactEmail:       b.ContactEmail,
		Relationship:       b.Relationship,
		CanCreateSOS:       b.CanCreateSOS,
		CanViewMedicalInfo: b.CanViewMedicalInfo,
		IsActive:           b.IsActive,
	}
}

func (a *API) listEmergencyContacts(w http.ResponseWriter, r *http.Request) {
	items, err := a.contacts.List(r.Context(), actorFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]emergencyContactDTO, 0, len(items))
	for _, c := range items {
		out = append(out, toEmergencyContactDTO(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"emergency_contacts": out})
}

func (a *API) createEmergencyContact(w http.ResponseWriter, r *http.Request) {
	var body emergencyContactBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := a.contacts.Create(r.Context(), actorFrom(r.Context()), body.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmergencyContactDTO(c))
}

func (a *API) getEmergencyContact(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := a.contacts.Get(r.Context(), actorFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmergencyContactDTO(c))
}

func (a *API) updateEmergencyContact(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var body emergencyContactBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := a.contacts.Update(r.Context(), actorFrom(r.Context()), id, body.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmergencyContactDTO(c))
}

func (a *API) deleteEmergencyContact(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.contacts.Delete(r.Context(), actorFrom(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
