// Package policy is the static capability table for SOS operations.
package policy

import (
	"github.com/pkg/errors"

	"github.com/BearBump/VeinLine/internal/domainerr"
	"github.com/BearBump/VeinLine/internal/models"
)

type Operation string

const (
	OpCreateRequest  Operation = "sos.create"
	OpGetRequest     Operation = "sos.get"
	OpUpdateRequest  Operation = "sos.update"
	OpTriggerMatch   Operation = "sos.match"
	OpCancelRequest  Operation = "sos.cancel"
	OpFulfillRequest Operation = "sos.fulfill"
	OpListResponses  Operation = "sos.responses.list"
	OpRevealContact  Operation = "sos.responses.reveal"
	OpRecordResponse Operation = "sos.responses.respond"
	OpAdvanceTracker Operation = "donation.advance"
	OpGetTracker     Operation = "donation.get"

	OpSendMessage     Operation = "message.send"
	OpMarkMessageRead Operation = "message.read"

	OpManageEmergencyContact Operation = "emergency_contact.manage"
)

// Subject is what an operation is checked against. Owners lists the user ids that own
// the resource (requester, donor); Open reports whether the SOS request is still open.
type Subject struct {
	Owners []uint64
	Open   bool
}

type rule struct {
	roles []models.Role
	owner bool
	// openTo admits any holder of the role while the request is open.
	openTo models.Role
}

var table = map[Operation]rule{
	OpCreateRequest:  {roles: []models.Role{models.RolePatient}},
	OpGetRequest:     {owner: true, openTo: models.RoleDonor},
	OpUpdateRequest:  {owner: true},
	OpTriggerMatch:   {owner: true},
	OpCancelRequest:  {owner: true},
	OpFulfillRequest: {owner: true},
	OpListResponses:  {owner: true},
	OpRevealContact:  {owner: true},
	OpRecordResponse: {owner: true},
	OpAdvanceTracker: {owner: true},
	OpGetTracker:     {owner: true},

	OpSendMessage:     {owner: true},
	OpMarkMessageRead: {owner: true},

	OpManageEmergencyContact: {owner: true},
}

// Check returns nil when actor may perform op on subj and a wrapped domainerr.ErrForbidden otherwise.
// Admins pass every check. Unknown operations are denied.
func Check(op Operation, actor models.Actor, subj Subject) error {
	r, ok := table[op]
	if !ok {
		return errors.Wrapf(domainerr.ErrForbidden, "unknown operation %s", op)
	}
	if actor.IsAdmin() {
		return nil
	}
	for _, role := range r.roles {
		if actor.Has(role) {
			return nil
		}
	}
	if r.owner && actor.ID != 0 {
		for _, id := range subj.Owners {
			if id == actor.ID {
				return nil
			}
		}
	}
	if r.openTo != "" && subj.Open && actor.Has(r.openTo) {
		return nil
	}
	return errors.Wrap(domainerr.ErrForbidden, string(op))
}

// Owner is a Subject owned by the given users.
func Owner(ids ...uint64) Subject {
	return Subject{Owners: ids}
}
