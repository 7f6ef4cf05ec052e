package models

import "time"

// EmergencyContact is someone a user trusts to raise an SOS for them. The contact is either
// another account (ContactUserID) or an external person reachable by phone or email.
type EmergencyContact struct {
	ID                 uint64
	UserID             uint64
	ContactUserID      *uint64
	ContactName        string
	ContactPhone       string
	ContactEmail       string
	Relationship       string
	CanCreateSOS       bool
	CanViewMedicalInfo bool
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
