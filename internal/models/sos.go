package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

type SOSStatus string

const (
	SOSStatusOpen      SOSStatus = "open"
	SOSStatusFulfilled SOSStatus = "fulfilled"
	SOSStatusCancelled SOSStatus = "cancelled"
)

type SOSPriority string

const (
	SOSPriorityNormal   SOSPriority = "normal"
	SOSPriorityUrgent   SOSPriority = "urgent"
	SOSPriorityCritical SOSPriority = "critical"
)

func (p SOSPriority) Valid() bool {
	switch p {
	case SOSPriorityNormal, SOSPriorityUrgent, SOSPriorityCritical:
		return true
	}
	return false
}

type ResponseDecision string

const (
	ResponsePending ResponseDecision = "pending"
	ResponseYes     ResponseDecision = "yes"
	ResponseNo      ResponseDecision = "no"
)

type ResponseChannel string

const (
	ResponseChannelWeb ResponseChannel = "web"
	ResponseChannelSMS ResponseChannel = "sms"
)

// smsReplyTokenBytes gives 16 hex characters.
const smsReplyTokenBytes = 8

type SOSRequest struct {
	ID               uint64
	RequesterID      uint64
	BloodGroupNeeded BloodGroup
	UnitsNeeded      int
	City             string
	Area             string
	HospitalName     string
	Message          string
	Status           SOSStatus
	Priority         SOSPriority
	SMSReplyToken    string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// EnsureSMSReplyToken generates the reply token once. An existing token is never replaced.
func (r *SOSRequest) EnsureSMSReplyToken() error {
	if r.SMSReplyToken != "" {
		return nil
	}
	tok, err := NewSMSReplyToken()
	if err != nil {
		return err
	}
	r.SMSReplyToken = tok
	return nil
}

func (r *SOSRequest) IsOpen() bool {
	return r.Status == SOSStatusOpen
}

// NewSMSReplyToken returns a URL-safe, fixed-length random token.
func NewSMSReplyToken() (string, error) {
	b := make([]byte, smsReplyTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

type SOSRequestCreateInput struct {
	BloodGroupNeeded string
	UnitsNeeded      int
	City             string
	Area             string
	HospitalName     string
	Message          string
	Priority         string
}

type SOSResponse struct {
	ID        uint64
	RequestID uint64
	DonorID   uint64

	Response ResponseDecision
	Channel  ResponseChannel

	DonorConsentedToShareContact bool
	PatientContactRevealedAt     *time.Time

	RespondedAt *time.Time
	CreatedAt   time.Time
}

// ResponseRef is what a get-or-create hands back for one donor.
type ResponseRef struct {
	DonorID    uint64
	ResponseID uint64
	Created    bool
}
