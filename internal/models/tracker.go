package models

import "time"

type DonationStatus string

const (
	DonationStatusAgreed    DonationStatus = "agreed"
	DonationStatusTraveling DonationStatus = "traveling"
	DonationStatusArrived   DonationStatus = "arrived"
	DonationStatusDonating  DonationStatus = "donating"
	DonationStatusCompleted DonationStatus = "completed"
	DonationStatusCancelled DonationStatus = "cancelled"
)

// Pipeline order. Cancelled sits outside the forward path and may follow any non-terminal stage.
var donationStage = map[DonationStatus]int{
	DonationStatusAgreed:    0,
	DonationStatusTraveling: 1,
	DonationStatusArrived:   2,
	DonationStatusDonating:  3,
	DonationStatusCompleted: 4,
}

func ParseDonationStatus(s string) (DonationStatus, bool) {
	st := DonationStatus(s)
	if st == DonationStatusCancelled {
		return st, true
	}
	if _, ok := donationStage[st]; ok {
		return st, true
	}
	return "", false
}

func (s DonationStatus) Terminal() bool {
	return s == DonationStatusCompleted || s == DonationStatusCancelled
}

type DonationTracker struct {
	ID            uint64
	ResponseID    uint64
	CurrentStatus DonationStatus

	Latitude           *float64
	Longitude          *float64
	EstimatedArrivalAt *time.Time
	Notes              string

	AgreedAt    time.Time
	TravelingAt *time.Time
	ArrivedAt   *time.Time
	DonatingAt  *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time

	UpdatedAt time.Time
}

type DonationTransition struct {
	From DonationStatus
	To   DonationStatus
	// Forward is false for backward moves, skipped stages and moves out of a terminal status.
	Forward bool
	// Stamped reports whether this call set the target stage timestamp.
	Stamped bool
}

// Advance moves the tracker to status. Every transition is accepted; stage timestamps are
// write-once, so re-entering a stage keeps its original time.
func (t *DonationTracker) Advance(status DonationStatus, now time.Time) DonationTransition {
	tr := DonationTransition{From: t.CurrentStatus, To: status}
	tr.Forward = isForward(t.CurrentStatus, status)
	t.CurrentStatus = status

	stamp := func(p **time.Time) {
		if *p == nil {
			at := now
			*p = &at
			tr.Stamped = true
		}
	}
	switch status {
	case DonationStatusTraveling:
		stamp(&t.TravelingAt)
	case DonationStatusArrived:
		stamp(&t.ArrivedAt)
	case DonationStatusDonating:
		stamp(&t.DonatingAt)
	case DonationStatusCompleted:
		stamp(&t.CompletedAt)
	case DonationStatusCancelled:
		stamp(&t.CancelledAt)
	}
	return tr
}

func isForward(from, to DonationStatus) bool {
	if from.Terminal() {
		return false
	}
	if to == DonationStatusCancelled {
		return true
	}
	return donationStage[to] == donationStage[from]+1
}
