package models

import (
	"strings"
	"time"
)

type DonorRecord struct {
	UserID        uint64
	FullName      string
	BloodGroup    BloodGroup
	City          string
	Area          string
	IsAvailable   bool
	LastDonatedAt *time.Time
	Latitude      *float64
	Longitude     *float64
	// Eligible comes from the health questionnaire; nil means it was never answered.
	Eligible  *bool
	UpdatedAt time.Time
}

// CityFilter describes how donor cities are compared against the request city.
// AllowBlank admits donors with no city on record (rural/offline data).
type CityFilter struct {
	City       string
	AllowBlank bool
}

func (f CityFilter) Match(city string) bool {
	if strings.EqualFold(strings.TrimSpace(city), strings.TrimSpace(f.City)) {
		return true
	}
	return f.AllowBlank && strings.TrimSpace(city) == ""
}

// UserRef is a known user resolved from a contact detail.
type UserRef struct {
	ID      uint64
	IsDonor bool
}
