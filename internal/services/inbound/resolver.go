package inbound

import (
	"context"

	"github.com/BearBump/VeinLine/internal/domainerr"
	"github.com/BearBump/VeinLine/internal/models"
)

// SenderResolver maps an inbound SMS sender to a donor.
//
// The sender number comes from the SMS gateway webhook and can be spoofed by anyone who can
// reach that endpoint. Implementations authenticate purely by phone correlation; stronger
// schemes (signed webhooks, per-donor tokens) belong behind this interface.
type SenderResolver interface {
	ResolveDonor(ctx context.Context, fromPhone string) (uint64, error)
}

type UserDirectory interface {
	// FindUserByPhoneSuffix returns the first user whose stored phone ends with suffix.
	FindUserByPhoneSuffix(ctx context.Context, suffix string) (*models.UserRef, error)
}

// PhoneSuffixResolver matches on the last 10 digits, which tolerates the usual local
// formats (0-prefix, +91, spaces).
type PhoneSuffixResolver struct {
	users UserDirectory
}

func NewPhoneSuffixResolver(users UserDirectory) *PhoneSuffixResolver {
	return &PhoneSuffixResolver{users: users}
}

const suffixDigits = 10

func (r *PhoneSuffixResolver) ResolveDonor(ctx context.Context, fromPhone string) (uint64, error) {
	suffix := PhoneSuffix(fromPhone)
	if suffix == "" {
		return 0, domainerr.ErrUnknownPhone
	}
	u, err := r.users.FindUserByPhoneSuffix(ctx, suffix)
	if err != nil {
		return 0, err
	}
	if u == nil {
		return 0, domainerr.ErrUnknownPhone
	}
	if !u.IsDonor {
		return 0, domainerr.ErrNotADonor
	}
	return u.ID, nil
}

// PhoneSuffix keeps the digits of phone and returns at most the last 10.
func PhoneSuffix(phone string) string {
	digits := make([]byte, 0, len(phone))
	for i := 0; i < len(phone); i++ {
		if c := phone[i]; c >= '0' && c <= '9' {
			digits = append(digits, c)
		}
	}
	if len(digits) > suffixDigits {
		digits = digits[len(digits)-suffixDigits:]
	}
	return string(digits)
}
