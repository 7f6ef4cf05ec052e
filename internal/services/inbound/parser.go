package inbound

import (
	"strings"

	"github.com/BearBump/VeinLine/internal/domainerr"
	"github.com/BearBump/VeinLine/internal/models"
)

// Reply is a parsed donor SMS: "YES <token>", "NO <token>" or "YES SHARE <token>".
type Reply struct {
	Decision models.ResponseDecision
	Share    bool
	// Token is lower-cased, as issued.
	Token string
}

// Parse is case- and whitespace-insensitive. SHARE counts anywhere between the decision
// and the token. It fails with domainerr.ErrInvalidFormat.
func Parse(raw string) (Reply, error) {
	parts := strings.Fields(strings.ToUpper(raw))
	if len(parts) < 2 {
		return Reply{}, domainerr.ErrInvalidFormat
	}

	var r Reply
	switch parts[0] {
	case "YES":
		r.Decision = models.ResponseYes
	case "NO":
		r.Decision = models.ResponseNo
	default:
		return Reply{}, domainerr.ErrInvalidFormat
	}
	for _, p := range parts[1 : len(parts)-1] {
		if p == "SHARE" {
			r.Share = true
		}
	}
	r.Token = strings.ToLower(parts[len(parts)-1])
	return r, nil
}

// GrantsConsent reports whether the reply sets the contact-sharing consent.
// NO never grants it, even with SHARE.
func (r Reply) GrantsConsent() bool {
	return r.Decision == models.ResponseYes && r.Share
}
