package sms

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type Status string

const (
	StatusSent    Status = "sent"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

const (
	ReasonMissingAPIKey = "missing_api_key"
	ReasonInvalidPhone  = "invalid_phone"
	ReasonProviderError = "provider_error"
	ReasonTimeout       = "timeout"
	ReasonRequestError  = "request_error"
)

const (
	DefaultSender  = "VEINLN"
	DefaultTimeout = 20 * time.Second
)

// Result is the outcome of one send. Delivery problems are results, not errors;
// a Provider returns a non-nil error only for bugs it could not classify.
type Result struct {
	Provider   string
	Status     Status
	Reason     string
	HTTPStatus int
}

type Provider interface {
	Name() string
	Send(ctx context.Context, phoneE164, text string) (Result, error)
}

// Settings shared by the HTTP vendors.
type Settings struct {
	APIKey   string
	SenderID string
	BaseURL  string
	Timeout  time.Duration
}

func (s Settings) WithDefaults(baseURL string) Settings {
	if s.BaseURL == "" {
		s.BaseURL = baseURL
	}
	if s.SenderID == "" {
		s.SenderID = DefaultSender
	}
	if s.Timeout <= 0 {
		s.Timeout = DefaultTimeout
	}
	return s
}

// VendorNumber normalizes an E.164 number to the digits-only form Indian gateways expect.
// ok is false when the input is not a plausible phone number.
func VendorNumber(phoneE164 string) (string, bool) {
	n := strings.TrimPrefix(strings.TrimSpace(phoneE164), "+")
	if len(n) < 10 || len(n) > 15 {
		return "", false
	}
	for _, r := range n {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return n, true
}

// Precheck returns a skipped Result when the send cannot be attempted at all.
func Precheck(provider, apiKey, phoneE164 string) (string, *Result) {
	if apiKey == "" {
		return "", &Result{Provider: provider, Status: StatusSkipped, Reason: ReasonMissingAPIKey}
	}
	n, ok := VendorNumber(phoneE164)
	if !ok {
		return "", &Result{Provider: provider, Status: StatusSkipped, Reason: ReasonInvalidPhone}
	}
	return n, nil
}

// Classify turns a resty round trip into a Result. Only a 2xx answer counts as sent.
func Classify(provider string, resp *resty.Response, err error) Result {
	res := Result{Provider: provider}
	if err != nil {
		res.Status = StatusFailed
		res.Reason = ReasonRequestError
		var ne net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
			res.Reason = ReasonTimeout
		}
		return res
	}
	code := resp.StatusCode()
	res.HTTPStatus = code
	if code < 200 || code >= 300 {
		res.Status = StatusFailed
		res.Reason = ReasonProviderError
		return res
	}
	res.Status = StatusSent
	return res
}

// NewHTTPClient is the resty client the vendors share. No retries: a retried SMS may be delivered twice.
func NewHTTPClient(s Settings) *resty.Client {
	return resty.New().
		SetBaseURL(s.BaseURL).
		SetTimeout(s.Timeout).
		SetHeader("Accept", "application/json")
}
