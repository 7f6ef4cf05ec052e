package fast2sms

import (
	"context"

	"github.com/go-resty/resty/v2"

	"github.com/BearBump/VeinLine/internal/integrations/sms"
)

const (
	Name           = "fast2sms"
	DefaultBaseURL = "https://www.fast2sms.com"
	sendPath       = "/dev/bulkV2"
)

type Client struct {
	s     sms.Settings
	httpc *resty.Client
}

func New(s sms.Settings) *Client {
	s = s.WithDefaults(DefaultBaseURL)
	return &Client{s: s, httpc: sms.NewHTTPClient(s)}
}

func (c *Client) Name() string { return Name }

// Send posts a quick-route message. The API key goes in the authorization header.
func (c *Client) Send(ctx context.Context, phoneE164, text string) (sms.Result, error) {
	number, skip := sms.Precheck(Name, c.s.APIKey, phoneE164)
	if skip != nil {
		return *skip, nil
	}

	resp, err := c.httpc.R().
		SetContext(ctx).
		SetHeader("authorization", c.s.APIKey).
		SetFormData(map[string]string{
			"route":     "v3",
			"numbers":   number,
			"message":   text,
			"sender_id": c.s.SenderID,
		}).
		Post(sendPath)
	return sms.Classify(Name, resp, err), nil
}
