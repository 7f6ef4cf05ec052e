package textlocal

import (
	"context"

	"github.com/go-resty/resty/v2"

	"github.com/BearBump/VeinLine/internal/integrations/sms"
)

const (
	Name           = "textlocal"
	DefaultBaseURL = "https://api.textlocal.in"
	sendPath       = "/send/"
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

// Send uses the form API; the key travels in the body as apikey.
func (c *Client) Send(ctx context.Context, phoneE164, text string) (sms.Result, error) {
	number, skip := sms.Precheck(Name, c.s.APIKey, phoneE164)
	if skip != nil {
		return *skip, nil
	}

	resp, err := c.httpc.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"apikey":  c.s.APIKey,
			"numbers": number,
			"message": text,
			"sender":  c.s.SenderID,
		}).
		Post(sendPath)
	return sms.Classify(Name, resp, err), nil
}
