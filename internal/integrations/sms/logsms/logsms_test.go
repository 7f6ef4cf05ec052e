package logsms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BearBump/VeinLine/internal/integrations/sms"
)

func TestProvider_Send(t *testing.T) {
	p := New()
	res, err := p.Send(context.Background(), "+919876543210", "hello")
	require.NoError(t, err)
	require.Equal(t, sms.StatusSent, res.Status)
	require.Equal(t, []Message{{Phone: "+919876543210", Text: "hello"}}, p.Sent())

	res, err = p.Send(context.Background(), "", "hello")
	require.NoError(t, err)
	require.Equal(t, sms.ReasonInvalidPhone, res.Reason)
	require.Len(t, p.Sent(), 1)
}
