package email

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLogSender(t *testing.T) {
	s := NewLogSender()
	require.NoError(t, s.Send(context.Background(), "a@example.com", "SOS", "body"))
	require.Equal(t, []Message{{To: "a@example.com", Subject: "SOS", Body: "body"}}, s.Sent())
}

func TestBuildMessage_StripsHeaderInjection(t *testing.T) {
	msg := string(buildMessage("from@x", "to@x", "hi\r\nBcc: evil@x", "line1\nline2"))
	require.Contains(t, msg, "Subject: hi  Bcc: evil@x\r\n")
	require.Contains(t, msg, "line1\r\nline2")
}

// fakeSMTP accepts one message without STARTTLS or AUTH and records the DATA section.
func fakeSMTP(t *testing.T) (addr string, data chan string) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = lis.Close() })
	data = make(chan string, 1)

	go func() {
		conn, err := lis.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		write := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }

		write("220 localhost ESMTP")
		var body strings.Builder
		inData := false
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			if inData {
				if line == ".\r\n" {
					inData = false
					data <- body.String()
					write("250 OK")
					continue
				}
				body.WriteString(line)
				continue
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				write("250 localhost")
			case strings.HasPrefix(cmd, "DATA"):
				inData = true
				write("354 go ahead")
			case strings.HasPrefix(cmd, "QUIT"):
				write("221 bye")
				return
			default:
				write("250 OK")
			}
		}
	}()
	return lis.Addr().String(), data
}

func TestSMTPSender_Send(t *testing.T) {
	addr, data := fakeSMTP(t)
	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	p, err := net.LookupPort("tcp", port)
	require.NoError(t, err)

	s := NewSMTPSender(SMTPConfig{Host: host, Port: p, From: "alerts@veinline.local"})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Send(ctx, "donor@example.com", "VeinLine SOS", "Need O+ in Pune"))

	select {
	case got := <-data:
		require.Contains(t, got, "To: donor@example.com")
		require.Contains(t, got, "Need O+ in Pune")
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestSMTPSender_DialError(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().(*net.TCPAddr)
	_ = lis.Close()

	s := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: addr.Port, From: "x@y"})
	err = s.Send(context.Background(), "a@b", "s", "b")
	require.Error(t, err)
	require.Contains(t, err.Error(), "smtp dial")
}
