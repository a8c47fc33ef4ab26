package parsers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/username/cachin/backend/src/mailmsg"
)

func plainEmail(from, subject, messageID, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: user@example.com\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	if messageID != "" {
		b.WriteString("Message-Id: " + messageID + "\r\n")
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

func htmlEmail(from, subject, messageID, html string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: user@example.com\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	if messageID != "" {
		b.WriteString("Message-Id: " + messageID + "\r\n")
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(html)
	return []byte(b.String())
}

func parseRaw(t *testing.T, raw []byte) *mailmsg.Envelope {
	t.Helper()
	env, err := mailmsg.Parse(raw)
	require.NoError(t, err)
	return env
}
