package mailmsg

import (
	"bytes"
	"fmt"
	"net/mail"
	"strings"

	"github.com/jhillyerd/enmime"
)

// Envelope wraps one decoded email. It is the only view of the raw RFC822
// bytes the format parsers get: decoded headers, a preferred body text and
// the raw bytes for the few places that need them.
type Envelope struct {
	raw []byte
	env *enmime.Envelope
}

// Parse decodes raw RFC822 bytes into an Envelope.
func Parse(raw []byte) (*Envelope, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("mailmsg: decoding message: %w", err)
	}
	return &Envelope{raw: raw, env: env}, nil
}

// Subject returns the decoded subject header.
func (e *Envelope) Subject() string {
	return e.env.GetHeader("Subject")
}

// MessageID returns the Message-Id header as stored, surrounding whitespace
// trimmed. Angle brackets are kept; the value is only used as an opaque
// idempotency key.
func (e *Envelope) MessageID() string {
	return strings.TrimSpace(e.env.GetHeader("Message-Id"))
}

// FromEmails returns the lowercased addresses parsed from the From header.
func (e *Envelope) FromEmails() []string {
	raw := e.env.GetHeader("From")
	if raw == "" {
		return nil
	}
	addrs, err := mail.ParseAddressList(raw)
	if err != nil {
		if a, errSingle := mail.ParseAddress(raw); errSingle == nil {
			return []string{strings.ToLower(a.Address)}
		}
		return nil
	}
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, strings.ToLower(a.Address))
	}
	return out
}

// Text returns the decoded plain-text body, empty when the message has none.
func (e *Envelope) Text() string { return e.env.Text }

// HTML returns the decoded HTML body, empty when the message has none.
func (e *Envelope) HTML() string { return e.env.HTML }

// BodyText returns the plain-text body when present, otherwise the HTML body
// stripped to whitespace-collapsed text.
func (e *Envelope) BodyText() string {
	if t := strings.TrimSpace(e.env.Text); t != "" {
		return t
	}
	return HTMLToText(e.env.HTML)
}

// Raw returns the raw transport-level bytes the envelope was parsed from.
func (e *Envelope) Raw() []byte { return e.raw }
