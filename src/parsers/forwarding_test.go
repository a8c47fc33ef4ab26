package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsForwardingConfirmation(t *testing.T) {
	assert.True(t, IsForwardingConfirmation(ForwardingSender,
		"(#123456789) Confirmación de reenvío de Gmail: recibir correo de user@example.com"))
	assert.True(t, IsForwardingConfirmation(ForwardingSender,
		"(#123456789) Gmail Forwarding Confirmation - Receive Mail from user@example.com"))

	// RFC 2047 encoded subject straight from the stored header.
	assert.True(t, IsForwardingConfirmation(ForwardingSender,
		"=?UTF-8?Q?Confirmaci=C3=B3n_de_reenv=C3=ADo_de_Gmail?="))

	assert.False(t, IsForwardingConfirmation("other@example.com",
		"Confirmación de reenvío de Gmail"))
	assert.False(t, IsForwardingConfirmation(ForwardingSender, "Security alert"))
}

func TestParseForwardingEmail(t *testing.T) {
	raw := []byte("From: " + ForwardingSender + "\r\n" +
		"Subject: Confirmacion de reenvio\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		"user@example.com ha solicitado reenviar su correo.\r\n" +
		"Haga clic para confirmar:\r\n" +
		"https://mail-settings.google.com/mail/vf-ABC123=\r\n" +
		"DEF456-XYZ\r\n")

	res := ParseForwardingEmail(raw)
	assert.Equal(t, "https://mail-settings.google.com/mail/vf-ABC123DEF456-XYZ", res.ConfirmationLink)
	assert.Equal(t, "user@example.com", res.ForwardingEmail)
}

func TestParseForwardingEmailNoLink(t *testing.T) {
	raw := []byte("From: " + ForwardingSender + "\r\nSubject: x\r\n\r\nNothing here.\r\n")

	res := ParseForwardingEmail(raw)
	assert.Empty(t, res.ConfirmationLink)
	assert.Empty(t, res.ForwardingEmail)
}

func TestParseForwardingEmailTrimsTrailingPunctuation(t *testing.T) {
	raw := []byte("Body: https://mail-settings.google.com/mail/vf-TOKEN123.\r\n")

	res := ParseForwardingEmail(raw)
	assert.Equal(t, "https://mail-settings.google.com/mail/vf-TOKEN123", res.ConfirmationLink)
}
