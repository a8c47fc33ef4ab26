package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/username/cachin/backend/src/logger"
	"github.com/username/cachin/backend/src/models"
)

// matchedRule runs only the routing predicates, no handlers.
func matchedRule(s *Service, msg *models.EmailMessage) string {
	for _, r := range s.rules {
		if r.Match(nil, msg) {
			return r.Name
		}
	}
	return ""
}

func TestRuleOrder(t *testing.T) {
	logger.InitLogger("error")
	s := NewService(nil, nil)

	cases := []struct {
		name    string
		from    string
		subject string
		raw     string
		want    string
	}{
		{
			name:    "forwarding confirmation",
			from:    "forwarding-noreply@google.com",
			subject: "Confirmación de reenvío de Gmail",
			want:    "forwarding-confirmation",
		},
		{
			name:    "chase direct deposit",
			from:    "no.reply.alerts@chase.com",
			subject: "You have a Direct Deposit",
			want:    "chase",
		},
		{
			name:    "chase without deposit or payment subject",
			from:    "no.reply.alerts@chase.com",
			subject: "Your statement is ready",
			want:    "",
		},
		{
			name:    "ibkr by sender alone",
			from:    "tradingassistant@interactivebrokers.com",
			subject: "BOUGHT 10 AAPL @ 150.50",
			want:    "ibkr",
		},
		{
			name:    "visa by sender",
			from:    "donotreplyalertadecomprasvisa@visa.com",
			subject: "Alerta de compra",
			want:    "visa",
		},
		{
			name:    "visa by subject keyword",
			from:    "someone@example.com",
			subject: "Compra VISA aprobada",
			want:    "visa",
		},
		{
			name:    "alignet by subject",
			from:    "someone@example.com",
			subject: "Su código de seguridad",
			want:    "alignet",
		},
		{
			name:    "wallet by sender",
			from:    "noreply@midinero.com.uy",
			subject: "Aviso consumo por $ 100,00",
			want:    "midinero",
		},
		{
			name:    "wallet by raw body scan",
			from:    "forwarder@example.com",
			subject: "Fwd: aviso",
			raw:     "forwarded content from noreply@MIDINERO.com.uy\r\n",
			want:    "midinero",
		},
		{
			name:    "display name sender is unwrapped",
			from:    "\"Chase Alerts\" <No.Reply.Alerts@chase.com>",
			subject: "Bill Payment sent",
			want:    "chase",
		},
		{
			name:    "unrecognized",
			from:    "stranger@example.com",
			subject: "Hello",
			want:    "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg := &models.EmailMessage{
				FromAddress: tc.from,
				Subject:     tc.subject,
				RawEML:      []byte(tc.raw),
			}
			assert.Equal(t, tc.want, matchedRule(s, msg))
		})
	}
}

func TestSenderAddress(t *testing.T) {
	assert.Equal(t, "alerts@example.com", senderAddress("Alerts <Alerts@Example.com>"))
	assert.Equal(t, "alerts@example.com", senderAddress("alerts@example.com"))
	assert.Equal(t, "not an address", senderAddress("  Not An Address "))
}

func TestTruncateError(t *testing.T) {
	long := make([]rune, 600)
	for i := range long {
		long[i] = 'x'
	}
	assert.Len(t, truncateError(string(long)), maxErrorLength)
	assert.Equal(t, "short", truncateError("short"))
}
