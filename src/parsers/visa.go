package parsers

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/username/cachin/backend/src/mailmsg"
	"github.com/username/cachin/backend/src/models"
)

// VisaSender is the only address allowed to originate card purchase alerts.
// The ingest layer gates on it (envelope sender, parsed From list, or body
// substring for forwarded mail).
const VisaSender = "donotreplyalertadecomprasvisa@visa.com"

// Currencies the alerts are normally denominated in. Anything else with an
// approximated USD value gets converted.
var homeCurrencies = map[string]bool{"USD": true, "UYU": true}

var approxUSDPattern = regexp.MustCompile(`(?i)([-+]?\d+[.,]?\d*)\s*\(aproximadamente\s+([-+]?\d+[.,]?\d*)\s+USD\)`)

// VisaParser extracts purchase data from card network alert emails.
// Fields come from labeled "Comercio/Tarjeta/Moneda/Monto" lines.
type VisaParser struct{}

func NewVisaParser() *VisaParser { return &VisaParser{} }

func (p *VisaParser) Parse(env *mailmsg.Envelope) models.ParseResult {
	body := env.BodyText()

	comercio := mailmsg.ExtractField(body, "Comercio")
	tarjeta := mailmsg.ExtractField(body, "Tarjeta")
	moneda := mailmsg.ExtractField(body, "Moneda")
	montoRaw := mailmsg.ExtractField(body, "Monto")

	description := comercio
	if description == "" {
		description = env.Subject()
	}
	source := ""
	if tarjeta != "" {
		source = "visa:" + tarjeta
	}
	currency := ""
	if fields := strings.Fields(moneda); len(fields) > 0 {
		currency = strings.ToUpper(fields[0])
	}

	var amount decimal.NullDecimal
	comments := ""
	var trail []models.Event

	if montoRaw != "" {
		// "4.99 (aproximadamente 6.05 USD)": when the purchase currency is
		// not a home currency, the approximated USD value becomes the
		// amount and the original value is preserved as a comment.
		if m := approxUSDPattern.FindStringSubmatch(montoRaw); m != nil && !homeCurrencies[currency] {
			orig, errOrig := decimal.NewFromString(strings.ReplaceAll(m[1], ",", "."))
			approx, errApprox := decimal.NewFromString(strings.ReplaceAll(m[2], ",", "."))
			if errOrig == nil && errApprox == nil {
				amount = decimal.NullDecimal{Decimal: approx, Valid: true}
				comments = fmt.Sprintf("Original: %s %s", orig.String(), currency)
				currency = "USD"
				trail = append(trail, models.Event{
					Message: "approximated USD value used as amount",
					Fields:  map[string]string{"original": orig.String()},
				})
			}
		}
		if !amount.Valid {
			if d, ok := parseLooseDecimal(montoRaw); ok {
				amount = decimal.NullDecimal{Decimal: d, Valid: true}
			}
		}
	}

	externalID := env.MessageID()
	if externalID == "" {
		externalID = fmt.Sprintf("visa:%s:%s:%s:%s", description, source, amountString(amount), currency)
	}

	cand := &models.Candidate{
		Description: description,
		Source:      source,
		Currency:    currency,
		Amount:      amount,
		Comments:    comments,
		ExternalID:  externalID,
		RawBody:     body,
		Subject:     env.Subject(),
		FromEmails:  env.FromEmails(),
		MessageID:   env.MessageID(),
	}

	if !amount.Valid || currency == "" {
		return models.Invalid("Missing amount or currency", cand, trail...)
	}
	return models.Parsed(cand, trail...)
}
