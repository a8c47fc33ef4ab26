package parsers

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/username/cachin/backend/src/mailmsg"
	"github.com/username/cachin/backend/src/models"
)

// ChaseSender originates the bank's direct-deposit and bill-payment alerts.
const ChaseSender = "no.reply.alerts@chase.com"

var (
	depositPattern = regexp.MustCompile(`(?i)You have a direct deposit of\s*(?:<[^>]*>)?\$?\s*([\d,\.]+)`)
	paymentPattern = regexp.MustCompile(`(?i)Your bill payment of \$([\d,]+(?:\.\d{2})?)\s+to\s+([^\n<]+)`)
	dollarPattern  = regexp.MustCompile(`\$?([\d,]+(?:\.\d{2})?)`)
)

// ChaseParser extracts direct deposits and bill payments from bank alert
// emails. Deposits are inflows and therefore negated.
type ChaseParser struct{}

func NewChaseParser() *ChaseParser { return &ChaseParser{} }

func (p *ChaseParser) Parse(env *mailmsg.Envelope) models.ParseResult {
	body := env.BodyText()

	var amount decimal.NullDecimal
	description := ""
	var trail []models.Event

	if m := depositPattern.FindStringSubmatch(body); m != nil {
		if d, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", "")); err == nil {
			amount = decimal.NullDecimal{Decimal: d.Neg(), Valid: true}
			description = "DIRECT DEPOSIT"
		}
	} else if m := paymentPattern.FindStringSubmatch(body); m != nil {
		if d, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", "")); err == nil {
			amount = decimal.NullDecimal{Decimal: d, Valid: true}
			description = "BILL PAYMENT: " + strings.TrimSpace(m[2])
		}
	}

	// Neither pattern matched: fall back to the first dollar-looking value.
	if !amount.Valid {
		if m := dollarPattern.FindStringSubmatch(body); m != nil {
			if d, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", "")); err == nil {
				amount = decimal.NullDecimal{Decimal: d, Valid: true}
				description = env.Subject()
				if description == "" {
					description = "Chase transaction"
				}
				trail = append(trail, models.Event{Message: "generic amount scan used"})
			}
		}
	}

	externalID := env.MessageID()
	if externalID == "" {
		externalID = fmt.Sprintf("chase:%s:%s", description, amountString(amount))
	}

	cand := &models.Candidate{
		Description: description,
		Source:      "chase",
		Currency:    "USD",
		Amount:      amount,
		ExternalID:  externalID,
		RawBody:     body,
		Subject:     env.Subject(),
		FromEmails:  env.FromEmails(),
		MessageID:   env.MessageID(),
	}

	if !amount.Valid {
		return models.Invalid("Missing amount", cand, trail...)
	}
	return models.Parsed(cand, trail...)
}
