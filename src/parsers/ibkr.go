package parsers

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/username/cachin/backend/src/mailmsg"
	"github.com/username/cachin/backend/src/models"
)

// IBKRSender originates brokerage trade confirmation emails.
const IBKRSender = "tradingassistant@interactivebrokers.com"

// Subject line format: "BOUGHT 10 AAPL @ 150.50" or "SOLD 5.5 MSFT @ 300.25".
var tradeSubjectPattern = regexp.MustCompile(`(?i)(BOUGHT|SOLD)\s+(\d+\.?\d*|\.\d+)\s+([A-Z0-9]+(?:\s+[A-Z]+)*)\s+@\s+(\d+\.?\d*|\.\d+)`)

// IBKRParser extracts trade confirmations from the subject line. A message
// whose subject doesn't match is not in this format.
type IBKRParser struct{}

func NewIBKRParser() *IBKRParser { return &IBKRParser{} }

func (p *IBKRParser) Parse(env *mailmsg.Envelope) models.ParseResult {
	subject := env.Subject()

	m := tradeSubjectPattern.FindStringSubmatch(subject)
	if m == nil {
		return models.NoMatch()
	}

	action := strings.ToUpper(m[1])
	bought := action == "BOUGHT"

	quantity, errQty := decimal.NewFromString(m[2])
	symbol := strings.ToUpper(strings.TrimSpace(m[3]))
	unitPrice, errPrice := decimal.NewFromString(m[4])
	if errQty != nil || errPrice != nil {
		return models.NoMatch()
	}

	externalID := env.MessageID()
	if externalID == "" {
		externalID = fmt.Sprintf("ibkr:%s:%s:%s:%s", action, symbol, quantity.String(), unitPrice.String())
	}

	cand := &models.Candidate{
		Source:     "ibkr",
		Currency:   "USD",
		ExternalID: externalID,
		Subject:    subject,
		FromEmails: env.FromEmails(),
		MessageID:  env.MessageID(),
		Trade: &models.TradeDetails{
			Symbol:     symbol,
			Bought:     bought,
			Quantity:   quantity,
			UnitPrice:  unitPrice,
			TotalValue: quantity.Mul(unitPrice),
		},
	}
	return models.Parsed(cand)
}
