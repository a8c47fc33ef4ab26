package parsers

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/username/cachin/backend/src/mailmsg"
	"github.com/username/cachin/backend/src/models"
)

// Parser extracts a transaction candidate from one decoded email message.
// Implementations are pure text processing: no I/O, no logging (diagnostics
// travel on the result's Trail).
type Parser interface {
	Parse(env *mailmsg.Envelope) models.ParseResult
}

var numberPattern = regexp.MustCompile(`[-+]?\d+[.,]?\d*`)

// parseLooseDecimal finds the first number in s, accepting both comma and
// period as decimal separator.
func parseLooseDecimal(s string) (decimal.Decimal, bool) {
	n := numberPattern.FindString(s)
	if n == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(n, ",", "."))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func amountString(a decimal.NullDecimal) string {
	if !a.Valid {
		return ""
	}
	return a.Decimal.String()
}
