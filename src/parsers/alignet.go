package parsers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/username/cachin/backend/src/mailmsg"
	"github.com/username/cachin/backend/src/models"
)

var (
	// Masked card number, e.g. "4111********1111".
	cardMaskPattern = regexp.MustCompile(`(\d{4})\*+(\d{4})`)

	// "UYU 4307.30" style lines, against the currency allow-list.
	currencyAmountLinePattern = regexp.MustCompile(`(?i)^(USD|UYU|EUR|UYS|ARS|BRL|CLP|PEN)\s+(\d+(?:[.,]\d{2})?)\s*$`)

	nonDigitPattern = regexp.MustCompile(`\D`)
)

// Lines containing any of these are never the merchant name.
var merchantSkipTokens = []string{"CLAVE:", "FECHA:", "HORA:", "UYU", "USD", "EUR", "RECUERDE"}

// AlignetParser extracts point-of-sale security-code alerts. The security
// code itself is never extracted or stored; only the last 4 card digits and
// the network detected from the leading BIN digits are kept.
type AlignetParser struct{}

func NewAlignetParser() *AlignetParser { return &AlignetParser{} }

// detectCardNetwork maps leading card digits onto an issuing network using
// the standard BIN ranges of the four major schemes.
func detectCardNetwork(binDigits string) string {
	digits := nonDigitPattern.ReplaceAllString(binDigits, "")
	if len(digits) < 2 {
		return "unknown"
	}

	if digits[0] == '4' {
		return "visa"
	}

	firstTwo := digits[:2]
	switch firstTwo {
	case "51", "52", "53", "54", "55":
		return "mastercard"
	}
	if len(digits) >= 4 {
		if n, err := strconv.Atoi(digits[:4]); err == nil && n >= 2221 && n <= 2720 {
			return "mastercard"
		}
	}

	if firstTwo == "34" || firstTwo == "37" {
		return "amex"
	}

	if len(digits) >= 4 && digits[:4] == "6011" {
		return "discover"
	}
	if firstTwo == "65" {
		return "discover"
	}
	if len(digits) >= 3 {
		switch digits[:3] {
		case "644", "645", "646", "647", "648", "649":
			return "discover"
		}
	}
	if len(digits) >= 6 {
		if n, err := strconv.Atoi(digits[:6]); err == nil && n >= 622126 && n <= 622925 {
			return "discover"
		}
	}

	return "unknown"
}

func (p *AlignetParser) Parse(env *mailmsg.Envelope) models.ParseResult {
	body := env.BodyText()
	lines := strings.Split(body, "\n")

	comercio := mailmsg.ExtractField(body, "Comercio")

	// No "Comercio:" label: the merchant is usually the first plausible
	// line following the masked card number.
	if comercio == "" {
	scan:
		for i, line := range lines {
			if !cardMaskPattern.MatchString(line) {
				continue
			}
			for j := i + 1; j < len(lines) && j < i+5; j++ {
				candidate := strings.TrimSpace(lines[j])
				if candidate == "" {
					continue
				}
				upper := strings.ToUpper(candidate)
				skip := false
				for _, token := range merchantSkipTokens {
					if strings.Contains(upper, token) {
						skip = true
						break
					}
				}
				if !skip {
					comercio = candidate
					break
				}
			}
			break scan
		}
	}

	description := comercio
	if description == "" {
		description = env.Subject()
	}
	if description == "" {
		description = "Alignet Transaction"
	}

	source := "alignet"
	if m := cardMaskPattern.FindStringSubmatch(body); m != nil {
		source = detectCardNetwork(m[1]) + ":" + m[2]
	}

	currency := ""
	var amount decimal.NullDecimal

	if moneda := mailmsg.ExtractField(body, "Moneda"); moneda != "" {
		if fields := strings.Fields(moneda); len(fields) > 0 {
			currency = strings.ToUpper(fields[0])
		}
	}
	if monto := mailmsg.ExtractField(body, "Monto"); monto != "" {
		if d, ok := parseLooseDecimal(monto); ok {
			amount = decimal.NullDecimal{Decimal: d, Valid: true}
		}
	}

	// Not labeled: look for a "CCC 1234.56" line.
	if currency == "" || !amount.Valid {
		for _, line := range lines {
			m := currencyAmountLinePattern.FindStringSubmatch(strings.TrimSpace(line))
			if m == nil {
				continue
			}
			currency = strings.ToUpper(m[1])
			if d, err := decimal.NewFromString(strings.ReplaceAll(m[2], ",", ".")); err == nil {
				amount = decimal.NullDecimal{Decimal: d, Valid: true}
			}
			break
		}
	}

	// Fecha: DD/MM/YYYY
	var txDate *time.Time
	if fecha := mailmsg.ExtractField(body, "Fecha"); fecha != "" {
		if t, err := time.Parse("02/01/2006", strings.TrimSpace(fecha)); err == nil {
			txDate = &t
		}
	}

	externalID := env.MessageID()
	if externalID == "" {
		dateStr := ""
		if txDate != nil {
			dateStr = txDate.Format("2006-01-02")
		}
		externalID = fmt.Sprintf("alignet:%s:%s:%s:%s", dateStr, source, amountString(amount), currency)
	}

	cand := &models.Candidate{
		Description: description,
		Source:      source,
		Currency:    currency,
		Amount:      amount,
		ExternalID:  externalID,
		Date:        txDate,
		RawBody:     body,
		Subject:     env.Subject(),
		FromEmails:  env.FromEmails(),
		MessageID:   env.MessageID(),
	}

	if !amount.Valid || currency == "" {
		return models.Invalid("Missing amount or currency", cand)
	}
	return models.Parsed(cand)
}
