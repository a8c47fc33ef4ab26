package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/cachin/backend/src/models"
)

func TestChaseParserDirectDeposit(t *testing.T) {
	raw := plainEmail(ChaseSender, "You have a direct deposit", "<chase-1@chase.com>",
		"You have a direct deposit of $1,234.56\r\nAccount ending in 1234\r\n")

	result := NewChaseParser().Parse(parseRaw(t, raw))
	require.Equal(t, models.StatusParsed, result.Status)

	cand := result.Candidate
	assert.Equal(t, "DIRECT DEPOSIT", cand.Description)
	assert.Equal(t, "-1234.56", cand.Amount.Decimal.String())
	assert.Equal(t, "USD", cand.Currency)
	assert.Equal(t, "chase", cand.Source)
}

func TestChaseParserBillPayment(t *testing.T) {
	raw := plainEmail(ChaseSender, "Your bill payment is complete", "<chase-2@chase.com>",
		"Your bill payment of $89.00 to Electric Co\r\nhas been sent.\r\n")

	result := NewChaseParser().Parse(parseRaw(t, raw))
	require.Equal(t, models.StatusParsed, result.Status)

	cand := result.Candidate
	assert.Equal(t, "BILL PAYMENT: Electric Co", cand.Description)
	assert.Equal(t, "89.00", cand.Amount.Decimal.String())
}

func TestChaseParserGenericFallback(t *testing.T) {
	raw := plainEmail(ChaseSender, "Chase alert", "<chase-3@chase.com>",
		"A charge of $12.34 was made on your card.\r\n")

	result := NewChaseParser().Parse(parseRaw(t, raw))
	require.Equal(t, models.StatusParsed, result.Status)

	cand := result.Candidate
	assert.Equal(t, "Chase alert", cand.Description)
	assert.Equal(t, "12.34", cand.Amount.Decimal.String())
	assert.NotEmpty(t, result.Trail)
}

func TestChaseParserMissingAmount(t *testing.T) {
	raw := plainEmail(ChaseSender, "Chase alert", "<chase-4@chase.com>",
		"No numeric content here.\r\n")

	result := NewChaseParser().Parse(parseRaw(t, raw))
	require.Equal(t, models.StatusInvalid, result.Status)
	assert.Equal(t, "Missing amount", result.Reason)
}
