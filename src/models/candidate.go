package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candidate is the normalized extraction result from one raw message. It is
// the shared output shape of every format parser and exists only in memory
// between parsing and materialization.
type Candidate struct {
	Description string              `json:"description"`
	Source      string              `json:"source,omitempty"`
	Currency    string              `json:"currency"`
	Amount      decimal.NullDecimal `json:"amount"`
	Comments    string              `json:"comments,omitempty"`
	ExternalID  string              `json:"external_id"`

	// Explicit transaction date extracted from the message body, when the
	// format carries one. Overrides the message envelope date.
	Date *time.Time `json:"date,omitempty"`

	RawBody    string   `json:"raw_body,omitempty"`
	Subject    string   `json:"subject,omitempty"`
	FromEmails []string `json:"from_emails,omitempty"`
	MessageID  string   `json:"message_id,omitempty"`

	// Set only by the trade-confirmation parser.
	Trade *TradeDetails `json:"trade,omitempty"`
}

// TradeDetails carries the fields needed to create the paired cash
// transaction and position record for a brokerage trade.
type TradeDetails struct {
	Symbol     string          `json:"symbol"`
	Bought     bool            `json:"bought"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// HasAmount reports whether the parser extracted a usable amount.
func (c *Candidate) HasAmount() bool {
	return c != nil && c.Amount.Valid
}
