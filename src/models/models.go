package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction status values.
const (
	StatusConfirmed        = "confirmed"
	StatusPendingDuplicate = "pending_duplicate"
)

// Pending-transaction reasons.
const (
	ReasonDuplicate      = "duplicate"
	ReasonDuplicateStock = "duplicate_stock"
)

// EmailMessage is one stored email, downloaded by the mail-fetching
// collaborator. The ingest core only ever reads it and stamps the
// processing outcome; the raw bytes are immutable once stored.
type EmailMessage struct {
	ID          int64
	UserID      int64
	MessageID   string
	Subject     string
	FromAddress string
	ToAddresses string // comma-separated
	Date        *time.Time
	RawEML      []byte

	DownloadedAt    time.Time
	ProcessedAt     *time.Time
	ProcessingError string

	// Forwarding-confirmation link extracted from provider confirmation
	// emails, for an external collaborator (or a human) to fetch.
	ConfirmationLink      string
	ConfirmationFetchedAt *time.Time
}

// Source is a per-user transaction origin label, e.g. "chase", "visa:3048",
// "midinero:123456".
type Source struct {
	ID     int64
	UserID int64
	Name   string
}

// Transaction is a persisted financial record. Amount sign convention:
// positive = outflow/expense, negative = inflow/income.
type Transaction struct {
	ID          int64
	UserID      int64
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Currency    string
	SourceID    *int64
	Comments    string
	ExternalID  string
	Status      string
}

// Stock is a brokerage trade record, created atomically together with its
// paired cash Transaction.
type Stock struct {
	ID            int64
	UserID        int64
	Date          time.Time
	Symbol        string
	Bought        bool // true for buy, false for sell
	Quantity      decimal.Decimal
	UnitPrice     decimal.Decimal
	ExternalID    string
	TransactionID *int64
}

// PendingTransaction parks a candidate whose external id collided with an
// existing record, for later manual review. Append-only.
type PendingTransaction struct {
	ID         int64
	UserID     int64
	ExternalID string
	Payload    []byte // JSON-encoded Candidate
	Reason     string
	CreatedAt  time.Time
}
