package ingest

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/username/cachin/backend/src/logger"
	"github.com/username/cachin/backend/src/mailmsg"
	"github.com/username/cachin/backend/src/models"
	"github.com/username/cachin/backend/src/storage"
)

const maxErrorLength = 500

// Service is the ingest core: it drains unprocessed messages, routes each
// one to a format handler and stamps the outcome. Safe to run repeatedly;
// a message is only ever picked up once.
type Service struct {
	messages *storage.MessageStore
	ledger   *storage.LedgerStore
	rules    []Rule
}

func NewService(messages *storage.MessageStore, ledger *storage.LedgerStore) *Service {
	s := &Service{
		messages: messages,
		ledger:   ledger,
	}
	s.rules = s.buildRules()
	return s
}

// BatchSummary reports one ProcessBatch run.
type BatchSummary struct {
	Processed int // messages stamped this run
	Records   int // financial records created (confirmed or pending)
	Failed    int // messages stamped with a non-empty processing error
}

// ProcessBatch processes every unprocessed message once. Per-message
// failures are stamped on the message and never abort the batch; only
// listing failures and context cancellation return an error.
func (s *Service) ProcessBatch(ctx context.Context) (BatchSummary, error) {
	var sum BatchSummary

	msgs, err := s.messages.ListUnprocessed(ctx)
	if err != nil {
		return sum, fmt.Errorf("ingest: listing unprocessed messages: %w", err)
	}

	for i := range msgs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		msg := &msgs[i]
		logger.L.Info("Processing email message",
			"messageID", msg.MessageID, "subject", msg.Subject, "userID", msg.UserID)

		records, stamp := s.processOne(ctx, msg)

		if err := s.messages.MarkProcessed(ctx, msg.ID, truncateError(stamp)); err != nil {
			logger.L.Error("Failed to stamp message outcome",
				"messageID", msg.MessageID, "error", err)
			return sum, fmt.Errorf("ingest: stamping message %d: %w", msg.ID, err)
		}

		sum.Processed++
		sum.Records += records
		if stamp != "" {
			sum.Failed++
			logger.L.Warn("Message processed with error",
				"messageID", msg.MessageID, "processingError", truncateError(stamp))
		}
	}
	return sum, nil
}

// processOne routes one message and returns the record count plus the
// processing-error stamp (empty on success). A panic in a parser or
// handler is contained here and stamped on the message.
func (s *Service) processOne(ctx context.Context, msg *models.EmailMessage) (records int, stamp string) {
	defer func() {
		if r := recover(); r != nil {
			logger.L.Error("Recovered panic while processing message",
				"messageID", msg.MessageID, "panic", r)
			records, stamp = 0, fmt.Sprintf("panic: %v", r)
		}
	}()

	env, err := mailmsg.Parse(msg.RawEML)
	if err != nil {
		return 0, formatError(err)
	}

	for _, rule := range s.rules {
		if !rule.Match(env, msg) {
			continue
		}
		records, stamp, err := rule.Handle(ctx, env, msg)
		if err != nil {
			return records, formatError(err)
		}
		return records, stamp
	}

	return 0, "Unrecognized sender: " + senderAddress(msg.FromAddress)
}

// senderAddress extracts the bare lowercased address from a From header
// value, tolerating display names and malformed input.
func senderAddress(from string) string {
	if addr, err := mail.ParseAddress(from); err == nil {
		return strings.ToLower(addr.Address)
	}
	return strings.ToLower(strings.TrimSpace(from))
}

// formatError renders an unexpected error as "<kind>: <detail>".
func formatError(err error) string {
	return fmt.Sprintf("%T: %v", err, err)
}

func truncateError(s string) string {
	r := []rune(s)
	if len(r) > maxErrorLength {
		return string(r[:maxErrorLength])
	}
	return s
}

func logTrail(msg *models.EmailMessage, trail []models.Event) {
	for _, ev := range trail {
		attrs := []any{"messageID", msg.MessageID}
		for k, v := range ev.Fields {
			attrs = append(attrs, k, v)
		}
		logger.L.Debug(ev.Message, attrs...)
	}
}
