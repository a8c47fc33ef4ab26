package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/username/cachin/backend/src/logger"
	"github.com/username/cachin/backend/src/mailmsg"
	"github.com/username/cachin/backend/src/models"
	"github.com/username/cachin/backend/src/parsers"
	"github.com/username/cachin/backend/src/storage"
)

// handleForwarding extracts the confirmation link from a provider
// forwarding-confirmation email and stores it for the link fetcher.
// Always consumes the message.
func (s *Service) handleForwarding(ctx context.Context, env *mailmsg.Envelope, msg *models.EmailMessage) (int, string, error) {
	logger.L.Info("Forwarding confirmation detected", "messageID", msg.MessageID)

	res := parsers.ParseForwardingEmail(msg.RawEML)
	if res.ConfirmationLink == "" {
		logger.L.Warn("No confirmation link found in forwarding email", "messageID", msg.MessageID)
		return 1, "", nil
	}

	if err := s.messages.SetConfirmationLink(ctx, msg.ID, res.ConfirmationLink); err != nil {
		return 1, fmt.Sprintf("Gmail forwarding error: %v", err), nil
	}
	logger.L.Info("Stored forwarding confirmation link",
		"messageID", msg.MessageID, "forwardingEmail", res.ForwardingEmail)
	return 1, "", nil
}

// handleVisa gates on the alert sender after parsing, then materializes
// the candidate. Forwarded alerts pass the gate through the parsed From
// chain or the raw body.
func (s *Service) handleVisa(ctx context.Context, p parsers.Parser, env *mailmsg.Envelope, msg *models.EmailMessage) (int, string, error) {
	result := p.Parse(env)
	logTrail(msg, result.Trail)

	cand := result.Candidate
	sender := senderAddress(msg.FromAddress)
	allowed := sender == parsers.VisaSender
	if cand != nil && !allowed {
		for _, addr := range cand.FromEmails {
			if addr == parsers.VisaSender {
				allowed = true
				break
			}
		}
		if !allowed && strings.Contains(strings.ToLower(cand.RawBody), parsers.VisaSender) {
			allowed = true
		}
	}
	if !allowed {
		return 0, "skipped_non_visa_sender", nil
	}

	if result.Status != models.StatusParsed {
		return 0, result.Reason, nil
	}
	return s.createTransaction(ctx, msg, cand)
}

func (s *Service) handleChase(ctx context.Context, p parsers.Parser, env *mailmsg.Envelope, msg *models.EmailMessage) (int, string, error) {
	result := p.Parse(env)
	logTrail(msg, result.Trail)
	if result.Status != models.StatusParsed {
		return 0, result.Reason, nil
	}
	return s.createTransaction(ctx, msg, result.Candidate)
}

func (s *Service) handleAlignet(ctx context.Context, p parsers.Parser, env *mailmsg.Envelope, msg *models.EmailMessage) (int, string, error) {
	result := p.Parse(env)
	logTrail(msg, result.Trail)
	if result.Status != models.StatusParsed {
		return 0, result.Reason, nil
	}
	return s.createTransaction(ctx, msg, result.Candidate)
}

func (s *Service) handleMidinero(ctx context.Context, p parsers.Parser, env *mailmsg.Envelope, msg *models.EmailMessage) (int, string, error) {
	result := p.Parse(env)
	logTrail(msg, result.Trail)
	switch result.Status {
	case models.StatusNoMatch:
		return 0, "Not a recognized Midinero format", nil
	case models.StatusInvalid:
		return 0, result.Reason, nil
	}
	return s.createTransaction(ctx, msg, result.Candidate)
}

// handleIBKR materializes a trade confirmation: a position record and its
// paired cash transaction, created atomically. Duplicate trades park in
// pending_transactions instead.
func (s *Service) handleIBKR(ctx context.Context, p parsers.Parser, env *mailmsg.Envelope, msg *models.EmailMessage) (int, string, error) {
	result := p.Parse(env)
	logTrail(msg, result.Trail)
	if result.Status != models.StatusParsed {
		return 0, "Failed to parse IBKR trade", nil
	}
	cand := result.Candidate
	trade := cand.Trade

	exists, err := s.ledger.StockExists(ctx, msg.UserID, cand.ExternalID)
	if err != nil {
		return 0, "", err
	}
	if exists {
		logger.L.Warn("Duplicate stock operation moved to pending",
			"messageID", msg.MessageID, "externalID", cand.ExternalID)
		if err := s.moveToPending(ctx, msg, cand, models.ReasonDuplicateStock); err != nil {
			return 0, "", err
		}
		return 1, "", nil
	}

	txDate := time.Now()
	if msg.Date != nil {
		txDate = *msg.Date
	}

	action := "SELL"
	cash := trade.TotalValue.Neg()
	if trade.Bought {
		action = "BUY"
		cash = trade.TotalValue
	}

	sourceID, err := s.ledger.GetOrCreateSource(ctx, msg.UserID, cand.Source)
	if err != nil {
		return 0, "", err
	}

	tx := models.Transaction{
		UserID:      msg.UserID,
		Date:        txDate,
		Description: fmt.Sprintf("%s %s %s @ $%s", action, trade.Quantity.String(), trade.Symbol, trade.UnitPrice.String()),
		Amount:      cash,
		Currency:    "USD",
		SourceID:    sourceID,
		ExternalID:  cand.ExternalID,
		Status:      models.StatusConfirmed,
	}
	st := models.Stock{
		UserID:     msg.UserID,
		Date:       txDate,
		Symbol:     trade.Symbol,
		Bought:     trade.Bought,
		Quantity:   trade.Quantity,
		UnitPrice:  trade.UnitPrice,
		ExternalID: cand.ExternalID,
	}

	if err := s.ledger.CreateTrade(ctx, &tx, &st); err != nil {
		if storage.IsUniqueViolation(err) {
			logger.L.Warn("Trade collided on external id, moved to pending",
				"messageID", msg.MessageID, "externalID", cand.ExternalID)
			if perr := s.moveToPending(ctx, msg, cand, models.ReasonDuplicate); perr != nil {
				return 0, "", perr
			}
			return 1, "", nil
		}
		return 0, "", err
	}

	logger.L.Info("Created trade records",
		"stockID", st.ID, "transactionID", tx.ID, "action", action,
		"symbol", st.Symbol, "quantity", st.Quantity.String(), "messageID", msg.MessageID)
	return 1, "", nil
}
