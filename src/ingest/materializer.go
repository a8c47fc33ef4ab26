package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/username/cachin/backend/src/logger"
	"github.com/username/cachin/backend/src/models"
	"github.com/username/cachin/backend/src/storage"
)

// createTransaction turns a parsed candidate into a confirmed transaction.
// Known external ids park the candidate in pending_transactions instead;
// a unique-constraint race on insert is treated the same way.
func (s *Service) createTransaction(ctx context.Context, msg *models.EmailMessage, cand *models.Candidate) (int, string, error) {
	exists, err := s.ledger.TransactionExists(ctx, msg.UserID, cand.ExternalID)
	if err != nil {
		return 0, "", err
	}
	if exists {
		logger.L.Warn("Duplicate transaction moved to pending",
			"messageID", msg.MessageID, "externalID", cand.ExternalID)
		if err := s.moveToPending(ctx, msg, cand, models.ReasonDuplicate); err != nil {
			return 0, "", err
		}
		return 1, "", nil
	}

	sourceID, err := s.ledger.GetOrCreateSource(ctx, msg.UserID, cand.Source)
	if err != nil {
		return 0, "", err
	}

	txDate := time.Now()
	if cand.Date != nil {
		txDate = *cand.Date
	} else if msg.Date != nil {
		txDate = *msg.Date
	}

	tx := models.Transaction{
		UserID:      msg.UserID,
		Date:        txDate,
		Description: cand.Description,
		Amount:      cand.Amount.Decimal,
		Currency:    strings.ToUpper(cand.Currency),
		SourceID:    sourceID,
		Comments:    cand.Comments,
		ExternalID:  cand.ExternalID,
		Status:      models.StatusConfirmed,
	}
	if err := s.ledger.CreateTransaction(ctx, &tx); err != nil {
		if storage.IsUniqueViolation(err) {
			logger.L.Warn("Transaction collided on external id, moved to pending",
				"messageID", msg.MessageID, "externalID", cand.ExternalID)
			if perr := s.moveToPending(ctx, msg, cand, models.ReasonDuplicate); perr != nil {
				return 0, "", perr
			}
			return 1, "", nil
		}
		return 0, "", fmt.Errorf("creating transaction: %w", err)
	}

	logger.L.Info("Created transaction",
		"transactionID", tx.ID, "amount", tx.Amount.String(), "currency", tx.Currency,
		"description", tx.Description, "messageID", msg.MessageID)
	return 1, "", nil
}

// moveToPending parks the full candidate as JSON for manual review.
func (s *Service) moveToPending(ctx context.Context, msg *models.EmailMessage, cand *models.Candidate, reason string) error {
	payload, err := json.Marshal(cand)
	if err != nil {
		return fmt.Errorf("encoding pending payload: %w", err)
	}
	p := models.PendingTransaction{
		UserID:     msg.UserID,
		ExternalID: cand.ExternalID,
		Payload:    payload,
		Reason:     reason,
	}
	if err := s.ledger.CreatePending(ctx, &p); err != nil {
		return err
	}
	return nil
}
