package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/username/cachin/backend/src/logger"
	"github.com/username/cachin/backend/src/storage"
)

// ForwardingService confirms pending mail-forwarding requests by fetching
// the stored confirmation links. Fetches are rate-limited so a backlog of
// confirmations does not hammer the provider.
type ForwardingService struct {
	messages *storage.MessageStore
	client   *http.Client
	limiter  *rate.Limiter
}

func NewForwardingService(messages *storage.MessageStore, timeout time.Duration, fetchInterval time.Duration) *ForwardingService {
	return &ForwardingService{
		messages: messages,
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Every(fetchInterval), 1),
	}
}

// ConfirmPendingLinks fetches every stored, not-yet-fetched confirmation
// link once. A failed fetch is logged and left unfetched for the next run.
// Returns the number of links confirmed.
func (s *ForwardingService) ConfirmPendingLinks(ctx context.Context) (int, error) {
	msgs, err := s.messages.ListUnfetchedConfirmations(ctx)
	if err != nil {
		return 0, fmt.Errorf("services: listing confirmation links: %w", err)
	}

	confirmed := 0
	for _, msg := range msgs {
		if err := s.limiter.Wait(ctx); err != nil {
			return confirmed, err
		}
		if err := s.fetchLink(ctx, msg.ConfirmationLink); err != nil {
			logger.L.Warn("Failed to fetch confirmation link",
				"messageID", msg.MessageID, "error", err)
			continue
		}
		if err := s.messages.MarkConfirmationFetched(ctx, msg.ID); err != nil {
			return confirmed, err
		}
		logger.L.Info("Forwarding confirmation link fetched", "messageID", msg.MessageID)
		confirmed++
	}
	return confirmed, nil
}

func (s *ForwardingService) fetchLink(ctx context.Context, link string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching link: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
