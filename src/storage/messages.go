package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/username/cachin/backend/src/models"
)

// MessageStore persists stored email messages. The raw bytes are written
// once by the mail-fetching collaborator; the ingest core only stamps the
// processing outcome and the extracted confirmation link.
type MessageStore struct {
	db *sql.DB
}

func NewMessageStore(db *sql.DB) *MessageStore {
	return &MessageStore{db: db}
}

const messageColumns = `id, user_id, message_id, subject, from_address, to_addresses, date, raw_eml, downloaded_at, processed_at, processing_error, confirmation_link, confirmation_fetched_at`

// Insert stores a new raw message. Used by the mail-fetching collaborator
// and by tests; the ingest core never creates messages.
func (s *MessageStore) Insert(ctx context.Context, m *models.EmailMessage) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO email_messages (user_id, message_id, subject, from_address, to_addresses, date, raw_eml) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.UserID, m.MessageID, m.Subject, m.FromAddress, m.ToAddresses, nullableTime(m.Date), m.RawEML)
	if err != nil {
		return fmt.Errorf("storage: inserting email message: %w", err)
	}
	m.ID, _ = res.LastInsertId()
	return nil
}

// ListUnprocessed returns the batch working set: every message without a
// processed_at stamp, oldest first.
func (s *MessageStore) ListUnprocessed(ctx context.Context) ([]models.EmailMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM email_messages WHERE processed_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("storage: listing unprocessed messages: %w", err)
	}
	defer rows.Close()

	var msgs []models.EmailMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterating unprocessed messages: %w", err)
	}
	return msgs, nil
}

// Get returns one message by id.
func (s *MessageStore) Get(ctx context.Context, id int64) (*models.EmailMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM email_messages WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("storage: fetching message %d: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("storage: fetching message %d: %w", id, err)
		}
		return nil, sql.ErrNoRows
	}
	m, err := scanMessage(rows)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// MarkProcessed stamps the processing outcome. processingError is empty on
// success; it must already be truncated by the caller.
func (s *MessageStore) MarkProcessed(ctx context.Context, id int64, processingError string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE email_messages SET processed_at = ?, processing_error = ? WHERE id = ?`,
		time.Now().UTC(), processingError, id)
	if err != nil {
		return fmt.Errorf("storage: marking message %d processed: %w", id, err)
	}
	return nil
}

// SetConfirmationLink stores an extracted forwarding-confirmation link for
// an external collaborator to act on.
func (s *MessageStore) SetConfirmationLink(ctx context.Context, id int64, link string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE email_messages SET confirmation_link = ? WHERE id = ?`, link, id)
	if err != nil {
		return fmt.Errorf("storage: storing confirmation link for message %d: %w", id, err)
	}
	return nil
}

// ListUnfetchedConfirmations returns processed messages carrying a
// confirmation link that has not been fetched yet.
func (s *MessageStore) ListUnfetchedConfirmations(ctx context.Context) ([]models.EmailMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM email_messages WHERE confirmation_link != '' AND confirmation_fetched_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("storage: listing unfetched confirmations: %w", err)
	}
	defer rows.Close()

	var msgs []models.EmailMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterating unfetched confirmations: %w", err)
	}
	return msgs, nil
}

// MarkConfirmationFetched records that the stored link was fetched.
func (s *MessageStore) MarkConfirmationFetched(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE email_messages SET confirmation_fetched_at = ? WHERE id = ?`,
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("storage: marking confirmation fetched for message %d: %w", id, err)
	}
	return nil
}

func scanMessage(rows *sql.Rows) (models.EmailMessage, error) {
	var m models.EmailMessage
	var date, downloadedAt, processedAt, fetchedAt sql.NullTime
	err := rows.Scan(&m.ID, &m.UserID, &m.MessageID, &m.Subject, &m.FromAddress, &m.ToAddresses,
		&date, &m.RawEML, &downloadedAt, &processedAt, &m.ProcessingError, &m.ConfirmationLink, &fetchedAt)
	if err != nil {
		return models.EmailMessage{}, fmt.Errorf("storage: scanning email message: %w", err)
	}
	if date.Valid {
		m.Date = &date.Time
	}
	if downloadedAt.Valid {
		m.DownloadedAt = downloadedAt.Time
	}
	if processedAt.Valid {
		m.ProcessedAt = &processedAt.Time
	}
	if fetchedAt.Valid {
		m.ConfirmationFetchedAt = &fetchedAt.Time
	}
	return m, nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
