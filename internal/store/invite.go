package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/quietcuration/internal/database"
	"github.com/dukerupert/quietcuration/internal/id"
	"github.com/dukerupert/quietcuration/internal/model"
)

// UnknownCurationID marks a synthesized delivery row whose original insert failed.
const UnknownCurationID = "unknown"

type InviteStore struct {
	db *database.DB
}

func NewInviteStore(db *database.DB) *InviteStore {
	return &InviteStore{db: db}
}

func scanDelivery(s scanner) (*model.InviteDelivery, error) {
	var d model.InviteDelivery
	var errMsg, provider, providerMsgID sql.NullString
	var lastAttempt sql.NullTime
	err := s.Scan(
		&d.ID, &d.UserID, &d.DeliveryDate, &d.Channel, &d.CurationID, &d.Status, &d.RetryCount,
		&errMsg, &provider, &providerMsgID, &lastAttempt, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.ErrorMessage = stringPtr(errMsg)
	d.Provider = stringPtr(provider)
	d.ProviderMessageID = stringPtr(providerMsgID)
	d.LastAttemptAt = timePtr(lastAttempt)
	return &d, nil
}

const deliveryCols = `id, user_id, delivery_date, channel, curation_id, status, retry_count, error_message, provider, provider_message_id, last_attempt_at, created_at, updated_at`

// TryInsert creates a pending delivery row for (user, date). When a row for
// that pair already exists the result is Created=false and nothing is written.
// Any other failure is returned as an error.
func (s *InviteStore) TryInsert(ctx context.Context, userID, date, curationID string) (InsertResult[model.InviteDelivery], error) {
	did, err := id.Generate(id.Delivery)
	if err != nil {
		return InsertResult[model.InviteDelivery]{}, err
	}
	ts := now()
	d := &model.InviteDelivery{
		ID:           did,
		UserID:       userID,
		DeliveryDate: date,
		Channel:      model.ChannelEmail,
		CurationID:   curationID,
		Status:       model.DeliveryPending,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO invite_deliveries (id, user_id, delivery_date, channel, curation_id, status, retry_count, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		d.ID, d.UserID, d.DeliveryDate, d.Channel, d.CurationID, d.Status, d.CreatedAt, d.UpdatedAt,
	)
	if database.IsUniqueViolation(err) {
		return InsertResult[model.InviteDelivery]{}, nil
	}
	if err != nil {
		return InsertResult[model.InviteDelivery]{}, fmt.Errorf("insert invite delivery: %w", err)
	}
	return InsertResult[model.InviteDelivery]{Created: true, Row: d}, nil
}

// InsertFailed records a failed attempt for a recipient whose pending row could
// not be written. A row that already exists for (user, date) is left as is.
func (s *InviteStore) InsertFailed(ctx context.Context, userID, date, reason string, at time.Time) error {
	did, err := id.Generate(id.Delivery)
	if err != nil {
		return err
	}
	at = at.UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO invite_deliveries (id, user_id, delivery_date, channel, curation_id, status, retry_count, error_message, last_attempt_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?, ?, ?)
		 ON CONFLICT (user_id, delivery_date) DO NOTHING`,
		did, userID, date, model.ChannelEmail, UnknownCurationID, model.DeliveryFailed, reason, at, at, at,
	)
	if err != nil {
		return fmt.Errorf("insert failed invite delivery: %w", err)
	}
	return nil
}

// MarkSent records a successful send.
func (s *InviteStore) MarkSent(ctx context.Context, deliveryID, provider, providerMessageID string, at time.Time) error {
	at = at.UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE invite_deliveries SET status = ?, error_message = NULL, provider = ?, provider_message_id = ?, last_attempt_at = ?, updated_at = ? WHERE id = ?`,
		model.DeliverySent, nullString(&provider), nullString(&providerMessageID), at, at, deliveryID,
	)
	if err != nil {
		return fmt.Errorf("mark invite sent: %w", err)
	}
	return nil
}

// MarkFailed records a failed send and increments retry_count.
func (s *InviteStore) MarkFailed(ctx context.Context, deliveryID, provider, reason string, at time.Time) error {
	at = at.UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE invite_deliveries SET status = ?, error_message = ?, provider = ?, retry_count = retry_count + 1, last_attempt_at = ?, updated_at = ? WHERE id = ?`,
		model.DeliveryFailed, reason, nullString(&provider), at, at, deliveryID,
	)
	if err != nil {
		return fmt.Errorf("mark invite failed: %w", err)
	}
	return nil
}

// ListRetryable returns rows for date still pending or failed with fewer than
// maxRetries attempts, restricted to userIDs.
func (s *InviteStore) ListRetryable(ctx context.Context, date string, userIDs []string, maxRetries int) ([]model.InviteDelivery, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	args := []any{date, model.DeliveryPending, model.DeliveryFailed, maxRetries}
	for _, uid := range userIDs {
		args = append(args, uid)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+deliveryCols+` FROM invite_deliveries
		 WHERE delivery_date = ? AND status IN (?, ?) AND retry_count < ?
		   AND user_id IN (`+database.Placeholders(len(userIDs))+`)
		 ORDER BY created_at, id`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list retryable deliveries: %w", err)
	}
	defer rows.Close()

	var out []model.InviteDelivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (s *InviteStore) GetByUserAndDate(ctx context.Context, userID, date string) (*model.InviteDelivery, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+deliveryCols+` FROM invite_deliveries WHERE user_id = ? AND delivery_date = ?`,
		userID, date,
	)
	d, err := scanDelivery(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get invite delivery: %w", err)
	}
	return d, nil
}

// ListByDate returns every delivery row for date.
func (s *InviteStore) ListByDate(ctx context.Context, date string) ([]model.InviteDelivery, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+deliveryCols+` FROM invite_deliveries WHERE delivery_date = ? ORDER BY created_at, id`,
		date,
	)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	var out []model.InviteDelivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}
