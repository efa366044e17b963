package storage

import (
	"context"
	"database/sql"
	"time"

	"OpportunityScanner/internal/domain"
	"OpportunityScanner/internal/ports"
)

// NotificationLogRepository keeps the durable notification audit trail that
// backs cooldown and digest-interval decisions.
type NotificationLogRepository struct {
	db *sql.DB
}

var _ ports.NotificationLog = (*NotificationLogRepository)(nil)

// NewNotificationLogRepository wires a sql.DB implementation.
func NewNotificationLogRepository(db *sql.DB) *NotificationLogRepository {
	return &NotificationLogRepository{db: db}
}

// Record appends an audit entry.
func (r *NotificationLogRepository) Record(ctx context.Context, rec domain.NotificationRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notification_records (user_id, channel, sent_at, payload_ref)
		 VALUES ($1, $2, $3, $4)`,
		rec.UserID, string(rec.Channel), rec.SentAt, rec.PayloadRef)
	if err != nil {
		return &domain.StorageError{Op: "insert notification record", Err: err}
	}
	return nil
}

// LastSent returns the most recent send time for a user and channel, or the
// zero time when none exists.
func (r *NotificationLogRepository) LastSent(ctx context.Context, userID string, channel domain.NotificationChannel) (time.Time, error) {
	var last sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(sent_at) FROM notification_records WHERE user_id = $1 AND channel = $2`,
		userID, string(channel)).Scan(&last)
	if err != nil {
		return time.Time{}, &domain.StorageError{Op: "query last notification", Err: err}
	}
	if !last.Valid {
		return time.Time{}, nil
	}
	return last.Time, nil
}
