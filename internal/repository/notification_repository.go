package repository

import (
	"context"
	"database/sql"

	"github.com/leakwatch/leakwatch/internal/model"
)

// NotificationRepo persists dispatcher output.  Notifications are
// append-only; there is no update or delete path.
type NotificationRepo struct{ DB *sql.DB }

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{DB: db} }

// Create inserts a notification row and stamps the model with its id and
// creation time.
func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO notifications (channel_id, plumber_id, message, fingerprint) VALUES (?,?,?,?)",
		n.ChannelID, n.PlumberID, n.Message, n.Fingerprint)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return nil
}

// ListByPlumber returns a page of a plumber's notifications, newest first,
// for catch-up reads after reconnecting.
func (r *NotificationRepo) ListByPlumber(ctx context.Context, plumberID uint64, page, limit int) ([]model.Notification, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications WHERE plumber_id=?", plumberID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, channel_id, plumber_id, message, fingerprint, created_at FROM notifications WHERE plumber_id=? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		plumberID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.ChannelID, &n.PlumberID, &n.Message, &n.Fingerprint, &n.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

// LatestFingerprint returns the fingerprint of the most recent notification
// for a channel, or "" when the channel has none.  Used by the optional
// dedup gate.
func (r *NotificationRepo) LatestFingerprint(ctx context.Context, channelID uint64) (string, error) {
	var fp string
	err := r.DB.QueryRowContext(ctx,
		"SELECT fingerprint FROM notifications WHERE channel_id=? ORDER BY created_at DESC, id DESC LIMIT 1",
		channelID).Scan(&fp)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return fp, err
}
