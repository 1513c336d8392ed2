// Package notify implements the notification dispatcher: the piece that
// reacts to channel-state changes, persists notification records and pushes
// them to the assigned plumber's live connection.
package notify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/leakwatch/leakwatch/internal/model"
	"github.com/leakwatch/leakwatch/internal/queue"
	"github.com/leakwatch/leakwatch/internal/repository"
	"github.com/leakwatch/leakwatch/internal/ws"
)

// ErrMissingFields is returned by DispatchManual when channelId or message
// is absent.  Handlers translate it into HTTP 400.
var ErrMissingFields = errors.New("channelId and message are required")

// ChannelStore is the slice of the channel repository the dispatcher needs.
type ChannelStore interface {
	GetByChannelIDWithPlumber(ctx context.Context, channelID string) (model.Channel, *repository.PlumberSummary, error)
}

// NotificationStore persists dispatcher output.
type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
	LatestFingerprint(ctx context.Context, channelID uint64) (string, error)
}

// Pusher delivers a message to a live-connection room.
type Pusher interface {
	Publish(room string, msg ws.Message)
}

// AuditPublisher forwards a dispatched event to the broker.  Best effort;
// the dispatcher logs and ignores failures.
type AuditPublisher func(ctx context.Context, event queue.NotificationDispatchedEvent) error

// ChannelSummary is the channel slice embedded in a pushed notification.
type ChannelSummary struct {
	ChannelID string `json:"channelId"`
	Name      string `json:"name"`
	Location  string `json:"location"`
	Status    string `json:"status"`
}

// Payload is the notification event sent to the plumber's room and echoed
// back to manual senders.
type Payload struct {
	ID        uint64         `json:"id"`
	Message   string         `json:"message"`
	Channel   ChannelSummary `json:"channel"`
	Timestamp time.Time      `json:"timestamp"`
}

// Dispatcher coordinates persistence, live push and audit publishing.
// Dedup controls the optional fingerprint gate: when enabled, an automatic
// trigger whose channel state hash equals the previous notification's is
// suppressed.  Disabled by default, matching the historical behavior where
// every qualifying update re-fires.
type Dispatcher struct {
	channels      ChannelStore
	notifications NotificationStore
	hub           Pusher
	audit         AuditPublisher
	Dedup         bool
}

// NewDispatcher constructs a Dispatcher.  hub and audit may be nil in
// which case the corresponding step is skipped (used by the report-only
// tooling and in tests).
func NewDispatcher(channels ChannelStore, notifications NotificationStore, hub Pusher, audit AuditPublisher) *Dispatcher {
	return &Dispatcher{channels: channels, notifications: notifications, hub: hub, audit: audit}
}

// DispatchManual sends an operator-initiated notification.  Unlike the
// automatic path it requires the channel and an assigned plumber to exist
// (repository.ErrNotFound otherwise) and it never consults the problem
// gate.
func (d *Dispatcher) DispatchManual(ctx context.Context, channelID, message string) (*Payload, error) {
	if channelID == "" || message == "" {
		return nil, ErrMissingFields
	}
	ch, plumber, err := d.channels.GetByChannelIDWithPlumber(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if plumber == nil {
		return nil, repository.ErrNotFound
	}
	return d.dispatch(ctx, &ch, plumber, message, true)
}

// DispatchOnUpdate runs the automatic trigger after a channel mutation.
// A missing channel or unassigned plumber is a silent no-op, as is a
// channel whose state does not satisfy the problem gate.  It reports
// whether a notification was actually dispatched.
func (d *Dispatcher) DispatchOnUpdate(ctx context.Context, channelID string) (bool, error) {
	ch, plumber, err := d.channels.GetByChannelIDWithPlumber(ctx, channelID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if plumber == nil {
		return false, nil
	}
	if !ch.HasProblem() {
		return false, nil
	}
	if d.Dedup {
		last, err := d.notifications.LatestFingerprint(ctx, ch.ID)
		if err != nil {
			return false, err
		}
		if last != "" && last == Fingerprint(&ch) {
			return false, nil
		}
	}
	msg := fmt.Sprintf("Problem detected at %s (%s): status %s, water lost %.2f", ch.Name, ch.ChannelID, ch.Status, ch.WaterLost)
	if _, err := d.dispatch(ctx, &ch, plumber, msg, false); err != nil {
		return false, err
	}
	return true, nil
}

// dispatch persists the record, then pushes to the plumber room and
// publishes the audit event.  Push and audit are fire-and-forget.
func (d *Dispatcher) dispatch(ctx context.Context, ch *model.Channel, plumber *repository.PlumberSummary, message string, manual bool) (*Payload, error) {
	n := &model.Notification{
		ChannelID:   ch.ID,
		PlumberID:   plumber.ID,
		Message:     message,
		Fingerprint: Fingerprint(ch),
	}
	if err := d.notifications.Create(ctx, n); err != nil {
		return nil, err
	}

	payload := &Payload{
		ID:      n.ID,
		Message: message,
		Channel: ChannelSummary{
			ChannelID: ch.ChannelID,
			Name:      ch.Name,
			Location:  ch.Location,
			Status:    ch.Status,
		},
		Timestamp: time.Now().UTC(),
	}

	if d.hub != nil {
		room := strconv.FormatUint(plumber.ID, 10)
		d.hub.Publish(room, ws.Message{Type: ws.MessageTypeNotification, Data: payload})
	}

	if d.audit != nil {
		ev := queue.NotificationDispatchedEvent{
			NotificationID: n.ID,
			ChannelID:      ch.ChannelID,
			ChannelName:    ch.Name,
			Location:       ch.Location,
			Status:         ch.Status,
			WaterLost:      ch.WaterLost,
			PlumberID:      plumber.ID,
			PlumberName:    plumber.Name,
			Message:        message,
			Manual:         manual,
			DispatchedAt:   payload.Timestamp.Format(time.RFC3339),
		}
		if err := d.audit(ctx, ev); err != nil {
			log.Printf("notify: audit publish failed: %v", err)
		}
	}

	return payload, nil
}

// Fingerprint hashes the dispatch-relevant channel state.  Two updates that
// leave status, waterLost and solveTime untouched produce the same value.
func Fingerprint(ch *model.Channel) string {
	solve := "-"
	if ch.SolveTime != nil {
		solve = strconv.FormatFloat(*ch.SolveTime, 'g', -1, 64)
	}
	raw := ch.Status + "|" + strconv.FormatFloat(ch.WaterLost, 'g', -1, 64) + "|" + solve
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
