// Package queue defines message payloads exchanged over the message broker
// and the background consumer that records dispatched notifications.
package queue

// NotificationDispatchedEvent is published whenever the dispatcher persists
// a notification.  It carries enough context for downstream consumers to
// audit or analyze dispatches without querying the primary database.
type NotificationDispatchedEvent struct {
	NotificationID uint64  `json:"notification_id"`
	ChannelID      string  `json:"channel_id"` // business key, e.g. "CH-001"
	ChannelName    string  `json:"channel_name"`
	Location       string  `json:"location"`
	Status         string  `json:"status"`
	WaterLost      float64 `json:"water_lost"`
	PlumberID      uint64  `json:"plumber_id"`
	PlumberName    string  `json:"plumber_name"`
	Message        string  `json:"message"`
	Manual         bool    `json:"manual"`
	DispatchedAt   string  `json:"dispatched_at"`
}
