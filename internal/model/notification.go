package model

import "time"

// Notification represents a row in the `notifications` table.  Rows are
// created only by the dispatcher and are immutable afterwards: the table is
// the durable source of truth for plumbers that were offline when the live
// push happened.
type Notification struct {
	ID          uint64    // notifications.id
	ChannelID   uint64    // notifications.channel_id (internal channel id)
	PlumberID   uint64    // notifications.plumber_id
	Message     string    // notifications.message
	Fingerprint string    // notifications.fingerprint (state hash at dispatch time)
	CreatedAt   time.Time // notifications.created_at
}

// DailyReport represents a row in the `daily_reports` table.  One row is
// written per manager per aggregation run; rows are never mutated.
type DailyReport struct {
	ID           uint64    // daily_reports.id
	ManagerID    uint64    // daily_reports.manager_id
	Solved       int       // daily_reports.solved
	Unsolved     int       // daily_reports.unsolved
	WaterLost    float64   // daily_reports.water_lost
	AvgSolveTime float64   // daily_reports.avg_solve_time (hours)
	CreatedAt    time.Time // daily_reports.created_at
}
