package model

import "time"

// Channel status values.  The problem gate in the notification dispatcher
// only cares about "solved" vs everything else, so new states can be added
// without touching the dispatcher.
const (
	ChannelStatusUnsolved = "unsolved"
	ChannelStatusSolved   = "solved"
)

// Channel represents a monitored site in the `channels` table.  ChannelID
// is the business key ("CH-001") used on the wire and in dispatch calls;
// ID is the internal surrogate key referenced by notifications.
//
// Fields:
//
//	ID               – primary key identifier.
//	ChannelID        – globally unique business key.
//	Name             – site name.
//	Location         – free-form location string.
//	StationCount     – number of sub-stations at the site.
//	ManagerID        – owning manager.
//	PlumberID        – assigned plumber (nil when unassigned).
//	Status           – current resolution status.
//	WaterLost        – cumulative water lost, in cubic meters.
//	SolveTime        – hours taken to solve (nil while unresolved).
//	InitialFlowRate  – flow rate measured when the channel was registered.
//	StatusPerStation – per-substation status map, stored as JSON.
type Channel struct {
	ID               uint64            // channels.id
	ChannelID        string            // channels.channel_id
	Name             string            // channels.name
	Location         string            // channels.location
	StationCount     int               // channels.station_count
	ManagerID        uint64            // channels.manager_id
	PlumberID        *uint64           // channels.plumber_id (nullable)
	Status           string            // channels.status
	WaterLost        float64           // channels.water_lost
	SolveTime        *float64          // channels.solve_time (nullable, hours)
	InitialFlowRate  float64           // channels.initial_flow_rate
	StatusPerStation map[string]string // channels.status_per_station (JSON)
	CreatedAt        time.Time         // channels.created_at
	UpdatedAt        time.Time         // channels.updated_at
}

// HasProblem reports whether the channel is in a state that warrants a
// notification: not solved, and either still losing water or without a
// recorded solve time.  This is a heuristic gate, not an SLA.
func (c *Channel) HasProblem() bool {
	return c.Status != ChannelStatusSolved && (c.WaterLost > 0 || c.SolveTime == nil)
}
