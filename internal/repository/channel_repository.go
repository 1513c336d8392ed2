package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/leakwatch/leakwatch/internal/model"
)

// ChannelRepo persists monitored sites.  status_per_station is a JSON
// column; the map is marshalled on write and unmarshalled on read so the
// rest of the code only ever sees map[string]string.
type ChannelRepo struct{ DB *sql.DB }

func NewChannelRepo(db *sql.DB) *ChannelRepo { return &ChannelRepo{DB: db} }

// PlumberSummary is the trimmed plumber view embedded in channel reads.
type PlumberSummary struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// ChannelWithPlumber pairs a channel with its assigned plumber, when any.
type ChannelWithPlumber struct {
	Channel model.Channel
	Plumber *PlumberSummary
}

const channelColumns = "id, channel_id, name, location, station_count, manager_id, plumber_id, status, water_lost, solve_time, initial_flow_rate, status_per_station, created_at, updated_at"

// Create inserts a channel and returns its internal id.  The business key
// is checked first so a duplicate produces ErrChannelExists rather than a
// raw constraint violation.
func (r *ChannelRepo) Create(ctx context.Context, ch *model.Channel) (uint64, error) {
	var exists bool
	if err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM channels WHERE channel_id=?)", ch.ChannelID).Scan(&exists); err != nil {
		return 0, err
	}
	if exists {
		return 0, ErrChannelExists
	}
	stations, err := marshalStations(ch.StatusPerStation)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO channels (channel_id, name, location, station_count, manager_id, plumber_id, status, water_lost, solve_time, initial_flow_rate, status_per_station) VALUES (?,?,?,?,?,?,?,?,?,?,?)",
		ch.ChannelID, ch.Name, ch.Location, ch.StationCount, ch.ManagerID, ch.PlumberID,
		ch.Status, ch.WaterLost, ch.SolveTime, ch.InitialFlowRate, stations)
	if err != nil {
		// races with a concurrent insert still hit the unique index
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrChannelExists
		}
		return 0, err
	}
	return lastID(res)
}

// GetByID fetches a channel by internal id.
func (r *ChannelRepo) GetByID(ctx context.Context, id uint64) (model.Channel, error) {
	return r.getOne(ctx, "SELECT "+channelColumns+" FROM channels WHERE id=? LIMIT 1", id)
}

// GetByChannelID fetches a channel by its business key.
func (r *ChannelRepo) GetByChannelID(ctx context.Context, channelID string) (model.Channel, error) {
	return r.getOne(ctx, "SELECT "+channelColumns+" FROM channels WHERE channel_id=? LIMIT 1", channelID)
}

// GetByChannelIDWithPlumber fetches a channel by business key together with
// its assigned plumber.  The plumber is nil when the channel is unassigned;
// that is not an error here because the dispatcher treats it as a no-op.
func (r *ChannelRepo) GetByChannelIDWithPlumber(ctx context.Context, channelID string) (model.Channel, *PlumberSummary, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT c.id, c.channel_id, c.name, c.location, c.station_count, c.manager_id, c.plumber_id, c.status, c.water_lost, c.solve_time, c.initial_flow_rate, c.status_per_station, c.created_at, c.updated_at, p.id, p.name, p.email "+
			"FROM channels c LEFT JOIN plumbers p ON p.id = c.plumber_id WHERE c.channel_id=? LIMIT 1",
		channelID)
	var (
		ch       model.Channel
		stations sql.NullString
		pid      sql.NullInt64
		pname    sql.NullString
		pemail   sql.NullString
	)
	err := row.Scan(&ch.ID, &ch.ChannelID, &ch.Name, &ch.Location, &ch.StationCount, &ch.ManagerID,
		&ch.PlumberID, &ch.Status, &ch.WaterLost, &ch.SolveTime, &ch.InitialFlowRate, &stations,
		&ch.CreatedAt, &ch.UpdatedAt, &pid, &pname, &pemail)
	if err == sql.ErrNoRows {
		return model.Channel{}, nil, ErrNotFound
	}
	if err != nil {
		return model.Channel{}, nil, err
	}
	if err := unmarshalStations(stations, &ch); err != nil {
		return model.Channel{}, nil, err
	}
	var plumber *PlumberSummary
	if pid.Valid {
		plumber = &PlumberSummary{ID: uint64(pid.Int64), Name: pname.String, Email: pemail.String}
	}
	return ch, plumber, nil
}

// List returns a page of channels with their plumber summaries plus the
// total row count for the pagination envelope.
func (r *ChannelRepo) List(ctx context.Context, page, limit int) ([]ChannelWithPlumber, int, error) {
	return r.list(ctx, "", nil, page, limit)
}

// ListByManager returns a page of one manager's channels.
func (r *ChannelRepo) ListByManager(ctx context.Context, managerID uint64, page, limit int) ([]ChannelWithPlumber, int, error) {
	return r.list(ctx, "WHERE c.manager_id=?", []interface{}{managerID}, page, limit)
}

// Update writes the mutable fields of a channel by internal id.  The row
// must already exist; callers fetch it first, which also produces a clean
// 404 for unknown ids.
func (r *ChannelRepo) Update(ctx context.Context, ch *model.Channel) error {
	stations, err := marshalStations(ch.StatusPerStation)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE channels SET name=?, location=?, station_count=?, plumber_id=?, status=?, water_lost=?, solve_time=?, initial_flow_rate=?, status_per_station=? WHERE id=?",
		ch.Name, ch.Location, ch.StationCount, ch.PlumberID, ch.Status, ch.WaterLost,
		ch.SolveTime, ch.InitialFlowRate, stations, ch.ID)
	return err
}

// AssignPlumber sets the assigned plumber on a manager-owned channel.
func (r *ChannelRepo) AssignPlumber(ctx context.Context, channelID uint64, plumberID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE channels SET plumber_id=? WHERE id=?", plumberID, channelID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a channel by internal id.
func (r *ChannelRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM channels WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ManagerAggregates holds the aggregate slice of a manager's channels used
// by both the analytics endpoint and daily report generation.
type ManagerAggregates struct {
	TotalChannels    int
	SolvedChannels   int
	UnsolvedChannels int
	TotalWaterLost   float64
	AvgSolveTime     float64
}

// AggregateByManager computes channel aggregates for one manager in a
// single query.  AvgSolveTime averages solve_time over solved channels
// only; with no solved channels it is zero.
func (r *ChannelRepo) AggregateByManager(ctx context.Context, managerID uint64) (ManagerAggregates, error) {
	var (
		agg ManagerAggregates
		avg sql.NullFloat64
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(status = 'solved'), 0),
		        COALESCE(SUM(status <> 'solved'), 0),
		        COALESCE(SUM(water_lost), 0),
		        AVG(CASE WHEN status = 'solved' THEN solve_time END)
		 FROM channels WHERE manager_id=?`, managerID).
		Scan(&agg.TotalChannels, &agg.SolvedChannels, &agg.UnsolvedChannels, &agg.TotalWaterLost, &avg)
	if err != nil {
		return ManagerAggregates{}, err
	}
	if avg.Valid {
		agg.AvgSolveTime = avg.Float64
	}
	return agg, nil
}

func (r *ChannelRepo) getOne(ctx context.Context, query string, arg interface{}) (model.Channel, error) {
	var (
		ch       model.Channel
		stations sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, query, arg).
		Scan(&ch.ID, &ch.ChannelID, &ch.Name, &ch.Location, &ch.StationCount, &ch.ManagerID,
			&ch.PlumberID, &ch.Status, &ch.WaterLost, &ch.SolveTime, &ch.InitialFlowRate,
			&stations, &ch.CreatedAt, &ch.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Channel{}, ErrNotFound
	}
	if err != nil {
		return model.Channel{}, err
	}
	if err := unmarshalStations(stations, &ch); err != nil {
		return model.Channel{}, err
	}
	return ch, nil
}

func (r *ChannelRepo) list(ctx context.Context, where string, args []interface{}, page, limit int) ([]ChannelWithPlumber, int, error) {
	countQuery := "SELECT COUNT(*) FROM channels c " + where
	var total int
	if err := r.DB.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT c.id, c.channel_id, c.name, c.location, c.station_count, c.manager_id, c.plumber_id, c.status, c.water_lost, c.solve_time, c.initial_flow_rate, c.status_per_station, c.created_at, c.updated_at, p.id, p.name, p.email " +
		"FROM channels c LEFT JOIN plumbers p ON p.id = c.plumber_id " + where +
		" ORDER BY c.id LIMIT ? OFFSET ?"
	rows, err := r.DB.QueryContext(ctx, query, append(args, limit, (page-1)*limit)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []ChannelWithPlumber
	for rows.Next() {
		var (
			ch       model.Channel
			stations sql.NullString
			pid      sql.NullInt64
			pname    sql.NullString
			pemail   sql.NullString
		)
		if err := rows.Scan(&ch.ID, &ch.ChannelID, &ch.Name, &ch.Location, &ch.StationCount,
			&ch.ManagerID, &ch.PlumberID, &ch.Status, &ch.WaterLost, &ch.SolveTime,
			&ch.InitialFlowRate, &stations, &ch.CreatedAt, &ch.UpdatedAt, &pid, &pname, &pemail); err != nil {
			return nil, 0, err
		}
		if err := unmarshalStations(stations, &ch); err != nil {
			return nil, 0, err
		}
		item := ChannelWithPlumber{Channel: ch}
		if pid.Valid {
			item.Plumber = &PlumberSummary{ID: uint64(pid.Int64), Name: pname.String, Email: pemail.String}
		}
		out = append(out, item)
	}
	return out, total, rows.Err()
}

func marshalStations(m map[string]string) (interface{}, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func unmarshalStations(raw sql.NullString, ch *model.Channel) error {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw.String), &ch.StatusPerStation)
}
