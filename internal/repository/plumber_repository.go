package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/leakwatch/leakwatch/internal/model"
)

// PlumberRepo covers the plumber CRUD surface plus the manager-scoped
// listing that embeds each plumber's assigned channels.
type PlumberRepo struct{ DB *sql.DB }

func NewPlumberRepo(db *sql.DB) *PlumberRepo { return &PlumberRepo{DB: db} }

// ChannelSummary is the trimmed channel view embedded in plumber reads.
type ChannelSummary struct {
	ID        uint64 `json:"id"`
	ChannelID string `json:"channelId"`
	Name      string `json:"name"`
	Status    string `json:"status"`
}

// PlumberWithChannels pairs a plumber with the channels assigned to them.
type PlumberWithChannels struct {
	Plumber  model.Plumber
	Channels []ChannelSummary
}

// GetByID fetches a plumber by id.
func (r *PlumberRepo) GetByID(ctx context.Context, id uint64) (model.Plumber, error) {
	var p model.Plumber
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash, national_id, phone, manager_id, created_at, updated_at FROM plumbers WHERE id=? LIMIT 1",
		id).Scan(&p.ID, &p.Name, &p.Email, &p.PasswordHash, &p.NationalID, &p.Phone, &p.ManagerID, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Plumber{}, ErrNotFound
	}
	return p, err
}

// List returns a page of all plumbers plus the total count.
func (r *PlumberRepo) List(ctx context.Context, page, limit int) ([]PlumberWithChannels, int, error) {
	return r.list(ctx, "", nil, page, limit)
}

// ListByManager returns a page of one manager's plumbers.
func (r *PlumberRepo) ListByManager(ctx context.Context, managerID uint64, page, limit int) ([]PlumberWithChannels, int, error) {
	return r.list(ctx, "WHERE manager_id=?", []interface{}{managerID}, page, limit)
}

// Update writes the mutable plumber fields.  Email uniqueness is enforced
// by the table index; a duplicate surfaces as ErrEmailExists.
func (r *PlumberRepo) Update(ctx context.Context, p *model.Plumber) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE plumbers SET name=?, email=?, phone=?, manager_id=? WHERE id=?",
		p.Name, normalizeEmail(p.Email), p.Phone, p.ManagerID, p.ID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrEmailExists
		}
		return err
	}
	// RowsAffected is zero both for a missing row and for a no-op write, so
	// existence is checked by the caller's preceding GetByID.
	_ = res
	return nil
}

// Delete removes a plumber by id.
func (r *PlumberRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM plumbers WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PlumberRepo) list(ctx context.Context, where string, args []interface{}, page, limit int) ([]PlumberWithChannels, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM plumbers "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, name, email, password_hash, national_id, phone, manager_id, created_at, updated_at FROM plumbers "+where+
			" ORDER BY id LIMIT ? OFFSET ?",
		append(args, limit, (page-1)*limit)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []PlumberWithChannels
	var ids []interface{}
	index := map[uint64]int{}
	for rows.Next() {
		var p model.Plumber
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.PasswordHash, &p.NationalID, &p.Phone,
			&p.ManagerID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		index[p.ID] = len(out)
		ids = append(ids, p.ID)
		out = append(out, PlumberWithChannels{Plumber: p, Channels: []ChannelSummary{}})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(out) == 0 {
		return out, total, nil
	}

	// Second query for the page's assigned channels; one round trip instead
	// of one per plumber.
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	chRows, err := r.DB.QueryContext(ctx,
		"SELECT plumber_id, id, channel_id, name, status FROM channels WHERE plumber_id IN ("+placeholders+") ORDER BY id",
		ids...)
	if err != nil {
		return nil, 0, err
	}
	defer chRows.Close()
	for chRows.Next() {
		var (
			plumberID uint64
			cs        ChannelSummary
		)
		if err := chRows.Scan(&plumberID, &cs.ID, &cs.ChannelID, &cs.Name, &cs.Status); err != nil {
			return nil, 0, err
		}
		if i, ok := index[plumberID]; ok {
			out[i].Channels = append(out[i].Channels, cs)
		}
	}
	return out, total, chRows.Err()
}
