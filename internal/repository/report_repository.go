package repository

import (
	"context"
	"database/sql"

	"github.com/leakwatch/leakwatch/internal/model"
)

// ReportRepo persists daily report snapshots and supplies the manager id
// set the aggregation runs over.
type ReportRepo struct{ DB *sql.DB }

func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{DB: db} }

// Create inserts a daily report row.
func (r *ReportRepo) Create(ctx context.Context, rep *model.DailyReport) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO daily_reports (manager_id, solved, unsolved, water_lost, avg_solve_time) VALUES (?,?,?,?,?)",
		rep.ManagerID, rep.Solved, rep.Unsolved, rep.WaterLost, rep.AvgSolveTime)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rep.ID = uint64(id)
	return nil
}

// List returns a page of reports, newest first.  managerID of zero lists
// every manager's rows (admin view); non-zero scopes to one manager.
func (r *ReportRepo) List(ctx context.Context, managerID uint64, page, limit int) ([]model.DailyReport, int, error) {
	where := ""
	var args []interface{}
	if managerID != 0 {
		where = "WHERE manager_id=?"
		args = append(args, managerID)
	}
	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM daily_reports "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, manager_id, solved, unsolved, water_lost, avg_solve_time, created_at FROM daily_reports "+where+
			" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		append(args, limit, (page-1)*limit)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []model.DailyReport
	for rows.Next() {
		var rep model.DailyReport
		if err := rows.Scan(&rep.ID, &rep.ManagerID, &rep.Solved, &rep.Unsolved, &rep.WaterLost, &rep.AvgSolveTime, &rep.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, rep)
	}
	return out, total, rows.Err()
}

// ManagerIDs returns every manager id, for the all-managers aggregation run.
func (r *ReportRepo) ManagerIDs(ctx context.Context) ([]uint64, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id FROM managers ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
