package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/leakwatch/leakwatch/internal/model"
	"github.com/leakwatch/leakwatch/internal/utils"
)

// PrincipalRepo resolves identities across the three principal tables and
// handles registration.  Lookups by email go through a single UNION query
// ordered admin, manager, plumber so "first match wins" stays deterministic
// without issuing three round trips.
type PrincipalRepo struct{ DB *sql.DB }

func NewPrincipalRepo(db *sql.DB) *PrincipalRepo { return &PrincipalRepo{DB: db} }

// unified identity index: one indexed probe per table, merged and ranked.
const findByEmailQuery = `
SELECT kind, id, name, email, password_hash FROM (
  SELECT 'admin' AS kind, id, name, email, password_hash, 1 AS prio FROM admins WHERE email=?
  UNION ALL
  SELECT 'manager', id, name, email, password_hash, 2 FROM managers WHERE email=?
  UNION ALL
  SELECT 'plumber', id, name, email, password_hash, 3 FROM plumbers WHERE email=?
) p ORDER BY prio LIMIT 1`

// FindByEmail resolves a principal by normalized email across all three
// role tables.  Returns ErrNotFound when no table has a match.
func (r *PrincipalRepo) FindByEmail(ctx context.Context, email string) (model.Principal, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var p model.Principal
	err := r.DB.QueryRowContext(ctx, findByEmailQuery, email, email, email).
		Scan(&p.Role, &p.ID, &p.Name, &p.Email, &p.PasswordHash)
	if err == sql.ErrNoRows {
		return model.Principal{}, ErrNotFound
	}
	return p, err
}

// FindByID resolves a principal by id within a known role table.  The role
// comes from trusted storage (a refresh-token row) or a verified access
// token claim, never from request input.
func (r *PrincipalRepo) FindByID(ctx context.Context, id uint64, role string) (model.Principal, error) {
	var table string
	switch role {
	case model.RoleAdmin:
		table = "admins"
	case model.RoleManager:
		table = "managers"
	case model.RolePlumber:
		table = "plumbers"
	default:
		return model.Principal{}, ErrNotFound
	}
	var p model.Principal
	p.Role = role
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, email, password_hash FROM "+table+" WHERE id=? LIMIT 1", id).
		Scan(&p.ID, &p.Name, &p.Email, &p.PasswordHash)
	if err == sql.ErrNoRows {
		return model.Principal{}, ErrNotFound
	}
	return p, err
}

// CreateAdmin inserts an admin row, hashing the password first.
func (r *PrincipalRepo) CreateAdmin(ctx context.Context, a *model.Admin, password string, cost int) (uint64, error) {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO admins (name, email, password_hash, national_id, location, company_name, company_email) VALUES (?,?,?,?,?,?,?)",
		a.Name, normalizeEmail(a.Email), hash, a.NationalID, a.Location, a.CompanyName, a.CompanyEmail)
	if err != nil {
		return 0, mapInsertErr(err)
	}
	return lastID(res)
}

// CreateManager inserts a manager row owned by the given admin.
func (r *PrincipalRepo) CreateManager(ctx context.Context, m *model.Manager, password string, cost int) (uint64, error) {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO managers (name, email, password_hash, phone, admin_id) VALUES (?,?,?,?,?)",
		m.Name, normalizeEmail(m.Email), hash, m.Phone, m.AdminID)
	if err != nil {
		return 0, mapInsertErr(err)
	}
	return lastID(res)
}

// CreatePlumber inserts a plumber row owned by the given manager.  The
// owning manager must exist; a missing foreign key surfaces as ErrNotFound
// so the handler can answer 404 instead of 500.
func (r *PrincipalRepo) CreatePlumber(ctx context.Context, p *model.Plumber, password string, cost int) (uint64, error) {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	var exists bool
	if err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM managers WHERE id=?)", p.ManagerID).Scan(&exists); err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrNotFound
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO plumbers (name, email, password_hash, national_id, phone, manager_id) VALUES (?,?,?,?,?,?)",
		p.Name, normalizeEmail(p.Email), hash, p.NationalID, p.Phone, p.ManagerID)
	if err != nil {
		return 0, mapInsertErr(err)
	}
	return lastID(res)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// mapInsertErr converts a MySQL duplicate-key failure (error 1062) into the
// package sentinel so handlers do not parse driver strings.
func mapInsertErr(err error) error {
	if strings.Contains(strings.ToLower(err.Error()), "1062") {
		return ErrEmailExists
	}
	return err
}

func lastID(res sql.Result) (uint64, error) {
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}
