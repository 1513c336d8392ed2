package model

import "time"

// Role names as stored in JWT claims and the refresh_tokens table.  The
// three principal types live in separate tables; the role string is the
// discriminator that says which table an id belongs to.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RolePlumber = "plumber"
)

// Admin represents a row in the `admins` table.  Admins own managers and
// have top-level access to every surface.
//
// Fields:
//
//	ID           – primary key identifier.
//	Name         – display name.
//	Email        – unique email address.
//	PasswordHash – bcrypt hashed password.
//	NationalID   – government identifier collected at registration.
//	Location     – free-form location string.
//	CompanyName  – owning company name.
//	CompanyEmail – owning company contact address.
type Admin struct {
	ID           uint64    // admins.id
	Name         string    // admins.name
	Email        string    // admins.email
	PasswordHash string    // admins.password_hash
	NationalID   string    // admins.national_id
	Location     string    // admins.location
	CompanyName  string    // admins.company_name
	CompanyEmail string    // admins.company_email
	CreatedAt    time.Time // admins.created_at
	UpdatedAt    time.Time // admins.updated_at
}

// Manager represents a row in the `managers` table.  Each manager belongs
// to an admin and owns a set of channels and plumbers.
type Manager struct {
	ID           uint64    // managers.id
	Name         string    // managers.name
	Email        string    // managers.email
	PasswordHash string    // managers.password_hash
	Phone        string    // managers.phone
	AdminID      uint64    // managers.admin_id (references admins.id)
	CreatedAt    time.Time // managers.created_at
	UpdatedAt    time.Time // managers.updated_at
}

// Plumber represents a row in the `plumbers` table.  Plumbers are field
// workers assigned to channels and are the targets of notifications.
type Plumber struct {
	ID           uint64    // plumbers.id
	Name         string    // plumbers.name
	Email        string    // plumbers.email
	PasswordHash string    // plumbers.password_hash
	NationalID   string    // plumbers.national_id
	Phone        string    // plumbers.phone
	ManagerID    uint64    // plumbers.manager_id (references managers.id)
	CreatedAt    time.Time // plumbers.created_at
	UpdatedAt    time.Time // plumbers.updated_at
}

// Principal is the discriminated result of the unified identity lookup.
// Role says which table ID belongs to; the common columns are hoisted so
// authentication never needs the full table row.
type Principal struct {
	ID           uint64
	Role         string
	Name         string
	Email        string
	PasswordHash string
}

// RefreshToken models an entry in the `refresh_tokens` table.  The signed
// token itself never touches the database; only its SHA-256 hash is stored.
// Role is persisted alongside the user id so the refresh flow re-derives
// the principal from storage instead of trusting a token claim.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	Role      string     // refresh_tokens.role
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
