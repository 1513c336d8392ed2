package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/leakwatch/leakwatch/internal/config"
	"github.com/leakwatch/leakwatch/internal/model"
	"github.com/leakwatch/leakwatch/internal/repository"
	"github.com/leakwatch/leakwatch/internal/utils"
)

// AuthHandler bundles dependencies for the session lifecycle endpoints.
type AuthHandler struct {
	Cfg        config.Config
	Principals *repository.PrincipalRepo
	Tokens     *repository.TokenRepo
}

func NewAuthHandler(cfg config.Config, p *repository.PrincipalRepo, t *repository.TokenRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Principals: p, Tokens: t}
}

// dummyHash absorbs a bcrypt comparison when the email is unknown, so the
// response time does not reveal whether an account exists.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// ----- DTOs -----

type registerAdminReq struct {
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8"`
	NationalID   string `json:"nationalId" validate:"required"`
	Location     string `json:"location"`
	CompanyName  string `json:"companyName"`
	CompanyEmail string `json:"companyEmail" validate:"omitempty,email"`
}

type registerManagerReq struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Phone    string `json:"phone"`
}

type registerPlumberReq struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	NationalID string `json:"nationalId"`
	Phone      string `json:"phone"`
	ManagerID  uint64 `json:"managerId" validate:"required,gte=1"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type principalPart struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type loginResp struct {
	User    principalPart `json:"user"`
	Access  tokenPart     `json:"access"`
	Refresh tokenPart     `json:"refresh"`
}

// RegisterAdmin handles POST /api/auth/admin/register.
func (h *AuthHandler) RegisterAdmin(c echo.Context) error {
	var req registerAdminReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	a := &model.Admin{
		Name:         req.Name,
		Email:        req.Email,
		NationalID:   req.NationalID,
		Location:     req.Location,
		CompanyName:  req.CompanyName,
		CompanyEmail: req.CompanyEmail,
	}
	id, err := h.Principals.CreateAdmin(ctx, a, req.Password, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"message": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error registering admin"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "admin registered successfully",
		"admin":   principalPart{ID: id, Name: req.Name, Email: strings.ToLower(req.Email), Role: model.RoleAdmin},
	})
}

// RegisterManager handles POST /api/auth/manager/register (admin only).
// The owning admin is the authenticated caller.
func (h *AuthHandler) RegisterManager(c echo.Context) error {
	adminID, err := principalID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}
	var req registerManagerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	m := &model.Manager{Name: req.Name, Email: req.Email, Phone: req.Phone, AdminID: adminID}
	id, err := h.Principals.CreateManager(ctx, m, req.Password, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"message": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error registering manager"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "manager registered successfully",
		"manager": principalPart{ID: id, Name: req.Name, Email: strings.ToLower(req.Email), Role: model.RoleManager},
	})
}

// RegisterPlumber handles POST /api/auth/plumber/register (admin only).
func (h *AuthHandler) RegisterPlumber(c echo.Context) error {
	var req registerPlumberReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	p := &model.Plumber{
		Name:       req.Name,
		Email:      req.Email,
		NationalID: req.NationalID,
		Phone:      req.Phone,
		ManagerID:  req.ManagerID,
	}
	id, err := h.Principals.CreatePlumber(ctx, p, req.Password, h.Cfg.BcryptCost)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusConflict, echo.Map{"message": "email already exists"})
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"message": "manager not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error registering plumber"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "plumber registered successfully",
		"plumber": principalPart{ID: id, Name: req.Name, Email: strings.ToLower(req.Email), Role: model.RolePlumber},
	})
}

// Login handles POST /api/auth/login.  The principal is resolved across all
// three role tables by one unified lookup; a miss and a wrong password
// produce the identical response.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Principals.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// burn a compare so unknown emails cost the same as bad passwords
			utils.VerifyPassword(dummyHash, req.Password)
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid email or password"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error logging in"})
	}
	if !utils.VerifyPassword(p.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid email or password"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, p.ID, p.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error logging in"})
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshSecret, p.ID, h.Cfg.RefreshTTLDays)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error logging in"})
	}
	if err := h.Tokens.StoreRefresh(ctx, p.ID, p.Role, utils.HashRefreshRaw(refresh.Token), refresh.Exp); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error logging in"})
	}

	return c.JSON(http.StatusOK, loginResp{
		User:    principalPart{ID: p.ID, Name: p.Name, Email: p.Email, Role: p.Role},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Token, Expires: refresh.Exp},
	})
}

// Refresh handles POST /api/auth/refresh-token.  A valid refresh token
// yields a new access token only; the refresh token is not rotated.  The
// role is re-derived from the stored row, never from a token claim.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}
	raw := strings.TrimSpace(req.RefreshToken)
	hash := utils.HashRefreshRaw(raw)

	ctx, cancel := reqCtx(c)
	defer cancel()

	userID, role, err := h.Tokens.LookupRefresh(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrTokenExpired) {
			// the row is dead either way, remove it
			_ = h.Tokens.DeleteByHash(ctx, hash)
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "expired token"})
		}
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unknown token"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error refreshing token"})
	}

	if _, err := utils.ParseRefreshToken(h.Cfg.RefreshSecret, raw); err != nil {
		// cryptographically dead: remove the row so it cannot be replayed
		_ = h.Tokens.DeleteByHash(ctx, hash)
		if errors.Is(err, utils.ErrExpiredToken) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "expired token"})
		}
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
	}

	// the token must still map to a live principal
	p, err := h.Principals.FindByID(ctx, userID, role)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = h.Tokens.DeleteByHash(ctx, hash)
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unknown token"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error refreshing token"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, p.ID, p.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error refreshing token"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access": tokenPart{Token: access.Token, Expires: access.Exp},
		"role":   p.Role,
	})
}

// Logout handles POST /api/auth/logout.  Revoking an unknown or already
// revoked token is still a success: the endpoint must not leak whether a
// token ever existed.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error logging out"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Me handles GET /api/auth/me and returns the authenticated principal's
// public fields.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := principalID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "unauthorized"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.resolvePrincipal(ctx, uid, principalRole(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error loading profile"})
	}
	return c.JSON(http.StatusOK, principalPart{ID: p.ID, Name: p.Name, Email: p.Email, Role: p.Role})
}

// resolvePrincipal loads a principal by id.  With a known role it is a
// single table probe; without one the tables are tried in the fixed
// admin, manager, plumber priority order.
func (h *AuthHandler) resolvePrincipal(ctx context.Context, id uint64, role string) (model.Principal, error) {
	if role != "" {
		return h.Principals.FindByID(ctx, id, role)
	}
	for _, r := range []string{model.RoleAdmin, model.RoleManager, model.RolePlumber} {
		p, err := h.Principals.FindByID(ctx, id, r)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return model.Principal{}, err
		}
	}
	return model.Principal{}, repository.ErrNotFound
}

// reqCtx bounds every database call by the request lifetime plus a hard
// five second ceiling.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}
