package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/leakwatch/leakwatch/internal/model"
	"github.com/leakwatch/leakwatch/internal/repository"
)

// PlumberHandler is the admin-facing plumber CRUD surface.  Creation goes
// through the auth handler so passwords are hashed in one place.
type PlumberHandler struct {
	Plumbers   *repository.PlumberRepo
	Principals *repository.PrincipalRepo
	Tokens     *repository.TokenRepo
}

func NewPlumberHandler(plumbers *repository.PlumberRepo, principals *repository.PrincipalRepo, tokens *repository.TokenRepo) *PlumberHandler {
	return &PlumberHandler{Plumbers: plumbers, Principals: principals, Tokens: tokens}
}

type updatePlumberReq struct {
	Name      *string `json:"name"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Phone     *string `json:"phone"`
	ManagerID *uint64 `json:"managerId" validate:"omitempty,gte=1"`
}

type plumberResp struct {
	ID         uint64                      `json:"id"`
	Name       string                      `json:"name"`
	Email      string                      `json:"email"`
	NationalID string                      `json:"nationalId"`
	Phone      string                      `json:"phone"`
	ManagerID  uint64                      `json:"managerId"`
	Channels   []repository.ChannelSummary `json:"channels"`
	CreatedAt  time.Time                   `json:"createdAt"`
	UpdatedAt  time.Time                   `json:"updatedAt"`
}

func toPlumberResp(p model.Plumber, channels []repository.ChannelSummary) plumberResp {
	if channels == nil {
		channels = []repository.ChannelSummary{}
	}
	return plumberResp{
		ID:         p.ID,
		Name:       p.Name,
		Email:      p.Email,
		NationalID: p.NationalID,
		Phone:      p.Phone,
		ManagerID:  p.ManagerID,
		Channels:   channels,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

// List handles GET /api/plumbers.
func (h *PlumberHandler) List(c echo.Context) error {
	page, limit := pageParams(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	items, total, err := h.Plumbers.List(ctx, page, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error fetching plumbers"})
	}
	out := make([]plumberResp, 0, len(items))
	for _, it := range items {
		out = append(out, toPlumberResp(it.Plumber, it.Channels))
	}
	return c.JSON(http.StatusOK, echo.Map{"plumbers": out, "pagination": paginate(page, limit, total)})
}

// Get handles GET /api/plumbers/:id.
func (h *PlumberHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Plumbers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "plumber not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error fetching plumber"})
	}
	return c.JSON(http.StatusOK, toPlumberResp(p, nil))
}

// Update handles PUT /api/plumbers/:id.  A manager reassignment is checked
// against the managers table before the write.
func (h *PlumberHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req updatePlumberReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Plumbers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "plumber not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error updating plumber"})
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Email != nil {
		p.Email = *req.Email
	}
	if req.Phone != nil {
		p.Phone = *req.Phone
	}
	if req.ManagerID != nil {
		if _, err := h.Principals.FindByID(ctx, *req.ManagerID, model.RoleManager); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"message": "manager not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error updating plumber"})
		}
		p.ManagerID = *req.ManagerID
	}

	if err := h.Plumbers.Update(ctx, &p); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"message": "email already registered"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error updating plumber"})
	}
	return c.JSON(http.StatusOK, toPlumberResp(p, nil))
}

// Delete handles DELETE /api/plumbers/:id.  Assigned channels keep their
// rows; the foreign key nulls out their plumber_id.
func (h *PlumberHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Plumbers.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "plumber not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error deleting plumber"})
	}
	// the account is gone, so none of its sessions survive it
	if err := h.Tokens.RevokeAllForUser(ctx, id, model.RolePlumber); err != nil {
		log.Printf("plumber delete: revoking sessions for %d: %v", id, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "plumber deleted successfully"})
}
