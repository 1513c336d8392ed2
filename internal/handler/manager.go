package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/leakwatch/leakwatch/internal/repository"
)

// ManagerHandler is the manager-scoped read surface plus plumber assignment.
// Every query is filtered by the authenticated manager id from the token;
// there is no way to pass another manager's id in.
type ManagerHandler struct {
	Channels *repository.ChannelRepo
	Plumbers *repository.PlumberRepo
}

func NewManagerHandler(channels *repository.ChannelRepo, plumbers *repository.PlumberRepo) *ManagerHandler {
	return &ManagerHandler{Channels: channels, Plumbers: plumbers}
}

type analyticsChannelRow struct {
	ID        uint64   `json:"id"`
	ChannelID string   `json:"channelId"`
	Name      string   `json:"name"`
	Location  string   `json:"location"`
	Status    string   `json:"status"`
	WaterLost float64  `json:"waterLost"`
	SolveTime *float64 `json:"solveTime,omitempty"`
}

type assignPlumberReq struct {
	PlumberID uint64 `json:"plumberId" validate:"required,gte=1"`
}

// Analytics handles GET /api/manager/analytics.
func (h *ManagerHandler) Analytics(c echo.Context) error {
	managerID, err := principalID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
	}
	page, limit := pageParams(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	items, total, err := h.Channels.ListByManager(ctx, managerID, page, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error fetching analytics"})
	}
	agg, err := h.Channels.AggregateByManager(ctx, managerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error fetching analytics"})
	}

	rows := make([]analyticsChannelRow, 0, len(items))
	for _, it := range items {
		ch := it.Channel
		rows = append(rows, analyticsChannelRow{
			ID:        ch.ID,
			ChannelID: ch.ChannelID,
			Name:      ch.Name,
			Location:  ch.Location,
			Status:    ch.Status,
			WaterLost: ch.WaterLost,
			SolveTime: ch.SolveTime,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"channels": rows,
		"totals": echo.Map{
			"totalChannels":    agg.TotalChannels,
			"solvedChannels":   agg.SolvedChannels,
			"unsolvedChannels": agg.UnsolvedChannels,
			"totalWaterLost":   agg.TotalWaterLost,
			"avgSolveTime":     agg.AvgSolveTime,
		},
		"pagination": paginate(page, limit, total),
	})
}

// PlumberList handles GET /api/manager/plumbers.
func (h *ManagerHandler) PlumberList(c echo.Context) error {
	managerID, err := principalID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
	}
	page, limit := pageParams(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	items, total, err := h.Plumbers.ListByManager(ctx, managerID, page, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error fetching plumbers"})
	}
	out := make([]plumberResp, 0, len(items))
	for _, it := range items {
		out = append(out, toPlumberResp(it.Plumber, it.Channels))
	}
	return c.JSON(http.StatusOK, echo.Map{"plumbers": out, "pagination": paginate(page, limit, total)})
}

// ChannelList handles GET /api/manager/channels.
func (h *ManagerHandler) ChannelList(c echo.Context) error {
	managerID, err := principalID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
	}
	page, limit := pageParams(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	items, total, err := h.Channels.ListByManager(ctx, managerID, page, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error fetching channels"})
	}
	out := make([]channelResp, 0, len(items))
	for _, it := range items {
		out = append(out, toChannelResp(it.Channel, it.Plumber))
	}
	return c.JSON(http.StatusOK, echo.Map{"channels": out, "pagination": paginate(page, limit, total)})
}

// AssignPlumber handles POST /api/manager/channels/:channelId/assign.  Both
// the channel and the plumber must belong to the calling manager.
func (h *ManagerHandler) AssignPlumber(c echo.Context) error {
	managerID, err := principalID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
	}
	channelID, err := parseID(c, "channelId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid channel id"})
	}
	var req assignPlumberReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	ch, err := h.Channels.GetByID(ctx, channelID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "channel not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error assigning plumber"})
	}
	if ch.ManagerID != managerID {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}

	p, err := h.Plumbers.GetByID(ctx, req.PlumberID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "plumber not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error assigning plumber"})
	}
	if p.ManagerID != managerID {
		return c.JSON(http.StatusForbidden, echo.Map{"message": "forbidden"})
	}

	if err := h.Channels.AssignPlumber(ctx, ch.ID, p.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error assigning plumber"})
	}
	ch.PlumberID = &p.ID
	return c.JSON(http.StatusOK, echo.Map{
		"channel": toChannelResp(ch, &repository.PlumberSummary{ID: p.ID, Name: p.Name, Email: p.Email}),
	})
}
