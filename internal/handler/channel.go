package handler

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/leakwatch/leakwatch/internal/model"
	"github.com/leakwatch/leakwatch/internal/notify"
	"github.com/leakwatch/leakwatch/internal/repository"
)

// ChannelHandler covers the channel CRUD surface.  Updates hand the channel
// to the dispatcher afterwards; a dispatch failure is logged but never
// fails the update, the two writes are deliberately independent.
type ChannelHandler struct {
	Channels   *repository.ChannelRepo
	Dispatcher *notify.Dispatcher
}

func NewChannelHandler(channels *repository.ChannelRepo, dispatcher *notify.Dispatcher) *ChannelHandler {
	return &ChannelHandler{Channels: channels, Dispatcher: dispatcher}
}

type createChannelReq struct {
	ChannelID        string            `json:"channelId" validate:"required"`
	Name             string            `json:"name" validate:"required"`
	Location         string            `json:"location" validate:"required"`
	StationCount     int               `json:"stationCount" validate:"gte=0"`
	ManagerID        uint64            `json:"managerId" validate:"required,gte=1"`
	PlumberID        *uint64           `json:"plumberId"`
	Status           string            `json:"status"`
	WaterLost        float64           `json:"waterLost" validate:"gte=0"`
	SolveTime        *float64          `json:"solveTime"`
	InitialFlowRate  float64           `json:"initialFlowRate" validate:"gte=0"`
	StatusPerStation map[string]string `json:"statusPerStation"`
}

type updateChannelReq struct {
	Name             *string           `json:"name"`
	Location         *string           `json:"location"`
	StationCount     *int              `json:"stationCount"`
	PlumberID        *uint64           `json:"plumberId"`
	Status           *string           `json:"status"`
	WaterLost        *float64          `json:"waterLost"`
	SolveTime        *float64          `json:"solveTime"`
	InitialFlowRate  *float64          `json:"initialFlowRate"`
	StatusPerStation map[string]string `json:"statusPerStation"`
}

type channelResp struct {
	ID               uint64                     `json:"id"`
	ChannelID        string                     `json:"channelId"`
	Name             string                     `json:"name"`
	Location         string                     `json:"location"`
	StationCount     int                        `json:"stationCount"`
	ManagerID        uint64                     `json:"managerId"`
	PlumberID        *uint64                    `json:"plumberId,omitempty"`
	Status           string                     `json:"status"`
	WaterLost        float64                    `json:"waterLost"`
	SolveTime        *float64                   `json:"solveTime,omitempty"`
	InitialFlowRate  float64                    `json:"initialFlowRate"`
	StatusPerStation map[string]string          `json:"statusPerStation,omitempty"`
	Plumber          *repository.PlumberSummary `json:"plumber,omitempty"`
	CreatedAt        time.Time                  `json:"createdAt"`
	UpdatedAt        time.Time                  `json:"updatedAt"`
}

func toChannelResp(ch model.Channel, plumber *repository.PlumberSummary) channelResp {
	return channelResp{
		ID:               ch.ID,
		ChannelID:        ch.ChannelID,
		Name:             ch.Name,
		Location:         ch.Location,
		StationCount:     ch.StationCount,
		ManagerID:        ch.ManagerID,
		PlumberID:        ch.PlumberID,
		Status:           ch.Status,
		WaterLost:        ch.WaterLost,
		SolveTime:        ch.SolveTime,
		InitialFlowRate:  ch.InitialFlowRate,
		StatusPerStation: ch.StatusPerStation,
		Plumber:          plumber,
		CreatedAt:        ch.CreatedAt,
		UpdatedAt:        ch.UpdatedAt,
	}
}

// Create handles POST /api/channels.
func (h *ChannelHandler) Create(c echo.Context) error {
	var req createChannelReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return validationFailed(c, err)
	}
	status := req.Status
	if status == "" {
		status = model.ChannelStatusUnsolved
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	ch := &model.Channel{
		ChannelID:        req.ChannelID,
		Name:             req.Name,
		Location:         req.Location,
		StationCount:     req.StationCount,
		ManagerID:        req.ManagerID,
		PlumberID:        req.PlumberID,
		Status:           status,
		WaterLost:        req.WaterLost,
		SolveTime:        req.SolveTime,
		InitialFlowRate:  req.InitialFlowRate,
		StatusPerStation: req.StatusPerStation,
	}
	id, err := h.Channels.Create(ctx, ch)
	if err != nil {
		if errors.Is(err, repository.ErrChannelExists) {
			return c.JSON(http.StatusConflict, echo.Map{"message": "channel id already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error creating channel"})
	}
	ch.ID = id
	return c.JSON(http.StatusCreated, toChannelResp(*ch, nil))
}

// List handles GET /api/channels.
func (h *ChannelHandler) List(c echo.Context) error {
	page, limit := pageParams(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	items, total, err := h.Channels.List(ctx, page, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error fetching channels"})
	}
	out := make([]channelResp, 0, len(items))
	for _, it := range items {
		out = append(out, toChannelResp(it.Channel, it.Plumber))
	}
	return c.JSON(http.StatusOK, echo.Map{"channels": out, "pagination": paginate(page, limit, total)})
}

// Get handles GET /api/channels/:id.
func (h *ChannelHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	ch, err := h.Channels.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "channel not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error fetching channel"})
	}
	return c.JSON(http.StatusOK, toChannelResp(ch, nil))
}

// Update handles PUT /api/channels/:id.  Fields absent from the body keep
// their stored values.  After the write the automatic notification trigger
// re-evaluates the channel, whether or not anything actually changed.
func (h *ChannelHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req updateChannelReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	ch, err := h.Channels.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "channel not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error updating channel"})
	}

	if req.Name != nil {
		ch.Name = *req.Name
	}
	if req.Location != nil {
		ch.Location = *req.Location
	}
	if req.StationCount != nil {
		ch.StationCount = *req.StationCount
	}
	if req.PlumberID != nil {
		ch.PlumberID = req.PlumberID
	}
	if req.Status != nil {
		ch.Status = *req.Status
	}
	if req.WaterLost != nil {
		ch.WaterLost = *req.WaterLost
	}
	if req.SolveTime != nil {
		ch.SolveTime = req.SolveTime
	}
	if req.InitialFlowRate != nil {
		ch.InitialFlowRate = *req.InitialFlowRate
	}
	if req.StatusPerStation != nil {
		ch.StatusPerStation = req.StatusPerStation
	}

	if err := h.Channels.Update(ctx, &ch); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error updating channel"})
	}

	if h.Dispatcher != nil {
		if _, err := h.Dispatcher.DispatchOnUpdate(ctx, ch.ChannelID); err != nil {
			log.Printf("channel: dispatch after update of %s failed: %v", ch.ChannelID, err)
		}
	}

	return c.JSON(http.StatusOK, toChannelResp(ch, nil))
}

// Delete handles DELETE /api/channels/:id.
func (h *ChannelHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Channels.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "channel not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error deleting channel"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "channel deleted successfully"})
}
