package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/leakwatch/leakwatch/internal/model"
	"github.com/leakwatch/leakwatch/internal/notify"
	"github.com/leakwatch/leakwatch/internal/repository"
)

// NotificationHandler exposes the manual send path and the per-plumber
// catch-up listing.
type NotificationHandler struct {
	Dispatcher    *notify.Dispatcher
	Notifications *repository.NotificationRepo
}

func NewNotificationHandler(dispatcher *notify.Dispatcher, notifications *repository.NotificationRepo) *NotificationHandler {
	return &NotificationHandler{Dispatcher: dispatcher, Notifications: notifications}
}

type sendNotificationReq struct {
	ChannelID string `json:"channelId"`
	Message   string `json:"message"`
}

type notificationResp struct {
	ID        uint64    `json:"id"`
	ChannelID uint64    `json:"channelId"`
	PlumberID uint64    `json:"plumberId"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

func toNotificationResp(n model.Notification) notificationResp {
	return notificationResp{
		ID:        n.ID,
		ChannelID: n.ChannelID,
		PlumberID: n.PlumberID,
		Message:   n.Message,
		CreatedAt: n.CreatedAt,
	}
}

// Send handles POST /api/notifications/send.  Field presence is checked by
// the dispatcher itself so the manual path has a single source of truth.
func (h *NotificationHandler) Send(c echo.Context) error {
	var req sendNotificationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid request body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	payload, err := h.Dispatcher.DispatchManual(ctx, req.ChannelID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, notify.ErrMissingFields):
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "channelId and message are required"})
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"message": "channel or plumber not found"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error sending notification"})
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{"notification": payload})
}

// ListByPlumber handles GET /api/notifications/:plumberId.
func (h *NotificationHandler) ListByPlumber(c echo.Context) error {
	plumberID, err := parseID(c, "plumberId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid plumber id"})
	}
	page, limit := pageParams(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	items, total, err := h.Notifications.ListByPlumber(ctx, plumberID, page, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error fetching notifications"})
	}
	out := make([]notificationResp, 0, len(items))
	for _, n := range items {
		out = append(out, toNotificationResp(n))
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": out, "pagination": paginate(page, limit, total)})
}
