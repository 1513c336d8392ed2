package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/leakwatch/leakwatch/internal/model"
	"github.com/leakwatch/leakwatch/internal/repository"
	"github.com/leakwatch/leakwatch/internal/scheduler"
)

// ReportHandler serves daily report rows and the on-demand generation
// trigger.  Managers only ever see and generate their own rows; admins see
// and generate everything.
type ReportHandler struct {
	Reports   *repository.ReportRepo
	Generator *scheduler.Generator
}

func NewReportHandler(reports *repository.ReportRepo, generator *scheduler.Generator) *ReportHandler {
	return &ReportHandler{Reports: reports, Generator: generator}
}

type reportResp struct {
	ID           uint64    `json:"id"`
	ManagerID    uint64    `json:"managerId"`
	Solved       int       `json:"solved"`
	Unsolved     int       `json:"unsolved"`
	WaterLost    float64   `json:"waterLost"`
	AvgSolveTime float64   `json:"avgSolveTime"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toReportResp(r model.DailyReport) reportResp {
	return reportResp{
		ID:           r.ID,
		ManagerID:    r.ManagerID,
		Solved:       r.Solved,
		Unsolved:     r.Unsolved,
		WaterLost:    r.WaterLost,
		AvgSolveTime: r.AvgSolveTime,
		CreatedAt:    r.CreatedAt,
	}
}

// List handles GET /api/reports.
func (h *ReportHandler) List(c echo.Context) error {
	var scope uint64 // zero means all managers
	if principalRole(c) == model.RoleManager {
		managerID, err := principalID(c)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
		}
		scope = managerID
	}
	page, limit := pageParams(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	items, total, err := h.Reports.List(ctx, scope, page, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error fetching reports"})
	}
	out := make([]reportResp, 0, len(items))
	for _, r := range items {
		out = append(out, toReportResp(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"reports": out, "pagination": paginate(page, limit, total)})
}

// Generate handles POST /api/reports/generate.
func (h *ReportHandler) Generate(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	var generated []*model.DailyReport
	if principalRole(c) == model.RoleManager {
		managerID, err := principalID(c)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "invalid token"})
		}
		rep, err := h.Generator.GenerateFor(ctx, managerID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error generating report"})
		}
		generated = []*model.DailyReport{rep}
	} else {
		all, err := h.Generator.GenerateAll(ctx)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "error generating reports"})
		}
		generated = all
	}

	out := make([]reportResp, 0, len(generated))
	for _, r := range generated {
		out = append(out, toReportResp(*r))
	}
	return c.JSON(http.StatusCreated, echo.Map{"reports": out})
}
