package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leakwatch/leakwatch/internal/notify"
	"github.com/leakwatch/leakwatch/internal/repository"
)

func newChannelHandler(t *testing.T) (*ChannelHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	channels := repository.NewChannelRepo(db)
	notifications := repository.NewNotificationRepo(db)
	dispatcher := notify.NewDispatcher(channels, notifications, nil, nil)
	return NewChannelHandler(channels, dispatcher), mock
}

var channelCols = []string{"id", "channel_id", "name", "location", "station_count", "manager_id",
	"plumber_id", "status", "water_lost", "solve_time", "initial_flow_rate", "status_per_station",
	"created_at", "updated_at"}

func TestChannelCreateConflict(t *testing.T) {
	h, mock := newChannelHandler(t)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("CH-001").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	c, rec := jsonRequest(t, http.MethodPost, "/api/channels",
		`{"channelId":"CH-001","name":"North Basin","location":"Sector 4","stationCount":3,"managerId":2}`)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already exists")
}

func TestChannelCreateValidatesBody(t *testing.T) {
	h, _ := newChannelHandler(t)
	c, rec := jsonRequest(t, http.MethodPost, "/api/channels", `{"name":"No Key"}`)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation failed")
}

func TestChannelGetNotFound(t *testing.T) {
	h, mock := newChannelHandler(t)
	mock.ExpectQuery("FROM channels WHERE id").
		WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows(channelCols))

	c, rec := jsonRequest(t, http.MethodGet, "/", "")
	c.SetParamNames("id")
	c.SetParamValues("99")
	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChannelUpdateSurvivesDispatchNoOp(t *testing.T) {
	// the updated channel has no assigned plumber, so the automatic trigger
	// is a silent no-op and the update still answers 200
	h, mock := newChannelHandler(t)
	now := time.Now()

	mock.ExpectQuery("FROM channels WHERE id").
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows(channelCols).
			AddRow(5, "CH-001", "North Basin", "Sector 4", 3, 2, nil, "unsolved", 3.0, nil, 40.0, nil, now, now))
	mock.ExpectExec("UPDATE channels SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM channels c LEFT JOIN plumbers p").
		WithArgs("CH-001").
		WillReturnRows(sqlmock.NewRows(append(append([]string{}, channelCols...), "p_id", "p_name", "p_email")).
			AddRow(5, "CH-001", "North Basin", "Sector 4", 3, 2, nil, "unsolved", 25.0, nil, 40.0, nil, now, now, nil, nil, nil))

	c, rec := jsonRequest(t, http.MethodPut, "/", `{"waterLost":25.0}`)
	c.SetParamNames("id")
	c.SetParamValues("5")
	require.NoError(t, h.Update(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"waterLost":25`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChannelDeleteNotFound(t *testing.T) {
	h, mock := newChannelHandler(t)
	mock.ExpectExec("DELETE FROM channels").
		WithArgs(uint64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	c, rec := jsonRequest(t, http.MethodDelete, "/", "")
	c.SetParamNames("id")
	c.SetParamValues("99")
	require.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
