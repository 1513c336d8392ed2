package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leakwatch/leakwatch/internal/model"
)

func newChannelRepo(t *testing.T) (*ChannelRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewChannelRepo(db), mock
}

func TestChannelCreateDuplicateBusinessKey(t *testing.T) {
	repo, mock := newChannelRepo(t)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("CH-001").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := repo.Create(context.Background(), &model.Channel{ChannelID: "CH-001", ManagerID: 2})
	assert.ErrorIs(t, err, ErrChannelExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChannelCreateInsertsRow(t *testing.T) {
	repo, mock := newChannelRepo(t)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("CH-001").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO channels").
		WillReturnResult(sqlmock.NewResult(7, 1))

	id, err := repo.Create(context.Background(), &model.Channel{
		ChannelID:        "CH-001",
		Name:             "North Basin",
		Location:         "Sector 4",
		ManagerID:        2,
		Status:           model.ChannelStatusUnsolved,
		StatusPerStation: map[string]string{"s1": "ok"},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChannelGetByChannelIDNotFound(t *testing.T) {
	repo, mock := newChannelRepo(t)
	mock.ExpectQuery("SELECT .+ FROM channels WHERE channel_id").
		WithArgs("CH-404").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByChannelID(context.Background(), "CH-404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChannelGetByChannelIDWithPlumber(t *testing.T) {
	repo, mock := newChannelRepo(t)
	now := time.Now()
	cols := []string{"id", "channel_id", "name", "location", "station_count", "manager_id", "plumber_id",
		"status", "water_lost", "solve_time", "initial_flow_rate", "status_per_station",
		"created_at", "updated_at", "p_id", "p_name", "p_email"}

	t.Run("assigned", func(t *testing.T) {
		mock.ExpectQuery("FROM channels c LEFT JOIN plumbers p").
			WithArgs("CH-001").
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow(5, "CH-001", "North Basin", "Sector 4", 3, 2, 31, "unsolved", 12.5, nil, 40.0,
					`{"s1":"leaking"}`, now, now, 31, "Ana", "ana@leakwatch.dev"))

		ch, plumber, err := repo.GetByChannelIDWithPlumber(context.Background(), "CH-001")
		require.NoError(t, err)
		require.NotNil(t, plumber)
		assert.Equal(t, uint64(31), plumber.ID)
		assert.Equal(t, "Ana", plumber.Name)
		assert.Equal(t, map[string]string{"s1": "leaking"}, ch.StatusPerStation)
		assert.True(t, ch.HasProblem())
	})

	t.Run("unassigned", func(t *testing.T) {
		mock.ExpectQuery("FROM channels c LEFT JOIN plumbers p").
			WithArgs("CH-002").
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow(6, "CH-002", "South Basin", "Sector 5", 2, 2, nil, "unsolved", 0.0, nil, 10.0,
					nil, now, now, nil, nil, nil))

		_, plumber, err := repo.GetByChannelIDWithPlumber(context.Background(), "CH-002")
		require.NoError(t, err)
		assert.Nil(t, plumber)
	})
}

func TestChannelAggregateByManager(t *testing.T) {
	repo, mock := newChannelRepo(t)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"count", "solved", "unsolved", "water", "avg"}).
			AddRow(4, 1, 3, 57.5, 2.25))

	agg, err := repo.AggregateByManager(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 4, agg.TotalChannels)
	assert.Equal(t, 1, agg.SolvedChannels)
	assert.Equal(t, 3, agg.UnsolvedChannels)
	assert.Equal(t, 57.5, agg.TotalWaterLost)
	assert.Equal(t, 2.25, agg.AvgSolveTime)
}

func TestChannelAggregateNoSolvedChannels(t *testing.T) {
	repo, mock := newChannelRepo(t)
	// AVG over zero solved rows comes back NULL and must read as zero
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"count", "solved", "unsolved", "water", "avg"}).
			AddRow(2, 0, 2, 30.0, nil))

	agg, err := repo.AggregateByManager(context.Background(), 2)
	require.NoError(t, err)
	assert.Zero(t, agg.AvgSolveTime)
}

func TestChannelDeleteMissingRow(t *testing.T) {
	repo, mock := newChannelRepo(t)
	mock.ExpectExec("DELETE FROM channels").
		WithArgs(uint64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), 99), ErrNotFound)
}
