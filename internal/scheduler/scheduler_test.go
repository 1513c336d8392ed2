package scheduler

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leakwatch/leakwatch/internal/repository"
)

func newGenerator(t *testing.T) (*Generator, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewGenerator(repository.NewChannelRepo(db), repository.NewReportRepo(db)), mock
}

func expectAggregate(mock sqlmock.Sqlmock, managerID uint64, solved, unsolved int, water, avg float64) {
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(managerID).
		WillReturnRows(sqlmock.NewRows([]string{"count", "solved", "unsolved", "water", "avg"}).
			AddRow(solved+unsolved, solved, unsolved, water, avg))
}

func TestGenerateForSnapshotsAggregates(t *testing.T) {
	gen, mock := newGenerator(t)
	expectAggregate(mock, 2, 1, 3, 57.5, 2.25)
	mock.ExpectExec("INSERT INTO daily_reports").
		WithArgs(uint64(2), 1, 3, 57.5, 2.25).
		WillReturnResult(sqlmock.NewResult(11, 1))

	rep, err := gen.GenerateFor(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(11), rep.ID)
	assert.Equal(t, 1, rep.Solved)
	assert.Equal(t, 3, rep.Unsolved)
	assert.Equal(t, 57.5, rep.WaterLost)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateAllCoversEveryManager(t *testing.T) {
	gen, mock := newGenerator(t)
	mock.ExpectQuery("SELECT id FROM managers").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2).AddRow(3))

	expectAggregate(mock, 2, 1, 0, 5.0, 1.0)
	mock.ExpectExec("INSERT INTO daily_reports").
		WillReturnResult(sqlmock.NewResult(1, 1))
	expectAggregate(mock, 3, 0, 2, 40.0, 0)
	mock.ExpectExec("INSERT INTO daily_reports").
		WillReturnResult(sqlmock.NewResult(2, 1))

	reports, err := gen.GenerateAll(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, uint64(2), reports[0].ManagerID)
	assert.Equal(t, uint64(3), reports[1].ManagerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateAllContinuesPastFailures(t *testing.T) {
	gen, mock := newGenerator(t)
	mock.ExpectQuery("SELECT id FROM managers").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2).AddRow(3))

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(uint64(2)).
		WillReturnError(assert.AnError)
	expectAggregate(mock, 3, 0, 2, 40.0, 0)
	mock.ExpectExec("INSERT INTO daily_reports").
		WillReturnResult(sqlmock.NewResult(2, 1))

	reports, err := gen.GenerateAll(context.Background())
	assert.Error(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, uint64(3), reports[0].ManagerID)
}
