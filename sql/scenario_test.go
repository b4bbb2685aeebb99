package sql

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kroma-labs/sqlevent/event"
	"github.com/kroma-labs/sqlevent/instrument"
)

// openSQLMock opens an instrumented database backed by sqlmock.
func openSQLMock(t *testing.T, opts ...Option) (*sql.DB, sqlmock.Sqlmock, *event.Recorder) {
	t.Helper()

	dsn := "sqlevent_" + strings.ReplaceAll(t.Name(), "/", "_")
	mockDB, mock, err := sqlmock.NewWithDSN(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	rec := event.NewRecorder()
	opts = append([]Option{WithClient(event.NewClient(rec)), WithDBSystem("postgresql")}, opts...)

	db, err := Open("sqlmock", dsn, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db, mock, rec
}

func TestScenario_InsertAnimal(t *testing.T) {
	db, mock, rec := openSQLMock(t)

	query := "INSERT INTO animals (name, species) VALUES ($1,$2)"
	mock.ExpectExec(regexp.QuoteMeta(query)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	_, err := db.ExecContext(context.Background(), query,
		sql.Named("name", "Max"),
		sql.Named("species", "Lion"),
	)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Equal(t, 1, rec.Len())
	last, _ := rec.Last()
	fields := last.Data

	assert.Regexp(t, `^INSERT INTO`, fields[instrument.FieldSQL])
	assert.NotContains(t, fields[instrument.FieldSQL], "Lion")
	assert.Equal(t, "Max", fields["db.params.name"])
	assert.Equal(t, "Lion", fields["db.params.species"])
	assert.IsType(t, float64(0), fields[instrument.FieldDurationMs])
	assert.Equal(t, "db", fields[instrument.FieldType])
	assert.Equal(t, "postgresql", fields[instrument.FieldDBSystem])
	assert.Equal(t, int64(1), fields[instrument.FieldRowsAffected])
	assert.NotContains(t, fields, instrument.FieldTraceID)
	assert.NotContains(t, fields, instrument.FieldSpanID)
}

func TestScenario_QueryAndError(t *testing.T) {
	db, mock, rec := openSQLMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM animals WHERE species = $1")).
		WithArgs("Lion").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("Max").AddRow("Simba"))

	queryErr := errors.New(`pq: relation "zoo" does not exist`)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM zoo")).
		WillReturnError(queryErr)

	var names []string
	rows, err := db.QueryContext(context.Background(), "SELECT name FROM animals WHERE species = $1", "Lion")
	require.NoError(t, err)
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Close())
	assert.Equal(t, []string{"Max", "Simba"}, names)

	_, err = db.QueryContext(context.Background(), "SELECT * FROM zoo")
	assert.Same(t, queryErr, err)

	require.NoError(t, mock.ExpectationsWereMet())

	records := rec.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "Lion", records[0].Data["db.params.1"])
	assert.NotContains(t, records[0].Data, instrument.FieldError)
	assert.Equal(t, "*errors.errorString", records[1].Data[instrument.FieldError])
	assert.Equal(t, queryErr.Error(), records[1].Data[instrument.FieldErrorDetail])
}

func TestScenario_Transaction(t *testing.T) {
	db, mock, rec := openSQLMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE animals SET species = $1")).
		WithArgs("Tiger").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	_, err = tx.ExecContext(context.Background(), "UPDATE animals SET species = $1", "Tiger")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())

	records := rec.Records()
	require.Len(t, records, 3)
	assert.Equal(t, "BEGIN", records[0].Data[instrument.FieldName])
	assert.Equal(t, "UPDATE", records[1].Data[instrument.FieldName])
	assert.Equal(t, int64(3), records[1].Data[instrument.FieldRowsAffected])
	assert.Equal(t, "COMMIT", records[2].Data[instrument.FieldName])
}

func TestScenario_Sanitizer(t *testing.T) {
	db, mock, rec := openSQLMock(t, WithQuerySanitizer(DefaultQuerySanitizer))

	mock.ExpectExec("DELETE FROM animals").WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := db.ExecContext(context.Background(), "DELETE FROM animals WHERE name = 'Max' AND id = $1", 7)
	require.NoError(t, err)

	last, _ := rec.Last()
	assert.Equal(t, "DELETE FROM animals WHERE name = '?' AND id = $1", last.Data[instrument.FieldSQL])
	assert.Equal(t, int64(7), last.Data["db.params.1"])
}
