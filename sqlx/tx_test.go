package sqlx

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kroma-labs/sqlevent/instrument"
	"github.com/kroma-labs/sqlevent/tracing"
)

func TestTx(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		finish    func(tx *Tx) error
		wantNames []string
		wantErr   bool
	}{
		{
			name: "given commit, then reports BEGIN, UPDATE and COMMIT",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("UPDATE animals").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit()
			},
			finish:    func(tx *Tx) error { return tx.Commit() },
			wantNames: []string{"BEGIN", "UPDATE", "COMMIT"},
		},
		{
			name: "given rollback, then reports BEGIN, UPDATE and ROLLBACK",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("UPDATE animals").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectRollback()
			},
			finish:    func(tx *Tx) error { return tx.Rollback() },
			wantNames: []string{"BEGIN", "UPDATE", "ROLLBACK"},
		},
		{
			name: "given a failing commit, then records the error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("UPDATE animals").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))
			},
			finish:    func(tx *Tx) error { return tx.Commit() },
			wantNames: []string{"BEGIN", "UPDATE", "COMMIT"},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, rec := newMockDB(t, WithTracer(tracing.NewContextTracer()))
			tt.setupMock(mock)

			ctx := tracing.WithTraceID(context.Background(), "trace-tx")

			tx, err := db.BeginTxx(ctx, nil)
			require.NoError(t, err)

			n, err := tx.ExecUpdate(ctx, "UPDATE animals SET species = $1", "",
				instrument.Bind{Column: "species", Value: "Tiger"},
			)
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)

			err = tt.finish(tx)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())

			records := rec.Records()
			require.Len(t, records, len(tt.wantNames))
			for i, want := range tt.wantNames {
				assert.Equal(t, want, records[i].Data[instrument.FieldName])
				assert.Equal(t, "trace-tx", records[i].Data[instrument.FieldTraceID])
				assert.NotEmpty(t, records[i].Data[instrument.FieldSpanID])
			}

			last := records[len(records)-1].Data
			if tt.wantErr {
				assert.Equal(t, "serialization failure", last[instrument.FieldErrorDetail])
			} else {
				assert.NotContains(t, last, instrument.FieldError)
			}
		})
	}
}

func TestTx_BeginError(t *testing.T) {
	db, mock, rec := newMockDB(t)

	beginErr := errors.New("too many connections")
	mock.ExpectBegin().WillReturnError(beginErr)

	tx, err := db.BeginTxx(context.Background(), nil)
	assert.ErrorIs(t, err, beginErr)
	assert.Nil(t, tx)

	require.Equal(t, 1, rec.Len())
	fields := lastFields(t, rec)
	assert.Equal(t, "BEGIN", fields[instrument.FieldName])
	assert.Equal(t, beginErr.Error(), fields[instrument.FieldErrorDetail])
}

func TestTx_QueriesShareDepth(t *testing.T) {
	db, mock, rec := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name, species FROM animals")).
		WillReturnRows(sqlmock.NewRows([]string{"name", "species"}).AddRow("Max", "Lion"))
	mock.ExpectRollback()

	tx, err := db.Beginx()
	require.NoError(t, err)

	var as []animal
	require.NoError(t, tx.SelectContext(context.Background(), &as, "SELECT name, species FROM animals"))
	assert.Len(t, as, 1)
	assert.Zero(t, tx.w.Depth())

	require.NoError(t, tx.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, 3, rec.Len())
	assert.NotNil(t, tx.Unwrap())
}
