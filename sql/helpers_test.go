package sql

import (
	"database/sql"
	"database/sql/driver"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kroma-labs/sqlevent/event"
	"github.com/kroma-labs/sqlevent/sql/mocks"
)

// openMock opens an instrumented pool of one connection served by conn.
func openMock(t *testing.T, conn driver.Conn, opts ...Option) (*sql.DB, *event.Recorder) {
	t.Helper()

	rec := event.NewRecorder()
	opts = append([]Option{WithClient(event.NewClient(rec))}, opts...)

	db, err := OpenDB(newConnector(t, conn), opts...)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	return db, rec
}

func newConnector(t *testing.T, conn driver.Conn) *mocks.Connector {
	c := mocks.NewConnector(t)
	c.On("Driver").Return(mocks.NewDriver(t))
	c.On("Connect", mock.Anything).Return(conn, nil).Maybe()
	return c
}

// newBareConn returns a connection that only prepares.
func newBareConn(t *testing.T) *mocks.DriverConnWithoutExecer {
	c := mocks.NewDriverConnWithoutExecer(t)
	c.On("Close").Return(nil).Maybe()
	return c
}

// newExecerConn returns a connection that executes and queries directly.
func newExecerConn(t *testing.T) *mocks.DriverConn {
	c := mocks.NewDriverConn(t)
	c.On("Close").Return(nil).Maybe()
	return c
}

// newStmt returns a statement that must be closed exactly once.
func newStmt(t *testing.T) *mocks.DriverStmt {
	s := mocks.NewDriverStmt(t)
	s.On("NumInput").Return(-1).Maybe()
	s.On("Close").Return(nil).Once()
	return s
}

func namedValues(values ...driver.Value) []driver.NamedValue {
	named := make([]driver.NamedValue, len(values))
	for i, v := range values {
		named[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return named
}

func mustConfig(t *testing.T, opts ...Option) *config {
	t.Helper()

	opts = append([]Option{WithClient(event.NewClient(event.NewRecorder()))}, opts...)
	cfg, err := newConfig(opts...)
	require.NoError(t, err)
	return cfg
}

// dbError mimics a driver error type.
type dbError struct {
	Code    string
	Message string
}

func (e *dbError) Error() string { return e.Code + ": " + e.Message }
