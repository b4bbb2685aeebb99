package mocks

import (
	"context"
	"database/sql/driver"

	"github.com/stretchr/testify/mock"
)

// DriverConnWithoutExecer mocks a driver.Conn with no optional interfaces,
// so every statement goes through Prepare.
type DriverConnWithoutExecer struct {
	mock.Mock
}

// NewDriverConnWithoutExecer creates a DriverConnWithoutExecer bound to t.
func NewDriverConnWithoutExecer(t TestingT) *DriverConnWithoutExecer {
	m := &DriverConnWithoutExecer{}
	register(&m.Mock, t)
	return m
}

func (m *DriverConnWithoutExecer) Prepare(query string) (driver.Stmt, error) {
	ret := m.Called(query)
	return get[driver.Stmt](ret, 0), ret.Error(1)
}

func (m *DriverConnWithoutExecer) Close() error {
	return m.Called().Error(0)
}

func (m *DriverConnWithoutExecer) Begin() (driver.Tx, error) {
	ret := m.Called()
	return get[driver.Tx](ret, 0), ret.Error(1)
}

// DriverConn mocks a driver.Conn that also executes and queries directly.
// Returning driver.ErrSkip from ExecContext or QueryContext sends the
// caller down the Prepare path.
type DriverConn struct {
	DriverConnWithoutExecer
}

var (
	_ driver.ExecerContext  = (*DriverConn)(nil)
	_ driver.QueryerContext = (*DriverConn)(nil)
)

// NewDriverConn creates a DriverConn bound to t.
func NewDriverConn(t TestingT) *DriverConn {
	m := &DriverConn{}
	register(&m.Mock, t)
	return m
}

func (m *DriverConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	ret := m.Called(ctx, query, args)
	return get[driver.Result](ret, 0), ret.Error(1)
}

func (m *DriverConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	ret := m.Called(ctx, query, args)
	return get[driver.Rows](ret, 0), ret.Error(1)
}
