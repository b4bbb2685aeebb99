package mocks

import (
	"database/sql/driver"

	"github.com/stretchr/testify/mock"
)

// DriverStmt mocks a driver.Stmt without the context variants.
type DriverStmt struct {
	mock.Mock
}

// NewDriverStmt creates a DriverStmt bound to t.
func NewDriverStmt(t TestingT) *DriverStmt {
	m := &DriverStmt{}
	register(&m.Mock, t)
	return m
}

func (m *DriverStmt) Close() error {
	return m.Called().Error(0)
}

func (m *DriverStmt) NumInput() int {
	return m.Called().Int(0)
}

func (m *DriverStmt) Exec(args []driver.Value) (driver.Result, error) {
	ret := m.Called(args)
	return get[driver.Result](ret, 0), ret.Error(1)
}

func (m *DriverStmt) Query(args []driver.Value) (driver.Rows, error) {
	ret := m.Called(args)
	return get[driver.Rows](ret, 0), ret.Error(1)
}
