package mocks

import (
	"context"
	"database/sql/driver"

	"github.com/stretchr/testify/mock"
)

// Driver mocks a driver.Driver.
type Driver struct {
	mock.Mock
}

// NewDriver creates a Driver bound to t.
func NewDriver(t TestingT) *Driver {
	m := &Driver{}
	register(&m.Mock, t)
	return m
}

func (m *Driver) Open(name string) (driver.Conn, error) {
	ret := m.Called(name)
	return get[driver.Conn](ret, 0), ret.Error(1)
}

// Connector mocks a driver.Connector.
type Connector struct {
	mock.Mock
}

// NewConnector creates a Connector bound to t.
func NewConnector(t TestingT) *Connector {
	m := &Connector{}
	register(&m.Mock, t)
	return m
}

func (m *Connector) Connect(ctx context.Context) (driver.Conn, error) {
	ret := m.Called(ctx)
	return get[driver.Conn](ret, 0), ret.Error(1)
}

func (m *Connector) Driver() driver.Driver {
	return get[driver.Driver](m.Called(), 0)
}

// DriverResult mocks a driver.Result.
type DriverResult struct {
	mock.Mock
}

// NewDriverResult creates a DriverResult bound to t.
func NewDriverResult(t TestingT) *DriverResult {
	m := &DriverResult{}
	register(&m.Mock, t)
	return m
}

func (m *DriverResult) LastInsertId() (int64, error) {
	ret := m.Called()
	return get[int64](ret, 0), ret.Error(1)
}

func (m *DriverResult) RowsAffected() (int64, error) {
	ret := m.Called()
	return get[int64](ret, 0), ret.Error(1)
}
