package mocks

import (
	"github.com/stretchr/testify/mock"
)

// DriverTx mocks a driver.Tx.
type DriverTx struct {
	mock.Mock
}

// NewDriverTx creates a DriverTx bound to t.
func NewDriverTx(t TestingT) *DriverTx {
	m := &DriverTx{}
	register(&m.Mock, t)
	return m
}

func (m *DriverTx) Commit() error {
	return m.Called().Error(0)
}

func (m *DriverTx) Rollback() error {
	return m.Called().Error(0)
}
