package mocks

import (
	"database/sql/driver"
	"io"

	"github.com/stretchr/testify/mock"
)

// DriverRows mocks a driver.Rows.
type DriverRows struct {
	mock.Mock
}

// NewDriverRows creates a DriverRows bound to t.
func NewDriverRows(t TestingT) *DriverRows {
	m := &DriverRows{}
	register(&m.Mock, t)
	return m
}

func (m *DriverRows) Columns() []string {
	return get[[]string](m.Called(), 0)
}

func (m *DriverRows) Close() error {
	return m.Called().Error(0)
}

func (m *DriverRows) Next(dest []driver.Value) error {
	return m.Called(dest).Error(0)
}

// ExpectValues expects columns once, then one Next per row copying it into
// dest, then io.EOF, then Close.
func (m *DriverRows) ExpectValues(columns []string, rows ...[]driver.Value) *DriverRows {
	m.On("Columns").Return(columns)
	for _, row := range rows {
		m.On("Next", mock.Anything).Run(func(args mock.Arguments) {
			copy(args.Get(0).([]driver.Value), row)
		}).Return(nil).Once()
	}
	m.On("Next", mock.Anything).Return(io.EOF).Once()
	m.On("Close").Return(nil).Once()
	return m
}
