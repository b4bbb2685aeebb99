// Package mocks provides testify mocks of the database/sql/driver interfaces
// wrapped by the sql package. Every constructor asserts the registered
// expectations when the test ends.
package mocks

import (
	"github.com/stretchr/testify/mock"
)

// TestingT is the subset of *testing.T the constructors need.
type TestingT interface {
	mock.TestingT
	Cleanup(func())
}

func register(m *mock.Mock, t TestingT) {
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
}

// get returns ret[i] as T, or the zero T when the expectation returned nil.
func get[T any](ret mock.Arguments, i int) T {
	var v T
	if r := ret.Get(i); r != nil {
		v = r.(T)
	}
	return v
}
