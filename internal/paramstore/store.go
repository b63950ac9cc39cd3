// Package paramstore reads named runtime parameters from a key/value
// configuration store.
package paramstore

import (
	"context"
	"errors"
)

// ErrNotFound reports that a parameter does not exist in the store. Callers
// use it to tell an absent optional parameter apart from a transport failure.
var ErrNotFound = errors.New("parameter_not_found")

// Store is a read-only view of the configuration store.
type Store interface {
	Get(ctx context.Context, name string) (string, error)
}

// Memory is an in-process store for tests and wiring experiments. Lookups can
// be forced to fail per name through Fail.
type Memory struct {
	Values map[string]string
	Fail   map[string]error
}

func NewMemory(values map[string]string) *Memory {
	if values == nil {
		values = map[string]string{}
	}
	return &Memory{Values: values, Fail: map[string]error{}}
}

func (m *Memory) Get(_ context.Context, name string) (string, error) {
	if err, ok := m.Fail[name]; ok {
		return "", err
	}
	v, ok := m.Values[name]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}
