// Geogate - Service-Area Access Control and Session Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geogate

package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
)

// MockService runs until cancelled, optionally failing its first runs.
type MockService struct {
	name       string
	startCount atomic.Int32
	failCount  atomic.Int32
	maxFails   atomic.Int32
}

func NewMockService(name string) *MockService {
	return &MockService{name: name}
}

func (m *MockService) Serve(ctx context.Context) error {
	m.startCount.Add(1)
	if m.failCount.Add(1) <= m.maxFails.Load() {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

// SetFailCount makes the first n runs fail.
func (m *MockService) SetFailCount(n int) {
	m.maxFails.Store(int32(n))
}

func (m *MockService) StartCount() int32 {
	return m.startCount.Load()
}

func (m *MockService) String() string {
	return m.name
}

// PanicService panics on its first run and then behaves.
type PanicService struct {
	name       string
	startCount atomic.Int32
}

func NewPanicService(name string) *PanicService {
	return &PanicService{name: name}
}

func (p *PanicService) Serve(ctx context.Context) error {
	if p.startCount.Add(1) == 1 {
		panic("flush failed")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (p *PanicService) StartCount() int32 {
	return p.startCount.Load()
}

func (p *PanicService) String() string {
	return p.name
}
