// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

// Package mocks provides testify mocks for the inbox package interfaces.
package mocks

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/whisperbox/whisperbox/internal/inbox"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockMessageRepository is a mock of inbox.MessageRepository.
type MockMessageRepository struct {
	mock.Mock
}

var _ inbox.MessageRepository = (*MockMessageRepository)(nil)

// NewMockMessageRepository creates a mock that asserts its expectations on cleanup.
func NewMockMessageRepository(t testingT) *MockMessageRepository {
	m := &MockMessageRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Append mocks inbox.MessageRepository.Append.
func (m *MockMessageRepository) Append(ctx context.Context, msg *inbox.Message) error {
	return m.Called(ctx, msg).Error(0)
}

// ListByOwner mocks inbox.MessageRepository.ListByOwner.
func (m *MockMessageRepository) ListByOwner(ctx context.Context, owner ulid.ULID) ([]inbox.Message, error) {
	ret := m.Called(ctx, owner)
	var msgs []inbox.Message
	if v := ret.Get(0); v != nil {
		msgs = v.([]inbox.Message)
	}
	return msgs, ret.Error(1)
}
