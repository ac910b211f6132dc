// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/whisperbox/whisperbox/internal/auth"
)

// MockCodeSender is a mock of auth.CodeSender.
type MockCodeSender struct {
	mock.Mock
}

var _ auth.CodeSender = (*MockCodeSender)(nil)

// NewMockCodeSender creates a mock that asserts its expectations on cleanup.
func NewMockCodeSender(t testingT) *MockCodeSender {
	m := &MockCodeSender{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// SendVerificationCode mocks auth.CodeSender.SendVerificationCode.
func (m *MockCodeSender) SendVerificationCode(ctx context.Context, email, username, code string) error {
	return m.Called(ctx, email, username, code).Error(0)
}
