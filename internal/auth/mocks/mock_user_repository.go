// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

package mocks

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/whisperbox/whisperbox/internal/auth"
)

// MockUserRepository is a mock of auth.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

var _ auth.UserRepository = (*MockUserRepository)(nil)

// NewMockUserRepository creates a mock that asserts its expectations on cleanup.
func NewMockUserRepository(t testingT) *MockUserRepository {
	m := &MockUserRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func userResult(ret mock.Arguments) (*auth.User, error) {
	var u *auth.User
	if v := ret.Get(0); v != nil {
		u = v.(*auth.User)
	}
	return u, ret.Error(1)
}

// GetByID mocks auth.UserRepository.GetByID.
func (m *MockUserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	return userResult(m.Called(ctx, id))
}

// GetByIdentifier mocks auth.UserRepository.GetByIdentifier.
func (m *MockUserRepository) GetByIdentifier(ctx context.Context, identifier string) (*auth.User, error) {
	return userResult(m.Called(ctx, identifier))
}

// GetByUsername mocks auth.UserRepository.GetByUsername.
func (m *MockUserRepository) GetByUsername(ctx context.Context, username string, verifiedOnly bool) (*auth.User, error) {
	return userResult(m.Called(ctx, username, verifiedOnly))
}

// GetByEmail mocks auth.UserRepository.GetByEmail.
func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return userResult(m.Called(ctx, email))
}

// Create mocks auth.UserRepository.Create.
func (m *MockUserRepository) Create(ctx context.Context, user *auth.User) error {
	return m.Called(ctx, user).Error(0)
}

// UpdatePending mocks auth.UserRepository.UpdatePending.
func (m *MockUserRepository) UpdatePending(ctx context.Context, user *auth.User) error {
	return m.Called(ctx, user).Error(0)
}

// ReclaimPending mocks auth.UserRepository.ReclaimPending.
func (m *MockUserRepository) ReclaimPending(ctx context.Context, user *auth.User, now time.Time) error {
	return m.Called(ctx, user, now).Error(0)
}

// RecordFailedCode mocks auth.UserRepository.RecordFailedCode.
func (m *MockUserRepository) RecordFailedCode(ctx context.Context, id ulid.ULID, at time.Time, maxAttempts int) error {
	return m.Called(ctx, id, at, maxAttempts).Error(0)
}

// MarkVerified mocks auth.UserRepository.MarkVerified.
func (m *MockUserRepository) MarkVerified(ctx context.Context, id ulid.ULID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

// UpdatePassword mocks auth.UserRepository.UpdatePassword.
func (m *MockUserRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

// SetAcceptingMessages mocks auth.UserRepository.SetAcceptingMessages.
func (m *MockUserRepository) SetAcceptingMessages(ctx context.Context, id ulid.ULID, accepting bool) error {
	return m.Called(ctx, id, accepting).Error(0)
}
