// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

// Package mocks provides testify mocks for the auth package interfaces.
package mocks

import "github.com/stretchr/testify/mock"

// testingT is what the constructors need to register expectation checks.
type testingT interface {
	mock.TestingT
	Cleanup(func())
}
