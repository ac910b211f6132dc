// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

package inbox

// Error codes specific to the inbox. Session and lookup failures reuse the
// auth codes.
const (
	CodeListFailed   = "INBOX_LIST_FAILED"
	CodeNotAccepting = "INBOX_NOT_ACCEPTING"
	CodeSendFailed   = "INBOX_SEND_FAILED"
	CodeStatusFailed = "INBOX_STATUS_FAILED"
)
