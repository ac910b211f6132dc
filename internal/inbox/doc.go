// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Whisperbox Contributors

// Package inbox stores anonymous messages and serves them to the inbox owner.
//
// Anyone may append a message to a verified user's inbox while the owner
// accepts messages. Only the owner, identified by an auth.Principal, can list
// them. Listing returns the newest message first.
package inbox
