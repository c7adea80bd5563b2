// Package client contains the client-side building blocks for talking to
// the job-tracking backend.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface) covering
//     authentication, profile, document and job endpoints.
//  2. A concrete REST implementation (see HTTPClient) that reads the bearer
//     token from local storage on every request, reports upload progress,
//     parses download file names, and maps failures to sentinel errors.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Transport failures are reported as ErrUnavailable. Non-2xx responses are
// returned as *APIError, which matches ErrUnauthorized (401/403) and
// ErrNotFound (404) with errors.Is. Failures are logged at warn level and
// then returned; the client never retries.
//
// # Concurrency & Contexts
//
// HTTPClient is safe for concurrent use. All operations accept a
// context.Context and honor cancellation; each request additionally runs
// under the configured request or upload timeout.
package client
