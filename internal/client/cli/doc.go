// Package cli provides the interactive applytrack terminal client.
//
// The App wires the auth session, profile editing, the document workflow
// and job records into a read–eval–print loop. Typical flow: the session is
// resolved from the stored token at startup, the user logs in if needed, and
// commands are executed until "exit".
//
// Key features:
//   - Signup / Verify / Login / Logout / Whoami / Refresh
//   - Profile and skill editing
//   - Document listing, upload with progress, download and removal
//   - Job records and a combined overview
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
