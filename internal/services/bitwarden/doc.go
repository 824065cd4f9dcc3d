// Package bitwarden wraps the Bitwarden CLI (`bw`) behind a typed client.
//
// The CLI is an opaque collaborator: every operation is a single process
// invocation whose JSON output is decoded into typed records. The session
// token is passed explicitly per call and never written to disk or logs.
// Command execution goes through an Executor interface so tests can verify
// invocations without a real binary.
package bitwarden
