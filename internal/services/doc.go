// Package services provides shared infrastructure for the external tools
// vaultback drives: a common error taxonomy with exit-code mapping, and
// context helpers that carry run and stage identity into structured logs.
package services
