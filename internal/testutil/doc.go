// Package testutil provides deterministic helpers for tests and the scenario
// harness.
package testutil
