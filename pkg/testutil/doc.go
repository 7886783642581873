// Package testutil holds fixtures shared by the sqlchanges test suites:
// bootstrapped SQLite databases, on-disk projects with change folders and
// helpers for running CLI commands.
package testutil
