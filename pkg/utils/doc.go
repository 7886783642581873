// Package utils provides small helpers shared across sqlchanges packages.
//
// # Identifier Utilities (identifier.go)
//
// Tracking table names are configurable and may be schema qualified, so they
// are quoted part by part with the dialect's quote character:
//
//	utils.QuoteIdentifier("ops.sqlchanges_lock", '"')
//	// Result: "ops"."sqlchanges_lock"
//
//	utils.QuoteIdentifier("sqlchanges_lock", '`')
//	// Result: `sqlchanges_lock`
//
// Quoting is idempotent; calling QuoteIdentifier on an already quoted name
// returns it unchanged.
//
// # Pointer Utilities (ptr.go)
//
//	timeout := utils.Ptr(5 * time.Minute)
package utils
