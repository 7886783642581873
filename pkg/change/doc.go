// Package change loads change folders from disk into an immutable in-memory
// model.
//
// A change is a directory named either with a date prefix
// (2024-01-15-add-users) or a bare slug (add-users). It contains up to two
// sub-folders and an optional changelog:
//
//	changes/
//	└── 2024-01-15-add-users/
//	    ├── change/
//	    │   ├── 001_create_users.sql
//	    │   ├── 002_seed.sql.tmpl
//	    │   └── 003_views.txt
//	    ├── revert/
//	    │   └── 001_drop_users.sql
//	    └── changelog.md
//
// Files ending in .sql or .sql.tmpl are SQL files, files ending in .txt are
// manifests listing other SQL files (one path per line, relative to the
// schema root, # comments allowed). Everything else is ignored.
//
// # Plans
//
// Before a change is executed its files are expanded into a Plan: manifests
// are replaced by the files they reference (sorted lexically) and every
// constituent is hashed. The same Plan drives both checksum comparison and
// execution, so both phases always see the same files in the same order.
//
//	ch, err := change.Parse("changes/2024-01-15-add-users")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	plan, err := change.NewPlan(ch.Files(change.Forward), "schema")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Println(plan.Checksum())
package change
