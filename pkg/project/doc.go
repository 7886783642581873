// Package project manages the on-disk layout of a sqlchanges project.
//
// A project looks like this:
//
//	project-root/
//	├── sqlchanges.yaml          # database, lock and template settings
//	├── changes/
//	│   └── 2024-01-15-add-users/
//	│       ├── changelog.md     # optional notes
//	│       ├── change/          # forward files, run in lexical order
//	│       │   ├── 001_create.sql
//	│       │   └── 002_seed.sql.tmpl
//	│       └── revert/          # optional reverse files
//	│           └── 001_drop.sql
//	├── schema/                  # files referenced by .txt manifests
//	└── tmp/                     # dry run output
//
// Initialize creates any missing pieces of that layout without touching
// existing files, and NewChange scaffolds a dated change folder.
package project
