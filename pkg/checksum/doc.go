// Package checksum computes the content hashes sqlchanges uses to detect
// whether a change has already been applied.
//
// Every file is hashed over its raw bytes with SHA-256 and encoded in the h1
// format (h1:<base64>). The combined checksum of a change is the hash of the
// ordered concatenation of its file hashes, so any edit to a file, or any
// change to the order files run in, produces a different combined checksum.
//
// # Usage Example
//
//	first, err := checksum.File("changes/2024-01-15-add-users/change/001_create.sql")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	second, err := checksum.File("changes/2024-01-15-add-users/change/002_index.sql")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Println(checksum.Combine(first, second))
//
// The hash is used for change detection only. It is deterministic and
// collision resistant enough for that purpose; nothing relies on it for
// security.
package checksum
