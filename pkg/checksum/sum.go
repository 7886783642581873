package checksum

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

type (
	// Sum records the hashes of an ordered list of files together with their
	// combined checksum.
	//
	// Unlike a plain Combine call, a Sum keeps the per-file hashes around so
	// they can be stored alongside each file execution and printed for
	// inspection.
	Sum struct {
		files []Entry
	}

	// Entry is a single file in a Sum.
	Entry struct {
		Name string
		Hash string
	}
)

// NewSum creates an empty Sum.
//
// Example:
//
//	sum := checksum.NewSum()
//	sum.AddFile("001_create_users.sql", content1)
//	sum.AddFile("002_create_orders.sql", content2)
//	fmt.Println(sum.Total())
func NewSum() *Sum {
	return &Sum{files: make([]Entry, 0)}
}

// LoadSum reads a Sum from the format produced by WriteTo. The total hash on
// the first line is verified against the entries that follow.
func LoadSum(r io.Reader) (*Sum, error) {
	scanner := bufio.NewScanner(r)
	sum := NewSum()

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, errors.Wrap(err, "failed to read total hash line")
		}
		return sum, nil
	}

	total := strings.TrimSpace(scanner.Text())
	if total != "" && !Valid(total) {
		return nil, errors.Errorf("invalid total hash format: %s", total)
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		idx := strings.LastIndex(line, " ")
		if idx <= 0 {
			return nil, errors.Errorf("invalid file entry format: %s", line)
		}

		name, hash := line[:idx], line[idx+1:]
		if !Valid(hash) {
			return nil, errors.Errorf("invalid hash format for file %s: %s", name, hash)
		}

		sum.Add(name, hash)
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "error reading sum")
	}

	if sum.Total() != total {
		return nil, errors.Errorf("total hash mismatch: expected %s, computed %s", total, sum.Total())
	}

	return sum, nil
}

// AddFile hashes content and appends it under name.
func (s *Sum) AddFile(name string, content []byte) string {
	hash := Bytes(content)
	s.Add(name, hash)
	return hash
}

// Add appends a precomputed hash under name.
func (s *Sum) Add(name, hash string) {
	s.files = append(s.files, Entry{Name: name, Hash: hash})
}

// Files returns the number of entries in the sum.
func (s *Sum) Files() int {
	return len(s.files)
}

// Entries returns a copy of the entries in insertion order.
func (s *Sum) Entries() []Entry {
	out := make([]Entry, len(s.files))
	copy(out, s.files)
	return out
}

// Hashes returns the per-file hashes in insertion order.
func (s *Sum) Hashes() []string {
	out := make([]string, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, f.Hash)
	}
	return out
}

// Total returns the combined checksum of all entries.
func (s *Sum) Total() string {
	return Combine(s.Hashes()...)
}

// WriteTo writes the sum in a line oriented format:
//
//	h1:<total>
//	001_create_users.sql h1:<hash>
//	002_create_orders.sql h1:<hash>
func (s *Sum) WriteTo(w io.Writer) (int64, error) {
	var total int64

	n, err := fmt.Fprintf(w, "%s\n", s.Total())
	if err != nil {
		return total, err
	}
	total += int64(n)

	for _, file := range s.files {
		n, err := fmt.Fprintf(w, "%s %s\n", file.Name, file.Hash)
		if err != nil {
			return total, err
		}
		total += int64(n)
	}

	return total, nil
}
