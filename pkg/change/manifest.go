package change

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ResolveManifest reads the manifest at path and returns the files it lists,
// joined against schemaRoot and sorted lexically.
//
// Blank lines and lines starting with # are ignored. Every listed file must
// exist and be readable; the first one that isn't fails the whole manifest
// with a *ManifestError.
//
// Example manifest:
//
//	# views are rebuilt on every change
//	views/active_users.sql
//	views/recent_orders.sql
func ResolveManifest(path, schemaRoot string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open manifest: %s", path)
	}
	defer func() { _ = f.Close() }()

	var targets []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		target := line
		if !filepath.IsAbs(target) {
			target = filepath.Join(schemaRoot, filepath.FromSlash(line))
		}

		if err := readable(target); err != nil {
			return nil, &ManifestError{Manifest: path, Missing: target, Err: err}
		}

		targets = append(targets, target)
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read manifest: %s", path)
	}

	sort.Strings(targets)
	return targets, nil
}

func readable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	if info.IsDir() {
		return errors.New("is a directory")
	}

	return nil
}
