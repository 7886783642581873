package change

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

// Parse reads the change folder at path.
//
// Parse fails with an error whose cause is ErrNotFound when the folder
// doesn't exist, and with a *ValidationError when neither change/ nor
// revert/ contains recognised files or a folder holds duplicate filenames.
//
// Example:
//
//	ch, err := change.Parse("changes/2024-01-15-add-users")
//	if change.IsNotFound(err) {
//		fmt.Println("no such change")
//	}
func Parse(path string) (*Change, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve path: %s", path)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(ErrNotFound, abs)
		}
		return nil, errors.Wrapf(err, "failed to stat change: %s", abs)
	}

	if !info.IsDir() {
		return nil, &ValidationError{Path: abs, Problems: []string{"not a directory"}}
	}

	name := filepath.Base(abs)
	date, slug := splitName(name)

	ch := &Change{
		Name: name,
		Date: date,
		Slug: slug,
		Path: abs,
	}

	if ch.Forward, err = readFolder(filepath.Join(abs, Forward.Folder())); err != nil {
		return nil, err
	}

	if ch.Revert, err = readFolder(filepath.Join(abs, Reverse.Folder())); err != nil {
		return nil, err
	}

	if _, err := os.Stat(filepath.Join(abs, ChangelogFile)); err == nil {
		ch.HasChangelog = true
	}

	if err := ch.Validate(); err != nil {
		return nil, err
	}

	return ch, nil
}

// DiscoverAll parses every immediate sub-directory of dir.
//
// Folders that fail to parse are logged and skipped so one broken change
// doesn't hide the rest. The result is sorted by name, which puts
// date-prefixed changes in chronological order.
func DiscoverAll(dir string, logger *slog.Logger) ([]*Change, error) {
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(ErrNotFound, dir)
		}
		return nil, errors.Wrapf(err, "failed to read changes directory: %s", dir)
	}

	changes := make([]*Change, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		ch, err := Parse(filepath.Join(dir, entry.Name()))
		if err != nil {
			logger.Warn("Skipping invalid change", "name", entry.Name(), "err", err)
			continue
		}

		changes = append(changes, ch)
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Name < changes[j].Name
	})

	return changes, nil
}

// Names returns the names of the given changes.
func Names(changes []*Change) []string {
	names := make([]string, 0, len(changes))
	for _, ch := range changes {
		names = append(names, ch.Name)
	}
	return names
}

// readFolder lists recognised files in lexical order. A missing folder
// yields no files.
func readFolder(dir string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "failed to read folder: %s", dir)
	}

	var files []File
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		typ, ok := TypeOf(entry.Name())
		if !ok {
			continue
		}

		files = append(files, File{
			Filename: entry.Name(),
			Path:     filepath.Join(dir, entry.Name()),
			Type:     typ,
		})
	}

	// NB: os.ReadDir already sorts by filename, keep it explicit since
	// execution order depends on it.
	sort.Slice(files, func(i, j int) bool {
		return files[i].Filename < files[j].Filename
	})

	return files, nil
}
