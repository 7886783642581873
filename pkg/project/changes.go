package project

import (
	_ "embed"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/pseudomuto/sqlchanges/pkg/change"
	"github.com/pseudomuto/sqlchanges/pkg/consts"
)

var (
	//go:embed embed/change.sql
	changeTemplate string

	//go:embed embed/revert.sql
	revertTemplate string

	slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
)

// Changes discovers every change in the changes directory, sorted by name.
// A missing changes directory yields no changes.
func (p *Project) Changes() ([]*change.Change, error) {
	changes, err := change.DiscoverAll(p.ChangesDir(), p.logger)
	if change.IsNotFound(err) {
		return nil, nil
	}

	return changes, err
}

// Change parses the named change from the changes directory.
func (p *Project) Change(name string) (*change.Change, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, errors.Errorf("invalid change name: %q", name)
	}

	return change.Parse(filepath.Join(p.ChangesDir(), name))
}

// NewChange scaffolds a change named <date>-<slug> with a placeholder file in
// both change/ and revert/. The placeholders contain only comments, so the
// change refuses to run until real SQL is written.
func (p *Project) NewChange(slug string, date time.Time) (*change.Change, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if !slugPattern.MatchString(slug) {
		return nil, errors.Errorf("invalid change slug: %q (use lowercase letters, digits, - and _)", slug)
	}

	name := date.Format(time.DateOnly) + "-" + slug
	dir := filepath.Join(p.ChangesDir(), name)
	if _, err := os.Stat(dir); err == nil {
		return nil, errors.Errorf("change already exists: %s", name)
	}

	files := map[change.Direction]string{
		change.Forward: changeTemplate,
		change.Reverse: revertTemplate,
	}

	for direction, tmpl := range files {
		folder := filepath.Join(dir, direction.Folder())
		if err := os.MkdirAll(folder, consts.ModeDir); err != nil {
			return nil, errors.Wrapf(err, "failed to create directory %s", folder)
		}

		path := filepath.Join(folder, "001_"+strings.ReplaceAll(slug, "-", "_")+".sql")
		content := strings.ReplaceAll(tmpl, "$$NAME", name)
		if err := os.WriteFile(path, []byte(content), consts.ModeFile); err != nil {
			return nil, errors.Wrapf(err, "failed to write file %s", path)
		}
	}

	return change.Parse(dir)
}
