package change

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/sqlchanges/pkg/checksum"
)

type (
	// Step is a single executable SQL file in a Plan.
	Step struct {
		// Name is what the step is reported as: the filename for files in the
		// change folder, the schema relative path for manifest entries
		Name string

		// Path is the file that is rendered and executed
		Path string

		// Type is the type of the change file the step came from
		Type FileType

		// Source is the change file the step came from (itself or a manifest)
		Source File

		// Checksum is the hash of the file at Path
		Checksum string
	}

	// Plan is the expanded, hashed form of a list of change files.
	Plan struct {
		Steps []Step
		sum   *checksum.Sum
	}
)

// NewPlan expands manifests and hashes every constituent file in order.
//
// A manifest contributes its own bytes followed by each referenced file to
// the combined checksum, so editing either the list or one of the listed
// files is detected.
func NewPlan(files []File, schemaRoot string) (*Plan, error) {
	plan := &Plan{sum: checksum.NewSum()}

	for _, f := range files {
		content, err := os.ReadFile(f.Path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", f.Path)
		}

		hash := plan.sum.AddFile(f.Filename, content)
		if f.Type != Manifest {
			plan.Steps = append(plan.Steps, Step{
				Name:     f.Filename,
				Path:     f.Path,
				Type:     f.Type,
				Source:   f,
				Checksum: hash,
			})
			continue
		}

		targets, err := ResolveManifest(f.Path, schemaRoot)
		if err != nil {
			return nil, err
		}

		for _, target := range targets {
			content, err := os.ReadFile(target)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to read %s", target)
			}

			name := displayName(target, schemaRoot)
			plan.Steps = append(plan.Steps, Step{
				Name:     name,
				Path:     target,
				Type:     Manifest,
				Source:   f,
				Checksum: plan.sum.AddFile(name, content),
			})
		}
	}

	return plan, nil
}

// Checksum is the combined checksum of every file that went into the plan.
func (p *Plan) Checksum() string {
	return p.sum.Total()
}

// Sum returns the per-file hashes backing the plan.
func (p *Plan) Sum() *checksum.Sum {
	return p.sum
}

// Paths returns the files the plan executes, in order.
func (p *Plan) Paths() []string {
	paths := make([]string, 0, len(p.Steps))
	for _, s := range p.Steps {
		paths = append(paths, s.Path)
	}
	return paths
}

func displayName(target, schemaRoot string) string {
	if schemaRoot != "" {
		if rel, err := filepath.Rel(schemaRoot, target); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.Base(target)
}
