package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/pseudomuto/sqlchanges/pkg/consts"
	"go.uber.org/fx"
)

// Loader loads the project config from a directory.
type Loader func(dir string) (*Config, error)

var Module = fx.Module("config", fx.Provide(
	func() Loader { return Load },
))

// Load reads sqlchanges.yaml from dir. A missing file yields a nil config so
// that commands like init and help still work outside of a project.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, consts.ConfigFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "failed to stat %s", path)
	}

	return LoadConfigFile(path)
}
