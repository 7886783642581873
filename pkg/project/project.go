package project

import (
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing/fstest"

	"github.com/pkg/errors"
	"github.com/pseudomuto/sqlchanges/pkg/config"
	"github.com/pseudomuto/sqlchanges/pkg/consts"
	"gopkg.in/yaml.v3"
)

var (
	//go:embed embed/sqlchanges.yaml
	defaultConfig []byte

	//go:embed embed/gitignore
	defaultGitignore []byte

	image = fstest.MapFS{
		"changes":         {Mode: os.ModeDir | consts.ModeDir},
		"schema":          {Mode: os.ModeDir | consts.ModeDir},
		".gitignore":      {Data: defaultGitignore},
		consts.ConfigFile: {Data: defaultConfig},
	}
)

type (
	// InitOptions fill in the generated sqlchanges.yaml. They only apply when
	// the file is created; an existing config is never rewritten.
	InitOptions struct {
		// Name is the config name; defaults to "default"
		Name string

		// Dialect defaults to sqlite
		Dialect string

		// DSN defaults to a sqlite database in the project root
		DSN string
	}

	ProjectParams struct {
		// Dir is the project root
		Dir string

		// Config is used as-is when set, instead of reading sqlchanges.yaml
		Config *config.Config

		Logger *slog.Logger
	}

	Project struct {
		root   string
		config *config.Config
		logger *slog.Logger
	}
)

// New creates a Project rooted at p.Dir. Unless p.Config is given, nothing is
// read until Initialize or Load is called.
//
// Example:
//
//	proj := project.New(project.ProjectParams{Dir: "/path/to/project"})
//	if err := proj.Initialize(project.InitOptions{Dialect: "postgres"}); err != nil {
//		log.Fatal(err)
//	}
//
//	changes, err := proj.Changes()
func New(p ProjectParams) *Project {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Project{root: p.Dir, config: p.Config, logger: logger}
}

// Initialize creates the project layout (sqlchanges.yaml, changes/, schema/)
// and loads the configuration. It is idempotent: only missing files and
// directories are created, existing content is preserved.
func (p *Project) Initialize(opts InitOptions) error {
	if err := p.ensureDirectory(); err != nil {
		return err
	}

	for path, entry := range image {
		fullPath := filepath.Join(p.root, path)

		if _, err := os.Stat(fullPath); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return errors.Wrapf(err, "failed to stat %s", fullPath)
		}

		if entry.Mode.IsDir() {
			if err := os.MkdirAll(fullPath, entry.Mode.Perm()); err != nil {
				return errors.Wrapf(err, "failed to create directory %s", fullPath)
			}

			continue
		}

		data := entry.Data
		if path == consts.ConfigFile {
			var err error
			if data, err = renderConfig(opts); err != nil {
				return err
			}
		}

		if err := os.WriteFile(fullPath, data, consts.ModeFile); err != nil {
			return errors.Wrapf(err, "failed to write file %s", fullPath)
		}

		p.logger.Debug("Created project file", "path", fullPath)
	}

	return p.Load()
}

// Load reads sqlchanges.yaml from the project root.
func (p *Project) Load() error {
	cfg, err := config.LoadConfigFile(p.ConfigPath())
	if err != nil {
		return errors.Wrapf(err, "failed to load %s", consts.ConfigFile)
	}

	p.config = cfg
	return nil
}

// Config returns the loaded configuration, or nil before Initialize/Load.
func (p *Project) Config() *config.Config { return p.config }

// Root returns the project root directory.
func (p *Project) Root() string { return p.root }

// ConfigPath returns the path to sqlchanges.yaml.
func (p *Project) ConfigPath() string { return filepath.Join(p.root, consts.ConfigFile) }

// ChangesDir returns the absolute changes directory.
func (p *Project) ChangesDir() string {
	return p.resolve(p.setting(func(c *config.Config) string { return c.ChangesDir }, consts.DefaultChangesDir))
}

// SchemaDir returns the absolute directory manifests resolve against.
func (p *Project) SchemaDir() string {
	return p.resolve(p.setting(func(c *config.Config) string { return c.SchemaDir }, consts.DefaultSchemaDir))
}

// TmpDir returns the absolute directory dry runs write to.
func (p *Project) TmpDir() string {
	return p.resolve(p.setting(func(c *config.Config) string { return c.TmpDir }, consts.DefaultTmpDir))
}

func (p *Project) setting(get func(*config.Config) string, def string) string {
	if p.config == nil {
		return def
	}

	if v := get(p.config); v != "" {
		return v
	}

	return def
}

func (p *Project) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(p.root, path)
}

func (p *Project) ensureDirectory() error {
	dir, err := os.Stat(p.root)
	if err != nil {
		return errors.Wrapf(err, "failed to stat dir: %s", p.root)
	}

	if !dir.IsDir() {
		return errors.Errorf("%s is not a directory", p.root)
	}

	return nil
}

func renderConfig(opts InitOptions) ([]byte, error) {
	if opts.Name == "" {
		opts.Name = consts.DefaultConfigName
	}
	if opts.Dialect == "" {
		opts.Dialect = "sqlite"
	}
	if opts.DSN == "" && opts.Dialect == "sqlite" {
		opts.DSN = "sqlchanges.db"
	}

	values := make([]string, 0, 6)
	for _, kv := range [][2]string{
		{"$$NAME", opts.Name},
		{"$$DIALECT", opts.Dialect},
		{"$$DSN", opts.DSN},
	} {
		quoted, err := yaml.Marshal(kv[1])
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encode %s", kv[1])
		}

		values = append(values, kv[0], strings.TrimSpace(string(quoted)))
	}

	return []byte(strings.NewReplacer(values...).Replace(string(defaultConfig))), nil
}
