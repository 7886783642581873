package consts

import (
	"os"
	"time"
)

const (
	// ModeDir is the standard file mode for creating directories
	ModeDir = os.FileMode(0o755)

	// ModeFile is the standard file mode for creating files
	ModeFile = os.FileMode(0o644)

	// ConfigFile is the name of the project configuration file
	ConfigFile = "sqlchanges.yaml"

	// DefaultChangesDir is where change folders live, relative to the project root
	DefaultChangesDir = "changes"

	// DefaultSchemaDir is the root manifests and template includes resolve against
	DefaultSchemaDir = "schema"

	// DefaultTmpDir is where dry runs write rendered SQL
	DefaultTmpDir = "tmp"

	// DefaultTablePrefix prefixes the lock, changeset, and executions tables
	DefaultTablePrefix = "sqlchanges"

	// DefaultConfigName is the lock scope used when the config doesn't name one
	DefaultConfigName = "default"

	// DefaultLockTimeout is how long an acquired lock is valid for before it expires
	DefaultLockTimeout = 5 * time.Minute

	// DefaultLockWaitTimeout caps how long Acquire polls when waiting is enabled
	DefaultLockWaitTimeout = 30 * time.Second

	// DefaultLockPollInterval is the delay between acquire attempts while waiting
	DefaultLockPollInterval = time.Second

	// EnvDSN overrides database.dsn from the project config when set
	EnvDSN = "SQLCHANGES_DSN"
)
