package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mosaicnetworks/flowsync/src/common"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultBadgerFile is the default name of the folder containing the Badger
	// database
	DefaultBadgerFile = "badger_db"

	// DefaultComponentsFile is the default name of the file where the
	// component library received from the runtime is cached.
	DefaultComponentsFile = "components.json"
)

// Default configuration values.
const (
	DefaultLogLevel             = "debug"
	DefaultLogFile              = ""
	DefaultRuntimeAddr          = "ws://127.0.0.1:3569"
	DefaultServiceAddr          = "127.0.0.1:8000"
	DefaultNoService            = false
	DefaultStore                = false
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectInterval    = 1000 * time.Millisecond
	DefaultHandshakeTimeout     = 10000 * time.Millisecond
	DefaultSendQueueSize        = 1024
	DefaultNameDebounce         = 200 * time.Millisecond
	DefaultCodeDebounce         = 1000 * time.Millisecond
)

// Config contains all the configuration properties of a flowsync client.
type Config struct {
	// DataDir is the top-level directory containing flowsync configuration
	// and data
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogFile, when set, receives a copy of every log entry at or above
	// LogLevel.
	LogFile string `mapstructure:"log-file"`

	// RuntimeAddr is the websocket URL of the FBP runtime.
	RuntimeAddr string `mapstructure:"runtime"`

	// Workspace is the id of the workspace to open. It is negotiated as the
	// websocket subprotocol. A random one is generated when empty.
	Workspace string `mapstructure:"workspace"`

	// NoService disables the HTTP status service.
	NoService bool `mapstructure:"no-service"`

	// ServiceAddr is the address:port of the HTTP status service.
	ServiceAddr string `mapstructure:"service-listen"`

	// Store activates persistant storage of flow snapshots.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// MaxReconnectAttempts bounds the reconnection attempts after the
	// connection was lost.
	MaxReconnectAttempts int `mapstructure:"max-reconnect"`

	// ReconnectInterval is the wait after each reconnection attempt.
	ReconnectInterval time.Duration `mapstructure:"reconnect-interval"`

	// HandshakeTimeout bounds the websocket opening handshake.
	HandshakeTimeout time.Duration `mapstructure:"handshake-timeout"`

	// SendQueueSize bounds the messages held while the connection is not
	// open.
	SendQueueSize int `mapstructure:"send-queue"`

	// NameDebounce is the quiet period before a node rename is sent.
	NameDebounce time.Duration `mapstructure:"name-debounce"`

	// CodeDebounce is the quiet period before a code edit is sent.
	CodeDebounce time.Duration `mapstructure:"code-debounce"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:              DefaultDataDir(),
		LogLevel:             DefaultLogLevel,
		LogFile:              DefaultLogFile,
		RuntimeAddr:          DefaultRuntimeAddr,
		ServiceAddr:          DefaultServiceAddr,
		NoService:            DefaultNoService,
		Store:                DefaultStore,
		DatabaseDir:          DefaultDatabaseDir(),
		MaxReconnectAttempts: DefaultMaxReconnectAttempts,
		ReconnectInterval:    DefaultReconnectInterval,
		HandshakeTimeout:     DefaultHandshakeTimeout,
		SendQueueSize:        DefaultSendQueueSize,
		NameDebounce:         DefaultNameDebounce,
		CodeDebounce:         DefaultCodeDebounce,
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.logger = common.NewTestLogger(t, level)
	return config
}

// SetDataDir sets the top-level flowsync directory, and updates the
// database directory if it is currently set to the default value. If the
// database directory is not currently the default, it means the user has
// explicitely set it to something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// ComponentsFile returns the full path of the component library cache.
func (c *Config) ComponentsFile() string {
	return filepath.Join(c.DataDir, DefaultComponentsFile)
}

// WorkspaceID returns the configured workspace, generating and remembering
// a random one if none is set.
func (c *Config) WorkspaceID() string {
	if c.Workspace == "" {
		c.Workspace = uuid.New().String()
	}
	return c.Workspace
}

// Logger returns a formatted logrus Entry, with prefix set to "flowsync".
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)
		if c.LogFile != "" {
			c.logger.Hooks.Add(lfshook.NewHook(
				lfshook.PathMap{
					logrus.DebugLevel: c.LogFile,
					logrus.InfoLevel:  c.LogFile,
					logrus.WarnLevel:  c.LogFile,
					logrus.ErrorLevel: c.LogFile,
				},
				&logrus.JSONFormatter{},
			))
		}
	}
	return c.logger.WithField("prefix", "flowsync")
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir return the default directory name for top-level flowsync
// config based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Flowsync")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Flowsync")
		} else {
			return filepath.Join(home, ".flowsync")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
