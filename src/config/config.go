package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"github.com/InterCooperative-Network/icn-agoranet/src/common"
)

// Default filenames.
const (
	// DefaultKeyfile is the default name of the file containing the node's
	// private key.
	DefaultKeyfile = "priv_key"

	// DefaultBadgerFile is the default name of the folder containing the
	// Badger database.
	DefaultBadgerFile = "badger_db"

	// DefaultLogFile is the default name of the file that mirrors the log
	// output when a datadir is in use.
	DefaultLogFile = "agoranet.log"
)

// Default configuration values.
const (
	DefaultLogLevel          = "debug"
	DefaultListenAddr        = "/ip4/0.0.0.0/tcp/4001"
	DefaultServiceAddr       = "127.0.0.1:8000"
	DefaultNodeDID           = "did:icn:local"
	DefaultDiscoveryInterval = 30 * time.Second
	DefaultSyncInterval      = 5 * time.Second
	DefaultStore             = false
)

// Config contains all the configuration properties of an AgoraNet federation
// node.
type Config struct {
	// DataDir is the top-level directory containing AgoraNet configuration
	// and data.
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// ListenAddrs are the multiaddrs the overlay host binds to.
	ListenAddrs []string `mapstructure:"listen"`

	// NoService disables the HTTP API service.
	NoService bool `mapstructure:"no-service"`

	// ServiceAddr is the address:port of the optional HTTP service. If not
	// specified, and "no-service" is not set, the API handlers are registered
	// with the DefaultServerMux of the http package, which makes them
	// accessible from another server running in the same process.
	ServiceAddr string `mapstructure:"service-listen"`

	// BootstrapPeers are the multiaddrs of the peers dialed at startup and
	// periodically thereafter. Malformed entries are skipped.
	BootstrapPeers []string `mapstructure:"bootstrap-peers"`

	// NodeDID identifies this node in the announcements it originates.
	NodeDID string `mapstructure:"did"`

	// DiscoveryInterval is the period of the bootstrap redial timer.
	DiscoveryInterval time.Duration `mapstructure:"discovery-interval"`

	// SyncInterval is the period of the sync engine's housekeeping timer.
	SyncInterval time.Duration `mapstructure:"sync-interval"`

	// Store activates persistent storage.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// Moniker defines the friendly name of this node.
	Moniker string `mapstructure:"moniker"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:           DefaultDataDir(),
		LogLevel:          DefaultLogLevel,
		ListenAddrs:       []string{DefaultListenAddr},
		ServiceAddr:       DefaultServiceAddr,
		NodeDID:           DefaultNodeDID,
		DiscoveryInterval: DefaultDiscoveryInterval,
		SyncInterval:      DefaultSyncInterval,
		Store:             DefaultStore,
		DatabaseDir:       DefaultDatabaseDir(),
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests. The discovery and sync timers are shortened so
// tests do not have to wait for production intervals.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.DataDir = ""
	config.DiscoveryInterval = 50 * time.Millisecond
	config.SyncInterval = 20 * time.Millisecond
	config.logger = common.NewTestLogger(t, level)
	return config
}

// SetDataDir sets the top-level AgoraNet directory, and updates the database
// directory if it is currently set to the default value. If the database
// directory is not currently the default, it means the user has explicitely set
// it to something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// Keyfile returns the full path of the file containing the private key.
func (c *Config) Keyfile() string {
	return filepath.Join(c.DataDir, DefaultKeyfile)
}

// Logger returns a formatted logrus Entry, with prefix set to "agoranet".
// When a datadir is configured, the output is also mirrored to a log file in
// that directory.
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)

		if c.DataDir != "" {
			logFile := filepath.Join(c.DataDir, DefaultLogFile)
			if f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY, 0666); err != nil {
				c.logger.WithError(err).Info("Failed to open log file, using stderr only")
			} else {
				f.Close()
				pathMap := lfshook.PathMap{}
				for _, l := range logrus.AllLevels {
					if l <= c.logger.Level {
						pathMap[l] = logFile
					}
				}
				c.logger.Hooks.Add(lfshook.NewHook(
					pathMap,
					&logrus.TextFormatter{},
				))
			}
		}
	}
	return c.logger.WithField("prefix", "agoranet")
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir returns the default directory name for top-level AgoraNet
// config based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".AgoraNet")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "AgoraNet")
		} else {
			return filepath.Join(home, ".agoranet")
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
