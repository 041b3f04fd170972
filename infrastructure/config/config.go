package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/duniter/duniter-rs-sub003/domain/dubpconfig"
	"github.com/duniter/duniter-rs-sub003/infrastructure/logger"
	"github.com/duniter/duniter-rs-sub003/version"
)

const (
	defaultConfigFilename = "duniter.conf"
	defaultDataDirname    = "data"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "duniter.log"
	defaultErrLogFilename = "duniter_err.log"
	defaultCurrency       = "g1"
	defaultMetricsListen  = "127.0.0.1:10901"
	defaultSyncChunkSize  = 500
	defaultDBCacheSizeMiB = 64
	minSyncChunkSize      = 1
	maxSyncChunkSize      = 100000
)

var (
	// DefaultHomeDir is the default home directory of the node
	DefaultHomeDir = defaultHomeDir()

	defaultConfigFile = filepath.Join(DefaultHomeDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(DefaultHomeDir, defaultDataDirname)
	defaultLogDir     = filepath.Join(DefaultHomeDir, defaultLogDirname)
)

// Flags defines the configuration options of the node. They are read
// from the command line and from the configuration file, with the command
// line taking precedence.
type Flags struct {
	ShowVersion        bool   `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile         string `short:"C" long:"configfile" description:"Path to configuration file"`
	HomeDir            string `long:"appdir" description:"Directory that is created when missing"`
	DataDir            string `short:"b" long:"datadir" description:"Directory to store data"`
	LogDir             string `long:"logdir" description:"Directory to log output."`
	DebugLevel         string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	Currency           string `long:"currency" description:"Built-in currency to follow {g1, g1-test}"`
	CurrencyParamsFile string `long:"currencyparams" description:"YAML file overriding the parameters of the selected currency"`
	ForkWindowSize     uint32 `long:"forkwindowsize" description:"Override the number of main branch blocks kept for fork resolution"`
	DBCacheSizeMiB     int    `long:"dbcachesize" description:"Size of the database cache in MiB"`
	Import             string `long:"import" description:"YAML stream of blocks to synchronize in bulk before starting"`
	SyncChunkSize      int    `long:"syncchunksize" description:"Number of blocks committed at once during bulk synchronization"`
	Process            string `long:"process" description:"YAML stream of blocks, possibly forking or out of order, to process one by one after startup"`
	MetricsListen      string `long:"metricslisten" description:"Interface/port to serve metrics and health checks on"`
	DisableMetrics     bool   `long:"nometrics" description:"Disable the metrics server"`
	Profile            string `long:"profile" description:"Enable HTTP profiling on given port -- NOTE port must be between 1024 and 65535"`
}

// Config is the resolved configuration of the node
type Config struct {
	*Flags
	CurrencyParams *dubpconfig.CurrencyParameters
}

// LogFile returns the path of the main log file
func (cfg *Config) LogFile() string {
	return filepath.Join(cfg.LogDir, defaultLogFilename)
}

// ErrLogFile returns the path of the log file receiving warnings and errors
func (cfg *Config) ErrLogFile() string {
	return filepath.Join(cfg.LogDir, defaultErrLogFilename)
}

// DefaultFlags returns the options the node runs with when nothing
// overrides them
func DefaultFlags() *Flags {
	return &Flags{
		ConfigFile:     defaultConfigFile,
		HomeDir:        DefaultHomeDir,
		DataDir:        defaultDataDir,
		LogDir:         defaultLogDir,
		DebugLevel:     defaultLogLevel,
		Currency:       defaultCurrency,
		DBCacheSizeMiB: defaultDBCacheSizeMiB,
		SyncChunkSize:  defaultSyncChunkSize,
		MetricsListen:  defaultMetricsListen,
	}
}

func defaultHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".duniter"
	}
	return filepath.Join(homeDir, ".duniter")
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(DefaultHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}
	return filepath.Clean(os.ExpandEnv(path))
}

func newConfigParser(cfgFlags *Flags, options flags.Options) *flags.Parser {
	return flags.NewParser(cfgFlags, options)
}

// LoadConfig initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// Log files are not opened here. The caller passes LogFile and ErrLogFile to
// logger.InitLog once the config is loaded.
func LoadConfig(args []string) (*Config, error) {
	cfgFlags := DefaultFlags()

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified. Any errors aside from the
	// help message error can be ignored here since they will be caught by
	// the final parse below.
	preCfg := *cfgFlags
	preParser := newConfigParser(&preCfg, flags.HelpFlag)
	_, err := preParser.ParseArgs(args)
	if err != nil {
		var flagsErr *flags.Error
		if ok := errors.As(err, &flagsErr); ok && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
			return nil, err
		}
	}

	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)
	if preCfg.ShowVersion {
		fmt.Println(appName, "version", version.Version())
		os.Exit(0)
	}

	parser := newConfigParser(cfgFlags, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
	if err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			fmt.Fprintf(os.Stderr, "Error parsing config file: %s\n", err)
			fmt.Fprintln(os.Stderr, usageMessage)
			return nil, err
		}
	}

	// Parse command line options again to ensure they take precedence.
	_, err = parser.ParseArgs(args)
	if err != nil {
		var flagsErr *flags.Error
		if ok := errors.As(err, &flagsErr); !ok || flagsErr.Type != flags.ErrHelp {
			fmt.Fprintln(os.Stderr, usageMessage)
		}
		return nil, err
	}

	cfg := &Config{Flags: cfgFlags}
	err = cfg.resolve()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usageMessage)
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) resolve() error {
	funcName := "loadConfig"

	cfg.HomeDir = cleanAndExpandPath(cfg.HomeDir)
	err := os.MkdirAll(cfg.HomeDir, 0700)
	if err != nil {
		return errors.Errorf("%s: Failed to create home directory: %s", funcName, err)
	}

	cfg.CurrencyParams, err = dubpconfig.ByName(cfg.Currency)
	if err != nil {
		return errors.Errorf("%s: %s", funcName, err)
	}
	if cfg.CurrencyParamsFile != "" {
		cfg.CurrencyParams, err = dubpconfig.Load(cleanAndExpandPath(cfg.CurrencyParamsFile), cfg.CurrencyParams)
		if err != nil {
			return errors.Wrapf(err, "%s", funcName)
		}
	}
	if cfg.ForkWindowSize != 0 {
		cfg.CurrencyParams.ForkWindowSize = cfg.ForkWindowSize
		err = cfg.CurrencyParams.Validate()
		if err != nil {
			return errors.Wrapf(err, "%s", funcName)
		}
	}

	// Data and logs are namespaced per currency
	cfg.DataDir = filepath.Join(cleanAndExpandPath(cfg.DataDir), cfg.CurrencyParams.Name)
	cfg.LogDir = filepath.Join(cleanAndExpandPath(cfg.LogDir), cfg.CurrencyParams.Name)
	if cfg.Import != "" {
		cfg.Import = cleanAndExpandPath(cfg.Import)
	}
	if cfg.Process != "" {
		cfg.Process = cleanAndExpandPath(cfg.Process)
	}

	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", logger.SupportedSubsystems())
		os.Exit(0)
	}
	err = logger.ParseAndSetLogLevels(cfg.DebugLevel)
	if err != nil {
		return errors.Errorf("%s: %s", funcName, err)
	}

	if cfg.SyncChunkSize < minSyncChunkSize || cfg.SyncChunkSize > maxSyncChunkSize {
		return errors.Errorf("%s: The sync chunk size must be between %d and %d",
			funcName, minSyncChunkSize, maxSyncChunkSize)
	}
	if cfg.DBCacheSizeMiB <= 0 {
		return errors.Errorf("%s: The database cache size must be positive", funcName)
	}

	if cfg.Profile != "" {
		profilePort, err := strconv.Atoi(cfg.Profile)
		if err != nil || profilePort < 1024 || profilePort > 65535 {
			return errors.Errorf("%s: The profile port must be between 1024 and 65535", funcName)
		}
	}

	log.Debugf("Loaded configuration for currency %s", cfg.CurrencyParams.Name)
	return nil
}
