package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/vocdoni/davinci-tally/config"
	"github.com/vocdoni/davinci-tally/db"
)

const (
	defaultAPIHost   = "0.0.0.0"
	defaultAPIPort   = 9090
	defaultLogLevel  = "info"
	defaultLogOutput = "stdout"
	defaultDatadir   = ".davinci-tally" // Will be prefixed with user's home directory
	mongoDBName      = "davinci_tally"
)

// Version is the build version, set at build time with -ldflags
var Version = "dev"

// Config holds the application configuration
type Config struct {
	API     APIConfig
	Cluster ClusterConfig
	DB      DBConfig
	Log     LogConfig
	Datadir string
}

// APIConfig holds the API-specific configuration
type APIConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	DisableLogging bool   `mapstructure:"disableLogging"`
}

// ClusterConfig holds the threshold key configuration
type ClusterConfig struct {
	Nodes        int    `mapstructure:"nodes"`
	Threshold    int    `mapstructure:"threshold"`
	RevealWindow uint64 `mapstructure:"revealWindow"`
	Curve        string `mapstructure:"curve"`
}

// DBConfig holds storage configuration
type DBConfig struct {
	Type   string        `mapstructure:"type"`
	Period time.Duration `mapstructure:"period"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Output string `mapstructure:"output"`
}

// loadConfig loads configuration from flags, environment variables, and defaults
func loadConfig() (*Config, error) {
	v := viper.New()

	userHomeDir, err := os.UserHomeDir()
	if err != nil {
		userHomeDir = "."
	}
	defaultDatadirPath := filepath.Join(userHomeDir, defaultDatadir)

	v.SetDefault("api.host", defaultAPIHost)
	v.SetDefault("api.port", defaultAPIPort)
	v.SetDefault("api.disableLogging", false)
	v.SetDefault("cluster.nodes", config.DefaultNodes)
	v.SetDefault("cluster.threshold", config.DefaultThreshold)
	v.SetDefault("cluster.revealWindow", uint64(config.DefaultRevealWindow))
	v.SetDefault("cluster.curve", config.DefaultCurve)
	v.SetDefault("db.type", config.DefaultDBType)
	v.SetDefault("db.period", config.DefaultProcessPeriod)
	v.SetDefault("log.level", defaultLogLevel)
	v.SetDefault("log.output", defaultLogOutput)
	v.SetDefault("datadir", defaultDatadirPath)

	// Configure flags
	flag.StringP("api.host", "a", defaultAPIHost, "API host")
	flag.IntP("api.port", "p", defaultAPIPort, "API port")
	flag.Bool("api.disableLogging", false, "disable API request logging")
	flag.IntP("cluster.nodes", "N", config.DefaultNodes, "number of key holders of the threshold key")
	flag.IntP("cluster.threshold", "t", config.DefaultThreshold, "number of key holders needed to reveal")
	flag.Uint64("cluster.revealWindow", uint64(config.DefaultRevealWindow), "largest |yes - no| a reveal can decide")
	flag.String("cluster.curve", config.DefaultCurve, "curve of the threshold key")
	flag.String("db.type", config.DefaultDBType, fmt.Sprintf("storage backend %v; "+
		"the cluster key is regenerated on every start, so polls kept by a persistent backend "+
		"stay readable after a restart but can no longer be revealed", config.AvailableDBTypes))
	flag.DurationP("db.period", "b", config.DefaultProcessPeriod, "interval at which queued ballots are applied")
	flag.StringP("log.level", "l", defaultLogLevel, "log level (debug, info, warn, error)")
	flag.StringP("log.output", "o", defaultLogOutput, "log output (stdout, stderr or filepath)")
	flag.StringP("datadir", "d", defaultDatadirPath, "data directory for database files")

	// Configure usage information
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "davinci-tally %s\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: davinci-tally [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment variables are also available with the same name as flags,\n")
		fmt.Fprintf(os.Stderr, "  except for dots (.) which are replaced by underscores (_).\n")
		fmt.Fprintf(os.Stderr, "  For example, TALLY_API_PORT or TALLY_CLUSTER_THRESHOLD\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Start a 7 node cluster with a 4 node threshold\n")
		fmt.Fprintf(os.Stderr, "  davinci-tally --cluster.nodes=7 --cluster.threshold=4\n\n")
		fmt.Fprintf(os.Stderr, "  # Keep poll records in mongodb (server taken from MONGODB_URL)\n")
		fmt.Fprintf(os.Stderr, "  davinci-tally --db.type=mongodb\n")
	}

	// Parse flags
	flag.CommandLine.SortFlags = false
	flag.Parse()

	// Configure Viper to use environment variables
	v.SetEnvPrefix("TALLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind flags to Viper
	if err := v.BindPFlags(flag.CommandLine); err != nil {
		return nil, fmt.Errorf("error binding flags: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return cfg, nil
}

// validateConfig validates the loaded configuration
func validateConfig(cfg *Config) error {
	if !slices.Contains(config.AvailableDBTypes, cfg.DB.Type) {
		return fmt.Errorf("invalid database type %s, available types: %v", cfg.DB.Type, config.AvailableDBTypes)
	}
	if cfg.Cluster.Nodes < 1 {
		return fmt.Errorf("cluster needs at least one node, got %d", cfg.Cluster.Nodes)
	}
	if cfg.Cluster.Threshold < 1 || cfg.Cluster.Threshold > cfg.Cluster.Nodes {
		return fmt.Errorf("invalid threshold %d for %d nodes", cfg.Cluster.Threshold, cfg.Cluster.Nodes)
	}
	if cfg.API.Port < 0 || cfg.API.Port > 65535 {
		return fmt.Errorf("invalid API port %d", cfg.API.Port)
	}
	return nil
}

// persistentDB reports whether the configured backend outlives the process.
func persistentDB(cfg *Config) bool {
	return cfg.DB.Type != db.TypeInMem
}

// dbPath returns where the configured backend keeps its data.
func dbPath(cfg *Config) string {
	if cfg.DB.Type == db.TypeMongo {
		return mongoDBName
	}
	return filepath.Join(cfg.Datadir, "db")
}
