package config

import (
	"bridge-keeper/internal/models"

	"github.com/spf13/viper"
)

/**
 * Server configuration parameters
 * @property {string} address - Server listening address (e.g. "127.0.0.1:8431")
 * @property {string} mode - Gin mode (debug/release/test)
 */
type ServerConfig struct {
	Address string `mapstructure:"address"`
	Mode    string `mapstructure:"mode"`
}

/**
 * Logging configuration
 * @property {string} level - Log level (debug/info/warn/error)
 * @property {string} path - Log file path ("console" for stdout)
 */
type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

/**
 * Data bridge configuration: the local service the tunnel fronts
 * @property {int} localPort - Port the bridge listens on
 * @property {string} healthPath - Health endpoint path on the bridge
 * @property {int} probeTimeout - Timeout for one health probe, seconds
 * @property {int} graceDelay - Delay before the first monitor probe, seconds
 * @property {int} checkInterval - Interval between monitor probes, seconds
 * @property {int} failureThreshold - Consecutive failures before the monitor escalates
 */
type BridgeConfig struct {
	Name             string `mapstructure:"name"`
	LocalPort        int    `mapstructure:"local_port"`
	HealthPath       string `mapstructure:"health_path"`
	ProbeTimeout     int    `mapstructure:"probe_timeout"`
	GraceDelay       int    `mapstructure:"grace_delay"`
	CheckInterval    int    `mapstructure:"check_interval"`
	FailureThreshold int    `mapstructure:"failure_threshold"`
}

/**
 * Tunnel provider (ngrok) configuration
 * @property {int} adminPort - Local admin API port of the provider
 * @property {string} processName - Executable name, used to identify the subprocess
 * @property {string} command - Start command template ({{.ProcessPath}} etc.)
 * @property {[]string} args - Argument templates ({{.LocalPort}} etc.)
 * @property {int} discoverAttempts - Admin API polls before discovery gives up
 * @property {int} discoverInterval - Seconds between discovery polls
 */
type TunnelConfig struct {
	AdminPort        int      `mapstructure:"admin_port"`
	ProcessName      string   `mapstructure:"process_name"`
	Command          string   `mapstructure:"command"`
	Args             []string `mapstructure:"args"`
	DiscoverAttempts int      `mapstructure:"discover_attempts"`
	DiscoverInterval int      `mapstructure:"discover_interval"`
}

/**
 * Publication configuration: how the tunnel URL reaches dependent projects
 * @property {bool} enabled - Opt-in switch for publication
 * @property {[]string} operators - Operator login names allowed to publish
 * @property {string} forceEnv - Env flag forcing publication on
 * @property {string} skipEnv - Env flag forcing publication off
 * @property {string} command - Secret-store CLI executable
 * @property {[]string} secrets - Secret names that receive the tunnel URL
 * @property {[]models.PublicationTarget} targets - Dependent projects
 */
type PublishConfig struct {
	Enabled   bool                       `mapstructure:"enabled"`
	Operators []string                   `mapstructure:"operators"`
	ForceEnv  string                     `mapstructure:"force_env"`
	SkipEnv   string                     `mapstructure:"skip_env"`
	Command   string                     `mapstructure:"command"`
	Secrets   []string                   `mapstructure:"secrets"`
	Targets   []models.PublicationTarget `mapstructure:"targets"`
}

type AppConfig struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Bridge  BridgeConfig  `mapstructure:"bridge"`
	Tunnel  TunnelConfig  `mapstructure:"tunnel"`
	Publish PublishConfig `mapstructure:"publish"`
}

/**
 * Load application configuration from YAML file
 */
func LoadConfig() (*AppConfig, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.bridge-keeper")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg AppConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

var Config AppConfig

func collectConfig(cfg *AppConfig) *AppConfig {
	if cfg.Server.Address == "" {
		cfg.Server.Address = "127.0.0.1:8431"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Bridge.Name == "" {
		cfg.Bridge.Name = "data-bridge"
	}
	if cfg.Bridge.LocalPort == 0 {
		cfg.Bridge.LocalPort = 5000
	}
	if cfg.Bridge.HealthPath == "" {
		cfg.Bridge.HealthPath = "/health"
	}
	if cfg.Bridge.ProbeTimeout == 0 {
		cfg.Bridge.ProbeTimeout = 5
	}
	if cfg.Bridge.GraceDelay == 0 {
		cfg.Bridge.GraceDelay = 5
	}
	if cfg.Bridge.CheckInterval == 0 {
		cfg.Bridge.CheckInterval = 30
	}
	if cfg.Bridge.FailureThreshold == 0 {
		cfg.Bridge.FailureThreshold = 3
	}
	if cfg.Tunnel.AdminPort == 0 {
		cfg.Tunnel.AdminPort = 4040
	}
	if cfg.Tunnel.ProcessName == "" {
		cfg.Tunnel.ProcessName = "ngrok"
	}
	if cfg.Tunnel.Command == "" {
		cfg.Tunnel.Command = "{{.ProcessName}}"
	}
	if len(cfg.Tunnel.Args) == 0 {
		cfg.Tunnel.Args = []string{"http", "{{.LocalPort}}", "--log=stdout"}
	}
	if cfg.Tunnel.DiscoverAttempts == 0 {
		cfg.Tunnel.DiscoverAttempts = 10
	}
	if cfg.Tunnel.DiscoverInterval == 0 {
		cfg.Tunnel.DiscoverInterval = 1
	}
	if cfg.Publish.ForceEnv == "" {
		cfg.Publish.ForceEnv = "ADMIN_TUNNEL"
	}
	if cfg.Publish.SkipEnv == "" {
		cfg.Publish.SkipEnv = "SKIP_PUBLISH"
	}
	if cfg.Publish.Command == "" {
		cfg.Publish.Command = "supabase"
	}
	if len(cfg.Publish.Secrets) == 0 {
		cfg.Publish.Secrets = []string{"DATA_BRIDGE_URL", "BLOOMBERG_BRIDGE_URL"}
	}
	return cfg
}

/**
 * Reload configuration from disk, replacing the process-wide Config
 * @returns {error} Returns error if the config file cannot be read or parsed
 */
func ReloadConfig() error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	Config = *collectConfig(cfg)
	return nil
}

func init() {
	cfg, err := LoadConfig()
	if err == nil {
		Config = *cfg
	}
	collectConfig(&Config)
}
