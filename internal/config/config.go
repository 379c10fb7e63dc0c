package config

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"craft-keeper/internal/env"

	"github.com/spf13/viper"
)

/**
 * Server configuration parameters
 * @property {string} address - Server listening address (e.g. ":8080")
 * @property {string} socket - Unix socket path, empty to listen on tcp only
 * @property {string} mode - Application mode (debug/release/test)
 */
type ServerConfig struct {
	Address string `mapstructure:"address"`
	Socket  string `mapstructure:"socket"`
	Mode    string `mapstructure:"mode"`
}

/**
 * Logging configuration
 * @property {string} level - Log level (debug/info/warn/error)
 * @property {string} path - Log file path, "console" for stdout only
 */
type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

/**
 * Metrics configuration
 * @property {string} pushgateway - Pushgateway address for download metrics
 * @property {time.Duration} interval - Push period of the server, 0 disables pushing
 */
type MetricsConfig struct {
	Pushgateway string        `mapstructure:"pushgateway"`
	Interval    time.Duration `mapstructure:"interval"`
}

/**
 * Remote endpoints
 * @property {string} version_manifest - URL of the version list document
 * @property {string} resources - Base URL of content addressed assets
 * @property {string} libraries - Maven repository used when a library has no download entry
 */
type RemoteConfig struct {
	VersionManifest string `mapstructure:"version_manifest"`
	Resources       string `mapstructure:"resources"`
	Libraries       string `mapstructure:"libraries"`
}

/**
 * Download orchestration settings
 * @property {int} concurrency - Number of artifacts fetched in parallel
 * @property {int} max_retries - Attempts per artifact before it is reported failed
 * @property {time.Duration} timeout - Transport timeout of one request
 */
type DownloadConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	MaxRetries  int           `mapstructure:"max_retries"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// CacheConfig points at the root holding libraries/, natives/, assets/ and versions/.
type CacheConfig struct {
	Root string `mapstructure:"root"`
}

// LauncherConfig is reported to the game through ${launcher_name} and ${launcher_version}.
type LauncherConfig struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

type AppConfig struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Remote   RemoteConfig   `mapstructure:"remote"`
	Download DownloadConfig `mapstructure:"download"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Launcher LauncherConfig `mapstructure:"launcher"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "127.0.0.1:8999")
	v.SetDefault("server.socket", filepath.Join(env.LauncherDir, "run", "craft-keeper.sock"))
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", filepath.Join(env.LauncherDir, env.LogsDir, "craft-keeper.log"))
	v.SetDefault("metrics.interval", time.Minute)
	v.SetDefault("remote.version_manifest", "https://piston-meta.mojang.com/mc/game/version_manifest_v2.json")
	v.SetDefault("remote.resources", "https://resources.download.minecraft.net")
	v.SetDefault("remote.libraries", "https://libraries.minecraft.net")
	v.SetDefault("download.concurrency", 8)
	v.SetDefault("download.max_retries", 3)
	v.SetDefault("download.timeout", 30*time.Second)
	v.SetDefault("cache.root", env.LauncherDir)
	v.SetDefault("launcher.name", "craft-keeper")
	v.SetDefault("launcher.version", "dev")
}

/**
 * Load application configuration from YAML file
 * @param {string} path - Explicit config file, empty to search <home>/config.yaml and ./config.yaml
 * @returns {*AppConfig} Loaded configuration with defaults applied
 * @description
 * - A missing config file is not an error, defaults and CRAFT_KEEPER_* variables apply
 */
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("CRAFT_KEEPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(env.LauncherDir)
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return collectConfig(&cfg), nil
}

var (
	Config   AppConfig
	loadOnce sync.Once
	lock     sync.RWMutex
)

func collectConfig(cfg *AppConfig) *AppConfig {
	if cfg.Download.Concurrency < 1 {
		cfg.Download.Concurrency = 1
	}
	if cfg.Download.MaxRetries < 1 {
		cfg.Download.MaxRetries = 1
	}
	if cfg.Cache.Root == "" {
		cfg.Cache.Root = env.LauncherDir
	}
	cfg.Remote.Resources = strings.TrimRight(cfg.Remote.Resources, "/")
	cfg.Remote.Libraries = strings.TrimRight(cfg.Remote.Libraries, "/")
	return cfg
}

/**
 * Initialize the global configuration from an explicit file
 * @param {string} path - Config file path, empty for the default search
 */
func Init(path string) error {
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}
	lock.Lock()
	Config = *cfg
	lock.Unlock()
	loadOnce.Do(func() {})
	return nil
}

// App returns the global configuration, loading defaults on first use.
func App() *AppConfig {
	loadOnce.Do(func() {
		cfg, err := LoadConfig("")
		if err != nil {
			var empty AppConfig
			v := viper.New()
			setDefaults(v)
			_ = v.Unmarshal(&empty)
			cfg = collectConfig(&empty)
		}
		lock.Lock()
		Config = *cfg
		lock.Unlock()
	})
	lock.RLock()
	defer lock.RUnlock()
	c := Config
	return &c
}

// ReloadConfig re-reads the configuration from the default locations.
func ReloadConfig() error {
	return Init("")
}
