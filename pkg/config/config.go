package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/edgeflare/tablegate/pkg/logging"
	"github.com/edgeflare/tablegate/pkg/sqldb"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "TABLEGATE"

// Version is set at build time with -ldflags "-X .../pkg/config.Version=...".
var Version = "dev"

// Config holds application-wide configuration
type Config struct {
	Database sqldb.Config   `mapstructure:"database"`
	REST     RESTConfig     `mapstructure:"rest"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      logging.Config `mapstructure:"log"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

type RESTConfig struct {
	ListenAddr      string        `mapstructure:"listenAddr"`
	BaseURL         string        `mapstructure:"baseURL"`
	StatusCodes     bool          `mapstructure:"statusCodes"`
	CORS            CORSConfig    `mapstructure:"cors"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

func Default() Config {
	return Config{
		Database: sqldb.DefaultConfig(),
		REST: RESTConfig{
			ListenAddr:      ":5000",
			CORS:            CORSConfig{AllowedOrigins: []string{"*"}},
			ShutdownTimeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{Addr: ":9100"},
		Log:     logging.DefaultConfig(),
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.connString", d.Database.ConnString)
	v.SetDefault("database.busyTimeout", d.Database.BusyTimeout)
	v.SetDefault("database.foreignKeys", d.Database.ForeignKeys)
	v.SetDefault("rest.listenAddr", d.REST.ListenAddr)
	v.SetDefault("rest.baseURL", d.REST.BaseURL)
	v.SetDefault("rest.statusCodes", d.REST.StatusCodes)
	v.SetDefault("rest.cors.allowedOrigins", d.REST.CORS.AllowedOrigins)
	v.SetDefault("rest.shutdownTimeout", d.REST.ShutdownTimeout)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Load reads config from defaults, file, environment and flags, each
// overriding the previous. flags maps config keys such as "rest.listenAddr"
// to the command-line flags that set them; only flags the user changed win.
func Load(cfgFile string, flags map[string]*pflag.Flag) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("tablegate")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config"))
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, flag := range flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("binding flag %s: %w", flag.Name, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	return &cfg, nil
}
