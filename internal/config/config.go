package config

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"nuha.dev/gpslogger/internal/device"
)

const EnvPrefix = "GPSLOGGER"

type Config struct {
	Device   DeviceConfig   `mapstructure:"device"`
	Tracking TrackingConfig `mapstructure:"tracking"`
	Control  ControlConfig  `mapstructure:"control"`
	Log      LogConfig      `mapstructure:"log"`
}

type DeviceConfig struct {
	Path   string              `mapstructure:"path" validate:"required"`
	Source device.SourceConfig `mapstructure:"source"`
}

type TrackingConfig struct {
	// 0 logs on every sample
	TickPeriod time.Duration `mapstructure:"tick_period" validate:"gte=0"`
	Autostart  bool          `mapstructure:"autostart"`
}

type ControlConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr" validate:"required"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("device.path", "-")
	v.SetDefault("device.source.high_accuracy", true)
	v.SetDefault("device.source.max_cache_age", time.Duration(0))
	v.SetDefault("device.source.acquisition_timeout", 5*time.Second)
	v.SetDefault("tracking.tick_period", 3*time.Second)
	v.SetDefault("tracking.autostart", true)
	v.SetDefault("control.enabled", false)
	v.SetDefault("control.listen_addr", "127.0.0.1:3333")
	v.SetDefault("log.level", "info")
}

// Load reads configuration from defaults, an optional file and the
// environment, in increasing priority. A .env file in the working directory
// is loaded into the environment first when present.
func Load(file string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	conf := &Config{}
	if err := v.Unmarshal(conf); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(conf); err != nil {
		return nil, err
	}
	return conf, nil
}
