package server

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type BaseServerConfig struct {
	ShutdownTimeout string `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	Log      LogServerConfig      `mapstructure:"log"      yaml:"log"`
	Bot      BotServerConfig      `mapstructure:"bot"      yaml:"bot"`
	Metadata MetadataServerConfig `mapstructure:"metadata" yaml:"metadata"`
	Sink     SinkServerConfig     `mapstructure:"sink"     yaml:"sink"`
	Gateway  GatewayServerConfig  `mapstructure:"gateway"  yaml:"gateway"`
	API      APIServerConfig      `mapstructure:"api"      yaml:"api"`
}

func LoadServerConfig() (*BaseServerConfig, error) {
	cfg := &BaseServerConfig{}

	setDefaults()

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// Duration parses a config duration string, falling back when it is empty or malformed.
func Duration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
