package server

type SinkServerConfig struct {
	MaxAttempts       int     `mapstructure:"max_attempts"        yaml:"max_attempts"`
	BaseBackoff       string  `mapstructure:"base_backoff"        yaml:"base_backoff"`
	MaxBackoff        string  `mapstructure:"max_backoff"         yaml:"max_backoff"`
	BulkDeleteLimit   int     `mapstructure:"bulk_delete_limit"   yaml:"bulk_delete_limit"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `mapstructure:"burst"               yaml:"burst"`
}
