package server

type GatewayServerConfig struct {
	URL            string `mapstructure:"url"             yaml:"url"`
	APIBase        string `mapstructure:"api_base"        yaml:"api_base"`
	RequestTimeout string `mapstructure:"request_timeout" yaml:"request_timeout"`
}

type APIServerConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Address string `mapstructure:"address" yaml:"address"`
}
