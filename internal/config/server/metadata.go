package server

// MetadataServerConfig holds metadata store configuration
type MetadataServerConfig struct {
	Enabled            bool                   `mapstructure:"enabled"             yaml:"enabled"`
	Type               string                 `mapstructure:"type"                yaml:"type"`
	TransactionTimeout string                 `mapstructure:"transaction_timeout" yaml:"transaction_timeout"`
	SQLite             MetadataSQLiteConfig   `mapstructure:"sqlite"              yaml:"sqlite"`
	Postgres           MetadataPostgresConfig `mapstructure:"postgres"            yaml:"postgres"`
	MySQL              MetadataMySQLConfig    `mapstructure:"mysql"               yaml:"mysql"`
}

// MetadataSQLiteConfig holds SQLite-specific configuration
type MetadataSQLiteConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type MetadataPostgresConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

type MetadataMySQLConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}
