package server

import "github.com/spf13/viper"

func GetServerDefault() BaseServerConfig {
	return BaseServerConfig{
		ShutdownTimeout: "10s",

		Log: LogServerConfig{
			Level:      "INFO",
			TimeFormat: "2006-01-02 15:04:05",
			File:       "",
			NoColor:    false,
			JSON:       false,
			NoTerminal: false,
			Rotation: LogServerRotationConfig{
				MaxSize:    128,
				MaxBackups: 5,
				MaxAge:     16,
				Compress:   false,
			},
		},

		Bot: BotServerConfig{
			Prefix:            "?",
			InvocationTimeout: "10s",
		},

		Metadata: MetadataServerConfig{
			Enabled:            true,
			Type:               "sqlite",
			TransactionTimeout: "5s",
			SQLite: MetadataSQLiteConfig{
				Path: "data/modbot.db",
			},
		},

		Sink: SinkServerConfig{
			MaxAttempts:       3,
			BaseBackoff:       "500ms",
			MaxBackoff:        "8s",
			BulkDeleteLimit:   100,
			RequestsPerSecond: 50,
			Burst:             10,
		},

		Gateway: GatewayServerConfig{
			URL:            "",
			APIBase:        "https://discord.com/api/v10",
			RequestTimeout: "15s",
		},

		API: APIServerConfig{
			Enabled: false,
			Address: "127.0.0.1:8088",
		},
	}
}

func setDefaults() {
	defaults := GetServerDefault()

	viper.SetDefault("shutdown_timeout", defaults.ShutdownTimeout)

	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("log.time_format", defaults.Log.TimeFormat)
	viper.SetDefault("log.file", defaults.Log.File)
	viper.SetDefault("log.no_color", defaults.Log.NoColor)
	viper.SetDefault("log.json", defaults.Log.JSON)
	viper.SetDefault("log.no_terminal", defaults.Log.NoTerminal)
	viper.SetDefault("log.rotation.max_size", defaults.Log.Rotation.MaxSize)
	viper.SetDefault("log.rotation.max_backups", defaults.Log.Rotation.MaxBackups)
	viper.SetDefault("log.rotation.max_age", defaults.Log.Rotation.MaxAge)
	viper.SetDefault("log.rotation.compress", defaults.Log.Rotation.Compress)

	viper.SetDefault("bot.prefix", defaults.Bot.Prefix)
	viper.SetDefault("bot.token", defaults.Bot.Token)
	viper.SetDefault("bot.guild_id", defaults.Bot.GuildID)
	viper.SetDefault("bot.application_id", defaults.Bot.ApplicationID)
	viper.SetDefault("bot.elevated_role_id", defaults.Bot.ElevatedRoleID)
	viper.SetDefault("bot.restricted_role_id", defaults.Bot.RestrictedRoleID)
	viper.SetDefault("bot.opt_in_role_id", defaults.Bot.OptInRoleID)
	viper.SetDefault("bot.modmail_channel_id", defaults.Bot.ModmailChannelID)
	viper.SetDefault("bot.invocation_timeout", defaults.Bot.InvocationTimeout)

	viper.SetDefault("metadata.enabled", defaults.Metadata.Enabled)
	viper.SetDefault("metadata.type", defaults.Metadata.Type)
	viper.SetDefault("metadata.transaction_timeout", defaults.Metadata.TransactionTimeout)
	viper.SetDefault("metadata.sqlite.path", defaults.Metadata.SQLite.Path)
	viper.SetDefault("metadata.postgres.dsn", defaults.Metadata.Postgres.DSN)
	viper.SetDefault("metadata.mysql.dsn", defaults.Metadata.MySQL.DSN)

	viper.SetDefault("sink.max_attempts", defaults.Sink.MaxAttempts)
	viper.SetDefault("sink.base_backoff", defaults.Sink.BaseBackoff)
	viper.SetDefault("sink.max_backoff", defaults.Sink.MaxBackoff)
	viper.SetDefault("sink.bulk_delete_limit", defaults.Sink.BulkDeleteLimit)
	viper.SetDefault("sink.requests_per_second", defaults.Sink.RequestsPerSecond)
	viper.SetDefault("sink.burst", defaults.Sink.Burst)

	viper.SetDefault("gateway.url", defaults.Gateway.URL)
	viper.SetDefault("gateway.api_base", defaults.Gateway.APIBase)
	viper.SetDefault("gateway.request_timeout", defaults.Gateway.RequestTimeout)

	viper.SetDefault("api.enabled", defaults.API.Enabled)
	viper.SetDefault("api.address", defaults.API.Address)
}
