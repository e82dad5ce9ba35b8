package server

// BotServerConfig carries the guild-specific identifiers the command core needs.
type BotServerConfig struct {
	Prefix            string `mapstructure:"prefix"             yaml:"prefix"`
	Token             string `mapstructure:"token"              yaml:"token"`
	GuildID           string `mapstructure:"guild_id"           yaml:"guild_id"`
	ApplicationID     string `mapstructure:"application_id"     yaml:"application_id"`
	ElevatedRoleID    string `mapstructure:"elevated_role_id"   yaml:"elevated_role_id"`
	RestrictedRoleID  string `mapstructure:"restricted_role_id" yaml:"restricted_role_id"`
	OptInRoleID       string `mapstructure:"opt_in_role_id"     yaml:"opt_in_role_id"`
	ModmailChannelID  string `mapstructure:"modmail_channel_id" yaml:"modmail_channel_id"`
	InvocationTimeout string `mapstructure:"invocation_timeout" yaml:"invocation_timeout"`
}
