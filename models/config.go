package models

// TrackerConfig is the per-guild tracking configuration, decoded from the
// merged viper settings (config.yml plus config/tracker.json).
type TrackerConfig struct {
	GuildID       string   `json:"guild_id" mapstructure:"guild_id"`
	GameChannelID string   `json:"game_channel_id" mapstructure:"game_channel_id"`
	DBPath        string   `json:"db_path" mapstructure:"db_path"`
	FlushSpec     string   `json:"flush_spec" mapstructure:"flush_spec"` // cron spec, e.g. "@every 15s"
	StarEmoji     string   `json:"star_emoji" mapstructure:"star_emoji"`
	Exclude       []string `json:"exclude" mapstructure:"exclude"` // channel IDs never tracked
}

// CommandsConfig holds the authorization lists for slash commands.
type CommandsConfig struct {
	Auth AuthConfig `json:"auth" mapstructure:"auth"`
}

// AuthConfig lists who may run privileged commands.
type AuthConfig struct {
	Developers  []string `json:"developers" mapstructure:"developers"`
	AdminsRoles []string `json:"admins_roles" mapstructure:"admins_roles"`
}
