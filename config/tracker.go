package config

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"mafia-bot/models"
)

// Tracker decodes the merged "tracker" settings into a typed config.
func Tracker() (models.TrackerConfig, error) {
	var cfg models.TrackerConfig
	raw := viper.Get("tracker")
	if raw == nil {
		return cfg, fmt.Errorf("no tracker configuration found")
	}
	if err := mapstructure.Decode(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("could not decode tracker config: %w", err)
	}
	if cfg.GuildID == "" || cfg.GameChannelID == "" {
		return cfg, fmt.Errorf("tracker config requires guild_id and game_channel_id")
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./data/tracker.db"
	}
	return cfg, nil
}
