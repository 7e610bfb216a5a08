package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadConfig loads configuration from multiple sources, later sources
// merging over earlier ones:
//  1. .env (environment variables, chiefly BOT_TOKEN)
//  2. config.yml (base bot settings)
//  3. config/tracker.json (message tracking settings)
//
// Environment variables override same-named settings from the files.
func LoadConfig() {
	// Load environment variables from .env; a missing file is fine.
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, skipping.")
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("No base config file (config.yml) found, using environment variables and merged configs only.")
		} else {
			panic(fmt.Errorf("fatal error reading base config file: %w", err))
		}
	}

	viper.SetConfigName("tracker")
	viper.SetConfigType("json")
	viper.AddConfigPath("./config")

	if err := viper.MergeInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("No tracker config file (config/tracker.json) found, skipping merge.")
		} else {
			panic(fmt.Errorf("fatal error merging tracker config file: %w", err))
		}
	}
}
