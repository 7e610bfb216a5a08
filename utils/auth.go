package utils

import (
	"slices"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"

	"mafia-bot/models"
)

// Auth answers permission checks for slash commands against the
// configured developer and admin-role lists.
type Auth struct {
	config models.CommandsConfig
}

// NewAuth decodes the commands section of the merged configuration.
func NewAuth() (*Auth, error) {
	var cfg models.CommandsConfig
	if err := viper.UnmarshalKey("commands", &cfg); err != nil {
		return nil, err
	}
	return &Auth{config: cfg}, nil
}

// IsDeveloper reports whether userID is on the developer list.
func (a *Auth) IsDeveloper(userID string) bool {
	return slices.Contains(a.config.Auth.Developers, userID)
}

// IsAdmin reports whether the member carries any configured admin role.
func (a *Auth) IsAdmin(member *discordgo.Member) bool {
	for _, roleID := range member.Roles {
		if slices.Contains(a.config.Auth.AdminsRoles, roleID) {
			return true
		}
	}
	return false
}

// CheckPermission reports whether the interaction's caller meets the
// required level. Developers pass every check.
func (a *Auth) CheckPermission(s *discordgo.Session, i *discordgo.InteractionCreate, requiredLevel string) bool {
	if i.Member == nil || i.Member.User == nil {
		return false
	}
	switch requiredLevel {
	case "developer":
		return a.IsDeveloper(i.Member.User.ID)
	case "admin":
		return a.IsDeveloper(i.Member.User.ID) || a.IsAdmin(i.Member)
	case "guest":
		return true
	default:
		return false
	}
}
