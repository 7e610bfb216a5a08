// Package game holds the minimal live-game state the tracker needs: whether
// a game is running, which game, and which in-game day it is. The vote and
// hammer machinery lives elsewhere; this package only feeds the stat
// tracking and the leaderboard command.
package game

import (
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"mafia-bot/models"
	"mafia-bot/utils"
)

// State is the current game, if any, for one guild.
type State struct {
	mu         sync.Mutex
	instanceID string
	channelID  string
	gameID     string
	day        int
	active     bool
}

// NewState creates game state for a guild and its primary game channel.
func NewState(instanceID, channelID string) *State {
	return &State{instanceID: instanceID, channelID: channelID}
}

// Start begins a new game on day 1 and returns the minted game id. Starting
// while a game is active replaces it.
func (s *State) Start() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gameID = uuid.NewString()
	s.day = 1
	s.active = true
	return s.gameID
}

// AdvanceDay moves to the next in-game day and returns it. No-op when no
// game is active.
func (s *State) AdvanceDay() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return 0
	}
	s.day++
	return s.day
}

// End finishes the current game.
func (s *State) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
}

// Snapshot returns the current game id, day and active flag.
func (s *State) Snapshot() (gameID string, day int, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gameID, s.day, s.active
}

// InstanceID returns the guild this state belongs to.
func (s *State) InstanceID() string {
	return s.instanceID
}

// ChannelID returns the primary game channel.
func (s *State) ChannelID() string {
	return s.channelID
}

// StatFor returns the stat delta a message earns: one message plus its word
// and image counts, attributed to the current game day. Messages outside
// the game channel, bot messages, and messages sent while no game is active
// earn nothing.
func (s *State) StatFor(m *discordgo.Message) (models.StatAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active || m.ChannelID != s.channelID || m.Author == nil || m.Author.Bot {
		return models.StatAction{}, false
	}
	return models.StatAction{
		UserID:     m.Author.ID,
		InstanceID: s.instanceID,
		GameID:     s.gameID,
		Day:        s.day,
		Messages:   1,
		Words:      int64(utils.CountWords(m.Content)),
		Images:     int64(utils.CountImages(m.Attachments)),
	}, true
}
