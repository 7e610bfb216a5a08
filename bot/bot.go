package bot

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"

	"mafia-bot/command"
	"mafia-bot/config"
	"mafia-bot/database"
	"mafia-bot/game"
	"mafia-bot/ledger"
	"mafia-bot/models"
	"mafia-bot/utils"
)

// Bot encapsulates the bot's state: the Discord session, the tracking
// ledger over its SQLite store, and the live game state.
type Bot struct {
	Session *discordgo.Session
	Ledger  *ledger.Ledger
	Game    *game.State
	Tracker models.TrackerConfig
}

// NewBot creates and initializes a new Bot instance.
func NewBot() (*Bot, error) {
	config.LoadConfig()
	token := viper.GetString("BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("no bot token provided")
	}

	tracker, err := config.Tracker()
	if err != nil {
		return nil, fmt.Errorf("error loading tracker config: %w", err)
	}

	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("error creating Discord session: %w", err)
	}

	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions | discordgo.IntentMessageContent

	db, err := database.InitDB(tracker.DBPath)
	if err != nil {
		return nil, fmt.Errorf("error initializing tracker database: %w", err)
	}

	return &Bot{
		Session: dg,
		Ledger:  ledger.New(database.NewStore(db), tracker.StarEmoji),
		Game:    game.NewState(tracker.GuildID, tracker.GameChannelID),
		Tracker: tracker,
	}, nil
}

// Start opens the bot's session, registers handlers and slash commands, and
// kicks off the flush scheduler and the startup self-heal.
func (b *Bot) Start(registerHandlers func(*Bot)) error {
	registerHandlers(b)

	err := b.Session.Open()
	if err != nil {
		return fmt.Errorf("error opening connection: %w", err)
	}

	utils.InitLogger(b.Session)

	for _, def := range command.GetCommandDefinitions() {
		_, err := b.Session.ApplicationCommandCreate(b.Session.State.User.ID, b.Tracker.GuildID, def)
		if err != nil {
			log.Printf("Cannot create '%v' command: %v", def.Name, err)
		}
	}

	startScheduler(b)

	// Self-heal the ledger from channel history. If it has been down too
	// long, stay uninitialized until an operator runs /catchup.
	go func() {
		err := b.Ledger.Startup(b.Session, b.Tracker.GameChannelID, b.Game)
		switch {
		case err == ledger.ErrStaleLedger:
			utils.Warn("ledger", "startup", "flush heartbeat too stale; run /catchup to re-sync")
		case err != nil:
			utils.Error("ledger", "startup", err.Error())
		default:
			utils.Info("ledger", "startup", "self-heal complete, tracking enabled")
		}
	}()

	fmt.Println("Bot is now running. Press CTRL-C to exit.")
	return nil
}

// Stop flushes outstanding actions and gracefully closes the session.
func (b *Bot) Stop() {
	stopScheduler()
	if err := b.Ledger.Flush(); err != nil {
		log.Printf("Final flush failed: %v", err)
	}
	if b.Session != nil {
		b.Session.Close()
	}
	fmt.Println("Bot stopped gracefully.")
}

// Run is the main entry point for the bot application.
func Run(registerHandlers func(*Bot)) {
	bot, err := NewBot()
	if err != nil {
		log.Fatalf("Error initializing bot: %v", err)
	}

	if err := bot.Start(registerHandlers); err != nil {
		log.Fatalf("Error starting bot: %v", err)
	}

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	bot.Stop()
}
