package bot

import (
	"log"

	"github.com/robfig/cron/v3"

	"mafia-bot/utils"
)

var c *cron.Cron

// startScheduler starts the cron jobs: the periodic ledger flush and an
// hourly incremental catch-up safety net.
func startScheduler(b *Bot) {
	log.Println("Initializing scheduler...")
	c = cron.New()

	flushSpec := b.Tracker.FlushSpec
	if flushSpec == "" {
		flushSpec = "@every 15s"
	}
	_, err := c.AddFunc(flushSpec, func() {
		if err := b.Ledger.Flush(); err != nil {
			utils.Error("ledger", "flush", err.Error())
		}
	})
	if err != nil {
		log.Fatalf("Could not set up flush cron job: %v", err)
	}

	_, err = c.AddFunc("@hourly", func() {
		if !b.Ledger.Initialized() {
			return
		}
		// Flush first so already-accepted messages are durable and the
		// paginator stops before them instead of re-observing them.
		if err := b.Ledger.Flush(); err != nil {
			utils.Error("ledger", "flush", err.Error())
			return
		}
		seen, err := b.Ledger.CatchupChannel(b.Session, b.Tracker.GameChannelID, nil, b.Game)
		if err != nil {
			utils.Error("ledger", "catchup", err.Error())
			return
		}
		if seen > 0 {
			log.Printf("Hourly catch-up recovered %d missed messages", seen)
		}
	})
	if err != nil {
		log.Fatalf("Could not set up catch-up cron job: %v", err)
	}

	c.Start()
	log.Printf("Flush scheduled (%s), catch-up scheduled hourly.", flushSpec)
}

// stopScheduler stops the cron jobs.
func stopScheduler() {
	if c != nil {
		c.Stop()
		log.Println("Scheduler stopped.")
	}
}
