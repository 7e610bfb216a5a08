package main

import (
	"mafia-bot/bot"
	"mafia-bot/handlers"
)

func main() {
	bot.Run(handlers.Register)
}
