package bot

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/warikanbot/internal/db"
	"github.com/susu3304/warikanbot/internal/nomikai"
)

type Bot struct {
	session    *discordgo.Session
	nomikai    *nomikai.Service
	reminder   *reminderWorker
	webBaseURL string
}

func New(token string, database *db.DB, svc *nomikai.Service, webBaseURL string) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	bot := &Bot{
		session:    session,
		nomikai:    svc,
		webBaseURL: webBaseURL,
	}
	bot.reminder = newReminderWorker(session, database, svc)

	// Register event handlers
	session.AddHandler(bot.onReady)
	session.AddHandler(bot.onGuildCreate)
	session.AddHandler(bot.onInteractionCreate)

	session.Identify.Intents = discordgo.IntentsGuilds

	return bot, nil
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	b.reminder.start()
	log.Println("Discord bot is running")
	return nil
}

func (b *Bot) Stop() error {
	b.reminder.stop()
	return b.session.Close()
}
