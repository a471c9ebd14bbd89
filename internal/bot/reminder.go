package bot

import (
	"context"
	"log"
	"math/rand"
	"net"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/warikanbot/internal/db"
)

// reminderStore is the part of the database the worker schedules with.
type reminderStore interface {
	DueReminders(ctx context.Context, now time.Time) ([]db.ReminderDue, error)
	MarkReminderSent(ctx context.Context, eventID int64, sentAt time.Time, nextDue time.Time) error
	DelayReminder(ctx context.Context, eventID int64, nextDue time.Time) error
}

type reminderMessenger interface {
	ReminderMessage(ctx context.Context, eventID int64) (string, error)
}

// reminderWorker periodically posts unpaid settlement reminders to channels.
type reminderWorker struct {
	db       reminderStore
	nomikai  reminderMessenger
	session  reminderSession
	stopChan chan struct{}
	ticker   *time.Ticker
	interval time.Duration
}

// Minimal session interface for sending channel messages.
type reminderSession interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

func newReminderWorker(session reminderSession, database reminderStore, svc reminderMessenger) *reminderWorker {
	return &reminderWorker{
		db:       database,
		nomikai:  svc,
		session:  session,
		stopChan: make(chan struct{}),
		interval: time.Minute,
	}
}

func (w *reminderWorker) start() {
	if w == nil {
		return
	}
	w.ticker = time.NewTicker(w.interval)
	go w.loop()
}

func (w *reminderWorker) stop() {
	if w == nil {
		return
	}
	close(w.stopChan)
	if w.ticker != nil {
		w.ticker.Stop()
	}
}

func (w *reminderWorker) loop() {
	ctx := context.Background()
	for {
		select {
		case <-w.ticker.C:
			w.tick(ctx)
		case <-w.stopChan:
			return
		}
	}
}

func (w *reminderWorker) tick(ctx context.Context) {
	w.tickAt(ctx, time.Now())
}

func (w *reminderWorker) tickAt(ctx context.Context, now time.Time) {
	targets, err := w.db.DueReminders(ctx, now)
	if err != nil {
		log.Printf("reminder: failed to load due reminders: %v", err)
		return
	}

	for _, t := range targets {
		msg, err := w.nomikai.ReminderMessage(ctx, t.EventID)
		if err != nil {
			log.Printf("reminder: failed to build message for event %d: %v", t.EventID, err)
			continue
		}
		if msg == "" {
			continue
		}
		autoMsg := msg + "\n\n※このメッセージは自動投稿です"
		if err := w.sendWithRetry(ctx, t.ChannelID, autoMsg); err != nil {
			log.Printf("reminder: failed to send message to channel %s: %v", t.ChannelID, err)
			// Back off so a failing channel is not retried every minute.
			next := now.Add(reminderBackoff(t.IntervalMinutes))
			if derr := w.db.DelayReminder(ctx, t.EventID, next); derr != nil {
				log.Printf("reminder: failed to delay reminder for event %d: %v", t.EventID, derr)
			}
			continue
		}
		next := now.Add(time.Duration(t.IntervalMinutes) * time.Minute)
		if err := w.db.MarkReminderSent(ctx, t.EventID, now, next); err != nil {
			log.Printf("reminder: failed to mark reminder sent for event %d: %v", t.EventID, err)
		}
	}
}

// reminderBackoff is how long a failed send waits, never longer than the
// configured interval.
func reminderBackoff(intervalMinutes int) time.Duration {
	backoff := 2 * time.Minute
	if intervalMinutes > 0 {
		backoff = min(backoff, time.Duration(intervalMinutes)*time.Minute)
	}
	return backoff
}

func (w *reminderWorker) sendWithRetry(ctx context.Context, channelID, content string) error {
	const attemptTimeout = 12 * time.Second
	const maxAttempts = 2

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		_, err := w.session.ChannelMessageSend(channelID, content, discordgo.WithContext(sendCtx))
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isTemporaryOrTimeout(err) {
			return err
		}
		time.Sleep(time.Duration(300+rand.Intn(500)) * time.Millisecond)
	}
	return lastErr
}

func isTemporaryOrTimeout(err error) bool {
	if err == nil {
		return false
	}
	if ne, ok := err.(net.Error); ok {
		return ne.Timeout() || ne.Temporary()
	}
	return false
}
