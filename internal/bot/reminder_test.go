package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/warikanbot/internal/db"
)

type fakeReminderStore struct {
	due     []db.ReminderDue
	sent    map[int64]time.Time
	delayed map[int64]time.Time
}

func (f *fakeReminderStore) DueReminders(context.Context, time.Time) ([]db.ReminderDue, error) {
	return f.due, nil
}

func (f *fakeReminderStore) MarkReminderSent(_ context.Context, eventID int64, _ time.Time, nextDue time.Time) error {
	f.sent[eventID] = nextDue
	return nil
}

func (f *fakeReminderStore) DelayReminder(_ context.Context, eventID int64, nextDue time.Time) error {
	f.delayed[eventID] = nextDue
	return nil
}

type fakeMessenger map[int64]string

func (f fakeMessenger) ReminderMessage(_ context.Context, eventID int64) (string, error) {
	return f[eventID], nil
}

type fakeSession struct {
	failChannel string
	sent        map[string]string
}

func (f *fakeSession) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if channelID == f.failChannel {
		return nil, errors.New("missing access")
	}
	f.sent[channelID] = content
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func TestReminderTick(t *testing.T) {
	now := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)
	store := &fakeReminderStore{
		due: []db.ReminderDue{
			{EventID: 1, ChannelID: "ok", IntervalMinutes: 30},
			{EventID: 2, ChannelID: "broken", IntervalMinutes: 60},
			{EventID: 3, ChannelID: "empty", IntervalMinutes: 30},
		},
		sent:    make(map[int64]time.Time),
		delayed: make(map[int64]time.Time),
	}
	session := &fakeSession{failChannel: "broken", sent: make(map[string]string)}
	msgs := fakeMessenger{1: "未完了の精算があります", 2: "未完了の精算があります"}

	w := newReminderWorker(session, store, msgs)
	w.tickAt(context.Background(), now)

	if got := session.sent["ok"]; !strings.HasPrefix(got, "未完了の精算があります") || !strings.Contains(got, "自動投稿") {
		t.Errorf("message to ok = %q", got)
	}
	if _, ok := session.sent["empty"]; ok {
		t.Error("sent a reminder without pending tasks")
	}
	if got := store.sent[1]; !got.Equal(now.Add(30 * time.Minute)) {
		t.Errorf("next due of event 1 = %v", got)
	}
	if got := store.delayed[2]; !got.Equal(now.Add(2 * time.Minute)) {
		t.Errorf("delay of event 2 = %v", got)
	}
	if _, ok := store.sent[2]; ok {
		t.Error("failed reminder marked as sent")
	}
}

func TestReminderBackoff(t *testing.T) {
	tests := []struct {
		minutes int
		want    time.Duration
	}{
		{0, 2 * time.Minute},
		{1, time.Minute},
		{60, 2 * time.Minute},
	}
	for _, tt := range tests {
		if got := reminderBackoff(tt.minutes); got != tt.want {
			t.Errorf("reminderBackoff(%d) = %v, want %v", tt.minutes, got, tt.want)
		}
	}
}
