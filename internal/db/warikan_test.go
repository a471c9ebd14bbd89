package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// databaseURL prefers TEST_DATABASE_URL and otherwise starts a disposable
// postgres container. Tests skip when neither is available.
func databaseURL(t *testing.T) string {
	t.Helper()
	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		return url
	}
	if testing.Short() {
		t.Skip("short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("warikan"),
		tcpostgres.WithUsername("warikan"),
		tcpostgres.WithPassword("warikan"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})
	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	return url
}

func testDB(t *testing.T) *DB {
	t.Helper()
	url := databaseURL(t)
	ctx := context.Background()
	d, err := New(ctx, url)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(d.Close)
	if err := d.RunMigrations(ctx); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	return d
}

func TestEventLifecycle(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()
	channel := "test-" + time.Now().Format("150405.000000000")

	id, err := d.CreateEvent(ctx, 42, channel, "u1", 2)
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	t.Cleanup(func() {
		_, _ = d.pool.Exec(context.Background(), `DELETE FROM warikan_events WHERE id = $1`, id)
	})

	if _, err := d.CreateEvent(ctx, 42, channel, "u2", 1); err == nil {
		t.Error("second active event in the same channel was accepted")
	}

	ev, err := d.ActiveEventByChannel(ctx, channel)
	if err != nil {
		t.Fatalf("ActiveEventByChannel: %v", err)
	}
	if ev.ID != id || ev.RoundingPrecision != 2 || ev.Status != StatusActive {
		t.Errorf("got %+v", ev)
	}

	for _, u := range []string{"u2", "u1"} {
		if err := d.UpsertMember(ctx, id, u, 1); err != nil {
			t.Fatalf("UpsertMember: %v", err)
		}
	}
	if err := d.UpsertMember(ctx, id, "u2", 2); err != nil {
		t.Fatalf("UpsertMember: %v", err)
	}
	members, err := d.Members(ctx, id)
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if len(members) != 2 || members[0].UserID != "u1" || members[1].Weight != 2 {
		t.Errorf("members = %+v", members)
	}

	if _, err := d.AddPayment(ctx, id, "u1", "", 30, "dinner"); err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	if _, err := d.AddPayment(ctx, id, "u2", "u1", 5, ""); err != nil {
		t.Fatalf("AddPayment: %v", err)
	}
	payments, err := d.Payments(ctx, id)
	if err != nil {
		t.Fatalf("Payments: %v", err)
	}
	if len(payments) != 2 || payments[0].BeneficiaryID != "" || payments[1].BeneficiaryID != "u1" {
		t.Errorf("payments = %+v", payments)
	}

	tasks := []SettlementTask{{PayerID: "u2", PayeeID: "u1", Amount: 5}, {PayerID: "u1", PayeeID: "u2", Amount: 0}}
	if err := d.SetSettlementTasks(ctx, id, tasks); err != nil {
		t.Fatalf("SetSettlementTasks: %v", err)
	}
	pending, err := d.PendingSettlementTasks(ctx, id)
	if err != nil {
		t.Fatalf("PendingSettlementTasks: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %+v", pending)
	}
	if _, err := d.CompleteSettlementTask(ctx, id, "u2", "u1"); err != nil {
		t.Fatalf("CompleteSettlementTask: %v", err)
	}
	if _, err := d.CompleteSettlementTask(ctx, id, "u2", "u1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second completion err = %v, want ErrNotFound", err)
	}

	if err := d.CloseEvent(ctx, id); err != nil {
		t.Fatalf("CloseEvent: %v", err)
	}
	if _, err := d.ActiveEventByChannel(ctx, channel); !errors.Is(err, ErrNotFound) {
		t.Errorf("ActiveEventByChannel after close err = %v", err)
	}
}

func TestDueRemindersSkipClosedEvents(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()
	channel := "remind-" + time.Now().Format("150405.000000000")

	id, err := d.CreateEvent(ctx, 42, channel, "u1", 0)
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	t.Cleanup(func() {
		_, _ = d.pool.Exec(context.Background(), `DELETE FROM warikan_events WHERE id = $1`, id)
	})
	if err := d.SetSettlementTasks(ctx, id, []SettlementTask{{PayerID: "u2", PayeeID: "u1", Amount: 40}}); err != nil {
		t.Fatalf("SetSettlementTasks: %v", err)
	}
	now := time.Now()
	past := now.Add(-time.Minute)
	if err := d.UpsertReminder(ctx, id, true, 10, &past); err != nil {
		t.Fatalf("UpsertReminder: %v", err)
	}

	due := func() bool {
		t.Helper()
		targets, err := d.DueReminders(ctx, now)
		if err != nil {
			t.Fatalf("DueReminders: %v", err)
		}
		for _, r := range targets {
			if r.EventID == id {
				return true
			}
		}
		return false
	}
	if !due() {
		t.Fatal("active event with pending tasks is not due")
	}
	if err := d.CloseEvent(ctx, id); err != nil {
		t.Fatalf("CloseEvent: %v", err)
	}
	if due() {
		t.Error("closed event is still reminded")
	}
}
