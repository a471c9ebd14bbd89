package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	StatusActive = "active"
	StatusClosed = "closed"
)

type Event struct {
	ID                int64
	GuildID           int64
	ChannelID         string
	OrganizerID       string
	Status            string
	RoundingPrecision int
}

type Member struct {
	EventID int64
	UserID  string
	Weight  float64
}

// Payment is money paid by PayerID. An empty BeneficiaryID means the
// amount is shared by all members.
type Payment struct {
	ID            int64
	EventID       int64
	PayerID       string
	BeneficiaryID string
	Amount        float64
	Memo          string
}

type SettlementTask struct {
	ID      int64
	PayerID string
	PayeeID string
	Amount  float64
}

type ReminderDue struct {
	EventID         int64
	ChannelID       string
	IntervalMinutes int
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// CreateEvent opens a new active event. The partial unique index rejects a
// second active event in the same channel.
func (db *DB) CreateEvent(ctx context.Context, guildID int64, channelID, organizerID string, precision int) (int64, error) {
	var id int64
	err := db.pool.QueryRow(ctx,
		`INSERT INTO warikan_events (guild_id, channel_id, organizer_id, status, rounding_precision)
         VALUES ($1, $2, $3, 'active', $4)
         RETURNING id`,
		guildID, channelID, organizerID, precision,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ActiveEventByChannel returns the active event for the given channel.
func (db *DB) ActiveEventByChannel(ctx context.Context, channelID string) (*Event, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT id, guild_id, channel_id, organizer_id, status, rounding_precision
		 FROM warikan_events WHERE channel_id = $1 AND status = 'active' LIMIT 1`,
		channelID,
	)
	var ev Event
	if err := row.Scan(&ev.ID, &ev.GuildID, &ev.ChannelID, &ev.OrganizerID, &ev.Status, &ev.RoundingPrecision); err != nil {
		return nil, notFound(err)
	}
	return &ev, nil
}

func (db *DB) EventByID(ctx context.Context, eventID int64) (*Event, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT id, guild_id, channel_id, organizer_id, status, rounding_precision
		 FROM warikan_events WHERE id = $1`,
		eventID,
	)
	var ev Event
	if err := row.Scan(&ev.ID, &ev.GuildID, &ev.ChannelID, &ev.OrganizerID, &ev.Status, &ev.RoundingPrecision); err != nil {
		return nil, notFound(err)
	}
	return &ev, nil
}

// CloseEvent sets the event status to closed.
func (db *DB) CloseEvent(ctx context.Context, eventID int64) error {
	ct, err := db.pool.Exec(ctx, `UPDATE warikan_events SET status = 'closed', closed_at = CURRENT_TIMESTAMP WHERE id = $1`, eventID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RegisteredGuildIDs lists guilds that have ever opened an event.
func (db *DB) RegisteredGuildIDs(ctx context.Context) ([]int64, error) {
	rows, err := db.pool.Query(ctx, "SELECT DISTINCT guild_id FROM warikan_events ORDER BY guild_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var guildIDs []int64
	for rows.Next() {
		var guildID int64
		if err := rows.Scan(&guildID); err != nil {
			return nil, err
		}
		guildIDs = append(guildIDs, guildID)
	}
	return guildIDs, rows.Err()
}

// UpsertMember adds or updates a member weight.
func (db *DB) UpsertMember(ctx context.Context, eventID int64, userID string, weight float64) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO warikan_members (event_id, user_id, weight)
         VALUES ($1, $2, $3)
         ON CONFLICT (event_id, user_id) DO UPDATE SET weight = EXCLUDED.weight`,
		eventID, userID, weight,
	)
	return err
}

// Members returns all members for an event ordered by user ID.
func (db *DB) Members(ctx context.Context, eventID int64) ([]Member, error) {
	rows, err := db.pool.Query(ctx, `SELECT event_id, user_id, weight FROM warikan_members WHERE event_id = $1 ORDER BY user_id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.EventID, &m.UserID, &m.Weight); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AddPayment records a payment. An empty beneficiaryID stores a shared payment.
func (db *DB) AddPayment(ctx context.Context, eventID int64, payerID, beneficiaryID string, amount float64, memo string) (int64, error) {
	var beneficiary *string
	if beneficiaryID != "" {
		beneficiary = &beneficiaryID
	}
	var id int64
	err := db.pool.QueryRow(ctx,
		`INSERT INTO warikan_payments (event_id, payer_id, beneficiary_id, amount, memo)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING id`,
		eventID, payerID, beneficiary, amount, memo,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Payments returns the payments of an event in insertion order.
func (db *DB) Payments(ctx context.Context, eventID int64) ([]Payment, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, event_id, payer_id, COALESCE(beneficiary_id, ''), amount, COALESCE(memo, '')
		 FROM warikan_payments WHERE event_id = $1 ORDER BY id`,
		eventID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.EventID, &p.PayerID, &p.BeneficiaryID, &p.Amount, &p.Memo); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetSettlementTasks replaces tasks for an event.
func (db *DB) SetSettlementTasks(ctx context.Context, eventID int64, tasks []SettlementTask) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM warikan_settlement_tasks WHERE event_id = $1`, eventID); err != nil {
		return err
	}
	for _, t := range tasks {
		if t.Amount <= 0 || t.PayerID == "" || t.PayeeID == "" {
			continue
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO warikan_settlement_tasks (event_id, payer_id, payee_id, amount, completed)
             VALUES ($1, $2, $3, $4, FALSE)`,
			eventID, t.PayerID, t.PayeeID, t.Amount,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// PendingSettlementTasks returns unsettled tasks for an event.
func (db *DB) PendingSettlementTasks(ctx context.Context, eventID int64) ([]SettlementTask, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, payer_id, payee_id, amount
		 FROM warikan_settlement_tasks
		 WHERE event_id = $1 AND completed = FALSE
		 ORDER BY id`,
		eventID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []SettlementTask
	for rows.Next() {
		var t SettlementTask
		if err := rows.Scan(&t.ID, &t.PayerID, &t.PayeeID, &t.Amount); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CompleteSettlementTask marks the pending tasks from payer to payee as done
// and returns how many were updated.
func (db *DB) CompleteSettlementTask(ctx context.Context, eventID int64, payerID, payeeID string) (int64, error) {
	ct, err := db.pool.Exec(ctx,
		`UPDATE warikan_settlement_tasks
		 SET completed = TRUE, completed_at = CURRENT_TIMESTAMP
		 WHERE event_id = $1 AND payer_id = $2 AND payee_id = $3 AND completed = FALSE`,
		eventID, payerID, payeeID,
	)
	if err != nil {
		return 0, err
	}
	if ct.RowsAffected() == 0 {
		return 0, ErrNotFound
	}
	return ct.RowsAffected(), nil
}

// UpsertReminder configures reminders for an event and optionally schedules the next due time.
func (db *DB) UpsertReminder(ctx context.Context, eventID int64, enabled bool, intervalMinutes int, nextDueAt *time.Time) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO warikan_reminders (event_id, enabled, interval_minutes, next_due_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (event_id) DO UPDATE
		 SET enabled = EXCLUDED.enabled,
			 interval_minutes = EXCLUDED.interval_minutes,
			 next_due_at = COALESCE(EXCLUDED.next_due_at, warikan_reminders.next_due_at)`,
		eventID, enabled, intervalMinutes, nextDueAt,
	)
	return err
}

// DueReminders returns reminder targets of active events that are due and
// still have pending tasks.
func (db *DB) DueReminders(ctx context.Context, now time.Time) ([]ReminderDue, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT r.event_id, e.channel_id, r.interval_minutes
		 FROM warikan_reminders r
		 JOIN warikan_events e ON e.id = r.event_id
		 WHERE r.enabled = TRUE
		   AND e.status = 'active'
		   AND (r.next_due_at IS NULL OR r.next_due_at <= $1)
		   AND EXISTS (
			 SELECT 1 FROM warikan_settlement_tasks t
			 WHERE t.event_id = r.event_id AND t.completed = FALSE
		   )`,
		now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []ReminderDue
	for rows.Next() {
		var r ReminderDue
		if err := rows.Scan(&r.EventID, &r.ChannelID, &r.IntervalMinutes); err != nil {
			return nil, err
		}
		targets = append(targets, r)
	}
	return targets, rows.Err()
}

// MarkReminderSent updates reminder schedule timestamps.
func (db *DB) MarkReminderSent(ctx context.Context, eventID int64, sentAt time.Time, nextDue time.Time) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE warikan_reminders
		 SET last_sent_at = $2, next_due_at = $3
		 WHERE event_id = $1`,
		eventID, sentAt, nextDue,
	)
	return err
}

// DelayReminder updates next_due_at without touching last_sent_at.
func (db *DB) DelayReminder(ctx context.Context, eventID int64, nextDue time.Time) error {
	ct, err := db.pool.Exec(ctx,
		`UPDATE warikan_reminders
		 SET next_due_at = $2
		 WHERE event_id = $1`,
		eventID, nextDue,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("reminder for event %d: %w", eventID, ErrNotFound)
	}
	return nil
}
