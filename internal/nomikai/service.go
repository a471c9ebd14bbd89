package nomikai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/susu3304/warikanbot/internal/balance"
	"github.com/susu3304/warikanbot/internal/db"
	"github.com/susu3304/warikanbot/internal/renderer"
	"github.com/susu3304/warikanbot/internal/settle"
)

type Service struct {
	store Store
	cfg   Config
}

func NewService(store Store, cfg Config) *Service {
	return &Service{store: store, cfg: cfg}
}

func mention(userID string) string { return "<@" + userID + ">" }

func (s *Service) activeEvent(ctx context.Context, channelID string) (*db.Event, error) {
	ev, err := s.store.ActiveEventByChannel(ctx, channelID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNoActiveEvent
	}
	return ev, err
}

// Start opens an event in the channel with the organizer as first member.
// A negative precision selects the configured default.
func (s *Service) Start(ctx context.Context, guildID int64, channelID, organizerID string, precision int) (*db.Event, error) {
	if _, err := s.store.ActiveEventByChannel(ctx, channelID); err == nil {
		return nil, ErrEventExists
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}
	if precision < 0 {
		precision = s.cfg.Precision
	}
	id, err := s.store.CreateEvent(ctx, guildID, channelID, organizerID, precision)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	if err := s.store.UpsertMember(ctx, id, organizerID, 1); err != nil {
		return nil, fmt.Errorf("add organizer: %w", err)
	}
	return &db.Event{
		ID:                id,
		GuildID:           guildID,
		ChannelID:         channelID,
		OrganizerID:       organizerID,
		Status:            db.StatusActive,
		RoundingPrecision: precision,
	}, nil
}

func (s *Service) Stop(ctx context.Context, channelID string) error {
	ev, err := s.activeEvent(ctx, channelID)
	if err != nil {
		return err
	}
	// reminders of a closed event could never be turned off
	if err := s.store.UpsertReminder(ctx, ev.ID, false, 0, nil); err != nil {
		return err
	}
	return s.store.CloseEvent(ctx, ev.ID)
}

// Join adds users to the active event and returns the ones that were not
// members yet. Existing weights are kept.
func (s *Service) Join(ctx context.Context, channelID string, userIDs ...string) ([]string, error) {
	ev, err := s.activeEvent(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return s.ensureMembers(ctx, ev.ID, userIDs)
}

func (s *Service) ensureMembers(ctx context.Context, eventID int64, userIDs []string) ([]string, error) {
	members, err := s.store.Members(ctx, eventID)
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(members))
	for _, m := range members {
		known[m.UserID] = struct{}{}
	}
	var joined []string
	for _, uid := range userIDs {
		if uid == "" {
			continue
		}
		if _, ok := known[uid]; ok {
			continue
		}
		known[uid] = struct{}{}
		joined = append(joined, uid)
	}
	if s.cfg.MaxParticipants > 0 && len(known) > s.cfg.MaxParticipants {
		return nil, fmt.Errorf("%w (最大 %d 人)", ErrTooManyParticipants, s.cfg.MaxParticipants)
	}
	for _, uid := range joined {
		if err := s.store.UpsertMember(ctx, eventID, uid, 1); err != nil {
			return nil, err
		}
	}
	return joined, nil
}

// SetWeight sets the share weight of the given users, joining them when needed.
func (s *Service) SetWeight(ctx context.Context, channelID string, userIDs []string, w float64) ([]string, error) {
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return nil, ErrInvalidWeight
	}
	ev, err := s.activeEvent(ctx, channelID)
	if err != nil {
		return nil, err
	}
	joined, err := s.ensureMembers(ctx, ev.ID, userIDs)
	if err != nil {
		return nil, err
	}
	for _, uid := range userIDs {
		if uid == "" {
			continue
		}
		if err := s.store.UpsertMember(ctx, ev.ID, uid, w); err != nil {
			return nil, err
		}
	}
	return joined, nil
}

// Pay records a payment. An empty beneficiaryID splits it across all members.
// The payer and beneficiary join the event when they are not members yet.
func (s *Service) Pay(ctx context.Context, channelID, payerID, beneficiaryID string, amount float64, memo string) ([]string, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return nil, ErrInvalidAmount
	}
	ev, err := s.activeEvent(ctx, channelID)
	if err != nil {
		return nil, err
	}
	joined, err := s.ensureMembers(ctx, ev.ID, []string{payerID, beneficiaryID})
	if err != nil {
		return nil, err
	}
	if _, err := s.store.AddPayment(ctx, ev.ID, payerID, beneficiaryID, amount, memo); err != nil {
		return nil, fmt.Errorf("add payment: %w", err)
	}
	return joined, nil
}

// Ledger builds the settlement input of a stored event. Members are ordered
// by user ID.
func (s *Service) Ledger(ctx context.Context, ev *db.Event) (*balance.Ledger, error) {
	members, err := s.store.Members(ctx, ev.ID)
	if err != nil {
		return nil, err
	}
	payments, err := s.store.Payments(ctx, ev.ID)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(members, func(a, b db.Member) int { return strings.Compare(a.UserID, b.UserID) })

	l := &balance.Ledger{
		Payments: make(map[string]map[string]float64),
		Shared:   balance.DefaultShared,
		Weights:  make(map[string]float64, len(members)),
	}
	l.SetPrecision(ev.RoundingPrecision)
	for _, m := range members {
		l.Participants = append(l.Participants, m.UserID)
		l.Weights[m.UserID] = m.Weight
	}
	for _, p := range payments {
		target := p.BeneficiaryID
		if target == "" {
			target = l.Shared
		}
		if l.Payments[p.PayerID] == nil {
			l.Payments[p.PayerID] = make(map[string]float64)
		}
		l.Payments[p.PayerID][target] += p.Amount
	}
	return l, nil
}

func (s *Service) compute(ctx context.Context, ev *db.Event) (*balance.Ledger, *settle.Result, error) {
	l, err := s.Ledger(ctx, ev)
	if err != nil {
		return nil, nil, err
	}
	if len(l.Participants) < 2 {
		return nil, nil, ErrNotEnoughParticipants
	}
	if s.cfg.MaxParticipants > 0 && len(l.Participants) > s.cfg.MaxParticipants {
		return nil, nil, fmt.Errorf("%w (最大 %d 人)", ErrTooManyParticipants, s.cfg.MaxParticipants)
	}
	sheet, err := l.Calculate(balance.Options{})
	if err != nil {
		return nil, nil, err
	}
	if s.cfg.SettleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.SettleTimeout)
		defer cancel()
	}
	res, err := settle.Settle(ctx, sheet.Participants, settle.Options{
		Precision: l.RoundingPrecision(),
		Tolerance: sheet.Slack,
	})
	if err != nil {
		return nil, nil, err
	}
	return l, res, nil
}

// Status describes every member's balance in the active event.
func (s *Service) Status(ctx context.Context, channelID string) (string, error) {
	ev, err := s.activeEvent(ctx, channelID)
	if err != nil {
		return "", err
	}
	l, err := s.Ledger(ctx, ev)
	if err != nil {
		return "", err
	}
	if len(l.Participants) == 0 {
		return "参加者がいません", nil
	}
	sheet, err := l.Calculate(balance.Options{})
	if err != nil {
		return "", err
	}
	prec := l.RoundingPrecision()
	var total float64
	for _, p := range sheet.Participants {
		total += p.Payments
	}
	var b strings.Builder
	fmt.Fprintf(&b, "総支出: %s 円 (共有: %s 円)\n", renderer.Amount(total, prec, ""), renderer.Amount(sheet.SharedCosts, prec, ""))
	for _, p := range sheet.Participants {
		fmt.Fprintf(&b, "%s weight=%.2f paid=%s cost=%s",
			mention(p.Name), l.Weights[p.Name], renderer.Amount(p.Payments, prec, ""), renderer.Amount(p.Costs, prec, ""))
		switch {
		case !p.Settled() && p.ToPay > settle.Epsilon:
			fmt.Fprintf(&b, " → 支払 %s", renderer.Amount(p.ToPay, prec, ""))
		case !p.Settled():
			fmt.Fprintf(&b, " → 受取 %s", renderer.Amount(p.ToReceive, prec, ""))
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

// Preview settles the active event of a channel without persisting tasks.
func (s *Service) Preview(ctx context.Context, channelID string) (*settle.Result, error) {
	ev, err := s.activeEvent(ctx, channelID)
	if err != nil {
		return nil, err
	}
	_, res, err := s.compute(ctx, ev)
	return res, err
}

// Settle runs the transfer search for the active event and replaces its
// settlement tasks with the rounded transfers.
func (s *Service) Settle(ctx context.Context, channelID string) (*SettleResult, error) {
	ev, err := s.activeEvent(ctx, channelID)
	if err != nil {
		return nil, err
	}
	_, res, err := s.compute(ctx, ev)
	if err != nil {
		return nil, err
	}
	var tasks []db.SettlementTask
	for _, t := range res.Transfers() {
		// too small to pay at this precision
		if t.Rounded <= 0 {
			continue
		}
		tasks = append(tasks, db.SettlementTask{PayerID: t.From, PayeeID: t.To, Amount: t.Rounded})
	}
	if err := s.store.SetSettlementTasks(ctx, ev.ID, tasks); err != nil {
		return nil, fmt.Errorf("save settlement tasks: %w", err)
	}

	var b strings.Builder
	if len(tasks) == 0 {
		b.WriteString("精算の必要はありません")
	} else {
		b.WriteString("精算結果:\n")
		b.WriteString(renderer.Plain(res, mention, ""))
		fmt.Fprintf(&b, "送金回数: %d 丸め誤差: %s", len(tasks), renderer.Amount(res.Combo.RoundingError, ev.RoundingPrecision+2, ""))
	}
	return &SettleResult{Result: res, Tasks: tasks, Summary: b.String()}, nil
}

// CompleteTask marks the pending transfer between actor and other as done,
// whichever way it goes.
func (s *Service) CompleteTask(ctx context.Context, channelID, actorID, otherID string) (string, error) {
	ev, err := s.activeEvent(ctx, channelID)
	if err != nil {
		return "", err
	}
	for _, pair := range [][2]string{{actorID, otherID}, {otherID, actorID}} {
		_, err := s.store.CompleteSettlementTask(ctx, ev.ID, pair[0], pair[1])
		if errors.Is(err, db.ErrNotFound) {
			continue
		}
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("完了しました: %s → %s", mention(pair[0]), mention(pair[1])), nil
	}
	return "", ErrTaskNotFound
}

// SetReminder enables reminders every minutes, or disables them when
// minutes is not positive.
func (s *Service) SetReminder(ctx context.Context, channelID string, minutes int, now time.Time) error {
	ev, err := s.activeEvent(ctx, channelID)
	if err != nil {
		return err
	}
	if minutes <= 0 {
		return s.store.UpsertReminder(ctx, ev.ID, false, 0, nil)
	}
	next := now.Add(time.Duration(minutes) * time.Minute)
	return s.store.UpsertReminder(ctx, ev.ID, true, minutes, &next)
}

// ReminderMessage lists the pending tasks of an event. It returns an empty
// string when nothing is pending.
func (s *Service) ReminderMessage(ctx context.Context, eventID int64) (string, error) {
	ev, err := s.store.EventByID(ctx, eventID)
	if err != nil {
		return "", err
	}
	tasks, err := s.store.PendingSettlementTasks(ctx, eventID)
	if err != nil {
		return "", err
	}
	if len(tasks) == 0 {
		return "", nil
	}
	var b strings.Builder
	b.WriteString("未完了の精算があります:\n")
	for _, t := range tasks {
		fmt.Fprintf(&b, "%s → %s: %s 円\n", mention(t.PayerID), mention(t.PayeeID), renderer.Amount(t.Amount, ev.RoundingPrecision, ""))
	}
	b.WriteString("支払ったら `/warikan done` で完了にしてください")
	return b.String(), nil
}
