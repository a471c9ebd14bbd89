package nomikai

import (
	"context"
	"errors"
	"time"

	"github.com/susu3304/warikanbot/internal/db"
	"github.com/susu3304/warikanbot/internal/settle"
)

var (
	ErrNoActiveEvent         = errors.New("セッションが開始されていません")
	ErrEventExists           = errors.New("このチャンネルではすでにセッションが進行中です")
	ErrNotEnoughParticipants = errors.New("参加者が2人以上必要です")
	ErrTooManyParticipants   = errors.New("参加者が多すぎて精算できません")
	ErrInvalidAmount         = errors.New("金額は正の数で指定してください")
	ErrInvalidWeight         = errors.New("weight は0以上で指定してください")
	ErrTaskNotFound          = errors.New("対象のタスクが見つかりません")
)

// Store is the persistence the service needs. *db.DB implements it.
type Store interface {
	CreateEvent(ctx context.Context, guildID int64, channelID, organizerID string, precision int) (int64, error)
	ActiveEventByChannel(ctx context.Context, channelID string) (*db.Event, error)
	EventByID(ctx context.Context, eventID int64) (*db.Event, error)
	CloseEvent(ctx context.Context, eventID int64) error
	UpsertMember(ctx context.Context, eventID int64, userID string, weight float64) error
	Members(ctx context.Context, eventID int64) ([]db.Member, error)
	AddPayment(ctx context.Context, eventID int64, payerID, beneficiaryID string, amount float64, memo string) (int64, error)
	Payments(ctx context.Context, eventID int64) ([]db.Payment, error)
	SetSettlementTasks(ctx context.Context, eventID int64, tasks []db.SettlementTask) error
	PendingSettlementTasks(ctx context.Context, eventID int64) ([]db.SettlementTask, error)
	CompleteSettlementTask(ctx context.Context, eventID int64, payerID, payeeID string) (int64, error)
	UpsertReminder(ctx context.Context, eventID int64, enabled bool, intervalMinutes int, nextDueAt *time.Time) error
}

type Config struct {
	// Precision is used when start is called without one.
	Precision int
	// MaxParticipants caps the members of an event. Zero means no cap.
	MaxParticipants int
	// SettleTimeout bounds the transfer search. Zero means no deadline.
	SettleTimeout time.Duration
}

type SettleResult struct {
	Result  *settle.Result
	Tasks   []db.SettlementTask
	Summary string
}
