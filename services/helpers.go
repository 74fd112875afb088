package services

import (
	"context"
	"database/sql"
	"fmt"
)

// Notifier — внешний канал уведомлений (WebSocket hub). Доставка
// best-effort: сервисы не ждут подтверждения и не откатывают транзакции.
type Notifier interface {
	BroadcastToTournament(tournamentID int, event string, payload interface{})
}

// NopNotifier discards every broadcast. Useful for tests and tooling.
type NopNotifier struct{}

func (NopNotifier) BroadcastToTournament(int, string, interface{}) {}

// runInTransaction выполняет fn в одной транзакции: либо коммитится всё,
// либо ничего.
func runInTransaction(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed (%v) after: %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func intPtr(v int) *int {
	return &v
}
