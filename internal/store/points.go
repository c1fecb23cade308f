package store

import (
	"context"
	"errors"
	"time"

	"vibepay/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (s *Store) GetBalance(ctx context.Context, memberID string) (*models.Point, error) {
	var p models.Point
	err := s.Pool.QueryRow(ctx, `
		SELECT member_id, balance, updated_at FROM points WHERE member_id=$1
	`, memberID).Scan(&p.MemberID, &p.Balance, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// CreateInitialBalance seeds a member's ledger and records the grant as an
// EARN history entry in the same transaction.
func (s *Store) CreateInitialBalance(ctx context.Context, memberID string, amount int64) error {
	return s.withLedgerTx(ctx, func(tx pgx.Tx) error {
		now := time.Now().UTC()
		_, err := tx.Exec(ctx, `
			INSERT INTO points (member_id, balance, updated_at) VALUES ($1,$2,$3)
		`, memberID, amount, now)
		if err != nil {
			return err
		}
		return appendHistory(ctx, tx, &models.PointHistory{
			ID:              uuid.NewString(),
			MemberID:        memberID,
			TransactionType: models.TxEarn,
			Amount:          amount,
			BalanceBefore:   0,
			BalanceAfter:    amount,
			Description:     "signup grant",
			CreatedAt:       now,
		})
	})
}

// Debit subtracts amount from the member's balance. The balance row is
// locked for the duration of the transaction and the debit is rejected with
// ErrInsufficientBalance rather than ever taking the balance negative. The
// USE history entry is appended in the same transaction.
func (s *Store) Debit(ctx context.Context, memberID string, amount int64, orderNumber, description string) (*models.Point, error) {
	return s.adjustBalance(ctx, memberID, -amount, models.TxUse, orderNumber, description)
}

// Credit adds amount back to the member's balance with a RESTORE (or EARN)
// history entry appended atomically.
func (s *Store) Credit(ctx context.Context, memberID string, amount int64, txType models.TransactionType, orderNumber, description string) (*models.Point, error) {
	return s.adjustBalance(ctx, memberID, amount, txType, orderNumber, description)
}

func (s *Store) adjustBalance(ctx context.Context, memberID string, delta int64, txType models.TransactionType, orderNumber, description string) (*models.Point, error) {
	var out *models.Point
	err := s.withLedgerTx(ctx, func(tx pgx.Tx) error {
		var before int64
		err := tx.QueryRow(ctx, `
			SELECT balance FROM points WHERE member_id=$1 FOR UPDATE
		`, memberID).Scan(&before)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		after := before + delta
		if after < 0 {
			return ErrInsufficientBalance
		}

		now := time.Now().UTC()
		if _, err := tx.Exec(ctx, `
			UPDATE points SET balance=$2, updated_at=$3 WHERE member_id=$1
		`, memberID, after, now); err != nil {
			return err
		}

		amount := delta
		if amount < 0 {
			amount = -amount
		}
		if err := appendHistory(ctx, tx, &models.PointHistory{
			ID:              uuid.NewString(),
			MemberID:        memberID,
			TransactionType: txType,
			Amount:          amount,
			BalanceBefore:   before,
			BalanceAfter:    after,
			OrderNumber:     orderNumber,
			Description:     description,
			CreatedAt:       now,
		}); err != nil {
			return err
		}

		out = &models.Point{MemberID: memberID, Balance: after, UpdatedAt: now}
		return nil
	})
	return out, err
}

func appendHistory(ctx context.Context, tx pgx.Tx, h *models.PointHistory) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO point_history (
			history_id, member_id, transaction_type, amount,
			balance_before, balance_after, order_number, description, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		h.ID,
		h.MemberID,
		h.TransactionType,
		h.Amount,
		h.BalanceBefore,
		h.BalanceAfter,
		h.OrderNumber,
		h.Description,
		h.CreatedAt,
	)
	return err
}

func (s *Store) PointHistory(ctx context.Context, memberID string, offset, limit int) ([]*models.PointHistory, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT history_id, member_id, transaction_type, amount,
			balance_before, balance_after, order_number, description, created_at
		FROM point_history
		WHERE member_id=$1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3
	`, memberID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.PointHistory
	for rows.Next() {
		var h models.PointHistory
		if err := rows.Scan(
			&h.ID,
			&h.MemberID,
			&h.TransactionType,
			&h.Amount,
			&h.BalanceBefore,
			&h.BalanceAfter,
			&h.OrderNumber,
			&h.Description,
			&h.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, &h)
	}
	return entries, rows.Err()
}

func (s *Store) withLedgerTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
