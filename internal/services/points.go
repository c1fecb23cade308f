package services

import (
	"context"
	"errors"

	"vibepay/internal/models"
	"vibepay/internal/store"
)

// PointService owns the member point ledger. All balance changes go through
// Deduct/Restore so every movement lands in the append-only history.
type PointService struct {
	Ledger LedgerStore
}

func (s *PointService) GetBalance(ctx context.Context, memberID string) (*models.Point, error) {
	p, err := s.Ledger.GetBalance(ctx, memberID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPointNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *PointService) Deduct(ctx context.Context, memberID string, amount int64, orderNumber string) (*models.Point, error) {
	if amount <= 0 {
		return nil, validationf("deduct amount must be positive")
	}
	p, err := s.Ledger.Debit(ctx, memberID, amount, orderNumber, "point payment")
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrPointNotFound
		case errors.Is(err, store.ErrInsufficientBalance):
			return nil, ErrInsufficientBalance
		}
		return nil, err
	}
	return p, nil
}

func (s *PointService) Restore(ctx context.Context, memberID string, amount int64, orderNumber string) (*models.Point, error) {
	if amount <= 0 {
		return nil, validationf("restore amount must be positive")
	}
	p, err := s.Ledger.Credit(ctx, memberID, amount, models.TxRestore, orderNumber, "point restore")
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPointNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *PointService) GetHistory(ctx context.Context, memberID string, page, size int) ([]*models.PointHistory, error) {
	offset, limit := pageOffset(page, size)
	return s.Ledger.PointHistory(ctx, memberID, offset, limit)
}
