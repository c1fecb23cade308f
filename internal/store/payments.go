package store

import (
	"context"
	"errors"

	"vibepay/internal/models"

	"github.com/jackc/pgx/v5"
)

func (s *Store) CreatePayment(ctx context.Context, p *models.Payment) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO payments (
			payment_id, order_id, payment_method, gateway_type,
			total_amount, card_amount, point_amount,
			gateway_tid, auth_code, card_number, card_issuer,
			status, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		p.ID,
		p.OrderID,
		p.PaymentMethod,
		p.GatewayType,
		p.TotalAmount,
		p.CardAmount,
		p.PointAmount,
		p.GatewayTID,
		p.AuthCode,
		p.CardNumber,
		p.CardIssuer,
		p.Status,
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

const paymentColumns = `
	payment_id, order_id, payment_method, gateway_type,
	total_amount, card_amount, point_amount,
	gateway_tid, auth_code, card_number, card_issuer,
	status, created_at, updated_at`

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var p models.Payment
	err := row.Scan(
		&p.ID,
		&p.OrderID,
		&p.PaymentMethod,
		&p.GatewayType,
		&p.TotalAmount,
		&p.CardAmount,
		&p.PointAmount,
		&p.GatewayTID,
		&p.AuthCode,
		&p.CardNumber,
		&p.CardIssuer,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetPayment(ctx context.Context, paymentID string) (*models.Payment, error) {
	row := s.Pool.QueryRow(ctx, `SELECT`+paymentColumns+` FROM payments WHERE payment_id=$1`, paymentID)
	return scanPayment(row)
}

// GetApprovedPaymentByOrder returns the order's non-terminal settled
// attempt; at most one exists at a time.
func (s *Store) GetApprovedPaymentByOrder(ctx context.Context, orderID string) (*models.Payment, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT`+paymentColumns+`
		FROM payments
		WHERE order_id=$1 AND status='APPROVED'
		ORDER BY created_at DESC
		LIMIT 1
	`, orderID)
	return scanPayment(row)
}

func (s *Store) ListPaymentsByMember(ctx context.Context, memberID string, offset, limit int) ([]*models.Payment, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT`+paymentColumns+`
		FROM payments
		WHERE order_id IN (SELECT order_id FROM orders WHERE member_id=$1)
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3
	`, memberID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// UpdatePayment writes a lifecycle transition back onto the same record.
// The previous status guards the update so a concurrent transition on the
// same payment cannot be silently overwritten.
func (s *Store) UpdatePayment(ctx context.Context, p *models.Payment, from models.PaymentStatus) error {
	res, err := s.Pool.Exec(ctx, `
		UPDATE payments
		SET gateway_tid=$3, auth_code=$4, card_number=$5, card_issuer=$6,
			status=$7, updated_at=$8
		WHERE payment_id=$1 AND status=$2
	`,
		p.ID,
		from,
		p.GatewayTID,
		p.AuthCode,
		p.CardNumber,
		p.CardIssuer,
		p.Status,
		p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}
