package store

import (
	"context"
	"errors"

	"vibepay/internal/models"

	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO orders (
			order_id, member_id, order_number, product_name,
			unit_price, quantity, total_amount, point_amount, card_amount,
			status, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`,
		order.ID,
		order.MemberID,
		order.OrderNumber,
		order.ProductName,
		order.UnitPrice,
		order.Quantity,
		order.TotalAmount,
		order.PointAmount,
		order.CardAmount,
		order.Status,
		order.CreatedAt,
		order.UpdatedAt,
	)
	return err
}

const orderColumns = `
	order_id, member_id, order_number, product_name,
	unit_price, quantity, total_amount, point_amount, card_amount,
	status, created_at, updated_at`

func scanOrder(row pgx.Row) (*models.Order, error) {
	var o models.Order
	err := row.Scan(
		&o.ID,
		&o.MemberID,
		&o.OrderNumber,
		&o.ProductName,
		&o.UnitPrice,
		&o.Quantity,
		&o.TotalAmount,
		&o.PointAmount,
		&o.CardAmount,
		&o.Status,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (s *Store) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	row := s.Pool.QueryRow(ctx, `SELECT`+orderColumns+` FROM orders WHERE order_id=$1`, orderID)
	return scanOrder(row)
}

func (s *Store) ListOrdersByMember(ctx context.Context, memberID string, offset, limit int) ([]*models.Order, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT`+orderColumns+`
		FROM orders
		WHERE member_id=$1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3
	`, memberID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *Store) CountOrdersByMember(ctx context.Context, memberID string) (int64, error) {
	var n int64
	err := s.Pool.QueryRow(ctx, `SELECT count(*) FROM orders WHERE member_id=$1`, memberID).Scan(&n)
	return n, err
}

// TransitionOrder moves an order between statuses with a compare-and-swap on
// the previous status, so concurrent transitions on the same row cannot both
// win. Returns ErrConflict when the order was not in the expected status.
func (s *Store) TransitionOrder(ctx context.Context, orderID string, from, to models.OrderStatus) error {
	res, err := s.Pool.Exec(ctx, `
		UPDATE orders
		SET status=$3, updated_at=now()
		WHERE order_id=$1 AND status=$2
	`, orderID, from, to)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}
