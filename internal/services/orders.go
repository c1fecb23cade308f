package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"vibepay/internal/models"
	"vibepay/internal/store"

	"github.com/google/uuid"
)

type OrderService struct {
	Orders        OrderStore
	Payments      *PaymentService
	Points        *PointService
	MinCardAmount int64
	// DefaultGateway is used when a card request names no gateway.
	DefaultGateway models.GatewayType
}

type CreateOrderInput struct {
	ProductName   string
	UnitPrice     int64
	Quantity      int64
	PaymentMethod models.PaymentMethod
	PointAmount   int64
	CardAmount    int64
	GatewayType   models.GatewayType
	GatewayTID    string
	Currency      string
}

// CreateOrder validates the split, persists the order PENDING and delegates
// settlement to the payment orchestrator. When settlement fails the order is
// left PENDING and the orchestrator's error is surfaced.
func (s *OrderService) CreateOrder(ctx context.Context, memberID string, in CreateOrderInput) (*models.Order, error) {
	total := in.UnitPrice * in.Quantity
	if err := s.validateCreate(&in, total); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	order := &models.Order{
		ID:          uuid.NewString(),
		MemberID:    memberID,
		OrderNumber: models.NewOrderNumber(now),
		ProductName: in.ProductName,
		UnitPrice:   in.UnitPrice,
		Quantity:    in.Quantity,
		TotalAmount: total,
		PointAmount: in.PointAmount,
		CardAmount:  in.CardAmount,
		Status:      models.OrderPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Orders.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	if _, err := s.Payments.ApprovePayment(ctx, memberID, ApproveInput{
		OrderID:       order.ID,
		PaymentMethod: in.PaymentMethod,
		GatewayType:   in.GatewayType,
		TotalAmount:   total,
		CardAmount:    in.CardAmount,
		PointAmount:   in.PointAmount,
		GatewayTID:    in.GatewayTID,
		Currency:      in.Currency,
	}); err != nil {
		return nil, err
	}

	return s.Orders.GetOrder(ctx, order.ID)
}

func (s *OrderService) validateCreate(in *CreateOrderInput, total int64) error {
	if in.ProductName == "" {
		return validationf("product name is required")
	}
	if in.UnitPrice < 1 {
		return validationf("unit price must be at least 1")
	}
	if in.Quantity < 1 {
		return validationf("quantity must be at least 1")
	}
	if in.PointAmount < 0 || in.CardAmount < 0 {
		return validationf("amounts must not be negative")
	}
	if in.PointAmount+in.CardAmount != total {
		return validationf("point amount plus card amount must equal the order total")
	}

	switch in.PaymentMethod {
	case models.MethodPoint:
		if in.CardAmount != 0 {
			return validationf("point payment must not carry a card amount")
		}
	case models.MethodCard:
		if in.PointAmount != 0 {
			return validationf("card payment must not carry a point amount")
		}
	case models.MethodMixed:
		if in.PointAmount == 0 || in.CardAmount == 0 {
			return validationf("mixed payment needs both a point and a card amount")
		}
	default:
		return validationf("unsupported payment method: %s", in.PaymentMethod)
	}

	if in.CardAmount > 0 {
		if in.CardAmount < s.MinCardAmount {
			return validationf("card amount must be at least %d", s.MinCardAmount)
		}
		// The adapter cannot be called without the gateway's auth evidence.
		if in.GatewayTID == "" {
			return validationf("gateway transaction id is required for card payments")
		}
		if in.GatewayType == "" {
			in.GatewayType = s.DefaultGateway
		}
		if in.Currency == "" {
			in.Currency = "WON"
		}
	}
	return nil
}

func (s *OrderService) GetOrder(ctx context.Context, memberID, orderID string) (*models.Order, error) {
	return s.orderForMember(ctx, orderID, memberID)
}

func (s *OrderService) ListOrders(ctx context.Context, memberID string, page, size int) ([]*models.Order, int64, error) {
	total, err := s.Orders.CountOrdersByMember(ctx, memberID)
	if err != nil {
		return nil, 0, err
	}
	offset, limit := pageOffset(page, size)
	orders, err := s.Orders.ListOrdersByMember(ctx, memberID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// CancelOrder cancels the order and refunds both components of a paid one:
// the card amount through the payment orchestrator (gateway cancel) and the
// point amount through a ledger restore.
func (s *OrderService) CancelOrder(ctx context.Context, memberID, orderID string) (*models.Order, error) {
	order, err := s.orderForMember(ctx, orderID, memberID)
	if err != nil {
		return nil, err
	}
	if order.Status == models.OrderCancelled {
		return nil, ErrOrderAlreadyCancelled
	}

	switch {
	case order.Status == models.OrderPaid && order.CardAmount > 0:
		payment, err := s.Payments.Payments.GetApprovedPaymentByOrder(ctx, order.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, processf("PAYMENT_MISSING", "paid order has no approved payment")
			}
			return nil, err
		}
		// CancelPayment cancels at the gateway, cancels the order and
		// restores any point component.
		if _, err := s.Payments.CancelPayment(ctx, memberID, payment.ID, "order cancellation", 0); err != nil {
			return nil, err
		}

	case order.Status == models.OrderPaid:
		// Point-only order: nothing at the gateway to reverse.
		if err := s.Orders.TransitionOrder(ctx, order.ID, models.OrderPaid, models.OrderCancelled); err != nil {
			return nil, err
		}
		if payment, err := s.Payments.Payments.GetApprovedPaymentByOrder(ctx, order.ID); err == nil {
			cancelled := payment.Cancel()
			if err := s.Payments.Payments.UpdatePayment(ctx, &cancelled, models.PaymentApproved); err != nil {
				slog.Error("payment transition to CANCELLED failed",
					"paymentId", payment.ID, "err", err)
			}
		}
		if order.PointAmount > 0 {
			s.Payments.restorePoints(ctx, memberID, order.PointAmount, order.OrderNumber)
		}

	default:
		// Still PENDING: no money moved, just close it.
		if err := s.Orders.TransitionOrder(ctx, order.ID, models.OrderPending, models.OrderCancelled); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return nil, ErrOrderAlreadyCancelled
			}
			return nil, err
		}
	}

	return s.Orders.GetOrder(ctx, order.ID)
}

func (s *OrderService) orderForMember(ctx context.Context, orderID, memberID string) (*models.Order, error) {
	order, err := s.Orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if order.MemberID != memberID {
		return nil, ErrUnauthorized
	}
	return order, nil
}
