package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"vibepay/internal/gateway"
	"vibepay/internal/models"
	"vibepay/internal/store"

	"github.com/google/uuid"
)

// PaymentService sequences the ledger debit, the gateway call and the local
// state transitions for one payment attempt, and runs the compensations that
// keep the ledger and the order consistent with what the gateway actually
// confirmed. The gateway call sits outside any database transaction, which
// is why every failure path after the point debit restores it explicitly.
type PaymentService struct {
	Payments PaymentStore
	Orders   OrderStore
	Points   *PointService
	Registry *gateway.Registry
}

type ApproveInput struct {
	OrderID       string
	PaymentMethod models.PaymentMethod
	GatewayType   models.GatewayType
	TotalAmount   int64
	CardAmount    int64
	PointAmount   int64
	// GatewayTID is the transaction id issued to the browser by the
	// gateway's auth step; opaque to the orchestrator.
	GatewayTID string
	Currency   string
}

// ApprovePayment settles one payment attempt:
//
//	resolve order -> persist PENDING payment -> debit points -> gateway
//	approve -> APPROVED payment + PAID order
//
// The ledger is debited before the gateway call, so a failed debit never
// requires reversing a completed card charge. A failed or faulted gateway
// call restores the debit and marks the payment FAILED; the order stays
// PENDING.
func (s *PaymentService) ApprovePayment(ctx context.Context, memberID string, in ApproveInput) (*models.Payment, error) {
	order, err := s.orderForPayment(ctx, in.OrderID, memberID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	payment := &models.Payment{
		ID:            uuid.NewString(),
		OrderID:       order.ID,
		PaymentMethod: in.PaymentMethod,
		GatewayType:   in.GatewayType,
		TotalAmount:   in.TotalAmount,
		CardAmount:    in.CardAmount,
		PointAmount:   in.PointAmount,
		Status:        models.PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Payments.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}

	if in.PointAmount > 0 {
		if _, err := s.Points.Deduct(ctx, memberID, in.PointAmount, order.OrderNumber); err != nil {
			s.markFailed(ctx, payment)
			if errors.Is(err, ErrInsufficientBalance) || errors.Is(err, ErrPointNotFound) {
				return nil, processf("POINT_DEDUCT_FAILED", "point deduction failed: %v", err)
			}
			return nil, err
		}
		slog.Info("points deducted", "memberId", memberID, "amount", in.PointAmount, "orderNumber", order.OrderNumber)
	}

	if in.CardAmount > 0 {
		return s.approveCard(ctx, memberID, order, payment, in)
	}

	// Pure point payment: no gateway involved, settle directly.
	approved := payment.Approve("", "", "", "")
	if err := s.Payments.UpdatePayment(ctx, &approved, models.PaymentPending); err != nil {
		s.restorePoints(ctx, memberID, in.PointAmount, order.OrderNumber)
		s.markFailed(ctx, payment)
		return nil, err
	}
	if err := s.Orders.TransitionOrder(ctx, order.ID, models.OrderPending, models.OrderPaid); err != nil {
		return nil, err
	}
	return &approved, nil
}

func (s *PaymentService) approveCard(ctx context.Context, memberID string, order *models.Order, payment *models.Payment, in ApproveInput) (*models.Payment, error) {
	adapter, err := s.Registry.Resolve(in.GatewayType)
	if err != nil {
		s.restorePoints(ctx, memberID, in.PointAmount, order.OrderNumber)
		s.markFailed(ctx, payment)
		return nil, validationf("%v", err)
	}

	res := adapter.Approve(ctx, gateway.ApproveRequest{
		OrderNumber: order.OrderNumber,
		GatewayTID:  in.GatewayTID,
		TotalAmount: in.TotalAmount,
		CardAmount:  in.CardAmount,
		Currency:    in.Currency,
	})

	if !res.Success {
		// The adapter has already network-cancelled any partial
		// authorization; our side of the compensation is the ledger.
		s.restorePoints(ctx, memberID, in.PointAmount, order.OrderNumber)
		s.markFailed(ctx, payment)
		slog.Warn("payment approval declined",
			"paymentId", payment.ID, "code", res.ErrorCode, "message", res.Message)
		return nil, &ProcessError{Code: res.ErrorCode, Message: res.Message}
	}

	approved := payment.Approve(res.GatewayTID, res.AuthCode, res.CardNumber, res.CardIssuer)
	if err := s.Payments.UpdatePayment(ctx, &approved, models.PaymentPending); err != nil {
		// The charge exists but we could not record it: void it and put
		// the ledger back, or the member is charged for a lost payment.
		slog.Error("persisting approved payment failed, voiding charge",
			"paymentId", payment.ID, "gatewayTid", res.GatewayTID, "err", err)
		adapter.NetworkCancel(ctx, res.GatewayTID)
		s.restorePoints(ctx, memberID, in.PointAmount, order.OrderNumber)
		s.markFailed(ctx, payment)
		return nil, processf("SYSTEM_ERROR", "payment could not be recorded")
	}

	if err := s.Orders.TransitionOrder(ctx, order.ID, models.OrderPending, models.OrderPaid); err != nil {
		slog.Error("order transition to PAID failed after approval",
			"orderId", order.ID, "paymentId", payment.ID, "err", err)
		return nil, err
	}

	slog.Info("payment approved",
		"paymentId", payment.ID, "gatewayTid", res.GatewayTID, "amount", res.Amount)
	return &approved, nil
}

// CancelPayment reverses an APPROVED payment: gateway cancel first, then the
// local transitions and the point restore. A declined gateway cancel leaves
// every state untouched so the attempt can be retried or investigated.
func (s *PaymentService) CancelPayment(ctx context.Context, memberID, paymentID, reason string, cancelAmount int64) (*models.Payment, error) {
	if cancelAmount < 0 {
		return nil, validationf("cancel amount must not be negative")
	}

	payment, order, err := s.paymentForMember(ctx, paymentID, memberID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentApproved {
		return nil, processf("NOT_CANCELLABLE", "only approved payments can be cancelled")
	}

	// Point-only payments recorded no gateway; only card-bearing ones have
	// anything to reverse remotely.
	if payment.CardAmount > 0 {
		adapter, err := s.Registry.Resolve(payment.GatewayType)
		if err != nil {
			return nil, processf("UNSUPPORTED_GATEWAY", "%v", err)
		}
		res := adapter.Cancel(ctx, gateway.CancelRequest{
			GatewayTID:     payment.GatewayTID,
			CancelAmount:   cancelAmount,
			OriginalAmount: payment.CardAmount,
			Reason:         reason,
		})
		if !res.Success {
			slog.Warn("payment cancel declined",
				"paymentId", payment.ID, "code", res.ErrorCode, "message", res.Message)
			return nil, &ProcessError{Code: res.ErrorCode, Message: res.Message}
		}
		slog.Info("gateway cancel confirmed",
			"paymentId", payment.ID, "gatewayTid", res.GatewayTID, "cancelledAmount", res.Amount)
	}

	cancelled := payment.Cancel()
	if err := s.Payments.UpdatePayment(ctx, &cancelled, models.PaymentApproved); err != nil {
		return nil, err
	}
	if err := s.Orders.TransitionOrder(ctx, order.ID, models.OrderPaid, models.OrderCancelled); err != nil {
		// The gateway cancel is committed; never roll it back over a
		// local bookkeeping fault. Logged for manual reconciliation.
		slog.Error("order transition to CANCELLED failed after gateway cancel",
			"orderId", order.ID, "paymentId", payment.ID, "err", err)
	}

	if payment.PointAmount > 0 {
		s.restorePoints(ctx, memberID, payment.PointAmount, order.OrderNumber)
	}

	return &cancelled, nil
}

func (s *PaymentService) GetPaymentDetail(ctx context.Context, memberID, paymentID string) (*models.Payment, error) {
	payment, _, err := s.paymentForMember(ctx, paymentID, memberID)
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *PaymentService) GetPaymentHistory(ctx context.Context, memberID string, page, size int) ([]*models.Payment, error) {
	offset, limit := pageOffset(page, size)
	return s.Payments.ListPaymentsByMember(ctx, memberID, offset, limit)
}

func (s *PaymentService) orderForPayment(ctx context.Context, orderID, memberID string) (*models.Order, error) {
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
	if order.Status != models.OrderPending {
		return nil, processf("ORDER_NOT_PENDING", "order is not awaiting payment")
	}
	return order, nil
}

func (s *PaymentService) paymentForMember(ctx context.Context, paymentID, memberID string) (*models.Payment, *models.Order, error) {
	payment, err := s.Payments.GetPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrPaymentNotFound
		}
		return nil, nil, err
	}
	order, err := s.Orders.GetOrder(ctx, payment.OrderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrOrderNotFound
		}
		return nil, nil, err
	}
	if order.MemberID != memberID {
		return nil, nil, ErrUnauthorized
	}
	return payment, order, nil
}

// restorePoints credits a compensating RESTORE. A failed restore is logged
// for manual reconciliation, never escalated: the operation it compensates
// has already reached its outcome.
func (s *PaymentService) restorePoints(ctx context.Context, memberID string, amount int64, orderNumber string) {
	if amount <= 0 {
		return
	}
	if _, err := s.Points.Restore(ctx, memberID, amount, orderNumber); err != nil {
		slog.Error("point restore failed, manual reconciliation required",
			"memberId", memberID, "amount", amount, "orderNumber", orderNumber, "err", err)
		return
	}
	slog.Info("points restored", "memberId", memberID, "amount", amount, "orderNumber", orderNumber)
}

func (s *PaymentService) markFailed(ctx context.Context, payment *models.Payment) {
	failed := payment.Fail()
	if err := s.Payments.UpdatePayment(ctx, &failed, models.PaymentPending); err != nil {
		slog.Error("marking payment FAILED failed", "paymentId", payment.ID, "err", err)
	}
}
