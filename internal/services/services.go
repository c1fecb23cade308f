package services

import (
	"context"
	"errors"
	"fmt"

	"vibepay/internal/models"
)

var (
	ErrUnauthorized          = errors.New("unauthorized")
	ErrOrderNotFound         = errors.New("order not found")
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrPointNotFound         = errors.New("point balance not found")
	ErrInsufficientBalance   = errors.New("insufficient point balance")
	ErrOrderAlreadyCancelled = errors.New("order already cancelled")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrDuplicateEmail        = errors.New("email already in use")
)

// ValidationError rejects a malformed request before any side effect.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ProcessError is an orchestration failure: a gateway decline, a failed
// ledger debit, or an unexpected fault mid-flight. Compensation has already
// run by the time one is returned. Code carries the gateway's own error code
// when it reported one.
type ProcessError struct {
	Code    string
	Message string
}

func (e *ProcessError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

func processf(code, format string, args ...any) error {
	return &ProcessError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Persistence contracts consumed by the orchestrators. The pgx store
// satisfies all four; tests substitute in-memory fakes.

type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	ListOrdersByMember(ctx context.Context, memberID string, offset, limit int) ([]*models.Order, error)
	CountOrdersByMember(ctx context.Context, memberID string) (int64, error)
	TransitionOrder(ctx context.Context, orderID string, from, to models.OrderStatus) error
}

type PaymentStore interface {
	CreatePayment(ctx context.Context, p *models.Payment) error
	GetPayment(ctx context.Context, paymentID string) (*models.Payment, error)
	GetApprovedPaymentByOrder(ctx context.Context, orderID string) (*models.Payment, error)
	ListPaymentsByMember(ctx context.Context, memberID string, offset, limit int) ([]*models.Payment, error)
	UpdatePayment(ctx context.Context, p *models.Payment, from models.PaymentStatus) error
}

type LedgerStore interface {
	GetBalance(ctx context.Context, memberID string) (*models.Point, error)
	CreateInitialBalance(ctx context.Context, memberID string, amount int64) error
	Debit(ctx context.Context, memberID string, amount int64, orderNumber, description string) (*models.Point, error)
	Credit(ctx context.Context, memberID string, amount int64, txType models.TransactionType, orderNumber, description string) (*models.Point, error)
	PointHistory(ctx context.Context, memberID string, offset, limit int) ([]*models.PointHistory, error)
}

type MemberStore interface {
	CreateMember(ctx context.Context, m *models.Member) error
	GetMemberByEmail(ctx context.Context, email string) (*models.Member, error)
	GetMemberByID(ctx context.Context, memberID string) (*models.Member, error)
}

func pageOffset(page, size int) (int, int) {
	if size <= 0 {
		size = 20
	}
	if page < 0 {
		page = 0
	}
	return page * size, size
}
