package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"vibepay/internal/models"
)

// Result is the canonical outcome of a gateway call. Adapters always return a
// Result; transport faults are mapped to ErrorCode "SYSTEM_ERROR" and never
// escape as raw errors.
type Result struct {
	Success    bool
	ErrorCode  string
	Message    string
	GatewayTID string
	AuthCode   string
	CardNumber string
	CardIssuer string
	// Amount approved, or for cancels the amount the gateway actually
	// reversed (may differ from the requested amount under partial cancel).
	Amount int64
}

func Approved(tid, authCode, cardNumber, cardIssuer string, amount int64) Result {
	return Result{
		Success:    true,
		Message:    "payment approved",
		GatewayTID: tid,
		AuthCode:   authCode,
		CardNumber: cardNumber,
		CardIssuer: cardIssuer,
		Amount:     amount,
	}
}

func Cancelled(tid string, cancelledAmount int64) Result {
	return Result{
		Success:    true,
		Message:    "payment cancelled",
		GatewayTID: tid,
		Amount:     cancelledAmount,
	}
}

func Failure(code, message string) Result {
	return Result{ErrorCode: code, Message: message}
}

func failureWithTID(code, message, tid string) Result {
	return Result{ErrorCode: code, Message: message, GatewayTID: tid}
}

type ApproveRequest struct {
	OrderNumber string
	GatewayTID  string
	TotalAmount int64
	CardAmount  int64
	Currency    string
}

type CancelRequest struct {
	GatewayTID string
	// CancelAmount of 0 means a full cancel of OriginalAmount.
	CancelAmount   int64
	OriginalAmount int64
	Reason         string
}

func (r CancelRequest) amount() int64 {
	if r.CancelAmount > 0 {
		return r.CancelAmount
	}
	return r.OriginalAmount
}

// Adapter hides one processor's wire protocol behind the canonical
// approve/cancel/network-cancel contract.
type Adapter interface {
	Type() models.GatewayType
	Approve(ctx context.Context, req ApproveRequest) Result
	Cancel(ctx context.Context, req CancelRequest) Result
	NetworkCancel(ctx context.Context, gatewayTID string) Result
}

// Registry is the closed, enum-keyed adapter set, built once at startup.
type Registry struct {
	adapters map[models.GatewayType]Adapter
}

func NewRegistry(adapters ...Adapter) (*Registry, error) {
	m := make(map[models.GatewayType]Adapter, len(adapters))
	for _, a := range adapters {
		if _, dup := m[a.Type()]; dup {
			return nil, fmt.Errorf("duplicate gateway adapter: %s", a.Type())
		}
		m[a.Type()] = a
	}
	return &Registry{adapters: m}, nil
}

func (r *Registry) Resolve(t models.GatewayType) (Adapter, error) {
	a, ok := r.adapters[t]
	if !ok {
		return nil, fmt.Errorf("unsupported gateway: %s", t)
	}
	return a, nil
}

// approveCard runs the checks and the void step shared by every card gateway:
// amounts are validated before any network I/O, and a failed approval that
// still produced a transaction id is immediately network-cancelled so no
// partial authorization can settle.
func approveCard(ctx context.Context, req ApproveRequest, call func(context.Context, ApproveRequest) Result, void func(context.Context, string) Result) Result {
	if req.TotalAmount <= 0 {
		return Failure("INVALID_AMOUNT", "payment amount must be positive")
	}
	if req.CardAmount <= 0 {
		return Failure("INVALID_CARD_AMOUNT", "card amount must be positive")
	}

	res := call(ctx, req)
	if !res.Success && res.GatewayTID != "" {
		slog.Warn("approval failed, issuing network cancel",
			"orderNumber", req.OrderNumber, "gatewayTid", res.GatewayTID)
		if vc := void(ctx, res.GatewayTID); !vc.Success {
			// Best effort: the decline is still the answer to the caller.
			slog.Error("network cancel failed",
				"gatewayTid", res.GatewayTID, "code", vc.ErrorCode, "message", vc.Message)
		}
	}
	return res
}

func cancelCard(ctx context.Context, req CancelRequest, call func(context.Context, CancelRequest) Result) Result {
	if req.CancelAmount < 0 {
		return Failure("INVALID_CANCEL_AMOUNT", "cancel amount must not be negative")
	}
	return call(ctx, req)
}
