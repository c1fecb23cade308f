package services

import (
	"context"
	"errors"
	"testing"

	"vibepay/internal/gateway"
	"vibepay/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApprovePayment_PointOnly(t *testing.T) {
	f := newFixture(t)
	f.ledger.balances["m1"] = 50000
	order := f.seedOrder("m1", 20000, 20000, 0, models.OrderPending)

	payment, err := f.paymentSvc.ApprovePayment(context.Background(), "m1", ApproveInput{
		OrderID:       order.ID,
		PaymentMethod: models.MethodPoint,
		TotalAmount:   20000,
		PointAmount:   20000,
	})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentApproved, payment.Status)
	assert.Equal(t, int64(30000), f.ledger.balances["m1"])

	got, err := f.orders.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, got.Status)

	// No gateway involvement for a pure point payment.
	assert.Zero(t, f.adapter.approveCalls)
}

func TestApprovePayment_MixedSuccess(t *testing.T) {
	f := newFixture(t)
	f.ledger.balances["m1"] = 50000
	order := f.seedOrder("m1", 30000, 10000, 20000, models.OrderPending)

	payment, err := f.paymentSvc.ApprovePayment(context.Background(), "m1", ApproveInput{
		OrderID:       order.ID,
		PaymentMethod: models.MethodMixed,
		GatewayType:   models.GatewayInicis,
		TotalAmount:   30000,
		CardAmount:    20000,
		PointAmount:   10000,
		GatewayTID:    "auth-tid",
	})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentApproved, payment.Status)
	assert.Equal(t, "tid-1", payment.GatewayTID)
	assert.Equal(t, "123456******3456", payment.CardNumber)
	assert.Equal(t, int64(40000), f.ledger.balances["m1"])

	got, err := f.orders.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, got.Status)
}

func TestApprovePayment_MixedDeclineRestoresLedger(t *testing.T) {
	f := newFixture(t)
	f.ledger.balances["m1"] = 50000
	f.adapter.approveResult = gateway.Failure("05", "card declined")
	order := f.seedOrder("m1", 30000, 10000, 20000, models.OrderPending)

	_, err := f.paymentSvc.ApprovePayment(context.Background(), "m1", ApproveInput{
		OrderID:       order.ID,
		PaymentMethod: models.MethodMixed,
		GatewayType:   models.GatewayInicis,
		TotalAmount:   30000,
		CardAmount:    20000,
		PointAmount:   10000,
		GatewayTID:    "auth-tid",
	})

	var pe *ProcessError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "05", pe.Code)

	// Exact restore: the balance equals its pre-debit value and the
	// compensation is visible as a RESTORE entry.
	assert.Equal(t, int64(50000), f.ledger.balances["m1"])
	assert.Equal(t, models.TxRestore, f.ledger.lastEntry("m1").txType)
	assert.Equal(t, int64(10000), f.ledger.lastEntry("m1").amount)

	got, err := f.orders.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, got.Status)

	for _, p := range f.payments.payments {
		assert.Equal(t, models.PaymentFailed, p.Status)
	}
}

func TestApprovePayment_InsufficientBalanceSkipsGateway(t *testing.T) {
	f := newFixture(t)
	f.ledger.balances["m1"] = 5000
	order := f.seedOrder("m1", 30000, 10000, 20000, models.OrderPending)

	_, err := f.paymentSvc.ApprovePayment(context.Background(), "m1", ApproveInput{
		OrderID:       order.ID,
		PaymentMethod: models.MethodMixed,
		GatewayType:   models.GatewayInicis,
		TotalAmount:   30000,
		CardAmount:    20000,
		PointAmount:   10000,
		GatewayTID:    "auth-tid",
	})

	var pe *ProcessError
	require.ErrorAs(t, err, &pe)
	// The debit happens before the gateway call, so a failed debit never
	// touches the gateway.
	assert.Zero(t, f.adapter.approveCalls)
	assert.Equal(t, int64(5000), f.ledger.balances["m1"])

	got, _ := f.orders.GetOrder(context.Background(), order.ID)
	assert.Equal(t, models.OrderPending, got.Status)
}

func TestApprovePayment_OrderChecks(t *testing.T) {
	f := newFixture(t)
	f.ledger.balances["m1"] = 50000

	t.Run("missing order", func(t *testing.T) {
		_, err := f.paymentSvc.ApprovePayment(context.Background(), "m1", ApproveInput{OrderID: "nope"})
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("foreign order", func(t *testing.T) {
		order := f.seedOrder("other", 1000, 1000, 0, models.OrderPending)
		_, err := f.paymentSvc.ApprovePayment(context.Background(), "m1", ApproveInput{OrderID: order.ID})
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("order not pending", func(t *testing.T) {
		order := f.seedOrder("m1", 1000, 1000, 0, models.OrderPaid)
		_, err := f.paymentSvc.ApprovePayment(context.Background(), "m1", ApproveInput{OrderID: order.ID})
		var pe *ProcessError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "ORDER_NOT_PENDING", pe.Code)
	})
}

func approvedMixedPayment(t *testing.T, f *fixture) (*models.Order, *models.Payment) {
	t.Helper()
	f.ledger.balances["m1"] = 50000
	order := f.seedOrder("m1", 35000, 15000, 20000, models.OrderPending)

	payment, err := f.paymentSvc.ApprovePayment(context.Background(), "m1", ApproveInput{
		OrderID:       order.ID,
		PaymentMethod: models.MethodMixed,
		GatewayType:   models.GatewayInicis,
		TotalAmount:   35000,
		CardAmount:    20000,
		PointAmount:   15000,
		GatewayTID:    "auth-tid",
	})
	require.NoError(t, err)
	return order, payment
}

func TestCancelPayment_RestoresPointsAndCancelsOrder(t *testing.T) {
	f := newFixture(t)
	order, payment := approvedMixedPayment(t, f)
	balanceBeforeCancel := f.ledger.balances["m1"]

	cancelled, err := f.paymentSvc.CancelPayment(context.Background(), "m1", payment.ID, "customer request", 0)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentCancelled, cancelled.Status)
	assert.Equal(t, 1, f.adapter.cancelCalls)
	// Full cancel defaults to the card component, not the mixed total.
	assert.Equal(t, int64(20000), f.adapter.lastCancel.OriginalAmount)

	got, _ := f.orders.GetOrder(context.Background(), order.ID)
	assert.Equal(t, models.OrderCancelled, got.Status)

	assert.Equal(t, balanceBeforeCancel+15000, f.ledger.balances["m1"])
	assert.Equal(t, models.TxRestore, f.ledger.lastEntry("m1").txType)
	assert.Equal(t, int64(15000), f.ledger.lastEntry("m1").amount)
}

func TestCancelPayment_GatewayDeclineLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)
	order, payment := approvedMixedPayment(t, f)
	f.adapter.cancelResult = gateway.Failure("52", "cancel window closed")
	balance := f.ledger.balances["m1"]

	_, err := f.paymentSvc.CancelPayment(context.Background(), "m1", payment.ID, "customer request", 0)

	var pe *ProcessError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "52", pe.Code)

	got, _ := f.payments.GetPayment(context.Background(), payment.ID)
	assert.Equal(t, models.PaymentApproved, got.Status)

	o, _ := f.orders.GetOrder(context.Background(), order.ID)
	assert.Equal(t, models.OrderPaid, o.Status)
	assert.Equal(t, balance, f.ledger.balances["m1"])
}

func TestCancelPayment_Rejections(t *testing.T) {
	f := newFixture(t)
	_, payment := approvedMixedPayment(t, f)

	t.Run("not found", func(t *testing.T) {
		_, err := f.paymentSvc.CancelPayment(context.Background(), "m1", "nope", "r", 0)
		assert.ErrorIs(t, err, ErrPaymentNotFound)
	})

	t.Run("foreign member", func(t *testing.T) {
		_, err := f.paymentSvc.CancelPayment(context.Background(), "m2", payment.ID, "r", 0)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("already cancelled", func(t *testing.T) {
		_, err := f.paymentSvc.CancelPayment(context.Background(), "m1", payment.ID, "r", 0)
		require.NoError(t, err)

		cancelsBefore := f.adapter.cancelCalls
		_, err = f.paymentSvc.CancelPayment(context.Background(), "m1", payment.ID, "r", 0)
		var pe *ProcessError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "NOT_CANCELLABLE", pe.Code)
		// No second compensation.
		assert.Equal(t, cancelsBefore, f.adapter.cancelCalls)
	})
}

func TestCancelPayment_PointOnlySkipsGateway(t *testing.T) {
	f := newFixture(t)
	f.ledger.balances["m1"] = 50000
	order := f.seedOrder("m1", 20000, 20000, 0, models.OrderPending)

	payment, err := f.paymentSvc.ApprovePayment(context.Background(), "m1", ApproveInput{
		OrderID:       order.ID,
		PaymentMethod: models.MethodPoint,
		TotalAmount:   20000,
		PointAmount:   20000,
	})
	require.NoError(t, err)

	// The payment recorded no gateway type; cancelling it must not touch
	// the registry at all.
	cancelled, err := f.paymentSvc.CancelPayment(context.Background(), "m1", payment.ID, "customer request", 0)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentCancelled, cancelled.Status)
	assert.Zero(t, f.adapter.cancelCalls)

	got, _ := f.orders.GetOrder(context.Background(), order.ID)
	assert.Equal(t, models.OrderCancelled, got.Status)

	assert.Equal(t, int64(50000), f.ledger.balances["m1"])
	assert.Equal(t, models.TxRestore, f.ledger.lastEntry("m1").txType)
}

func TestGetPaymentHistory_ScopedToMember(t *testing.T) {
	f := newFixture(t)
	_, own := approvedMixedPayment(t, f)

	f.ledger.balances["m2"] = 50000
	foreignOrder := f.seedOrder("m2", 10000, 10000, 0, models.OrderPending)
	_, err := f.paymentSvc.ApprovePayment(context.Background(), "m2", ApproveInput{
		OrderID:       foreignOrder.ID,
		PaymentMethod: models.MethodPoint,
		TotalAmount:   10000,
		PointAmount:   10000,
	})
	require.NoError(t, err)

	history, err := f.paymentSvc.GetPaymentHistory(context.Background(), "m1", 0, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, own.ID, history[0].ID)
}

func TestGetPaymentDetail_Authorization(t *testing.T) {
	f := newFixture(t)
	_, payment := approvedMixedPayment(t, f)

	got, err := f.paymentSvc.GetPaymentDetail(context.Background(), "m1", payment.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, got.ID)

	_, err = f.paymentSvc.GetPaymentDetail(context.Background(), "intruder", payment.ID)
	assert.True(t, errors.Is(err, ErrUnauthorized))
}
