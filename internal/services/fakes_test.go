package services

import (
	"context"
	"time"

	"vibepay/internal/gateway"
	"vibepay/internal/models"
	"vibepay/internal/store"

	"github.com/google/uuid"
)

type fakeOrderStore struct {
	orders map[string]*models.Order
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{orders: map[string]*models.Order{}}
}

func (f *fakeOrderStore) CreateOrder(_ context.Context, o *models.Order) error {
	cp := *o
	f.orders[o.ID] = &cp
	return nil
}

func (f *fakeOrderStore) GetOrder(_ context.Context, id string) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderStore) ListOrdersByMember(_ context.Context, memberID string, offset, limit int) ([]*models.Order, error) {
	var out []*models.Order
	for _, o := range f.orders {
		if o.MemberID == memberID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeOrderStore) CountOrdersByMember(_ context.Context, memberID string) (int64, error) {
	var n int64
	for _, o := range f.orders {
		if o.MemberID == memberID {
			n++
		}
	}
	return n, nil
}

func (f *fakeOrderStore) TransitionOrder(_ context.Context, id string, from, to models.OrderStatus) error {
	o, ok := f.orders[id]
	if !ok {
		return store.ErrNotFound
	}
	if o.Status != from {
		return store.ErrConflict
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	return nil
}

type fakePaymentStore struct {
	payments map[string]*models.Payment
	orders   *fakeOrderStore
}

func newFakePaymentStore(orders *fakeOrderStore) *fakePaymentStore {
	return &fakePaymentStore{payments: map[string]*models.Payment{}, orders: orders}
}

func (f *fakePaymentStore) CreatePayment(_ context.Context, p *models.Payment) error {
	cp := *p
	f.payments[p.ID] = &cp
	return nil
}

func (f *fakePaymentStore) GetPayment(_ context.Context, id string) (*models.Payment, error) {
	p, ok := f.payments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePaymentStore) GetApprovedPaymentByOrder(_ context.Context, orderID string) (*models.Payment, error) {
	for _, p := range f.payments {
		if p.OrderID == orderID && p.Status == models.PaymentApproved {
			cp := *p
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakePaymentStore) ListPaymentsByMember(_ context.Context, memberID string, offset, limit int) ([]*models.Payment, error) {
	var out []*models.Payment
	for _, p := range f.payments {
		o, ok := f.orders.orders[p.OrderID]
		if !ok || o.MemberID != memberID {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakePaymentStore) UpdatePayment(_ context.Context, p *models.Payment, from models.PaymentStatus) error {
	cur, ok := f.payments[p.ID]
	if !ok {
		return store.ErrNotFound
	}
	if cur.Status != from {
		return store.ErrConflict
	}
	cp := *p
	f.payments[p.ID] = &cp
	return nil
}

type ledgerEntry struct {
	txType models.TransactionType
	amount int64
}

type fakeLedger struct {
	balances map[string]int64
	history  map[string][]ledgerEntry
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{balances: map[string]int64{}, history: map[string][]ledgerEntry{}}
}

func (f *fakeLedger) GetBalance(_ context.Context, memberID string) (*models.Point, error) {
	b, ok := f.balances[memberID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &models.Point{MemberID: memberID, Balance: b}, nil
}

func (f *fakeLedger) CreateInitialBalance(_ context.Context, memberID string, amount int64) error {
	f.balances[memberID] = amount
	f.history[memberID] = append(f.history[memberID], ledgerEntry{models.TxEarn, amount})
	return nil
}

func (f *fakeLedger) Debit(_ context.Context, memberID string, amount int64, orderNumber, description string) (*models.Point, error) {
	b, ok := f.balances[memberID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if b < amount {
		return nil, store.ErrInsufficientBalance
	}
	f.balances[memberID] = b - amount
	f.history[memberID] = append(f.history[memberID], ledgerEntry{models.TxUse, amount})
	return &models.Point{MemberID: memberID, Balance: b - amount}, nil
}

func (f *fakeLedger) Credit(_ context.Context, memberID string, amount int64, txType models.TransactionType, orderNumber, description string) (*models.Point, error) {
	b, ok := f.balances[memberID]
	if !ok {
		return nil, store.ErrNotFound
	}
	f.balances[memberID] = b + amount
	f.history[memberID] = append(f.history[memberID], ledgerEntry{txType, amount})
	return &models.Point{MemberID: memberID, Balance: b + amount}, nil
}

func (f *fakeLedger) PointHistory(_ context.Context, memberID string, offset, limit int) ([]*models.PointHistory, error) {
	var out []*models.PointHistory
	for _, e := range f.history[memberID] {
		out = append(out, &models.PointHistory{MemberID: memberID, TransactionType: e.txType, Amount: e.amount})
	}
	return out, nil
}

func (f *fakeLedger) lastEntry(memberID string) ledgerEntry {
	h := f.history[memberID]
	if len(h) == 0 {
		return ledgerEntry{}
	}
	return h[len(h)-1]
}

type fakeMemberStore struct {
	members map[string]*models.Member
}

func newFakeMemberStore() *fakeMemberStore {
	return &fakeMemberStore{members: map[string]*models.Member{}}
}

func (f *fakeMemberStore) CreateMember(_ context.Context, m *models.Member) error {
	for _, cur := range f.members {
		if cur.Email == m.Email {
			return store.ErrDuplicate
		}
	}
	cp := *m
	f.members[m.ID] = &cp
	return nil
}

func (f *fakeMemberStore) GetMemberByEmail(_ context.Context, email string) (*models.Member, error) {
	for _, m := range f.members {
		if m.Email == email {
			cp := *m
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeMemberStore) GetMemberByID(_ context.Context, id string) (*models.Member, error) {
	m, ok := f.members[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

// fakeAdapter scripts gateway outcomes and records what was called.
type fakeAdapter struct {
	gatewayType    models.GatewayType
	approveResult  gateway.Result
	cancelResult   gateway.Result
	approveCalls   int
	cancelCalls    int
	networkCancels int
	lastCancel     gateway.CancelRequest
}

func (f *fakeAdapter) Type() models.GatewayType { return f.gatewayType }

func (f *fakeAdapter) Approve(_ context.Context, req gateway.ApproveRequest) gateway.Result {
	f.approveCalls++
	return f.approveResult
}

func (f *fakeAdapter) Cancel(_ context.Context, req gateway.CancelRequest) gateway.Result {
	f.cancelCalls++
	f.lastCancel = req
	return f.cancelResult
}

func (f *fakeAdapter) NetworkCancel(_ context.Context, tid string) gateway.Result {
	f.networkCancels++
	return gateway.Result{Success: true, GatewayTID: tid}
}

type fixture struct {
	orders   *fakeOrderStore
	payments *fakePaymentStore
	ledger   *fakeLedger
	members  *fakeMemberStore
	adapter  *fakeAdapter

	pointSvc   *PointService
	paymentSvc *PaymentService
	orderSvc   *OrderService
	memberSvc  *MemberService
}

func newFixture(t interface{ Fatalf(string, ...any) }) *fixture {
	orders := newFakeOrderStore()
	f := &fixture{
		orders:   orders,
		payments: newFakePaymentStore(orders),
		ledger:   newFakeLedger(),
		members:  newFakeMemberStore(),
		adapter: &fakeAdapter{
			gatewayType:   models.GatewayInicis,
			approveResult: gateway.Approved("tid-1", "auth-1", "1234567890123456", "TESTCARD", 0),
			cancelResult:  gateway.Cancelled("tid-1", 0),
		},
	}

	registry, err := gateway.NewRegistry(f.adapter)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}

	f.pointSvc = &PointService{Ledger: f.ledger}
	f.paymentSvc = &PaymentService{
		Payments: f.payments,
		Orders:   f.orders,
		Points:   f.pointSvc,
		Registry: registry,
	}
	f.orderSvc = &OrderService{
		Orders:         f.orders,
		Payments:       f.paymentSvc,
		Points:         f.pointSvc,
		MinCardAmount:  100,
		DefaultGateway: models.GatewayInicis,
	}
	f.memberSvc = &MemberService{
		Members:        f.members,
		Ledger:         f.ledger,
		InitialBalance: 100000,
	}
	return f
}

func (f *fixture) seedOrder(memberID string, total, point, card int64, status models.OrderStatus) *models.Order {
	now := time.Now().UTC()
	o := &models.Order{
		ID:          uuid.NewString(),
		MemberID:    memberID,
		OrderNumber: models.NewOrderNumber(now),
		ProductName: "test product",
		UnitPrice:   total,
		Quantity:    1,
		TotalAmount: total,
		PointAmount: point,
		CardAmount:  card,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.orders.orders[o.ID] = o
	return o
}
