package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"vibepay/internal/auth"
	"vibepay/internal/gateway"
	"vibepay/internal/models"
	"vibepay/internal/services"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Members  *services.MemberService
	Points   *services.PointService
	Orders   *services.OrderService
	Payments *services.PaymentService
	Tokens   *auth.TokenManager
	Inicis   *gateway.Inicis
}

func NewHandler(members *services.MemberService, points *services.PointService, orders *services.OrderService, payments *services.PaymentService, tokens *auth.TokenManager, inicis *gateway.Inicis) *Handler {
	return &Handler{
		Members:  members,
		Points:   points,
		Orders:   orders,
		Payments: payments,
		Tokens:   tokens,
		Inicis:   inicis,
	}
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var ve *services.ValidationError
	var pe *services.ProcessError
	switch {
	case errors.Is(err, services.ErrUnauthorized), errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrPaymentNotFound),
		errors.Is(err, services.ErrPointNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrOrderAlreadyCancelled),
		errors.Is(err, services.ErrInsufficientBalance),
		errors.As(err, &ve),
		errors.As(err, &pe):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// --- auth ---

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type memberResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	member, err := h.Members.Signup(r.Context(), services.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, memberResponse{ID: member.ID, Email: member.Email, Name: member.Name})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	member, err := h.Members.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	token, err := h.Tokens.Issue(member.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "token issue failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	member, err := h.Members.GetMember(r.Context(), memberID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, memberResponse{ID: member.ID, Email: member.Email, Name: member.Name})
}

// --- points ---

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	point, err := h.Points.GetBalance(r.Context(), memberID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"balance":   point.Balance,
		"updatedAt": point.UpdatedAt.Format(time.RFC3339),
	})
}

type pointHistoryResponse struct {
	TransactionType string `json:"transactionType"`
	Amount          int64  `json:"amount"`
	BalanceBefore   int64  `json:"balanceBefore"`
	BalanceAfter    int64  `json:"balanceAfter"`
	OrderNumber     string `json:"orderNumber,omitempty"`
	Description     string `json:"description,omitempty"`
	CreatedAt       string `json:"createdAt"`
}

func (h *Handler) PointHistory(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)
	entries, err := h.Points.GetHistory(r.Context(), memberID(r), page, size)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]pointHistoryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, pointHistoryResponse{
			TransactionType: string(e.TransactionType),
			Amount:          e.Amount,
			BalanceBefore:   e.BalanceBefore,
			BalanceAfter:    e.BalanceAfter,
			OrderNumber:     e.OrderNumber,
			Description:     e.Description,
			CreatedAt:       e.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// --- orders ---

type createOrderRequest struct {
	ProductName   string `json:"productName"`
	UnitPrice     int64  `json:"unitPrice"`
	Quantity      int64  `json:"quantity"`
	PaymentMethod string `json:"paymentMethod"`
	PointAmount   int64  `json:"pointAmount"`
	CardAmount    int64  `json:"cardAmount"`
	GatewayType   string `json:"gatewayType,omitempty"`
	GatewayTID    string `json:"gatewayTid,omitempty"`
	Currency      string `json:"currency,omitempty"`
}

type orderResponse struct {
	ID          string `json:"id"`
	OrderNumber string `json:"orderNumber"`
	ProductName string `json:"productName"`
	UnitPrice   int64  `json:"unitPrice"`
	Quantity    int64  `json:"quantity"`
	TotalAmount int64  `json:"totalAmount"`
	PointAmount int64  `json:"pointAmount"`
	CardAmount  int64  `json:"cardAmount"`
	Status      string `json:"status"`
	CreatedAt   string `json:"createdAt"`
}

func toOrderResponse(o *models.Order) orderResponse {
	return orderResponse{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		ProductName: o.ProductName,
		UnitPrice:   o.UnitPrice,
		Quantity:    o.Quantity,
		TotalAmount: o.TotalAmount,
		PointAmount: o.PointAmount,
		CardAmount:  o.CardAmount,
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	order, err := h.Orders.CreateOrder(r.Context(), memberID(r), services.CreateOrderInput{
		ProductName:   req.ProductName,
		UnitPrice:     req.UnitPrice,
		Quantity:      req.Quantity,
		PaymentMethod: models.PaymentMethod(req.PaymentMethod),
		PointAmount:   req.PointAmount,
		CardAmount:    req.CardAmount,
		GatewayType:   models.GatewayType(req.GatewayType),
		GatewayTID:    req.GatewayTID,
		Currency:      req.Currency,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.Orders.GetOrder(r.Context(), memberID(r), chi.URLParam(r, "orderId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)
	orders, total, err := h.Orders.ListOrders(r.Context(), memberID(r), page, size)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"content":       out,
		"page":          page,
		"size":          size,
		"totalElements": total,
	})
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.Orders.CancelOrder(r.Context(), memberID(r), chi.URLParam(r, "orderId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

// --- payments ---

type paymentResponse struct {
	ID            string `json:"id"`
	OrderID       string `json:"orderId"`
	PaymentMethod string `json:"paymentMethod"`
	GatewayType   string `json:"gatewayType,omitempty"`
	TotalAmount   int64  `json:"totalAmount"`
	CardAmount    int64  `json:"cardAmount"`
	PointAmount   int64  `json:"pointAmount"`
	GatewayTID    string `json:"gatewayTid,omitempty"`
	AuthCode      string `json:"authCode,omitempty"`
	CardNumber    string `json:"cardNumber,omitempty"`
	CardIssuer    string `json:"cardIssuer,omitempty"`
	Status        string `json:"status"`
	CreatedAt     string `json:"createdAt"`
}

func toPaymentResponse(p *models.Payment) paymentResponse {
	return paymentResponse{
		ID:            p.ID,
		OrderID:       p.OrderID,
		PaymentMethod: string(p.PaymentMethod),
		GatewayType:   string(p.GatewayType),
		TotalAmount:   p.TotalAmount,
		CardAmount:    p.CardAmount,
		PointAmount:   p.PointAmount,
		GatewayTID:    p.GatewayTID,
		AuthCode:      p.AuthCode,
		CardNumber:    p.CardNumber,
		CardIssuer:    p.CardIssuer,
		Status:        string(p.Status),
		CreatedAt:     p.CreatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	payment, err := h.Payments.GetPaymentDetail(r.Context(), memberID(r), chi.URLParam(r, "paymentId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(payment))
}

func (h *Handler) PaymentHistory(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)
	payments, err := h.Payments.GetPaymentHistory(r.Context(), memberID(r), page, size)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

type cancelPaymentRequest struct {
	Reason       string `json:"reason"`
	CancelAmount int64  `json:"cancelAmount,omitempty"`
}

func (h *Handler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	var req cancelPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	payment, err := h.Payments.CancelPayment(r.Context(), memberID(r), chi.URLParam(r, "paymentId"), req.Reason, req.CancelAmount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(payment))
}

// --- gateway auth params ---

type authParamsRequest struct {
	Price    int64  `json:"price"`
	GoodName string `json:"goodName"`
}

func (h *Handler) AuthParams(w http.ResponseWriter, r *http.Request) {
	var req authParamsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Price <= 0 {
		writeError(w, http.StatusBadRequest, "price must be positive")
		return
	}

	member, err := h.Members.GetMember(r.Context(), memberID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	params := h.Inicis.AuthParams(req.Price, req.GoodName, member.Name, member.Email, "")
	writeJSON(w, http.StatusOK, params)
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if size <= 0 {
		size = 20
	}
	if page < 0 {
		page = 0
	}
	return page, size
}
