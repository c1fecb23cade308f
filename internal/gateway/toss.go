package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"vibepay/internal/models"
)

// Toss speaks the Toss Payments REST API: JSON bodies with HTTP Basic
// authentication on the merchant secret key.
type Toss struct {
	apiURL    string
	secretKey string
	client    *http.Client
}

func NewToss(apiURL, secretKey string) *Toss {
	return &Toss{
		apiURL:    strings.TrimRight(apiURL, "/"),
		secretKey: secretKey,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *Toss) Type() models.GatewayType { return models.GatewayToss }

type tossResponse struct {
	Status      string `json:"status"`
	PaymentKey  string `json:"paymentKey"`
	ApprovedAt  string `json:"approvedAt"`
	TotalAmount int64  `json:"totalAmount"`
	Code        string `json:"code"`
	Message     string `json:"message"`
	Card        *struct {
		Number     string `json:"number"`
		IssuerCode string `json:"issuerCode"`
	} `json:"card"`
	Cancels []struct {
		CancelAmount int64 `json:"cancelAmount"`
	} `json:"cancels"`
}

func (g *Toss) Approve(ctx context.Context, req ApproveRequest) Result {
	return approveCard(ctx, req, g.callApprove, g.NetworkCancel)
}

func (g *Toss) Cancel(ctx context.Context, req CancelRequest) Result {
	return cancelCard(ctx, req, g.callCancel)
}

func (g *Toss) callApprove(ctx context.Context, req ApproveRequest) Result {
	body := map[string]any{
		"paymentKey": req.GatewayTID,
		"orderId":    req.OrderNumber,
		"amount":     req.CardAmount,
	}

	resp, err := g.post(ctx, g.apiURL+"/v1/payments/confirm", body)
	if err != nil {
		slog.Error("toss approval request failed", "orderNumber", req.OrderNumber, "err", err)
		return Failure("SYSTEM_ERROR", "gateway communication failed")
	}

	if resp.Status != "DONE" {
		return failureWithTID(resp.Code, resp.Message, resp.PaymentKey)
	}

	var cardNumber, issuer string
	if resp.Card != nil {
		cardNumber = resp.Card.Number
		issuer = resp.Card.IssuerCode
	}
	return Approved(resp.PaymentKey, resp.ApprovedAt, cardNumber, issuer, resp.TotalAmount)
}

func (g *Toss) callCancel(ctx context.Context, req CancelRequest) Result {
	body := map[string]any{"cancelReason": req.Reason}
	if req.CancelAmount > 0 {
		body["cancelAmount"] = req.CancelAmount
	}

	resp, err := g.post(ctx, g.apiURL+"/v1/payments/"+req.GatewayTID+"/cancel", body)
	if err != nil {
		slog.Error("toss cancel request failed", "gatewayTid", req.GatewayTID, "err", err)
		return Failure("SYSTEM_ERROR", "gateway communication failed")
	}

	if resp.Status != "CANCELED" && resp.Status != "PARTIAL_CANCELED" {
		return Failure(resp.Code, resp.Message)
	}

	// The gateway reports what it actually reversed in the cancels list.
	cancelled := req.amount()
	if n := len(resp.Cancels); n > 0 {
		cancelled = resp.Cancels[n-1].CancelAmount
	}
	return Cancelled(resp.PaymentKey, cancelled)
}

func (g *Toss) NetworkCancel(ctx context.Context, gatewayTID string) Result {
	return g.callCancel(ctx, CancelRequest{
		GatewayTID: gatewayTID,
		Reason:     "automatic void after failed approval",
	})
}

func (g *Toss) post(ctx context.Context, endpoint string, body map[string]any) (*tossResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	auth := base64.StdEncoding.EncodeToString([]byte(g.secretKey + ":"))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Error responses carry code/message in the same JSON shape.
	var out tossResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
