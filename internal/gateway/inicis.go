package gateway

import (
	"context"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"vibepay/internal/models"
)

const (
	inicisApprovalPath = "/api/v1/formpay"
	inicisRefundPath   = "/api/v1/refund"
)

// Inicis speaks the KG Inicis standard pay API: form-encoded POSTs signed
// with a SHA-512 hash over the request fields, querystring-encoded responses
// where resultcode "00" means success.
type Inicis struct {
	apiURL  string
	mid     string
	signKey string
	client  *http.Client
}

func NewInicis(apiURL, mid, signKey string) *Inicis {
	return &Inicis{
		apiURL:  strings.TrimRight(apiURL, "/"),
		mid:     mid,
		signKey: signKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *Inicis) Type() models.GatewayType { return models.GatewayInicis }

func (g *Inicis) Approve(ctx context.Context, req ApproveRequest) Result {
	return approveCard(ctx, req, g.callApprove, g.NetworkCancel)
}

func (g *Inicis) Cancel(ctx context.Context, req CancelRequest) Result {
	return cancelCard(ctx, req, g.callCancel)
}

func (g *Inicis) callApprove(ctx context.Context, req ApproveRequest) Result {
	params := url.Values{}
	params.Set("type", "pay")
	params.Set("paymethod", "Card")
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("clientip", "127.0.0.1")
	params.Set("mid", g.mid)
	params.Set("tid", req.GatewayTID)
	params.Set("oid", req.OrderNumber)
	params.Set("price", strconv.FormatInt(req.CardAmount, 10))
	params.Set("currency", req.Currency)
	params.Set("hashdata", g.payHash(params))

	resp, err := g.post(ctx, g.apiURL+inicisApprovalPath, params)
	if err != nil {
		slog.Error("inicis approval request failed", "orderNumber", req.OrderNumber, "err", err)
		return Failure("SYSTEM_ERROR", "gateway communication failed")
	}

	if resp.Get("resultcode") != "00" {
		// A tid in a declined response means a partial authorization may
		// exist; the shared wrapper voids it.
		return failureWithTID(resp.Get("resultcode"), resp.Get("resultmsg"), resp.Get("tid"))
	}

	price, _ := strconv.ParseInt(resp.Get("price"), 10, 64)
	return Approved(resp.Get("tid"), resp.Get("authcode"), resp.Get("cardnumber"), resp.Get("cardname"), price)
}

func (g *Inicis) callCancel(ctx context.Context, req CancelRequest) Result {
	params := url.Values{}
	params.Set("type", "refund")
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("clientip", "127.0.0.1")
	params.Set("mid", g.mid)
	params.Set("tid", req.GatewayTID)
	params.Set("price", strconv.FormatInt(req.amount(), 10))
	params.Set("msg", req.Reason)
	params.Set("hashdata", g.refundHash(params))

	resp, err := g.post(ctx, g.apiURL+inicisRefundPath, params)
	if err != nil {
		slog.Error("inicis cancel request failed", "gatewayTid", req.GatewayTID, "err", err)
		return Failure("SYSTEM_ERROR", "gateway communication failed")
	}

	if resp.Get("resultcode") != "00" {
		return Failure(resp.Get("resultcode"), resp.Get("resultmsg"))
	}

	cancelled, _ := strconv.ParseInt(resp.Get("price"), 10, 64)
	if cancelled == 0 {
		cancelled = req.amount()
	}
	return Cancelled(resp.Get("tid"), cancelled)
}

func (g *Inicis) NetworkCancel(ctx context.Context, gatewayTID string) Result {
	params := url.Values{}
	params.Set("type", "netcancel")
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("clientip", "127.0.0.1")
	params.Set("mid", g.mid)
	params.Set("tid", gatewayTID)
	params.Set("hashdata", g.refundHash(params))

	resp, err := g.post(ctx, g.apiURL+inicisRefundPath, params)
	if err != nil {
		slog.Error("inicis network cancel request failed", "gatewayTid", gatewayTID, "err", err)
		return Failure("SYSTEM_ERROR", "gateway communication failed")
	}

	if resp.Get("resultcode") != "00" {
		return Failure(resp.Get("resultcode"), resp.Get("resultmsg"))
	}
	return Result{Success: true, Message: "network cancel completed", GatewayTID: gatewayTID}
}

// payHash signs an approval request: SHA-512 over
// signKey|type|paymethod|timestamp|clientip|mid|tid|oid|price|currency.
func (g *Inicis) payHash(p url.Values) string {
	raw := g.signKey + p.Get("type") + p.Get("paymethod") + p.Get("timestamp") +
		p.Get("clientip") + p.Get("mid") + p.Get("tid") + p.Get("oid") +
		p.Get("price") + p.Get("currency")
	sum := sha512.Sum512([]byte(raw))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// refundHash signs refund and netcancel requests; price participates only
// when present.
func (g *Inicis) refundHash(p url.Values) string {
	raw := g.signKey + p.Get("type") + p.Get("timestamp") + p.Get("clientip") +
		p.Get("mid") + p.Get("tid") + p.Get("price")
	sum := sha512.Sum512([]byte(raw))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func (g *Inicis) post(ctx context.Context, endpoint string, params url.Values) (url.Values, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inicis http status %d", resp.StatusCode)
	}

	// Inicis answers with a querystring body.
	return url.ParseQuery(string(body))
}

// AuthParams carries the fields the browser-side Inicis payment window needs.
type AuthParams struct {
	MID         string `json:"mid"`
	OID         string `json:"oid"`
	Price       int64  `json:"price"`
	Timestamp   string `json:"timestamp"`
	Signature   string `json:"signature"`
	Currency    string `json:"currency"`
	BuyerName   string `json:"buyername"`
	BuyerEmail  string `json:"buyeremail"`
	BuyerTel    string `json:"buyertel"`
	GoodName    string `json:"goodname"`
}

// AuthParams generates the signed parameter set for the payment window:
// the signature is the SHA-512 hex digest of oid+price+timestamp+signKey.
func (g *Inicis) AuthParams(price int64, goodName, buyerName, buyerEmail, buyerTel string) AuthParams {
	now := time.Now()
	timestamp := now.Format("20060102150405")
	oid := fmt.Sprintf("ORD%s%03d", timestamp, rand.Intn(900)+100)

	sum := sha512.Sum512([]byte(fmt.Sprintf("%s%d%s%s", oid, price, timestamp, g.signKey)))

	return AuthParams{
		MID:        g.mid,
		OID:        oid,
		Price:      price,
		Timestamp:  timestamp,
		Signature:  hex.EncodeToString(sum[:]),
		Currency:   "WON",
		BuyerName:  buyerName,
		BuyerEmail: buyerEmail,
		BuyerTel:   buyerTel,
		GoodName:   goodName,
	}
}
