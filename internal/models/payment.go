package models

import (
	"strings"
	"time"
)

type Payment struct {
	ID            string
	OrderID       string
	PaymentMethod PaymentMethod
	GatewayType   GatewayType
	TotalAmount   int64
	CardAmount    int64
	PointAmount   int64
	GatewayTID    string
	AuthCode      string
	CardNumber    string
	CardIssuer    string
	Status        PaymentStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Approve returns a copy of the payment settled with the gateway's
// identifiers. The card number is stored masked.
func (p Payment) Approve(gatewayTID, authCode, cardNumber, cardIssuer string) Payment {
	p.GatewayTID = gatewayTID
	p.AuthCode = authCode
	p.CardNumber = MaskCardNumber(cardNumber)
	p.CardIssuer = cardIssuer
	p.Status = PaymentApproved
	p.UpdatedAt = time.Now().UTC()
	return p
}

func (p Payment) Fail() Payment {
	p.Status = PaymentFailed
	p.UpdatedAt = time.Now().UTC()
	return p
}

func (p Payment) Cancel() Payment {
	p.Status = PaymentCancelled
	p.UpdatedAt = time.Now().UTC()
	return p
}

// MaskCardNumber keeps the first 6 and last 4 digits and replaces the rest
// with asterisks. Numbers shorter than 10 digits are returned as-is.
func MaskCardNumber(cardNumber string) string {
	if len(cardNumber) < 10 {
		return cardNumber
	}
	return cardNumber[:6] + strings.Repeat("*", len(cardNumber)-10) + cardNumber[len(cardNumber)-4:]
}
