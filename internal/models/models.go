package models

import (
	"fmt"
	"math/rand"
	"time"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderPaid      OrderStatus = "PAID"
	OrderCancelled OrderStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentApproved  PaymentStatus = "APPROVED"
	PaymentCancelled PaymentStatus = "CANCELLED"
	PaymentFailed    PaymentStatus = "FAILED"
)

type PaymentMethod string

const (
	MethodCard  PaymentMethod = "CARD"
	MethodPoint PaymentMethod = "POINT"
	MethodMixed PaymentMethod = "MIXED"
)

type GatewayType string

const (
	GatewayInicis GatewayType = "INICIS"
	GatewayToss   GatewayType = "TOSS"
)

type TransactionType string

const (
	TxEarn    TransactionType = "EARN"
	TxUse     TransactionType = "USE"
	TxRestore TransactionType = "RESTORE"
)

type Member struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	CreatedAt    time.Time
}

type Order struct {
	ID          string
	MemberID    string
	OrderNumber string
	ProductName string
	UnitPrice   int64
	Quantity    int64
	TotalAmount int64
	PointAmount int64
	CardAmount  int64
	Status      OrderStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Point struct {
	MemberID  string
	Balance   int64
	UpdatedAt time.Time
}

// PointHistory rows are append-only; they are never updated or deleted.
type PointHistory struct {
	ID              string
	MemberID        string
	TransactionType TransactionType
	Amount          int64
	BalanceBefore   int64
	BalanceAfter    int64
	OrderNumber     string
	Description     string
	CreatedAt       time.Time
}

// NewOrderNumber returns an externally visible order number of the form
// ORD + yyyyMMddHHmmssSSS + three random digits.
func NewOrderNumber(now time.Time) string {
	ts := now.Format("20060102150405") + fmt.Sprintf("%03d", now.Nanosecond()/1e6)
	return fmt.Sprintf("ORD%s%03d", ts, rand.Intn(1000))
}
