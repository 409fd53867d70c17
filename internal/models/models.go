package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User - The person operating the portal (shop owner or employee)
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50" json:"username"`
	PasswordHash string    `json:"-"`    // Never return this in JSON
	Role         string    `json:"role"` // 'owner', 'employee'
	CreatedAt    time.Time `json:"created_at"`
}

// Payment statuses a bill can be in. Derived, never set by hand.
const (
	StatusPending = "pending"
	StatusPartial = "partial"
	StatusPaid    = "paid"
)

// Payment methods accepted at the counter.
const (
	MethodCash = "cash"
	MethodUPI  = "upi"
	MethodBank = "bank"
)

// Product - The Inventory
type Product struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Name         string          `gorm:"size:100" json:"name"`
	Category     string          `gorm:"size:50" json:"category"`
	MarketPrice  decimal.Decimal `gorm:"type:decimal(10,2)" json:"market_price"`
	CurrentStock int             `json:"current_stock"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Customer - Trade account with a cached outstanding balance.
// OutstandingBalance is derived: the sum of RemainingAmount across the
// customer's bills, refreshed by the ledger after every bill/payment write.
type Customer struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	Name               string          `gorm:"size:100" json:"name"`
	Phone              string          `gorm:"uniqueIndex;size:15" json:"phone"`
	Address            string          `gorm:"type:text" json:"address"`
	OutstandingBalance decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"outstanding_balance"`
	CreatedAt          time.Time       `json:"created_at"`
	CreatedBy          uint            `json:"created_by"`
}

// Bill - The Invoice Header
type Bill struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	BillNumber      string          `gorm:"uniqueIndex;size:20" json:"bill_number"`
	CustomerID      uint            `gorm:"index" json:"customer_id"`
	Customer        *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Date            time.Time       `json:"date"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(12,2)" json:"total_amount"`
	PaidAmount      decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"paid_amount"`
	RemainingAmount decimal.Decimal `gorm:"type:decimal(12,2)" json:"remaining_amount"`
	PaymentStatus   string          `gorm:"size:20;default:pending" json:"payment_status"`
	CreatedBy       uint            `json:"created_by"`
	Items           []BillItem      `gorm:"foreignKey:BillID" json:"items"`
}

// BillItem - A product line on a bill. Total is Quantity x Price,
// snapshotted at billing time.
type BillItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	BillID    uint            `gorm:"index" json:"bill_id"`
	ProductID uint            `json:"product_id"`
	Product   Product         `json:"product"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(10,2)" json:"price"`
	Total     decimal.Decimal `gorm:"type:decimal(10,2)" json:"total"`
}

// Payment - Money received from a customer. BillID is optional: an unlinked
// payment is distributed across the customer's open bills oldest-first.
type Payment struct {
	ID            uint                `gorm:"primaryKey" json:"id"`
	ReceiptNumber string              `gorm:"uniqueIndex;size:40" json:"receipt_number"`
	CustomerID    uint                `gorm:"index" json:"customer_id"`
	Customer      *Customer           `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	BillID        *uint               `json:"bill_id"`
	Amount        decimal.Decimal     `gorm:"type:decimal(12,2)" json:"amount"`
	Date          time.Time           `json:"date"`
	PaymentMethod string              `gorm:"size:50" json:"payment_method"`
	ReceivedBy    uint                `json:"received_by"`
	Notes         string              `gorm:"type:text" json:"notes"`
	Allocations   []PaymentAllocation `gorm:"foreignKey:PaymentID" json:"allocations"`
}

// PaymentAllocation records how much of a payment landed on which bill.
// Deleting the payment replays these rows in reverse, so even a distributed
// payment is invertible.
type PaymentAllocation struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	PaymentID uint            `gorm:"index" json:"payment_id"`
	BillID    uint            `gorm:"index" json:"bill_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`
}
