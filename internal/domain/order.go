package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderType string

const (
	OrderTypeTable    OrderType = "TABLE"
	OrderTypeTakeout  OrderType = "TAKEOUT"
	OrderTypeDelivery OrderType = "DELIVERY"
)

// Valid reports whether t is a known order type
func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeTable, OrderTypeTakeout, OrderTypeDelivery:
		return true
	}
	return false
}

// RequiresTable dine-in orders occupy a table
func (t OrderType) RequiresTable() bool {
	return t == OrderTypeTable
}

type OrderState string

const (
	OrderPending   OrderState = "PENDING"
	OrderPreparing OrderState = "PREPARING"
	OrderReady     OrderState = "READY"
	OrderCompleted OrderState = "COMPLETED"
	OrderCancelled OrderState = "CANCELLED"
)

// ActiveOrderStates are the non-terminal states holding reservations
var ActiveOrderStates = []OrderState{OrderPending, OrderPreparing, OrderReady}

var orderStateRank = map[OrderState]int{
	OrderPending:   0,
	OrderPreparing: 1,
	OrderReady:     2,
	OrderCompleted: 3,
}

// Valid reports whether s is a known state
func (s OrderState) Valid() bool {
	_, ok := orderStateRank[s]
	return ok || s == OrderCancelled
}

// Terminal COMPLETED and CANCELLED accept no further transition
func (s OrderState) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// CanTransitionTo progression is forward only; CANCELLED is reachable from any
// non-terminal state. A READY order cannot go back to PREPARING: send it back
// by cancelling and placing a new order.
func (s OrderState) CanTransitionTo(next OrderState) bool {
	if s.Terminal() || !next.Valid() {
		return false
	}
	if next == OrderCancelled {
		return true
	}
	return orderStateRank[next] > orderStateRank[s]
}

type Order struct {
	ID            int64           `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	Type          OrderType       `gorm:"size:16;not null" json:"type"`
	State         OrderState      `gorm:"size:16;index;not null" json:"state"`
	TableID       *int64          `gorm:"index" json:"table_id,string,omitempty"`
	TableNumber   *int            `json:"table_number,omitempty"`
	OperatorID    int64           `gorm:"index;not null" json:"operator_id,string"`
	SessionID     int64           `gorm:"index;not null" json:"session_id,string"`
	Surcharge     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"surcharge"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	Notes         string          `gorm:"size:500" json:"notes"`
	CompletedAt   *time.Time      `gorm:"index" json:"completed_at,omitempty"`
	CompletedByID *int64          `json:"completed_by_id,string,omitempty"`
	Lines         []OrderLine     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"lines"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName Specify table name
func (Order) TableName() string {
	return "pos_order"
}

// LinesSubtotal sum of line subtotals
func (o *Order) LinesSubtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range o.Lines {
		sum = sum.Add(l.Subtotal)
	}
	return sum
}

// Recompute sets Total from the lines and the surcharge
func (o *Order) Recompute() {
	o.Total = o.LinesSubtotal().Add(o.Surcharge)
}

// Sales the order total without the surcharge
func (o *Order) Sales() decimal.Decimal {
	return o.Total.Sub(o.Surcharge)
}

type OrderLine struct {
	ID          int64           `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	OrderID     int64           `gorm:"index;not null" json:"order_id,string"`
	Position    int             `gorm:"not null" json:"position"`
	ProductID   int64           `gorm:"index;not null" json:"product_id,string"`
	ProductName string          `gorm:"size:100" json:"product_name"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TableName Specify table name
func (OrderLine) TableName() string {
	return "pos_order_line"
}

// NewOrderLine captures the product's current price; later price edits do not
// affect the line.
func NewOrderLine(id, orderID int64, position int, p *Product, qty int) OrderLine {
	return OrderLine{
		ID:          id,
		OrderID:     orderID,
		Position:    position,
		ProductID:   p.ID,
		ProductName: p.Name,
		Quantity:    qty,
		UnitPrice:   p.Price,
		Subtotal:    p.Price.Mul(decimal.NewFromInt(int64(qty))),
	}
}
