package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type MovementKind string

const (
	MovementReserve MovementKind = "RESERVE"
	MovementRelease MovementKind = "RELEASE"
	MovementConsume MovementKind = "CONSUME"
	MovementRestock MovementKind = "RESTOCK"
)

// StockMovement append-only record of a ledger mutation. ProductID is the row whose
// counters changed, RequestedProductID the product named by the caller (differs for
// derived products).
type StockMovement struct {
	ID                 int64           `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	ProductID          int64           `gorm:"index;not null" json:"product_id,string"`
	RequestedProductID int64           `gorm:"not null" json:"requested_product_id,string"`
	Kind               MovementKind    `gorm:"size:16;not null" json:"kind"`
	Quantity           decimal.Decimal `gorm:"type:decimal(14,3);not null" json:"quantity"`
	StockBefore        decimal.Decimal `gorm:"type:decimal(14,3)" json:"stock_before"`
	StockAfter         decimal.Decimal `gorm:"type:decimal(14,3)" json:"stock_after"`
	ReservedBefore     decimal.Decimal `gorm:"type:decimal(14,3)" json:"reserved_before"`
	ReservedAfter      decimal.Decimal `gorm:"type:decimal(14,3)" json:"reserved_after"`
	OrderID            *int64          `gorm:"index" json:"order_id,string,omitempty"`
	CreatedAt          time.Time       `gorm:"index" json:"created_at"`
}

// TableName Specify table name
func (StockMovement) TableName() string {
	return "pos_stock_movement"
}
