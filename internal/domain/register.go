package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type SessionState string

const (
	SessionOpen   SessionState = "OPEN"
	SessionClosed SessionState = "CLOSED"
)

// RegisterSession one cash-register (till) accounting period for a business date.
// The partial unique index allows a single OPEN session per date.
type RegisterSession struct {
	ID             int64               `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	BusinessDate   string              `gorm:"size:10;not null;index;uniqueIndex:idx_register_open_date,where:state = 'OPEN'" json:"business_date"`
	OpeningFloat   decimal.Decimal     `gorm:"type:decimal(12,2);not null" json:"opening_float"`
	ClosingBalance decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"closing_balance"`
	State          SessionState        `gorm:"size:16;index;not null" json:"state"`
	OpenedByID     int64               `gorm:"not null" json:"opened_by_id,string"`
	ClosedByID     *int64              `json:"closed_by_id,string,omitempty"`
	AutoClosed     bool                `gorm:"not null;default:false" json:"auto_closed"`
	OpenedAt       time.Time           `json:"opened_at"`
	ClosedAt       *time.Time          `json:"closed_at,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// TableName Specify table name
func (RegisterSession) TableName() string {
	return "pos_register_session"
}

// Reconciliation revenue of a session computed over its COMPLETED orders
type Reconciliation struct {
	Orders         int             `json:"orders"`
	TotalSales     decimal.Decimal `json:"total_sales"`
	TotalSurcharge decimal.Decimal `json:"total_surcharge"`
	Net            decimal.Decimal `json:"net"`
	OpeningFloat   decimal.Decimal `json:"opening_float"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
}

// Reconcile sales are Σ(total − surcharge), surcharges Σ surcharge, and the closing
// balance is the opening float plus both. Orders not COMPLETED are ignored.
func Reconcile(openingFloat decimal.Decimal, orders []Order) Reconciliation {
	r := Reconciliation{
		TotalSales:     decimal.Zero,
		TotalSurcharge: decimal.Zero,
		OpeningFloat:   openingFloat,
	}
	for i := range orders {
		if orders[i].State != OrderCompleted {
			continue
		}
		r.Orders++
		r.TotalSales = r.TotalSales.Add(orders[i].Sales())
		r.TotalSurcharge = r.TotalSurcharge.Add(orders[i].Surcharge)
	}
	r.Net = r.TotalSales.Add(r.TotalSurcharge)
	r.ClosingBalance = openingFloat.Add(r.Net)
	return r
}
