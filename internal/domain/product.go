package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable item. A product with BaseProductID set is derived: it owns no
// stock of its own and every counter operation is redirected to the base product,
// scaled by ConversionFactor base units per unit sold.
type Product struct {
	ID               int64           `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	Name             string          `gorm:"size:100;index" json:"name"`
	Price            decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Stock            decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0" json:"stock"`
	Reserved         decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0" json:"reserved"`
	Active           bool            `gorm:"not null" json:"active"`
	BaseProductID    *int64          `gorm:"index" json:"base_product_id,string,omitempty"`
	ConversionFactor decimal.Decimal `gorm:"type:decimal(14,3);not null;default:1" json:"conversion_factor"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// TableName Specify table name
func (Product) TableName() string {
	return "pos_product"
}

// IsDerived reports whether the product routes its counters to a base product
func (p *Product) IsDerived() bool {
	return p.BaseProductID != nil
}

// Available is stock not held by open reservations
func (p *Product) Available() decimal.Decimal {
	return p.Stock.Sub(p.Reserved)
}

// ProductAvailability is a catalog row with the units that can still be sold
type ProductAvailability struct {
	Product   Product         `json:"product"`
	Available decimal.Decimal `json:"available"`
}
