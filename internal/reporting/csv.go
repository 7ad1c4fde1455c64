package reporting

import (
	"io"
	"strconv"

	"github.com/alocode/restopos/internal/domain"
	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
)

// lineRow one order line flattened with its order
type lineRow struct {
	OrderID     string `csv:"order_id"`
	CompletedAt string `csv:"completed_at"`
	Type        string `csv:"type"`
	Table       string `csv:"table"`
	Product     string `csv:"product"`
	Quantity    int    `csv:"quantity"`
	UnitPrice   string `csv:"unit_price"`
	Subtotal    string `csv:"subtotal"`
	Surcharge   string `csv:"surcharge"`
	Total       string `csv:"total"`
}

// WriteOrdersCSV writes one row per order line
func WriteOrdersCSV(w io.Writer, orders []*domain.Order) error {
	rows := make([]*lineRow, 0, len(orders))
	for _, o := range orders {
		base := lineRow{
			OrderID:   strconv.FormatInt(o.ID, 10),
			Type:      string(o.Type),
			Surcharge: o.Surcharge.StringFixed(2),
			Total:     o.Total.StringFixed(2),
		}
		if o.CompletedAt != nil {
			base.CompletedAt = o.CompletedAt.Format(timeLayout)
		}
		if o.TableNumber != nil {
			base.Table = strconv.Itoa(*o.TableNumber)
		}
		for _, l := range o.Lines {
			row := base
			row.Product = l.ProductName
			row.Quantity = l.Quantity
			row.UnitPrice = l.UnitPrice.StringFixed(2)
			row.Subtotal = l.Subtotal.StringFixed(2)
			rows = append(rows, &row)
		}
	}
	return errors.Wrap(gocsv.Marshal(rows, w), "write orders csv")
}
