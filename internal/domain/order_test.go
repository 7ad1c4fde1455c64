package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestOrderStateTransitions(t *testing.T) {
	all := []OrderState{OrderPending, OrderPreparing, OrderReady, OrderCompleted, OrderCancelled}
	allowed := map[OrderState][]OrderState{
		OrderPending:   {OrderPreparing, OrderReady, OrderCompleted, OrderCancelled},
		OrderPreparing: {OrderReady, OrderCompleted, OrderCancelled},
		OrderReady:     {OrderCompleted, OrderCancelled},
		OrderCompleted: {},
		OrderCancelled: {},
	}
	for from, targets := range allowed {
		ok := make(map[OrderState]bool)
		for _, to := range targets {
			ok[to] = true
		}
		for _, to := range all {
			if got := from.CanTransitionTo(to); got != ok[to] {
				t.Errorf("%s -> %s: expected %v, got %v", from, to, ok[to], got)
			}
		}
	}
	if OrderPending.CanTransitionTo(OrderState("PAID")) {
		t.Error("unknown target state must be rejected")
	}
	if OrderReady.CanTransitionTo(OrderPreparing) {
		t.Error("a READY order must not return to PREPARING")
	}
}

func TestNewOrderLineCapturesPrice(t *testing.T) {
	p := &Product{ID: 7, Name: "Lomo saltado", Price: decimal.RequireFromString("10.50")}
	line := NewOrderLine(1, 2, 0, p, 3)

	p.Price = decimal.RequireFromString("99.00")

	if !line.UnitPrice.Equal(decimal.RequireFromString("10.50")) {
		t.Errorf("expected captured unit price 10.50, got %s", line.UnitPrice)
	}
	if !line.Subtotal.Equal(decimal.RequireFromString("31.50")) {
		t.Errorf("expected subtotal 31.50, got %s", line.Subtotal)
	}
	if line.ProductName != "Lomo saltado" || line.ProductID != 7 {
		t.Errorf("unexpected product snapshot %+v", line)
	}
}

func TestOrderRecompute(t *testing.T) {
	o := &Order{
		Surcharge: decimal.RequireFromString("2.00"),
		Lines: []OrderLine{
			{Subtotal: decimal.RequireFromString("20.00")},
			{Subtotal: decimal.RequireFromString("5.25")},
		},
	}
	o.Recompute()
	if !o.Total.Equal(decimal.RequireFromString("27.25")) {
		t.Errorf("expected total 27.25, got %s", o.Total)
	}
	if !o.Sales().Equal(decimal.RequireFromString("25.25")) {
		t.Errorf("expected sales 25.25, got %s", o.Sales())
	}
}

func TestReconcile(t *testing.T) {
	orders := []Order{
		{State: OrderCompleted, Total: decimal.RequireFromString("22.00"), Surcharge: decimal.RequireFromString("2.00")},
		{State: OrderCompleted, Total: decimal.RequireFromString("15.50"), Surcharge: decimal.Zero},
		{State: OrderCancelled, Total: decimal.RequireFromString("40.00"), Surcharge: decimal.RequireFromString("1.00")},
		{State: OrderPending, Total: decimal.RequireFromString("8.00"), Surcharge: decimal.Zero},
	}
	r := Reconcile(decimal.RequireFromString("100.00"), orders)

	if r.Orders != 2 {
		t.Errorf("expected 2 completed orders, got %d", r.Orders)
	}
	if !r.TotalSales.Equal(decimal.RequireFromString("35.50")) {
		t.Errorf("expected sales 35.50, got %s", r.TotalSales)
	}
	if !r.TotalSurcharge.Equal(decimal.RequireFromString("2.00")) {
		t.Errorf("expected surcharges 2.00, got %s", r.TotalSurcharge)
	}
	if !r.ClosingBalance.Equal(decimal.RequireFromString("137.50")) {
		t.Errorf("expected closing balance 137.50, got %s", r.ClosingBalance)
	}
}

func TestReconcileEmpty(t *testing.T) {
	r := Reconcile(decimal.RequireFromString("50"), nil)
	if !r.ClosingBalance.Equal(decimal.RequireFromString("50")) || r.Orders != 0 {
		t.Errorf("unexpected empty reconciliation %+v", r)
	}
}
