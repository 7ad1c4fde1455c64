package reporting

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/alocode/restopos/config"
	"github.com/alocode/restopos/internal/dbtest"
	"github.com/alocode/restopos/internal/domain"
	"github.com/alocode/restopos/internal/orders"
	"github.com/alocode/restopos/internal/register"
	"github.com/alocode/restopos/pkg/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/gomail.v2"
)

var day = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// seedDay opens a session with float 100, completes a 22.00 table order and a
// 5.00 takeout, leaves one pending order and closes the session.
func seedDay(t *testing.T) *Reporter {
	t.Helper()
	db := dbtest.Open(t)
	ctx := context.Background()
	clock := func() time.Time { return day }
	orderSvc := orders.NewService(db, orders.WithClock(clock))
	registerSvc := register.NewService(db, orderSvc, register.WithClock(clock))

	burger := &domain.Product{ID: common.UUIDint64(), Name: "Burger", Price: decimal.NewFromInt(10),
		Stock: decimal.NewFromInt(20), Reserved: decimal.Zero, Active: true, ConversionFactor: decimal.NewFromInt(1)}
	soda := &domain.Product{ID: common.UUIDint64(), Name: "Soda", Price: decimal.RequireFromString("2.50"),
		Stock: decimal.NewFromInt(20), Reserved: decimal.Zero, Active: true, ConversionFactor: decimal.NewFromInt(1)}
	table := &domain.DiningTable{ID: common.UUIDint64(), Number: 3, Capacity: 4, State: domain.TableAvailable}
	for _, v := range []interface{}{burger, soda, table} {
		if err := db.Create(v).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	session, err := registerSvc.Open(ctx, decimal.NewFromInt(100), 1)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	requests := []orders.CreateRequest{
		{Type: domain.OrderTypeTable, TableID: &table.ID, Surcharge: decimal.NewFromInt(2),
			Lines: []orders.LineRequest{{ProductID: burger.ID, Quantity: 2}}},
		{Type: domain.OrderTypeTakeout, Lines: []orders.LineRequest{{ProductID: soda.ID, Quantity: 2}}},
		{Type: domain.OrderTypeDelivery, Lines: []orders.LineRequest{{ProductID: burger.ID, Quantity: 1}}},
	}
	for i, req := range requests {
		o, err := orderSvc.Create(ctx, req, 1)
		if err != nil {
			t.Fatalf("create order %d: %v", i, err)
		}
		if i < 2 {
			if _, err := orderSvc.Transition(ctx, o.ID, domain.OrderCompleted, 1); err != nil {
				t.Fatalf("complete order %d: %v", i, err)
			}
		}
	}
	if _, err := registerSvc.Close(ctx, session.ID, 1); err != nil {
		t.Fatalf("close: %v", err)
	}
	return NewReporter(db, clock)
}

func TestDaily(t *testing.T) {
	reporter := seedDay(t)
	report, err := reporter.Daily(context.Background(), reporter.Today())
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	checks := map[string][2]string{
		"opening":    {"100.00", report.OpeningTotal.StringFixed(2)},
		"sales":      {"25.00", report.Sales.StringFixed(2)},
		"surcharges": {"2.00", report.Surcharges.StringFixed(2)},
		"net":        {"27.00", report.Net.StringFixed(2)},
		"closing":    {"127.00", report.ClosingTotal.StringFixed(2)},
	}
	for name, c := range checks {
		if c[0] != c[1] {
			t.Errorf("%s: expected %s, got %s", name, c[0], c[1])
		}
	}
	if len(report.Sessions) != 1 || len(report.Orders) != 2 {
		t.Fatalf("expected 1 session and 2 orders, got %d and %d", len(report.Sessions), len(report.Orders))
	}
	want := TicketStats{Count: 2, Sum: 27, Mean: 13.5, Median: 13.5, Max: 22}
	if report.Tickets != want {
		t.Errorf("expected %+v, got %+v", want, report.Tickets)
	}

	if _, err := reporter.Daily(context.Background(), "01/03/2024"); !errors.Is(err, domain.ErrInvalidDate) {
		t.Errorf("expected ErrInvalidDate, got %v", err)
	}
	empty, err := reporter.Daily(context.Background(), "2024-02-01")
	if err != nil || len(empty.Sessions) != 0 || !empty.Net.IsZero() {
		t.Errorf("expected an empty report, got %+v (%v)", empty, err)
	}
}

func TestWriteDailyExcel(t *testing.T) {
	reporter := seedDay(t)
	report, err := reporter.Daily(context.Background(), "2024-03-01")
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteDailyExcel(&buf, report); err != nil {
		t.Fatalf("write: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	if got := f.GetCellValue(SummarySheet, "A1"); got != "Daily report 2024-03-01" {
		t.Errorf("expected title, got %q", got)
	}
	sessionID := strconv.FormatInt(report.Sessions[0].Session.ID, 10)
	if got := f.GetCellValue(SummarySheet, "A4"); got != sessionID {
		t.Errorf("expected session %s on the first row, got %q", sessionID, got)
	}
	if got := f.GetCellValue(OrdersSheet, "A1"); got != "Order" {
		t.Errorf("expected orders header, got %q", got)
	}
	products := map[string]bool{}
	for _, a := range []string{"E2", "E3"} {
		products[f.GetCellValue(OrdersSheet, a)] = true
	}
	if !products["Burger"] || !products["Soda"] {
		t.Errorf("expected Burger and Soda lines, got %v", products)
	}
}

func TestWriteOrdersCSV(t *testing.T) {
	reporter := seedDay(t)
	from, to, err := ParseRange("2024-03-01", "", day)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	list, err := reporter.CompletedBetween(context.Background(), from, to)
	if err != nil {
		t.Fatalf("completed: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteOrdersCSV(&buf, list); err != nil {
		t.Fatalf("csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %d lines:\n%s", len(lines), buf.String())
	}
	header := "order_id,completed_at,type,table,product,quantity,unit_price,subtotal,surcharge,total"
	if lines[0] != header {
		t.Errorf("expected %q, got %q", header, lines[0])
	}
	if !strings.Contains(buf.String(), ",TABLE,3,Burger,2,10.00,20.00,2.00,22.00") {
		t.Errorf("missing table order row in:\n%s", buf.String())
	}
}

func TestParseRange(t *testing.T) {
	now := time.Date(2024, 3, 5, 15, 30, 0, 0, time.UTC)
	tests := []struct {
		name     string
		from, to string
		start    string
		end      string
		invalid  bool
	}{
		{"defaults to today", "", "", "2024-03-05 00:00:00", "2024-03-05 23:59:59", false},
		{"single day", "2024-03-01", "", "2024-03-01 00:00:00", "2024-03-01 23:59:59", false},
		{"date range", "2024-03-01", "2024-03-03", "2024-03-01 00:00:00", "2024-03-03 23:59:59", false},
		{"explicit times", "2024-03-01 08:00", "2024-03-01 12:00", "2024-03-01 08:00:00", "2024-03-01 12:00:00", false},
		{"reversed", "2024-03-03", "2024-03-01", "", "", true},
		{"garbage", "not a date", "", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := ParseRange(tt.from, tt.to, now)
			if tt.invalid {
				if !errors.Is(err, domain.ErrInvalidDate) {
					t.Errorf("expected ErrInvalidDate, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			const layout = "2006-01-02 15:04:05"
			if start.Format(layout) != tt.start || end.Format(layout) != tt.end {
				t.Errorf("expected %s..%s, got %s..%s", tt.start, tt.end, start.Format(layout), end.Format(layout))
			}
		})
	}
}

func TestSummarizeLocale(t *testing.T) {
	report := &DailyReport{Date: "2024-03-01", Net: decimal.RequireFromString("122.5")}
	if got := Summarize(report, "es"); !strings.Contains(got, "Net: 122,50") {
		t.Errorf("expected spanish decimal comma, got:\n%s", got)
	}
	if got := Summarize(report, "en"); !strings.Contains(got, "Net: 122.50") {
		t.Errorf("expected english decimal point, got:\n%s", got)
	}
}

func TestMailerSendDaily(t *testing.T) {
	reporter := seedDay(t)
	mailer := NewMailer(config.MailConfig{
		Enabled: true,
		From:    "pos@example.com",
		To:      []string{"owner@example.com"},
		Locale:  "en",
	}, reporter)
	var sent *gomail.Message
	mailer.send = func(m *gomail.Message) error {
		sent = m
		return nil
	}
	if err := mailer.SendDaily(context.Background(), "2024-03-01"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if sent == nil {
		t.Fatal("expected a message")
	}
	if got := sent.GetHeader("Subject"); len(got) != 1 || got[0] != "Daily report 2024-03-01" {
		t.Errorf("unexpected subject %v", got)
	}
	if got := sent.GetHeader("To"); len(got) != 1 || got[0] != "owner@example.com" {
		t.Errorf("unexpected recipients %v", got)
	}
	var raw bytes.Buffer
	if _, err := sent.WriteTo(&raw); err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"Closing total: 127.00", "report-2024-03-01.xlsx"} {
		if !strings.Contains(raw.String(), want) {
			t.Errorf("expected message to contain %q", want)
		}
	}
}
